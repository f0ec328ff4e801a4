// Package routes wires handlers onto the fiber app. Service
// construction happens in cmd/server; this package only lays out the
// URL surface and its auth requirements.
package routes

import (
	"vaultpay/internal/handlers"
	"vaultpay/internal/middleware"
	"vaultpay/internal/models"
	authsvc "vaultpay/internal/services/auth"
	"vaultpay/internal/services/creditcard"
	"vaultpay/internal/services/ledger"
	"vaultpay/internal/services/moneyrequest"
	"vaultpay/internal/services/order"
	"vaultpay/internal/services/payment"
	"vaultpay/internal/services/qrcode"
	"vaultpay/internal/services/refund"
	"vaultpay/internal/services/schedule"
	"vaultpay/internal/services/user"
	"vaultpay/internal/services/wallet"

	"github.com/gofiber/fiber/v2"
)

// Services carries every constructed service the HTTP surface needs.
type Services struct {
	Auth         authsvc.Service
	User         user.Service
	Wallet       wallet.Service
	Ledger       ledger.Service
	Refund       refund.Service
	Payment      payment.Service
	QR           qrcode.Service
	Order        order.Service
	Schedule     schedule.Service
	MoneyRequest moneyrequest.Service
	Cards        creditcard.Service
}

// SetupRoutes registers the full API surface.
func SetupRoutes(app *fiber.App, svcs Services, authMW *middleware.AuthMiddleware) {
	authHandler := handlers.NewAuthHandler(svcs.Auth, svcs.User)
	userHandler := handlers.NewUserHandler(svcs.User)
	walletHandler := handlers.NewWalletHandler(svcs.Wallet)
	txHandler := handlers.NewTransactionHandler(svcs.Ledger, svcs.Refund, svcs.User, svcs.Cards)
	orderHandler := handlers.NewOrderHandler(svcs.Order)
	qrHandler := handlers.NewQRHandler(svcs.QR, svcs.Payment, svcs.Cards)
	scheduleHandler := handlers.NewScheduleHandler(svcs.Schedule)
	requestHandler := handlers.NewMoneyRequestHandler(svcs.MoneyRequest)
	cardHandler := handlers.NewCardHandler(svcs.Cards)
	adminHandler := handlers.NewAdminHandler(svcs.Ledger, svcs.Wallet, svcs.User)

	api := app.Group("/api")

	// Public endpoints
	api.Post("/register", authHandler.Register)
	api.Post("/login", authHandler.Login)
	api.Post("/refresh", authHandler.Refresh)

	// Everything below requires a valid bearer token.
	authed := api.Use(authMW.Handler)

	authed.Post("/logout", authHandler.Logout)
	authed.Post("/change-password", authHandler.ChangePassword)
	authed.Get("/me", userHandler.Me)
	authed.Patch("/me", userHandler.UpdateProfile)

	wallets := authed.Group("/wallets")
	wallets.Get("/", walletHandler.List)
	wallets.Get("/history", walletHandler.History)
	wallets.Get("/:currency", walletHandler.Get)

	transactions := authed.Group("/transactions")
	transactions.Post("/transfer", txHandler.Transfer)
	transactions.Post("/deposit", txHandler.Deposit)
	transactions.Post("/withdraw", txHandler.Withdraw)
	transactions.Post("/convert", txHandler.Convert)
	transactions.Post("/refund", txHandler.Refund)
	transactions.Post("/payout", middleware.RequireRole(models.RoleMerchant), txHandler.Payout)

	payments := authed.Group("/payments")
	payments.Post("/direct", qrHandler.DirectPay)
	payments.Post("/qr", qrHandler.Pay)

	qr := authed.Group("/qr")
	qr.Get("/receive", qrHandler.ReceiveCode)
	qr.Post("/amount", qrHandler.CreateAmountCode)
	qr.Get("/", qrHandler.List)
	qr.Get("/:code", qrHandler.Resolve)
	qr.Delete("/:code", qrHandler.Revoke)

	orders := authed.Group("/orders")
	orders.Post("/", orderHandler.Checkout)
	orders.Get("/", orderHandler.List)
	orders.Get("/:id", orderHandler.Get)
	orders.Post("/:id/capture", middleware.RequireRole(models.RoleMerchant), orderHandler.Capture)
	orders.Post("/:id/void", middleware.RequireRole(models.RoleMerchant), orderHandler.Void)
	orders.Post("/:id/refund", middleware.RequireRole(models.RoleMerchant), orderHandler.Refund)

	schedules := authed.Group("/scheduled-payments")
	schedules.Post("/", scheduleHandler.Create)
	schedules.Get("/", scheduleHandler.List)
	schedules.Get("/:id", scheduleHandler.Get)
	schedules.Get("/:id/runs", scheduleHandler.ListRuns)
	schedules.Post("/:id/pause", scheduleHandler.Pause)
	schedules.Post("/:id/resume", scheduleHandler.Resume)
	schedules.Post("/:id/cancel", scheduleHandler.Cancel)

	requests := authed.Group("/money-requests")
	requests.Post("/", requestHandler.Create)
	requests.Get("/", requestHandler.List)
	requests.Get("/:id", requestHandler.Get)
	requests.Post("/:id/accept", requestHandler.Accept)
	requests.Post("/:id/decline", requestHandler.Decline)
	requests.Post("/:id/cancel", requestHandler.Cancel)

	cards := authed.Group("/cards")
	cards.Post("/", cardHandler.Link)
	cards.Get("/", cardHandler.List)
	cards.Delete("/:id", cardHandler.Remove)
	cards.Post("/:id/default", cardHandler.SetDefault)

	admin := authed.Group("/admin", middleware.RequireRole(models.RoleAdmin))
	admin.Post("/transactions/:id/settle", adminHandler.Settle)
	admin.Post("/transactions/:id/fail", adminHandler.Fail)
	admin.Get("/wallets/:id/reconcile", adminHandler.Reconcile)
	admin.Post("/wallets/:id/lock", adminHandler.LockWallet)
	admin.Post("/wallets/:id/unlock", adminHandler.UnlockWallet)
	admin.Get("/users", adminHandler.ListUsers)
	admin.Patch("/users/:id/status", adminHandler.SetUserStatus)
}
