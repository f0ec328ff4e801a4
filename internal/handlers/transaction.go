package handlers

import (
	"vaultpay/internal/models"
	"vaultpay/internal/services/creditcard"
	"vaultpay/internal/services/ledger"
	"vaultpay/internal/services/refund"
	"vaultpay/internal/services/user"
	"vaultpay/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionHandler exposes the ledger's money movements. Every
// endpoint accepts an optional Idempotency-Key header; retried
// requests carrying the same key replay the original result.
type TransactionHandler struct {
	ledgerService ledger.Service
	refundService refund.Service
	userService   user.Service
	cardService   creditcard.Service
}

func NewTransactionHandler(
	ledgerService ledger.Service,
	refundService refund.Service,
	userService user.Service,
	cardService creditcard.Service,
) *TransactionHandler {
	return &TransactionHandler{
		ledgerService: ledgerService,
		refundService: refundService,
		userService:   userService,
		cardService:   cardService,
	}
}

// idempotencyKey returns the client-supplied Idempotency-Key header,
// minting one when the client sent none so every movement is claimed
// under some key.
func idempotencyKey(c *fiber.Ctx) string {
	if key := c.Get("Idempotency-Key"); key != "" {
		return key
	}
	return uuid.NewString()
}

func parseAmount(raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(raw)
}

// Transfer moves money to another user, addressed by ID or email.
func (h *TransactionHandler) Transfer(c *fiber.Ctx) error {
	claims, err := claimsFrom(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	var input struct {
		ReceiverID    uint   `json:"receiver_id"`
		ReceiverEmail string `json:"receiver_email"`
		Amount        string `json:"amount"`
		Currency      string `json:"currency"`
		Description   string `json:"description"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request format")
	}
	amount, err := parseAmount(input.Amount)
	if err != nil {
		return utils.BadRequest(c, "invalid amount")
	}

	receiverID := input.ReceiverID
	if receiverID == 0 {
		if input.ReceiverEmail == "" {
			return utils.BadRequest(c, "receiver_id or receiver_email is required")
		}
		receiver, err := h.userService.GetByEmail(input.ReceiverEmail)
		if err != nil {
			return serviceError(c, err)
		}
		receiverID = receiver.ID
	}

	txn, err := h.ledgerService.Transfer(c.UserContext(), ledger.TransferParams{
		SenderID:       claims.UserID,
		ReceiverID:     receiverID,
		Amount:         amount,
		Currency:       input.Currency,
		Description:    input.Description,
		IdempotencyKey: idempotencyKey(c),
	})
	if err != nil {
		return serviceError(c, err)
	}
	return utils.Respond(c, fiber.StatusCreated, fiber.Map{
		"transaction": transactionView(txn, claims.UserID),
	})
}

// Deposit credits the caller's wallet from a simulated external rail,
// optionally charging one of their tokenized cards.
func (h *TransactionHandler) Deposit(c *fiber.Ctx) error {
	claims, err := claimsFrom(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	var input struct {
		Amount      string `json:"amount"`
		Currency    string `json:"currency"`
		CardID      uint   `json:"card_id"`
		Description string `json:"description"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request format")
	}
	amount, err := parseAmount(input.Amount)
	if err != nil {
		return utils.BadRequest(c, "invalid amount")
	}

	var metadata models.JSON
	if input.CardID != 0 {
		token, err := h.cardService.TokenFor(c.UserContext(), claims.UserID, input.CardID)
		if err != nil {
			return serviceError(c, err)
		}
		metadata = models.JSON{"source": "card", "card_token": token}
	}

	txn, err := h.ledgerService.Deposit(c.UserContext(), ledger.DepositParams{
		UserID:         claims.UserID,
		Amount:         amount,
		Currency:       input.Currency,
		Description:    input.Description,
		IdempotencyKey: idempotencyKey(c),
		Metadata:       metadata,
	})
	if err != nil {
		return serviceError(c, err)
	}
	return utils.Respond(c, fiber.StatusCreated, fiber.Map{
		"transaction": transactionView(txn, claims.UserID),
	})
}

// Withdraw starts a two-phase outflow; funds hold in pending until an
// operator settles or fails it.
func (h *TransactionHandler) Withdraw(c *fiber.Ctx) error {
	return h.initiateOutflow(c, false)
}

// Payout is the merchant flavor of Withdraw, priced by the payout fee.
func (h *TransactionHandler) Payout(c *fiber.Ctx) error {
	return h.initiateOutflow(c, true)
}

func (h *TransactionHandler) initiateOutflow(c *fiber.Ctx, payout bool) error {
	claims, err := claimsFrom(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	var input struct {
		Amount      string `json:"amount"`
		Currency    string `json:"currency"`
		Description string `json:"description"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request format")
	}
	amount, err := parseAmount(input.Amount)
	if err != nil {
		return utils.BadRequest(c, "invalid amount")
	}

	var txn *models.Transaction
	if payout {
		txn, err = h.ledgerService.InitiatePayout(c.UserContext(), ledger.PayoutParams{
			MerchantID:     claims.UserID,
			Amount:         amount,
			Currency:       input.Currency,
			Description:    input.Description,
			IdempotencyKey: idempotencyKey(c),
		})
	} else {
		txn, err = h.ledgerService.InitiateWithdrawal(c.UserContext(), ledger.WithdrawParams{
			UserID:         claims.UserID,
			Amount:         amount,
			Currency:       input.Currency,
			Description:    input.Description,
			IdempotencyKey: idempotencyKey(c),
		})
	}
	if err != nil {
		return serviceError(c, err)
	}
	return utils.Respond(c, fiber.StatusAccepted, fiber.Map{
		"transaction": transactionView(txn, claims.UserID),
	})
}

// Convert moves the caller's money between their own currency wallets
// at the configured rate.
func (h *TransactionHandler) Convert(c *fiber.Ctx) error {
	claims, err := claimsFrom(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	var input struct {
		FromCurrency string `json:"from_currency"`
		ToCurrency   string `json:"to_currency"`
		Amount       string `json:"amount"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request format")
	}
	amount, err := parseAmount(input.Amount)
	if err != nil {
		return utils.BadRequest(c, "invalid amount")
	}

	txn, err := h.ledgerService.Convert(c.UserContext(), ledger.ConvertParams{
		UserID:         claims.UserID,
		FromCurrency:   input.FromCurrency,
		ToCurrency:     input.ToCurrency,
		Amount:         amount,
		IdempotencyKey: idempotencyKey(c),
	})
	if err != nil {
		return serviceError(c, err)
	}
	return utils.Respond(c, fiber.StatusCreated, fiber.Map{
		"transaction": transactionView(txn, claims.UserID),
	})
}

// Refund reverses a completed transaction the caller took part in.
// Amount omitted or zero refunds the full remainder.
func (h *TransactionHandler) Refund(c *fiber.Ctx) error {
	claims, err := claimsFrom(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	var input struct {
		TransactionID uint   `json:"transaction_id"`
		Amount        string `json:"amount"`
		Reason        string `json:"reason"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request format")
	}
	if input.TransactionID == 0 {
		return utils.BadRequest(c, "transaction_id is required")
	}
	amount, err := parseAmount(input.Amount)
	if err != nil {
		return utils.BadRequest(c, "invalid amount")
	}

	txn, err := h.refundService.Refund(c.UserContext(), refund.Params{
		TransactionID:  input.TransactionID,
		Amount:         amount,
		Reason:         input.Reason,
		RequestedBy:    claims.UserID,
		RequesterRole:  claims.Role,
		IdempotencyKey: idempotencyKey(c),
	})
	if err != nil {
		return serviceError(c, err)
	}
	return utils.Respond(c, fiber.StatusCreated, fiber.Map{
		"transaction": transactionView(txn, claims.UserID),
	})
}
