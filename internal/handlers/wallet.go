package handlers

import (
	"strconv"

	"vaultpay/internal/services/wallet"
	"vaultpay/internal/utils"

	"github.com/gofiber/fiber/v2"
)

type WalletHandler struct {
	walletService wallet.Service
}

func NewWalletHandler(walletService wallet.Service) *WalletHandler {
	return &WalletHandler{walletService: walletService}
}

// List returns balance summaries for every wallet the caller holds.
func (h *WalletHandler) List(c *fiber.Ctx) error {
	claims, err := claimsFrom(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}
	summaries, err := h.walletService.Summaries(c.UserContext(), claims.UserID)
	if err != nil {
		return serviceError(c, err)
	}
	return utils.Success(c, fiber.Map{"wallets": summaries})
}

// Get returns one currency's balance summary, creating the wallet on
// first access so a new signup can see an empty balance immediately.
func (h *WalletHandler) Get(c *fiber.Ctx) error {
	claims, err := claimsFrom(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}
	currency := c.Params("currency")
	if _, err := h.walletService.GetOrCreate(c.UserContext(), claims.UserID, currency); err != nil {
		return serviceError(c, err)
	}
	summary, err := h.walletService.Summary(c.UserContext(), claims.UserID, currency)
	if err != nil {
		return serviceError(c, err)
	}
	return utils.Success(c, fiber.Map{"wallet": summary})
}

// History lists the caller's transactions newest first.
func (h *WalletHandler) History(c *fiber.Ctx) error {
	claims, err := claimsFrom(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}
	p := utils.GetPagination(c, 1, 20)
	txns, err := h.walletService.History(c.UserContext(), claims.UserID, p.Limit, p.Offset)
	if err != nil {
		return serviceError(c, err)
	}
	return utils.Success(c, fiber.Map{
		"transactions": transactionViews(txns, claims.UserID),
		"page":         p.Page,
		"limit":        p.Limit,
	})
}

func walletIDParam(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil || id == 0 {
		return 0, fiber.ErrBadRequest
	}
	return uint(id), nil
}
