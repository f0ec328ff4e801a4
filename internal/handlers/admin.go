package handlers

import (
	"strconv"

	"vaultpay/internal/services/ledger"
	"vaultpay/internal/services/user"
	"vaultpay/internal/services/wallet"
	"vaultpay/internal/utils"

	"github.com/gofiber/fiber/v2"
)

// AdminHandler drives the operator surface: settling two-phase
// outflows standing in for the external rail, wallet lock/unlock,
// reconciliation and account administration.
type AdminHandler struct {
	ledgerService ledger.Service
	walletService wallet.Service
	userService   user.Service
}

func NewAdminHandler(ledgerService ledger.Service, walletService wallet.Service, userService user.Service) *AdminHandler {
	return &AdminHandler{
		ledgerService: ledgerService,
		walletService: walletService,
		userService:   userService,
	}
}

func transactionIDParam(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil || id == 0 {
		return 0, fiber.ErrBadRequest
	}
	return uint(id), nil
}

// Settle finalizes a pending withdrawal or payout.
func (h *AdminHandler) Settle(c *fiber.Ctx) error {
	id, err := transactionIDParam(c)
	if err != nil {
		return utils.BadRequest(c, "invalid transaction id")
	}
	txn, err := h.ledgerService.Settle(c.UserContext(), id)
	if err != nil {
		return serviceError(c, err)
	}
	return utils.Success(c, fiber.Map{"transaction": txn})
}

// Fail abandons a pending withdrawal or payout and releases the hold.
func (h *AdminHandler) Fail(c *fiber.Ctx) error {
	id, err := transactionIDParam(c)
	if err != nil {
		return utils.BadRequest(c, "invalid transaction id")
	}

	var input struct {
		Reason string `json:"reason"`
	}
	if err := c.BodyParser(&input); err != nil && len(c.Body()) > 0 {
		return utils.BadRequest(c, "invalid request format")
	}
	if input.Reason == "" {
		input.Reason = "failed by operator"
	}

	txn, err := h.ledgerService.Fail(c.UserContext(), id, input.Reason)
	if err != nil {
		return serviceError(c, err)
	}
	return utils.Success(c, fiber.Map{"transaction": txn})
}

// Reconcile replays a wallet's ledger entries against its balance.
func (h *AdminHandler) Reconcile(c *fiber.Ctx) error {
	id, err := walletIDParam(c)
	if err != nil {
		return utils.BadRequest(c, "invalid wallet id")
	}
	report, err := h.ledgerService.Reconcile(c.UserContext(), id)
	if err != nil {
		return serviceError(c, err)
	}
	return utils.Success(c, fiber.Map{"report": report})
}

func (h *AdminHandler) LockWallet(c *fiber.Ctx) error {
	id, err := walletIDParam(c)
	if err != nil {
		return utils.BadRequest(c, "invalid wallet id")
	}

	var input struct {
		Reason string `json:"reason"`
	}
	if err := c.BodyParser(&input); err != nil && len(c.Body()) > 0 {
		return utils.BadRequest(c, "invalid request format")
	}

	if err := h.walletService.Lock(c.UserContext(), id, input.Reason); err != nil {
		return serviceError(c, err)
	}
	return utils.Success(c, fiber.Map{"message": "wallet locked"})
}

func (h *AdminHandler) UnlockWallet(c *fiber.Ctx) error {
	id, err := walletIDParam(c)
	if err != nil {
		return utils.BadRequest(c, "invalid wallet id")
	}
	if err := h.walletService.Unlock(c.UserContext(), id); err != nil {
		return serviceError(c, err)
	}
	return utils.Success(c, fiber.Map{"message": "wallet unlocked"})
}

func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	p := utils.GetPagination(c, 1, 20)
	users, total, err := h.userService.List(p.Offset, p.Limit)
	if err != nil {
		return serviceError(c, err)
	}
	views := make([]fiber.Map, 0, len(users))
	for _, u := range users {
		views = append(views, userView(u))
	}
	p.SetTotal(total)
	return utils.Success(c, utils.NewPaginatedResponse(views, p))
}

func (h *AdminHandler) SetUserStatus(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil || id == 0 {
		return utils.BadRequest(c, "invalid user id")
	}

	var input struct {
		Status string `json:"status"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request format")
	}

	if err := h.userService.SetStatus(uint(id), input.Status); err != nil {
		return serviceError(c, err)
	}
	return utils.Success(c, fiber.Map{"message": "status updated"})
}
