package handlers

import (
	"strconv"

	"vaultpay/internal/services/order"
	"vaultpay/internal/utils"

	"github.com/gofiber/fiber/v2"
)

type OrderHandler struct {
	orderService order.Service
}

func NewOrderHandler(orderService order.Service) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

func orderIDParam(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil || id == 0 {
		return 0, fiber.ErrBadRequest
	}
	return uint(id), nil
}

// Checkout opens an order against the caller as payer: the amount is
// reserved on their wallet and waits for the merchant to capture.
func (h *OrderHandler) Checkout(c *fiber.Ctx) error {
	claims, err := claimsFrom(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	var input struct {
		MerchantID  uint   `json:"merchant_id"`
		Amount      string `json:"amount"`
		Currency    string `json:"currency"`
		Description string `json:"description"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request format")
	}
	if input.MerchantID == 0 {
		return utils.BadRequest(c, "merchant_id is required")
	}
	amount, err := parseAmount(input.Amount)
	if err != nil {
		return utils.BadRequest(c, "invalid amount")
	}

	placed, err := h.orderService.Authorize(c.UserContext(), order.AuthorizeParams{
		MerchantID:  input.MerchantID,
		PayerID:     claims.UserID,
		Amount:      amount,
		Currency:    input.Currency,
		Description: input.Description,
	})
	if err != nil {
		return serviceError(c, err)
	}
	return utils.Respond(c, fiber.StatusCreated, fiber.Map{"order": placed})
}

// Capture draws on the order's authorization. Merchant only.
func (h *OrderHandler) Capture(c *fiber.Ctx) error {
	claims, err := claimsFrom(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}
	orderID, err := orderIDParam(c)
	if err != nil {
		return utils.BadRequest(c, "invalid order id")
	}

	var input struct {
		Amount string `json:"amount"`
	}
	if err := c.BodyParser(&input); err != nil && len(c.Body()) > 0 {
		return utils.BadRequest(c, "invalid request format")
	}
	amount, err := parseAmount(input.Amount)
	if err != nil {
		return utils.BadRequest(c, "invalid amount")
	}

	captured, txn, err := h.orderService.Capture(c.UserContext(), order.CaptureParams{
		OrderID:        orderID,
		MerchantID:     claims.UserID,
		Amount:         amount,
		IdempotencyKey: idempotencyKey(c),
	})
	if err != nil {
		return serviceError(c, err)
	}
	return utils.Success(c, fiber.Map{
		"order":       captured,
		"transaction": transactionView(txn, claims.UserID),
	})
}

// Void releases whatever authorization remains uncaptured.
func (h *OrderHandler) Void(c *fiber.Ctx) error {
	claims, err := claimsFrom(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}
	orderID, err := orderIDParam(c)
	if err != nil {
		return utils.BadRequest(c, "invalid order id")
	}

	voided, err := h.orderService.Void(c.UserContext(), orderID, claims.UserID)
	if err != nil {
		return serviceError(c, err)
	}
	return utils.Success(c, fiber.Map{"order": voided})
}

// Refund returns captured money to the payer, bounded by what was
// captured and not yet refunded.
func (h *OrderHandler) Refund(c *fiber.Ctx) error {
	claims, err := claimsFrom(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}
	orderID, err := orderIDParam(c)
	if err != nil {
		return utils.BadRequest(c, "invalid order id")
	}

	var input struct {
		Amount string `json:"amount"`
		Reason string `json:"reason"`
	}
	if err := c.BodyParser(&input); err != nil && len(c.Body()) > 0 {
		return utils.BadRequest(c, "invalid request format")
	}
	amount, err := parseAmount(input.Amount)
	if err != nil {
		return utils.BadRequest(c, "invalid amount")
	}

	refunded, txn, err := h.orderService.Refund(c.UserContext(), order.RefundParams{
		OrderID:        orderID,
		MerchantID:     claims.UserID,
		Amount:         amount,
		Reason:         input.Reason,
		IdempotencyKey: idempotencyKey(c),
	})
	if err != nil {
		return serviceError(c, err)
	}
	return utils.Success(c, fiber.Map{
		"order":       refunded,
		"transaction": transactionView(txn, claims.UserID),
	})
}

func (h *OrderHandler) Get(c *fiber.Ctx) error {
	claims, err := claimsFrom(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}
	orderID, err := orderIDParam(c)
	if err != nil {
		return utils.BadRequest(c, "invalid order id")
	}

	found, err := h.orderService.Get(c.UserContext(), orderID, claims.UserID)
	if err != nil {
		return serviceError(c, err)
	}
	return utils.Success(c, fiber.Map{"order": found})
}

// List returns the caller's orders: the merchant side for merchants,
// the payer side for everyone else.
func (h *OrderHandler) List(c *fiber.Ctx) error {
	claims, err := claimsFrom(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}
	p := utils.GetPagination(c, 1, 20)

	var orders interface{}
	if c.Query("side", "payer") == "merchant" {
		orders, err = h.orderService.ListForMerchant(c.UserContext(), claims.UserID, p.Limit, p.Offset)
	} else {
		orders, err = h.orderService.ListForPayer(c.UserContext(), claims.UserID, p.Limit, p.Offset)
	}
	if err != nil {
		return serviceError(c, err)
	}
	return utils.Success(c, fiber.Map{
		"orders": orders,
		"page":   p.Page,
		"limit":  p.Limit,
	})
}
