package handlers

import (
	"strconv"
	"time"

	"vaultpay/internal/services/moneyrequest"
	"vaultpay/internal/utils"

	"github.com/gofiber/fiber/v2"
)

type MoneyRequestHandler struct {
	requestService moneyrequest.Service
}

func NewMoneyRequestHandler(requestService moneyrequest.Service) *MoneyRequestHandler {
	return &MoneyRequestHandler{requestService: requestService}
}

func requestIDParam(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil || id == 0 {
		return 0, fiber.ErrBadRequest
	}
	return uint(id), nil
}

func (h *MoneyRequestHandler) Create(c *fiber.Ctx) error {
	claims, err := claimsFrom(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	var input struct {
		PayerID     uint   `json:"payer_id"`
		Amount      string `json:"amount"`
		Currency    string `json:"currency"`
		Description string `json:"description"`
		ExpiresAt   string `json:"expires_at"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request format")
	}
	if input.PayerID == 0 {
		return utils.BadRequest(c, "payer_id is required")
	}
	amount, err := parseAmount(input.Amount)
	if err != nil {
		return utils.BadRequest(c, "invalid amount")
	}

	var expiresAt *time.Time
	if input.ExpiresAt != "" {
		t, err := time.Parse(time.RFC3339, input.ExpiresAt)
		if err != nil {
			return utils.BadRequest(c, "expires_at must be RFC3339")
		}
		expiresAt = &t
	}

	created, err := h.requestService.Create(c.UserContext(), moneyrequest.CreateParams{
		RequesterID: claims.UserID,
		PayerID:     input.PayerID,
		Amount:      amount,
		Currency:    input.Currency,
		Description: input.Description,
		ExpiresAt:   expiresAt,
	})
	if err != nil {
		return serviceError(c, err)
	}
	return utils.Respond(c, fiber.StatusCreated, fiber.Map{"money_request": created})
}

// Accept pays the request: a regular transfer runs from the caller to
// the requester and the request links the transaction.
func (h *MoneyRequestHandler) Accept(c *fiber.Ctx) error {
	claims, err := claimsFrom(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}
	id, err := requestIDParam(c)
	if err != nil {
		return utils.BadRequest(c, "invalid request id")
	}

	accepted, txn, err := h.requestService.Accept(c.UserContext(), id, claims.UserID)
	if err != nil {
		return serviceError(c, err)
	}
	return utils.Success(c, fiber.Map{
		"money_request": accepted,
		"transaction":   transactionView(txn, claims.UserID),
	})
}

func (h *MoneyRequestHandler) Decline(c *fiber.Ctx) error {
	claims, err := claimsFrom(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}
	id, err := requestIDParam(c)
	if err != nil {
		return utils.BadRequest(c, "invalid request id")
	}
	declined, err := h.requestService.Decline(c.UserContext(), id, claims.UserID)
	if err != nil {
		return serviceError(c, err)
	}
	return utils.Success(c, fiber.Map{"money_request": declined})
}

func (h *MoneyRequestHandler) Cancel(c *fiber.Ctx) error {
	claims, err := claimsFrom(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}
	id, err := requestIDParam(c)
	if err != nil {
		return utils.BadRequest(c, "invalid request id")
	}
	cancelled, err := h.requestService.Cancel(c.UserContext(), id, claims.UserID)
	if err != nil {
		return serviceError(c, err)
	}
	return utils.Success(c, fiber.Map{"money_request": cancelled})
}

func (h *MoneyRequestHandler) Get(c *fiber.Ctx) error {
	claims, err := claimsFrom(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}
	id, err := requestIDParam(c)
	if err != nil {
		return utils.BadRequest(c, "invalid request id")
	}
	found, err := h.requestService.Get(c.UserContext(), id, claims.UserID)
	if err != nil {
		return serviceError(c, err)
	}
	return utils.Success(c, fiber.Map{"money_request": found})
}

// List returns requests addressed to the caller by default, or the
// ones they sent with ?direction=outgoing.
func (h *MoneyRequestHandler) List(c *fiber.Ctx) error {
	claims, err := claimsFrom(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}
	p := utils.GetPagination(c, 1, 20)

	var requests interface{}
	if c.Query("direction", "incoming") == "outgoing" {
		requests, err = h.requestService.ListOutgoing(c.UserContext(), claims.UserID, p.Limit, p.Offset)
	} else {
		requests, err = h.requestService.ListIncoming(c.UserContext(), claims.UserID, p.Limit, p.Offset)
	}
	if err != nil {
		return serviceError(c, err)
	}
	return utils.Success(c, fiber.Map{
		"money_requests": requests,
		"page":           p.Page,
		"limit":          p.Limit,
	})
}
