package handlers

import (
	"context"
	"strconv"
	"time"

	"vaultpay/internal/models"
	"vaultpay/internal/services/schedule"
	"vaultpay/internal/utils"

	"github.com/gofiber/fiber/v2"
)

type ScheduleHandler struct {
	scheduleService schedule.Service
}

func NewScheduleHandler(scheduleService schedule.Service) *ScheduleHandler {
	return &ScheduleHandler{scheduleService: scheduleService}
}

func scheduleIDParam(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil || id == 0 {
		return 0, fiber.ErrBadRequest
	}
	return uint(id), nil
}

func (h *ScheduleHandler) Create(c *fiber.Ctx) error {
	claims, err := claimsFrom(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	var input struct {
		ReceiverID  uint   `json:"receiver_id"`
		Amount      string `json:"amount"`
		Currency    string `json:"currency"`
		Description string `json:"description"`
		Frequency   string `json:"frequency"`
		StartDate   string `json:"start_date"`
		EndDate     string `json:"end_date"`
		MaxRuns     *int   `json:"max_runs"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request format")
	}
	amount, err := parseAmount(input.Amount)
	if err != nil {
		return utils.BadRequest(c, "invalid amount")
	}

	startDate := time.Now().UTC()
	if input.StartDate != "" {
		if startDate, err = time.Parse(time.RFC3339, input.StartDate); err != nil {
			return utils.BadRequest(c, "start_date must be RFC3339")
		}
	}
	var endDate *time.Time
	if input.EndDate != "" {
		t, err := time.Parse(time.RFC3339, input.EndDate)
		if err != nil {
			return utils.BadRequest(c, "end_date must be RFC3339")
		}
		endDate = &t
	}

	created, err := h.scheduleService.Create(c.UserContext(), schedule.CreateParams{
		UserID:      claims.UserID,
		ReceiverID:  input.ReceiverID,
		Amount:      amount,
		Currency:    input.Currency,
		Description: input.Description,
		Frequency:   input.Frequency,
		StartDate:   startDate,
		EndDate:     endDate,
		MaxRuns:     input.MaxRuns,
	})
	if err != nil {
		return serviceError(c, err)
	}
	return utils.Respond(c, fiber.StatusCreated, fiber.Map{"scheduled_payment": created})
}

func (h *ScheduleHandler) Get(c *fiber.Ctx) error {
	claims, err := claimsFrom(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}
	id, err := scheduleIDParam(c)
	if err != nil {
		return utils.BadRequest(c, "invalid schedule id")
	}
	found, err := h.scheduleService.Get(c.UserContext(), id, claims.UserID)
	if err != nil {
		return serviceError(c, err)
	}
	return utils.Success(c, fiber.Map{"scheduled_payment": found})
}

func (h *ScheduleHandler) List(c *fiber.Ctx) error {
	claims, err := claimsFrom(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}
	p := utils.GetPagination(c, 1, 20)
	schedules, err := h.scheduleService.List(c.UserContext(), claims.UserID, p.Limit, p.Offset)
	if err != nil {
		return serviceError(c, err)
	}
	return utils.Success(c, fiber.Map{
		"scheduled_payments": schedules,
		"page":               p.Page,
		"limit":              p.Limit,
	})
}

// ListRuns returns the execution history of one schedule, failed
// attempts included.
func (h *ScheduleHandler) ListRuns(c *fiber.Ctx) error {
	claims, err := claimsFrom(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}
	id, err := scheduleIDParam(c)
	if err != nil {
		return utils.BadRequest(c, "invalid schedule id")
	}
	p := utils.GetPagination(c, 1, 20)
	runs, err := h.scheduleService.ListRuns(c.UserContext(), id, claims.UserID, p.Limit, p.Offset)
	if err != nil {
		return serviceError(c, err)
	}
	return utils.Success(c, fiber.Map{
		"runs":  runs,
		"page":  p.Page,
		"limit": p.Limit,
	})
}

func (h *ScheduleHandler) Pause(c *fiber.Ctx) error {
	return h.transition(c, h.scheduleService.Pause)
}

func (h *ScheduleHandler) Resume(c *fiber.Ctx) error {
	return h.transition(c, h.scheduleService.Resume)
}

func (h *ScheduleHandler) Cancel(c *fiber.Ctx) error {
	return h.transition(c, h.scheduleService.Cancel)
}

func (h *ScheduleHandler) transition(c *fiber.Ctx, fn func(ctx context.Context, id, userID uint) (*models.ScheduledPayment, error)) error {
	claims, err := claimsFrom(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}
	id, err := scheduleIDParam(c)
	if err != nil {
		return utils.BadRequest(c, "invalid schedule id")
	}
	updated, err := fn(c.UserContext(), id, claims.UserID)
	if err != nil {
		return serviceError(c, err)
	}
	return utils.Success(c, fiber.Map{"scheduled_payment": updated})
}
