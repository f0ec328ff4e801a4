package handlers

import (
	"vaultpay/internal/services/user"
	"vaultpay/internal/utils"

	"github.com/gofiber/fiber/v2"
)

type UserHandler struct {
	userService user.Service
}

func NewUserHandler(userService user.Service) *UserHandler {
	return &UserHandler{userService: userService}
}

func (h *UserHandler) Me(c *fiber.Ctx) error {
	claims, err := claimsFrom(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}
	me, err := h.userService.Get(claims.UserID)
	if err != nil {
		return serviceError(c, err)
	}
	return utils.Success(c, fiber.Map{"user": userView(me)})
}

func (h *UserHandler) UpdateProfile(c *fiber.Ctx) error {
	claims, err := claimsFrom(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	var input struct {
		Name         string `json:"name"`
		Currency     string `json:"currency"`
		BusinessName string `json:"business_name"`
		BusinessType string `json:"business_type"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request format")
	}

	updated, err := h.userService.UpdateProfile(claims.UserID, user.UpdateProfileParams{
		Name:         input.Name,
		Currency:     input.Currency,
		BusinessName: input.BusinessName,
		BusinessType: input.BusinessType,
	})
	if err != nil {
		return serviceError(c, err)
	}
	return utils.Success(c, fiber.Map{"user": userView(updated)})
}
