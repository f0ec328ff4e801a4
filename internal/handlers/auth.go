package handlers

import (
	"vaultpay/internal/services/auth"
	"vaultpay/internal/services/user"
	"vaultpay/internal/utils"

	"github.com/gofiber/fiber/v2"
)

type AuthHandler struct {
	authService auth.Service
	userService user.Service
}

func NewAuthHandler(authService auth.Service, userService user.Service) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		userService: userService,
	}
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var input struct {
		Name         string `json:"name"`
		Email        string `json:"email"`
		Phone        string `json:"phone"`
		Password     string `json:"password"`
		Role         string `json:"role"`
		Currency     string `json:"currency"`
		BusinessName string `json:"business_name"`
		BusinessType string `json:"business_type"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request format")
	}

	created, err := h.userService.Register(user.RegisterParams{
		Name:         input.Name,
		Email:        input.Email,
		Phone:        input.Phone,
		Password:     input.Password,
		Role:         input.Role,
		Currency:     input.Currency,
		BusinessName: input.BusinessName,
		BusinessType: input.BusinessType,
	})
	if err != nil {
		return serviceError(c, err)
	}

	return utils.Respond(c, fiber.StatusCreated, fiber.Map{
		"user": userView(created),
	})
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var input struct {
		Email    string `json:"email"`
		Phone    string `json:"phone"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request format")
	}
	if input.Email == "" && input.Phone == "" {
		return utils.BadRequest(c, "email or phone is required")
	}

	loggedIn, accessToken, refreshToken, err := h.authService.Login(auth.LoginParams{
		Email:    input.Email,
		Phone:    input.Phone,
		Password: input.Password,
		IP:       c.IP(),
	})
	if err != nil {
		return serviceError(c, err)
	}

	return utils.Success(c, fiber.Map{
		"user":          userView(loggedIn),
		"access_token":  accessToken,
		"refresh_token": refreshToken,
	})
}

func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var input struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.BodyParser(&input); err != nil || input.RefreshToken == "" {
		return utils.BadRequest(c, "refresh_token is required")
	}

	accessToken, refreshToken, err := h.authService.RefreshTokens(input.RefreshToken)
	if err != nil {
		return serviceError(c, err)
	}

	return utils.Success(c, fiber.Map{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
	})
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	claims, err := claimsFrom(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}
	if err := h.authService.Logout(claims.UserID); err != nil {
		return serviceError(c, err)
	}
	return utils.Success(c, fiber.Map{"message": "logged out"})
}

func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	claims, err := claimsFrom(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	var input struct {
		OldPassword string `json:"old_password"`
		NewPassword string `json:"new_password"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request format")
	}

	if err := h.authService.ChangePassword(claims.UserID, input.OldPassword, input.NewPassword); err != nil {
		return serviceError(c, err)
	}
	return utils.Success(c, fiber.Map{"message": "password changed"})
}
