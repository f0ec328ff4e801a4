// Package middleware provides the request processing chain for the
// fiber app: JWT authentication and role and permission checks.
package middleware

import (
	"strings"

	"vaultpay/internal/models"
	"vaultpay/internal/repositories"
	"vaultpay/internal/utils"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// AuthMiddleware validates bearer tokens and loads the caller's claims
// into the request context. Beyond the signature it checks the token
// version against the user row, so logout and password changes cut off
// tokens that are otherwise still within their lifetime.
type AuthMiddleware struct {
	users  repositories.UserRepository
	logger *zap.SugaredLogger
}

func New(users repositories.UserRepository, logger *zap.SugaredLogger) *AuthMiddleware {
	if users == nil {
		panic("middleware: user repository is required")
	}
	if logger == nil {
		panic("middleware: logger is required")
	}
	return &AuthMiddleware{users: users, logger: logger}
}

// Handler authenticates the request and stores claims under
// c.Locals("claims").
func (m *AuthMiddleware) Handler(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return utils.Unauthorized(c, "missing authorization header")
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return utils.Unauthorized(c, "invalid authorization format")
	}
	tokenString := strings.TrimPrefix(authHeader, "Bearer ")

	_, claims, err := utils.ParseToken(tokenString)
	if err != nil {
		return utils.Unauthorized(c, "invalid token")
	}

	user, err := m.users.GetByID(claims.UserID)
	if err != nil {
		m.logger.Warnw("token for unknown user", "user_id", claims.UserID)
		return utils.Unauthorized(c, "invalid token")
	}
	if user.TokenVersion != claims.TokenVersion {
		return utils.Unauthorized(c, "session expired")
	}
	if user.Status != models.UserStatusActive {
		return utils.Forbidden(c, "account is disabled")
	}

	c.Locals("claims", claims)
	c.Locals("userID", claims.UserID)
	return c.Next()
}

// RequireRole returns a middleware admitting only the given roles.
// Admins pass every role check.
func RequireRole(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, ok := c.Locals("claims").(*models.UserClaims)
		if !ok || claims == nil {
			return utils.Unauthorized(c, "unauthorized")
		}
		if claims.Role == models.RoleAdmin {
			return c.Next()
		}
		for _, role := range roles {
			if claims.Role == role {
				return c.Next()
			}
		}
		return utils.Forbidden(c, "insufficient permissions")
	}
}

// HasPermission returns a middleware that checks for a specific
// permission. Admins bypass the check.
func HasPermission(permission string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, ok := c.Locals("claims").(*models.UserClaims)
		if !ok || claims == nil {
			return utils.Unauthorized(c, "unauthorized")
		}
		if claims.Role == models.RoleAdmin {
			return c.Next()
		}
		if claims.HasPermission(permission) {
			return c.Next()
		}
		return utils.Forbidden(c, "insufficient permissions")
	}
}
