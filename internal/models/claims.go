package models

import "github.com/golang-jwt/jwt/v5"

// Application permissions
const (
	PermissionAdminRead  = "admin:read"
	PermissionAdminWrite = "admin:write"

	PermissionWalletRead       = "wallet:read"
	PermissionWalletWrite      = "wallet:write"
	PermissionTransactionRead  = "transaction:read"
	PermissionTransactionWrite = "transaction:write"
	PermissionPaymentWrite     = "payment:write"
	PermissionOrderWrite       = "order:write"
	PermissionOrderCapture     = "order:capture"
	PermissionRefundWrite      = "refund:write"
	PermissionScheduleWrite    = "schedule:write"
	PermissionCardWrite        = "card:write"
	PermissionUserRead         = "user:read"
	PermissionUserWrite        = "user:write"
	PermissionChangePassword   = "user:change-password"
)

type UserClaims struct {
	jwt.RegisteredClaims
	UserID       uint     `json:"user_id"`
	Email        string   `json:"email"`
	Role         string   `json:"role"`
	Permissions  []string `json:"permissions"`
	TokenVersion int      `json:"token_version"`
}

// HasPermission checks if the claims include a specific permission
func (c *UserClaims) HasPermission(permission string) bool {
	for _, p := range c.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}

// GetDefaultPermissions returns default permissions based on role
func GetDefaultPermissions(role string) []string {
	switch role {
	case "admin":
		return []string{
			PermissionWalletRead,
			PermissionWalletWrite,
			PermissionTransactionRead,
			PermissionTransactionWrite,
			PermissionPaymentWrite,
			PermissionRefundWrite,
			PermissionScheduleWrite,
			PermissionCardWrite,
			PermissionUserRead,
			PermissionUserWrite,
			PermissionChangePassword,
			PermissionAdminRead,
			PermissionAdminWrite,
		}
	case "merchant":
		return []string{
			PermissionWalletRead,
			PermissionWalletWrite,
			PermissionTransactionRead,
			PermissionTransactionWrite,
			PermissionOrderWrite,
			PermissionOrderCapture,
			PermissionRefundWrite,
			PermissionCardWrite,
			PermissionChangePassword,
		}
	case "user":
		return []string{
			PermissionWalletRead,
			PermissionWalletWrite,
			PermissionTransactionRead,
			PermissionTransactionWrite,
			PermissionPaymentWrite,
			PermissionOrderWrite,
			PermissionRefundWrite,
			PermissionScheduleWrite,
			PermissionCardWrite,
			PermissionUserRead,
			PermissionChangePassword,
		}
	default:
		return []string{}
	}
}
