package handlers

import (
	"errors"

	apperrors "vaultpay/internal/errors"
	"vaultpay/internal/models"
	"vaultpay/internal/services/auth"
	"vaultpay/internal/services/creditcard"
	"vaultpay/internal/services/fee"
	"vaultpay/internal/services/ledger"
	"vaultpay/internal/services/moneyrequest"
	"vaultpay/internal/services/order"
	"vaultpay/internal/services/payment"
	"vaultpay/internal/services/qrcode"
	"vaultpay/internal/services/refund"
	"vaultpay/internal/services/schedule"
	"vaultpay/internal/services/user"
	"vaultpay/internal/services/wallet"
	"vaultpay/internal/utils"

	"github.com/gofiber/fiber/v2"
)

// domainStatus maps stable error codes onto HTTP statuses. Codes not
// listed default to 400.
var domainStatus = map[string]int{
	"WALLET_NOT_FOUND":        fiber.StatusNotFound,
	"TRANSACTION_NOT_FOUND":   fiber.StatusNotFound,
	"INVALID_QR":              fiber.StatusNotFound,
	"QR_PAYER_NOT_ALLOWED":    fiber.StatusForbidden,
	"NOT_REFUNDABLE":          fiber.StatusConflict,
	"ALREADY_REFUNDED":        fiber.StatusConflict,
	"CONCURRENT_MODIFICATION": fiber.StatusConflict,
	"DUPLICATE_REQUEST":       fiber.StatusConflict,
}

var notFoundErrs = []error{
	ledger.ErrWalletNotFound,
	ledger.ErrTransactionNotFound,
	wallet.ErrWalletNotFound,
	order.ErrOrderNotFound,
	schedule.ErrScheduleNotFound,
	moneyrequest.ErrRequestNotFound,
	user.ErrUserNotFound,
	creditcard.ErrCardNotFound,
}

var forbiddenErrs = []error{
	order.ErrNotMerchant,
	schedule.ErrNotOwner,
	qrcode.ErrNotOwner,
	refund.ErrNotParticipant,
	moneyrequest.ErrNotPayer,
	moneyrequest.ErrNotRequester,
	auth.ErrAccountDisabled,
	auth.ErrAccountLocked,
}

var unauthorizedErrs = []error{
	auth.ErrInvalidCredentials,
	auth.ErrInvalidToken,
	auth.ErrTokenRevoked,
}

var conflictErrs = []error{
	ledger.ErrConcurrentModification,
	ledger.ErrNotSettleable,
	ledger.ErrNotRefundable,
	ledger.ErrAlreadyRefunded,
	order.ErrNotCapturable,
	order.ErrNotVoidable,
	order.ErrNotRefundable,
	order.ErrCaptureExceedsAuth,
	schedule.ErrNotActive,
	schedule.ErrNotPaused,
	schedule.ErrAlreadyFinished,
	moneyrequest.ErrNotPending,
	moneyrequest.ErrRequestExpired,
	creditcard.ErrCardAlreadyLinked,
	user.ErrEmailTaken,
	user.ErrPhoneTaken,
}

var badRequestErrs = []error{
	ledger.ErrInvalidAmount,
	ledger.ErrAmountTooLarge,
	ledger.ErrInsufficientFunds,
	ledger.ErrWalletInactive,
	ledger.ErrCurrencyMismatch,
	ledger.ErrSelfTransfer,
	ledger.ErrUnsupportedSource,
	order.ErrInvalidAmount,
	schedule.ErrInvalidAmount,
	schedule.ErrInvalidFrequency,
	schedule.ErrInvalidStart,
	schedule.ErrSelfPayment,
	payment.ErrAmountRequired,
	payment.ErrAmountMismatch,
	moneyrequest.ErrInvalidAmount,
	moneyrequest.ErrSelfRequest,
	qrcode.ErrAmountRequired,
	qrcode.ErrInvalidExpiry,
	user.ErrInvalidInput,
	user.ErrInvalidRole,
	user.ErrBusinessNameRequired,
	auth.ErrWeakPassword,
	creditcard.ErrInvalidCard,
	creditcard.ErrCardExpired,
	creditcard.ErrCardNotActive,
	creditcard.ErrRawCardUnsupported,
	wallet.ErrInvalidCurrency,
	wallet.ErrAlreadyLocked,
	wallet.ErrNotLocked,
	fee.ErrRateUnavailable,
}

// serviceError translates a service failure into an HTTP response.
// Unrecognized errors become an opaque 500 so internals never leak.
func serviceError(c *fiber.Ctx, err error) error {
	var domainErr *apperrors.DomainError
	if errors.As(err, &domainErr) {
		status, ok := domainStatus[domainErr.Code]
		if !ok {
			status = fiber.StatusBadRequest
		}
		return utils.Respond(c, status, fiber.Map{
			"error": domainErr.Message,
			"code":  domainErr.Code,
		})
	}

	switch {
	case matches(err, notFoundErrs):
		return utils.NotFound(c, err.Error())
	case matches(err, unauthorizedErrs):
		return utils.Unauthorized(c, err.Error())
	case matches(err, forbiddenErrs):
		return utils.Forbidden(c, err.Error())
	case matches(err, conflictErrs):
		return utils.Conflict(c, err.Error())
	case matches(err, badRequestErrs):
		return utils.BadRequest(c, err.Error())
	}
	return utils.InternalError(c, "internal server error")
}

func matches(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// claimsFrom extracts the authenticated caller's claims.
func claimsFrom(c *fiber.Ctx) (*models.UserClaims, error) {
	claims, ok := c.Locals("claims").(*models.UserClaims)
	if !ok || claims == nil {
		return nil, fiber.ErrUnauthorized
	}
	return claims, nil
}
