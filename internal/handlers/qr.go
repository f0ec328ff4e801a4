package handlers

import (
	"time"

	"vaultpay/internal/models"
	"vaultpay/internal/services/creditcard"
	"vaultpay/internal/services/ledger"
	"vaultpay/internal/services/payment"
	"vaultpay/internal/services/qrcode"
	"vaultpay/internal/utils"

	"github.com/gofiber/fiber/v2"
)

// QRHandler manages payment codes and scan-to-pay.
type QRHandler struct {
	qrService      qrcode.Service
	paymentService payment.Service
	cardService    creditcard.Service
}

func NewQRHandler(qrService qrcode.Service, paymentService payment.Service, cardService creditcard.Service) *QRHandler {
	return &QRHandler{
		qrService:      qrService,
		paymentService: paymentService,
		cardService:    cardService,
	}
}

// ReceiveCode returns the caller's static receive code, creating it on
// first use.
func (h *QRHandler) ReceiveCode(c *fiber.Ctx) error {
	claims, err := claimsFrom(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}
	code, err := h.qrService.GetReceiveCode(c.UserContext(), claims.UserID)
	if err != nil {
		return serviceError(c, err)
	}
	return utils.Success(c, fiber.Map{"qr_code": qrView(code)})
}

// CreateAmountCode mints a code bound to a fixed amount.
func (h *QRHandler) CreateAmountCode(c *fiber.Ctx) error {
	claims, err := claimsFrom(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	var input struct {
		Amount        string `json:"amount"`
		Currency      string `json:"currency"`
		ExpiresAt     string `json:"expires_at"`
		MaxUses       int    `json:"max_uses"`
		AllowedPayers []uint `json:"allowed_payers"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request format")
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

	code, err := h.qrService.CreateAmountCode(c.UserContext(), qrcode.AmountCodeParams{
		UserID:        claims.UserID,
		Amount:        amount,
		Currency:      input.Currency,
		ExpiresAt:     expiresAt,
		MaxUses:       input.MaxUses,
		AllowedPayers: input.AllowedPayers,
	})
	if err != nil {
		return serviceError(c, err)
	}
	return utils.Respond(c, fiber.StatusCreated, fiber.Map{"qr_code": qrView(code)})
}

// Resolve validates a scanned code for display before payment.
func (h *QRHandler) Resolve(c *fiber.Ctx) error {
	code, err := h.qrService.Resolve(c.UserContext(), c.Params("code"))
	if err != nil {
		return serviceError(c, err)
	}
	return utils.Success(c, fiber.Map{"qr_code": qrView(code)})
}

// Pay executes a scanned code, from the caller's wallet or one of
// their tokenized cards.
func (h *QRHandler) Pay(c *fiber.Ctx) error {
	claims, err := claimsFrom(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	var input struct {
		Code        string `json:"code"`
		Amount      string `json:"amount"`
		CardID      uint   `json:"card_id"`
		Description string `json:"description"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request format")
	}
	if input.Code == "" {
		return utils.BadRequest(c, "code is required")
	}
	amount, err := parseAmount(input.Amount)
	if err != nil {
		return utils.BadRequest(c, "invalid amount")
	}

	source := ledger.PaymentSource{Kind: ledger.SourceWallet}
	if input.CardID != 0 {
		token, err := h.cardService.TokenFor(c.UserContext(), claims.UserID, input.CardID)
		if err != nil {
			return serviceError(c, err)
		}
		source = ledger.PaymentSource{Kind: ledger.SourceCard, CardToken: token}
	}

	txn, err := h.paymentService.PayByCode(c.UserContext(), payment.CodePaymentParams{
		PayerID:        claims.UserID,
		Code:           input.Code,
		Amount:         amount,
		Source:         source,
		Description:    input.Description,
		IdempotencyKey: idempotencyKey(c),
	})
	if err != nil {
		return serviceError(c, err)
	}
	return utils.Respond(c, fiber.StatusCreated, fiber.Map{
		"transaction": transactionView(txn, claims.UserID),
	})
}

// Revoke deactivates one of the caller's codes.
func (h *QRHandler) Revoke(c *fiber.Ctx) error {
	claims, err := claimsFrom(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}
	code, err := h.qrService.Revoke(c.UserContext(), c.Params("code"), claims.UserID)
	if err != nil {
		return serviceError(c, err)
	}
	return utils.Success(c, fiber.Map{"qr_code": qrView(code)})
}

// List returns the caller's codes, allowed-payer lists included.
func (h *QRHandler) List(c *fiber.Ctx) error {
	claims, err := claimsFrom(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}
	codes, err := h.qrService.ListForUser(c.UserContext(), claims.UserID)
	if err != nil {
		return serviceError(c, err)
	}
	views := make([]fiber.Map, 0, len(codes))
	for i := range codes {
		view := qrView(&codes[i])
		view["allowed_payers"] = codes[i].AllowedPayers
		views = append(views, view)
	}
	return utils.Success(c, fiber.Map{"qr_codes": views})
}

// DirectPay pays a known payee without a code.
func (h *QRHandler) DirectPay(c *fiber.Ctx) error {
	claims, err := claimsFrom(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	var input struct {
		PayeeID     uint   `json:"payee_id"`
		Amount      string `json:"amount"`
		Currency    string `json:"currency"`
		CardID      uint   `json:"card_id"`
		Description string `json:"description"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request format")
	}
	if input.PayeeID == 0 {
		return utils.BadRequest(c, "payee_id is required")
	}
	amount, err := parseAmount(input.Amount)
	if err != nil {
		return utils.BadRequest(c, "invalid amount")
	}

	source := ledger.PaymentSource{Kind: ledger.SourceWallet}
	if input.CardID != 0 {
		token, err := h.cardService.TokenFor(c.UserContext(), claims.UserID, input.CardID)
		if err != nil {
			return serviceError(c, err)
		}
		source = ledger.PaymentSource{Kind: ledger.SourceCard, CardToken: token}
	}

	txn, err := h.paymentService.Pay(c.UserContext(), ledger.PaymentParams{
		PayerID:        claims.UserID,
		PayeeID:        input.PayeeID,
		Amount:         amount,
		Currency:       input.Currency,
		Description:    input.Description,
		Source:         source,
		IdempotencyKey: idempotencyKey(c),
		Metadata:       models.JSON{"channel": "direct"},
	})
	if err != nil {
		return serviceError(c, err)
	}
	return utils.Respond(c, fiber.StatusCreated, fiber.Map{
		"transaction": transactionView(txn, claims.UserID),
	})
}
