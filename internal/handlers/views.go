package handlers

import (
	"time"

	"vaultpay/internal/models"

	"github.com/gofiber/fiber/v2"
)

// userView strips credentials and login bookkeeping from a user row.
func userView(u *models.User) fiber.Map {
	view := fiber.Map{
		"id":               u.ID,
		"name":             u.Name,
		"email":            u.Email,
		"phone":            u.Phone,
		"role":             u.Role,
		"status":           u.Status,
		"default_currency": u.DefaultCurrency,
		"created_at":       u.CreatedAt,
	}
	if u.IsMerchant() {
		view["business_name"] = u.BusinessName
		view["business_type"] = u.BusinessType
	}
	return view
}

// transactionView renders a transaction for the given viewer. The row
// is stored once, anchored on the sender; the receiving side of a
// transfer sees it relabeled as TRANSFER_IN.
func transactionView(t *models.Transaction, viewerID uint) fiber.Map {
	txType := t.Type
	if txType == models.TransactionTypeTransferOut &&
		t.ReceiverID != nil && *t.ReceiverID == viewerID &&
		(t.SenderID == nil || *t.SenderID != viewerID) {
		txType = models.TransactionTypeTransferIn
	}
	view := fiber.Map{
		"id":          t.ID,
		"reference":   t.ReferenceID,
		"type":        txType,
		"status":      t.Status,
		"amount":      t.Amount,
		"fee":         t.Fee,
		"net_amount":  t.NetAmount,
		"currency":    t.Currency,
		"description": t.Description,
		"created_at":  t.CreatedAt,
	}
	if t.SenderID != nil {
		view["sender_id"] = *t.SenderID
	}
	if t.ReceiverID != nil {
		view["receiver_id"] = *t.ReceiverID
	}
	if t.OriginalTransactionID != nil {
		view["original_transaction_id"] = *t.OriginalTransactionID
	}
	if t.OrderID != nil {
		view["order_id"] = *t.OrderID
	}
	if t.FailureReason != "" {
		view["failure_reason"] = t.FailureReason
	}
	if t.ProcessedAt != nil {
		view["processed_at"] = t.ProcessedAt
	}
	return view
}

func transactionViews(txns []models.Transaction, viewerID uint) []fiber.Map {
	views := make([]fiber.Map, 0, len(txns))
	for i := range txns {
		views = append(views, transactionView(&txns[i], viewerID))
	}
	return views
}

// cardView hides everything but the display fields; the token never
// leaves the server.
func cardView(card *models.CreditCard) fiber.Map {
	return fiber.Map{
		"id":           card.ID,
		"brand":        card.Brand,
		"last_four":    card.LastFour,
		"expiry_month": card.ExpiryMonth,
		"expiry_year":  card.ExpiryYear,
		"is_default":   card.IsDefault,
		"status":       card.Status,
	}
}

// qrView omits the allowed-payer list; owners see it via their own
// code listing, payers have no business enumerating it.
func qrView(code *models.QRCode) fiber.Map {
	view := fiber.Map{
		"code":        code.Code,
		"type":        code.Type,
		"currency":    code.Currency,
		"status":      code.Status,
		"max_uses":    code.MaxUses,
		"usage_count": code.UsageCount,
	}
	if code.Amount != nil {
		view["amount"] = *code.Amount
	}
	if code.ExpiresAt != nil {
		view["expires_at"] = code.ExpiresAt.Format(time.RFC3339)
	}
	return view
}
