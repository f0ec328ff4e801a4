// Package reference mints the unique reference IDs stamped on every
// transaction and order.
package reference

import (
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"vaultpay/internal/models"
)

// Reference categories, used as ID prefixes.
const (
	CategoryTransfer   = "TFR"
	CategoryPayment    = "PAY"
	CategoryRefund     = "RFN"
	CategoryWithdrawal = "WTH"
	CategoryPayout     = "PYT"
	CategoryDeposit    = "DEP"
	CategoryOrder      = "ORD"
	CategoryConversion = "CNV"
	CategoryRequest    = "REQ"
)

// Generator produces IDs of the form PREFIX-ULID. ULIDs embed a
// millisecond timestamp, so IDs sort by creation time; the monotonic
// entropy keeps same-millisecond IDs ordered and collision-free.
type Generator struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

func NewGenerator() *Generator {
	return &Generator{
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

// Generate returns a new reference ID for the given category. Safe for
// concurrent use.
func (g *Generator) Generate(category string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
	return fmt.Sprintf("%s-%s", category, id)
}

// ForTransactionType maps a transaction type to its reference category.
func ForTransactionType(txType string) string {
	switch txType {
	case models.TransactionTypeTransferOut, models.TransactionTypeTransferIn:
		return CategoryTransfer
	case models.TransactionTypePayment:
		return CategoryPayment
	case models.TransactionTypeRefund:
		return CategoryRefund
	case models.TransactionTypeWithdrawal:
		return CategoryWithdrawal
	case models.TransactionTypePayout:
		return CategoryPayout
	case models.TransactionTypeDeposit:
		return CategoryDeposit
	case models.TransactionTypeConversion:
		return CategoryConversion
	default:
		return "TXN"
	}
}
