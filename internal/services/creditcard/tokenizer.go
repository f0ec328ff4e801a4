package creditcard

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/client"
)

// Stripe's published test card numbers resolve to static test tokens
// without touching the API, so development and CI run offline.
var testCards = map[string]struct {
	token string
	brand string
}{
	"4242424242424242": {"tok_visa", "Visa"},
	"4000056655665556": {"tok_visa_debit", "Visa Debit"},
	"5555555555554444": {"tok_mastercard", "Mastercard"},
	"2223003122003222": {"tok_mastercard_2", "Mastercard"},
	"378282246310005":  {"tok_amex", "American Express"},
	"6011111111111117": {"tok_discover", "Discover"},
	"3056930009020004": {"tok_diners", "Diners Club"},
	"36227206271667":   {"tok_diners", "Diners Club"},
}

type stripeTokenizer struct {
	api *client.API
}

// NewStripeTokenizer creates a tokenizer backed by the Stripe API.
func NewStripeTokenizer(apiKey string) Tokenizer {
	api := &client.API{}
	api.Init(apiKey, nil)
	return &stripeTokenizer{api: api}
}

func (t *stripeTokenizer) Tokenize(p LinkCardParams) (*TokenizedCard, error) {
	// Client-tokenized cards: look the token up so we can store the
	// display fields Stripe extracted.
	if strings.HasPrefix(p.CardNumber, "tok_") {
		return t.lookupToken(p)
	}

	if card, ok := testCards[p.CardNumber]; ok {
		return &TokenizedCard{
			Token:       card.token,
			Brand:       card.brand,
			LastFour:    p.CardNumber[len(p.CardNumber)-4:],
			ExpiryMonth: p.ExpiryMonth,
			ExpiryYear:  p.ExpiryYear,
		}, nil
	}

	if !luhnValid(p.CardNumber) {
		return nil, fmt.Errorf("%w: failed Luhn check", ErrInvalidCard)
	}
	if err := checkExpiry(p.ExpiryMonth, p.ExpiryYear); err != nil {
		return nil, err
	}

	return nil, ErrRawCardUnsupported
}

func (t *stripeTokenizer) lookupToken(p LinkCardParams) (*TokenizedCard, error) {
	if t.isTestToken(p.CardNumber) {
		return &TokenizedCard{
			Token:       p.CardNumber,
			Brand:       t.testTokenBrand(p.CardNumber),
			LastFour:    "4242",
			ExpiryMonth: p.ExpiryMonth,
			ExpiryYear:  p.ExpiryYear,
		}, nil
	}

	tok, err := t.api.Tokens.Get(p.CardNumber, &stripe.TokenParams{})
	if err != nil {
		return nil, fmt.Errorf("%w: token lookup failed", ErrInvalidCard)
	}
	if tok.Card == nil {
		return nil, fmt.Errorf("%w: token is not a card token", ErrInvalidCard)
	}
	return &TokenizedCard{
		Token:       tok.ID,
		Brand:       string(tok.Card.Brand),
		LastFour:    tok.Card.Last4,
		ExpiryMonth: fmt.Sprintf("%02d", tok.Card.ExpMonth),
		ExpiryYear:  fmt.Sprintf("%d", tok.Card.ExpYear),
	}, nil
}

func (t *stripeTokenizer) isTestToken(token string) bool {
	for _, card := range testCards {
		if card.token == token {
			return true
		}
	}
	return false
}

func (t *stripeTokenizer) testTokenBrand(token string) string {
	for _, card := range testCards {
		if card.token == token {
			return card.brand
		}
	}
	return "Unknown"
}

// luhnValid runs the Luhn checksum over a card number.
func luhnValid(cardNumber string) bool {
	if cardNumber == "" {
		return false
	}
	var sum int
	shouldDouble := false

	for i := len(cardNumber) - 1; i >= 0; i-- {
		c := cardNumber[i]
		if c < '0' || c > '9' {
			return false
		}
		digit := int(c - '0')
		if shouldDouble {
			digit = digit * 2
			if digit > 9 {
				digit -= 9
			}
		}
		sum += digit
		shouldDouble = !shouldDouble
	}

	return sum%10 == 0
}

func checkExpiry(monthStr, yearStr string) error {
	month, err := strconv.Atoi(monthStr)
	if err != nil || month < 1 || month > 12 {
		return fmt.Errorf("%w: bad expiry month", ErrInvalidCard)
	}
	year, err := strconv.Atoi(yearStr)
	if err != nil {
		return fmt.Errorf("%w: bad expiry year", ErrInvalidCard)
	}

	currentYear, currentMonth, _ := time.Now().Date()
	if year < currentYear || (year == currentYear && month < int(currentMonth)) {
		return ErrCardExpired
	}
	return nil
}
