package validation

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Validator collects field errors from a request before it reaches a
// service. Services still enforce their own invariants; this exists to
// reject malformed input with a field-by-field report.
type Validator struct {
	Errors map[string]string
}

// New creates a new validator
func New() *Validator {
	return &Validator{Errors: make(map[string]string)}
}

// Valid checks if there are any validation errors
func (v *Validator) Valid() bool {
	return len(v.Errors) == 0
}

// AddError adds an error to the validator
func (v *Validator) AddError(field, message string) {
	v.Errors[field] = message
}

// Check adds an error if the condition is false
func (v *Validator) Check(ok bool, field, message string) {
	if !ok {
		v.AddError(field, message)
	}
}

// Email validates email format
func (v *Validator) Email(field, email string) {
	v.Check(emailRegex.MatchString(email), field, "must be a valid email address")
}

// Phone validates phone number format
func (v *Validator) Phone(field, phone string) {
	v.Check(phoneRegex.MatchString(phone), field, "must be a valid phone number")
}

// Required checks that a string is not blank or a number not zero.
func (v *Validator) Required(field string, value interface{}) {
	if value == nil {
		v.AddError(field, "must not be nil")
		return
	}

	switch val := value.(type) {
	case string:
		v.Check(strings.TrimSpace(val) != "", field, "must not be empty")
	case uint:
		v.Check(val != 0, field, "must not be zero")
	case int:
		v.Check(val != 0, field, "must not be zero")
	case decimal.Decimal:
		v.Check(!val.IsZero(), field, "must not be zero")
	}
}

// MinLength checks if a string has at least n characters
func (v *Validator) MinLength(field string, value string, n int) {
	v.Check(len(value) >= n, field, fmt.Sprintf("must be at least %d characters long", n))
}

// MaxLength checks if a string has at most n characters
func (v *Validator) MaxLength(field string, value string, n int) {
	v.Check(len(value) <= n, field, fmt.Sprintf("must not be more than %d characters long", n))
}

// Amount checks that a monetary amount is positive with at most two
// decimal places.
func (v *Validator) Amount(field string, d decimal.Decimal) {
	v.Check(d.IsPositive(), field, "must be a positive amount")
	v.Check(d.Equal(d.Round(2)), field, "must have at most two decimal places")
}

// Currency checks an ISO 4217 style three letter code.
func (v *Validator) Currency(field, code string) {
	v.Check(currencyRegex.MatchString(code), field, "must be a three letter currency code")
}

// Future checks if a time is in the future
func (v *Validator) Future(field string, t time.Time) {
	v.Check(t.After(time.Now()), field, "must be in the future")
}

// Password validates password strength
func (v *Validator) Password(field, password string) {
	if err := ValidatePassword(password); err != nil {
		v.AddError(field, err.Error())
	}
}
