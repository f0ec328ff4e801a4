package models

import "time"

// Card statuses
const (
	CardStatusActive  = "active"
	CardStatusRemoved = "removed"
)

// CreditCard stores a tokenized card used as a deposit source. Only
// the processor token and display fields are persisted; the PAN never
// reaches storage.
type CreditCard struct {
	ID          uint   `gorm:"primarykey"`
	UserID      uint   `gorm:"not null;index"`
	Token       string `gorm:"not null;uniqueIndex"`
	Brand       string `gorm:"not null"`
	LastFour    string `gorm:"size:4;not null"`
	ExpiryMonth string `gorm:"size:2;not null"`
	ExpiryYear  string `gorm:"size:4;not null"`
	IsDefault   bool   `gorm:"default:false"`
	Status      string `gorm:"size:16;default:'active'"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CardToken is the tokenization result returned by the processor.
type CardToken struct {
	Token  string `json:"token"`
	Brand  string `json:"brand"`
	Expiry string `json:"expiry"`
}

// CreateCardInput carries raw card details through tokenization only.
type CreateCardInput struct {
	CardNumber  string `json:"card_number"`
	ExpiryMonth string `json:"expiry_month"`
	ExpiryYear  string `json:"expiry_year"`
	CVV         string `json:"cvv"`
}
