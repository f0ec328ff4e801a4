package repositories

import (
	"context"
	"errors"
	"fmt"

	"vaultpay/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrQRCodeNotFound = errors.New("qr code not found")

// QRCodeRepository stores payment QR codes.
type QRCodeRepository interface {
	Create(qr *models.QRCode) error
	GetByCode(code string) (*models.QRCode, error)

	// GetByCodeForUpdate locks the row so usage counting under
	// concurrent scans stays exact.
	GetByCodeForUpdate(code string) (*models.QRCode, error)
	Update(qr *models.QRCode) error
	ListByUser(ctx context.Context, userID uint) ([]models.QRCode, error)
	GetUserReceiveCode(userID uint) (*models.QRCode, error)

	WithTx(tx *gorm.DB) QRCodeRepository
}

type qrCodeRepository struct {
	db *gorm.DB
}

func NewQRCodeRepository(db *gorm.DB) QRCodeRepository {
	return &qrCodeRepository{db: db}
}

func (r *qrCodeRepository) WithTx(tx *gorm.DB) QRCodeRepository {
	return &qrCodeRepository{db: tx}
}

func (r *qrCodeRepository) Create(qr *models.QRCode) error {
	if err := r.db.Create(qr).Error; err != nil {
		return fmt.Errorf("failed to create qr code: %w", err)
	}
	return nil
}

func (r *qrCodeRepository) GetByCode(code string) (*models.QRCode, error) {
	var qr models.QRCode
	if err := r.db.Where("code = ?", code).First(&qr).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrQRCodeNotFound
		}
		return nil, fmt.Errorf("failed to get qr code: %w", err)
	}
	return &qr, nil
}

func (r *qrCodeRepository) GetByCodeForUpdate(code string) (*models.QRCode, error) {
	q := r.db
	if r.db.Dialector.Name() != "sqlite" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var qr models.QRCode
	if err := q.Where("code = ?", code).First(&qr).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrQRCodeNotFound
		}
		return nil, fmt.Errorf("failed to lock qr code: %w", err)
	}
	return &qr, nil
}

func (r *qrCodeRepository) Update(qr *models.QRCode) error {
	if err := r.db.Save(qr).Error; err != nil {
		return fmt.Errorf("failed to update qr code: %w", err)
	}
	return nil
}

func (r *qrCodeRepository) ListByUser(ctx context.Context, userID uint) ([]models.QRCode, error) {
	var codes []models.QRCode
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&codes).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list qr codes: %w", err)
	}
	return codes, nil
}

func (r *qrCodeRepository) GetUserReceiveCode(userID uint) (*models.QRCode, error) {
	var qr models.QRCode
	err := r.db.Where("user_id = ? AND type = ? AND status = ?",
		userID, models.QRTypeReceive, models.QRStatusActive).First(&qr).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrQRCodeNotFound
		}
		return nil, fmt.Errorf("failed to get receive qr code: %w", err)
	}
	return &qr, nil
}
