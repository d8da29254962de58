package repository

import (
	"context"

	"github.com/sjperalta/fintera-financing/internal/models"
	"gorm.io/gorm"
)

// PaymentRepository defines the interface for installment payment data
// access. Payments are append-only; there is no update or delete.
type PaymentRepository interface {
	Create(ctx context.Context, payment *models.InstallmentPayment) error
	FindByInstallment(ctx context.Context, installmentID uint) ([]models.InstallmentPayment, error)
}

type paymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository creates a new payment repository
func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) Create(ctx context.Context, payment *models.InstallmentPayment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *paymentRepository) FindByInstallment(ctx context.Context, installmentID uint) ([]models.InstallmentPayment, error) {
	var payments []models.InstallmentPayment
	err := r.db.WithContext(ctx).
		Where("installment_id = ?", installmentID).
		Order("payment_date ASC, id ASC").
		Find(&payments).Error
	return payments, err
}
