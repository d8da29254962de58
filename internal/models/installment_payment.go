package models

import (
	"time"
)

// InstallmentPayment is an immutable record of money received against one
// installment. Rows are only ever inserted.
type InstallmentPayment struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	InstallmentID   uint      `gorm:"not null;index" json:"installment_id"`
	SaleID          uint      `gorm:"not null;index" json:"sale_id"`
	Amount          float64   `gorm:"type:decimal(15,2);not null" json:"amount"`
	PaymentDate     time.Time `gorm:"type:date;not null;index" json:"payment_date"`
	Method          string    `gorm:"size:20;not null" json:"method"`
	ProofReference  *string   `gorm:"size:255" json:"proof_reference"` // opaque handle into document storage
	Reference       string    `gorm:"size:36;not null;uniqueIndex" json:"reference"`
	CreatedByUserID uint      `gorm:"not null;index" json:"created_by_user_id"`
	CreatedAt       time.Time `gorm:"index" json:"created_at"`
}

// TableName specifies the table name for InstallmentPayment
func (InstallmentPayment) TableName() string {
	return "installment_payments"
}

// Payment method constants
const (
	PaymentMethodCash     = "cash"
	PaymentMethodTransfer = "transfer"
	PaymentMethodDeposit  = "deposit"
	PaymentMethodCard     = "card"
	PaymentMethodCheck    = "check"
)

// ValidPaymentMethod reports whether method is an accepted payment method
func ValidPaymentMethod(method string) bool {
	switch method {
	case PaymentMethodCash, PaymentMethodTransfer, PaymentMethodDeposit, PaymentMethodCard, PaymentMethodCheck:
		return true
	}
	return false
}
