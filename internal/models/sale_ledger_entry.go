package models

import (
	"time"
)

// SaleLedgerEntry represents a financial movement on a sale's account
type SaleLedgerEntry struct {
	ID            uint      `json:"id" gorm:"primaryKey"`
	SaleID        uint      `json:"sale_id" gorm:"not null;index"`
	InstallmentID *uint     `json:"installment_id,omitempty" gorm:"index"`
	PaymentID     *uint     `json:"payment_id,omitempty" gorm:"index"`
	Amount        float64   `json:"amount" gorm:"type:decimal(15,2);not null"` // Negative for credits (payments), positive for debits (charges)
	Description   string    `json:"description" gorm:"not null"`
	EntryType     string    `json:"entry_type" gorm:"not null;index"` // initial, payment, interest, adjustment
	EntryDate     time.Time `json:"entry_date" gorm:"not null;default:current_timestamp"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Entry type constants
const (
	EntryTypeInitial    = "initial"    // Financed principal plus scheduled interest (debit)
	EntryTypePayment    = "payment"    // Installment payment received (credit)
	EntryTypeInterest   = "interest"   // Moratory interest of one installment (debit)
	EntryTypeAdjustment = "adjustment" // Manual adjustment or reversal
)

// TableName specifies the table name for GORM
func (SaleLedgerEntry) TableName() string {
	return "sale_ledger_entries"
}
