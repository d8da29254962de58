package models

import (
	"time"

	"github.com/sjperalta/fintera-financing/pkg/money"
)

// Sale represents a financed sale of a lot or a cemetery unit
type Sale struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	Kind              string     `gorm:"size:20;not null;index" json:"kind"` // lot, cemetery_unit
	PropertyID        uint       `gorm:"not null;index" json:"property_id"`
	CustomerID        uint       `gorm:"not null;index" json:"customer_id"`
	CreatorID         *uint      `gorm:"index" json:"creator_id"`
	Status            string     `gorm:"default:draft;not null;index" json:"status"`
	Price             float64    `gorm:"type:decimal(15,2);not null" json:"price"`
	DownPayment       float64    `gorm:"type:decimal(15,2);default:0" json:"down_payment"`
	FinancedPrincipal *float64   `gorm:"type:decimal(15,2)" json:"financed_principal"`
	Currency          string     `gorm:"default:HNL;not null" json:"currency"`
	FinancingModel    string     `gorm:"size:20" json:"financing_model"` // FRENCH, GERMAN, JAPANESE, CUSTOM
	Frequency         string     `gorm:"size:20" json:"frequency"`
	AnnualRate        float64    `gorm:"type:decimal(7,4);default:0" json:"annual_rate"`
	PaymentTerm       int        `gorm:"default:0" json:"payment_term"`
	MoratoryRate      *float64   `gorm:"type:decimal(7,4)" json:"moratory_rate"`
	ApprovedAt        *time.Time `gorm:"index" json:"approved_at"`
	ApprovedByUserID  *uint      `json:"approved_by_user_id"`
	ClosedAt          *time.Time `json:"closed_at"`
	RejectionReason   *string    `gorm:"type:text" json:"rejection_reason"`
	Note              *string    `gorm:"type:text" json:"note"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`

	// Associations
	Installments  []Installment     `gorm:"foreignKey:SaleID" json:"installments,omitempty"`
	LedgerEntries []SaleLedgerEntry `gorm:"foreignKey:SaleID" json:"ledger_entries,omitempty"`
}

// TableName specifies the table name for Sale
func (Sale) TableName() string {
	return "sales"
}

// Sale kind constants
const (
	SaleKindLot          = "lot"
	SaleKindCemeteryUnit = "cemetery_unit"
)

// Sale status constants
const (
	SaleStatusDraft     = "draft"
	SaleStatusApproved  = "approved"
	SaleStatusRejected  = "rejected"
	SaleStatusCancelled = "cancelled"
	SaleStatusClosed    = "closed"
)

// FinancingModelCustom marks a sale whose installments come from an
// irregular, seller-entered plan instead of an amortization model.
const FinancingModelCustom = "CUSTOM"

// ValidSaleKind reports whether kind is one of the two sellable property types.
func ValidSaleKind(kind string) bool {
	return kind == SaleKindLot || kind == SaleKindCemeteryUnit
}

// Principal returns the amount to finance: the explicit financed principal
// when set, otherwise price minus down payment.
func (s *Sale) Principal() float64 {
	if s.FinancedPrincipal != nil {
		return money.Round2(*s.FinancedPrincipal)
	}
	return money.Sub(s.Price, s.DownPayment)
}

// PenaltyRate returns the sale's annual moratory rate, or fallback when the
// sale carries none.
func (s *Sale) PenaltyRate(fallback float64) float64 {
	if s.MoratoryRate != nil && *s.MoratoryRate >= 0 {
		return *s.MoratoryRate
	}
	return fallback
}

// IsApproved returns true if payments may be applied to the sale
func (s *Sale) IsApproved() bool {
	return s.Status == SaleStatusApproved
}

// MayApprove returns true if sale can be approved
func (s *Sale) MayApprove() bool {
	return (s.Status == SaleStatusDraft || s.Status == SaleStatusRejected) && money.IsPositive(s.Principal())
}

// MayReject returns true if sale can be rejected
func (s *Sale) MayReject() bool {
	return s.Status == SaleStatusDraft
}

// MayCancel returns true if sale can be cancelled
func (s *Sale) MayCancel() bool {
	return s.Status == SaleStatusDraft || s.Status == SaleStatusRejected || s.Status == SaleStatusApproved
}

// MayClose returns true if every installment of the sale is settled
func (s *Sale) MayClose() bool {
	if s.Status != SaleStatusApproved || len(s.Installments) == 0 {
		return false
	}
	for i := range s.Installments {
		if s.Installments[i].Status != InstallmentStatusPaid {
			return false
		}
	}
	return true
}

// SaleResponse is the JSON response format for sales
type SaleResponse struct {
	ID                uint       `json:"id"`
	Kind              string     `json:"kind"`
	PropertyID        uint       `json:"property_id"`
	CustomerID        uint       `json:"customer_id"`
	Status            string     `json:"status"`
	Price             float64    `json:"price"`
	DownPayment       float64    `json:"down_payment"`
	FinancedPrincipal float64    `json:"financed_principal"`
	Currency          string     `json:"currency"`
	FinancingModel    string     `json:"financing_model"`
	Frequency         string     `json:"frequency"`
	AnnualRate        float64    `json:"annual_rate"`
	PaymentTerm       int        `json:"payment_term"`
	MoratoryRate      *float64   `json:"moratory_rate"`
	TotalPaid         float64    `json:"total_paid"`
	InstallmentsPaid  int        `json:"installments_paid"`
	InstallmentsTotal int        `json:"installments_total"`
	RejectionReason   *string    `json:"rejection_reason"`
	ApprovedAt        *time.Time `json:"approved_at"`
	ClosedAt          *time.Time `json:"closed_at"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// ToResponse converts Sale to SaleResponse
func (s *Sale) ToResponse() SaleResponse {
	resp := SaleResponse{
		ID:                s.ID,
		Kind:              s.Kind,
		PropertyID:        s.PropertyID,
		CustomerID:        s.CustomerID,
		Status:            s.Status,
		Price:             s.Price,
		DownPayment:       s.DownPayment,
		FinancedPrincipal: s.Principal(),
		Currency:          s.Currency,
		FinancingModel:    s.FinancingModel,
		Frequency:         s.Frequency,
		AnnualRate:        s.AnnualRate,
		PaymentTerm:       s.PaymentTerm,
		MoratoryRate:      s.MoratoryRate,
		RejectionReason:   s.RejectionReason,
		ApprovedAt:        s.ApprovedAt,
		ClosedAt:          s.ClosedAt,
		CreatedAt:         s.CreatedAt,
		UpdatedAt:         s.UpdatedAt,
	}

	resp.InstallmentsTotal = len(s.Installments)
	for i := range s.Installments {
		resp.TotalPaid = money.Add(resp.TotalPaid, s.Installments[i].AmountPaid)
		if s.Installments[i].Status == InstallmentStatusPaid {
			resp.InstallmentsPaid++
		}
	}

	return resp
}
