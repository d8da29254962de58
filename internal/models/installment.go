package models

import (
	"time"

	"github.com/sjperalta/fintera-financing/pkg/money"
)

// Installment is one scheduled obligation of a sale's financing plan
type Installment struct {
	ID                    uint       `gorm:"primaryKey" json:"id"`
	SaleID                uint       `gorm:"not null;uniqueIndex:idx_installments_sale_number" json:"sale_id"`
	Number                int        `gorm:"not null;uniqueIndex:idx_installments_sale_number" json:"number"`
	DueDate               time.Time  `gorm:"type:date;not null;index" json:"due_date"`
	Amount                float64    `gorm:"type:decimal(15,2);not null" json:"amount"` // principal + interest, fixed at materialization
	PrincipalComponent    float64    `gorm:"type:decimal(15,2);not null" json:"principal_component"`
	InterestComponent     float64    `gorm:"type:decimal(15,2);not null;default:0" json:"interest_component"`
	AmountPaid            float64    `gorm:"type:decimal(15,2);not null;default:0" json:"amount_paid"`
	MoratoryInterest      float64    `gorm:"type:decimal(15,2);not null;default:0" json:"moratory_interest"`
	Status                string     `gorm:"size:20;default:pending;not null;index" json:"status"`
	PriorPrincipalBalance float64    `gorm:"type:decimal(15,2);not null" json:"prior_principal_balance"`
	PostPrincipalBalance  float64    `gorm:"type:decimal(15,2);not null" json:"post_principal_balance"`
	PaidAt                *time.Time `json:"paid_at"`
	MoratoryAsOf          *time.Time `json:"moratory_as_of"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`

	// Associations
	Sale     *Sale                `gorm:"foreignKey:SaleID" json:"sale,omitempty"`
	Payments []InstallmentPayment `gorm:"foreignKey:InstallmentID" json:"payments,omitempty"`
}

// TableName specifies the table name for Installment
func (Installment) TableName() string {
	return "installments"
}

// Installment status constants
const (
	InstallmentStatusPending = "pending"
	InstallmentStatusPartial = "partial"
	InstallmentStatusPaid    = "paid"
	InstallmentStatusOverdue = "overdue"
)

// DeriveInstallmentStatus is the only source of an installment's status.
// Nothing transitions status directly; it is recomputed from the amounts and
// the clock after every payment and every moratory recalculation.
func DeriveInstallmentStatus(amountPaid, amountDue float64, dueDate, now time.Time) string {
	switch {
	case money.Covers(amountPaid, amountDue):
		return InstallmentStatusPaid
	case pastDue(dueDate, now):
		return InstallmentStatusOverdue
	case money.IsPositive(amountPaid):
		return InstallmentStatusPartial
	default:
		return InstallmentStatusPending
	}
}

// pastDue compares calendar dates; an installment due today is not late yet.
func pastDue(dueDate, now time.Time) bool {
	dy, dm, dd := dueDate.Date()
	ny, nm, nd := now.In(dueDate.Location()).Date()
	due := time.Date(dy, dm, dd, 0, 0, 0, 0, time.UTC)
	today := time.Date(ny, nm, nd, 0, 0, 0, 0, time.UTC)
	return today.After(due)
}

// Cap is the most that may ever be collected on the installment
func (i *Installment) Cap() float64 {
	return money.Add(i.Amount, i.MoratoryInterest)
}

// Outstanding returns what is still owed, moratory interest included
func (i *Installment) Outstanding() float64 {
	rest := money.Sub(i.Cap(), i.AmountPaid)
	if rest < 0 {
		return 0
	}
	return rest
}

// IsSettled returns true once the payments cover base amount plus moratory interest
func (i *Installment) IsSettled() bool {
	return money.Covers(i.AmountPaid, i.Cap())
}

// BaseCovered returns true once the payments cover the scheduled amount.
// Earlier installments only need to satisfy this for a later one to be payable.
func (i *Installment) BaseCovered() bool {
	return money.Covers(i.AmountPaid, i.Amount)
}

// IsOverdue returns true if the installment is unpaid after its due date
func (i *Installment) IsOverdue(now time.Time) bool {
	return !i.IsSettled() && pastDue(i.DueDate, now)
}

// OverdueDays returns the number of whole days past the due date
func (i *Installment) OverdueDays(now time.Time) int {
	if !i.IsOverdue(now) {
		return 0
	}
	return int(now.Sub(i.DueDate).Hours() / 24)
}

// RefreshStatus re-derives Status from the current amounts
func (i *Installment) RefreshStatus(now time.Time) {
	i.Status = DeriveInstallmentStatus(i.AmountPaid, i.Cap(), i.DueDate, now)
	if i.Status == InstallmentStatusPaid && i.PaidAt == nil {
		paidAt := now
		i.PaidAt = &paidAt
	}
}

// InstallmentResponse is the JSON response format for installments
type InstallmentResponse struct {
	ID                    uint       `json:"id"`
	SaleID                uint       `json:"sale_id"`
	Number                int        `json:"number"`
	DueDate               time.Time  `json:"due_date"`
	Amount                float64    `json:"amount"`
	PrincipalComponent    float64    `json:"principal_component"`
	InterestComponent     float64    `json:"interest_component"`
	AmountPaid            float64    `json:"amount_paid"`
	MoratoryInterest      float64    `json:"moratory_interest"`
	Outstanding           float64    `json:"outstanding"`
	Status                string     `json:"status"`
	OverdueDays           int        `json:"overdue_days"`
	PriorPrincipalBalance float64    `json:"prior_principal_balance"`
	PostPrincipalBalance  float64    `json:"post_principal_balance"`
	PaidAt                *time.Time `json:"paid_at"`
}

// ToResponse converts Installment to InstallmentResponse as of now
func (i *Installment) ToResponse(now time.Time) InstallmentResponse {
	return InstallmentResponse{
		ID:                    i.ID,
		SaleID:                i.SaleID,
		Number:                i.Number,
		DueDate:               i.DueDate,
		Amount:                i.Amount,
		PrincipalComponent:    i.PrincipalComponent,
		InterestComponent:     i.InterestComponent,
		AmountPaid:            i.AmountPaid,
		MoratoryInterest:      i.MoratoryInterest,
		Outstanding:           i.Outstanding(),
		Status:                i.Status,
		OverdueDays:           i.OverdueDays(now),
		PriorPrincipalBalance: i.PriorPrincipalBalance,
		PostPrincipalBalance:  i.PostPrincipalBalance,
		PaidAt:                i.PaidAt,
	}
}
