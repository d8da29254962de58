package models

import (
	"time"
)

// AuditLog represents a system audit entry
type AuditLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	Action    string    `gorm:"size:50;not null" json:"action"` // APPROVE, REJECT, CANCEL, CLOSE, PAYMENT, RECALCULATE
	Entity    string    `gorm:"size:50;not null" json:"entity"` // Sale, Installment, InstallmentPayment
	EntityID  uint      `json:"entity_id"`
	Details   string    `gorm:"type:text" json:"details"` // JSON or text description
	IPAddress string    `gorm:"size:45" json:"ip_address"`
	UserAgent string    `gorm:"size:255" json:"user_agent"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for AuditLog
func (AuditLog) TableName() string {
	return "audit_logs"
}

// Audit action constants
const (
	AuditActionApprove     = "APPROVE"
	AuditActionReject      = "REJECT"
	AuditActionCancel      = "CANCEL"
	AuditActionClose       = "CLOSE"
	AuditActionPayment     = "PAYMENT"
	AuditActionRecalculate = "RECALCULATE"
)

// Audited entity names
const (
	AuditEntitySale        = "Sale"
	AuditEntityInstallment = "Installment"
	AuditEntityPayment     = "InstallmentPayment"
)
