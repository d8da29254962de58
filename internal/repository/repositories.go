package repository

import (
	"context"
	"database/sql"

	"gorm.io/gorm"
)

// Repositories holds all repository instances
type Repositories struct {
	Sale        SaleRepository
	Installment InstallmentRepository
	Payment     PaymentRepository
	Ledger      LedgerRepository
	Audit       AuditRepository
}

// NewRepositories creates all repository instances
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Sale:        NewSaleRepository(db),
		Installment: NewInstallmentRepository(db),
		Payment:     NewPaymentRepository(db),
		Ledger:      NewLedgerRepository(db),
		Audit:       NewAuditRepository(db),
	}
}

// TxManager runs a unit of work against repositories bound to one database
// transaction. fn returning an error rolls every write back.
type TxManager interface {
	WithinTransaction(ctx context.Context, fn func(repos *Repositories) error) error
}

type gormTxManager struct {
	db *gorm.DB
}

// NewTxManager creates a transaction manager running at serializable isolation
func NewTxManager(db *gorm.DB) TxManager {
	return &gormTxManager{db: db}
}

func (m *gormTxManager) WithinTransaction(ctx context.Context, fn func(repos *Repositories) error) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepositories(tx))
	}, &sql.TxOptions{Isolation: sql.LevelSerializable})
}
