package repository

import (
	"context"
	"errors"

	"github.com/sjperalta/fintera-financing/internal/models"

	"gorm.io/gorm"
)

// LedgerRepository defines the interface for sale ledger data access
type LedgerRepository interface {
	Create(ctx context.Context, entry *models.SaleLedgerEntry) error
	FindBySaleID(ctx context.Context, saleID uint) ([]models.SaleLedgerEntry, error)
	CalculateBalance(ctx context.Context, saleID uint) (float64, error)
	FindOrCreateByInstallmentAndType(ctx context.Context, entry *models.SaleLedgerEntry) error
}

// ledgerRepository handles database operations for sale ledger entries
type ledgerRepository struct {
	db *gorm.DB
}

// NewLedgerRepository creates a new ledger repository
func NewLedgerRepository(db *gorm.DB) LedgerRepository {
	return &ledgerRepository{db: db}
}

// Create creates a new ledger entry
func (r *ledgerRepository) Create(ctx context.Context, entry *models.SaleLedgerEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// FindBySaleID retrieves all ledger entries for a sale
func (r *ledgerRepository) FindBySaleID(ctx context.Context, saleID uint) ([]models.SaleLedgerEntry, error) {
	var entries []models.SaleLedgerEntry
	err := r.db.WithContext(ctx).
		Where("sale_id = ?", saleID).
		Order("entry_date ASC, id ASC").
		Find(&entries).Error
	return entries, err
}

// CalculateBalance sums every entry of a sale: debits are positive, credits
// negative.
func (r *ledgerRepository) CalculateBalance(ctx context.Context, saleID uint) (float64, error) {
	var result struct {
		Balance float64
	}

	err := r.db.WithContext(ctx).
		Model(&models.SaleLedgerEntry{}).
		Select("COALESCE(SUM(amount), 0) as balance").
		Where("sale_id = ?", saleID).
		Scan(&result).Error

	return result.Balance, err
}

// FindOrCreateByInstallmentAndType keeps a single interest entry per
// installment: an existing one is overwritten, otherwise entry is inserted.
func (r *ledgerRepository) FindOrCreateByInstallmentAndType(ctx context.Context, entry *models.SaleLedgerEntry) error {
	if entry.InstallmentID != nil && entry.EntryType == models.EntryTypeInterest {
		var existing models.SaleLedgerEntry
		err := r.db.WithContext(ctx).
			Where("installment_id = ? AND entry_type = ?", entry.InstallmentID, entry.EntryType).
			First(&existing).Error

		if err == nil {
			existing.Amount = entry.Amount
			existing.Description = entry.Description
			existing.EntryDate = entry.EntryDate
			if err := r.db.WithContext(ctx).Save(&existing).Error; err != nil {
				return err
			}
			*entry = existing
			return nil
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
	}

	return r.Create(ctx, entry)
}
