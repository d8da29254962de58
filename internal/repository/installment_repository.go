package repository

import (
	"context"
	"time"

	"github.com/sjperalta/fintera-financing/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InstallmentRepository defines the interface for installment data access.
// Every list is ordered by installment number.
type InstallmentRepository interface {
	FindByID(ctx context.Context, id uint) (*models.Installment, error)
	FindBySale(ctx context.Context, saleID uint) ([]models.Installment, error)
	FindBySaleForUpdate(ctx context.Context, saleID uint) ([]models.Installment, error)
	CountBySale(ctx context.Context, saleID uint) (int64, error)
	CreateBatch(ctx context.Context, installments []models.Installment) error
	Update(ctx context.Context, installment *models.Installment) error
	FindSaleIDsWithOverdue(ctx context.Context, asOf time.Time) ([]uint, error)
}

type installmentRepository struct {
	db *gorm.DB
}

// NewInstallmentRepository creates a new installment repository
func NewInstallmentRepository(db *gorm.DB) InstallmentRepository {
	return &installmentRepository{db: db}
}

func (r *installmentRepository) FindByID(ctx context.Context, id uint) (*models.Installment, error) {
	var installment models.Installment
	err := r.db.WithContext(ctx).First(&installment, id).Error
	if err != nil {
		return nil, err
	}
	return &installment, nil
}

func (r *installmentRepository) FindBySale(ctx context.Context, saleID uint) ([]models.Installment, error) {
	var installments []models.Installment
	err := r.db.WithContext(ctx).
		Where("sale_id = ?", saleID).
		Order("number ASC").
		Find(&installments).Error
	return installments, err
}

// FindBySaleForUpdate locks every installment row of the sale until the
// surrounding transaction ends. Callers lock the sale row first
// (SaleRepository.FindByIDForUpdate), which serializes writers on the sale.
func (r *installmentRepository) FindBySaleForUpdate(ctx context.Context, saleID uint) ([]models.Installment, error) {
	var installments []models.Installment
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("sale_id = ?", saleID).
		Order("number ASC").
		Find(&installments).Error
	return installments, err
}

func (r *installmentRepository) CountBySale(ctx context.Context, saleID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Installment{}).
		Where("sale_id = ?", saleID).
		Count(&count).Error
	return count, err
}

func (r *installmentRepository) CreateBatch(ctx context.Context, installments []models.Installment) error {
	if len(installments) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(installments, 100).Error
}

func (r *installmentRepository) Update(ctx context.Context, installment *models.Installment) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(installment).Error
}

// FindSaleIDsWithOverdue returns approved sales holding at least one unpaid
// installment due before asOf.
func (r *installmentRepository) FindSaleIDsWithOverdue(ctx context.Context, asOf time.Time) ([]uint, error) {
	var saleIDs []uint
	err := r.db.WithContext(ctx).
		Model(&models.Installment{}).
		Distinct().
		Joins("JOIN sales ON sales.id = installments.sale_id").
		Where("sales.status = ?", models.SaleStatusApproved).
		Where("installments.status <> ?", models.InstallmentStatusPaid).
		Where("installments.due_date < ?", asOf).
		Order("installments.sale_id ASC").
		Pluck("installments.sale_id", &saleIDs).Error
	return saleIDs, err
}
