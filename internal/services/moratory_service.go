package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sjperalta/fintera-financing/internal/financing"
	"github.com/sjperalta/fintera-financing/internal/metrics"
	"github.com/sjperalta/fintera-financing/internal/models"
	"github.com/sjperalta/fintera-financing/internal/repository"
	"github.com/sjperalta/fintera-financing/pkg/logger"
	"github.com/sjperalta/fintera-financing/pkg/money"
)

// Recalculation reports what one moratory pass changed on a sale
type Recalculation struct {
	SaleID           uint      `json:"sale_id"`
	AsOf             time.Time `json:"as_of"`
	Updated          int       `json:"updated_installments"`
	MoratoryInterest float64   `json:"moratory_interest"`
}

type MoratoryService struct {
	repos       *repository.Repositories
	tx          repository.TxManager
	locks       *keyedMutex
	penaltyRate float64
	now         func() time.Time
}

func NewMoratoryService(repos *repository.Repositories, tx repository.TxManager, locks *keyedMutex, penaltyRate float64) *MoratoryService {
	return &MoratoryService{
		repos:       repos,
		tx:          tx,
		locks:       locks,
		penaltyRate: penaltyRate,
		now:         time.Now,
	}
}

// Calculate computes the moratory charge on a single overdue amount
func (s *MoratoryService) Calculate(overdueBalance float64, dueDate, evaluationDate time.Time, annualRate *float64) (float64, error) {
	rate := s.penaltyRate
	if annualRate != nil {
		rate = *annualRate
	}
	if rate < 0 {
		return 0, &financing.ValidationError{Field: "annual_rate", Message: "la tasa moratoria no puede ser negativa"}
	}
	if overdueBalance < 0 {
		return 0, &financing.ValidationError{Field: "overdue_balance", Message: "el saldo vencido no puede ser negativo"}
	}
	return financing.MoratoryInterest(overdueBalance, dueDate, evaluationDate, rate), nil
}

// Summary totals principal and moratory owed on the overdue part of a sale's
// stored schedule. Settled installments are left out.
func (s *MoratoryService) Summary(ctx context.Context, saleID uint, asOf time.Time) (*financing.MoratorySummary, error) {
	sale, err := s.repos.Sale.FindByID(ctx, saleID)
	if err != nil {
		return nil, lookupError("venta", saleID, err)
	}
	installments, err := s.repos.Installment.FindBySale(ctx, saleID)
	if err != nil {
		return nil, persistence("listar cuotas", err)
	}

	entries := make([]financing.ScheduleEntry, 0, len(installments))
	for _, inst := range installments {
		if inst.IsSettled() {
			continue
		}
		entries = append(entries, financing.ScheduleEntry{
			Number:         inst.Number,
			DueDate:        inst.DueDate,
			OpeningBalance: inst.PriorPrincipalBalance,
			Principal:      inst.PrincipalComponent,
			Interest:       inst.InterestComponent,
			Installment:    inst.Amount,
			ClosingBalance: inst.PostPrincipalBalance,
		})
	}

	summary := financing.TotalWithMoratory(entries, asOf, sale.PenaltyRate(s.penaltyRate))
	return &summary, nil
}

// Recalculate accrues moratory interest on every unpaid installment of a sale
// up to asOf. Stored charges never decrease and paid installments are left
// untouched. Each changed installment gets its interest ledger entry
// refreshed.
func (s *MoratoryService) Recalculate(ctx context.Context, saleID uint, asOf time.Time) (*Recalculation, error) {
	unlock := s.locks.Lock(saleID)
	defer unlock()

	result := &Recalculation{SaleID: saleID, AsOf: asOf}
	err := s.tx.WithinTransaction(ctx, func(repos *repository.Repositories) error {
		sale, err := repos.Sale.FindByIDForUpdate(ctx, saleID)
		if err != nil {
			return lookupError("venta", saleID, err)
		}
		if !sale.IsApproved() {
			return &SaleNotApprovedError{SaleID: sale.ID, State: sale.Status}
		}

		installments, err := repos.Installment.FindBySaleForUpdate(ctx, saleID)
		if err != nil {
			return persistence("bloquear cuotas", err)
		}

		rate := sale.PenaltyRate(s.penaltyRate)
		now := s.now()
		for i := range installments {
			inst := &installments[i]
			changed := false
			if !inst.IsSettled() {
				if accrued := financing.MoratoryInterest(inst.Amount, inst.DueDate, asOf, rate); accrued > inst.MoratoryInterest {
					inst.MoratoryInterest = accrued
					inst.MoratoryAsOf = &asOf
					changed = true
					result.Updated++

					id := inst.ID
					entry := &models.SaleLedgerEntry{
						SaleID:        saleID,
						InstallmentID: &id,
						Amount:        accrued,
						Description:   fmt.Sprintf("Interés moratorio cuota %d al %s", inst.Number, asOf.Format("2006-01-02")),
						EntryType:     models.EntryTypeInterest,
						EntryDate:     asOf,
					}
					if err := repos.Ledger.FindOrCreateByInstallmentAndType(ctx, entry); err != nil {
						return persistence("registrar interés moratorio", err)
					}
				}
			}

			previous := inst.Status
			inst.RefreshStatus(now)
			if changed || inst.Status != previous {
				if err := repos.Installment.Update(ctx, inst); err != nil {
					return persistence("actualizar cuota", err)
				}
			}
			result.MoratoryInterest = money.Add(result.MoratoryInterest, inst.MoratoryInterest)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.MoratoryRecalculations.Inc()
	logger.Log.InfoContext(ctx, "moratory interest recalculated",
		"sale_id", saleID,
		"as_of", asOf.Format("2006-01-02"),
		"updated", result.Updated,
		"moratory_interest", result.MoratoryInterest)
	return result, nil
}

// RecalculateAll runs Recalculate for every approved sale with an overdue
// installment. A failing sale does not stop the others; all failures are
// returned joined.
func (s *MoratoryService) RecalculateAll(ctx context.Context, asOf time.Time) (int, error) {
	saleIDs, err := s.repos.Installment.FindSaleIDsWithOverdue(ctx, asOf)
	if err != nil {
		return 0, persistence("buscar ventas con mora", err)
	}

	var errs []error
	done := 0
	for _, id := range saleIDs {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if _, err := s.Recalculate(ctx, id, asOf); err != nil {
			logger.Log.ErrorContext(ctx, "moratory recalculation failed", "sale_id", id, "error", err)
			errs = append(errs, fmt.Errorf("venta %d: %w", id, err))
			continue
		}
		done++
	}

	logger.Log.InfoContext(ctx, "moratory sweep finished", "as_of", asOf.Format("2006-01-02"), "sales", len(saleIDs), "recalculated", done)
	return done, errors.Join(errs...)
}
