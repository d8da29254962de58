package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sjperalta/fintera-financing/internal/models"
	"github.com/sjperalta/fintera-financing/internal/repository"
	"github.com/sjperalta/fintera-financing/internal/statemachine"
	"github.com/sjperalta/fintera-financing/pkg/logger"
	"github.com/sjperalta/fintera-financing/pkg/money"
)

// SaleLedger is the account statement of a sale
type SaleLedger struct {
	SaleID  uint                     `json:"sale_id"`
	Balance float64                  `json:"balance"`
	Entries []models.SaleLedgerEntry `json:"entries"`
}

type SaleService struct {
	repos    *repository.Repositories
	tx       repository.TxManager
	schedule *ScheduleService
	auditSvc *AuditService
	locks    *keyedMutex
	now      func() time.Time
}

func NewSaleService(
	repos *repository.Repositories,
	tx repository.TxManager,
	schedule *ScheduleService,
	auditSvc *AuditService,
	locks *keyedMutex,
) *SaleService {
	return &SaleService{
		repos:    repos,
		tx:       tx,
		schedule: schedule,
		auditSvc: auditSvc,
		locks:    locks,
		now:      time.Now,
	}
}

func (s *SaleService) FindByID(ctx context.Context, id uint) (*models.Sale, error) {
	sale, err := s.repos.Sale.FindByIDWithInstallments(ctx, id)
	if err != nil {
		return nil, lookupError("venta", id, err)
	}
	return sale, nil
}

// Installments returns the persisted schedule of a sale ordered by number
func (s *SaleService) Installments(ctx context.Context, saleID uint) ([]models.Installment, error) {
	if _, err := s.repos.Sale.FindByID(ctx, saleID); err != nil {
		return nil, lookupError("venta", saleID, err)
	}
	installments, err := s.repos.Installment.FindBySale(ctx, saleID)
	if err != nil {
		return nil, persistence("listar cuotas", err)
	}
	return installments, nil
}

// Ledger returns every ledger entry of a sale and the resulting balance
func (s *SaleService) Ledger(ctx context.Context, saleID uint) (*SaleLedger, error) {
	if _, err := s.repos.Sale.FindByID(ctx, saleID); err != nil {
		return nil, lookupError("venta", saleID, err)
	}
	entries, err := s.repos.Ledger.FindBySaleID(ctx, saleID)
	if err != nil {
		return nil, persistence("listar movimientos", err)
	}
	balance, err := s.repos.Ledger.CalculateBalance(ctx, saleID)
	if err != nil {
		return nil, persistence("calcular saldo", err)
	}
	return &SaleLedger{SaleID: saleID, Balance: money.Round2(balance), Entries: entries}, nil
}

// Approve moves the sale to approved and materializes its installment set in
// the same transaction, so an approved sale always has a schedule.
func (s *SaleService) Approve(ctx context.Context, saleID uint, plan FinancingPlan, actor AuditContext) (*models.Sale, error) {
	unlock := s.locks.Lock(saleID)
	defer unlock()

	var approved *models.Sale
	err := s.tx.WithinTransaction(ctx, func(repos *repository.Repositories) error {
		sale, err := repos.Sale.FindByIDForUpdate(ctx, saleID)
		if err != nil {
			return lookupError("venta", saleID, err)
		}

		if err := statemachine.NewSaleFSM(sale).Approve(ctx); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidState, err)
		}

		now := s.now()
		sale.ApprovedAt = &now
		sale.ApprovedByUserID = &actor.ActorID
		sale.FinancingModel = strings.ToUpper(plan.Model)
		sale.Frequency = string(plan.Frequency)
		sale.AnnualRate = plan.AnnualRatePercent
		sale.PaymentTerm = plan.Installments
		if plan.IsCustom() {
			sale.Frequency = ""
			sale.PaymentTerm = len(plan.CustomEntries)
		}
		if plan.MoratoryRate != nil {
			sale.MoratoryRate = plan.MoratoryRate
		}

		installments, err := s.schedule.Materialize(ctx, repos, sale, plan)
		if err != nil {
			return err
		}

		if err := repos.Sale.Update(ctx, sale); err != nil {
			return persistence("aprobar venta", err)
		}

		amounts := make([]float64, len(installments))
		for i := range installments {
			amounts[i] = installments[i].Amount
		}
		initial := &models.SaleLedgerEntry{
			SaleID:      sale.ID,
			Amount:      money.Sum(amounts...),
			Description: fmt.Sprintf("Financiamiento aprobado: %d cuotas (%s)", len(installments), sale.FinancingModel),
			EntryType:   models.EntryTypeInitial,
			EntryDate:   now,
		}
		if err := repos.Ledger.Create(ctx, initial); err != nil {
			return persistence("crear movimiento inicial", err)
		}

		sale.Installments = installments
		approved = sale
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Log.InfoContext(ctx, "sale approved",
		"sale_id", saleID, "model", approved.FinancingModel, "installments", len(approved.Installments))
	s.auditSvc.Log(ctx, actor, models.AuditActionApprove, models.AuditEntitySale, saleID,
		fmt.Sprintf("Venta aprobada. Capital financiado: %.2f, modelo: %s, cuotas: %d",
			approved.Principal(), approved.FinancingModel, len(approved.Installments)))

	return approved, nil
}

// Reject moves a draft sale to rejected
func (s *SaleService) Reject(ctx context.Context, saleID uint, reason string, actor AuditContext) (*models.Sale, error) {
	sale, err := s.transition(ctx, saleID, func(sale *models.Sale, repos *repository.Repositories) error {
		if err := statemachine.NewSaleFSM(sale).Reject(ctx); err != nil {
			return err
		}
		sale.RejectionReason = &reason
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.auditSvc.Log(ctx, actor, models.AuditActionReject, models.AuditEntitySale, saleID,
		fmt.Sprintf("Venta rechazada. Razón: %s", reason))
	return sale, nil
}

// Cancel moves a sale to cancelled. A sale that already collected money
// cannot be cancelled here; reversing payments is outside this engine.
func (s *SaleService) Cancel(ctx context.Context, saleID uint, note string, actor AuditContext) (*models.Sale, error) {
	sale, err := s.transition(ctx, saleID, func(sale *models.Sale, repos *repository.Repositories) error {
		installments, err := repos.Installment.FindBySaleForUpdate(ctx, saleID)
		if err != nil {
			return persistence("bloquear cuotas", err)
		}
		for _, inst := range installments {
			if money.IsPositive(inst.AmountPaid) {
				return fmt.Errorf("%w: la cuota %d ya registra pagos", ErrInvalidState, inst.Number)
			}
		}

		if err := statemachine.NewSaleFSM(sale).Cancel(ctx); err != nil {
			return err
		}
		sale.Note = &note
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.auditSvc.Log(ctx, actor, models.AuditActionCancel, models.AuditEntitySale, saleID,
		fmt.Sprintf("Venta cancelada. Nota: %s", note))
	return sale, nil
}

// transition loads and locks the sale, applies change and saves it
func (s *SaleService) transition(ctx context.Context, saleID uint, change func(*models.Sale, *repository.Repositories) error) (*models.Sale, error) {
	unlock := s.locks.Lock(saleID)
	defer unlock()

	var result *models.Sale
	err := s.tx.WithinTransaction(ctx, func(repos *repository.Repositories) error {
		sale, err := repos.Sale.FindByIDForUpdate(ctx, saleID)
		if err != nil {
			return lookupError("venta", saleID, err)
		}
		if err := change(sale, repos); err != nil {
			if errors.Is(err, statemachine.ErrTransitionNotAllowed) {
				return fmt.Errorf("%w: %v", ErrInvalidState, err)
			}
			return err
		}
		if err := repos.Sale.Update(ctx, sale); err != nil {
			return persistence("actualizar venta", err)
		}
		result = sale
		return nil
	})
	return result, err
}
