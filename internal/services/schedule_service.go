package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sjperalta/fintera-financing/internal/financing"
	"github.com/sjperalta/fintera-financing/internal/metrics"
	"github.com/sjperalta/fintera-financing/internal/models"
	"github.com/sjperalta/fintera-financing/internal/repository"
)

// FinancingPlan is how an approved sale will be paid off: either one of the
// amortization models or a custom list of dated amounts.
type FinancingPlan struct {
	Model             string                  `json:"model"` // FRENCH, GERMAN, JAPANESE, CUSTOM
	Frequency         financing.Frequency     `json:"frequency"`
	AnnualRatePercent float64                 `json:"annual_rate_percent"`
	Installments      int                     `json:"installments"`
	FirstDueDate      time.Time               `json:"first_due_date"`
	CustomEntries     []financing.CustomEntry `json:"custom_entries"`
	MoratoryRate      *float64                `json:"moratory_rate"`
}

// IsCustom reports whether the plan carries its own dated amounts
func (p FinancingPlan) IsCustom() bool {
	return strings.EqualFold(p.Model, models.FinancingModelCustom)
}

// ScheduleService turns financing plans into projected schedules and
// persisted installments.
type ScheduleService struct {
	now func() time.Time
}

func NewScheduleService() *ScheduleService {
	return &ScheduleService{now: time.Now}
}

// PreviewAmortization projects an amortization schedule without touching storage
func (s *ScheduleService) PreviewAmortization(in financing.AmortizationInput) (*financing.Amortization, error) {
	result, err := financing.Amortize(in)
	if err != nil {
		return nil, err
	}
	metrics.SchedulesGenerated.WithLabelValues(string(in.Model)).Inc()
	return result, nil
}

// PreviewCustom validates a custom plan and overlays interest as of today
func (s *ScheduleService) PreviewCustom(in financing.CustomScheduleInput) (*financing.CustomScheduleResult, error) {
	if in.Today.IsZero() {
		in.Today = s.now()
	}
	result, err := financing.CustomSchedule(in)
	if err != nil {
		return nil, err
	}
	metrics.SchedulesGenerated.WithLabelValues(models.FinancingModelCustom).Inc()
	return result, nil
}

// Project computes the schedule entries plan yields for sale
func (s *ScheduleService) Project(sale *models.Sale, plan FinancingPlan) ([]financing.ScheduleEntry, error) {
	principal := sale.Principal()

	if plan.IsCustom() {
		result, err := s.PreviewCustom(financing.CustomScheduleInput{
			Entries:           plan.CustomEntries,
			AnnualRatePercent: plan.AnnualRatePercent,
			TotalAmount:       principal,
		})
		if err != nil {
			return nil, err
		}
		return result.Entries, nil
	}

	result, err := s.PreviewAmortization(financing.AmortizationInput{
		Principal:         principal,
		AnnualRatePercent: plan.AnnualRatePercent,
		Installments:      plan.Installments,
		Frequency:         plan.Frequency,
		FirstDueDate:      plan.FirstDueDate,
		Model:             financing.Model(strings.ToUpper(plan.Model)),
	})
	if err != nil {
		return nil, err
	}
	return result.Entries, nil
}

// Materialize writes the installment set of sale through repos. It must run
// inside the transaction that approves the sale. A sale is materialized once;
// afterwards the stored installments are the source of truth.
func (s *ScheduleService) Materialize(ctx context.Context, repos *repository.Repositories, sale *models.Sale, plan FinancingPlan) ([]models.Installment, error) {
	existing, err := repos.Installment.CountBySale(ctx, sale.ID)
	if err != nil {
		return nil, persistence("contar cuotas", err)
	}
	if existing > 0 {
		return nil, fmt.Errorf("%w: la venta %d ya tiene %d cuotas", ErrDuplicate, sale.ID, existing)
	}

	entries, err := s.Project(sale, plan)
	if err != nil {
		return nil, err
	}

	now := s.now()
	installments := make([]models.Installment, len(entries))
	for i, e := range entries {
		installments[i] = models.Installment{
			SaleID:                sale.ID,
			Number:                e.Number,
			DueDate:               e.DueDate,
			Amount:                e.Installment,
			PrincipalComponent:    e.Principal,
			InterestComponent:     e.Interest,
			PriorPrincipalBalance: e.OpeningBalance,
			PostPrincipalBalance:  e.ClosingBalance,
		}
		installments[i].RefreshStatus(now)
	}

	chainItems := make([]*models.Installment, len(installments))
	for i := range installments {
		chainItems[i] = &installments[i]
	}
	chain, err := models.NewInstallmentChain(chainItems)
	if err != nil {
		return nil, err
	}
	if err := chain.Verify(sale.Principal()); err != nil {
		return nil, err
	}

	if err := repos.Installment.CreateBatch(ctx, installments); err != nil {
		return nil, persistence("crear cuotas", err)
	}
	return installments, nil
}
