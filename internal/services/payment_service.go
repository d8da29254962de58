package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sjperalta/fintera-financing/internal/financing"
	"github.com/sjperalta/fintera-financing/internal/metrics"
	"github.com/sjperalta/fintera-financing/internal/models"
	"github.com/sjperalta/fintera-financing/internal/repository"
	"github.com/sjperalta/fintera-financing/internal/statemachine"
	"github.com/sjperalta/fintera-financing/pkg/logger"
	"github.com/sjperalta/fintera-financing/pkg/money"
)

// ApplyPaymentInput is one payment submitted against an installment
type ApplyPaymentInput struct {
	InstallmentID  uint
	Amount         float64
	PaymentDate    time.Time // zero means today
	Method         string
	ProofReference *string
	Actor          AuditContext
}

// PaymentResult is the outcome of an applied payment: the immutable payment
// record, the installment after the payment and, when the cascade touched it,
// the following installment.
type PaymentResult struct {
	Payment     *models.InstallmentPayment `json:"payment"`
	Installment *models.Installment        `json:"installment"`
	Next        *models.Installment        `json:"next_installment,omitempty"`
	SaleClosed  bool                       `json:"sale_closed"`
}

type PaymentService struct {
	repos       *repository.Repositories
	tx          repository.TxManager
	auditSvc    *AuditService
	locks       *keyedMutex
	penaltyRate float64
	now         func() time.Time
}

func NewPaymentService(
	repos *repository.Repositories,
	tx repository.TxManager,
	auditSvc *AuditService,
	locks *keyedMutex,
	penaltyRate float64,
) *PaymentService {
	return &PaymentService{
		repos:       repos,
		tx:          tx,
		auditSvc:    auditSvc,
		locks:       locks,
		penaltyRate: penaltyRate,
		now:         time.Now,
	}
}

// FindByInstallment lists the payments recorded against an installment
func (s *PaymentService) FindByInstallment(ctx context.Context, installmentID uint) ([]models.InstallmentPayment, error) {
	if _, err := s.repos.Installment.FindByID(ctx, installmentID); err != nil {
		return nil, lookupError("cuota", installmentID, err)
	}
	payments, err := s.repos.Payment.FindByInstallment(ctx, installmentID)
	if err != nil {
		return nil, persistence("listar pagos", err)
	}
	return payments, nil
}

// ApplyPayment validates a payment against its installment and, when every
// rule passes, records it, updates the installment and cascades the principal
// balance in one transaction. Checks run in a fixed order and none of them
// writes: installment exists, earlier installments covered, sale approved,
// cap not exceeded.
//
// Work on one sale is serialized twice: by an in-process lock keyed on the
// sale and by row locks on the sale and all of its installments, which also
// covers other processes. Only a *PersistenceError may be retried, and a retry
// must call ApplyPayment again from the start.
func (s *PaymentService) ApplyPayment(ctx context.Context, in ApplyPaymentInput) (*PaymentResult, error) {
	start := time.Now()
	defer func() {
		metrics.PaymentApplyDuration.Observe(time.Since(start).Seconds())
	}()

	if err := validatePaymentInput(&in, s.now()); err != nil {
		return nil, s.rejected(ctx, in, err)
	}

	target, err := s.repos.Installment.FindByID(ctx, in.InstallmentID)
	if err != nil {
		return nil, s.rejected(ctx, in, lookupError("cuota", in.InstallmentID, err))
	}

	unlock := s.locks.Lock(target.SaleID)
	defer unlock()

	var result *PaymentResult
	err = s.tx.WithinTransaction(ctx, func(repos *repository.Repositories) error {
		var err error
		result, err = s.apply(ctx, repos, target.SaleID, in)
		return err
	})
	if err != nil {
		return nil, s.rejected(ctx, in, err)
	}

	metrics.PaymentsApplied.Inc()
	logger.Log.InfoContext(ctx, "payment applied",
		"installment_id", in.InstallmentID,
		"installment", result.Installment.Number,
		"sale_id", result.Installment.SaleID,
		"amount", result.Payment.Amount,
		"status", result.Installment.Status,
		"reference", result.Payment.Reference)

	s.auditSvc.Log(ctx, in.Actor, models.AuditActionPayment, models.AuditEntityPayment, result.Payment.ID,
		fmt.Sprintf("Pago de %.2f aplicado a la cuota %d de la venta %d. Pagado: %.2f de %.2f (%s)",
			result.Payment.Amount, result.Installment.Number, result.Installment.SaleID,
			result.Installment.AmountPaid, result.Installment.Cap(), result.Installment.Status))
	if result.SaleClosed {
		s.auditSvc.Log(ctx, in.Actor, models.AuditActionClose, models.AuditEntitySale, result.Installment.SaleID,
			"Venta cerrada: todas las cuotas están pagadas")
	}

	return result, nil
}

func (s *PaymentService) apply(ctx context.Context, repos *repository.Repositories, saleID uint, in ApplyPaymentInput) (*PaymentResult, error) {
	// Sale row first, then its installments; every writer takes them in this order.
	sale, err := repos.Sale.FindByIDForUpdate(ctx, saleID)
	if err != nil {
		return nil, lookupError("venta", saleID, err)
	}
	rows, err := repos.Installment.FindBySaleForUpdate(ctx, saleID)
	if err != nil {
		return nil, persistence("bloquear cuotas", err)
	}
	chain, err := chainOf(rows)
	if err != nil {
		return nil, err
	}

	var target *models.Installment
	for _, inst := range chain.Items() {
		if inst.ID == in.InstallmentID {
			target = inst
			break
		}
	}
	if target == nil {
		return nil, &NotFoundError{Entity: "cuota", ID: in.InstallmentID}
	}

	if blocker, ok := chain.FirstUncoveredBefore(target.Number); ok {
		return nil, &SequenceViolationError{Target: target.Number, Pending: blocker.Number}
	}

	if !sale.IsApproved() {
		return nil, &SaleNotApprovedError{SaleID: sale.ID, State: sale.Status}
	}

	// Moratory interest only grows, and is frozen once the installment is paid.
	moratory := target.MoratoryInterest
	if !target.IsSettled() {
		accrued := financing.MoratoryInterest(target.Amount, target.DueDate, in.PaymentDate, sale.PenaltyRate(s.penaltyRate))
		if accrued > moratory {
			moratory = accrued
		}
	}
	limit := money.Add(target.Amount, moratory)
	projected := money.Add(target.AmountPaid, in.Amount)
	if money.Overshoots(projected, limit, money.Tolerance) {
		return nil, &OverpaymentError{
			Installment: target.Number,
			Cap:         limit,
			Paid:        target.AmountPaid,
			Attempted:   money.Round2(in.Amount),
			MaxAllowed:  money.Sub(limit, target.AmountPaid),
		}
	}

	payment := &models.InstallmentPayment{
		InstallmentID:   target.ID,
		SaleID:          saleID,
		Amount:          money.Round2(in.Amount),
		PaymentDate:     in.PaymentDate,
		Method:          in.Method,
		ProofReference:  in.ProofReference,
		Reference:       uuid.NewString(),
		CreatedByUserID: in.Actor.ActorID,
	}
	if err := repos.Payment.Create(ctx, payment); err != nil {
		return nil, persistence("registrar pago", err)
	}

	now := s.now()
	if moratory != target.MoratoryInterest {
		target.MoratoryInterest = moratory
		target.MoratoryAsOf = &in.PaymentDate
	}
	target.AmountPaid = projected
	target.RefreshStatus(now)

	result := &PaymentResult{Payment: payment, Installment: target}

	if target.IsSettled() {
		if chain.IsLast(target.Number) {
			// The last installment absorbs whatever rounding residue the
			// schedule accumulated.
			target.PostPrincipalBalance = 0
		} else if next, ok := chain.Next(target.Number); ok {
			next.PriorPrincipalBalance = target.PostPrincipalBalance
			if err := repos.Installment.Update(ctx, next); err != nil {
				return nil, persistence("actualizar cuota siguiente", err)
			}
			result.Next = next
		}
	}

	if err := repos.Installment.Update(ctx, target); err != nil {
		return nil, persistence("actualizar cuota", err)
	}

	paymentID := payment.ID
	installmentID := target.ID
	credit := &models.SaleLedgerEntry{
		SaleID:        saleID,
		InstallmentID: &installmentID,
		PaymentID:     &paymentID,
		Amount:        -payment.Amount,
		Description:   fmt.Sprintf("Pago cuota %d (%s)", target.Number, payment.Method),
		EntryType:     models.EntryTypePayment,
		EntryDate:     payment.PaymentDate,
	}
	if err := repos.Ledger.Create(ctx, credit); err != nil {
		return nil, persistence("registrar movimiento de pago", err)
	}

	if err := chain.Verify(sale.Principal()); err != nil {
		return nil, err
	}

	if chain.AllSettled() {
		sale.Installments = derefAll(chain.Items())
		if err := statemachine.NewSaleFSM(sale).Close(ctx); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidState, err)
		}
		sale.ClosedAt = &now
		if err := repos.Sale.Update(ctx, sale); err != nil {
			return nil, persistence("cerrar venta", err)
		}
		result.SaleClosed = true
	}

	return result, nil
}

// rejected records why a payment was not applied and passes err through
func (s *PaymentService) rejected(ctx context.Context, in ApplyPaymentInput, err error) error {
	reason := rejectionReason(err)
	metrics.PaymentRejections.WithLabelValues(reason).Inc()

	if IsRetryable(err) {
		logger.Log.ErrorContext(ctx, "payment not applied", "installment_id", in.InstallmentID, "reason", reason, "error", err)
	} else {
		logger.Log.InfoContext(ctx, "payment rejected", "installment_id", in.InstallmentID, "reason", reason, "error", err)
	}
	return err
}

func rejectionReason(err error) string {
	var pErr *PersistenceError
	switch {
	case errors.Is(err, financing.ErrValidation):
		return "validation"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrSequenceViolation):
		return "sequence"
	case errors.Is(err, ErrSaleNotApproved):
		return "sale_not_approved"
	case errors.Is(err, ErrOverpayment):
		return "overpayment"
	case errors.As(err, &pErr) && pErr.Conflict():
		return "conflict"
	case errors.As(err, &pErr):
		return "persistence"
	case errors.Is(err, models.ErrBrokenChain):
		return "inconsistent_schedule"
	default:
		return "other"
	}
}

func validatePaymentInput(in *ApplyPaymentInput, now time.Time) error {
	if in.InstallmentID == 0 {
		return &financing.ValidationError{Field: "installment_id", Message: "la cuota es requerida"}
	}
	if !money.IsPositive(in.Amount) {
		return &financing.ValidationError{Field: "amount", Message: "el monto debe ser mayor que cero"}
	}
	if !models.ValidPaymentMethod(in.Method) {
		return &financing.ValidationError{Field: "method", Message: fmt.Sprintf("método de pago no soportado: %q", in.Method)}
	}
	if in.PaymentDate.IsZero() {
		in.PaymentDate = now
	}
	if financing.DateOnly(in.PaymentDate).After(financing.DateOnly(now)) {
		return &financing.ValidationError{Field: "payment_date", Message: "la fecha de pago no puede ser futura"}
	}
	return nil
}

// chainOf builds the arena over a slice of stored installments; the chain
// points into rows.
func chainOf(rows []models.Installment) (*models.InstallmentChain, error) {
	items := make([]*models.Installment, len(rows))
	for i := range rows {
		items[i] = &rows[i]
	}
	return models.NewInstallmentChain(items)
}

func derefAll(items []*models.Installment) []models.Installment {
	out := make([]models.Installment, len(items))
	for i, inst := range items {
		out[i] = *inst
	}
	return out
}
