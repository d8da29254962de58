package statemachine

import (
	"context"
	"errors"
	"fmt"

	"github.com/looplab/fsm"
	"github.com/sjperalta/fintera-financing/internal/models"
)

// ErrTransitionNotAllowed is returned when a sale is not in a state that
// accepts the requested event.
var ErrTransitionNotAllowed = errors.New("transición de estado no permitida")

// Sale lifecycle events
const (
	EventApprove = "approve"
	EventReject  = "reject"
	EventCancel  = "cancel"
	EventClose   = "close"
)

// SaleFSM wraps a sale with its state machine
type SaleFSM struct {
	sale *models.Sale
	fsm  *fsm.FSM
}

// NewSaleFSM creates a new sale state machine
func NewSaleFSM(sale *models.Sale) *SaleFSM {
	sfsm := &SaleFSM{
		sale: sale,
	}

	sfsm.fsm = fsm.NewFSM(
		sale.Status,
		fsm.Events{
			// draft/rejected → approved
			{Name: EventApprove, Src: []string{models.SaleStatusDraft, models.SaleStatusRejected}, Dst: models.SaleStatusApproved},

			// draft → rejected
			{Name: EventReject, Src: []string{models.SaleStatusDraft}, Dst: models.SaleStatusRejected},

			// draft/rejected/approved → cancelled
			{Name: EventCancel, Src: []string{models.SaleStatusDraft, models.SaleStatusRejected, models.SaleStatusApproved}, Dst: models.SaleStatusCancelled},

			// approved → closed, once every installment is paid
			{Name: EventClose, Src: []string{models.SaleStatusApproved}, Dst: models.SaleStatusClosed},
		},
		fsm.Callbacks{},
	)

	return sfsm
}

// Approve transitions sale to approved state
func (s *SaleFSM) Approve(ctx context.Context) error {
	return s.fire(ctx, EventApprove, s.sale.MayApprove())
}

// Reject transitions sale to rejected state
func (s *SaleFSM) Reject(ctx context.Context) error {
	return s.fire(ctx, EventReject, s.sale.MayReject())
}

// Cancel transitions sale to cancelled state
func (s *SaleFSM) Cancel(ctx context.Context) error {
	return s.fire(ctx, EventCancel, s.sale.MayCancel())
}

// Close transitions sale to closed state
func (s *SaleFSM) Close(ctx context.Context) error {
	return s.fire(ctx, EventClose, s.sale.MayClose())
}

func (s *SaleFSM) fire(ctx context.Context, event string, allowed bool) error {
	if !allowed {
		return fmt.Errorf("%w: la venta %d no admite %q en estado %s", ErrTransitionNotAllowed, s.sale.ID, event, s.sale.Status)
	}

	if err := s.fsm.Event(ctx, event); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrTransitionNotAllowed, event, err)
	}

	s.sale.Status = s.fsm.Current()
	return nil
}

// Current returns the current state
func (s *SaleFSM) Current() string {
	return s.fsm.Current()
}

// Can checks if a transition is possible
func (s *SaleFSM) Can(event string) bool {
	return s.fsm.Can(event)
}
