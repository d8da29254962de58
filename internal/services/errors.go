package services

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Common service errors
var (
	ErrNotFound          = errors.New("registro no encontrado")
	ErrInvalidState      = errors.New("transición de estado inválida")
	ErrDuplicate         = errors.New("registro duplicado")
	ErrSequenceViolation = errors.New("debe pagar primero las cuotas anteriores")
	ErrSaleNotApproved   = errors.New("la venta no está aprobada")
	ErrOverpayment       = errors.New("el pago excede el monto pendiente de la cuota")
	ErrPersistence       = errors.New("error al guardar en la base de datos")
)

// NotFoundError reports a referenced installment or sale that does not exist
type NotFoundError struct {
	Entity string
	ID     uint
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d no encontrada", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// SequenceViolationError is returned when an earlier installment is still
// uncovered.
type SequenceViolationError struct {
	Target  int
	Pending int
}

func (e *SequenceViolationError) Error() string {
	return fmt.Sprintf("no se puede pagar la cuota %d: la cuota %d sigue pendiente, pague primero las cuotas anteriores",
		e.Target, e.Pending)
}

func (e *SequenceViolationError) Is(target error) bool {
	return target == ErrSequenceViolation
}

// SaleNotApprovedError is returned when the owning sale does not accept payments
type SaleNotApprovedError struct {
	SaleID uint
	State  string
}

func (e *SaleNotApprovedError) Error() string {
	return fmt.Sprintf("la venta %d no está aprobada (estado actual: %s)", e.SaleID, e.State)
}

func (e *SaleNotApprovedError) Is(target error) bool {
	return target == ErrSaleNotApproved
}

// OverpaymentError is returned when a payment would push the amount paid past
// the installment cap.
type OverpaymentError struct {
	Installment int
	Cap         float64
	Paid        float64
	Attempted   float64
	MaxAllowed  float64
}

func (e *OverpaymentError) Error() string {
	return fmt.Sprintf("el pago de %.2f excede lo pendiente de la cuota %d: máximo permitido %.2f (total %.2f, pagado %.2f)",
		e.Attempted, e.Installment, e.MaxAllowed, e.Cap, e.Paid)
}

func (e *OverpaymentError) Is(target error) bool {
	return target == ErrOverpayment
}

// PersistenceError wraps a storage failure. It is the only error class a
// caller may retry, and a retry must re-run the whole operation.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrPersistence.Error(), e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}

// Conflict reports whether the database aborted the transaction because of
// a concurrent writer (serialization failure or deadlock).
func (e *PersistenceError) Conflict() bool {
	var pgErr *pgconn.PgError
	if errors.As(e.Err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}

// IsRetryable reports whether err came from storage rather than from a
// business rule.
func IsRetryable(err error) bool {
	var pErr *PersistenceError
	return errors.As(err, &pErr)
}

func persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	return &PersistenceError{Op: op, Err: err}
}

// lookupError converts a repository read failure: a missing row becomes a
// NotFoundError, anything else a PersistenceError.
func lookupError(entity string, id uint, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &NotFoundError{Entity: entity, ID: id}
	}
	return persistence("buscar "+entity, err)
}
