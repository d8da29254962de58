package financing

import (
	"errors"
	"fmt"
)

// Sentinels matched by errors.Is on the typed errors below.
var (
	ErrValidation       = errors.New("datos de financiamiento inválidos")
	ErrScheduleMismatch = errors.New("el plan de cuotas no cuadra con el monto a financiar")
)

// ValidationError reports malformed calculator input. It is raised before
// any computation takes place.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// ScheduleMismatchError is returned when the base amounts of a custom
// schedule do not add up to the amount to finance.
type ScheduleMismatchError struct {
	Computed   float64
	Target     float64
	Difference float64
}

func (e *ScheduleMismatchError) Error() string {
	return fmt.Sprintf("la suma de las cuotas (%.2f) no coincide con el monto a financiar (%.2f): diferencia de %.2f",
		e.Computed, e.Target, e.Difference)
}

func (e *ScheduleMismatchError) Is(target error) bool {
	return target == ErrScheduleMismatch
}
