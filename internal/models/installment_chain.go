package models

import (
	"errors"
	"fmt"
	"sort"

	"github.com/sjperalta/fintera-financing/pkg/money"
)

// ErrBrokenChain is wrapped by every consistency violation reported by
// InstallmentChain.
var ErrBrokenChain = errors.New("el plan de cuotas es inconsistente")

// InstallmentChain is the ordered installment set of one sale. Installment
// number n lives at index n-1, so neighbours are direct lookups.
type InstallmentChain struct {
	items []*Installment
}

// NewInstallmentChain orders items by number and checks that the numbers run
// 1..n without gaps or repeats. The chain holds the given pointers; changes
// made through it are visible to the caller.
func NewInstallmentChain(items []*Installment) (*InstallmentChain, error) {
	sorted := make([]*Installment, len(items))
	copy(sorted, items)
	sort.Slice(sorted, func(a, b int) bool { return sorted[a].Number < sorted[b].Number })

	for idx, inst := range sorted {
		if inst.Number != idx+1 {
			return nil, fmt.Errorf("%w: se esperaba la cuota %d y se encontró la %d", ErrBrokenChain, idx+1, inst.Number)
		}
	}
	return &InstallmentChain{items: sorted}, nil
}

// Len returns the number of installments
func (c *InstallmentChain) Len() int {
	return len(c.items)
}

// Items returns the installments ordered by number
func (c *InstallmentChain) Items() []*Installment {
	return c.items
}

// At returns installment number n
func (c *InstallmentChain) At(n int) (*Installment, bool) {
	if n < 1 || n > len(c.items) {
		return nil, false
	}
	return c.items[n-1], true
}

// Next returns the installment following number n, if any
func (c *InstallmentChain) Next(n int) (*Installment, bool) {
	return c.At(n + 1)
}

// IsLast reports whether n is the final installment of the plan
func (c *InstallmentChain) IsLast(n int) bool {
	return n == len(c.items)
}

// FirstUncoveredBefore returns the lowest-numbered installment before n whose
// scheduled amount is not yet covered.
func (c *InstallmentChain) FirstUncoveredBefore(n int) (*Installment, bool) {
	for _, inst := range c.items {
		if inst.Number >= n {
			break
		}
		if !inst.BaseCovered() {
			return inst, true
		}
	}
	return nil, false
}

// AllSettled reports whether every installment is fully paid
func (c *InstallmentChain) AllSettled() bool {
	if len(c.items) == 0 {
		return false
	}
	for _, inst := range c.items {
		if !inst.IsSettled() {
			return false
		}
	}
	return true
}

// Verify checks the balance linkage of the whole plan: the first prior balance
// is the financed principal, each prior balance equals the previous post
// balance, a settled last installment closes at exactly zero, and no
// installment has collected more than its cap plus tolerance.
func (c *InstallmentChain) Verify(financedPrincipal float64) error {
	if len(c.items) == 0 {
		return fmt.Errorf("%w: la venta no tiene cuotas", ErrBrokenChain)
	}

	if first := c.items[0]; !money.Equal(first.PriorPrincipalBalance, financedPrincipal) {
		return fmt.Errorf("%w: la cuota 1 inicia con saldo %.2f y el capital financiado es %.2f",
			ErrBrokenChain, first.PriorPrincipalBalance, financedPrincipal)
	}

	for idx, inst := range c.items {
		if idx > 0 {
			prev := c.items[idx-1]
			if !money.Equal(inst.PriorPrincipalBalance, prev.PostPrincipalBalance) {
				return fmt.Errorf("%w: el saldo inicial de la cuota %d (%.2f) no coincide con el saldo final de la cuota %d (%.2f)",
					ErrBrokenChain, inst.Number, inst.PriorPrincipalBalance, prev.Number, prev.PostPrincipalBalance)
			}
		}
		if !money.ApproxLTE(inst.AmountPaid, inst.Cap(), money.Tolerance) {
			return fmt.Errorf("%w: la cuota %d tiene pagado %.2f sobre un máximo de %.2f",
				ErrBrokenChain, inst.Number, inst.AmountPaid, inst.Cap())
		}
	}

	last := c.items[len(c.items)-1]
	if last.IsSettled() && !money.Equal(last.PostPrincipalBalance, 0) {
		return fmt.Errorf("%w: la última cuota está pagada pero su saldo final es %.2f",
			ErrBrokenChain, last.PostPrincipalBalance)
	}

	return nil
}
