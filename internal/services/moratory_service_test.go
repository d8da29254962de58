package services

import (
	"context"
	"errors"
	"testing"

	"github.com/sjperalta/fintera-financing/internal/financing"
	"github.com/sjperalta/fintera-financing/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoratoryService_RecalculateAccruesOverdueInstallments(t *testing.T) {
	h := newHarness(t)
	saleID, installments := h.approvedSale(t, 3)
	ctx := context.Background()

	h.clock = date(2024, 3, 12)
	result, err := h.moratory.Recalculate(ctx, saleID, h.clock)
	require.NoError(t, err)

	// 40 and 11 days late on 100 at 24%.
	assert.Equal(t, 2, result.Updated)
	assert.Equal(t, 3.35, result.MoratoryInterest)

	first := h.store.installment(installments[0].ID)
	assert.Equal(t, 2.63, first.MoratoryInterest)
	assert.Equal(t, models.InstallmentStatusOverdue, first.Status)
	second := h.store.installment(installments[1].ID)
	assert.Equal(t, 0.72, second.MoratoryInterest)
	third := h.store.installment(installments[2].ID)
	assert.Equal(t, 0.0, third.MoratoryInterest)
	assert.Equal(t, models.InstallmentStatusPending, third.Status)

	ledger, err := h.sales.Ledger(ctx, saleID)
	require.NoError(t, err)
	assert.Len(t, ledger.Entries, 3)
	assert.Equal(t, 303.35, ledger.Balance)

	// Same date again: nothing new, ledger entries are replaced not duplicated.
	result, err = h.moratory.Recalculate(ctx, saleID, h.clock)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Updated)

	// An earlier evaluation date never lowers a stored charge.
	_, err = h.moratory.Recalculate(ctx, saleID, date(2024, 2, 10))
	require.NoError(t, err)
	assert.Equal(t, 2.63, h.store.installment(installments[0].ID).MoratoryInterest)

	h.clock = date(2024, 3, 22)
	_, err = h.moratory.Recalculate(ctx, saleID, h.clock)
	require.NoError(t, err)
	assert.Equal(t, 3.29, h.store.installment(installments[0].ID).MoratoryInterest)

	ledger, err = h.sales.Ledger(ctx, saleID)
	require.NoError(t, err)
	assert.Len(t, ledger.Entries, 3)
}

func TestMoratoryService_PaidInstallmentsAreFrozen(t *testing.T) {
	h := newHarness(t)
	saleID, installments := h.approvedSale(t, 2)
	ctx := context.Background()

	_, err := h.pay(installments[0].ID, 100)
	require.NoError(t, err)

	h.clock = date(2024, 6, 1)
	_, err = h.moratory.Recalculate(ctx, saleID, h.clock)
	require.NoError(t, err)

	first := h.store.installment(installments[0].ID)
	assert.Equal(t, 0.0, first.MoratoryInterest)
	assert.Equal(t, models.InstallmentStatusPaid, first.Status)
	assert.Positive(t, h.store.installment(installments[1].ID).MoratoryInterest)
}

func TestMoratoryService_RecalculateRequiresApprovedSale(t *testing.T) {
	h := newHarness(t)
	saleID := draftSale(h, 100, 0)

	_, err := h.moratory.Recalculate(context.Background(), saleID, date(2024, 3, 1))
	assert.True(t, errors.Is(err, ErrSaleNotApproved))

	_, err = h.moratory.Recalculate(context.Background(), 31337, date(2024, 3, 1))
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestMoratoryService_RecalculateAll(t *testing.T) {
	h := newHarness(t)
	overdueSale, _ := h.approvedSale(t, 2)
	_, current := h.approvedSale(t, 2)
	for _, inst := range current {
		_, err := h.pay(inst.ID, 100)
		require.NoError(t, err)
	}

	h.clock = date(2024, 3, 12)
	done, err := h.moratory.RecalculateAll(context.Background(), h.clock)
	require.NoError(t, err)
	assert.Equal(t, 1, done)

	installments, err := h.sales.Installments(context.Background(), overdueSale)
	require.NoError(t, err)
	assert.Equal(t, 2.63, installments[0].MoratoryInterest)

	h.store.failures["installment.update"] = errors.New("deadlock")
	h.clock = date(2024, 4, 30)
	done, err = h.moratory.RecalculateAll(context.Background(), h.clock)
	assert.Error(t, err)
	assert.Equal(t, 0, done)
	assert.True(t, IsRetryable(err))
}

func TestMoratoryService_Summary(t *testing.T) {
	h := newHarness(t)
	saleID, installments := h.approvedSale(t, 3)

	summary, err := h.moratory.Summary(context.Background(), saleID, date(2024, 3, 12))
	require.NoError(t, err)
	// Installments 1 and 2 are overdue; the balance is the one left after the
	// latest overdue installment.
	assert.Equal(t, 2, summary.OverdueInstallments)
	assert.Equal(t, 100.0, summary.PrincipalBalance)
	assert.Equal(t, 3.35, summary.MoratoryInterest)
	assert.Equal(t, 103.35, summary.TotalOwed)

	_, err = h.pay(installments[0].ID, 100)
	require.NoError(t, err)
	summary, err = h.moratory.Summary(context.Background(), saleID, date(2024, 3, 12))
	require.NoError(t, err)
	assert.Equal(t, 1, summary.OverdueInstallments)
	assert.Equal(t, 0.72, summary.MoratoryInterest)
}

func TestMoratoryService_Calculate(t *testing.T) {
	h := newHarness(t)

	charge, err := h.moratory.Calculate(1000, date(2024, 1, 1), date(2024, 1, 11), nil)
	require.NoError(t, err)
	assert.Equal(t, 6.58, charge)

	custom := 12.0
	charge, err = h.moratory.Calculate(1000, date(2024, 1, 1), date(2024, 1, 11), &custom)
	require.NoError(t, err)
	assert.Equal(t, 3.29, charge)

	negative := -1.0
	_, err = h.moratory.Calculate(1000, date(2024, 1, 1), date(2024, 1, 11), &negative)
	assert.True(t, errors.Is(err, financing.ErrValidation))
}
