package services

import (
	"context"
	"errors"
	"testing"

	"github.com/sjperalta/fintera-financing/internal/financing"
	"github.com/sjperalta/fintera-financing/internal/models"
	"github.com/sjperalta/fintera-financing/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func draftSale(h *harness, price, down float64) uint {
	return h.store.addSale(models.Sale{
		Kind:        models.SaleKindCemeteryUnit,
		Status:      models.SaleStatusDraft,
		Price:       price,
		DownPayment: down,
		Currency:    "HNL",
	})
}

func TestSaleService_ApproveMaterializesSchedule(t *testing.T) {
	h := newHarness(t)
	saleID := draftSale(h, 100_000, 10_000)

	sale, err := h.sales.Approve(context.Background(), saleID, FinancingPlan{
		Model:             "french",
		Frequency:         financing.FrequencyMonthly,
		AnnualRatePercent: 12,
		Installments:      24,
		FirstDueDate:      date(2024, 2, 15),
	}, AuditContext{ActorID: 3, IP: "10.0.0.1"})
	require.NoError(t, err)

	assert.Equal(t, models.SaleStatusApproved, sale.Status)
	assert.Equal(t, "FRENCH", sale.FinancingModel)
	assert.Equal(t, 24, sale.PaymentTerm)
	require.NotNil(t, sale.ApprovedByUserID)
	assert.Equal(t, uint(3), *sale.ApprovedByUserID)

	snap := h.store.snapshot()
	assert.Equal(t, models.SaleStatusApproved, snap.sales[saleID].Status)

	installments, err := h.sales.Installments(context.Background(), saleID)
	require.NoError(t, err)
	require.Len(t, installments, 24)
	assert.Equal(t, 90_000.0, installments[0].PriorPrincipalBalance)
	assert.Equal(t, 0.0, installments[23].PostPrincipalBalance)
	for i := 1; i < len(installments); i++ {
		assert.Equal(t, installments[i-1].PostPrincipalBalance, installments[i].PriorPrincipalBalance)
	}

	ledger, err := h.sales.Ledger(context.Background(), saleID)
	require.NoError(t, err)
	require.Len(t, ledger.Entries, 1)
	assert.Equal(t, models.EntryTypeInitial, ledger.Entries[0].EntryType)
	assert.Greater(t, ledger.Balance, 90_000.0)

	require.Len(t, snap.audits, 1)
	assert.Equal(t, models.AuditActionApprove, snap.audits[0].Action)
	assert.Equal(t, "10.0.0.1", snap.audits[0].IPAddress)
}

func TestSaleService_ApproveCustomPlan(t *testing.T) {
	h := newHarness(t)
	saleID := draftSale(h, 1_000, 0)

	sale, err := h.sales.Approve(context.Background(), saleID, FinancingPlan{
		Model: "CUSTOM",
		CustomEntries: []financing.CustomEntry{
			{Date: "2024-02-01", Amount: 400},
			{Date: "2024-05-01", Amount: 600},
		},
	}, AuditContext{ActorID: 1})
	require.NoError(t, err)
	assert.Equal(t, models.FinancingModelCustom, sale.FinancingModel)
	assert.Equal(t, 2, sale.PaymentTerm)

	installments, err := h.sales.Installments(context.Background(), saleID)
	require.NoError(t, err)
	require.Len(t, installments, 2)
	assert.Equal(t, 400.0, installments[0].Amount)
	assert.Equal(t, 600.0, installments[0].PostPrincipalBalance)
}

func TestSaleService_ApproveFailuresWriteNothing(t *testing.T) {
	h := newHarness(t)

	t.Run("custom plan does not add up", func(t *testing.T) {
		saleID := draftSale(h, 1_000, 0)
		_, err := h.sales.Approve(context.Background(), saleID, FinancingPlan{
			Model:         "CUSTOM",
			CustomEntries: []financing.CustomEntry{{Date: "2024-02-01", Amount: 999}},
		}, AuditContext{})

		var mismatch *financing.ScheduleMismatchError
		require.True(t, errors.As(err, &mismatch))
		assert.Equal(t, 1.0, mismatch.Difference)
		assert.Equal(t, models.SaleStatusDraft, h.store.sale(saleID).Status)
	})

	t.Run("unknown sale", func(t *testing.T) {
		_, err := h.sales.Approve(context.Background(), 777, evenPlan(3), AuditContext{})
		assert.True(t, errors.Is(err, ErrNotFound))
	})

	t.Run("already approved", func(t *testing.T) {
		saleID, _ := h.approvedSale(t, 2)
		_, err := h.sales.Approve(context.Background(), saleID, evenPlan(2), AuditContext{})
		assert.True(t, errors.Is(err, ErrInvalidState))
		installments, err := h.sales.Installments(context.Background(), saleID)
		require.NoError(t, err)
		assert.Len(t, installments, 2)
	})

	t.Run("nothing to finance", func(t *testing.T) {
		saleID := draftSale(h, 500, 500)
		_, err := h.sales.Approve(context.Background(), saleID, evenPlan(2), AuditContext{})
		assert.True(t, errors.Is(err, ErrInvalidState))
	})
}

func TestScheduleService_MaterializeRefusesExistingSchedule(t *testing.T) {
	h := newHarness(t)
	saleID, _ := h.approvedSale(t, 2)
	sale := h.store.sale(saleID)

	err := h.store.WithinTransaction(context.Background(), func(repos *repository.Repositories) error {
		_, err := NewScheduleService().Materialize(context.Background(), repos, &sale, evenPlan(2))
		return err
	})
	assert.True(t, errors.Is(err, ErrDuplicate))
}

func TestSaleService_RejectAndCancel(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	saleID := draftSale(h, 1_000, 0)
	sale, err := h.sales.Reject(ctx, saleID, "documentos incompletos", AuditContext{ActorID: 2})
	require.NoError(t, err)
	assert.Equal(t, models.SaleStatusRejected, sale.Status)
	require.NotNil(t, sale.RejectionReason)

	_, err = h.sales.Reject(ctx, saleID, "otra vez", AuditContext{})
	assert.True(t, errors.Is(err, ErrInvalidState))

	sale, err = h.sales.Cancel(ctx, saleID, "cliente desistió", AuditContext{})
	require.NoError(t, err)
	assert.Equal(t, models.SaleStatusCancelled, sale.Status)

	paidSale, installments := h.approvedSale(t, 2)
	_, err = h.pay(installments[0].ID, 10)
	require.NoError(t, err)
	_, err = h.sales.Cancel(ctx, paidSale, "", AuditContext{})
	assert.True(t, errors.Is(err, ErrInvalidState))
	assert.Equal(t, models.SaleStatusApproved, h.store.sale(paidSale).Status)

	unpaidSale, _ := h.approvedSale(t, 2)
	_, err = h.sales.Cancel(ctx, unpaidSale, "", AuditContext{})
	assert.NoError(t, err)
}
