package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// threeInstallments builds a consistent 3000 plan of 1000 principal each.
func threeInstallments() []*Installment {
	return []*Installment{
		{Number: 1, Amount: 1000, PriorPrincipalBalance: 3000, PostPrincipalBalance: 2000},
		{Number: 2, Amount: 1000, PriorPrincipalBalance: 2000, PostPrincipalBalance: 1000},
		{Number: 3, Amount: 1000, PriorPrincipalBalance: 1000, PostPrincipalBalance: 0},
	}
}

func TestNewInstallmentChain_OrdersByNumber(t *testing.T) {
	items := threeInstallments()
	chain, err := NewInstallmentChain([]*Installment{items[2], items[0], items[1]})
	require.NoError(t, err)

	assert.Equal(t, 3, chain.Len())
	for n := 1; n <= 3; n++ {
		inst, ok := chain.At(n)
		require.True(t, ok)
		assert.Equal(t, n, inst.Number)
	}

	next, ok := chain.Next(2)
	require.True(t, ok)
	assert.Same(t, items[2], next)

	_, ok = chain.Next(3)
	assert.False(t, ok)
	assert.True(t, chain.IsLast(3))
	assert.False(t, chain.IsLast(2))

	_, ok = chain.At(0)
	assert.False(t, ok)
}

func TestNewInstallmentChain_RejectsGaps(t *testing.T) {
	items := threeInstallments()

	_, err := NewInstallmentChain([]*Installment{items[0], items[2]})
	assert.True(t, errors.Is(err, ErrBrokenChain))

	dup := *items[1]
	_, err = NewInstallmentChain([]*Installment{items[0], items[1], &dup})
	assert.True(t, errors.Is(err, ErrBrokenChain))
}

func TestInstallmentChain_FirstUncoveredBefore(t *testing.T) {
	items := threeInstallments()
	chain, err := NewInstallmentChain(items)
	require.NoError(t, err)

	blocker, ok := chain.FirstUncoveredBefore(3)
	require.True(t, ok)
	assert.Equal(t, 1, blocker.Number)

	_, ok = chain.FirstUncoveredBefore(1)
	assert.False(t, ok)

	items[0].AmountPaid = 1000
	blocker, ok = chain.FirstUncoveredBefore(3)
	require.True(t, ok)
	assert.Equal(t, 2, blocker.Number)

	items[1].AmountPaid = 1000
	_, ok = chain.FirstUncoveredBefore(3)
	assert.False(t, ok)
}

func TestInstallmentChain_Verify(t *testing.T) {
	t.Run("consistent plan", func(t *testing.T) {
		chain, err := NewInstallmentChain(threeInstallments())
		require.NoError(t, err)
		assert.NoError(t, chain.Verify(3000))
	})

	t.Run("first prior balance differs from financed principal", func(t *testing.T) {
		chain, err := NewInstallmentChain(threeInstallments())
		require.NoError(t, err)
		assert.ErrorIs(t, chain.Verify(3000.5), ErrBrokenChain)
	})

	t.Run("broken link", func(t *testing.T) {
		items := threeInstallments()
		items[2].PriorPrincipalBalance = 999.99
		chain, err := NewInstallmentChain(items)
		require.NoError(t, err)

		err = chain.Verify(3000)
		assert.ErrorIs(t, err, ErrBrokenChain)
		assert.Contains(t, err.Error(), "cuota 3")
	})

	t.Run("settled last installment with residue", func(t *testing.T) {
		items := threeInstallments()
		for _, inst := range items {
			inst.AmountPaid = inst.Amount
		}
		items[2].PostPrincipalBalance = -0.01
		chain, err := NewInstallmentChain(items)
		require.NoError(t, err)

		assert.ErrorIs(t, chain.Verify(3000), ErrBrokenChain)
		assert.True(t, chain.AllSettled())
	})

	t.Run("collected beyond cap", func(t *testing.T) {
		items := threeInstallments()
		items[0].AmountPaid = 1000.02
		chain, err := NewInstallmentChain(items)
		require.NoError(t, err)

		assert.ErrorIs(t, chain.Verify(3000), ErrBrokenChain)
	})
}
