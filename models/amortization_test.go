package models

import (
	"testing"
	"time"

	"github.com/mmdatafocus/loans_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCalculateAmortization_StandardVector(t *testing.T) {
	// 100000 at 12% over 12 months is the canonical hand-checked vector.
	result, err := CalculateAmortization(d("100000"), d("12"), 12)
	require.NoError(t, err)
	require.True(t, result.Installment.Equal(d("8884.88")), "installment = %s", result.Installment)
	require.True(t, result.TotalPayable.Equal(d("106618.56")), "total payable = %s", result.TotalPayable)
	require.True(t, result.TotalInterest.Equal(d("6618.56")), "total interest = %s", result.TotalInterest)
}

func TestCalculateAmortization_ZeroRate(t *testing.T) {
	result, err := CalculateAmortization(d("50000"), d("0"), 6)
	require.NoError(t, err)
	require.True(t, result.Installment.Equal(d("8333.33")), "installment = %s", result.Installment)
	// Total payable is installment * term exactly, so rounding leaves 2 cents
	// unaccounted; the rule is pinned, not papered over.
	require.True(t, result.TotalPayable.Equal(d("49999.98")), "total payable = %s", result.TotalPayable)
	require.True(t, result.TotalInterest.Equal(d("-0.02")), "total interest = %s", result.TotalInterest)
}

func TestCalculateAmortization_Deterministic(t *testing.T) {
	first, err := CalculateAmortization(d("250000"), d("9.5"), 36)
	require.NoError(t, err)
	second, err := CalculateAmortization(d("250000"), d("9.5"), 36)
	require.NoError(t, err)
	require.True(t, first.Installment.Equal(second.Installment))
	require.True(t, first.TotalPayable.Equal(second.TotalPayable))
}

func TestCalculateAmortization_RejectsBadInputs(t *testing.T) {
	cases := []struct {
		name      string
		principal string
		rate      string
		term      int
	}{
		{"zero principal", "0", "12", 12},
		{"negative principal", "-100", "12", 12},
		{"negative rate", "100000", "-1", 12},
		{"rate above 100", "100000", "101", 12},
		{"zero term", "100000", "12", 0},
		{"negative term", "100000", "12", -6},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := CalculateAmortization(d(tc.principal), d(tc.rate), tc.term)
			require.Error(t, err)
			require.Equal(t, utils.ErrInvalidLoanParameters, utils.KindOf(err))
		})
	}
}

func TestBuildSchedule_ClosesAtZero(t *testing.T) {
	start := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	entries, err := BuildSchedule(d("100000"), d("12"), 12, start)
	require.NoError(t, err)
	require.Len(t, entries, 12)

	require.True(t, entries[len(entries)-1].ClosingBalance.IsZero(),
		"final balance = %s", entries[len(entries)-1].ClosingBalance)

	totalPrincipal := decimal.Zero
	for i, entry := range entries {
		require.Equal(t, i+1, entry.Period)
		totalPrincipal = totalPrincipal.Add(entry.PrincipalPortion)
	}
	require.True(t, totalPrincipal.Equal(d("100000")), "principal repaid = %s", totalPrincipal)

	require.Equal(t, start.AddDate(0, 1, 0), entries[0].DueDate)
	require.Equal(t, start.AddDate(0, 12, 0), entries[11].DueDate)
}
