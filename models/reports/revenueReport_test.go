package reports

import (
	"testing"
	"time"

	"github.com/mmdatafocus/loans_backend/models"
	"github.com/stretchr/testify/require"
)

func TestMonthlyWindows(t *testing.T) {
	ref := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	windows := MonthlyWindows(ref, 3)

	require.Len(t, windows, 3)
	require.Equal(t, "2026-01", windows[0].Label)
	require.Equal(t, "2026-02", windows[1].Label)
	require.Equal(t, "2026-03", windows[2].Label)
	require.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), windows[2].Start)
	require.Equal(t, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), windows[2].End)
	// Windows tile with no gaps.
	require.Equal(t, windows[0].End, windows[1].Start)
	require.Equal(t, windows[1].End, windows[2].Start)
}

func TestRevenueByPeriod_Bucketing(t *testing.T) {
	windows := []PeriodWindow{
		{Start: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), End: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), Label: "2026-01"},
		{Start: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), End: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), Label: "2026-02"},
	}
	payments := []*models.LoanPayment{
		{Amount: d("100"), PaymentDate: time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)},
		// Boundary instant belongs to the window it starts, not the one it ends.
		{Amount: d("200"), PaymentDate: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)},
		{Amount: d("300"), PaymentDate: time.Date(2026, 2, 27, 23, 59, 59, 0, time.UTC)},
		// Outside every window: excluded from all buckets.
		{Amount: d("999"), PaymentDate: time.Date(2025, 12, 31, 23, 59, 59, 0, time.UTC)},
		{Amount: d("999"), PaymentDate: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)},
	}

	results := RevenueByPeriod(payments, windows)
	require.Len(t, results, 2)

	require.Equal(t, 1, results[0].PaymentCount)
	require.True(t, results[0].Collected.Equal(d("100")))

	require.Equal(t, 2, results[1].PaymentCount)
	require.True(t, results[1].Collected.Equal(d("500")))
}

func TestRevenueByPeriod_EmptyPayments(t *testing.T) {
	windows := MonthlyWindows(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), 2)
	results := RevenueByPeriod(nil, windows)

	require.Len(t, results, 2)
	for _, r := range results {
		require.Equal(t, 0, r.PaymentCount)
		require.True(t, r.Collected.IsZero())
	}
}
