package reports

import (
	"context"
	"errors"
	"time"

	"github.com/mmdatafocus/loans_backend/config"
	"github.com/mmdatafocus/loans_backend/models"
	"github.com/mmdatafocus/loans_backend/utils"
	"github.com/shopspring/decimal"
)

// PeriodWindow is a half-open collection window: payments with
// start <= payment_date < end belong to it.
type PeriodWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Label string    `json:"label"`
}

type PeriodRevenue struct {
	Window       PeriodWindow    `json:"window"`
	PaymentCount int             `json:"payment_count"`
	Collected    decimal.Decimal `json:"collected"`
}

// MonthlyWindows builds n consecutive calendar-month windows ending with the
// month containing ref, oldest first.
func MonthlyWindows(ref time.Time, n int) []PeriodWindow {
	windows := make([]PeriodWindow, 0, n)
	monthStart := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, time.UTC)
	for i := n - 1; i >= 0; i-- {
		start := monthStart.AddDate(0, -i, 0)
		windows = append(windows, PeriodWindow{
			Start: start,
			End:   start.AddDate(0, 1, 0),
			Label: start.Format("2006-01"),
		})
	}
	return windows
}

// RevenueByPeriod buckets payments into the given windows. A payment on a
// window boundary lands in the window it starts; payments outside every
// window are excluded from all buckets.
func RevenueByPeriod(payments []*models.LoanPayment, windows []PeriodWindow) []*PeriodRevenue {
	results := make([]*PeriodRevenue, len(windows))
	for i, window := range windows {
		results[i] = &PeriodRevenue{Window: window, Collected: decimal.Zero}
	}

	for _, payment := range payments {
		for i, window := range windows {
			if !payment.PaymentDate.Before(window.Start) && payment.PaymentDate.Before(window.End) {
				results[i].PaymentCount++
				results[i].Collected = results[i].Collected.Add(payment.Amount)
				break
			}
		}
	}
	return results
}

// GetRevenueReport aggregates collections per calendar month in SQL for the
// last n months (default 6).
func GetRevenueReport(ctx context.Context, months int) ([]*PeriodRevenue, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}
	if months <= 0 {
		months = 6
	}

	started := time.Now()
	defer logSlowReport(ctx, "revenue_report", started, map[string]any{"months": months})

	windows := MonthlyWindows(time.Now().UTC(), months)

	db := config.GetDB()
	var payments []*models.LoanPayment
	err := db.WithContext(ctx).
		Where("business_id = ? AND payment_date >= ? AND payment_date < ?",
			businessId, windows[0].Start, windows[len(windows)-1].End).
		Order("payment_date ASC").
		Find(&payments).Error
	if err != nil {
		return nil, utils.WrapPersistence(err)
	}

	return RevenueByPeriod(payments, windows), nil
}
