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

// LoanBookSummary aggregates the whole loan book. CountByStatus always carries
// all four status keys so consumers can index without existence checks.
type LoanBookSummary struct {
	TotalLoans       int                       `json:"total_loans"`
	TotalPrincipal   decimal.Decimal           `json:"total_principal"`
	TotalPayable     decimal.Decimal           `json:"total_payable"`
	TotalPaid        decimal.Decimal           `json:"total_paid"`
	TotalOutstanding decimal.Decimal           `json:"total_outstanding"`
	CountByStatus    map[models.LoanStatus]int `json:"count_by_status"`
	GeneratedAt      time.Time                 `json:"generated_at"`
}

func emptyLoanBookSummary() *LoanBookSummary {
	return &LoanBookSummary{
		TotalPrincipal:   decimal.Zero,
		TotalPayable:     decimal.Zero,
		TotalPaid:        decimal.Zero,
		TotalOutstanding: decimal.Zero,
		CountByStatus: map[models.LoanStatus]int{
			models.LoanStatusPending:   0,
			models.LoanStatusApproved:  0,
			models.LoanStatusRejected:  0,
			models.LoanStatusDisbursed: 0,
		},
		GeneratedAt: time.Now().UTC(),
	}
}

// SummarizeLoans folds a loan slice into book totals. Pure; summarizing the
// same slice twice yields identical figures.
func SummarizeLoans(loans []*models.Loan) *LoanBookSummary {
	summary := emptyLoanBookSummary()

	for _, loan := range loans {
		summary.TotalLoans++
		summary.TotalPrincipal = summary.TotalPrincipal.Add(loan.Principal)
		summary.TotalPayable = summary.TotalPayable.Add(loan.TotalPayable)
		summary.TotalPaid = summary.TotalPaid.Add(loan.PaidAmount)
		summary.TotalOutstanding = summary.TotalOutstanding.Add(loan.RemainingAmount)
		summary.CountByStatus[loan.Status]++
	}
	return summary
}

type loanBookSummaryRow struct {
	Status          models.LoanStatus
	LoanCount       int
	SumPrincipal    decimal.Decimal
	SumTotalPayable decimal.Decimal
	SumPaidAmount   decimal.Decimal
	SumRemaining    decimal.Decimal
}

// GetLoanBookSummary aggregates in SQL so large books never load into memory.
func GetLoanBookSummary(ctx context.Context) (*LoanBookSummary, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	started := time.Now()
	defer logSlowReport(ctx, "loan_book_summary", started, nil)

	cacheKey := "report:loanBookSummary:" + businessId
	if reportCacheEnabled() {
		var cached LoanBookSummary
		if ok, err := cacheGet(cacheKey, &cached); err == nil && ok {
			return &cached, nil
		}
	}

	db := config.GetDB()
	var rows []loanBookSummaryRow
	err := db.WithContext(ctx).Raw(`
		SELECT
			status,
			COUNT(*) AS loan_count,
			COALESCE(SUM(principal), 0) AS sum_principal,
			COALESCE(SUM(total_payable), 0) AS sum_total_payable,
			COALESCE(SUM(paid_amount), 0) AS sum_paid_amount,
			COALESCE(SUM(remaining_amount), 0) AS sum_remaining
		FROM loans
		WHERE business_id = ?
		GROUP BY status;
	`, businessId).Scan(&rows).Error
	if err != nil {
		return nil, utils.WrapPersistence(err)
	}

	summary := emptyLoanBookSummary()
	for _, row := range rows {
		summary.TotalLoans += row.LoanCount
		summary.TotalPrincipal = summary.TotalPrincipal.Add(row.SumPrincipal)
		summary.TotalPayable = summary.TotalPayable.Add(row.SumTotalPayable)
		summary.TotalPaid = summary.TotalPaid.Add(row.SumPaidAmount)
		summary.TotalOutstanding = summary.TotalOutstanding.Add(row.SumRemaining)
		summary.CountByStatus[row.Status] = row.LoanCount
	}

	if reportCacheEnabled() {
		_ = cacheSet(cacheKey, summary, reportCacheTTL())
	}
	return summary, nil
}
