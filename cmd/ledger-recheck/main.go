package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/mmdatafocus/loans_backend/config"
	"github.com/mmdatafocus/loans_backend/models"
	"github.com/mmdatafocus/loans_backend/utils"
	"github.com/shopspring/decimal"
)

// ledger-recheck recomputes each loan's paid_amount from its payment rows and
// reports drift. Drift should never happen (payments and balances commit in
// one transaction); this tool exists to verify that in production and to
// repair books after manual data surgery.
type loanDrift struct {
	LoanId          string
	StoredPaid      decimal.Decimal
	ComputedPaid    decimal.Decimal
	TotalPayable    decimal.Decimal
	StoredRemaining decimal.Decimal
}

func main() {
	businessID := flag.String("business-id", "", "Optional: recheck only one business. If empty, rechecks all businesses.")
	fix := flag.Bool("fix", false, "Rewrite paid_amount/remaining_amount/payment_status from the payment rows when drift is found.")
	toleranceArg := flag.String("tolerance", "0", "Absolute drift up to this amount is ignored (e.g. 0.01 for sub-cent noise).")
	flag.Parse()

	tolerance, err := utils.ParseDecimal(*toleranceArg)
	if err != nil || tolerance.IsNegative() {
		fmt.Fprintf(os.Stderr, "invalid -tolerance %q\n", *toleranceArg)
		os.Exit(1)
	}

	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil)")
		os.Exit(1)
	}

	// Raw SQL below; skip the tenant guard and scope explicitly.
	ctx = utils.SetSkipTenantScopeInContext(ctx, true)

	type loanRow struct {
		ID              int
		LoanId          string
		BusinessId      string
		TotalPayable    decimal.Decimal
		PaidAmount      decimal.Decimal
		RemainingAmount decimal.Decimal
	}

	var loans []loanRow
	query := db.WithContext(ctx).Table("loans").
		Select("id, loan_id, business_id, total_payable, paid_amount, remaining_amount")
	if strings.TrimSpace(*businessID) != "" {
		query = query.Where("business_id = ?", strings.TrimSpace(*businessID))
	}
	if err := query.Scan(&loans).Error; err != nil {
		fmt.Fprintf(os.Stderr, "failed to list loans: %v\n", err)
		os.Exit(1)
	}
	if len(loans) == 0 {
		fmt.Println("no loans found")
		return
	}

	var drifted []loanDrift
	for _, loan := range loans {
		var computed decimal.Decimal
		err := db.WithContext(ctx).Table("loan_payments").
			Where("loan_id = ?", loan.ID).
			Select("COALESCE(SUM(amount), 0)").
			Scan(&computed).Error
		if err != nil {
			fmt.Fprintf(os.Stderr, "loan %s: failed to sum payments: %v\n", loan.LoanId, err)
			continue
		}

		if computed.Sub(loan.PaidAmount).Abs().LessThanOrEqual(tolerance) {
			continue
		}
		drifted = append(drifted, loanDrift{
			LoanId:          loan.LoanId,
			StoredPaid:      loan.PaidAmount,
			ComputedPaid:    computed,
			TotalPayable:    loan.TotalPayable,
			StoredRemaining: loan.RemainingAmount,
		})

		if !*fix {
			continue
		}

		remaining := loan.TotalPayable.Sub(computed)
		if remaining.IsNegative() {
			remaining = decimal.Zero
		}
		status := models.LoanPaymentStatusPending
		if computed.GreaterThanOrEqual(loan.TotalPayable) && loan.TotalPayable.GreaterThan(decimal.Zero) {
			status = models.LoanPaymentStatusCompleted
		} else if computed.GreaterThan(decimal.Zero) {
			status = models.LoanPaymentStatusPartial
		}
		err = db.WithContext(ctx).Table("loans").Where("id = ?", loan.ID).Updates(map[string]interface{}{
			"paid_amount":      computed,
			"remaining_amount": remaining,
			"payment_status":   status,
		}).Error
		if err != nil {
			fmt.Fprintf(os.Stderr, "loan %s: failed to fix: %v\n", loan.LoanId, err)
		}
	}

	fmt.Printf("checked %d loans, drift on %d\n", len(loans), len(drifted))
	for _, d := range drifted {
		fmt.Printf("  %s stored_paid=%s computed_paid=%s total_payable=%s stored_remaining=%s\n",
			d.LoanId, d.StoredPaid, d.ComputedPaid, d.TotalPayable, d.StoredRemaining)
	}
	if len(drifted) > 0 && *fix {
		fmt.Println("drifted loans rewritten from payment rows")
	}
	if len(drifted) > 0 && !*fix {
		os.Exit(2)
	}
}
