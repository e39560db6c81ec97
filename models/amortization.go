package models

import (
	"time"

	"github.com/mmdatafocus/loans_backend/utils"
	"github.com/shopspring/decimal"
)

var (
	decimalHundred        = decimal.NewFromInt(100)
	decimalMonthsPerYear  = decimal.NewFromInt(12)
	decimalOne            = decimal.NewFromInt(1)
	decimalRateDivisor    = decimalMonthsPerYear.Mul(decimalHundred) // annual % -> monthly fraction
	currencyRoundingScale = int32(2)
)

// AmortizationResult holds the frozen money figures computed at application
// time. TotalPayable is installment * term exactly, so for rate = 0 the total
// can differ from the principal by up to term/2 cents (pinned rounding rule).
type AmortizationResult struct {
	Installment   decimal.Decimal `json:"installment"`
	TotalPayable  decimal.Decimal `json:"total_payable"`
	TotalInterest decimal.Decimal `json:"total_interest"`
}

// ScheduleEntry is one row of a full amortization schedule.
type ScheduleEntry struct {
	Period           int             `json:"period"`
	DueDate          time.Time       `json:"due_date"`
	Installment      decimal.Decimal `json:"installment"`
	InterestPortion  decimal.Decimal `json:"interest_portion"`
	PrincipalPortion decimal.Decimal `json:"principal_portion"`
	ClosingBalance   decimal.Decimal `json:"closing_balance"`
}

// CalculateAmortization converts (principal, annual rate %, term months) into
// the fixed monthly installment and derived totals, using the standard
// annuity formula. All arithmetic stays in fixed-point decimals; output is
// reproducible bit-for-bit for identical inputs.
func CalculateAmortization(principal decimal.Decimal, annualRatePercent decimal.Decimal, termMonths int) (*AmortizationResult, error) {
	if principal.LessThanOrEqual(decimal.Zero) {
		return nil, utils.NewAppError(utils.ErrInvalidLoanParameters, "principal must be positive")
	}
	if annualRatePercent.IsNegative() || annualRatePercent.GreaterThan(decimalHundred) {
		return nil, utils.NewAppError(utils.ErrInvalidLoanParameters, "annual rate must be between 0 and 100")
	}
	if termMonths < 1 {
		return nil, utils.NewAppError(utils.ErrInvalidLoanParameters, "term must be at least 1 month")
	}

	term := decimal.NewFromInt(int64(termMonths))

	var installment decimal.Decimal
	if annualRatePercent.IsZero() {
		// No compounding; the annuity formula would divide by zero.
		installment = principal.Div(term).Round(currencyRoundingScale)
	} else {
		monthlyRate := annualRatePercent.Div(decimalRateDivisor)
		// installment = P * r * (1+r)^n / ((1+r)^n - 1)
		compounded := decimalOne.Add(monthlyRate).Pow(term)
		numerator := principal.Mul(monthlyRate).Mul(compounded)
		denominator := compounded.Sub(decimalOne)
		installment = numerator.Div(denominator).Round(currencyRoundingScale)
	}

	totalPayable := installment.Mul(term)
	return &AmortizationResult{
		Installment:   installment,
		TotalPayable:  totalPayable,
		TotalInterest: totalPayable.Sub(principal),
	}, nil
}

// BuildSchedule expands the amortization into per-month rows starting one
// month after firstDueBase. The final row absorbs rounding drift so the
// closing balance lands exactly on zero.
func BuildSchedule(principal decimal.Decimal, annualRatePercent decimal.Decimal, termMonths int, firstDueBase time.Time) ([]ScheduleEntry, error) {
	result, err := CalculateAmortization(principal, annualRatePercent, termMonths)
	if err != nil {
		return nil, err
	}

	monthlyRate := decimal.Zero
	if !annualRatePercent.IsZero() {
		monthlyRate = annualRatePercent.Div(decimalRateDivisor)
	}

	entries := make([]ScheduleEntry, 0, termMonths)
	balance := principal
	for period := 1; period <= termMonths; period++ {
		interest := balance.Mul(monthlyRate).Round(currencyRoundingScale)
		principalPortion := result.Installment.Sub(interest)
		installment := result.Installment
		if period == termMonths {
			// Absorb residual cents in the last installment.
			principalPortion = balance
			installment = balance.Add(interest)
		}
		balance = balance.Sub(principalPortion)
		entries = append(entries, ScheduleEntry{
			Period:           period,
			DueDate:          firstDueBase.AddDate(0, period, 0),
			Installment:      installment,
			InterestPortion:  interest,
			PrincipalPortion: principalPortion,
			ClosingBalance:   balance,
		})
	}
	return entries, nil
}
