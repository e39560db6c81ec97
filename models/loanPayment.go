package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/mmdatafocus/loans_backend/config"
	"github.com/mmdatafocus/loans_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LoanPayment rows are append-only. Corrections are new rows, never edits.
type LoanPayment struct {
	ID          int             `gorm:"primary_key" json:"id"`
	BusinessId  string          `gorm:"index;not null" json:"business_id"`
	LoanID      int             `gorm:"index;not null" json:"loan_id"`
	LoanRef     string          `gorm:"size:64;index;not null" json:"loan_ref"`
	Amount      decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`
	PaymentDate time.Time       `gorm:"not null" json:"payment_date"`
	Method      string          `gorm:"size:64" json:"method"`
	Reference   string          `gorm:"size:255" json:"reference"`
	Notes       string          `gorm:"type:text" json:"notes"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

type NewLoanPayment struct {
	Amount    decimal.Decimal `json:"amount"`
	Method    string          `json:"method"`
	Reference string          `json:"reference"`
	Notes     string          `json:"notes"`
}

// derivePaymentStatus maps the paid total onto the tri-state payment status.
// paid >= totalPayable means completed even when overpaid.
func derivePaymentStatus(totalPayable decimal.Decimal, paid decimal.Decimal) LoanPaymentStatus {
	if paid.GreaterThanOrEqual(totalPayable) && totalPayable.GreaterThan(decimal.Zero) {
		return LoanPaymentStatusCompleted
	}
	if paid.GreaterThan(decimal.Zero) {
		return LoanPaymentStatusPartial
	}
	return LoanPaymentStatusPending
}

// applyPayment returns the new (paid, remaining, status) triple after adding
// amount. Remaining clamps at zero on overpayment; the surplus stays visible
// in paid_amount.
func applyPayment(totalPayable decimal.Decimal, paidSoFar decimal.Decimal, amount decimal.Decimal) (decimal.Decimal, decimal.Decimal, LoanPaymentStatus) {
	paid := paidSoFar.Add(amount)
	remaining := totalPayable.Sub(paid)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}
	return paid, remaining, derivePaymentStatus(totalPayable, paid)
}

// RecordLoanPayment appends a payment and rolls the loan's derived balances
// forward, all inside one transaction guarded by a per-loan advisory lock so
// concurrent postings against the same loan serialize across instances.
func RecordLoanPayment(ctx context.Context, loanId string, input *NewLoanPayment) (*Loan, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	if input.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, utils.NewAppError(utils.ErrInvalidPaymentAmount, "payment amount must be positive")
	}

	db := config.GetDB()
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Serialize per loan across instances.
		if err := AcquireLoanPostingLock(tx, loanId); err != nil {
			return utils.WrapPersistence(err)
		}
		defer ReleaseLoanPostingLock(tx, loanId)

		// Re-read with a row lock. The advisory lock alone is not enough: it is
		// released when this closure returns, before COMMIT, and a plain read in
		// that gap would see the pre-commit paid_amount. FOR UPDATE blocks here
		// until the previous posting's transaction is committed.
		var loan Loan
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("loan_id = ?", loanId).First(&loan).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return utils.NewAppError(utils.ErrLoanNotFound, "loan not found: "+loanId)
			}
			return utils.WrapPersistence(err)
		}

		payment := LoanPayment{
			BusinessId:  businessId,
			LoanID:      loan.ID,
			LoanRef:     loan.LoanId,
			Amount:      input.Amount,
			PaymentDate: time.Now().UTC(),
			Method:      strings.TrimSpace(input.Method),
			Reference:   strings.TrimSpace(input.Reference),
			Notes:       input.Notes,
		}
		if err := tx.Create(&payment).Error; err != nil {
			return utils.WrapPersistence(err)
		}

		paid, remaining, status := applyPayment(loan.TotalPayable, loan.PaidAmount, input.Amount)
		updates := map[string]interface{}{
			"paid_amount":      paid,
			"remaining_amount": remaining,
			"payment_status":   status,
		}
		if err := tx.Model(&Loan{}).Where("id = ?", loan.ID).Updates(updates).Error; err != nil {
			return utils.WrapPersistence(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	invalidateLoanCache(loanId)
	return GetLoanByLoanId(ctx, loanId)
}

// ListLoanPayments returns a loan's full payment history oldest-first.
func ListLoanPayments(ctx context.Context, loanId string) ([]*LoanPayment, error) {
	loan, err := getLoanForUpdate(ctx, loanId)
	if err != nil {
		return nil, err
	}

	var payments []*LoanPayment
	db := config.GetDB()
	if err := db.WithContext(ctx).Where("loan_id = ?", loan.ID).
		Order("payment_date ASC, id ASC").Find(&payments).Error; err != nil {
		return nil, utils.WrapPersistence(err)
	}
	return payments, nil
}
