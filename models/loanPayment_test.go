package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestDerivePaymentStatus(t *testing.T) {
	total := d("106618.56")

	require.Equal(t, LoanPaymentStatusPending, derivePaymentStatus(total, decimal.Zero))
	require.Equal(t, LoanPaymentStatusPartial, derivePaymentStatus(total, d("0.01")))
	require.Equal(t, LoanPaymentStatusPartial, derivePaymentStatus(total, d("106618.55")))
	require.Equal(t, LoanPaymentStatusCompleted, derivePaymentStatus(total, total))
	require.Equal(t, LoanPaymentStatusCompleted, derivePaymentStatus(total, d("200000")))
}

func TestApplyPayment_Partial(t *testing.T) {
	total := d("49999.98")

	paid, remaining, status := applyPayment(total, decimal.Zero, d("8333.33"))
	require.True(t, paid.Equal(d("8333.33")))
	require.True(t, remaining.Equal(d("41666.65")))
	require.Equal(t, LoanPaymentStatusPartial, status)
}

func TestApplyPayment_ExactPayoff(t *testing.T) {
	total := d("49999.98")

	paid, remaining, status := applyPayment(total, d("41666.65"), d("8333.33"))
	require.True(t, paid.Equal(total))
	require.True(t, remaining.IsZero())
	require.Equal(t, LoanPaymentStatusCompleted, status)
}

func TestApplyPayment_OverpaymentClampsRemaining(t *testing.T) {
	total := d("1000")

	paid, remaining, status := applyPayment(total, d("900"), d("500"))
	// The surplus stays visible in paid; remaining never goes negative.
	require.True(t, paid.Equal(d("1400")))
	require.True(t, remaining.IsZero())
	require.Equal(t, LoanPaymentStatusCompleted, status)
}

func TestApplyPayment_SequenceMatchesSum(t *testing.T) {
	total := d("10000")
	amounts := []string{"1200.50", "3799.50", "2500", "2500"}

	paid := decimal.Zero
	var remaining decimal.Decimal
	var status LoanPaymentStatus
	for _, a := range amounts {
		paid, remaining, status = applyPayment(total, paid, d(a))
	}

	require.True(t, paid.Equal(total))
	require.True(t, remaining.IsZero())
	require.Equal(t, LoanPaymentStatusCompleted, status)
}
