package models

import (
	"regexp"
	"testing"

	"github.com/mmdatafocus/loans_backend/utils"
	"github.com/stretchr/testify/require"
)

var loanIdPattern = regexp.MustCompile(`^LN-\d{13}-[0-9A-F]{8}$`)

func TestGenerateLoanId_Format(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := GenerateLoanId()
		require.Regexp(t, loanIdPattern, id)
		require.False(t, seen[id], "duplicate generated id %s", id)
		seen[id] = true
	}
}

func validApplication() NewLoanApplication {
	return NewLoanApplication{
		FullName:          "Priya Sharma",
		Email:             "priya.sharma@example.com",
		Phone:             "+919876543210",
		LoanType:          LoanTypePersonal,
		Principal:         d("100000"),
		TermMonths:        12,
		AnnualRatePercent: d("12"),
		AnnualIncome:      d("840000"),
		EmploymentType:    EmploymentTypeSalaried,
	}
}

func TestNewLoanApplication_Validate(t *testing.T) {
	require.NoError(t, validApplication().validate())
}

func TestNewLoanApplication_MissingFields(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*NewLoanApplication)
	}{
		{"full name", func(a *NewLoanApplication) { a.FullName = "  " }},
		{"email", func(a *NewLoanApplication) { a.Email = "" }},
		{"phone", func(a *NewLoanApplication) { a.Phone = "" }},
		{"loan type", func(a *NewLoanApplication) { a.LoanType = "" }},
		{"principal", func(a *NewLoanApplication) { a.Principal = d("0") }},
		{"term", func(a *NewLoanApplication) { a.TermMonths = 0 }},
		{"annual income", func(a *NewLoanApplication) { a.AnnualIncome = d("0") }},
		{"employment type", func(a *NewLoanApplication) { a.EmploymentType = "" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := validApplication()
			tc.mutate(&app)
			err := app.validate()
			require.Error(t, err)
			require.Equal(t, utils.ErrMissingRequiredField, utils.KindOf(err))
		})
	}
}

func TestNewLoanApplication_InvalidValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*NewLoanApplication)
	}{
		{"bad email", func(a *NewLoanApplication) { a.Email = "not-an-email" }},
		{"bad phone", func(a *NewLoanApplication) { a.Phone = "12" }},
		{"unknown loan type", func(a *NewLoanApplication) { a.LoanType = "yacht" }},
		{"unknown employment type", func(a *NewLoanApplication) { a.EmploymentType = "freelancer" }},
		{"negative income", func(a *NewLoanApplication) { a.AnnualIncome = d("-1") }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := validApplication()
			tc.mutate(&app)
			err := app.validate()
			require.Error(t, err)
			require.Equal(t, utils.ErrInvalidLoanParameters, utils.KindOf(err))
		})
	}
}

func TestStatusTransitionGraph_Strict(t *testing.T) {
	t.Setenv("STRICT_LOAN_STATUS_FLOW", "true")

	allowed := []struct{ from, to LoanStatus }{
		{LoanStatusPending, LoanStatusApproved},
		{LoanStatusPending, LoanStatusRejected},
		{LoanStatusApproved, LoanStatusDisbursed},
		{LoanStatusApproved, LoanStatusRejected},
	}
	for _, tc := range allowed {
		require.True(t, statusTransitionAllowed(tc.from, tc.to), "%s -> %s should be allowed", tc.from, tc.to)
	}

	denied := []struct{ from, to LoanStatus }{
		{LoanStatusRejected, LoanStatusApproved},
		{LoanStatusDisbursed, LoanStatusPending},
		{LoanStatusPending, LoanStatusDisbursed},
		{LoanStatusApproved, LoanStatusPending},
	}
	for _, tc := range denied {
		require.False(t, statusTransitionAllowed(tc.from, tc.to), "%s -> %s should be denied", tc.from, tc.to)
	}
}

func TestStatusTransitionGraph_PermissiveByDefault(t *testing.T) {
	t.Setenv("STRICT_LOAN_STATUS_FLOW", "")

	// Historical behavior: any valid status can be assigned from any other.
	require.True(t, statusTransitionAllowed(LoanStatusRejected, LoanStatusApproved))
	require.True(t, statusTransitionAllowed(LoanStatusDisbursed, LoanStatusPending))
}
