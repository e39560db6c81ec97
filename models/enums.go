package models

// LoanStatus is the application/approval state of a loan.
type LoanStatus string

const (
	LoanStatusPending   LoanStatus = "pending"
	LoanStatusApproved  LoanStatus = "approved"
	LoanStatusRejected  LoanStatus = "rejected"
	LoanStatusDisbursed LoanStatus = "disbursed"
)

func (s LoanStatus) Valid() bool {
	switch s {
	case LoanStatusPending, LoanStatusApproved, LoanStatusRejected, LoanStatusDisbursed:
		return true
	}
	return false
}

// LoanPaymentStatus is derived purely from paidAmount vs totalPayable,
// never assigned directly.
type LoanPaymentStatus string

const (
	LoanPaymentStatusPending   LoanPaymentStatus = "pending"
	LoanPaymentStatusPartial   LoanPaymentStatus = "partial"
	LoanPaymentStatusCompleted LoanPaymentStatus = "completed"
)

type LoanType string

const (
	LoanTypePersonal  LoanType = "personal"
	LoanTypeBike      LoanType = "bike"
	LoanTypeCar       LoanType = "car"
	LoanTypeHome      LoanType = "home"
	LoanTypeEducation LoanType = "education"
	LoanTypeBusiness  LoanType = "business"
)

func (t LoanType) Valid() bool {
	switch t {
	case LoanTypePersonal, LoanTypeBike, LoanTypeCar, LoanTypeHome, LoanTypeEducation, LoanTypeBusiness:
		return true
	}
	return false
}

type EmploymentType string

const (
	EmploymentTypeSalaried     EmploymentType = "salaried"
	EmploymentTypeSelfEmployed EmploymentType = "self-employed"
	EmploymentTypeBusiness     EmploymentType = "business"
	EmploymentTypeRetired      EmploymentType = "retired"
)

func (t EmploymentType) Valid() bool {
	switch t {
	case EmploymentTypeSalaried, EmploymentTypeSelfEmployed, EmploymentTypeBusiness, EmploymentTypeRetired:
		return true
	}
	return false
}

type KycStatus string

const (
	KycStatusPending  KycStatus = "pending"
	KycStatusVerified KycStatus = "verified"
	KycStatusRejected KycStatus = "rejected"
)

func (s KycStatus) Valid() bool {
	switch s {
	case KycStatusPending, KycStatusVerified, KycStatusRejected:
		return true
	}
	return false
}

// RiskLevel is the urgency tier derived from days until a due date.
type RiskLevel string

const (
	RiskLevelCritical RiskLevel = "critical"
	RiskLevelHigh     RiskLevel = "high"
	RiskLevelMedium   RiskLevel = "medium"
	RiskLevelLow      RiskLevel = "low"
)

// SortRank orders tiers critical-first for presentation.
func (r RiskLevel) SortRank() int {
	switch r {
	case RiskLevelCritical:
		return 0
	case RiskLevelHigh:
		return 1
	case RiskLevelMedium:
		return 2
	default:
		return 3
	}
}

type ReminderStatus string

const (
	// ReminderStatusSent records intent only; delivery is owned by the
	// notification subscriber, never confirmed here.
	ReminderStatusSent ReminderStatus = "sent"
)

// OutboxPublishStatus tracks notification outbox rows.
type OutboxPublishStatus string

const (
	OutboxPublishStatusPending    OutboxPublishStatus = "PENDING"
	OutboxPublishStatusProcessing OutboxPublishStatus = "PROCESSING"
	OutboxPublishStatusSent       OutboxPublishStatus = "SENT"
	OutboxPublishStatusFailed     OutboxPublishStatus = "FAILED"
	OutboxPublishStatusDead       OutboxPublishStatus = "DEAD"
)
