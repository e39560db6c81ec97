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
)

// LapApplication is a loan-against-policy request: credit secured by the
// surrender value of an existing insurance policy. The EMI is frozen at
// application time with the same annuity math as regular loans.
type LapApplication struct {
	ID         int    `gorm:"primary_key" json:"id"`
	BusinessId string `gorm:"index;not null" json:"business_id"`
	PolicyId   string `gorm:"size:64;index;not null" json:"policy_id"`

	ApplicantName  string `gorm:"size:255;not null" json:"applicant_name"`
	ApplicantEmail string `gorm:"size:255;not null" json:"applicant_email"`
	ApplicantPhone string `gorm:"size:64" json:"applicant_phone"`

	Principal         decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"principal"`
	TermMonths        int             `gorm:"not null" json:"term_months"`
	AnnualRatePercent decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"annual_rate_percent"`
	MonthlyEMI        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"monthly_emi"`

	BankAccountNumber string `gorm:"size:64" json:"bank_account_number"`
	BankIfscCode      string `gorm:"size:32" json:"bank_ifsc_code"`
	BankName          string `gorm:"size:255" json:"bank_name"`

	Status          LoanStatus      `gorm:"size:32;not null;default:'pending'" json:"status"`
	AmountDisbursed decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"amount_disbursed"`
	AmountRepaid    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"amount_repaid"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewLapApplication struct {
	PolicyId          string          `json:"policy_id"`
	ApplicantName     string          `json:"applicant_name"`
	ApplicantEmail    string          `json:"applicant_email"`
	ApplicantPhone    string          `json:"applicant_phone"`
	Principal         decimal.Decimal `json:"principal"`
	TermMonths        int             `json:"term_months"`
	AnnualRatePercent decimal.Decimal `json:"annual_rate_percent"`
	BankAccountNumber string          `json:"bank_account_number"`
	BankIfscCode      string          `json:"bank_ifsc_code"`
	BankName          string          `json:"bank_name"`
}

func (input NewLapApplication) validate() error {
	if strings.TrimSpace(input.PolicyId) == "" {
		return utils.NewAppError(utils.ErrMissingRequiredField, "policy_id is required")
	}
	if strings.TrimSpace(input.ApplicantName) == "" {
		return utils.NewAppError(utils.ErrMissingRequiredField, "applicant_name is required")
	}
	if strings.TrimSpace(input.ApplicantEmail) == "" {
		return utils.NewAppError(utils.ErrMissingRequiredField, "applicant_email is required")
	}
	if !utils.IsValidEmail(input.ApplicantEmail) {
		return utils.NewAppError(utils.ErrInvalidLoanParameters, "applicant_email is not valid")
	}
	return nil
}

func CreateLapApplication(ctx context.Context, input *NewLapApplication) (*LapApplication, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	if err := input.validate(); err != nil {
		return nil, err
	}

	amortization, err := CalculateAmortization(input.Principal, input.AnnualRatePercent, input.TermMonths)
	if err != nil {
		return nil, err
	}

	lap := LapApplication{
		BusinessId:        businessId,
		PolicyId:          strings.TrimSpace(input.PolicyId),
		ApplicantName:     strings.TrimSpace(input.ApplicantName),
		ApplicantEmail:    strings.TrimSpace(input.ApplicantEmail),
		ApplicantPhone:    input.ApplicantPhone,
		Principal:         input.Principal,
		TermMonths:        input.TermMonths,
		AnnualRatePercent: input.AnnualRatePercent,
		MonthlyEMI:        amortization.Installment,
		BankAccountNumber: input.BankAccountNumber,
		BankIfscCode:      input.BankIfscCode,
		BankName:          input.BankName,
		Status:            LoanStatusPending,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&lap).Error; err != nil {
		return nil, utils.WrapPersistence(err)
	}
	return &lap, nil
}

type LapApplicationFilter struct {
	PolicyId string
	Status   LoanStatus
	Limit    int
}

func ListLapApplications(ctx context.Context, filter LapApplicationFilter) ([]*LapApplication, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Model(&LapApplication{})
	if filter.PolicyId != "" {
		dbCtx = dbCtx.Where("policy_id = ?", filter.PolicyId)
	}
	if filter.Status != "" {
		dbCtx = dbCtx.Where("status = ?", filter.Status)
	}

	var laps []*LapApplication
	if err := dbCtx.Order("created_at DESC, id DESC").Limit(limit).Find(&laps).Error; err != nil {
		return nil, utils.WrapPersistence(err)
	}
	return laps, nil
}

type UpdateLapApplicationInput struct {
	Status          LoanStatus       `json:"status"`
	AmountDisbursed *decimal.Decimal `json:"amount_disbursed"`
	AmountRepaid    *decimal.Decimal `json:"amount_repaid"`
}

// UpdateLapApplication moves a loan-against-policy request through its
// lifecycle and tracks disbursement/repayment running totals.
func UpdateLapApplication(ctx context.Context, id int, input UpdateLapApplicationInput) (*LapApplication, error) {
	var lap LapApplication
	db := config.GetDB()
	if err := db.WithContext(ctx).Where("id = ?", id).First(&lap).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NewAppError(utils.ErrLoanNotFound, "lap application not found")
		}
		return nil, utils.WrapPersistence(err)
	}

	prevStatus := lap.Status
	updates := map[string]interface{}{}
	if input.Status != "" {
		if !input.Status.Valid() {
			return nil, utils.NewAppError(utils.ErrInvalidStatus, "invalid lap status: "+string(input.Status))
		}
		if !statusTransitionAllowed(lap.Status, input.Status) {
			return nil, utils.NewAppError(utils.ErrInvalidStatus,
				"status transition not allowed: "+string(lap.Status)+" -> "+string(input.Status))
		}
		updates["status"] = input.Status
		lap.Status = input.Status
	}
	if input.AmountDisbursed != nil {
		if input.AmountDisbursed.IsNegative() {
			return nil, utils.NewAppError(utils.ErrInvalidPaymentAmount, "amount disbursed cannot be negative")
		}
		updates["amount_disbursed"] = *input.AmountDisbursed
		lap.AmountDisbursed = *input.AmountDisbursed
	}
	if input.AmountRepaid != nil {
		if input.AmountRepaid.IsNegative() {
			return nil, utils.NewAppError(utils.ErrInvalidPaymentAmount, "amount repaid cannot be negative")
		}
		updates["amount_repaid"] = *input.AmountRepaid
		lap.AmountRepaid = *input.AmountRepaid
	}
	if len(updates) == 0 {
		return &lap, nil
	}

	// Same guarded update as TransitionLoanStatus: the transition check holds
	// only for the status it was evaluated against.
	result := db.WithContext(ctx).Model(&LapApplication{}).
		Where("id = ? AND status = ?", lap.ID, prevStatus).
		Updates(updates)
	if result.Error != nil {
		return nil, utils.WrapPersistence(result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, utils.NewAppError(utils.ErrInvalidStatus, "lap application status changed concurrently")
	}
	return &lap, nil
}
