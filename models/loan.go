package models

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/mmdatafocus/loans_backend/config"
	"github.com/mmdatafocus/loans_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Loan struct {
	ID         int    `gorm:"primary_key" json:"id"`
	BusinessId string `gorm:"index;not null" json:"business_id"`
	LoanId     string `gorm:"uniqueIndex;size:64;not null" json:"loan_id"`

	FullName       string          `gorm:"size:255;not null" json:"full_name"`
	Email          string          `gorm:"size:255;not null" json:"email"`
	Phone          string          `gorm:"size:64;not null" json:"phone"`
	DateOfBirth    string          `gorm:"size:32" json:"date_of_birth"`
	Address        string          `gorm:"type:text" json:"address"`
	LoanType       LoanType        `gorm:"size:32;not null" json:"loan_type"`
	AnnualIncome   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"annual_income"`
	EmploymentType EmploymentType  `gorm:"size:32;not null" json:"employment_type"`
	EmployerName   string          `gorm:"size:255" json:"employer_name"`
	ExistingLoans  int             `gorm:"default:0" json:"existing_loans"`
	CreditScore    *int            `json:"credit_score"`

	Principal         decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"principal"`
	TermMonths        int             `gorm:"not null" json:"term_months"`
	AnnualRatePercent decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"annual_rate_percent"`

	// Figures frozen at application time; payments never re-amortize.
	Installment   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"installment"`
	TotalPayable  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_payable"`
	TotalInterest decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_interest"`

	Status            LoanStatus `gorm:"size:32;not null;default:'pending'" json:"status"`
	KycStatus         KycStatus  `gorm:"size:32;not null;default:'pending'" json:"kyc_status"`
	KycDocumentType   string     `gorm:"size:64" json:"kyc_document_type"`
	KycDocumentNumber string     `gorm:"size:128" json:"kyc_document_number"`
	KycVerifiedBy     string     `gorm:"size:255" json:"kyc_verified_by"`
	KycNotes          string     `gorm:"type:text" json:"kyc_notes"`

	PaidAmount      decimal.Decimal   `gorm:"type:decimal(20,4);default:0" json:"paid_amount"`
	RemainingAmount decimal.Decimal   `gorm:"type:decimal(20,4);default:0" json:"remaining_amount"`
	PaymentStatus   LoanPaymentStatus `gorm:"size:32;not null;default:'pending'" json:"payment_status"`

	Notes     string         `gorm:"type:text" json:"notes"`
	Payments  []LoanPayment  `gorm:"foreignKey:LoanID" json:"payments"`
	Reminders []LoanReminder `gorm:"foreignKey:LoanID" json:"reminders"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewLoanApplication struct {
	LoanId            string          `json:"loan_id"`
	FullName          string          `json:"full_name"`
	Email             string          `json:"email"`
	Phone             string          `json:"phone"`
	DateOfBirth       string          `json:"date_of_birth"`
	Address           string          `json:"address"`
	LoanType          LoanType        `json:"loan_type"`
	Principal         decimal.Decimal `json:"principal"`
	TermMonths        int             `json:"term_months"`
	AnnualRatePercent decimal.Decimal `json:"annual_rate_percent"`
	AnnualIncome      decimal.Decimal `json:"annual_income"`
	EmploymentType    EmploymentType  `json:"employment_type"`
	EmployerName      string          `json:"employer_name"`
	ExistingLoans     int             `json:"existing_loans"`
	CreditScore       *int            `json:"credit_score"`
	Notes             string          `json:"notes"`
}

// GenerateLoanId mints the external reference: LN-<unix millis>-<8 hex chars>.
func GenerateLoanId() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("LN-%d-%s", time.Now().UnixMilli(), suffix)
}

func (input NewLoanApplication) validate() error {
	if strings.TrimSpace(input.FullName) == "" {
		return utils.NewAppError(utils.ErrMissingRequiredField, "full_name is required")
	}
	if strings.TrimSpace(input.Email) == "" {
		return utils.NewAppError(utils.ErrMissingRequiredField, "email is required")
	}
	if strings.TrimSpace(input.Phone) == "" {
		return utils.NewAppError(utils.ErrMissingRequiredField, "phone is required")
	}
	if input.LoanType == "" {
		return utils.NewAppError(utils.ErrMissingRequiredField, "loan_type is required")
	}
	if input.Principal.IsZero() {
		return utils.NewAppError(utils.ErrMissingRequiredField, "principal is required")
	}
	if input.TermMonths == 0 {
		return utils.NewAppError(utils.ErrMissingRequiredField, "term_months is required")
	}
	if input.AnnualIncome.IsZero() {
		return utils.NewAppError(utils.ErrMissingRequiredField, "annual_income is required")
	}
	if input.EmploymentType == "" {
		return utils.NewAppError(utils.ErrMissingRequiredField, "employment_type is required")
	}

	if !utils.IsValidEmail(input.Email) {
		return utils.NewAppError(utils.ErrInvalidLoanParameters, "email is not valid")
	}
	if err := utils.ValidatePhoneNumber(input.Phone, utils.CountryCode); err != nil {
		return utils.NewAppError(utils.ErrInvalidLoanParameters, "phone number is not valid")
	}
	if !input.LoanType.Valid() {
		return utils.NewAppError(utils.ErrInvalidLoanParameters, "invalid loan type")
	}
	if !input.EmploymentType.Valid() {
		return utils.NewAppError(utils.ErrInvalidLoanParameters, "invalid employment type")
	}
	if input.AnnualIncome.IsNegative() {
		return utils.NewAppError(utils.ErrInvalidLoanParameters, "annual income cannot be negative")
	}
	if input.ExistingLoans < 0 {
		return utils.NewAppError(utils.ErrInvalidLoanParameters, "existing loans cannot be negative")
	}
	if input.CreditScore != nil && *input.CreditScore < 0 {
		return utils.NewAppError(utils.ErrInvalidLoanParameters, "credit score cannot be negative")
	}
	return nil
}

func isDuplicateKeyErr(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == 1062
}

// CreateLoan validates the application, amortizes it and persists the loan in
// pending state. A caller-supplied LoanId acts as an idempotency key; reuse
// surfaces as DuplicateLoanId instead of a second loan.
func CreateLoan(ctx context.Context, input *NewLoanApplication) (*Loan, error) {
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

	loanId := strings.TrimSpace(input.LoanId)
	if loanId == "" {
		loanId = GenerateLoanId()
	}

	loan := Loan{
		BusinessId:        businessId,
		LoanId:            loanId,
		FullName:          strings.TrimSpace(input.FullName),
		Email:             strings.TrimSpace(input.Email),
		Phone:             strings.TrimSpace(input.Phone),
		DateOfBirth:       strings.TrimSpace(input.DateOfBirth),
		Address:           input.Address,
		LoanType:          input.LoanType,
		AnnualIncome:      input.AnnualIncome,
		EmploymentType:    input.EmploymentType,
		EmployerName:      input.EmployerName,
		ExistingLoans:     input.ExistingLoans,
		CreditScore:       input.CreditScore,
		Principal:         input.Principal,
		TermMonths:        input.TermMonths,
		AnnualRatePercent: input.AnnualRatePercent,
		Installment:       amortization.Installment,
		TotalPayable:      amortization.TotalPayable,
		TotalInterest:     amortization.TotalInterest,
		Status:            LoanStatusPending,
		KycStatus:         KycStatusPending,
		RemainingAmount:   amortization.TotalPayable,
		PaymentStatus:     LoanPaymentStatusPending,
		Notes:             input.Notes,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&loan).Error; err != nil {
		if isDuplicateKeyErr(err) {
			return nil, utils.NewAppError(utils.ErrDuplicateLoanId, "loan id already exists: "+loanId)
		}
		return nil, utils.WrapPersistence(err)
	}

	return &loan, nil
}

// GetLoanByLoanId fetches a loan with its payment history, redis-cached.
func GetLoanByLoanId(ctx context.Context, loanId string) (*Loan, error) {
	cached, err := utils.RetrieveRedis[Loan](loanId)
	if err != nil {
		logger := config.GetLogger()
		config.LogError(logger, "loan", "GetLoanByLoanId", "redis retrieve failed", loanId, err)
	}
	if cached != nil {
		// The cache key is not tenant-scoped; never serve another tenant's loan.
		if businessId, _ := utils.GetBusinessIdFromContext(ctx); businessId == "" || cached.BusinessId == businessId {
			return cached, nil
		}
	}

	var loan Loan
	db := config.GetDB()
	result := db.WithContext(ctx).
		Preload("Payments", func(db *gorm.DB) *gorm.DB { return db.Order("payment_date ASC, id ASC") }).
		Preload("Reminders", func(db *gorm.DB) *gorm.DB { return db.Order("sent_date ASC, id ASC") }).
		Where("loan_id = ?", loanId).
		First(&loan)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, utils.NewAppError(utils.ErrLoanNotFound, "loan not found: "+loanId)
		}
		return nil, utils.WrapPersistence(result.Error)
	}

	if err := utils.StoreRedis(&loan, loanId); err != nil {
		logger := config.GetLogger()
		config.LogError(logger, "loan", "GetLoanByLoanId", "redis store failed", loanId, err)
	}
	return &loan, nil
}

type LoanFilter struct {
	Status        LoanStatus
	LoanType      LoanType
	PaymentStatus LoanPaymentStatus
	Limit         int
	Offset        int
}

// ListLoans returns loans newest-first. Tenancy comes from the gorm tenant
// guard plugin via ctx.
func ListLoans(ctx context.Context, filter LoanFilter) ([]*Loan, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Model(&Loan{})
	if filter.Status != "" {
		dbCtx = dbCtx.Where("status = ?", filter.Status)
	}
	if filter.LoanType != "" {
		dbCtx = dbCtx.Where("loan_type = ?", filter.LoanType)
	}
	if filter.PaymentStatus != "" {
		dbCtx = dbCtx.Where("payment_status = ?", filter.PaymentStatus)
	}

	var loans []*Loan
	if err := dbCtx.Order("created_at DESC, id DESC").Limit(limit).Offset(filter.Offset).Find(&loans).Error; err != nil {
		return nil, utils.WrapPersistence(err)
	}
	return loans, nil
}

type UpdateLoanKycInput struct {
	KycStatus         KycStatus `json:"kyc_status"`
	KycDocumentType   string    `json:"kyc_document_type"`
	KycDocumentNumber string    `json:"kyc_document_number"`
	VerifiedBy        string    `json:"verified_by"`
	Notes             string    `json:"notes"`
}

func UpdateLoanKyc(ctx context.Context, loanId string, input UpdateLoanKycInput) (*Loan, error) {
	if !input.KycStatus.Valid() {
		return nil, utils.NewAppError(utils.ErrInvalidStatus, "invalid kyc status: "+string(input.KycStatus))
	}

	loan, err := getLoanForUpdate(ctx, loanId)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	updates := map[string]interface{}{
		"kyc_status":          input.KycStatus,
		"kyc_document_type":   input.KycDocumentType,
		"kyc_document_number": input.KycDocumentNumber,
		"kyc_verified_by":     input.VerifiedBy,
		"kyc_notes":           input.Notes,
	}
	if err := db.WithContext(ctx).Model(&Loan{}).Where("id = ?", loan.ID).Updates(updates).Error; err != nil {
		return nil, utils.WrapPersistence(err)
	}

	invalidateLoanCache(loanId)
	return GetLoanByLoanId(ctx, loanId)
}

// strictStatusGraph is the allowed transition set when STRICT_LOAN_STATUS_FLOW
// is on. rejected and disbursed are terminal.
var strictStatusGraph = map[LoanStatus][]LoanStatus{
	LoanStatusPending:  {LoanStatusApproved, LoanStatusRejected},
	LoanStatusApproved: {LoanStatusDisbursed, LoanStatusRejected},
}

func statusTransitionAllowed(from LoanStatus, to LoanStatus) bool {
	if !config.StrictLoanStatusFlow() {
		return true
	}
	for _, allowed := range strictStatusGraph[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

func TransitionLoanStatus(ctx context.Context, loanId string, newStatus LoanStatus) (*Loan, error) {
	if !newStatus.Valid() {
		return nil, utils.NewAppError(utils.ErrInvalidStatus, "invalid loan status: "+string(newStatus))
	}

	loan, err := getLoanForUpdate(ctx, loanId)
	if err != nil {
		return nil, err
	}

	if !statusTransitionAllowed(loan.Status, newStatus) {
		return nil, utils.NewAppError(utils.ErrInvalidStatus,
			fmt.Sprintf("status transition not allowed: %s -> %s", loan.Status, newStatus))
	}

	// Guard on the status the graph check saw; a concurrent transition that
	// commits first makes this a no-op instead of a blind overwrite.
	db := config.GetDB()
	result := db.WithContext(ctx).Model(&Loan{}).
		Where("id = ? AND status = ?", loan.ID, loan.Status).
		Update("status", newStatus)
	if result.Error != nil {
		return nil, utils.WrapPersistence(result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, utils.NewAppError(utils.ErrInvalidStatus, "loan status changed concurrently: "+loanId)
	}

	invalidateLoanCache(loanId)
	loan.Status = newStatus
	return loan, nil
}

// getLoanForUpdate bypasses the cache; mutations must see the committed row.
func getLoanForUpdate(ctx context.Context, loanId string) (*Loan, error) {
	var loan Loan
	db := config.GetDB()
	result := db.WithContext(ctx).Where("loan_id = ?", loanId).First(&loan)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, utils.NewAppError(utils.ErrLoanNotFound, "loan not found: "+loanId)
		}
		return nil, utils.WrapPersistence(result.Error)
	}
	return &loan, nil
}

func invalidateLoanCache(loanId string) {
	if err := utils.RemoveRedis[Loan](loanId); err != nil {
		logger := config.GetLogger()
		config.LogError(logger, "loan", "invalidateLoanCache", "redis remove failed", loanId, err)
	}
}
