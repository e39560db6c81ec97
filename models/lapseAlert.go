package models

import (
	"context"
	"errors"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/mmdatafocus/loans_backend/config"
	"github.com/mmdatafocus/loans_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ClassifyRisk derives the lapse urgency tier from a premium due date.
// Days are counted on calendar boundaries (both sides truncated to midnight
// UTC, partial days round up), so the tier is stable within a day:
//
//	<= 7 days  critical
//	<= 15 days high
//	<= 30 days medium
//	otherwise  low (overdue dates go negative and stay critical)
func ClassifyRisk(dueDate time.Time, now time.Time) (int, RiskLevel) {
	dueDay, _ := utils.TruncateToDay(dueDate, "")
	nowDay, _ := utils.TruncateToDay(now, "")

	daysUntilDue := int(math.Ceil(dueDay.Sub(nowDay).Hours() / 24))

	switch {
	case daysUntilDue <= 7:
		return daysUntilDue, RiskLevelCritical
	case daysUntilDue <= 15:
		return daysUntilDue, RiskLevelHigh
	case daysUntilDue <= 30:
		return daysUntilDue, RiskLevelMedium
	default:
		return daysUntilDue, RiskLevelLow
	}
}

// LapseAlert tracks an at-risk policy premium. DaysUntilDue and RiskLevel are
// recomputed on every read; only the facts (due date, amount, communications)
// are stored.
type LapseAlert struct {
	ID             int             `gorm:"primary_key" json:"id"`
	BusinessId     string          `gorm:"index;not null" json:"business_id"`
	PolicyId       string          `gorm:"size:64;index;not null" json:"policy_id"`
	CustomerName   string          `gorm:"size:255" json:"customer_name"`
	CustomerEmail  string          `gorm:"size:255;not null" json:"customer_email"`
	CustomerPhone  string          `gorm:"size:64" json:"customer_phone"`
	PremiumDueDate time.Time       `gorm:"not null;index" json:"premium_due_date"`
	PremiumAmount  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"premium_amount"`

	CommunicationSent    bool   `gorm:"default:false" json:"communication_sent"`
	CommunicationMethods string `gorm:"size:255" json:"communication_methods"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	// Derived, never persisted.
	DaysUntilDue int       `gorm:"-" json:"days_until_due"`
	RiskLevel    RiskLevel `gorm:"-" json:"risk_level"`
}

type NewLapseAlert struct {
	PolicyId       string          `json:"policy_id"`
	CustomerName   string          `json:"customer_name"`
	CustomerEmail  string          `json:"customer_email"`
	CustomerPhone  string          `json:"customer_phone"`
	PremiumDueDate time.Time       `json:"premium_due_date"`
	PremiumAmount  decimal.Decimal `json:"premium_amount"`
}

func (input NewLapseAlert) validate() error {
	if strings.TrimSpace(input.PolicyId) == "" {
		return utils.NewAppError(utils.ErrMissingRequiredField, "policy_id is required")
	}
	if strings.TrimSpace(input.CustomerEmail) == "" {
		return utils.NewAppError(utils.ErrMissingRequiredField, "customer_email is required")
	}
	if input.PremiumDueDate.IsZero() {
		return utils.NewAppError(utils.ErrMissingRequiredField, "premium_due_date is required")
	}
	if !utils.IsValidEmail(input.CustomerEmail) {
		return utils.NewAppError(utils.ErrInvalidLoanParameters, "customer_email is not valid")
	}
	if input.PremiumAmount.IsNegative() {
		return utils.NewAppError(utils.ErrInvalidLoanParameters, "premium amount cannot be negative")
	}
	return nil
}

func (a *LapseAlert) deriveRisk(now time.Time) {
	a.DaysUntilDue, a.RiskLevel = ClassifyRisk(a.PremiumDueDate, now)
}

func CreateLapseAlert(ctx context.Context, input *NewLapseAlert) (*LapseAlert, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	if err := input.validate(); err != nil {
		return nil, err
	}

	alert := LapseAlert{
		BusinessId:     businessId,
		PolicyId:       strings.TrimSpace(input.PolicyId),
		CustomerName:   input.CustomerName,
		CustomerEmail:  strings.TrimSpace(input.CustomerEmail),
		CustomerPhone:  input.CustomerPhone,
		PremiumDueDate: input.PremiumDueDate,
		PremiumAmount:  input.PremiumAmount,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&alert).Error; err != nil {
		return nil, utils.WrapPersistence(err)
	}

	alert.deriveRisk(time.Now())
	return &alert, nil
}

type LapseAlertFilter struct {
	PolicyId  string
	RiskLevel RiskLevel
	Limit     int
}

// ListLapseAlerts returns alerts with freshly derived risk, ordered most
// urgent first (critical tier, then fewest days remaining).
func ListLapseAlerts(ctx context.Context, filter LapseAlertFilter) ([]*LapseAlert, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 200
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Model(&LapseAlert{})
	if filter.PolicyId != "" {
		dbCtx = dbCtx.Where("policy_id = ?", filter.PolicyId)
	}

	var alerts []*LapseAlert
	if err := dbCtx.Order("premium_due_date ASC").Limit(limit).Find(&alerts).Error; err != nil {
		return nil, utils.WrapPersistence(err)
	}

	now := time.Now()
	filtered := make([]*LapseAlert, 0, len(alerts))
	for _, alert := range alerts {
		alert.deriveRisk(now)
		if filter.RiskLevel != "" && alert.RiskLevel != filter.RiskLevel {
			continue
		}
		filtered = append(filtered, alert)
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		if filtered[i].RiskLevel != filtered[j].RiskLevel {
			return filtered[i].RiskLevel.SortRank() < filtered[j].RiskLevel.SortRank()
		}
		return filtered[i].DaysUntilDue < filtered[j].DaysUntilDue
	})
	return filtered, nil
}

// MarkLapseCommunication records that outreach happened for an alert.
// Methods accumulate; repeated marks with the same method are a no-op.
func MarkLapseCommunication(ctx context.Context, alertId int, method string) (*LapseAlert, error) {
	method = strings.TrimSpace(method)
	if method == "" {
		return nil, utils.NewAppError(utils.ErrMissingRequiredField, "communication method is required")
	}

	var alert LapseAlert
	db := config.GetDB()
	if err := db.WithContext(ctx).Where("id = ?", alertId).First(&alert).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NewAppError(utils.ErrLoanNotFound, "lapse alert not found")
		}
		return nil, utils.WrapPersistence(err)
	}

	methods := []string{}
	if alert.CommunicationMethods != "" {
		methods = strings.Split(alert.CommunicationMethods, ",")
	}
	methods = utils.UniqueSlice(append(methods, method))

	updates := map[string]interface{}{
		"communication_sent":    true,
		"communication_methods": strings.Join(methods, ","),
	}
	if err := db.WithContext(ctx).Model(&LapseAlert{}).Where("id = ?", alert.ID).Updates(updates).Error; err != nil {
		return nil, utils.WrapPersistence(err)
	}

	alert.CommunicationSent = true
	alert.CommunicationMethods = strings.Join(methods, ",")
	alert.deriveRisk(time.Now())
	return &alert, nil
}
