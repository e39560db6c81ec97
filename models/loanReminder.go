package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mmdatafocus/loans_backend/config"
	"github.com/mmdatafocus/loans_backend/utils"
	"gorm.io/gorm"
)

// LoanReminder records that a payment reminder was scheduled for a loan.
// Delivery belongs to the notification subscriber; status "sent" means the
// outbox row was written, not that the customer received anything.
type LoanReminder struct {
	ID           int            `gorm:"primary_key" json:"id"`
	BusinessId   string         `gorm:"index;not null" json:"business_id"`
	LoanID       int            `gorm:"index;not null" json:"loan_id"`
	LoanRef      string         `gorm:"size:64;index;not null" json:"loan_ref"`
	Recipient    string         `gorm:"size:255;not null" json:"recipient"`
	Channel      string         `gorm:"size:32;not null;default:'email'" json:"channel"`
	ReminderType string         `gorm:"size:32" json:"reminder_type"`
	Message      string         `gorm:"type:text" json:"message"`
	DueDate      *time.Time     `json:"due_date"`
	Status       ReminderStatus `gorm:"size:32;not null" json:"status"`
	SentDate     time.Time      `gorm:"not null" json:"sent_date"`
	CreatedAt    time.Time      `gorm:"autoCreateTime" json:"created_at"`
}

type NewLoanReminder struct {
	ReminderType string     `json:"reminder_type"`
	Channel      string     `json:"channel"`
	Message      string     `json:"message"`
	DueDate      *time.Time `json:"due_date"`
}

// ScheduleLoanReminder appends a reminder to the loan's history and writes the
// notification outbox row in the same transaction, so a reminder is never
// recorded without a pending notification (or vice versa). Returns the loan
// with the reminder appended.
func ScheduleLoanReminder(ctx context.Context, loanId string, input *NewLoanReminder) (*Loan, error) {
	businessId, ok := utils.GetBusinessIdFromContext(ctx)
	if !ok || businessId == "" {
		return nil, errors.New("business id is required")
	}

	channel := strings.TrimSpace(input.Channel)
	if channel == "" {
		channel = "email"
	}

	correlationId, _ := utils.GetCorrelationIdFromContext(ctx)
	if correlationId == "" {
		correlationId = uuid.NewString()
	}

	db := config.GetDB()
	var reminder LoanReminder
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var loan Loan
		if err := tx.Where("loan_id = ?", loanId).First(&loan).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return utils.NewAppError(utils.ErrLoanNotFound, "loan not found: "+loanId)
			}
			return utils.WrapPersistence(err)
		}

		now := time.Now().UTC()
		reminder = LoanReminder{
			BusinessId:   businessId,
			LoanID:       loan.ID,
			LoanRef:      loan.LoanId,
			Recipient:    loan.Email,
			Channel:      channel,
			ReminderType: input.ReminderType,
			Message:      input.Message,
			DueDate:      input.DueDate,
			Status:       ReminderStatusSent,
			SentDate:     now,
		}
		if err := tx.Create(&reminder).Error; err != nil {
			return utils.WrapPersistence(err)
		}

		scheduledBy, _ := utils.GetUserNameFromContext(ctx)
		payload, err := utils.MarshalToJSON(map[string]interface{}{
			"loan_id":          loan.LoanId,
			"full_name":        loan.FullName,
			"installment":      loan.Installment,
			"remaining_amount": loan.RemainingAmount,
			"reminder_type":    input.ReminderType,
			"message":          input.Message,
			"due_date":         input.DueDate,
			"scheduled_by":     scheduledBy,
		})
		if err != nil {
			return err
		}

		outbox := NotificationOutbox{
			BusinessId:    businessId,
			LoanID:        loan.ID,
			LoanRef:       loan.LoanId,
			Recipient:     loan.Email,
			Channel:       channel,
			Payload:       payload,
			PublishStatus: OutboxPublishStatusPending,
			CorrelationId: correlationId,
		}
		if err := tx.Create(&outbox).Error; err != nil {
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

// ListLoanReminders returns a loan's reminder history newest-first.
func ListLoanReminders(ctx context.Context, loanId string) ([]*LoanReminder, error) {
	loan, err := getLoanForUpdate(ctx, loanId)
	if err != nil {
		return nil, err
	}

	var reminders []*LoanReminder
	db := config.GetDB()
	if err := db.WithContext(ctx).Where("loan_id = ?", loan.ID).
		Order("sent_date DESC, id DESC").Find(&reminders).Error; err != nil {
		return nil, utils.WrapPersistence(err)
	}
	return reminders, nil
}
