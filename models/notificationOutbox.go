package models

import (
	"time"
)

// NotificationOutbox is the transactional outbox for reminder notifications:
// rows are written inside the same DB transaction as the reminder and
// published to Pub/Sub asynchronously by the dispatcher after commit.
type NotificationOutbox struct {
	ID              int                 `gorm:"primary_key" json:"id"`
	BusinessId      string              `gorm:"index;not null" json:"business_id"`
	LoanID          int                 `gorm:"index;not null" json:"loan_id"`
	LoanRef         string              `gorm:"size:64;not null" json:"loan_ref"`
	Recipient       string              `gorm:"size:255;not null" json:"recipient"`
	Channel         string              `gorm:"size:32;not null" json:"channel"`
	Payload         []byte              `gorm:"type:longblob" json:"payload"`
	PublishStatus   OutboxPublishStatus `gorm:"size:16;index;not null;default:'PENDING'" json:"publish_status"`
	Attempts        int                 `gorm:"default:0" json:"attempts"`
	LastError       *string             `gorm:"type:text" json:"last_error"`
	NextAttemptAt   *time.Time          `gorm:"index" json:"next_attempt_at"`
	LockedAt        *time.Time          `json:"locked_at"`
	LockedBy        *string             `gorm:"size:64" json:"locked_by"`
	CorrelationId   string              `gorm:"size:64" json:"correlation_id"`
	PubSubMessageId *string             `gorm:"size:64" json:"pub_sub_message_id"`
	PublishedAt     *time.Time          `json:"published_at"`
	CreatedAt       time.Time           `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time           `gorm:"autoUpdateTime" json:"updated_at"`
}
