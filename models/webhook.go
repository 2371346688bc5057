package models

import (
	"time"
)

type WebhookOutcome string

const (
	WebhookOutcomeFulfilled WebhookOutcome = "fulfilled"
	WebhookOutcomeDuplicate WebhookOutcome = "duplicate"
	WebhookOutcomeSkipped   WebhookOutcome = "skipped"
	WebhookOutcomeRejected  WebhookOutcome = "rejected"
	WebhookOutcomeError     WebhookOutcome = "error"
)

// WebhookEvent is the audit trail of inbound processor notifications, kept
// for manual reconciliation. Recording it never blocks the handler.
type WebhookEvent struct {
	ID            string         `json:"id" gorm:"primaryKey;type:uuid"`
	Provider      string         `json:"provider" gorm:"not null"`
	PaymentID     string         `json:"payment_id" gorm:"index"`
	CorrelationID string         `json:"correlation_id" gorm:"index"`
	Status        string         `json:"status"`
	Outcome       WebhookOutcome `json:"outcome" gorm:"not null"`
	Payload       JSON           `json:"payload" gorm:"type:jsonb"`
	CreatedAt     time.Time      `json:"created_at" gorm:"autoCreateTime"`
}
