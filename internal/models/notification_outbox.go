package models

import (
	"time"

	"gorm.io/gorm"
)

// NotificationStatus represents the delivery state of an outbox entry
type NotificationStatus string

const (
	NotificationStatusPending   NotificationStatus = "pending"
	NotificationStatusDelivered NotificationStatus = "delivered"
	NotificationStatusDead      NotificationStatus = "dead"
)

// NotificationOutbox holds notification events whose delivery failed.
// A failed send never blocks the status transition that produced it; the
// scanner retries pending entries on its next cycle until MaxAttempts is
// reached.
type NotificationOutbox struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	EventName   string                 `gorm:"type:varchar(100)" json:"event_name"`
	Recipient   string                 `gorm:"type:varchar(255)" json:"recipient"`
	Payload     map[string]interface{} `gorm:"serializer:json" json:"payload"`
	Status      NotificationStatus     `gorm:"type:varchar(20);default:'pending';index" json:"status"`
	Attempts    int                    `json:"attempts"`
	MaxAttempts int                    `json:"max_attempts"`
	LastError   string                 `gorm:"type:text" json:"last_error"`
}
