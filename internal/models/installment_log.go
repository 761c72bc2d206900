package models

import (
	"time"
)

// InstallmentLogType classifies an audit log entry
type InstallmentLogType string

const (
	InstallmentLogTypeStatusChange InstallmentLogType = "status_change"
	InstallmentLogTypeReminder     InstallmentLogType = "reminder"
	InstallmentLogTypeLink         InstallmentLogType = "link"
	InstallmentLogTypeGateway      InstallmentLogType = "gateway"
)

// InstallmentLog is an append-only audit trail entry for an installment.
// Rows are only ever inserted.
type InstallmentLog struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	UUID              string             `gorm:"type:varchar(36);uniqueIndex" json:"uuid"`
	OrderID           uint               `gorm:"index" json:"order_id"`
	InstallmentNumber int                `json:"installment_number"`
	Type              InstallmentLogType `gorm:"type:varchar(30)" json:"type"`
	Message           string             `gorm:"type:text" json:"message"`
}
