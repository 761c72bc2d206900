package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PaymentLink is a signed, time-limited token that lets a customer pay a
// specific installment without logging in. Links are keyed by
// (order, installment); regenerating overwrites the previous link so there is
// never more than one valid token per installment.
type PaymentLink struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	OrderID           uint            `gorm:"uniqueIndex:idx_payment_links_order_number,priority:1" json:"order_id"`
	InstallmentNumber int             `gorm:"uniqueIndex:idx_payment_links_order_number,priority:2" json:"installment_number"`
	Token             string          `gorm:"type:varchar(64);index" json:"token"`
	Amount            decimal.Decimal `gorm:"type:decimal(15,2)" json:"amount"`
	ExpiresAt         time.Time       `json:"expires_at"`
	URL               string          `gorm:"type:text" json:"url"`
}
