package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ScheduleEntry is one row of a product's installment payment template.
// The template is merchant-defined and independent of any order; the order's
// installments are materialized from it at checkout time.
type ScheduleEntry struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	ProductID         uint            `gorm:"uniqueIndex:idx_schedule_entries_product_number,priority:1" json:"product_id"`
	InstallmentNumber int             `gorm:"uniqueIndex:idx_schedule_entries_product_number,priority:2" json:"installment_number"`
	Amount            decimal.Decimal `gorm:"type:decimal(15,2)" json:"amount"`
	DueDate           time.Time       `json:"due_date"`
	Description       string          `gorm:"type:varchar(255)" json:"description"`
}
