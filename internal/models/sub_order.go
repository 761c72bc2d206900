package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SubOrderStatus represents the checkout state of a sub-order
type SubOrderStatus string

const (
	SubOrderStatusPending   SubOrderStatus = "pending"
	SubOrderStatusCompleted SubOrderStatus = "completed"
	SubOrderStatusCancelled SubOrderStatus = "cancelled"
)

// SubOrder is an auxiliary order created to collect a single installment's
// payment through the regular checkout flow. Completing its gateway
// transaction is what marks the parent installment completed.
type SubOrder struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	Number            string          `gorm:"type:varchar(100);uniqueIndex" json:"number"`
	ParentOrderID     uint            `gorm:"index" json:"parent_order_id"`
	InstallmentNumber int             `json:"installment_number"`
	Amount            decimal.Decimal `gorm:"type:decimal(15,2)" json:"amount"`
	Status            SubOrderStatus  `gorm:"type:varchar(20);default:'pending'" json:"status"`
	GatewayOrderID    string          `gorm:"type:varchar(100);index" json:"gateway_order_id"`
	IsActive          bool            `gorm:"default:true" json:"is_active"`
	RequestMetadata   json.RawMessage `gorm:"type:jsonb" json:"request_metadata"`
	ResponseMetadata  json.RawMessage `gorm:"type:jsonb" json:"response_metadata"`

	// Relationships
	ParentOrder Order `gorm:"foreignKey:ParentOrderID" json:"parent_order,omitempty"`
}
