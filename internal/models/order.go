package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderStatus represents the aggregate payment state of an order
type OrderStatus string

const (
	OrderStatusPending            OrderStatus = "pending"
	OrderStatusPartiallyCompleted OrderStatus = "partially_completed"
	OrderStatusCompleted          OrderStatus = "completed"
	OrderStatusCancelled          OrderStatus = "cancelled"
)

// Order represents a customer order paid through scheduled installments
type Order struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	ProductID     uint            `gorm:"index" json:"product_id"`
	CustomerName  string          `gorm:"type:varchar(255)" json:"customer_name"`
	CustomerEmail string          `gorm:"type:varchar(255)" json:"customer_email"`
	Status        OrderStatus     `gorm:"type:varchar(50);default:'pending'" json:"status"`
	TotalAmount   decimal.Decimal `gorm:"type:decimal(15,2)" json:"total_amount"`

	// Relationships
	Installments []Installment `gorm:"foreignKey:OrderID" json:"installments,omitempty"`
	SubOrders    []SubOrder    `gorm:"foreignKey:ParentOrderID" json:"sub_orders,omitempty"`
}
