package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// InstallmentStatus represents the payment state of a single installment
type InstallmentStatus string

const (
	InstallmentStatusPending    InstallmentStatus = "pending"
	InstallmentStatusProcessing InstallmentStatus = "processing"
	InstallmentStatusCompleted  InstallmentStatus = "completed"
	InstallmentStatusFailed     InstallmentStatus = "failed"
	InstallmentStatusOverdue    InstallmentStatus = "overdue"
	InstallmentStatusCancelled  InstallmentStatus = "cancelled"
)

// Valid reports whether s is a known installment status
func (s InstallmentStatus) Valid() bool {
	switch s {
	case InstallmentStatusPending, InstallmentStatusProcessing, InstallmentStatusCompleted,
		InstallmentStatusFailed, InstallmentStatusOverdue, InstallmentStatusCancelled:
		return true
	}
	return false
}

// allowedTransitions encodes the installment state machine.
// Overdue never goes back to pending; completed and cancelled are terminal.
var allowedTransitions = map[InstallmentStatus][]InstallmentStatus{
	InstallmentStatusPending:    {InstallmentStatusProcessing, InstallmentStatusCompleted, InstallmentStatusOverdue, InstallmentStatusCancelled},
	InstallmentStatusProcessing: {InstallmentStatusCompleted, InstallmentStatusFailed, InstallmentStatusCancelled},
	InstallmentStatusFailed:     {InstallmentStatusPending, InstallmentStatusProcessing, InstallmentStatusCancelled},
	InstallmentStatusOverdue:    {InstallmentStatusProcessing, InstallmentStatusCompleted, InstallmentStatusCancelled},
	InstallmentStatusCompleted:  {},
	InstallmentStatusCancelled:  {},
}

// CanTransitionTo reports whether the state machine allows moving from s to next.
// A transition to the same status is always allowed so that repeated calls
// stay idempotent.
func (s InstallmentStatus) CanTransitionTo(next InstallmentStatus) bool {
	if s == next {
		return true
	}
	for _, allowed := range allowedTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition can leave s
func (s InstallmentStatus) Terminal() bool {
	return len(allowedTransitions[s]) == 0
}

// Installment is one scheduled partial payment belonging to an order.
// Rows are created once at checkout and only ever mutated, never deleted,
// so the payment history stays auditable.
type Installment struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	OrderID       uint              `gorm:"uniqueIndex:idx_installments_order_number,priority:1" json:"order_id"`
	Number        int               `gorm:"uniqueIndex:idx_installments_order_number,priority:2" json:"number"`
	Amount        decimal.Decimal   `gorm:"type:decimal(15,2)" json:"amount"`
	DueDate       time.Time         `gorm:"index" json:"due_date"`
	Status        InstallmentStatus `gorm:"type:varchar(20);default:'pending';index" json:"status"`
	PaymentDate   *time.Time        `json:"payment_date,omitempty"`
	TransactionID *string           `gorm:"type:varchar(100)" json:"transaction_id,omitempty"`

	// Relationships
	Order Order `gorm:"foreignKey:OrderID" json:"order,omitempty"`
}

// OrderPaymentSummary is the aggregate view over an order's installments.
// It is always recomputed by folding over the installment list and is never
// persisted as an independent source of truth.
type OrderPaymentSummary struct {
	OrderID           uint            `json:"order_id"`
	TotalInstallments int             `json:"total_installments"`
	PaidInstallments  int             `json:"paid_installments"`
	TotalAmount       decimal.Decimal `json:"total_amount"`
	PaidAmount        decimal.Decimal `json:"paid_amount"`
	PendingAmount     decimal.Decimal `json:"pending_amount"`
	NextDueDate       *time.Time      `json:"next_due_date,omitempty"`
	AllCompleted      bool            `json:"all_completed"`
}

// ComputeSummary folds over an order's installments and derives the summary
func ComputeSummary(orderID uint, installments []Installment) OrderPaymentSummary {
	summary := OrderPaymentSummary{
		OrderID:           orderID,
		TotalInstallments: len(installments),
		TotalAmount:       decimal.Zero,
		PaidAmount:        decimal.Zero,
		PendingAmount:     decimal.Zero,
	}

	for _, inst := range installments {
		summary.TotalAmount = summary.TotalAmount.Add(inst.Amount)

		switch inst.Status {
		case InstallmentStatusCompleted:
			summary.PaidInstallments++
			summary.PaidAmount = summary.PaidAmount.Add(inst.Amount)
		case InstallmentStatusCancelled:
			// cancelled installments count toward neither paid nor pending
		default:
			summary.PendingAmount = summary.PendingAmount.Add(inst.Amount)
			due := inst.DueDate
			if summary.NextDueDate == nil || due.Before(*summary.NextDueDate) {
				summary.NextDueDate = &due
			}
		}
	}

	summary.AllCompleted = len(installments) > 0 && summary.PaidInstallments == summary.TotalInstallments
	return summary
}

// DeriveOrderStatus maps a summary onto the order-level status
func DeriveOrderStatus(summary OrderPaymentSummary) OrderStatus {
	if summary.AllCompleted {
		return OrderStatusCompleted
	}
	if summary.PaidInstallments > 0 {
		return OrderStatusPartiallyCompleted
	}
	return OrderStatusPending
}
