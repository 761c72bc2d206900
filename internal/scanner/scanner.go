package scanner

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"flexipay/internal/events"
	"flexipay/internal/models"
	"flexipay/internal/schedule"
	"flexipay/internal/status"
)

// Store is the read surface the scanner needs
type Store interface {
	ListOrderIDsWithInstallmentStatus(ctx context.Context, st models.InstallmentStatus) ([]uint, error)
	GetOrder(ctx context.Context, orderID uint) (*models.Order, error)
	ListInstallments(ctx context.Context, orderID uint) ([]models.Installment, error)
	AppendLog(ctx context.Context, entry *models.InstallmentLog) error
}

// LinkGenerator issues payment links for the notifications the scan produces
type LinkGenerator interface {
	Generate(ctx context.Context, orderID uint, inst *models.Installment, isOverdue bool) (*models.PaymentLink, error)
}

// Engine applies the overdue transition; the scanner never writes installment
// state directly
type Engine interface {
	Transition(ctx context.Context, orderID uint, number int, newStatus models.InstallmentStatus, opts *status.TransitionOptions) (models.OrderPaymentSummary, error)
}

// OutboxRetrier re-delivers notifications that failed on a previous cycle
type OutboxRetrier interface {
	RetryPending(ctx context.Context)
}

// Item is one installment surfaced by a scan
type Item struct {
	OrderID           uint            `json:"order_id"`
	InstallmentNumber int             `json:"installment_number"`
	Amount            decimal.Decimal `json:"amount"`
	DueDate           time.Time       `json:"due_date"`
	LinkURL           string          `json:"link_url,omitempty"`
}

// OrderError records a per-order failure that did not stop the sweep
type OrderError struct {
	OrderID uint   `json:"order_id"`
	Message string `json:"message"`
}

// Result summarizes one sweep
type Result struct {
	ScannedOrders int          `json:"scanned_orders"`
	DueSoon       []Item       `json:"due_soon"`
	Overdue       []Item       `json:"overdue"`
	Errors        []OrderError `json:"errors,omitempty"`
}

// Scanner is the periodic sweep over orders with pending installments. It
// finds installments entering the reminder window, flips pending installments
// past their grace period to overdue, and emits the matching notification
// events. Safe to run repeatedly: installments already overdue are skipped,
// so the flip notification fires exactly once.
type Scanner struct {
	store  Store
	engine Engine
	links  LinkGenerator
	bus    status.Emitter
	outbox OutboxRetrier
}

func NewScanner(store Store, engine Engine, links LinkGenerator, bus status.Emitter, outbox OutboxRetrier) *Scanner {
	return &Scanner{store: store, engine: engine, links: links, bus: bus, outbox: outbox}
}

// Scan runs one sweep at the given instant. A failure on one order is
// collected and the sweep continues with the rest.
func (s *Scanner) Scan(ctx context.Context, now time.Time, reminderWindowDays, overdueGraceDays int) (Result, error) {
	result := Result{}

	orderIDs, err := s.store.ListOrderIDsWithInstallmentStatus(ctx, models.InstallmentStatusPending)
	if err != nil {
		return result, fmt.Errorf("failed to list orders with pending installments: %w", err)
	}

	for _, orderID := range orderIDs {
		if ctx.Err() != nil {
			break
		}
		result.ScannedOrders++

		if err := s.scanOrder(ctx, orderID, now, reminderWindowDays, overdueGraceDays, &result); err != nil {
			log.Printf("Scan failed for order %d: %v", orderID, err)
			result.Errors = append(result.Errors, OrderError{OrderID: orderID, Message: err.Error()})
		}
	}

	if s.outbox != nil {
		s.outbox.RetryPending(ctx)
	}

	log.Printf("Scan finished: %d orders, %d due soon, %d overdue, %d errors",
		result.ScannedOrders, len(result.DueSoon), len(result.Overdue), len(result.Errors))
	return result, nil
}

func (s *Scanner) scanOrder(ctx context.Context, orderID uint, now time.Time, reminderWindowDays, overdueGraceDays int, result *Result) error {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if order == nil {
		return fmt.Errorf("order %d not found", orderID)
	}

	installments, err := s.store.ListInstallments(ctx, orderID)
	if err != nil {
		return err
	}

	for i := range installments {
		inst := &installments[i]
		if inst.Status != models.InstallmentStatusPending {
			continue
		}

		switch {
		case pastGrace(now, inst.DueDate, overdueGraceDays):
			item, err := s.markOverdue(ctx, order, inst)
			if err != nil {
				return err
			}
			result.Overdue = append(result.Overdue, item)

		case dueSoon(now, inst.DueDate, reminderWindowDays):
			item, err := s.remind(ctx, order, inst)
			if err != nil {
				return err
			}
			result.DueSoon = append(result.DueSoon, item)
		}
	}

	return nil
}

// pastGrace reports whether the due date plus grace period has elapsed
func pastGrace(now, dueDate time.Time, graceDays int) bool {
	return now.After(dueDate.AddDate(0, 0, graceDays))
}

// dueSoon reports whether dueDate is within the reminder window and not yet
// passed; something already late gets the overdue path, not a reminder
func dueSoon(now, dueDate time.Time, windowDays int) bool {
	if dueDate.Before(now) {
		return false
	}
	return !dueDate.After(now.AddDate(0, 0, windowDays))
}

func (s *Scanner) markOverdue(ctx context.Context, order *models.Order, inst *models.Installment) (Item, error) {
	if _, err := s.engine.Transition(ctx, order.ID, inst.Number, models.InstallmentStatusOverdue, nil); err != nil {
		return Item{}, err
	}

	link, err := s.links.Generate(ctx, order.ID, inst, true)
	if err != nil {
		return Item{}, err
	}

	s.bus.Emit(events.InstallmentOverdue, map[string]interface{}{
		"order_id":           order.ID,
		"installment_number": inst.Number,
		"amount":             inst.Amount.String(),
		"due_date":           inst.DueDate.Format(schedule.DateLayout),
		"payment_link":       link.URL,
		"customer_name":      order.CustomerName,
		"customer_email":     order.CustomerEmail,
	})

	return Item{
		OrderID:           order.ID,
		InstallmentNumber: inst.Number,
		Amount:            inst.Amount,
		DueDate:           inst.DueDate,
		LinkURL:           link.URL,
	}, nil
}

func (s *Scanner) remind(ctx context.Context, order *models.Order, inst *models.Installment) (Item, error) {
	link, err := s.links.Generate(ctx, order.ID, inst, false)
	if err != nil {
		return Item{}, err
	}

	if err := s.store.AppendLog(ctx, &models.InstallmentLog{
		UUID:              uuid.New().String(),
		OrderID:           order.ID,
		InstallmentNumber: inst.Number,
		Type:              models.InstallmentLogTypeReminder,
		Message:           fmt.Sprintf("reminder sent, due %s", inst.DueDate.Format(schedule.DateLayout)),
	}); err != nil {
		log.Printf("Failed to append reminder log for order %d: %v", order.ID, err)
	}

	s.bus.Emit(events.InstallmentDueSoon, map[string]interface{}{
		"order_id":           order.ID,
		"installment_number": inst.Number,
		"amount":             inst.Amount.String(),
		"due_date":           inst.DueDate.Format(schedule.DateLayout),
		"payment_link":       link.URL,
		"customer_name":      order.CustomerName,
		"customer_email":     order.CustomerEmail,
	})

	return Item{
		OrderID:           order.ID,
		InstallmentNumber: inst.Number,
		Amount:            inst.Amount,
		DueDate:           inst.DueDate,
		LinkURL:           link.URL,
	}, nil
}
