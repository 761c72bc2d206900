package status

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"flexipay/internal/events"
	"flexipay/internal/models"
	"flexipay/internal/schedule"
	"flexipay/internal/services"
)

var (
	ErrUnknownStatus       = errors.New("unknown installment status")
	ErrInstallmentNotFound = errors.New("installment not found")
	ErrInvalidTransition   = errors.New("invalid status transition")
)

// Store is the persistence surface the engine needs. All installment
// mutation in the system goes through the engine so the summary recompute
// invariant holds.
type Store interface {
	GetOrder(ctx context.Context, orderID uint) (*models.Order, error)
	GetInstallment(ctx context.Context, orderID uint, number int) (*models.Installment, error)
	ListInstallments(ctx context.Context, orderID uint) ([]models.Installment, error)
	SaveInstallment(ctx context.Context, inst *models.Installment) error
	UpdateOrderStatus(ctx context.Context, orderID uint, status models.OrderStatus) error
	AppendLog(ctx context.Context, entry *models.InstallmentLog) error
}

// Emitter publishes domain events; the notification dispatcher listens on it
type Emitter interface {
	Emit(event string, payload map[string]interface{})
}

// Locker serializes order writers across processes. Optional: the engine
// always holds an in-process per-order mutex, the distributed lock only
// matters when several instances share one database.
type Locker interface {
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error)
	ReleaseLock(ctx context.Context, key, token string) error
}

// Engine applies installment status transitions and keeps the order-level
// summary consistent. One writer at a time per order.
type Engine struct {
	store  Store
	bus    Emitter
	clock  services.Clock
	locker Locker

	lockTTL time.Duration

	mu         sync.Mutex
	orderLocks map[uint]*sync.Mutex
}

func NewEngine(store Store, bus Emitter, clock services.Clock, locker Locker) *Engine {
	return &Engine{
		store:      store,
		bus:        bus,
		clock:      clock,
		locker:     locker,
		lockTTL:    30 * time.Second,
		orderLocks: make(map[uint]*sync.Mutex),
	}
}

// TransitionOptions carries optional payment metadata recorded with a transition
type TransitionOptions struct {
	PaymentDate   *time.Time
	TransactionID *string
	Note          string
}

// Transition moves one installment to newStatus and recomputes the order
// summary by folding over every installment of the order. Repeating a
// transition with the same target status is a no-op that returns the same
// summary.
func (e *Engine) Transition(ctx context.Context, orderID uint, number int, newStatus models.InstallmentStatus, opts *TransitionOptions) (models.OrderPaymentSummary, error) {
	if !newStatus.Valid() {
		return models.OrderPaymentSummary{}, fmt.Errorf("%w: %q", ErrUnknownStatus, newStatus)
	}

	unlock, err := e.lockOrder(ctx, orderID)
	if err != nil {
		return models.OrderPaymentSummary{}, err
	}
	defer unlock()

	inst, err := e.store.GetInstallment(ctx, orderID, number)
	if err != nil {
		return models.OrderPaymentSummary{}, err
	}
	if inst == nil {
		return models.OrderPaymentSummary{}, fmt.Errorf("%w: order %d installment %d", ErrInstallmentNotFound, orderID, number)
	}

	prev := inst.Status
	if !prev.CanTransitionTo(newStatus) {
		return models.OrderPaymentSummary{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, prev, newStatus)
	}

	changed := prev != newStatus
	if changed {
		inst.Status = newStatus
		if opts != nil {
			if opts.PaymentDate != nil {
				inst.PaymentDate = opts.PaymentDate
			}
			if opts.TransactionID != nil {
				inst.TransactionID = opts.TransactionID
			}
		}
		if newStatus == models.InstallmentStatusCompleted && inst.PaymentDate == nil {
			now := e.clock.Now()
			inst.PaymentDate = &now
		}
		if err := e.store.SaveInstallment(ctx, inst); err != nil {
			return models.OrderPaymentSummary{}, err
		}
	}

	// Full recompute rather than an incremental update keeps the summary
	// consistent even after a partial prior write.
	installments, err := e.store.ListInstallments(ctx, orderID)
	if err != nil {
		return models.OrderPaymentSummary{}, err
	}
	summary := models.ComputeSummary(orderID, installments)

	if err := e.store.UpdateOrderStatus(ctx, orderID, models.DeriveOrderStatus(summary)); err != nil {
		return summary, err
	}

	if changed {
		message := fmt.Sprintf("status changed from %s to %s", prev, newStatus)
		if opts != nil && opts.Note != "" {
			message += ": " + opts.Note
		}
		if err := e.store.AppendLog(ctx, &models.InstallmentLog{
			UUID:              uuid.New().String(),
			OrderID:           orderID,
			InstallmentNumber: number,
			Type:              models.InstallmentLogTypeStatusChange,
			Message:           message,
		}); err != nil {
			log.Printf("Failed to append installment log for order %d: %v", orderID, err)
		}

		e.emitStatusChanged(ctx, orderID, inst, prev, summary)
	}

	return summary, nil
}

func (e *Engine) emitStatusChanged(ctx context.Context, orderID uint, inst *models.Installment, prev models.InstallmentStatus, summary models.OrderPaymentSummary) {
	payload := map[string]interface{}{
		"order_id":           orderID,
		"installment_number": inst.Number,
		"status":             string(inst.Status),
		"previous_status":    string(prev),
		"amount":             inst.Amount.String(),
		"due_date":           inst.DueDate.Format(schedule.DateLayout),
	}

	order, err := e.store.GetOrder(ctx, orderID)
	if err != nil {
		log.Printf("Failed to load order %d for event payload: %v", orderID, err)
	} else if order != nil {
		payload["customer_name"] = order.CustomerName
		payload["customer_email"] = order.CustomerEmail
	}

	e.bus.Emit(events.InstallmentStatusChanged, payload)

	if summary.AllCompleted {
		e.bus.Emit(events.OrderCompleted, map[string]interface{}{
			"order_id":           orderID,
			"total_installments": summary.TotalInstallments,
			"paid_amount":        summary.PaidAmount.String(),
			"customer_name":      payload["customer_name"],
			"customer_email":     payload["customer_email"],
		})
	}
}

// lockOrder takes the per-order in-process mutex and, when a distributed
// locker is configured, the cross-process lock as well
func (e *Engine) lockOrder(ctx context.Context, orderID uint) (func(), error) {
	e.mu.Lock()
	m, ok := e.orderLocks[orderID]
	if !ok {
		m = &sync.Mutex{}
		e.orderLocks[orderID] = m
	}
	e.mu.Unlock()

	m.Lock()

	if e.locker == nil {
		return m.Unlock, nil
	}

	key := fmt.Sprintf("flexipay:order-lock:%d", orderID)
	deadline := time.Now().Add(e.lockTTL)
	for {
		token, ok, err := e.locker.AcquireLock(ctx, key, e.lockTTL)
		if err != nil {
			// Degrade to the in-process lock rather than failing the transition
			log.Printf("Distributed lock for order %d unavailable: %v", orderID, err)
			return m.Unlock, nil
		}
		if ok {
			return func() {
				if err := e.locker.ReleaseLock(context.Background(), key, token); err != nil {
					log.Printf("Failed to release lock for order %d: %v", orderID, err)
				}
				m.Unlock()
			}, nil
		}
		if time.Now().After(deadline) {
			m.Unlock()
			return nil, fmt.Errorf("timed out waiting for order %d lock", orderID)
		}
		select {
		case <-ctx.Done():
			m.Unlock()
			return nil, ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}
}
