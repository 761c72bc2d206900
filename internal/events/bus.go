package events

import (
	"log"
	"sync"
)

// Event names emitted by the core. The notification dispatcher is the only
// intended listener; business logic never sends email directly.
const (
	InstallmentStatusChanged = "installment.status_changed"
	InstallmentDueSoon       = "installment.due_soon"
	InstallmentOverdue       = "installment.overdue"
	OrderCompleted           = "order.completed"
)

// Handler receives an event name and its payload
type Handler func(event string, payload map[string]interface{})

// Bus is a small in-process pub/sub registry. Handlers are invoked
// synchronously in registration order; a panicking handler does not take
// down the emitter.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
}

// NewBus creates an empty event bus
func NewBus() *Bus {
	return &Bus{handlers: make(map[string][]Handler)}
}

// On registers a handler for an event name
func (b *Bus) On(event string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[event] = append(b.handlers[event], handler)
}

// Emit delivers the payload to every handler registered for the event
func (b *Bus) Emit(event string, payload map[string]interface{}) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event]))
	copy(handlers, b.handlers[event])
	b.mu.RUnlock()

	for _, handler := range handlers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("Event handler for %s panicked: %v", event, r)
				}
			}()
			handler(event, payload)
		}()
	}
}
