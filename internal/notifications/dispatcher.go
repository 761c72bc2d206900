package notifications

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"flexipay/internal/events"
	"flexipay/internal/models"
)

// Sender delivers a rendered notification; in production this is the SMTP
// email service
type Sender interface {
	SendEmail(to []string, subject, body string) error
}

// OutboxStore persists notifications whose delivery failed so the next scan
// cycle can retry them
type OutboxStore interface {
	CreateOutbox(ctx context.Context, entry *models.NotificationOutbox) error
	ListPendingOutbox(ctx context.Context, limit int) ([]models.NotificationOutbox, error)
	SaveOutbox(ctx context.Context, entry *models.NotificationOutbox) error
}

// template pairs a subject line with a body; $placeholders are filled from
// the event payload
type template struct {
	subject string
	body    string
}

var templates = map[string]template{
	events.InstallmentStatusChanged: {
		subject: "Payment update for order #$order_id",
		body: "Hi $customer_name,\n\n" +
			"Installment $installment_number of your order #$order_id changed from $previous_status to $status.\n" +
			"Amount: $amount, due $due_date.\n",
	},
	events.InstallmentDueSoon: {
		subject: "Upcoming installment for order #$order_id",
		body: "Hi $customer_name,\n\n" +
			"Installment $installment_number of your order #$order_id ($amount) is due on $due_date.\n" +
			"You can pay here: $payment_link\n",
	},
	events.InstallmentOverdue: {
		subject: "Overdue installment for order #$order_id",
		body: "Hi $customer_name,\n\n" +
			"Installment $installment_number of your order #$order_id ($amount) was due on $due_date and is now overdue.\n" +
			"Please pay as soon as possible: $payment_link\n",
	},
	events.OrderCompleted: {
		subject: "Order #$order_id fully paid",
		body: "Hi $customer_name,\n\n" +
			"All $total_installments installments of your order #$order_id are paid. Total: $paid_amount.\n" +
			"Thank you!\n",
	},
}

// statusChangeMuted lists statuses whose generic update mail is skipped: an
// overdue flip gets its own notice with a payment link from the scanner, and
// processing is an internal checkout step the customer triggered themselves.
var statusChangeMuted = map[string]bool{
	string(models.InstallmentStatusProcessing): true,
	string(models.InstallmentStatusOverdue):    true,
}

// Dispatcher turns domain events into outbound email. Delivery failures are
// written to the outbox and never propagate back into the state machine.
type Dispatcher struct {
	sender      Sender
	store       OutboxStore
	maxAttempts int
}

func NewDispatcher(sender Sender, store OutboxStore) *Dispatcher {
	return &Dispatcher{sender: sender, store: store, maxAttempts: 3}
}

// Register subscribes the dispatcher to every event it knows how to render
func (d *Dispatcher) Register(bus *events.Bus) {
	for event := range templates {
		bus.On(event, d.handle)
	}
}

func (d *Dispatcher) handle(event string, payload map[string]interface{}) {
	if event == events.InstallmentStatusChanged {
		if st, _ := payload["status"].(string); statusChangeMuted[st] {
			return
		}
	}

	recipient, _ := payload["customer_email"].(string)
	if recipient == "" {
		log.Printf("Skipping %s notification: no recipient in payload", event)
		return
	}

	subject, body, err := render(event, payload)
	if err != nil {
		log.Printf("Cannot render %s notification: %v", event, err)
		return
	}

	if err := d.sender.SendEmail([]string{recipient}, subject, body); err != nil {
		log.Printf("Failed to send %s notification to %s: %v", event, recipient, err)
		d.enqueue(event, recipient, payload, err)
	}
}

func (d *Dispatcher) enqueue(event, recipient string, payload map[string]interface{}, sendErr error) {
	if d.store == nil {
		return
	}
	entry := &models.NotificationOutbox{
		EventName:   event,
		Recipient:   recipient,
		Payload:     payload,
		Status:      models.NotificationStatusPending,
		Attempts:    1,
		MaxAttempts: d.maxAttempts,
		LastError:   sendErr.Error(),
	}
	if err := d.store.CreateOutbox(context.Background(), entry); err != nil {
		log.Printf("Failed to enqueue %s notification for retry: %v", event, err)
	}
}

// RetryPending re-delivers queued notifications. Entries that keep failing
// past their attempt budget are marked dead and left for inspection.
func (d *Dispatcher) RetryPending(ctx context.Context) {
	if d.store == nil {
		return
	}

	pending, err := d.store.ListPendingOutbox(ctx, 100)
	if err != nil {
		log.Printf("Failed to list pending notifications: %v", err)
		return
	}

	for i := range pending {
		entry := &pending[i]

		subject, body, err := render(entry.EventName, entry.Payload)
		if err != nil {
			entry.Status = models.NotificationStatusDead
			entry.LastError = err.Error()
			d.save(ctx, entry)
			continue
		}

		if err := d.sender.SendEmail([]string{entry.Recipient}, subject, body); err != nil {
			entry.Attempts++
			entry.LastError = err.Error()
			if entry.Attempts >= entry.MaxAttempts {
				entry.Status = models.NotificationStatusDead
				log.Printf("Notification %d to %s dead after %d attempts", entry.ID, entry.Recipient, entry.Attempts)
			}
			d.save(ctx, entry)
			continue
		}

		entry.Status = models.NotificationStatusDelivered
		entry.LastError = ""
		d.save(ctx, entry)
	}
}

func (d *Dispatcher) save(ctx context.Context, entry *models.NotificationOutbox) {
	if err := d.store.SaveOutbox(ctx, entry); err != nil {
		log.Printf("Failed to update outbox entry %d: %v", entry.ID, err)
	}
}

func render(event string, payload map[string]interface{}) (subject, body string, err error) {
	tmpl, ok := templates[event]
	if !ok {
		return "", "", fmt.Errorf("no template for event %s", event)
	}
	return replacePlaceholders(tmpl.subject, payload), replacePlaceholders(tmpl.body, payload), nil
}

// replacePlaceholders substitutes $key occurrences with payload values.
// Longer keys are replaced first so $payment_link wins over $payment.
func replacePlaceholders(text string, payload map[string]interface{}) string {
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return len(keys[i]) > len(keys[j]) })

	for _, k := range keys {
		text = strings.ReplaceAll(text, "$"+k, fmt.Sprintf("%v", payload[k]))
	}
	return text
}
