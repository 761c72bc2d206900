package notifications

import (
	"context"
	"errors"
	"strings"
	"testing"

	"flexipay/internal/events"
	"flexipay/internal/models"
)

type sentMail struct {
	to      []string
	subject string
	body    string
}

type fakeSender struct {
	failures int
	sent     []sentMail
}

func (s *fakeSender) SendEmail(to []string, subject, body string) error {
	if s.failures > 0 {
		s.failures--
		return errors.New("smtp connection refused")
	}
	s.sent = append(s.sent, sentMail{to: to, subject: subject, body: body})
	return nil
}

type fakeOutbox struct {
	entries []models.NotificationOutbox
	nextID  uint
}

func (s *fakeOutbox) CreateOutbox(_ context.Context, entry *models.NotificationOutbox) error {
	s.nextID++
	entry.ID = s.nextID
	s.entries = append(s.entries, *entry)
	return nil
}

func (s *fakeOutbox) ListPendingOutbox(_ context.Context, limit int) ([]models.NotificationOutbox, error) {
	var out []models.NotificationOutbox
	for _, e := range s.entries {
		if e.Status == models.NotificationStatusPending {
			out = append(out, e)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *fakeOutbox) SaveOutbox(_ context.Context, entry *models.NotificationOutbox) error {
	for i := range s.entries {
		if s.entries[i].ID == entry.ID {
			s.entries[i] = *entry
			return nil
		}
	}
	s.entries = append(s.entries, *entry)
	return nil
}

func dueSoonPayload() map[string]interface{} {
	return map[string]interface{}{
		"order_id":           uint(7),
		"installment_number": 2,
		"amount":             "500",
		"due_date":           "2025-02-01",
		"payment_link":       "https://pay.example.com/p/pay/7/2?token=abc",
		"customer_name":      "Budi",
		"customer_email":     "budi@example.com",
	}
}

func TestDispatcherSendsRenderedEmail(t *testing.T) {
	sender := &fakeSender{}
	dispatcher := NewDispatcher(sender, &fakeOutbox{})

	bus := events.NewBus()
	dispatcher.Register(bus)
	bus.Emit(events.InstallmentDueSoon, dueSoonPayload())

	if len(sender.sent) != 1 {
		t.Fatalf("sent = %d mails, want 1", len(sender.sent))
	}
	mail := sender.sent[0]
	if len(mail.to) != 1 || mail.to[0] != "budi@example.com" {
		t.Errorf("to = %v, want customer email", mail.to)
	}
	if !strings.Contains(mail.subject, "#7") {
		t.Errorf("subject %q missing order id", mail.subject)
	}
	for _, want := range []string{"Budi", "500", "2025-02-01", "https://pay.example.com/p/pay/7/2?token=abc"} {
		if !strings.Contains(mail.body, want) {
			t.Errorf("body missing %q:\n%s", want, mail.body)
		}
	}
	if strings.Contains(mail.body, "$") {
		t.Errorf("body has unreplaced placeholder:\n%s", mail.body)
	}
}

func TestDispatcherSkipsWithoutRecipient(t *testing.T) {
	sender := &fakeSender{}
	outbox := &fakeOutbox{}
	dispatcher := NewDispatcher(sender, outbox)

	payload := dueSoonPayload()
	delete(payload, "customer_email")
	dispatcher.handle(events.InstallmentDueSoon, payload)

	if len(sender.sent) != 0 {
		t.Errorf("sent = %d mails, want 0", len(sender.sent))
	}
	if len(outbox.entries) != 0 {
		t.Errorf("outbox = %d entries, want 0", len(outbox.entries))
	}
}

// Processing and overdue status changes never produce the generic update
// mail; the overdue flip is announced by the scanner's own notice instead
func TestDispatcherMutesInternalStatusChanges(t *testing.T) {
	sender := &fakeSender{}
	dispatcher := NewDispatcher(sender, &fakeOutbox{})

	payload := dueSoonPayload()
	payload["previous_status"] = "pending"

	payload["status"] = "processing"
	dispatcher.handle(events.InstallmentStatusChanged, payload)
	payload["status"] = "overdue"
	dispatcher.handle(events.InstallmentStatusChanged, payload)
	if len(sender.sent) != 0 {
		t.Fatalf("sent = %d mails for muted statuses, want 0", len(sender.sent))
	}

	payload["status"] = "completed"
	dispatcher.handle(events.InstallmentStatusChanged, payload)
	if len(sender.sent) != 1 {
		t.Errorf("sent = %d mails for completed status, want 1", len(sender.sent))
	}
}

func TestDispatcherEnqueuesOnFailure(t *testing.T) {
	sender := &fakeSender{failures: 1}
	outbox := &fakeOutbox{}
	dispatcher := NewDispatcher(sender, outbox)

	dispatcher.handle(events.InstallmentOverdue, dueSoonPayload())

	if len(outbox.entries) != 1 {
		t.Fatalf("outbox = %d entries, want 1", len(outbox.entries))
	}
	entry := outbox.entries[0]
	if entry.Status != models.NotificationStatusPending {
		t.Errorf("status = %s, want pending", entry.Status)
	}
	if entry.Attempts != 1 {
		t.Errorf("attempts = %d, want 1", entry.Attempts)
	}
	if entry.Recipient != "budi@example.com" {
		t.Errorf("recipient = %q", entry.Recipient)
	}
	if entry.LastError == "" {
		t.Error("LastError empty")
	}
}

func TestRetryPendingDelivers(t *testing.T) {
	sender := &fakeSender{failures: 1}
	outbox := &fakeOutbox{}
	dispatcher := NewDispatcher(sender, outbox)

	dispatcher.handle(events.InstallmentDueSoon, dueSoonPayload())
	if len(outbox.entries) != 1 {
		t.Fatalf("setup: outbox = %d entries, want 1", len(outbox.entries))
	}

	// Sender works again on the retry cycle
	dispatcher.RetryPending(context.Background())

	if len(sender.sent) != 1 {
		t.Fatalf("sent = %d mails after retry, want 1", len(sender.sent))
	}
	if outbox.entries[0].Status != models.NotificationStatusDelivered {
		t.Errorf("status = %s, want delivered", outbox.entries[0].Status)
	}
	if outbox.entries[0].LastError != "" {
		t.Errorf("LastError = %q, want empty", outbox.entries[0].LastError)
	}

	// Delivered entries are not retried again
	dispatcher.RetryPending(context.Background())
	if len(sender.sent) != 1 {
		t.Errorf("sent = %d mails after second retry, want 1", len(sender.sent))
	}
}

func TestRetryPendingMarksDead(t *testing.T) {
	sender := &fakeSender{failures: 10}
	outbox := &fakeOutbox{}
	dispatcher := NewDispatcher(sender, outbox)

	dispatcher.handle(events.InstallmentDueSoon, dueSoonPayload())

	dispatcher.RetryPending(context.Background())
	if outbox.entries[0].Status != models.NotificationStatusPending {
		t.Fatalf("status after 2 attempts = %s, want pending", outbox.entries[0].Status)
	}
	if outbox.entries[0].Attempts != 2 {
		t.Fatalf("attempts = %d, want 2", outbox.entries[0].Attempts)
	}

	dispatcher.RetryPending(context.Background())
	if outbox.entries[0].Status != models.NotificationStatusDead {
		t.Errorf("status after 3 attempts = %s, want dead", outbox.entries[0].Status)
	}
	if outbox.entries[0].Attempts != 3 {
		t.Errorf("attempts = %d, want 3", outbox.entries[0].Attempts)
	}

	// Dead entries never come back
	dispatcher.RetryPending(context.Background())
	if outbox.entries[0].Attempts != 3 {
		t.Errorf("dead entry was retried, attempts = %d", outbox.entries[0].Attempts)
	}
}

func TestReplacePlaceholdersLongestKeyWins(t *testing.T) {
	got := replacePlaceholders("link: $payment_link payment: $payment", map[string]interface{}{
		"payment":      "X",
		"payment_link": "https://example.com",
	})
	want := "link: https://example.com payment: X"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
