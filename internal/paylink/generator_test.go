package paylink

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"flexipay/internal/models"
	"flexipay/internal/services"
)

type memLinkStore struct {
	links map[[2]uint]*models.PaymentLink
}

func newMemLinkStore() *memLinkStore {
	return &memLinkStore{links: make(map[[2]uint]*models.PaymentLink)}
}

func (s *memLinkStore) UpsertLink(_ context.Context, link *models.PaymentLink) error {
	copied := *link
	s.links[[2]uint{link.OrderID, uint(link.InstallmentNumber)}] = &copied
	return nil
}

func (s *memLinkStore) GetLink(_ context.Context, orderID uint, number int) (*models.PaymentLink, error) {
	link, ok := s.links[[2]uint{orderID, uint(number)}]
	if !ok {
		return nil, nil
	}
	copied := *link
	return &copied, nil
}

var testCfg = Config{
	StandardGraceDays: 3,
	ExtendedGraceDays: 7,
	BaseURL:           "https://pay.example.com",
}

func testInstallment(due time.Time) *models.Installment {
	return &models.Installment{
		OrderID: 7,
		Number:  2,
		Amount:  decimal.NewFromInt(500),
		DueDate: due,
		Status:  models.InstallmentStatusPending,
	}
}

func TestGenerateExpiry(t *testing.T) {
	now := time.Date(2025, 1, 10, 8, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		dueDate   time.Time
		isOverdue bool
		want      time.Time
	}{
		{
			name:    "upcoming due date gets due plus standard grace",
			dueDate: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
			want:    time.Date(2025, 2, 4, 0, 0, 0, 0, time.UTC),
		},
		{
			name:    "already past due gets now plus standard grace",
			dueDate: time.Date(2025, 1, 8, 0, 0, 0, 0, time.UTC),
			want:    time.Date(2025, 1, 13, 8, 0, 0, 0, time.UTC),
		},
		{
			name:      "overdue gets now plus extended grace",
			dueDate:   time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC),
			isOverdue: true,
			want:      time.Date(2025, 1, 17, 8, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := NewGenerator(newMemLinkStore(), services.FixedClock{T: now}, testCfg)

			link, err := gen.Generate(context.Background(), 7, testInstallment(tt.dueDate), tt.isOverdue)
			if err != nil {
				t.Fatalf("Generate failed: %v", err)
			}
			if !link.ExpiresAt.Equal(tt.want) {
				t.Errorf("ExpiresAt = %v, want %v", link.ExpiresAt, tt.want)
			}
		})
	}
}

// A link regenerated for an overdue installment must never expire before the
// standard link would have
func TestGenerateOverdueExtendsExpiry(t *testing.T) {
	now := time.Date(2025, 1, 10, 8, 0, 0, 0, time.UTC)
	gen := NewGenerator(newMemLinkStore(), services.FixedClock{T: now}, testCfg)
	inst := testInstallment(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))

	standard, err := gen.Generate(context.Background(), 7, inst, false)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	extended, err := gen.Generate(context.Background(), 7, inst, true)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if !extended.ExpiresAt.After(standard.ExpiresAt) {
		t.Errorf("extended expiry %v not after standard expiry %v", extended.ExpiresAt, standard.ExpiresAt)
	}
}

func TestGenerateTokenShape(t *testing.T) {
	gen := NewGenerator(newMemLinkStore(), services.FixedClock{T: time.Now()}, testCfg)
	inst := testInstallment(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))

	link, err := gen.Generate(context.Background(), 7, inst, false)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if strings.ContainsAny(link.Token, "+/=") {
		t.Errorf("token %q is not URL safe", link.Token)
	}
	if len(link.Token) < 40 {
		t.Errorf("token %q too short", link.Token)
	}
	want := "https://pay.example.com/p/pay/7/2?token=" + link.Token
	if link.URL != want {
		t.Errorf("URL = %q, want %q", link.URL, want)
	}
}

func TestValidate(t *testing.T) {
	now := time.Date(2025, 1, 10, 8, 0, 0, 0, time.UTC)
	store := newMemLinkStore()
	gen := NewGenerator(store, services.FixedClock{T: now}, testCfg)
	inst := testInstallment(time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC))

	link, err := gen.Generate(context.Background(), 7, inst, false)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	ctx := context.Background()

	if err := gen.Validate(ctx, 7, 2, link.Token); err != nil {
		t.Errorf("fresh link rejected: %v", err)
	}
	if err := gen.Validate(ctx, 7, 2, "bogus"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("wrong token: got %v, want ErrInvalidToken", err)
	}
	if err := gen.Validate(ctx, 7, 3, link.Token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("missing link: got %v, want ErrInvalidToken", err)
	}

	// Valid at the exact expiry instant, expired one nanosecond after
	atExpiry := NewGenerator(store, services.FixedClock{T: link.ExpiresAt}, testCfg)
	if err := atExpiry.Validate(ctx, 7, 2, link.Token); err != nil {
		t.Errorf("link rejected at expiry instant: %v", err)
	}
	past := NewGenerator(store, services.FixedClock{T: link.ExpiresAt.Add(time.Nanosecond)}, testCfg)
	if err := past.Validate(ctx, 7, 2, link.Token); !errors.Is(err, ErrLinkExpired) {
		t.Errorf("stale link: got %v, want ErrLinkExpired", err)
	}
}

func TestRegenerateInvalidatesOldToken(t *testing.T) {
	now := time.Date(2025, 1, 10, 8, 0, 0, 0, time.UTC)
	store := newMemLinkStore()
	gen := NewGenerator(store, services.FixedClock{T: now}, testCfg)
	inst := testInstallment(time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC))
	ctx := context.Background()

	old, err := gen.Generate(ctx, 7, inst, false)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	fresh, err := gen.Generate(ctx, 7, inst, false)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if old.Token == fresh.Token {
		t.Fatal("regeneration reused the token")
	}

	if err := gen.Validate(ctx, 7, 2, old.Token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("old token: got %v, want ErrInvalidToken", err)
	}
	if err := gen.Validate(ctx, 7, 2, fresh.Token); err != nil {
		t.Errorf("fresh token rejected: %v", err)
	}
}
