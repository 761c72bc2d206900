package schedule

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestGenerateRecurring(t *testing.T) {
	start := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)

	entries, err := GenerateRecurring(start, "FREQ=MONTHLY", 3, decimal.NewFromInt(100), "Monthly installment")
	if err != nil {
		t.Fatalf("GenerateRecurring() unexpected error: %v", err)
	}

	if len(entries) != 3 {
		t.Fatalf("GenerateRecurring() returned %d entries, want 3", len(entries))
	}

	wantDates := []string{"2025-01-15", "2025-02-15", "2025-03-15"}
	for i, entry := range entries {
		if got := entry.DueDate.Format(DateLayout); got != wantDates[i] {
			t.Errorf("entry %d: due date = %s, want %s", i, got, wantDates[i])
		}
		if entry.InstallmentNumber != i+1 {
			t.Errorf("entry %d: number = %d, want %d", i, entry.InstallmentNumber, i+1)
		}
	}

	// 100 over 3: 33.33 + 33.33 + 33.34
	sum := decimal.Zero
	for _, entry := range entries {
		sum = sum.Add(entry.Amount)
	}
	if !sum.Equal(decimal.NewFromInt(100)) {
		t.Errorf("amounts sum to %s, want 100", sum)
	}
	if !entries[0].Amount.Equal(decimal.RequireFromString("33.33")) {
		t.Errorf("first amount = %s, want 33.33", entries[0].Amount)
	}
	if !entries[2].Amount.Equal(decimal.RequireFromString("33.34")) {
		t.Errorf("last amount = %s, want 33.34", entries[2].Amount)
	}
}

func TestGenerateRecurringErrors(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		rrule string
		count int
		total decimal.Decimal
	}{
		{"zero count", "FREQ=MONTHLY", 0, decimal.NewFromInt(100)},
		{"zero total", "FREQ=MONTHLY", 3, decimal.Zero},
		{"bad rule", "FREQ=SOMETIMES", 3, decimal.NewFromInt(100)},
		{"rule runs dry", "FREQ=MONTHLY;COUNT=2", 5, decimal.NewFromInt(100)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := GenerateRecurring(start, tt.rrule, tt.count, tt.total, "")
			if err == nil {
				t.Fatal("GenerateRecurring() expected error")
			}
			if !errors.Is(err, ErrInvalidSchedule) {
				t.Errorf("GenerateRecurring() error = %v, want ErrInvalidSchedule", err)
			}
		})
	}
}
