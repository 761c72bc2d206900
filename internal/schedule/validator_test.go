package schedule

import (
	"errors"
	"testing"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		entries []RawEntry
		wantErr bool
		// expected due dates in output order when wantErr is false
		wantDates   []string
		wantAmounts []string
	}{
		{
			name: "two entries already in order",
			entries: []RawEntry{
				{Amount: "500", DueDate: "2025-01-01"},
				{Amount: "500", DueDate: "2025-02-01"},
			},
			wantDates:   []string{"2025-01-01", "2025-02-01"},
			wantAmounts: []string{"500", "500"},
		},
		{
			name: "entries sorted chronologically",
			entries: []RawEntry{
				{Amount: "300", DueDate: "2025-03-01"},
				{Amount: "100", DueDate: "2025-01-01"},
				{Amount: "200", DueDate: "2025-02-01"},
			},
			wantDates:   []string{"2025-01-01", "2025-02-01", "2025-03-01"},
			wantAmounts: []string{"100", "200", "300"},
		},
		{
			name: "blank rows are dropped silently",
			entries: []RawEntry{
				{Amount: "", DueDate: ""},
				{Amount: "250", DueDate: "2025-01-15"},
				{Amount: "  ", DueDate: "2025-06-01"},
				{Amount: "250", DueDate: ""},
			},
			wantDates:   []string{"2025-01-15"},
			wantAmounts: []string{"250"},
		},
		{
			name:    "empty input",
			entries: nil,
			wantErr: true,
		},
		{
			name: "all rows blank",
			entries: []RawEntry{
				{Amount: "", DueDate: ""},
				{Amount: "", DueDate: ""},
			},
			wantErr: true,
		},
		{
			name: "zero amount",
			entries: []RawEntry{
				{Amount: "0", DueDate: "2025-01-01"},
			},
			wantErr: true,
		},
		{
			name: "negative amount",
			entries: []RawEntry{
				{Amount: "-10", DueDate: "2025-01-01"},
			},
			wantErr: true,
		},
		{
			name: "unparseable amount",
			entries: []RawEntry{
				{Amount: "ten", DueDate: "2025-01-01"},
			},
			wantErr: true,
		},
		{
			name: "unparseable date",
			entries: []RawEntry{
				{Amount: "100", DueDate: "01/02/2025"},
			},
			wantErr: true,
		},
		{
			name: "equal due dates rejected not merged",
			entries: []RawEntry{
				{Amount: "100", DueDate: "2025-01-01"},
				{Amount: "200", DueDate: "2025-01-01"},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Validate(tt.entries)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Validate() expected error, got %v", got)
				}
				if !errors.Is(err, ErrInvalidSchedule) {
					t.Errorf("Validate() error = %v, want ErrInvalidSchedule", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Validate() unexpected error: %v", err)
			}
			if len(got) != len(tt.wantDates) {
				t.Fatalf("Validate() returned %d entries, want %d", len(got), len(tt.wantDates))
			}
			for i, entry := range got {
				if entry.InstallmentNumber != i+1 {
					t.Errorf("entry %d: number = %d, want %d", i, entry.InstallmentNumber, i+1)
				}
				if gotDate := entry.DueDate.Format(DateLayout); gotDate != tt.wantDates[i] {
					t.Errorf("entry %d: due date = %s, want %s", i, gotDate, tt.wantDates[i])
				}
				if entry.Amount.String() != tt.wantAmounts[i] {
					t.Errorf("entry %d: amount = %s, want %s", i, entry.Amount.String(), tt.wantAmounts[i])
				}
			}
		})
	}
}

func TestValidateDueDatesStrictlyIncreasing(t *testing.T) {
	entries := []RawEntry{
		{Amount: "100", DueDate: "2025-05-01"},
		{Amount: "100", DueDate: "2025-01-01"},
		{Amount: "100", DueDate: "2025-03-01"},
		{Amount: "100", DueDate: "2025-04-01"},
	}

	got, err := Validate(entries)
	if err != nil {
		t.Fatalf("Validate() unexpected error: %v", err)
	}

	for i := 1; i < len(got); i++ {
		if !got[i].DueDate.After(got[i-1].DueDate) {
			t.Errorf("due dates not strictly increasing at position %d", i)
		}
		if got[i].InstallmentNumber != got[i-1].InstallmentNumber+1 {
			t.Errorf("installment numbers not sequential at position %d", i)
		}
	}
}
