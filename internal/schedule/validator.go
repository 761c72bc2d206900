package schedule

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"flexipay/internal/models"
)

// DateLayout is the wire format for schedule due dates
const DateLayout = "2006-01-02"

// ErrInvalidSchedule is the sentinel for malformed or non-chronological
// schedule input. It is always wrapped with the concrete reason.
var ErrInvalidSchedule = errors.New("invalid schedule")

func invalidf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidSchedule, fmt.Sprintf(format, args...))
}

// RawEntry is an unvalidated schedule row as submitted by the merchant
type RawEntry struct {
	Amount      string `json:"amount"`
	DueDate     string `json:"due_date"`
	Description string `json:"description"`
}

// Validate checks a proposed installment schedule and returns the cleaned
// entries sorted by due date and renumbered 1..N.
//
// Rows with a blank amount or a blank due date are silently dropped before
// validation. The remaining rows must all have a positive amount, a parseable
// date, and strictly increasing due dates; equal dates are rejected, not
// merged. Validate is pure: persisting the result is the caller's job.
func Validate(entries []RawEntry) ([]models.ScheduleEntry, error) {
	var kept []models.ScheduleEntry

	for i, raw := range entries {
		amountStr := strings.TrimSpace(raw.Amount)
		dateStr := strings.TrimSpace(raw.DueDate)
		if amountStr == "" || dateStr == "" {
			continue
		}

		amount, err := decimal.NewFromString(amountStr)
		if err != nil {
			return nil, invalidf("row %d: amount %q is not a number", i+1, raw.Amount)
		}
		if amount.Sign() <= 0 {
			return nil, invalidf("row %d: amount must be greater than zero", i+1)
		}

		dueDate, err := time.Parse(DateLayout, dateStr)
		if err != nil {
			return nil, invalidf("row %d: due date %q is not a valid date (want %s)", i+1, raw.DueDate, DateLayout)
		}

		kept = append(kept, models.ScheduleEntry{
			Amount:      amount,
			DueDate:     dueDate,
			Description: strings.TrimSpace(raw.Description),
		})
	}

	if len(kept) == 0 {
		return nil, invalidf("schedule has no usable entries")
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].DueDate.Before(kept[j].DueDate)
	})

	for i := 1; i < len(kept); i++ {
		if !kept[i].DueDate.After(kept[i-1].DueDate) {
			return nil, invalidf("due dates must be strictly increasing, %s appears more than once",
				kept[i].DueDate.Format(DateLayout))
		}
	}

	for i := range kept {
		kept[i].InstallmentNumber = i + 1
	}

	return kept, nil
}
