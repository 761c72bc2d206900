package schedule

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/teambition/rrule-go"

	"flexipay/internal/models"
)

// GenerateRecurring builds an installment schedule by splitting totalAmount
// evenly over the first count occurrences of an RFC 5545 recurrence rule
// starting at start. Rounding leftovers land on the last installment so the
// entries always sum to totalAmount exactly.
//
// The generated entries go through Validate, so the usual invariants
// (positive amounts, strictly increasing dates) hold for the result too.
func GenerateRecurring(start time.Time, rruleStr string, count int, totalAmount decimal.Decimal, description string) ([]models.ScheduleEntry, error) {
	if count <= 0 {
		return nil, invalidf("installment count must be greater than zero")
	}
	if totalAmount.Sign() <= 0 {
		return nil, invalidf("total amount must be greater than zero")
	}

	rule, err := rrule.StrToRRule(rruleStr)
	if err != nil {
		return nil, invalidf("recurrence rule %q: %v", rruleStr, err)
	}
	rule.DTStart(start)

	perInstallment := totalAmount.Div(decimal.NewFromInt(int64(count))).Round(2)
	lastInstallment := totalAmount.Sub(perInstallment.Mul(decimal.NewFromInt(int64(count - 1))))

	raw := make([]RawEntry, 0, count)
	next := rule.Iterator()
	for i := 0; i < count; i++ {
		due, ok := next()
		if !ok {
			return nil, invalidf("recurrence rule yields only %d of %d occurrences", i, count)
		}

		amount := perInstallment
		if i == count-1 {
			amount = lastInstallment
		}

		raw = append(raw, RawEntry{
			Amount:      amount.String(),
			DueDate:     due.Format(DateLayout),
			Description: description,
		})
	}

	return Validate(raw)
}
