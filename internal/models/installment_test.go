package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestComputeSummary(t *testing.T) {
	installments := []Installment{
		{Number: 1, Amount: decimal.NewFromInt(500), DueDate: date(2025, 1, 1), Status: InstallmentStatusCompleted},
		{Number: 2, Amount: decimal.NewFromInt(500), DueDate: date(2025, 2, 1), Status: InstallmentStatusPending},
		{Number: 3, Amount: decimal.NewFromInt(250), DueDate: date(2025, 3, 1), Status: InstallmentStatusOverdue},
	}

	summary := ComputeSummary(42, installments)

	if summary.TotalInstallments != 3 {
		t.Errorf("TotalInstallments = %d, want 3", summary.TotalInstallments)
	}
	if summary.PaidInstallments != 1 {
		t.Errorf("PaidInstallments = %d, want 1", summary.PaidInstallments)
	}
	if !summary.TotalAmount.Equal(decimal.NewFromInt(1250)) {
		t.Errorf("TotalAmount = %s, want 1250", summary.TotalAmount)
	}
	if !summary.PaidAmount.Equal(decimal.NewFromInt(500)) {
		t.Errorf("PaidAmount = %s, want 500", summary.PaidAmount)
	}
	if !summary.PendingAmount.Equal(decimal.NewFromInt(750)) {
		t.Errorf("PendingAmount = %s, want 750", summary.PendingAmount)
	}
	if summary.NextDueDate == nil || !summary.NextDueDate.Equal(date(2025, 2, 1)) {
		t.Errorf("NextDueDate = %v, want 2025-02-01", summary.NextDueDate)
	}
	if summary.AllCompleted {
		t.Error("AllCompleted = true, want false")
	}
}

// PaidAmount must always equal the sum over completed installments, whatever
// the mix of statuses
func TestComputeSummaryPaidAmountConsistency(t *testing.T) {
	statuses := []InstallmentStatus{
		InstallmentStatusPending, InstallmentStatusProcessing, InstallmentStatusCompleted,
		InstallmentStatusFailed, InstallmentStatusOverdue, InstallmentStatusCancelled,
	}

	var installments []Installment
	wantPaid := decimal.Zero
	for i, st := range statuses {
		amount := decimal.NewFromInt(int64(100 * (i + 1)))
		installments = append(installments, Installment{
			Number:  i + 1,
			Amount:  amount,
			DueDate: date(2025, time.Month(i+1), 1),
			Status:  st,
		})
		if st == InstallmentStatusCompleted {
			wantPaid = wantPaid.Add(amount)
		}
	}

	summary := ComputeSummary(1, installments)
	if !summary.PaidAmount.Equal(wantPaid) {
		t.Errorf("PaidAmount = %s, want %s", summary.PaidAmount, wantPaid)
	}

	// Recomputing from the same list must be stable
	again := ComputeSummary(1, installments)
	if !again.PaidAmount.Equal(summary.PaidAmount) || again.PaidInstallments != summary.PaidInstallments {
		t.Error("recomputing the summary changed the result")
	}
}

func TestComputeSummaryAllCompleted(t *testing.T) {
	installments := []Installment{
		{Number: 1, Amount: decimal.NewFromInt(100), DueDate: date(2025, 1, 1), Status: InstallmentStatusCompleted},
		{Number: 2, Amount: decimal.NewFromInt(100), DueDate: date(2025, 2, 1), Status: InstallmentStatusCompleted},
	}

	summary := ComputeSummary(1, installments)
	if !summary.AllCompleted {
		t.Error("AllCompleted = false, want true")
	}
	if summary.NextDueDate != nil {
		t.Errorf("NextDueDate = %v, want nil", summary.NextDueDate)
	}
	if DeriveOrderStatus(summary) != OrderStatusCompleted {
		t.Errorf("DeriveOrderStatus = %s, want completed", DeriveOrderStatus(summary))
	}

	empty := ComputeSummary(1, nil)
	if empty.AllCompleted {
		t.Error("empty order reported AllCompleted")
	}
}

func TestDeriveOrderStatus(t *testing.T) {
	partial := ComputeSummary(1, []Installment{
		{Number: 1, Amount: decimal.NewFromInt(100), DueDate: date(2025, 1, 1), Status: InstallmentStatusCompleted},
		{Number: 2, Amount: decimal.NewFromInt(100), DueDate: date(2025, 2, 1), Status: InstallmentStatusPending},
	})
	if DeriveOrderStatus(partial) != OrderStatusPartiallyCompleted {
		t.Errorf("DeriveOrderStatus = %s, want partially_completed", DeriveOrderStatus(partial))
	}

	pending := ComputeSummary(1, []Installment{
		{Number: 1, Amount: decimal.NewFromInt(100), DueDate: date(2025, 1, 1), Status: InstallmentStatusPending},
	})
	if DeriveOrderStatus(pending) != OrderStatusPending {
		t.Errorf("DeriveOrderStatus = %s, want pending", DeriveOrderStatus(pending))
	}
}

func TestCanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to InstallmentStatus
		want     bool
	}{
		{InstallmentStatusPending, InstallmentStatusProcessing, true},
		{InstallmentStatusPending, InstallmentStatusCompleted, true},
		{InstallmentStatusPending, InstallmentStatusOverdue, true},
		{InstallmentStatusPending, InstallmentStatusFailed, false},
		{InstallmentStatusProcessing, InstallmentStatusCompleted, true},
		{InstallmentStatusProcessing, InstallmentStatusFailed, true},
		{InstallmentStatusFailed, InstallmentStatusPending, true},
		{InstallmentStatusOverdue, InstallmentStatusPending, false},
		{InstallmentStatusOverdue, InstallmentStatusCompleted, true},
		{InstallmentStatusCompleted, InstallmentStatusPending, false},
		{InstallmentStatusCompleted, InstallmentStatusCompleted, true},
		{InstallmentStatusCancelled, InstallmentStatusPending, false},
		{InstallmentStatusPending, InstallmentStatusCancelled, true},
		{InstallmentStatusOverdue, InstallmentStatusCancelled, true},
	}

	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
			t.Errorf("CanTransitionTo(%s -> %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestInstallmentStatusValid(t *testing.T) {
	for _, st := range []InstallmentStatus{
		InstallmentStatusPending, InstallmentStatusProcessing, InstallmentStatusCompleted,
		InstallmentStatusFailed, InstallmentStatusOverdue, InstallmentStatusCancelled,
	} {
		if !st.Valid() {
			t.Errorf("%s reported invalid", st)
		}
	}
	if InstallmentStatus("paid").Valid() {
		t.Error("unknown status reported valid")
	}
}
