package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestCheckOverdue(t *testing.T) {
	eta := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	transfers := []Transfer{
		{ID: "TR-on-time", Status: TransferStatusInTransit, ETA: eta.Add(48 * time.Hour)},
		{ID: "TR-late", Status: TransferStatusInTransit, ETA: eta},
		{ID: "TR-done", Status: TransferStatusCompleted, ETA: eta.Add(-72 * time.Hour)},
		{ID: "TR-later", Status: TransferStatusInTransit, ETA: eta.Add(-96 * time.Hour)},
	}

	now := eta.Add(47 * time.Hour)
	overdue := CheckOverdue(transfers, now)

	if len(overdue) != 2 {
		t.Fatalf("expected 2 overdue transfers, got %d", len(overdue))
	}
	if overdue[0].Transfer.ID != "TR-later" || overdue[0].DaysPastDue != 5 {
		t.Errorf("expected TR-later 5 days past due, got %s %d", overdue[0].Transfer.ID, overdue[0].DaysPastDue)
	}
	if overdue[1].Transfer.ID != "TR-late" || overdue[1].DaysPastDue != 1 {
		t.Errorf("expected TR-late 1 day past due, got %s %d", overdue[1].Transfer.ID, overdue[1].DaysPastDue)
	}
}

func TestCheckOverdueBoundary(t *testing.T) {
	eta := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	transfers := []Transfer{{ID: "TR-1", Status: TransferStatusInTransit, ETA: eta}}

	if got := CheckOverdue(transfers, eta); len(got) != 0 {
		t.Errorf("transfer at exactly its ETA must not be overdue, got %v", got)
	}
	got := CheckOverdue(transfers, eta.Add(time.Minute))
	if len(got) != 1 || got[0].DaysPastDue != 0 {
		t.Errorf("expected overdue with 0 days past due, got %v", got)
	}
}

func TestErrorMatching(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", &Error{Code: CodeInsufficientStock, Message: "short", Available: 60, Requested: 100})

	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatal("expected errors.Is to match by code")
	}
	if errors.Is(err, ErrNotFound) {
		t.Fatal("expected different codes not to match")
	}
	var domainErr *Error
	if !errors.As(err, &domainErr) {
		t.Fatal("expected errors.As to find *Error")
	}
	if domainErr.Shortfall() != 40 {
		t.Errorf("expected shortfall 40, got %d", domainErr.Shortfall())
	}
	if CodeOf(err) != CodeInsufficientStock {
		t.Errorf("expected code %s, got %s", CodeInsufficientStock, CodeOf(err))
	}
	if CodeOf(errors.New("plain")) != "" {
		t.Error("expected empty code for plain errors")
	}
}

func TestUsageWindowStart(t *testing.T) {
	now := time.Date(2026, 3, 10, 23, 30, 0, 0, time.UTC)
	if got := UsageWindowStart(now, 7); got != "2026-03-04" {
		t.Errorf("expected 2026-03-04, got %s", got)
	}
	if got := UsageWindowStart(now, 1); got != "2026-03-10" {
		t.Errorf("expected 2026-03-10, got %s", got)
	}
}
