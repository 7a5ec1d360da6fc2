/*
scenarios_test.go - Unit tests for demo scenarios

PURPOSE:
	Tests that each scenario correctly sets up the expected state:
	- Shifts are seeded with the documented ids
	- Workflow-driven scenarios leave real pending requests behind
	- Notifications land where the workflows put them
*/
package api

import (
	"context"
	"net/http"
	"testing"

	"go.uber.org/zap"

	"github.com/brightpath/shift-engine/care"
	"github.com/brightpath/shift-engine/store/memory"
)

func setupTestHandler(t *testing.T) *Handler {
	t.Helper()
	h := NewHandler(memory.New(), "admin", zap.NewNop())
	t.Cleanup(h.Close)
	return h
}

func TestScenario_DayOfCare(t *testing.T) {
	// GIVEN: A fresh handler
	// WHEN: Loading the day-of-care scenario
	// THEN: Three shifts across two caregivers exist

	handler := setupTestHandler(t)
	ctx := context.Background()

	if err := handler.loadDayOfCareScenario(ctx); err != nil {
		t.Fatalf("Failed to load day-of-care scenario: %v", err)
	}

	shifts, err := handler.Store.ListShifts(ctx)
	if err != nil {
		t.Fatalf("Failed to list shifts: %v", err)
	}
	if len(shifts) != 3 {
		t.Fatalf("Expected 3 shifts, got %d", len(shifts))
	}

	locked, err := handler.Store.GetShift(ctx, "demo-emergent-1")
	if err != nil {
		t.Fatalf("Failed to get emergent shift: %v", err)
	}
	if !locked.Locked || !locked.Confirmed {
		t.Errorf("Expected emergent shift confirmed and locked, got %+v", locked)
	}

	// Reloading upserts the same ids instead of duplicating.
	if err := handler.loadDayOfCareScenario(ctx); err != nil {
		t.Fatalf("Failed to reload scenario: %v", err)
	}
	shifts, _ = handler.Store.ListShifts(ctx)
	if len(shifts) != 3 {
		t.Errorf("Expected reload to keep 3 shifts, got %d", len(shifts))
	}
}

func TestScenario_TransportationRun(t *testing.T) {
	handler := setupTestHandler(t)
	ctx := context.Background()

	if err := handler.loadTransportationScenario(ctx); err != nil {
		t.Fatalf("Failed to load transportation-run scenario: %v", err)
	}

	s, err := handler.Store.GetShift(ctx, "demo-ride-1")
	if err != nil {
		t.Fatalf("Failed to get ride shift: %v", err)
	}
	if s.Category != care.CategoryTransportation {
		t.Errorf("Expected transportation category, got %q", s.Category)
	}
	if s.Transport == nil || s.Transport.RideStarted {
		t.Errorf("Expected a fresh transport sub-record, got %+v", s.Transport)
	}
	if !s.HasVisit() {
		t.Error("Expected the demo ride to include a visit stop")
	}
}

func TestScenario_TransferHandoff(t *testing.T) {
	handler := setupTestHandler(t)
	ctx := context.Background()

	if err := handler.loadTransferScenario(ctx); err != nil {
		t.Fatalf("Failed to load transfer-handoff scenario: %v", err)
	}

	pending, err := handler.Store.ListPendingTransfers(ctx)
	if err != nil {
		t.Fatalf("Failed to list pending transfers: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("Expected 1 pending transfer, got %d", len(pending))
	}
	if pending[0].ShiftID != "demo-respite-1" {
		t.Errorf("Expected transfer for demo-respite-1, got %q", pending[0].ShiftID)
	}

	// The target has an actionable request in their mailbox.
	notes, err := handler.Store.ListNotifications(ctx, "staff-jordan", true)
	if err != nil {
		t.Fatalf("Failed to list notifications: %v", err)
	}
	if len(notes) != 1 || notes[0].Type != care.NotificationRequest {
		t.Errorf("Expected 1 unread request notification for staff-jordan, got %+v", notes)
	}
}

func TestScenario_LeaveRequests(t *testing.T) {
	handler := setupTestHandler(t)
	ctx := context.Background()

	if err := handler.loadLeaveScenario(ctx); err != nil {
		t.Fatalf("Failed to load leave-requests scenario: %v", err)
	}

	pending, err := handler.Store.ListPendingLeaves(ctx)
	if err != nil {
		t.Fatalf("Failed to list pending leaves: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("Expected 2 pending leaves, got %d", len(pending))
	}

	// Both land as requests in the admin queue.
	notes, err := handler.Store.ListNotifications(ctx, "admin", true)
	if err != nil {
		t.Fatalf("Failed to list admin notifications: %v", err)
	}
	if len(notes) != 2 {
		t.Errorf("Expected 2 admin notifications, got %d", len(notes))
	}
}

func TestLoadScenario_UnknownID(t *testing.T) {
	router := newTestRouter(t)

	rec := doReq(t, router, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ID: "time-travel"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for unknown scenario, got %d", rec.Code)
	}
}

func TestLoadScenario_TracksCurrent(t *testing.T) {
	router := newTestRouter(t)

	rec := doReq(t, router, http.MethodGet, "/api/scenarios", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list scenarios: expected 200, got %d", rec.Code)
	}
	if list := decodeBody[[]ScenarioDTO](t, rec); len(list) != 4 {
		t.Fatalf("Expected 4 scenarios, got %d", len(list))
	}

	rec = doReq(t, router, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ID: "day-of-care"})
	if rec.Code != http.StatusOK {
		t.Fatalf("load scenario: expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	rec = doReq(t, router, http.MethodGet, "/api/scenarios/current", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("current scenario: expected 200, got %d", rec.Code)
	}
	current := decodeBody[ScenarioDTO](t, rec)
	if current.ID != "day-of-care" {
		t.Errorf("Expected current scenario day-of-care, got %q", current.ID)
	}
}
