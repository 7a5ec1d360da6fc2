/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the store with realistic
	data for testing and demos. Each scenario creates shifts, requests,
	and notifications that demonstrate specific features.

AVAILABLE SCENARIOS:

	day-of-care:        A mixed day of respite/visitation shifts
	transportation-run: Transportation shift with a visit stop, ride-ready
	transfer-handoff:   Pending ownership transfer awaiting approval
	leave-requests:     Pending leave requests in the admin queue

HOW SCENARIOS WORK:
 1. Seed documents with fixed ids (upserts, so reloads are harmless)
 2. Drive the real workflows so notifications land the same way
    production traffic would

USAGE VIA API:

	POST /api/scenarios/load
	{"id": "transportation-run"}

NOTE:

	Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Handler dependencies scenarios seed through
  - server.go: /api/scenarios routes
*/
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/brightpath/shift-engine/care"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "day-of-care",
		Name:        "Day of Care",
		Description: "A caregiver's day: respite care and supervised visitation shifts",
	},
	{
		ID:          "transportation-run",
		Name:        "Transportation Run",
		Description: "Transportation shift with a clinic visit stop, ready to start the ride",
	},
	{
		ID:          "transfer-handoff",
		Name:        "Transfer Handoff",
		Description: "A shift handoff request waiting in the target's mailbox",
	},
	{
		ID:          "leave-requests",
		Name:        "Leave Requests",
		Description: "Pending leave requests in the administrator's approval queue",
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	if h.currentScenario == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	for _, s := range scenarios {
		if s.ID == h.currentScenario {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, ScenarioDTO{
		ID:          h.currentScenario,
		Name:        h.currentScenario,
		Description: "Currently loaded scenario",
	})
}

// LoadScenario loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	ctx := r.Context()
	var err error
	switch req.ID {
	case "day-of-care":
		err = h.loadDayOfCareScenario(ctx)
	case "transportation-run":
		err = h.loadTransportationScenario(ctx)
	case "transfer-handoff":
		err = h.loadTransferScenario(ctx)
	case "leave-requests":
		err = h.loadLeaveScenario(ctx)
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Unknown scenario: %s", req.ID), nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load scenario", err)
		return
	}

	h.currentScenario = req.ID
	writeJSON(w, http.StatusOK, map[string]string{"loaded": req.ID})
}

// =============================================================================
// LOADERS
// =============================================================================

func day(hour int) time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, time.UTC)
}

func (h *Handler) loadDayOfCareScenario(ctx context.Context) error {
	shifts := []*care.Shift{
		{
			ID:             "demo-respite-1",
			StaffID:        "staff-amara",
			ClientID:       "client-101",
			Category:       care.CategoryRespiteCare,
			ScheduledStart: day(8),
			ScheduledEnd:   day(12),
			Confirmed:      true,
		},
		{
			ID:             "demo-visitation-1",
			StaffID:        "staff-amara",
			ClientID:       "client-102",
			Category:       care.CategorySupervisedVisitation,
			ScheduledStart: day(13),
			ScheduledEnd:   day(15),
		},
		{
			ID:             "demo-emergent-1",
			StaffID:        "staff-jordan",
			ClientID:       "client-103",
			Category:       care.CategoryEmergentCare,
			ScheduledStart: day(9),
			ScheduledEnd:   day(17),
			Confirmed:      true,
			Locked:         true,
		},
	}
	for _, s := range shifts {
		if err := h.Store.PutShift(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) loadTransportationScenario(ctx context.Context) error {
	return h.Store.PutShift(ctx, &care.Shift{
		ID:             "demo-ride-1",
		StaffID:        "staff-jordan",
		ClientID:       "client-104",
		Category:       care.CategoryTransportation,
		ScheduledStart: day(10),
		ScheduledEnd:   day(12),
		Confirmed:      true,
		VisitAddress:   "450 Clinic Way",
		Transport:      &care.Transport{},
	})
}

func (h *Handler) loadTransferScenario(ctx context.Context) error {
	if err := h.loadDayOfCareScenario(ctx); err != nil {
		return err
	}
	_, err := h.Transfers.Request(ctx,
		"demo-respite-1",
		care.StaffRef{ID: "staff-amara", Name: "Amara Osei"},
		care.StaffRef{ID: "staff-jordan", Name: "Jordan Lee"},
		"Double-booked with a visitation shift",
	)
	return err
}

func (h *Handler) loadLeaveScenario(ctx context.Context) error {
	if _, err := h.Leaves.Request(ctx,
		care.StaffRef{ID: "staff-amara", Name: "Amara Osei"},
		care.LeaveAnnual, "Family trip",
		day(0).AddDate(0, 0, 14), day(0).AddDate(0, 0, 18),
	); err != nil {
		return err
	}
	_, err := h.Leaves.Request(ctx,
		care.StaffRef{ID: "staff-jordan", Name: "Jordan Lee"},
		care.LeaveSick, "Recovering from surgery",
		day(0).AddDate(0, 0, 2), day(0).AddDate(0, 0, 9),
	)
	return err
}
