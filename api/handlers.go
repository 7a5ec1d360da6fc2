/*
handlers.go - HTTP API handlers for the shift coordination engine

PURPOSE:
  Exposes the shift lifecycle, ride tracking, transfer/leave workflows,
  and the notification mailbox via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Shifts:
    GET    /api/shifts                     List all shifts
    POST   /api/shifts                     Schedule a shift
    GET    /api/shifts/{id}                Get shift (derived status)
    POST   /api/shifts/{id}/confirm        Staff acknowledges the shift
    POST   /api/shifts/{id}/lock           Supervisor freezes edits
    POST   /api/shifts/{id}/clock-in       Start working
    POST   /api/shifts/{id}/clock-out      Finish working
    POST   /api/shifts/{id}/cancel         Cancel the shift

  Rides (transportation shifts only):
    POST   /api/shifts/{id}/ride/start
    POST   /api/shifts/{id}/ride/end
    POST   /api/shifts/{id}/ride/cancel
    POST   /api/shifts/{id}/ride/waypoints/{name}
    GET    /api/shifts/{id}/ride/progress
    GET    /api/shifts/{id}/ride/mileage

  Location feed (simulated device GPS):
    POST   /api/location                   Push a GPS sample
    POST   /api/location/offline           Toggle provider availability

  Transfers / Leaves:
    POST   /api/transfers                  Request handoff
    GET    /api/transfers/pending
    POST   /api/transfers/{id}/approve
    POST   /api/transfers/{id}/reject
    POST   /api/leaves                     Request time off
    GET    /api/leaves/pending
    POST   /api/leaves/{id}/approve
    POST   /api/leaves/{id}/decline

  Notifications:
    GET    /api/notifications?recipient=X[&unread=true]
    POST   /api/notifications/{id}/read?recipient=X

ERROR HANDLING:
  Domain errors map to HTTP status via domainStatus:
  - 400: validation, user input, clock ordering, waypoint order
  - 404: unknown shift/request/notification
  - 409: ride state conflicts (already started, ended, cancelled)
  - 503: location provider unavailable
  - 500: everything else

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/brightpath/shift-engine/care"
	"github.com/brightpath/shift-engine/geo"
	"github.com/brightpath/shift-engine/leave"
	"github.com/brightpath/shift-engine/notify"
	"github.com/brightpath/shift-engine/ride"
	"github.com/brightpath/shift-engine/transfer"
)

var validate = validator.New()

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store     care.TxStore
	Transfers *transfer.Workflow
	Leaves    *leave.Workflow
	Hub       *notify.Hub
	Feed      *geo.Feed
	Policy    ride.ReimbursementPolicy
	Log       *zap.Logger

	// Live trackers keyed by shift, one per active ride.
	mu       sync.Mutex
	trackers map[care.ShiftID]*ride.Tracker

	currentScenario string
}

// NewHandler wires the handler with the given store and a fresh location
// feed. AdminID is the recipient of administrative notifications.
func NewHandler(store care.TxStore, adminID care.StaffID, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		Store:     store,
		Transfers: transfer.NewWorkflow(store, adminID),
		Leaves:    leave.NewWorkflow(store, adminID),
		Hub:       notify.NewHub(store),
		Feed:      geo.NewFeed(),
		Policy:    ride.DefaultReimbursement(),
		Log:       log,
		trackers:  make(map[care.ShiftID]*ride.Tracker),
	}
}

// Close tears down every live tracker, releasing their location watches.
func (h *Handler) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, t := range h.trackers {
		t.Close()
		delete(h.trackers, id)
	}
}

// tracker returns the live tracker for a shift, creating one on first use.
func (h *Handler) tracker(r *http.Request, id care.ShiftID) (*ride.Tracker, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if t, ok := h.trackers[id]; ok {
		return t, nil
	}
	adapter, err := care.OpenShift(r.Context(), h.Store, id)
	if err != nil {
		return nil, err
	}
	t, err := ride.NewTracker(adapter, h.Feed)
	if err != nil {
		return nil, err
	}
	h.trackers[id] = t
	return t, nil
}

func (h *Handler) dropTracker(id care.ShiftID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if t, ok := h.trackers[id]; ok {
		t.Close()
		delete(h.trackers, id)
	}
}

// =============================================================================
// SHIFT HANDLERS
// =============================================================================

// ListShifts returns all shifts ordered by scheduled start.
func (h *Handler) ListShifts(w http.ResponseWriter, r *http.Request) {
	shifts, err := h.Store.ListShifts(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list shifts", err)
		return
	}
	writeJSON(w, http.StatusOK, toShiftDTOs(shifts))
}

// GetShift returns a single shift with its derived status.
func (h *Handler) GetShift(w http.ResponseWriter, r *http.Request) {
	id := care.ShiftID(chi.URLParam(r, "id"))

	s, err := h.Store.GetShift(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to get shift", err)
		return
	}
	writeJSON(w, http.StatusOK, toShiftDTO(*s))
}

// CreateShift schedules a new shift.
func (h *Handler) CreateShift(w http.ResponseWriter, r *http.Request) {
	var req CreateShiftRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	start, err := time.Parse(time.RFC3339, req.ScheduledStart)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid scheduled_start (use RFC3339)", err)
		return
	}
	end, err := time.Parse(time.RFC3339, req.ScheduledEnd)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid scheduled_end (use RFC3339)", err)
		return
	}
	if end.Before(start) {
		writeError(w, http.StatusBadRequest, "scheduled_end before scheduled_start", nil)
		return
	}

	s := &care.Shift{
		ID:             care.ShiftID(req.ID),
		StaffID:        care.StaffID(req.StaffID),
		ClientID:       care.ClientID(req.ClientID),
		Category:       care.Category(req.Category),
		ScheduledStart: start,
		ScheduledEnd:   end,
		VisitAddress:   req.VisitAddress,
	}
	if s.Category == care.CategoryTransportation {
		s.Transport = &care.Transport{}
	}

	if err := h.Store.PutShift(r.Context(), s); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create shift", err)
		return
	}
	writeJSON(w, http.StatusCreated, toShiftDTO(*s))
}

// shiftAction opens the shift through its adapter, applies fn, and returns
// the updated document. All flag flips and clock punches go through here.
func (h *Handler) shiftAction(w http.ResponseWriter, r *http.Request, fn func(*care.ShiftAdapter) error) {
	id := care.ShiftID(chi.URLParam(r, "id"))

	adapter, err := care.OpenShift(r.Context(), h.Store, id)
	if err != nil {
		writeDomainError(w, "Failed to open shift", err)
		return
	}
	if err := fn(adapter); err != nil {
		writeDomainError(w, "Shift update failed", err)
		return
	}
	writeJSON(w, http.StatusOK, toShiftDTO(adapter.Current()))
}

// ConfirmShift marks the shift acknowledged by its staff member.
func (h *Handler) ConfirmShift(w http.ResponseWriter, r *http.Request) {
	h.shiftAction(w, r, func(a *care.ShiftAdapter) error {
		return a.SetConfirmed(r.Context(), true)
	})
}

// LockShift freezes the shift against further edits.
func (h *Handler) LockShift(w http.ResponseWriter, r *http.Request) {
	h.shiftAction(w, r, func(a *care.ShiftAdapter) error {
		return a.SetLocked(r.Context(), true)
	})
}

// GrantReportAccess opens the post-shift report to the staff member.
func (h *Handler) GrantReportAccess(w http.ResponseWriter, r *http.Request) {
	h.shiftAction(w, r, func(a *care.ShiftAdapter) error {
		return a.SetReportAccess(r.Context(), true)
	})
}

// ClockIn stamps the working-start time. Status becomes in-progress.
func (h *Handler) ClockIn(w http.ResponseWriter, r *http.Request) {
	h.shiftAction(w, r, func(a *care.ShiftAdapter) error {
		return a.ClockIn(r.Context(), time.Now().UTC())
	})
}

// ClockOut stamps the working-end time. Status becomes completed.
func (h *Handler) ClockOut(w http.ResponseWriter, r *http.Request) {
	h.shiftAction(w, r, func(a *care.ShiftAdapter) error {
		return a.ClockOut(r.Context(), time.Now().UTC())
	})
}

// CancelShift cancels the whole shift. If a ride is live, the tracker
// cancels it (and releases its watch) first.
func (h *Handler) CancelShift(w http.ResponseWriter, r *http.Request) {
	id := care.ShiftID(chi.URLParam(r, "id"))

	h.mu.Lock()
	t, live := h.trackers[id]
	h.mu.Unlock()
	if live {
		if err := t.CancelShift(r.Context()); err != nil && !errors.Is(err, ride.ErrRideEnded) {
			writeDomainError(w, "Failed to cancel shift", err)
			return
		}
		h.dropTracker(id)
		s, err := h.Store.GetShift(r.Context(), id)
		if err != nil {
			writeDomainError(w, "Failed to get shift", err)
			return
		}
		writeJSON(w, http.StatusOK, toShiftDTO(*s))
		return
	}

	h.shiftAction(w, r, func(a *care.ShiftAdapter) error {
		return a.Cancel(r.Context())
	})
}

// =============================================================================
// RIDE HANDLERS
// =============================================================================

// StartRide begins GPS tracking for a transportation shift.
func (h *Handler) StartRide(w http.ResponseWriter, r *http.Request) {
	id := care.ShiftID(chi.URLParam(r, "id"))
	t, err := h.tracker(r, id)
	if err != nil {
		writeDomainError(w, "Failed to open ride", err)
		return
	}
	if err := t.StartRide(r.Context()); err != nil {
		writeDomainError(w, "Failed to start ride", err)
		return
	}
	h.Log.Info("ride started", zap.String("shift", string(id)))
	writeJSON(w, http.StatusOK, toProgressDTO(t.Progress(), t.DistanceKM()))
}

// EndRide stops tracking and freezes the accumulated distance.
func (h *Handler) EndRide(w http.ResponseWriter, r *http.Request) {
	id := care.ShiftID(chi.URLParam(r, "id"))
	t, err := h.tracker(r, id)
	if err != nil {
		writeDomainError(w, "Failed to open ride", err)
		return
	}
	if err := t.EndRide(r.Context()); err != nil {
		writeDomainError(w, "Failed to end ride", err)
		return
	}
	h.Log.Info("ride ended", zap.String("shift", string(id)), zap.Float64("distance_km", t.DistanceKM()))
	writeJSON(w, http.StatusOK, toProgressDTO(t.Progress(), t.DistanceKM()))
}

// CancelRide cancels the ride but leaves the rest of the shift alive.
func (h *Handler) CancelRide(w http.ResponseWriter, r *http.Request) {
	id := care.ShiftID(chi.URLParam(r, "id"))
	t, err := h.tracker(r, id)
	if err != nil {
		writeDomainError(w, "Failed to open ride", err)
		return
	}
	if err := t.CancelRide(r.Context()); err != nil {
		writeDomainError(w, "Failed to cancel ride", err)
		return
	}
	writeJSON(w, http.StatusOK, toProgressDTO(t.Progress(), t.DistanceKM()))
}

// ConfirmWaypoint marks a waypoint reached. Order is enforced.
func (h *Handler) ConfirmWaypoint(w http.ResponseWriter, r *http.Request) {
	id := care.ShiftID(chi.URLParam(r, "id"))
	name := ride.Waypoint(chi.URLParam(r, "name"))

	t, err := h.tracker(r, id)
	if err != nil {
		writeDomainError(w, "Failed to open ride", err)
		return
	}
	if err := t.ConfirmWaypoint(r.Context(), name); err != nil {
		writeDomainError(w, "Failed to confirm waypoint", err)
		return
	}
	writeJSON(w, http.StatusOK, toProgressDTO(t.Progress(), t.DistanceKM()))
}

// RideProgress returns the waypoint checklist and distance so far.
func (h *Handler) RideProgress(w http.ResponseWriter, r *http.Request) {
	id := care.ShiftID(chi.URLParam(r, "id"))
	t, err := h.tracker(r, id)
	if err != nil {
		writeDomainError(w, "Failed to open ride", err)
		return
	}
	writeJSON(w, http.StatusOK, toProgressDTO(t.Progress(), t.DistanceKM()))
}

// RideMileage prices a completed ride for reimbursement.
func (h *Handler) RideMileage(w http.ResponseWriter, r *http.Request) {
	id := care.ShiftID(chi.URLParam(r, "id"))

	s, err := h.Store.GetShift(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to get shift", err)
		return
	}
	report, err := ride.BuildMileageReport(*s, h.Policy)
	if err != nil {
		writeDomainError(w, "Failed to build mileage report", err)
		return
	}
	writeJSON(w, http.StatusOK, MileageReportDTO{
		ShiftID:    string(report.ShiftID),
		StaffID:    string(report.StaffID),
		DistanceKM: report.DistanceKM,
		RatePerKM:  h.Policy.RatePerKM.String(),
		Amount:     report.Amount.String(),
		Currency:   report.Currency,
	})
}

// =============================================================================
// LOCATION FEED HANDLERS
// =============================================================================

// PushPosition feeds one GPS sample into the location feed. Every live
// tracker watching the feed accumulates it.
func (h *Handler) PushPosition(w http.ResponseWriter, r *http.Request) {
	var req PositionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	h.Feed.Publish(geo.Position{Lat: req.Lat, Lon: req.Lon})
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "ok"})
}

// SetOffline toggles the simulated provider's availability.
func (h *Handler) SetOffline(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Offline bool `json:"offline"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	h.Feed.SetOffline(req.Offline)
	writeJSON(w, http.StatusOK, map[string]bool{"offline": req.Offline})
}

// =============================================================================
// TRANSFER HANDLERS
// =============================================================================

// CreateTransfer submits a shift handoff request.
func (h *Handler) CreateTransfer(w http.ResponseWriter, r *http.Request) {
	var req CreateTransferRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	tr, err := h.Transfers.Request(r.Context(),
		care.ShiftID(req.ShiftID),
		care.StaffRef{ID: care.StaffID(req.FromStaffID), Name: req.FromStaffName},
		care.StaffRef{ID: care.StaffID(req.ToStaffID), Name: req.ToStaffName},
		req.Reason,
	)
	if err != nil {
		writeDomainError(w, "Failed to create transfer request", err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransferDTO(*tr))
}

// ListPendingTransfers returns unresolved transfer requests.
func (h *Handler) ListPendingTransfers(w http.ResponseWriter, r *http.Request) {
	pending, err := h.Transfers.Pending(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list transfers", err)
		return
	}
	dtos := make([]TransferRequestDTO, len(pending))
	for i, tr := range pending {
		dtos[i] = toTransferDTO(tr)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ApproveTransfer reassigns the shift and resolves the request. Repeat
// approvals are no-ops returning the already-resolved request.
func (h *Handler) ApproveTransfer(w http.ResponseWriter, r *http.Request) {
	id := care.TransferID(chi.URLParam(r, "id"))
	tr, err := h.Transfers.Approve(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to approve transfer", err)
		return
	}
	writeJSON(w, http.StatusOK, toTransferDTO(*tr))
}

// RejectTransfer resolves the request without touching the shift.
func (h *Handler) RejectTransfer(w http.ResponseWriter, r *http.Request) {
	id := care.TransferID(chi.URLParam(r, "id"))
	var req ResolveRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	tr, err := h.Transfers.Reject(r.Context(), id, req.Note)
	if err != nil {
		writeDomainError(w, "Failed to reject transfer", err)
		return
	}
	writeJSON(w, http.StatusOK, toTransferDTO(*tr))
}

// =============================================================================
// LEAVE HANDLERS
// =============================================================================

// CreateLeave submits a time-off request.
func (h *Handler) CreateLeave(w http.ResponseWriter, r *http.Request) {
	var req CreateLeaveRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	start, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start_date (use YYYY-MM-DD)", err)
		return
	}
	end, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid end_date (use YYYY-MM-DD)", err)
		return
	}
	lr, err := h.Leaves.Request(r.Context(),
		care.StaffRef{ID: care.StaffID(req.StaffID), Name: req.StaffName},
		care.LeaveType(req.Type), req.Reason, start, end,
	)
	if err != nil {
		writeDomainError(w, "Failed to create leave request", err)
		return
	}
	writeJSON(w, http.StatusCreated, toLeaveDTO(*lr))
}

// ListPendingLeaves returns unresolved leave requests.
func (h *Handler) ListPendingLeaves(w http.ResponseWriter, r *http.Request) {
	pending, err := h.Leaves.Pending(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list leaves", err)
		return
	}
	dtos := make([]LeaveRequestDTO, len(pending))
	for i, lr := range pending {
		dtos[i] = toLeaveDTO(lr)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ApproveLeave resolves the request as approved.
func (h *Handler) ApproveLeave(w http.ResponseWriter, r *http.Request) {
	id := care.LeaveID(chi.URLParam(r, "id"))
	lr, err := h.Leaves.Approve(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to approve leave", err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaveDTO(*lr))
}

// DeclineLeave resolves the request as declined with an optional note.
func (h *Handler) DeclineLeave(w http.ResponseWriter, r *http.Request) {
	id := care.LeaveID(chi.URLParam(r, "id"))
	var req ResolveRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	lr, err := h.Leaves.Decline(r.Context(), id, req.Note)
	if err != nil {
		writeDomainError(w, "Failed to decline leave", err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaveDTO(*lr))
}

// =============================================================================
// NOTIFICATION HANDLERS
// =============================================================================

// ListNotifications returns a recipient's mailbox, newest first.
// ?unread=true filters to unread entries.
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	recipient := care.StaffID(r.URL.Query().Get("recipient"))
	if recipient == "" {
		writeError(w, http.StatusBadRequest, "Missing recipient query parameter", nil)
		return
	}
	var (
		ns  []care.Notification
		err error
	)
	if r.URL.Query().Get("unread") == "true" {
		ns, err = h.Hub.ListUnread(r.Context(), recipient)
	} else {
		ns, err = h.Hub.List(r.Context(), recipient)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list notifications", err)
		return
	}
	writeJSON(w, http.StatusOK, toNotificationDTOs(ns))
}

// MarkNotificationRead flips the read flag. Monotonic: re-marking an
// already-read entry succeeds without change.
func (h *Handler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	recipient := care.StaffID(r.URL.Query().Get("recipient"))
	if recipient == "" {
		writeError(w, http.StatusBadRequest, "Missing recipient query parameter", nil)
		return
	}
	id := care.NotificationID(chi.URLParam(r, "id"))
	if err := h.Hub.MarkRead(r.Context(), recipient, id); err != nil {
		writeDomainError(w, "Failed to mark notification read", err)
		return
	}
	n, err := h.Store.GetNotification(r.Context(), recipient, id)
	if err != nil {
		writeDomainError(w, "Failed to get notification", err)
		return
	}
	writeJSON(w, http.StatusOK, toNotificationDTO(*n))
}

// =============================================================================
// HELPERS
// =============================================================================

// decodeJSON decodes and validates a request body. Writes the error
// response itself; callers just bail on false.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	if err := validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed", err)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps a domain error onto an HTTP status.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	writeError(w, domainStatus(err), message, err)
}

func domainStatus(err error) int {
	switch {
	case care.IsNotFound(err):
		return http.StatusNotFound
	case care.IsUserError(err):
		return http.StatusBadRequest
	case errors.Is(err, ride.ErrWaypointOrder),
		errors.Is(err, ride.ErrUnknownWaypoint),
		errors.Is(err, ride.ErrNotTransportation):
		return http.StatusBadRequest
	case errors.Is(err, ride.ErrRideStarted),
		errors.Is(err, ride.ErrRideNotStarted),
		errors.Is(err, ride.ErrRideEnded),
		errors.Is(err, ride.ErrRideNotEnded),
		errors.Is(err, ride.ErrRideCancelled):
		return http.StatusConflict
	case errors.Is(err, geo.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
