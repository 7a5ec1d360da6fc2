/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Request bodies carry go-playground/validator struct tags; decodeJSON in
  handlers.go runs them before the handler sees the value. Domain rules
  (clock ordering, waypoint order, self-transfer) stay in the domain
  packages; tags here only gate shape-level problems.

SEE ALSO:
  - handlers.go: Uses these types
  - server.go: Router setup and middleware
*/
package api

import (
	"time"

	"github.com/brightpath/shift-engine/care"
	"github.com/brightpath/shift-engine/geo"
	"github.com/brightpath/shift-engine/ride"
)

// =============================================================================
// SHIFT TYPES
// =============================================================================

// ShiftDTO represents a shift in API responses. Status is derived from the
// clock fields at serialization time, never stored.
type ShiftDTO struct {
	ID             string        `json:"id"`
	StaffID        string        `json:"staff_id"`
	ClientID       string        `json:"client_id"`
	Category       string        `json:"category"`
	Status         string        `json:"status"`
	ScheduledStart string        `json:"scheduled_start"`
	ScheduledEnd   string        `json:"scheduled_end"`
	ClockIn        *string       `json:"clock_in,omitempty"`
	ClockOut       *string       `json:"clock_out,omitempty"`
	Confirmed      bool          `json:"confirmed"`
	Locked         bool          `json:"locked"`
	ReportAccess   bool          `json:"report_access"`
	Cancelled      bool          `json:"cancelled"`
	VisitAddress   string        `json:"visit_address,omitempty"`
	Transport      *TransportDTO `json:"transport,omitempty"`
}

// TransportDTO is the ride sub-record of a transportation shift.
type TransportDTO struct {
	RideStarted bool          `json:"ride_started"`
	RideEnded   bool          `json:"ride_ended"`
	Cancelled   bool          `json:"cancelled"`
	DistanceKM  float64       `json:"distance_km"`
	CurrentPos  *geo.Position `json:"current_pos,omitempty"`
	PickupDone  bool          `json:"pickup_done"`
	VisitDone   bool          `json:"visit_done"`
	DropDone    bool          `json:"drop_done"`
}

// CreateShiftRequest schedules a new shift.
type CreateShiftRequest struct {
	ID             string `json:"id" validate:"required"`
	StaffID        string `json:"staff_id" validate:"required"`
	ClientID       string `json:"client_id" validate:"required"`
	Category       string `json:"category" validate:"required"`
	ScheduledStart string `json:"scheduled_start" validate:"required"`
	ScheduledEnd   string `json:"scheduled_end" validate:"required"`
	VisitAddress   string `json:"visit_address,omitempty"`
}

// =============================================================================
// RIDE TYPES
// =============================================================================

// WaypointProgressDTO is one waypoint's derived state.
type WaypointProgressDTO struct {
	Name   string `json:"name"`
	Done   bool   `json:"done"`
	Status string `json:"status"`
}

// RideProgressDTO is the full ride view for the UI.
type RideProgressDTO struct {
	Waypoints  []WaypointProgressDTO `json:"waypoints"`
	DistanceKM float64               `json:"distance_km"`
}

// MileageReportDTO prices a completed ride for reimbursement.
type MileageReportDTO struct {
	ShiftID    string  `json:"shift_id"`
	StaffID    string  `json:"staff_id"`
	DistanceKM float64 `json:"distance_km"`
	RatePerKM  string  `json:"rate_per_km"`
	Amount     string  `json:"amount"`
	Currency   string  `json:"currency"`
}

// PositionRequest is a GPS sample pushed into the location feed.
type PositionRequest struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// =============================================================================
// TRANSFER / LEAVE TYPES
// =============================================================================

// TransferRequestDTO represents an ownership transfer request.
type TransferRequestDTO struct {
	ID             string  `json:"id"`
	ShiftID        string  `json:"shift_id"`
	FromStaffID    string  `json:"from_staff_id"`
	FromStaffName  string  `json:"from_staff_name"`
	ToStaffID      string  `json:"to_staff_id"`
	ToStaffName    string  `json:"to_staff_name"`
	Reason         string  `json:"reason,omitempty"`
	Status         string  `json:"status"`
	ResolutionNote string  `json:"resolution_note,omitempty"`
	CreatedAt      string  `json:"created_at"`
	ResolvedAt     *string `json:"resolved_at,omitempty"`
}

// CreateTransferRequest asks to hand a shift to another staff member.
type CreateTransferRequest struct {
	ShiftID       string `json:"shift_id" validate:"required"`
	FromStaffID   string `json:"from_staff_id" validate:"required"`
	FromStaffName string `json:"from_staff_name"`
	ToStaffID     string `json:"to_staff_id" validate:"required"`
	ToStaffName   string `json:"to_staff_name"`
	Reason        string `json:"reason,omitempty"`
}

// ResolveRequest carries the optional note for a rejection or decline.
type ResolveRequest struct {
	Note string `json:"note,omitempty"`
}

// LeaveRequestDTO represents a leave-of-absence request.
type LeaveRequestDTO struct {
	ID             string  `json:"id"`
	StaffID        string  `json:"staff_id"`
	StaffName      string  `json:"staff_name"`
	Type           string  `json:"type"`
	Reason         string  `json:"reason"`
	StartDate      string  `json:"start_date"`
	EndDate        string  `json:"end_date"`
	Status         string  `json:"status"`
	ResolutionNote string  `json:"resolution_note,omitempty"`
	CreatedAt      string  `json:"created_at"`
	ResolvedAt     *string `json:"resolved_at,omitempty"`
}

// CreateLeaveRequest submits a new leave request.
type CreateLeaveRequest struct {
	StaffID   string `json:"staff_id" validate:"required"`
	StaffName string `json:"staff_name"`
	Type      string `json:"type" validate:"required,oneof=annual sick emergency unpaid"`
	Reason    string `json:"reason" validate:"required"`
	StartDate string `json:"start_date" validate:"required"`
	EndDate   string `json:"end_date" validate:"required"`
}

// =============================================================================
// NOTIFICATION TYPES
// =============================================================================

// NotificationDTO is one mailbox entry.
type NotificationDTO struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	Title      string `json:"title"`
	Message    string `json:"message"`
	SenderID   string `json:"sender_id,omitempty"`
	Read       bool   `json:"read"`
	Resolution string `json:"resolution,omitempty"`
	Meta       any    `json:"meta,omitempty"`
	CreatedAt  string `json:"created_at"`
}

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest picks a scenario to seed.
type LoadScenarioRequest struct {
	ID string `json:"id" validate:"required"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func fmtRFC(t time.Time) string { return t.UTC().Format(time.RFC3339) }

func fmtRFCPtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := fmtRFC(*t)
	return &s
}

func toShiftDTO(s care.Shift) ShiftDTO {
	dto := ShiftDTO{
		ID:             string(s.ID),
		StaffID:        string(s.StaffID),
		ClientID:       string(s.ClientID),
		Category:       string(s.Category),
		Status:         string(s.Status()),
		ScheduledStart: fmtRFC(s.ScheduledStart),
		ScheduledEnd:   fmtRFC(s.ScheduledEnd),
		ClockIn:        fmtRFCPtr(s.ClockIn),
		ClockOut:       fmtRFCPtr(s.ClockOut),
		Confirmed:      s.Confirmed,
		Locked:         s.Locked,
		ReportAccess:   s.ReportAccess,
		Cancelled:      s.Cancelled,
		VisitAddress:   s.VisitAddress,
	}
	if s.Transport != nil {
		t := s.Transport
		dto.Transport = &TransportDTO{
			RideStarted: t.RideStarted,
			RideEnded:   t.RideEnded,
			Cancelled:   t.Cancelled,
			DistanceKM:  t.DistanceKM,
			CurrentPos:  t.CurrentPos,
			PickupDone:  t.PickupDone,
			VisitDone:   t.VisitDone,
			DropDone:    t.DropDone,
		}
	}
	return dto
}

func toShiftDTOs(shifts []care.Shift) []ShiftDTO {
	dtos := make([]ShiftDTO, len(shifts))
	for i, s := range shifts {
		dtos[i] = toShiftDTO(s)
	}
	return dtos
}

func toTransferDTO(r care.TransferRequest) TransferRequestDTO {
	return TransferRequestDTO{
		ID:             string(r.ID),
		ShiftID:        string(r.ShiftID),
		FromStaffID:    string(r.FromStaffID),
		FromStaffName:  r.FromStaffName,
		ToStaffID:      string(r.ToStaffID),
		ToStaffName:    r.ToStaffName,
		Reason:         r.Reason,
		Status:         string(r.Status),
		ResolutionNote: r.ResolutionNote,
		CreatedAt:      fmtRFC(r.CreatedAt),
		ResolvedAt:     fmtRFCPtr(r.ResolvedAt),
	}
}

func toLeaveDTO(r care.LeaveRequest) LeaveRequestDTO {
	return LeaveRequestDTO{
		ID:             string(r.ID),
		StaffID:        string(r.RequesterID),
		StaffName:      r.RequesterName,
		Type:           string(r.Type),
		Reason:         r.Reason,
		StartDate:      r.StartDate.UTC().Format("2006-01-02"),
		EndDate:        r.EndDate.UTC().Format("2006-01-02"),
		Status:         string(r.Status),
		ResolutionNote: r.ResolutionNote,
		CreatedAt:      fmtRFC(r.CreatedAt),
		ResolvedAt:     fmtRFCPtr(r.ResolvedAt),
	}
}

func toNotificationDTO(n care.Notification) NotificationDTO {
	return NotificationDTO{
		ID:         string(n.ID),
		Type:       string(n.Type),
		Title:      n.Title,
		Message:    n.Message,
		SenderID:   string(n.SenderID),
		Read:       n.Read,
		Resolution: n.Resolution,
		Meta:       n.Meta,
		CreatedAt:  fmtRFC(n.CreatedAt),
	}
}

func toNotificationDTOs(ns []care.Notification) []NotificationDTO {
	dtos := make([]NotificationDTO, len(ns))
	for i, n := range ns {
		dtos[i] = toNotificationDTO(n)
	}
	return dtos
}

func toProgressDTO(progress []ride.WaypointProgress, distance float64) RideProgressDTO {
	dto := RideProgressDTO{
		Waypoints:  make([]WaypointProgressDTO, len(progress)),
		DistanceKM: distance,
	}
	for i, p := range progress {
		dto.Waypoints[i] = WaypointProgressDTO{
			Name:   string(p.Name),
			Done:   p.Done,
			Status: string(p.Status),
		}
	}
	return dto
}
