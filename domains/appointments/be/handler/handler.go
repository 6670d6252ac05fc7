package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/torqueware/shopboard/domains/appointments/be/service"
	"github.com/torqueware/shopboard/platform/go/events"
	"github.com/torqueware/shopboard/platform/go/logging"
	"github.com/torqueware/shopboard/platform/go/tenant"
)

const (
	problemTypeValidation        = "https://shopboard.dev/problems/validation-error"
	problemTypeNotFound          = "https://shopboard.dev/problems/not-found"
	problemTypeVersionConflict   = "https://shopboard.dev/problems/version-conflict"
	problemTypeScheduleConflict  = "https://shopboard.dev/problems/scheduling-conflict"
	problemTypeInvalidTransition = "https://shopboard.dev/problems/invalid-transition"
	problemTypeInternal          = "https://shopboard.dev/problems/internal-error"
)

// Handler exposes the board core over HTTP. Authentication and tenant
// resolution happen upstream; by the time a request lands here the tenant id
// is already on the context.
type Handler struct {
	svc       *service.Service
	publisher events.Publisher
	logger    *zap.Logger
}

// New constructs a Handler instance.
func New(svc *service.Service, publisher events.Publisher, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("appointments service is required")
	}
	if publisher == nil {
		publisher = events.Nop{}
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{svc: svc, publisher: publisher, logger: logger}
}

// Routes mounts the appointment endpoints on the given router.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/appointments", h.Schedule)
	r.Post("/appointments/{appointmentID}/move", h.ApplyMove)
	r.Get("/board", h.Board)
}

type problem struct {
	Type           string   `json:"type"`
	Title          string   `json:"title"`
	Status         int      `json:"status"`
	Detail         string   `json:"detail,omitempty"`
	ConflictingIDs []string `json:"conflicting_ids,omitempty"`
}

type moveRequest struct {
	ExpectedVersion int64       `json:"expected_version"`
	Changes         moveChanges `json:"changes"`
}

type moveChanges struct {
	Status             *string    `json:"status,omitempty"`
	Position           *int       `json:"position,omitempty"`
	TechnicianID       *uuid.UUID `json:"technician_id,omitempty"`
	UnassignTechnician bool       `json:"unassign_technician,omitempty"`
	ScheduledStart     *time.Time `json:"scheduled_start,omitempty"`
	ScheduledEnd       *time.Time `json:"scheduled_end,omitempty"`
}

type scheduleRequest struct {
	TechnicianID   *uuid.UUID `json:"technician_id,omitempty"`
	ScheduledStart time.Time  `json:"scheduled_start"`
	ScheduledEnd   time.Time  `json:"scheduled_end"`
	Position       int        `json:"position"`
}

type appointmentResponse struct {
	ID             uuid.UUID  `json:"id"`
	TechnicianID   *uuid.UUID `json:"technician_id,omitempty"`
	ScheduledStart time.Time  `json:"scheduled_start"`
	ScheduledEnd   time.Time  `json:"scheduled_end"`
	Status         string     `json:"status"`
	Position       int        `json:"position"`
	Version        int64      `json:"version"`
	CheckInAt      *time.Time `json:"check_in_at,omitempty"`
	CheckOutAt     *time.Time `json:"check_out_at,omitempty"`
}

type boardResponse struct {
	Columns []boardColumnResponse `json:"columns"`
}

type boardColumnResponse struct {
	Status       string                `json:"status"`
	Appointments []appointmentResponse `json:"appointments"`
}

// ApplyMove implements POST /appointments/{appointmentID}/move.
func (h *Handler) ApplyMove(w http.ResponseWriter, r *http.Request) {
	logger := logging.FromRequest(r, h.logger)

	tenantID, ok := tenant.FromContext(r.Context())
	if !ok {
		h.writeProblem(w, problem{Type: problemTypeValidation, Title: "Missing tenant", Status: http.StatusBadRequest})
		return
	}

	appointmentID, err := uuid.Parse(chi.URLParam(r, "appointmentID"))
	if err != nil {
		h.writeProblem(w, problem{Type: problemTypeValidation, Title: "Invalid appointment id", Status: http.StatusBadRequest, Detail: err.Error()})
		return
	}

	var req moveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeProblem(w, problem{Type: problemTypeValidation, Title: "Invalid request body", Status: http.StatusBadRequest, Detail: err.Error()})
		return
	}
	if req.ExpectedVersion < 1 {
		h.writeProblem(w, problem{Type: problemTypeValidation, Title: "Invalid expected_version", Status: http.StatusBadRequest, Detail: "expected_version must be at least 1"})
		return
	}

	changes, err := toServiceChanges(req.Changes)
	if err != nil {
		h.writeProblem(w, problem{Type: problemTypeValidation, Title: "Invalid changes", Status: http.StatusBadRequest, Detail: err.Error()})
		return
	}

	updated, err := h.svc.ApplyMove(r.Context(), tenantID, appointmentID, req.ExpectedVersion, changes)
	if err != nil {
		h.writeMoveError(w, logger, err)
		return
	}

	h.publishMoved(r, logger, updated)
	h.writeJSON(w, http.StatusOK, toAppointmentResponse(updated))
}

// Board implements GET /board.
func (h *Handler) Board(w http.ResponseWriter, r *http.Request) {
	logger := logging.FromRequest(r, h.logger)

	tenantID, ok := tenant.FromContext(r.Context())
	if !ok {
		h.writeProblem(w, problem{Type: problemTypeValidation, Title: "Missing tenant", Status: http.StatusBadRequest})
		return
	}

	from, to, err := parseRange(r)
	if err != nil {
		h.writeProblem(w, problem{Type: problemTypeValidation, Title: "Invalid range", Status: http.StatusBadRequest, Detail: err.Error()})
		return
	}

	var technicianID *uuid.UUID
	if raw := r.URL.Query().Get("technician_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			h.writeProblem(w, problem{Type: problemTypeValidation, Title: "Invalid technician_id", Status: http.StatusBadRequest, Detail: err.Error()})
			return
		}
		technicianID = &id
	}

	board, err := h.svc.Board(r.Context(), tenantID, technicianID, from, to)
	if err != nil {
		logger.Error("build board", zap.Error(err))
		h.writeProblem(w, problem{Type: problemTypeInternal, Title: "Internal error", Status: http.StatusInternalServerError})
		return
	}

	h.writeJSON(w, http.StatusOK, toBoardResponse(board))
}

// Schedule implements POST /appointments, the booking collaborator entry point.
func (h *Handler) Schedule(w http.ResponseWriter, r *http.Request) {
	logger := logging.FromRequest(r, h.logger)

	tenantID, ok := tenant.FromContext(r.Context())
	if !ok {
		h.writeProblem(w, problem{Type: problemTypeValidation, Title: "Missing tenant", Status: http.StatusBadRequest})
		return
	}

	var req scheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeProblem(w, problem{Type: problemTypeValidation, Title: "Invalid request body", Status: http.StatusBadRequest, Detail: err.Error()})
		return
	}

	created, err := h.svc.Schedule(r.Context(), service.ScheduleInput{
		TenantID:       tenantID,
		TechnicianID:   req.TechnicianID,
		ScheduledStart: req.ScheduledStart,
		ScheduledEnd:   req.ScheduledEnd,
		Position:       req.Position,
	})
	if err != nil {
		h.writeMoveError(w, logger, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, toAppointmentResponse(created))
}

func (h *Handler) writeMoveError(w http.ResponseWriter, logger *zap.Logger, err error) {
	var invalid *service.InvalidTransitionError
	var conflict *service.SchedulingConflictError
	switch {
	case errors.Is(err, service.ErrNotFound):
		h.writeProblem(w, problem{Type: problemTypeNotFound, Title: "Appointment not found", Status: http.StatusNotFound})
	case errors.Is(err, service.ErrVersionConflict):
		h.writeProblem(w, problem{
			Type:   problemTypeVersionConflict,
			Title:  "Version conflict",
			Status: http.StatusConflict,
			Detail: "the appointment changed since it was last read; re-fetch and retry",
		})
	case errors.Is(err, service.ErrInvalidWindow):
		h.writeProblem(w, problem{Type: problemTypeValidation, Title: "Invalid time window", Status: http.StatusBadRequest, Detail: err.Error()})
	case errors.As(err, &invalid):
		h.writeProblem(w, problem{
			Type:   problemTypeInvalidTransition,
			Title:  "Invalid status transition",
			Status: http.StatusUnprocessableEntity,
			Detail: invalid.Error(),
		})
	case errors.As(err, &conflict):
		ids := make([]string, 0, len(conflict.ConflictingIDs))
		for _, id := range conflict.ConflictingIDs {
			ids = append(ids, id.String())
		}
		h.writeProblem(w, problem{
			Type:           problemTypeScheduleConflict,
			Title:          "Scheduling conflict",
			Status:         http.StatusConflict,
			Detail:         "the requested slot overlaps existing bookings",
			ConflictingIDs: ids,
		})
	default:
		logger.Error("apply move", zap.Error(err))
		h.writeProblem(w, problem{Type: problemTypeInternal, Title: "Internal error", Status: http.StatusInternalServerError})
	}
}

func (h *Handler) publishMoved(r *http.Request, logger *zap.Logger, appt service.Appointment) {
	event := events.AppointmentMoved{
		EventID:        uuid.New(),
		TenantID:       appt.TenantID,
		AppointmentID:  appt.ID,
		Status:         string(appt.Status),
		Position:       appt.Position,
		TechnicianID:   appt.TechnicianID,
		ScheduledStart: appt.ScheduledStart,
		ScheduledEnd:   appt.ScheduledEnd,
		Version:        appt.Version,
		OccurredAt:     time.Now().UTC(),
	}
	if err := h.publisher.PublishAppointmentMoved(r.Context(), event); err != nil {
		// The move already landed in the store; the event stream catches up on
		// the next refresh, so publish failures are logged and swallowed.
		logger.Warn("publish appointment.moved", zap.Error(err), zap.String("appointment_id", appt.ID.String()))
	}
}

func (h *Handler) writeProblem(w http.ResponseWriter, p problem) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func toServiceChanges(c moveChanges) (service.MoveChanges, error) {
	changes := service.MoveChanges{
		Position:           c.Position,
		TechnicianID:       c.TechnicianID,
		UnassignTechnician: c.UnassignTechnician,
		ScheduledStart:     c.ScheduledStart,
		ScheduledEnd:       c.ScheduledEnd,
	}
	if c.Status != nil {
		status, err := service.ParseStatus(*c.Status)
		if err != nil {
			return service.MoveChanges{}, err
		}
		changes.Status = &status
	}
	return changes, nil
}

func parseRange(r *http.Request) (time.Time, time.Time, error) {
	from, err := time.Parse(time.RFC3339, r.URL.Query().Get("from"))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err := time.Parse(time.RFC3339, r.URL.Query().Get("to"))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return from, to, nil
}

func toAppointmentResponse(appt service.Appointment) appointmentResponse {
	return appointmentResponse{
		ID:             appt.ID,
		TechnicianID:   appt.TechnicianID,
		ScheduledStart: appt.ScheduledStart,
		ScheduledEnd:   appt.ScheduledEnd,
		Status:         string(appt.Status),
		Position:       appt.Position,
		Version:        appt.Version,
		CheckInAt:      appt.CheckInAt,
		CheckOutAt:     appt.CheckOutAt,
	}
}

func toBoardResponse(board service.Board) boardResponse {
	resp := boardResponse{Columns: make([]boardColumnResponse, 0, len(board.Columns))}
	for _, column := range board.Columns {
		appts := make([]appointmentResponse, 0, len(column.Appointments))
		for _, appt := range column.Appointments {
			appts = append(appts, toAppointmentResponse(appt))
		}
		resp.Columns = append(resp.Columns, boardColumnResponse{Status: string(column.Status), Appointments: appts})
	}
	return resp
}
