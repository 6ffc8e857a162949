package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/lumera/salonbook/internal/metrics"
	"github.com/lumera/salonbook/internal/model"
	"github.com/lumera/salonbook/internal/outbox"
	"github.com/lumera/salonbook/internal/storage"
)

type AppointmentsHandler struct {
	catalog CatalogStore
	appts   AppointmentStore
	metrics *metrics.Metrics
	logger  *slog.Logger
	loc     *time.Location
	now     func() time.Time
}

func NewAppointmentsHandler(catalog CatalogStore, appts AppointmentStore, m *metrics.Metrics, logger *slog.Logger, loc *time.Location) *AppointmentsHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &AppointmentsHandler{
		catalog: catalog,
		appts:   appts,
		metrics: m,
		logger:  logger,
		loc:     loc,
		now:     time.Now,
	}
}

type appointmentPayload struct {
	ID           string `json:"id"`
	CustomerID   string `json:"customer_id"`
	StaffID      string `json:"staff_id"`
	ServiceID    string `json:"service_id"`
	StartTime    string `json:"start_time"`
	EndTime      string `json:"end_time"`
	Status       string `json:"status"`
	CancelledAt  string `json:"cancelled_at,omitempty"`
	CreatedAt    string `json:"created_at,omitempty"`
	CustomerName string `json:"customer_name,omitempty"`
	StaffName    string `json:"staff_name,omitempty"`
	ServiceName  string `json:"service_name,omitempty"`
}

func toAppointmentPayload(a model.Appointment) appointmentPayload {
	p := appointmentPayload{
		ID:           a.ID,
		CustomerID:   a.CustomerID,
		StaffID:      a.StaffID,
		ServiceID:    a.ServiceID,
		StartTime:    a.StartTime.UTC().Format(time.RFC3339),
		EndTime:      a.EndTime.UTC().Format(time.RFC3339),
		Status:       string(a.Status),
		CustomerName: a.CustomerName,
		StaffName:    a.StaffName,
		ServiceName:  a.ServiceName,
	}
	if a.CancelledAt != nil {
		p.CancelledAt = a.CancelledAt.UTC().Format(time.RFC3339)
	}
	if !a.CreatedAt.IsZero() {
		p.CreatedAt = a.CreatedAt.UTC().Format(time.RFC3339)
	}
	return p
}

func toAppointmentPayloads(appts []model.Appointment) []appointmentPayload {
	out := make([]appointmentPayload, 0, len(appts))
	for _, a := range appts {
		out = append(out, toAppointmentPayload(a))
	}
	return out
}

func (h *AppointmentsHandler) Mine(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	limit := parseLimit(r, 50)
	appts, err := h.appts.ListByCustomer(r.Context(), id.ProfileID, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list appointments")
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentPayloads(appts))
}

// Cancel is the customer self-service path: own appointment, still
// confirmed, start time in the future. Staff and admin transitions go
// through UpdateStatus instead.
func (h *AppointmentsHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	appt, err := h.appts.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		if storage.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "appointment not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load appointment")
		return
	}
	if appt.CustomerID != id.ProfileID {
		writeError(w, http.StatusForbidden, "not your appointment")
		return
	}
	if !model.CanTransition(appt.Status, model.StatusCancelled, model.RoleCustomer) {
		writeError(w, http.StatusUnprocessableEntity, "appointment cannot be cancelled")
		return
	}
	if !appt.StartTime.After(h.now()) {
		writeError(w, http.StatusUnprocessableEntity, "appointment has already started")
		return
	}

	if err := h.transition(w, r, appt, model.StatusCancelled, id); err != nil {
		return
	}
	appt.Status = model.StatusCancelled
	writeJSON(w, http.StatusOK, toAppointmentPayload(appt))
}

// Schedule is a staff member's own day view.
func (h *AppointmentsHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	id, ok := requireRole(w, r, model.RoleStaff)
	if !ok {
		return
	}
	staff, err := h.catalog.GetStaffByProfile(r.Context(), id.ProfileID)
	if err != nil {
		if storage.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "no staff record for this account")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load staff record")
		return
	}

	dateStr := strings.TrimSpace(r.URL.Query().Get("date"))
	var day time.Time
	if dateStr == "" {
		now := h.now().In(h.loc)
		day = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, h.loc)
	} else {
		day, err = time.ParseInLocation("2006-01-02", dateStr, h.loc)
		if err != nil {
			writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
	}

	appts, err := h.appts.ListForStaffDay(r.Context(), staff.ID, day, day.AddDate(0, 0, 1))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list appointments")
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentPayloads(appts))
}

func (h *AppointmentsHandler) AdminList(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireRole(w, r, model.RoleAdmin); !ok {
		return
	}
	filter, ok := storage.ParseAdminFilter(strings.TrimSpace(r.URL.Query().Get("filter")))
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown filter")
		return
	}
	limit := parseLimit(r, 100)
	appts, err := h.appts.ListAdmin(r.Context(), filter, h.now(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list appointments")
		return
	}
	writeJSON(w, http.StatusOK, toAppointmentPayloads(appts))
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

// UpdateStatus applies a staff or admin transition. The allowed moves come
// from the state machine in internal/model; staff may only touch their own
// calendar.
func (h *AppointmentsHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := requireRole(w, r, model.RoleStaff, model.RoleAdmin)
	if !ok {
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	target, ok := model.ParseStatus(strings.TrimSpace(req.Status))
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown status")
		return
	}

	appt, err := h.appts.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		if storage.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "appointment not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load appointment")
		return
	}

	if id.Role == model.RoleStaff {
		own, err := h.catalog.GetStaffByProfile(r.Context(), id.ProfileID)
		if err != nil || own.ID != appt.StaffID {
			writeError(w, http.StatusForbidden, "not your appointment")
			return
		}
	}

	if !model.CanTransition(appt.Status, target, id.Role) {
		writeError(w, http.StatusUnprocessableEntity, "transition not allowed")
		return
	}

	if err := h.transition(w, r, appt, target, id); err != nil {
		return
	}
	appt.Status = target
	writeJSON(w, http.StatusOK, toAppointmentPayload(appt))
}

// transition runs the optimistic status update plus its outbox event and
// writes the error response itself on failure.
func (h *AppointmentsHandler) transition(w http.ResponseWriter, r *http.Request, appt model.Appointment, target model.Status, actor Identity) error {
	payload, err := json.Marshal(map[string]any{
		"appointment_id": appt.ID,
		"from":           appt.Status,
		"to":             target,
		"actor_id":       actor.ProfileID,
		"actor_role":     actor.Role,
		"changed_at":     h.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to build status event")
		return err
	}

	err = h.appts.UpdateStatus(r.Context(), appt.ID, appt.Status, target, outbox.Event{
		AggregateType: "appointment",
		EventType:     outbox.EventAppointmentStatusChanged,
		Payload:       payload,
	})
	if err != nil {
		if err == storage.ErrStatusChanged {
			writeError(w, http.StatusConflict, "appointment status changed, reload and retry")
			return err
		}
		h.logger.Error("status update failed", "appointment_id", appt.ID, "err", err)
		writeError(w, http.StatusInternalServerError, "failed to update status")
		return err
	}
	h.metrics.StatusTransition(string(target))
	return nil
}

func parseLimit(r *http.Request, fallback int) int {
	raw := strings.TrimSpace(r.URL.Query().Get("limit"))
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 || n > 200 {
		return fallback
	}
	return n
}
