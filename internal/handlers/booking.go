package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/lumera/salonbook/internal/availability"
	"github.com/lumera/salonbook/internal/metrics"
	"github.com/lumera/salonbook/internal/model"
	"github.com/lumera/salonbook/internal/outbox"
	"github.com/lumera/salonbook/internal/storage"
)

// AppointmentStore is the slice of appointment storage the booking and
// appointment handlers need. Create and UpdateStatus run the domain write
// and its outbox event in one transaction.
type AppointmentStore interface {
	Create(ctx context.Context, appt *model.Appointment, evt outbox.Event) error
	GetByID(ctx context.Context, id string) (model.Appointment, error)
	UpdateStatus(ctx context.Context, id string, from, to model.Status, evt outbox.Event) error
	ListBookedIntervals(ctx context.Context, staffID string, from, to time.Time) ([]availability.Interval, error)
	ListByCustomer(ctx context.Context, customerID string, limit int) ([]model.Appointment, error)
	ListForStaffDay(ctx context.Context, staffID string, from, to time.Time) ([]model.Appointment, error)
	ListAdmin(ctx context.Context, filter storage.AdminFilter, now time.Time, limit int) ([]model.Appointment, error)
}

type BookingHandler struct {
	catalog CatalogStore
	appts   AppointmentStore
	metrics *metrics.Metrics
	logger  *slog.Logger
	loc     *time.Location
	now     func() time.Time
}

func NewBookingHandler(catalog CatalogStore, appts AppointmentStore, m *metrics.Metrics, logger *slog.Logger, loc *time.Location) *BookingHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &BookingHandler{
		catalog: catalog,
		appts:   appts,
		metrics: m,
		logger:  logger,
		loc:     loc,
		now:     time.Now,
	}
}

type slotItem struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

func (h *BookingHandler) Slots(w http.ResponseWriter, r *http.Request) {
	began := h.now()

	q := r.URL.Query()
	staffID := strings.TrimSpace(q.Get("staff_id"))
	serviceID := strings.TrimSpace(q.Get("service_id"))
	dateStr := strings.TrimSpace(q.Get("date"))
	if staffID == "" || serviceID == "" || dateStr == "" {
		writeError(w, http.StatusBadRequest, "staff_id, service_id and date are required")
		return
	}
	date, err := time.ParseInLocation("2006-01-02", dateStr, h.loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	svc, err := h.catalog.GetService(r.Context(), serviceID)
	if err != nil {
		if storage.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "service not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load service")
		return
	}
	staff, err := h.catalog.GetStaff(r.Context(), staffID)
	if err != nil {
		if storage.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "staff member not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load staff member")
		return
	}
	if !svc.IsActive || !staff.IsActive {
		writeJSON(w, http.StatusOK, []slotItem{})
		return
	}

	rows, err := h.catalog.ListWorkingHours(r.Context(), staffID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load working hours")
		return
	}
	wh, ok := availability.ForWeekday(rows, date.Weekday())
	if !ok {
		writeJSON(w, http.StatusOK, []slotItem{})
		return
	}
	win, err := availability.DayWindow(date, wh, h.loc)
	if err != nil {
		h.logger.Warn("unusable working hours row", "staff_id", staffID, "err", err)
		writeJSON(w, http.StatusOK, []slotItem{})
		return
	}

	busy, err := h.appts.ListBookedIntervals(r.Context(), staffID, win.Start, win.End)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load booked slots")
		return
	}

	duration := time.Duration(svc.DurationMins) * time.Minute
	starts := availability.AvailableSlots(win.Start, win.End, duration, availability.SlotStep, busy, h.now())

	out := make([]slotItem, 0, len(starts))
	for _, s := range starts {
		out = append(out, slotItem{
			StartTime: s.UTC().Format(time.RFC3339),
			EndTime:   s.Add(duration).UTC().Format(time.RFC3339),
		})
	}
	h.metrics.ObserveSlotLookup(h.now().Sub(began))
	writeJSON(w, http.StatusOK, out)
}

type createAppointmentRequest struct {
	StaffID   string `json:"staff_id"`
	ServiceID string `json:"service_id"`
	StartTime string `json:"start_time"`
}

// Create books an appointment for the signed-in customer. The duration comes
// from the stored service row, never from the client, and the final word on
// overlap belongs to the database exclusion constraint.
func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	id, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	var req createAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	req.StaffID = strings.TrimSpace(req.StaffID)
	req.ServiceID = strings.TrimSpace(req.ServiceID)
	if req.StaffID == "" || req.ServiceID == "" || req.StartTime == "" {
		writeError(w, http.StatusBadRequest, "staff_id, service_id and start_time required")
		return
	}
	start, err := time.Parse(time.RFC3339, req.StartTime)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid start_time")
		return
	}

	svc, err := h.catalog.GetService(r.Context(), req.ServiceID)
	if err != nil {
		if storage.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "service not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load service")
		return
	}
	staff, err := h.catalog.GetStaff(r.Context(), req.StaffID)
	if err != nil {
		if storage.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "staff member not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load staff member")
		return
	}
	if !svc.IsActive || !staff.IsActive {
		h.metrics.BookingOutcome("rejected")
		writeError(w, http.StatusUnprocessableEntity, "service or staff member is unavailable")
		return
	}

	assigned, err := h.catalog.ListAssignedServices(r.Context(), staff.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load staff services")
		return
	}
	offers := false
	for _, sid := range assigned {
		if sid == svc.ID {
			offers = true
			break
		}
	}
	if !offers {
		h.metrics.BookingOutcome("rejected")
		writeError(w, http.StatusUnprocessableEntity, "staff member does not offer this service")
		return
	}

	duration := time.Duration(svc.DurationMins) * time.Minute
	end := start.Add(duration)
	now := h.now()
	if !start.After(now) {
		h.metrics.BookingOutcome("rejected")
		writeError(w, http.StatusUnprocessableEntity, "start_time must be in the future")
		return
	}

	startLocal := start.In(h.loc)
	rows, err := h.catalog.ListWorkingHours(r.Context(), staff.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load working hours")
		return
	}
	wh, ok := availability.ForWeekday(rows, startLocal.Weekday())
	if !ok {
		h.metrics.BookingOutcome("rejected")
		writeError(w, http.StatusUnprocessableEntity, "staff member does not work that day")
		return
	}
	win, err := availability.DayWindow(startLocal, wh, h.loc)
	if err != nil {
		h.metrics.BookingOutcome("rejected")
		writeError(w, http.StatusUnprocessableEntity, "staff member does not work that day")
		return
	}
	if start.Before(win.Start) || end.After(win.End) {
		h.metrics.BookingOutcome("rejected")
		writeError(w, http.StatusUnprocessableEntity, "requested time is outside working hours")
		return
	}
	if start.Sub(win.Start)%availability.SlotStep != 0 {
		h.metrics.BookingOutcome("rejected")
		writeError(w, http.StatusUnprocessableEntity, "start_time is not on a slot boundary")
		return
	}

	appt := model.Appointment{
		CustomerID: id.ProfileID,
		StaffID:    staff.ID,
		ServiceID:  svc.ID,
		StartTime:  start,
		EndTime:    end,
		Status:     model.StatusConfirmed,
	}
	payload, err := json.Marshal(map[string]any{
		"customer_id": appt.CustomerID,
		"staff_id":    appt.StaffID,
		"service_id":  appt.ServiceID,
		"start_time":  appt.StartTime.UTC().Format(time.RFC3339),
		"end_time":    appt.EndTime.UTC().Format(time.RFC3339),
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to build booking event")
		return
	}

	err = h.appts.Create(r.Context(), &appt, outbox.Event{
		AggregateType: "appointment",
		EventType:     outbox.EventAppointmentBooked,
		Payload:       payload,
	})
	if err != nil {
		if err == storage.ErrSlotConflict {
			h.metrics.BookingOutcome("conflict")
			writeError(w, http.StatusConflict, "this time was just taken, pick another")
			return
		}
		h.metrics.BookingOutcome("error")
		h.logger.Error("booking insert failed", "staff_id", appt.StaffID, "err", err)
		writeError(w, http.StatusInternalServerError, "failed to create appointment")
		return
	}

	h.metrics.BookingOutcome("created")
	writeJSON(w, http.StatusCreated, toAppointmentPayload(appt))
}
