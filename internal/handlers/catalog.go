package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/lumera/salonbook/internal/model"
	"github.com/lumera/salonbook/internal/storage"
	"golang.org/x/crypto/bcrypt"
)

// CatalogStore is the slice of catalog storage the service, staff and
// working-hours handlers need.
type CatalogStore interface {
	CreateService(ctx context.Context, svc *model.Service) error
	UpdateService(ctx context.Context, svc model.Service) error
	GetService(ctx context.Context, id string) (model.Service, error)
	ListServices(ctx context.Context, includeInactive bool) ([]model.Service, error)

	CreateStaff(ctx context.Context, profile *model.Profile, specialization string) (model.Staff, error)
	UpdateStaff(ctx context.Context, id, specialization string, isActive bool) error
	GetStaff(ctx context.Context, id string) (model.Staff, error)
	GetStaffByProfile(ctx context.Context, profileID string) (model.Staff, error)
	ListStaff(ctx context.Context, includeInactive bool) ([]model.Staff, error)
	ListStaffForService(ctx context.Context, serviceID string) ([]model.Staff, error)

	ListAssignedServices(ctx context.Context, staffID string) ([]string, error)
	ReplaceAssignedServices(ctx context.Context, staffID string, serviceIDs []string) error

	ListWorkingHours(ctx context.Context, staffID string) ([]model.WorkingHours, error)
	UpsertWorkingHours(ctx context.Context, wh model.WorkingHours) error
}

type CatalogHandler struct {
	store  CatalogStore
	logger *slog.Logger
}

func NewCatalogHandler(store CatalogStore, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{store: store, logger: logger}
}

type servicePayload struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	DurationMins int    `json:"duration_minutes"`
	Price        string `json:"price"`
	Category     string `json:"category,omitempty"`
	IsActive     bool   `json:"is_active"`
}

type staffPayload struct {
	ID             string `json:"id"`
	ProfileID      string `json:"profile_id"`
	FullName       string `json:"full_name"`
	Specialization string `json:"specialization,omitempty"`
	IsActive       bool   `json:"is_active"`
}

type workingHoursPayload struct {
	DayOfWeek int    `json:"day_of_week"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	IsActive  bool   `json:"is_active"`
}

func toServicePayload(svc model.Service) servicePayload {
	return servicePayload{
		ID:           svc.ID,
		Name:         svc.Name,
		Description:  svc.Description,
		DurationMins: svc.DurationMins,
		Price:        svc.Price,
		Category:     svc.Category,
		IsActive:     svc.IsActive,
	}
}

func toStaffPayload(s model.Staff) staffPayload {
	return staffPayload{
		ID:             s.ID,
		ProfileID:      s.ProfileID,
		FullName:       s.FullName,
		Specialization: s.Specialization,
		IsActive:       s.IsActive,
	}
}

func (h *CatalogHandler) ListServices(w http.ResponseWriter, r *http.Request) {
	includeInactive := false
	if r.URL.Query().Get("all") == "true" {
		id, ok := identityFrom(r.Context())
		if !ok || id.Role != model.RoleAdmin {
			writeError(w, http.StatusForbidden, "insufficient role")
			return
		}
		includeInactive = true
	}

	services, err := h.store.ListServices(r.Context(), includeInactive)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list services")
		return
	}
	out := make([]servicePayload, 0, len(services))
	for _, svc := range services {
		out = append(out, toServicePayload(svc))
	}
	writeJSON(w, http.StatusOK, out)
}

type createServiceRequest struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	DurationMins int    `json:"duration_minutes"`
	Price        string `json:"price"`
	Category     string `json:"category"`
}

func (h *CatalogHandler) CreateService(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireRole(w, r, model.RoleAdmin); !ok {
		return
	}

	var req createServiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name required")
		return
	}
	if req.DurationMins <= 0 {
		writeError(w, http.StatusBadRequest, "duration_minutes must be positive")
		return
	}
	if req.Price == "" {
		req.Price = "0"
	}

	svc := model.Service{
		Name:         req.Name,
		Description:  strings.TrimSpace(req.Description),
		DurationMins: req.DurationMins,
		Price:        req.Price,
		Category:     strings.TrimSpace(req.Category),
		IsActive:     true,
	}
	if err := h.store.CreateService(r.Context(), &svc); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create service")
		return
	}
	writeJSON(w, http.StatusCreated, toServicePayload(svc))
}

type updateServiceRequest struct {
	Name         *string `json:"name"`
	Description  *string `json:"description"`
	DurationMins *int    `json:"duration_minutes"`
	Price        *string `json:"price"`
	Category     *string `json:"category"`
	IsActive     *bool   `json:"is_active"`
}

func (h *CatalogHandler) UpdateService(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireRole(w, r, model.RoleAdmin); !ok {
		return
	}

	svc, err := h.store.GetService(r.Context(), r.PathValue("id"))
	if err != nil {
		if storage.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "service not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load service")
		return
	}

	var req updateServiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.Name != nil {
		svc.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		svc.Description = strings.TrimSpace(*req.Description)
	}
	if req.DurationMins != nil {
		svc.DurationMins = *req.DurationMins
	}
	if req.Price != nil {
		svc.Price = *req.Price
	}
	if req.Category != nil {
		svc.Category = strings.TrimSpace(*req.Category)
	}
	if req.IsActive != nil {
		svc.IsActive = *req.IsActive
	}
	if svc.Name == "" {
		writeError(w, http.StatusBadRequest, "name required")
		return
	}
	if svc.DurationMins <= 0 {
		writeError(w, http.StatusBadRequest, "duration_minutes must be positive")
		return
	}

	if err := h.store.UpdateService(r.Context(), svc); err != nil {
		if storage.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "service not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to update service")
		return
	}
	writeJSON(w, http.StatusOK, toServicePayload(svc))
}

func (h *CatalogHandler) GetService(w http.ResponseWriter, r *http.Request) {
	svc, err := h.store.GetService(r.Context(), r.PathValue("id"))
	if err != nil {
		if storage.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "service not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load service")
		return
	}
	writeJSON(w, http.StatusOK, toServicePayload(svc))
}

// StaffForService backs the booking flow's stylist picker: only active staff
// assigned to the service appear.
func (h *CatalogHandler) StaffForService(w http.ResponseWriter, r *http.Request) {
	staff, err := h.store.ListStaffForService(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list staff")
		return
	}
	out := make([]staffPayload, 0, len(staff))
	for _, s := range staff {
		out = append(out, toStaffPayload(s))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *CatalogHandler) ListStaff(w http.ResponseWriter, r *http.Request) {
	includeInactive := false
	if r.URL.Query().Get("all") == "true" {
		id, ok := identityFrom(r.Context())
		if !ok || id.Role != model.RoleAdmin {
			writeError(w, http.StatusForbidden, "insufficient role")
			return
		}
		includeInactive = true
	}

	staff, err := h.store.ListStaff(r.Context(), includeInactive)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list staff")
		return
	}
	out := make([]staffPayload, 0, len(staff))
	for _, s := range staff {
		out = append(out, toStaffPayload(s))
	}
	writeJSON(w, http.StatusOK, out)
}

type createStaffRequest struct {
	Email          string `json:"email"`
	Password       string `json:"password"`
	FullName       string `json:"full_name"`
	Phone          string `json:"phone"`
	Specialization string `json:"specialization"`
}

func (h *CatalogHandler) CreateStaff(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireRole(w, r, model.RoleAdmin); !ok {
		return
	}

	var req createStaffRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	req.Password = strings.TrimSpace(req.Password)
	req.FullName = strings.TrimSpace(req.FullName)
	if req.Email == "" || req.Password == "" || req.FullName == "" {
		writeError(w, http.StatusBadRequest, "email, password and full_name required")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to hash password")
		return
	}

	profile := model.Profile{
		FullName:     req.FullName,
		Email:        req.Email,
		Phone:        strings.TrimSpace(req.Phone),
		PasswordHash: string(hash),
	}
	staff, err := h.store.CreateStaff(r.Context(), &profile, strings.TrimSpace(req.Specialization))
	if err != nil {
		if storage.IsUniqueViolation(err) {
			writeError(w, http.StatusConflict, "email already registered")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to create staff member")
		return
	}
	writeJSON(w, http.StatusCreated, toStaffPayload(staff))
}

type updateStaffRequest struct {
	Specialization *string `json:"specialization"`
	IsActive       *bool   `json:"is_active"`
}

func (h *CatalogHandler) UpdateStaff(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireRole(w, r, model.RoleAdmin); !ok {
		return
	}

	staff, err := h.store.GetStaff(r.Context(), r.PathValue("id"))
	if err != nil {
		if storage.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "staff member not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load staff member")
		return
	}

	var req updateStaffRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.Specialization != nil {
		staff.Specialization = strings.TrimSpace(*req.Specialization)
	}
	if req.IsActive != nil {
		staff.IsActive = *req.IsActive
	}

	if err := h.store.UpdateStaff(r.Context(), staff.ID, staff.Specialization, staff.IsActive); err != nil {
		if storage.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "staff member not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to update staff member")
		return
	}
	writeJSON(w, http.StatusOK, toStaffPayload(staff))
}

func (h *CatalogHandler) GetAssignedServices(w http.ResponseWriter, r *http.Request) {
	ids, err := h.store.ListAssignedServices(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list assigned services")
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"service_ids": ids})
}

type assignServicesRequest struct {
	ServiceIDs []string `json:"service_ids"`
}

func (h *CatalogHandler) PutAssignedServices(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireRole(w, r, model.RoleAdmin); !ok {
		return
	}

	staffID := r.PathValue("id")
	if _, err := h.store.GetStaff(r.Context(), staffID); err != nil {
		if storage.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "staff member not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load staff member")
		return
	}

	var req assignServicesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if err := h.store.ReplaceAssignedServices(r.Context(), staffID, req.ServiceIDs); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update assigned services")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CatalogHandler) GetWorkingHours(w http.ResponseWriter, r *http.Request) {
	rows, err := h.store.ListWorkingHours(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list working hours")
		return
	}
	out := make([]workingHoursPayload, 0, len(rows))
	for _, wh := range rows {
		out = append(out, workingHoursPayload{
			DayOfWeek: wh.Weekday,
			StartTime: wh.Start,
			EndTime:   wh.End,
			IsActive:  wh.IsActive,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// PutWorkingHours replaces weekday template rows for a staff member. Admin
// may edit anyone; a staff member may edit only their own calendar.
func (h *CatalogHandler) PutWorkingHours(w http.ResponseWriter, r *http.Request) {
	id, ok := requireRole(w, r, model.RoleAdmin, model.RoleStaff)
	if !ok {
		return
	}
	staffID := r.PathValue("id")

	if id.Role == model.RoleStaff {
		own, err := h.store.GetStaffByProfile(r.Context(), id.ProfileID)
		if err != nil || own.ID != staffID {
			writeError(w, http.StatusForbidden, "cannot edit another staff member's hours")
			return
		}
	}

	var rows []workingHoursPayload
	if err := json.NewDecoder(r.Body).Decode(&rows); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	for _, row := range rows {
		if row.DayOfWeek < 0 || row.DayOfWeek > 6 {
			writeError(w, http.StatusBadRequest, "day_of_week must be 0-6")
			return
		}
		start, err := time.Parse("15:04", row.StartTime)
		if err != nil {
			writeError(w, http.StatusBadRequest, "start_time must be HH:MM")
			return
		}
		end, err := time.Parse("15:04", row.EndTime)
		if err != nil {
			writeError(w, http.StatusBadRequest, "end_time must be HH:MM")
			return
		}
		if !end.After(start) {
			writeError(w, http.StatusBadRequest, "end_time must be after start_time")
			return
		}
	}

	for _, row := range rows {
		err := h.store.UpsertWorkingHours(r.Context(), model.WorkingHours{
			StaffID:  staffID,
			Weekday:  row.DayOfWeek,
			Start:    row.StartTime,
			End:      row.EndTime,
			IsActive: row.IsActive,
		})
		if err != nil {
			h.logger.Error("working hours upsert failed", "staff_id", staffID, "err", err)
			writeError(w, http.StatusInternalServerError, "failed to save working hours")
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}
