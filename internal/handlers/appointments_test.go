package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/lumera/salonbook/internal/model"
)

func newAppointmentsFixture() (*AppointmentsHandler, *fakeCatalog, *fakeAppointments) {
	catalog := newFakeCatalog()
	appts := newFakeAppointments()
	catalog.staff["staff-1"] = model.Staff{ID: "staff-1", ProfileID: "profile-staff", FullName: "Dana", IsActive: true}

	h := NewAppointmentsHandler(catalog, appts, nil, testLogger(), time.UTC)
	h.now = func() time.Time { return monday(8, 0) }
	return h, catalog, appts
}

func doCancel(t *testing.T, h *AppointmentsHandler, apptID string, id Identity) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/appointments/"+apptID+"/cancel", nil)
	req.SetPathValue("id", apptID)
	req = req.WithContext(ContextWithIdentity(req.Context(), id))
	rec := httptest.NewRecorder()
	h.Cancel(rec, req)
	return rec
}

func doUpdateStatus(t *testing.T, h *AppointmentsHandler, apptID, body string, id Identity) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/appointments/"+apptID+"/status", strings.NewReader(body))
	req.SetPathValue("id", apptID)
	req = req.WithContext(ContextWithIdentity(req.Context(), id))
	rec := httptest.NewRecorder()
	h.UpdateStatus(rec, req)
	return rec
}

func TestCustomerCancelOwnConfirmed(t *testing.T) {
	h, _, appts := newAppointmentsFixture()
	appts.byID["appt-1"] = model.Appointment{
		ID: "appt-1", CustomerID: "cust-1", StaffID: "staff-1",
		StartTime: monday(10, 0), EndTime: monday(10, 30), Status: model.StatusConfirmed,
	}

	rec := doCancel(t, h, "appt-1", Identity{ProfileID: "cust-1", Role: model.RoleCustomer})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
	if appts.byID["appt-1"].Status != model.StatusCancelled {
		t.Fatalf("stored status = %s, want cancelled", appts.byID["appt-1"].Status)
	}
	if appts.lastFrom != model.StatusConfirmed || appts.lastTo != model.StatusCancelled {
		t.Fatalf("transition %s->%s, want confirmed->cancelled", appts.lastFrom, appts.lastTo)
	}
}

func TestCustomerCannotCancelOthers(t *testing.T) {
	h, _, appts := newAppointmentsFixture()
	appts.byID["appt-1"] = model.Appointment{
		ID: "appt-1", CustomerID: "cust-1", StaffID: "staff-1",
		StartTime: monday(10, 0), Status: model.StatusConfirmed,
	}

	rec := doCancel(t, h, "appt-1", Identity{ProfileID: "cust-2", Role: model.RoleCustomer})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	if appts.byID["appt-1"].Status != model.StatusConfirmed {
		t.Fatal("appointment should be untouched")
	}
}

func TestCustomerCannotCancelStarted(t *testing.T) {
	h, _, appts := newAppointmentsFixture()
	appts.byID["appt-1"] = model.Appointment{
		ID: "appt-1", CustomerID: "cust-1", StaffID: "staff-1",
		StartTime: monday(10, 0), Status: model.StatusConfirmed,
	}
	h.now = func() time.Time { return monday(10, 0) }

	rec := doCancel(t, h, "appt-1", Identity{ProfileID: "cust-1", Role: model.RoleCustomer})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
}

func TestStaffCompletesOwnAppointment(t *testing.T) {
	h, _, appts := newAppointmentsFixture()
	appts.byID["appt-1"] = model.Appointment{
		ID: "appt-1", CustomerID: "cust-1", StaffID: "staff-1",
		StartTime: monday(10, 0), Status: model.StatusConfirmed,
	}

	rec := doUpdateStatus(t, h, "appt-1", `{"status":"completed"}`, Identity{ProfileID: "profile-staff", Role: model.RoleStaff})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
	if appts.byID["appt-1"].Status != model.StatusCompleted {
		t.Fatalf("stored status = %s, want completed", appts.byID["appt-1"].Status)
	}
}

func TestStaffCannotTouchOtherCalendars(t *testing.T) {
	h, catalog, appts := newAppointmentsFixture()
	catalog.staff["staff-2"] = model.Staff{ID: "staff-2", ProfileID: "profile-other", IsActive: true}
	appts.byID["appt-1"] = model.Appointment{
		ID: "appt-1", CustomerID: "cust-1", StaffID: "staff-1", Status: model.StatusConfirmed,
	}

	rec := doUpdateStatus(t, h, "appt-1", `{"status":"completed"}`, Identity{ProfileID: "profile-other", Role: model.RoleStaff})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}

func TestTerminalStatusHasNoExits(t *testing.T) {
	h, _, appts := newAppointmentsFixture()
	appts.byID["appt-1"] = model.Appointment{
		ID: "appt-1", CustomerID: "cust-1", StaffID: "staff-1", Status: model.StatusCompleted,
	}

	rec := doUpdateStatus(t, h, "appt-1", `{"status":"confirmed"}`, Identity{ProfileID: "admin-1", Role: model.RoleAdmin})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
}

func TestCustomerCannotUsePatchStatus(t *testing.T) {
	h, _, appts := newAppointmentsFixture()
	appts.byID["appt-1"] = model.Appointment{
		ID: "appt-1", CustomerID: "cust-1", StaffID: "staff-1", Status: model.StatusConfirmed,
	}

	rec := doUpdateStatus(t, h, "appt-1", `{"status":"cancelled"}`, Identity{ProfileID: "cust-1", Role: model.RoleCustomer})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}

func TestAdminListRejectsUnknownFilter(t *testing.T) {
	h, _, _ := newAppointmentsFixture()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/appointments?filter=bogus", nil)
	req = req.WithContext(ContextWithIdentity(req.Context(), Identity{ProfileID: "admin-1", Role: model.RoleAdmin}))
	rec := httptest.NewRecorder()
	h.AdminList(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestScheduleRequiresStaffRecord(t *testing.T) {
	h, _, _ := newAppointmentsFixture()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/appointments/schedule?date=2026-09-14", nil)
	req = req.WithContext(ContextWithIdentity(req.Context(), Identity{ProfileID: "profile-unknown", Role: model.RoleStaff}))
	rec := httptest.NewRecorder()
	h.Schedule(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestScheduleListsOwnDay(t *testing.T) {
	h, _, appts := newAppointmentsFixture()
	appts.byID["appt-1"] = model.Appointment{
		ID: "appt-1", CustomerID: "cust-1", StaffID: "staff-1",
		StartTime: monday(10, 0), Status: model.StatusConfirmed,
	}
	appts.byID["appt-2"] = model.Appointment{
		ID: "appt-2", CustomerID: "cust-1", StaffID: "staff-1",
		StartTime: monday(10, 0).AddDate(0, 0, 1), Status: model.StatusConfirmed,
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/appointments/schedule?date=2026-09-14", nil)
	req = req.WithContext(ContextWithIdentity(req.Context(), Identity{ProfileID: "profile-staff", Role: model.RoleStaff}))
	rec := httptest.NewRecorder()
	h.Schedule(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "appt-1") || strings.Contains(rec.Body.String(), "appt-2") {
		t.Fatalf("day view should contain only appt-1: %s", rec.Body.String())
	}
}
