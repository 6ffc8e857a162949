package handlers

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/lumera/salonbook/internal/availability"
	"github.com/lumera/salonbook/internal/model"
	"github.com/lumera/salonbook/internal/outbox"
	"github.com/lumera/salonbook/internal/sessions"
	"github.com/lumera/salonbook/internal/storage"
)

type fakeCatalog struct {
	services map[string]model.Service
	staff    map[string]model.Staff
	assigned map[string][]string
	hours    map[string][]model.WorkingHours
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		services: map[string]model.Service{},
		staff:    map[string]model.Staff{},
		assigned: map[string][]string{},
		hours:    map[string][]model.WorkingHours{},
	}
}

func (f *fakeCatalog) CreateService(_ context.Context, svc *model.Service) error {
	if svc.ID == "" {
		svc.ID = "svc-new"
	}
	f.services[svc.ID] = *svc
	return nil
}

func (f *fakeCatalog) UpdateService(_ context.Context, svc model.Service) error {
	if _, ok := f.services[svc.ID]; !ok {
		return pgx.ErrNoRows
	}
	f.services[svc.ID] = svc
	return nil
}

func (f *fakeCatalog) GetService(_ context.Context, id string) (model.Service, error) {
	svc, ok := f.services[id]
	if !ok {
		return model.Service{}, pgx.ErrNoRows
	}
	return svc, nil
}

func (f *fakeCatalog) ListServices(_ context.Context, includeInactive bool) ([]model.Service, error) {
	var out []model.Service
	for _, svc := range f.services {
		if svc.IsActive || includeInactive {
			out = append(out, svc)
		}
	}
	return out, nil
}

func (f *fakeCatalog) CreateStaff(_ context.Context, profile *model.Profile, specialization string) (model.Staff, error) {
	if profile.ID == "" {
		profile.ID = "profile-new"
	}
	s := model.Staff{ID: "staff-new", ProfileID: profile.ID, FullName: profile.FullName, Specialization: specialization, IsActive: true}
	f.staff[s.ID] = s
	return s, nil
}

func (f *fakeCatalog) UpdateStaff(_ context.Context, id, specialization string, isActive bool) error {
	s, ok := f.staff[id]
	if !ok {
		return pgx.ErrNoRows
	}
	s.Specialization = specialization
	s.IsActive = isActive
	f.staff[id] = s
	return nil
}

func (f *fakeCatalog) GetStaff(_ context.Context, id string) (model.Staff, error) {
	s, ok := f.staff[id]
	if !ok {
		return model.Staff{}, pgx.ErrNoRows
	}
	return s, nil
}

func (f *fakeCatalog) GetStaffByProfile(_ context.Context, profileID string) (model.Staff, error) {
	for _, s := range f.staff {
		if s.ProfileID == profileID {
			return s, nil
		}
	}
	return model.Staff{}, pgx.ErrNoRows
}

func (f *fakeCatalog) ListStaff(_ context.Context, includeInactive bool) ([]model.Staff, error) {
	var out []model.Staff
	for _, s := range f.staff {
		if s.IsActive || includeInactive {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeCatalog) ListStaffForService(_ context.Context, serviceID string) ([]model.Staff, error) {
	var out []model.Staff
	for staffID, ids := range f.assigned {
		for _, sid := range ids {
			if sid == serviceID {
				if s, ok := f.staff[staffID]; ok && s.IsActive {
					out = append(out, s)
				}
			}
		}
	}
	return out, nil
}

func (f *fakeCatalog) ListAssignedServices(_ context.Context, staffID string) ([]string, error) {
	return f.assigned[staffID], nil
}

func (f *fakeCatalog) ReplaceAssignedServices(_ context.Context, staffID string, serviceIDs []string) error {
	f.assigned[staffID] = serviceIDs
	return nil
}

func (f *fakeCatalog) ListWorkingHours(_ context.Context, staffID string) ([]model.WorkingHours, error) {
	return f.hours[staffID], nil
}

func (f *fakeCatalog) UpsertWorkingHours(_ context.Context, wh model.WorkingHours) error {
	rows := f.hours[wh.StaffID]
	for i, row := range rows {
		if row.Weekday == wh.Weekday {
			rows[i] = wh
			f.hours[wh.StaffID] = rows
			return nil
		}
	}
	f.hours[wh.StaffID] = append(rows, wh)
	return nil
}

type fakeAppointments struct {
	byID      map[string]model.Appointment
	booked    []availability.Interval
	created   []model.Appointment
	createErr error
	updateErr error

	lastFrom model.Status
	lastTo   model.Status
}

func newFakeAppointments() *fakeAppointments {
	return &fakeAppointments{byID: map[string]model.Appointment{}}
}

func (f *fakeAppointments) Create(_ context.Context, appt *model.Appointment, _ outbox.Event) error {
	if f.createErr != nil {
		return f.createErr
	}
	if appt.ID == "" {
		appt.ID = "appt-new"
	}
	appt.CreatedAt = time.Now()
	f.created = append(f.created, *appt)
	f.byID[appt.ID] = *appt
	return nil
}

func (f *fakeAppointments) GetByID(_ context.Context, id string) (model.Appointment, error) {
	a, ok := f.byID[id]
	if !ok {
		return model.Appointment{}, pgx.ErrNoRows
	}
	return a, nil
}

func (f *fakeAppointments) UpdateStatus(_ context.Context, id string, from, to model.Status, _ outbox.Event) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	a, ok := f.byID[id]
	if !ok || a.Status != from {
		return storage.ErrStatusChanged
	}
	a.Status = to
	f.byID[id] = a
	f.lastFrom, f.lastTo = from, to
	return nil
}

func (f *fakeAppointments) ListBookedIntervals(_ context.Context, _ string, _, _ time.Time) ([]availability.Interval, error) {
	return f.booked, nil
}

func (f *fakeAppointments) ListByCustomer(_ context.Context, customerID string, _ int) ([]model.Appointment, error) {
	var out []model.Appointment
	for _, a := range f.byID {
		if a.CustomerID == customerID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeAppointments) ListForStaffDay(_ context.Context, staffID string, from, to time.Time) ([]model.Appointment, error) {
	var out []model.Appointment
	for _, a := range f.byID {
		if a.StaffID == staffID && !a.StartTime.Before(from) && a.StartTime.Before(to) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeAppointments) ListAdmin(_ context.Context, _ storage.AdminFilter, _ time.Time, _ int) ([]model.Appointment, error) {
	var out []model.Appointment
	for _, a := range f.byID {
		out = append(out, a)
	}
	return out, nil
}

type fakeProfiles struct {
	byID    map[string]model.Profile
	byEmail map[string]model.Profile
}

func newFakeProfiles() *fakeProfiles {
	return &fakeProfiles{byID: map[string]model.Profile{}, byEmail: map[string]model.Profile{}}
}

func (f *fakeProfiles) Create(_ context.Context, p *model.Profile, _ outbox.Event) error {
	if p.ID == "" {
		p.ID = "profile-new"
	}
	f.byID[p.ID] = *p
	f.byEmail[p.Email] = *p
	return nil
}

func (f *fakeProfiles) GetByEmail(_ context.Context, email string) (model.Profile, error) {
	p, ok := f.byEmail[email]
	if !ok {
		return model.Profile{}, pgx.ErrNoRows
	}
	return p, nil
}

func (f *fakeProfiles) GetByID(_ context.Context, id string) (model.Profile, error) {
	p, ok := f.byID[id]
	if !ok {
		return model.Profile{}, pgx.ErrNoRows
	}
	return p, nil
}

type fakeRefresh struct {
	byHash map[string]sessions.RefreshToken
	nextID int
}

func newFakeRefresh() *fakeRefresh {
	return &fakeRefresh{byHash: map[string]sessions.RefreshToken{}}
}

func (f *fakeRefresh) Create(_ context.Context, profileID string, rawToken string, expiresAt time.Time) (string, error) {
	f.nextID++
	id := "rt-" + string(rune('0'+f.nextID))
	f.byHash[sessions.HashToken(rawToken)] = sessions.RefreshToken{
		ID:        id,
		ProfileID: profileID,
		Hash:      sessions.HashToken(rawToken),
		ExpiresAt: expiresAt,
	}
	return id, nil
}

func (f *fakeRefresh) GetByHash(_ context.Context, hash string) (sessions.RefreshToken, error) {
	t, ok := f.byHash[hash]
	if !ok {
		return sessions.RefreshToken{}, pgx.ErrNoRows
	}
	return t, nil
}

func (f *fakeRefresh) Revoke(_ context.Context, id string) error {
	now := time.Now()
	for hash, t := range f.byHash {
		if t.ID == id {
			t.RevokedAt = &now
			f.byHash[hash] = t
		}
	}
	return nil
}
