package model

import "time"

// Role tags a profile. The original data model spread optional fields across
// three user shapes; here a single Profile carries the role and staff-specific
// fields live on Staff.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleStaff    Role = "staff"
	RoleAdmin    Role = "admin"
)

func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleCustomer, RoleStaff, RoleAdmin:
		return Role(s), true
	default:
		return "", false
	}
}

type Profile struct {
	ID           string
	FullName     string
	Email        string
	Phone        string
	Role         Role
	PasswordHash string
	CreatedAt    time.Time
}

type Staff struct {
	ID             string
	ProfileID      string
	FullName       string
	Specialization string
	IsActive       bool
}

type Service struct {
	ID           string
	Name         string
	Description  string
	DurationMins int
	Price        string
	Category     string
	IsActive     bool
}

// WorkingHours is a per-staff, per-weekday recurring availability template.
// Start and End are wall-clock "HH:MM" strings in the salon's location;
// Weekday follows time.Weekday numbering (0 = Sunday).
type WorkingHours struct {
	ID       string
	StaffID  string
	Weekday  int
	Start    string
	End      string
	IsActive bool
}

type Appointment struct {
	ID          string
	CustomerID  string
	StaffID     string
	ServiceID   string
	StartTime   time.Time
	EndTime     time.Time
	Status      Status
	CancelledAt *time.Time
	CreatedAt   time.Time

	// Denormalized names for list views; empty unless the query joins them.
	CustomerName string
	StaffName    string
	ServiceName  string
}
