package models

import (
	"time"

	"github.com/lib/pq"
)

// AvailabilityMode selects how a doctor's bookable slots are derived.
type AvailabilityMode string

const (
	// AvailabilityAlwaysOpen exposes every top-of-hour slot of the day.
	AvailabilityAlwaysOpen AvailabilityMode = "24_7"
	// AvailabilityCustom exposes only the doctor's declared slot list.
	AvailabilityCustom AvailabilityMode = "custom"
)

// Doctor represents a practitioner account stored in the doctors table.
type Doctor struct {
	ID                string           `db:"id" json:"id"`
	Name              string           `db:"name" json:"name"`
	Email             string           `db:"email" json:"email"`
	Phone             string           `db:"phone" json:"phone"`
	PasswordHash      string           `db:"password_hash" json:"-"`
	LicenseNumber     string           `db:"license_number" json:"license_number"`
	Specialty         string           `db:"specialty" json:"specialty"`
	Location          string           `db:"location" json:"location"`
	AvailabilityMode  AvailabilityMode `db:"availability_mode" json:"availability_mode"`
	AvailabilitySlots pq.StringArray   `db:"availability_slots" json:"availability_slots"`
	IsVerified        bool             `db:"is_verified" json:"is_verified"`
	IsApproved        bool             `db:"is_approved" json:"is_approved"`
	IsBlocked         bool             `db:"is_blocked" json:"is_blocked"`
	CreatedAt         time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time        `db:"updated_at" json:"updated_at"`
}

// Bookable reports whether the doctor may receive new appointments.
func (d *Doctor) Bookable() bool {
	return d != nil && d.IsVerified && d.IsApproved && !d.IsBlocked
}

// DoctorSummary is the public directory view of a doctor.
type DoctorSummary struct {
	ID               string           `db:"id" json:"id"`
	Name             string           `db:"name" json:"name"`
	Specialty        string           `db:"specialty" json:"specialty"`
	Location         string           `db:"location" json:"location"`
	AvailabilityMode AvailabilityMode `db:"availability_mode" json:"availability_mode"`
	IsVerified       bool             `db:"is_verified" json:"is_verified"`
	IsApproved       bool             `db:"is_approved" json:"is_approved"`
}

// DoctorFilter captures filtering criteria for listing doctors.
type DoctorFilter struct {
	Specialty    string
	Location     string
	Search       string
	ApprovedOnly bool
	Page         int
	PageSize     int
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
