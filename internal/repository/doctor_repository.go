package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/medi-online/clinic-api/internal/models"
)

const doctorColumns = `id, name, email, phone, password_hash, license_number, specialty, location, availability_mode, availability_slots, is_verified, is_approved, is_blocked, created_at, updated_at`

// DoctorRepository provides persistence for doctor accounts.
type DoctorRepository struct {
	db *sqlx.DB
}

// NewDoctorRepository creates a new doctor repository.
func NewDoctorRepository(db *sqlx.DB) *DoctorRepository {
	return &DoctorRepository{db: db}
}

// FindByID loads a doctor by id.
func (r *DoctorRepository) FindByID(ctx context.Context, id string) (*models.Doctor, error) {
	query := fmt.Sprintf(`SELECT %s FROM doctors WHERE id = $1`, doctorColumns)
	var doctor models.Doctor
	if err := r.db.GetContext(ctx, &doctor, query, id); err != nil {
		return nil, err
	}
	return &doctor, nil
}

// FindByEmail loads a doctor by email.
func (r *DoctorRepository) FindByEmail(ctx context.Context, email string) (*models.Doctor, error) {
	query := fmt.Sprintf(`SELECT %s FROM doctors WHERE email = $1`, doctorColumns)
	var doctor models.Doctor
	if err := r.db.GetContext(ctx, &doctor, query, email); err != nil {
		return nil, err
	}
	return &doctor, nil
}

// FindByPhone loads a doctor by phone number.
func (r *DoctorRepository) FindByPhone(ctx context.Context, phone string) (*models.Doctor, error) {
	query := fmt.Sprintf(`SELECT %s FROM doctors WHERE phone = $1`, doctorColumns)
	var doctor models.Doctor
	if err := r.db.GetContext(ctx, &doctor, query, phone); err != nil {
		return nil, err
	}
	return &doctor, nil
}

// FindByLicenseNumber loads a doctor by license number.
func (r *DoctorRepository) FindByLicenseNumber(ctx context.Context, license string) (*models.Doctor, error) {
	query := fmt.Sprintf(`SELECT %s FROM doctors WHERE license_number = $1`, doctorColumns)
	var doctor models.Doctor
	if err := r.db.GetContext(ctx, &doctor, query, license); err != nil {
		return nil, err
	}
	return &doctor, nil
}

// List returns doctor summaries with optional filtering and pagination.
func (r *DoctorRepository) List(ctx context.Context, filter models.DoctorFilter) ([]models.DoctorSummary, int, error) {
	base := "FROM doctors WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Specialty != "" {
		conditions = append(conditions, fmt.Sprintf("specialty = $%d", len(args)+1))
		args = append(args, filter.Specialty)
	}
	if filter.Location != "" {
		conditions = append(conditions, fmt.Sprintf("location = $%d", len(args)+1))
		args = append(args, filter.Location)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("name ILIKE $%d", len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}
	if filter.ApprovedOnly {
		conditions = append(conditions, "is_approved = true AND is_verified = true AND is_blocked = false")
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT id, name, specialty, location, availability_mode, is_verified, is_approved %s ORDER BY created_at DESC LIMIT %d OFFSET %d", base, size, offset)
	var doctors []models.DoctorSummary
	if err := r.db.SelectContext(ctx, &doctors, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list doctors: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count doctors: %w", err)
	}

	return doctors, total, nil
}

// Create stores a new doctor record.
func (r *DoctorRepository) Create(ctx context.Context, doctor *models.Doctor) error {
	if doctor.ID == "" {
		doctor.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if doctor.CreatedAt.IsZero() {
		doctor.CreatedAt = now
	}
	doctor.UpdatedAt = now
	if doctor.AvailabilityMode == "" {
		doctor.AvailabilityMode = models.AvailabilityAlwaysOpen
	}
	if doctor.AvailabilitySlots == nil {
		doctor.AvailabilitySlots = pq.StringArray{}
	}

	const query = `INSERT INTO doctors (id, name, email, phone, password_hash, license_number, specialty, location, availability_mode, availability_slots, is_verified, is_approved, is_blocked, created_at, updated_at) VALUES (:id, :name, :email, :phone, :password_hash, :license_number, :specialty, :location, :availability_mode, :availability_slots, :is_verified, :is_approved, :is_blocked, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, doctor); err != nil {
		return fmt.Errorf("create doctor: %w", err)
	}
	return nil
}

// UpdateAvailability replaces the doctor's availability configuration.
func (r *DoctorRepository) UpdateAvailability(ctx context.Context, id string, mode models.AvailabilityMode, slots []string) error {
	const query = `UPDATE doctors SET availability_mode = $1, availability_slots = $2, updated_at = $3 WHERE id = $4`
	if _, err := r.db.ExecContext(ctx, query, mode, pq.StringArray(slots), time.Now().UTC(), id); err != nil {
		return fmt.Errorf("update doctor availability: %w", err)
	}
	return nil
}

// SetApproval updates the admin approval flag.
func (r *DoctorRepository) SetApproval(ctx context.Context, id string, approved bool) error {
	const query = `UPDATE doctors SET is_approved = $1, updated_at = $2 WHERE id = $3`
	if _, err := r.db.ExecContext(ctx, query, approved, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("set doctor approval: %w", err)
	}
	return nil
}

// SetVerified updates the verification flag.
func (r *DoctorRepository) SetVerified(ctx context.Context, id string, verified bool) error {
	const query = `UPDATE doctors SET is_verified = $1, updated_at = $2 WHERE id = $3`
	if _, err := r.db.ExecContext(ctx, query, verified, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("set doctor verification: %w", err)
	}
	return nil
}

// SetBlocked updates the moderation block flag.
func (r *DoctorRepository) SetBlocked(ctx context.Context, id string, blocked bool) error {
	const query = `UPDATE doctors SET is_blocked = $1, updated_at = $2 WHERE id = $3`
	if _, err := r.db.ExecContext(ctx, query, blocked, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("set doctor block: %w", err)
	}
	return nil
}
