package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/medi-online/clinic-api/internal/models"
)

const patientColumns = `id, name, email, phone, password_hash, date_of_birth, is_verified, is_blocked, created_at, updated_at`

// PatientRepository provides persistence for patient accounts.
type PatientRepository struct {
	db *sqlx.DB
}

// NewPatientRepository creates a new patient repository.
func NewPatientRepository(db *sqlx.DB) *PatientRepository {
	return &PatientRepository{db: db}
}

// FindByID loads a patient by id.
func (r *PatientRepository) FindByID(ctx context.Context, id string) (*models.Patient, error) {
	query := fmt.Sprintf(`SELECT %s FROM patients WHERE id = $1`, patientColumns)
	var patient models.Patient
	if err := r.db.GetContext(ctx, &patient, query, id); err != nil {
		return nil, err
	}
	return &patient, nil
}

// FindByEmail loads a patient by email.
func (r *PatientRepository) FindByEmail(ctx context.Context, email string) (*models.Patient, error) {
	query := fmt.Sprintf(`SELECT %s FROM patients WHERE email = $1`, patientColumns)
	var patient models.Patient
	if err := r.db.GetContext(ctx, &patient, query, email); err != nil {
		return nil, err
	}
	return &patient, nil
}

// FindByPhone loads a patient by phone number.
func (r *PatientRepository) FindByPhone(ctx context.Context, phone string) (*models.Patient, error) {
	query := fmt.Sprintf(`SELECT %s FROM patients WHERE phone = $1`, patientColumns)
	var patient models.Patient
	if err := r.db.GetContext(ctx, &patient, query, phone); err != nil {
		return nil, err
	}
	return &patient, nil
}

// List returns patients with optional search and pagination.
func (r *PatientRepository) List(ctx context.Context, filter models.PatientFilter) ([]models.Patient, int, error) {
	base := "FROM patients WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(name ILIKE $%d OR email ILIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+filter.Search+"%")
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

	query := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC LIMIT %d OFFSET %d", patientColumns, base, size, offset)
	var patients []models.Patient
	if err := r.db.SelectContext(ctx, &patients, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list patients: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count patients: %w", err)
	}

	return patients, total, nil
}

// Create stores a new patient record.
func (r *PatientRepository) Create(ctx context.Context, patient *models.Patient) error {
	if patient.ID == "" {
		patient.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if patient.CreatedAt.IsZero() {
		patient.CreatedAt = now
	}
	patient.UpdatedAt = now

	const query = `INSERT INTO patients (id, name, email, phone, password_hash, date_of_birth, is_verified, is_blocked, created_at, updated_at) VALUES (:id, :name, :email, :phone, :password_hash, :date_of_birth, :is_verified, :is_blocked, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, patient); err != nil {
		return fmt.Errorf("create patient: %w", err)
	}
	return nil
}

// SetVerified updates the verification flag.
func (r *PatientRepository) SetVerified(ctx context.Context, id string, verified bool) error {
	const query = `UPDATE patients SET is_verified = $1, updated_at = $2 WHERE id = $3`
	if _, err := r.db.ExecContext(ctx, query, verified, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("set patient verification: %w", err)
	}
	return nil
}

// SetBlocked updates the moderation block flag.
func (r *PatientRepository) SetBlocked(ctx context.Context, id string, blocked bool) error {
	const query = `UPDATE patients SET is_blocked = $1, updated_at = $2 WHERE id = $3`
	if _, err := r.db.ExecContext(ctx, query, blocked, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("set patient block: %w", err)
	}
	return nil
}
