package service

import (
	"context"
	"crypto/subtle"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/medi-online/clinic-api/internal/models"
	appErrors "github.com/medi-online/clinic-api/pkg/errors"
)

type adminDoctorRepository interface {
	List(ctx context.Context, filter models.DoctorFilter) ([]models.DoctorSummary, int, error)
	SetApproval(ctx context.Context, id string, approved bool) error
	SetVerified(ctx context.Context, id string, verified bool) error
	SetBlocked(ctx context.Context, id string, blocked bool) error
}

type adminPatientRepository interface {
	List(ctx context.Context, filter models.PatientFilter) ([]models.Patient, int, error)
	SetVerified(ctx context.Context, id string, verified bool) error
	SetBlocked(ctx context.Context, id string, blocked bool) error
}

// AdminCredentials holds the configured back-office account.
type AdminCredentials struct {
	Email        string
	PasswordHash string
}

// AdminLoginRequest authenticates the back-office account.
type AdminLoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ModerationRequest toggles one moderation flag.
type ModerationRequest struct {
	Value *bool `json:"value" validate:"required"`
}

// AdminService serves the moderation back office. The admin account is
// configured, not stored, so there is exactly one.
type AdminService struct {
	doctors     adminDoctorRepository
	patients    adminPatientRepository
	auth        *AuthService
	credentials AdminCredentials
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewAdminService instantiates AdminService.
func NewAdminService(doctors adminDoctorRepository, patients adminPatientRepository, auth *AuthService, credentials AdminCredentials, validate *validator.Validate, logger *zap.Logger) *AdminService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminService{
		doctors:     doctors,
		patients:    patients,
		auth:        auth,
		credentials: credentials,
		validator:   validate,
		logger:      logger,
	}
}

// Login checks the configured admin credentials and issues an admin token.
func (s *AdminService) Login(ctx context.Context, req AdminLoginRequest) (*models.AuthenticatedUser, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}
	if s.credentials.Email == "" || s.credentials.PasswordHash == "" {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "")
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	emailMatch := subtle.ConstantTimeCompare([]byte(email), []byte(strings.ToLower(s.credentials.Email))) == 1
	if !emailMatch || !s.auth.CheckPassword(s.credentials.PasswordHash, req.Password) {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "")
	}

	token, err := s.auth.GenerateToken("admin", models.RoleAdmin)
	if err != nil {
		return nil, err
	}
	return &models.AuthenticatedUser{ID: "admin", Name: "Administrator", Email: email, Role: models.RoleAdmin, Token: token}, nil
}

// ListDoctors returns all doctors for moderation, including unapproved ones.
func (s *AdminService) ListDoctors(ctx context.Context, filter models.DoctorFilter) ([]models.DoctorSummary, *models.Pagination, error) {
	filter.ApprovedOnly = false
	doctors, total, err := s.doctors.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list doctors")
	}
	return doctors, paginationFor(filter.Page, filter.PageSize, total), nil
}

// ListPatients returns all patients for moderation.
func (s *AdminService) ListPatients(ctx context.Context, filter models.PatientFilter) ([]models.Patient, *models.Pagination, error) {
	patients, total, err := s.patients.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list patients")
	}
	return patients, paginationFor(filter.Page, filter.PageSize, total), nil
}

// SetDoctorApproval flips a doctor's approval flag.
func (s *AdminService) SetDoctorApproval(ctx context.Context, doctorID string, req ModerationRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "value is required")
	}
	if err := s.doctors.SetApproval(ctx, doctorID, *req.Value); err != nil {
		return s.moderationError(err, "doctor")
	}
	s.logger.Info("doctor approval updated", zap.String("doctor_id", doctorID), zap.Bool("approved", *req.Value))
	return nil
}

// SetDoctorVerified flips a doctor's verification flag.
func (s *AdminService) SetDoctorVerified(ctx context.Context, doctorID string, req ModerationRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "value is required")
	}
	if err := s.doctors.SetVerified(ctx, doctorID, *req.Value); err != nil {
		return s.moderationError(err, "doctor")
	}
	s.logger.Info("doctor verification updated", zap.String("doctor_id", doctorID), zap.Bool("verified", *req.Value))
	return nil
}

// SetDoctorBlocked flips a doctor's blocked flag.
func (s *AdminService) SetDoctorBlocked(ctx context.Context, doctorID string, req ModerationRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "value is required")
	}
	if err := s.doctors.SetBlocked(ctx, doctorID, *req.Value); err != nil {
		return s.moderationError(err, "doctor")
	}
	s.logger.Info("doctor block updated", zap.String("doctor_id", doctorID), zap.Bool("blocked", *req.Value))
	return nil
}

// SetPatientBlocked flips a patient's blocked flag.
func (s *AdminService) SetPatientBlocked(ctx context.Context, patientID string, req ModerationRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "value is required")
	}
	if err := s.patients.SetBlocked(ctx, patientID, *req.Value); err != nil {
		return s.moderationError(err, "patient")
	}
	s.logger.Info("patient block updated", zap.String("patient_id", patientID), zap.Bool("blocked", *req.Value))
	return nil
}

// SetPatientVerified flips a patient's verification flag.
func (s *AdminService) SetPatientVerified(ctx context.Context, patientID string, req ModerationRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "value is required")
	}
	if err := s.patients.SetVerified(ctx, patientID, *req.Value); err != nil {
		return s.moderationError(err, "patient")
	}
	s.logger.Info("patient verification updated", zap.String("patient_id", patientID), zap.Bool("verified", *req.Value))
	return nil
}

func (s *AdminService) moderationError(err error, subject string) error {
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update "+subject)
}

func paginationFor(page, size, total int) *models.Pagination {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	return &models.Pagination{Page: page, PageSize: size, TotalCount: total}
}
