package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/medi-online/clinic-api/internal/models"
	appErrors "github.com/medi-online/clinic-api/pkg/errors"
)

type patientRepository interface {
	FindByID(ctx context.Context, id string) (*models.Patient, error)
	FindByEmail(ctx context.Context, email string) (*models.Patient, error)
	FindByPhone(ctx context.Context, phone string) (*models.Patient, error)
	Create(ctx context.Context, patient *models.Patient) error
}

// RegisterPatientRequest describes the payload for patient sign-up.
type RegisterPatientRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"required"`
	Password string `json:"password" validate:"required,min=6"`
}

// PatientLoginRequest authenticates a patient by email or phone.
type PatientLoginRequest struct {
	Email    string `json:"email" validate:"omitempty,email"`
	Phone    string `json:"phone"`
	Password string `json:"password" validate:"required"`
}

// PatientService manages patient accounts.
type PatientService struct {
	repo      patientRepository
	auth      *AuthService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPatientService instantiates PatientService.
func NewPatientService(repo patientRepository, auth *AuthService, validate *validator.Validate, logger *zap.Logger) *PatientService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PatientService{repo: repo, auth: auth, validator: validate, logger: logger}
}

// Register creates a patient account and issues an access token.
func (s *PatientService) Register(ctx context.Context, req RegisterPatientRequest) (*models.AuthenticatedUser, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	phone := strings.TrimSpace(req.Phone)

	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email already registered")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check registration")
	}
	if _, err := s.repo.FindByPhone(ctx, phone); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "phone number already registered")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check registration")
	}

	hash, err := s.auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	patient := &models.Patient{
		Name:         req.Name,
		Email:        email,
		Phone:        phone,
		PasswordHash: hash,
	}
	if err := s.repo.Create(ctx, patient); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create patient")
	}

	token, err := s.auth.GenerateToken(patient.ID, models.RolePatient)
	if err != nil {
		return nil, err
	}
	return &models.AuthenticatedUser{ID: patient.ID, Name: patient.Name, Email: patient.Email, Role: models.RolePatient, Token: token}, nil
}

// Login authenticates a patient by email or phone.
func (s *PatientService) Login(ctx context.Context, req PatientLoginRequest) (*models.AuthenticatedUser, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}
	if req.Email == "" && req.Phone == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "please provide email or phone")
	}

	var patient *models.Patient
	var err error
	if req.Email != "" {
		patient, err = s.repo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	} else {
		patient, err = s.repo.FindByPhone(ctx, strings.TrimSpace(req.Phone))
	}
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load patient")
	}

	if !s.auth.CheckPassword(patient.PasswordHash, req.Password) {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "")
	}
	if patient.IsBlocked {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "account is blocked")
	}

	token, err := s.auth.GenerateToken(patient.ID, models.RolePatient)
	if err != nil {
		return nil, err
	}
	return &models.AuthenticatedUser{ID: patient.ID, Name: patient.Name, Email: patient.Email, Role: models.RolePatient, Token: token}, nil
}

// Profile returns the record of the calling patient.
func (s *PatientService) Profile(ctx context.Context, patientID string) (*models.Patient, error) {
	patient, err := s.repo.FindByID(ctx, patientID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "patient not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load patient")
	}
	return patient, nil
}
