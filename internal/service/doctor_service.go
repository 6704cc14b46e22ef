package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/medi-online/clinic-api/internal/models"
	appErrors "github.com/medi-online/clinic-api/pkg/errors"
)

type doctorRepository interface {
	FindByID(ctx context.Context, id string) (*models.Doctor, error)
	FindByEmail(ctx context.Context, email string) (*models.Doctor, error)
	FindByPhone(ctx context.Context, phone string) (*models.Doctor, error)
	FindByLicenseNumber(ctx context.Context, license string) (*models.Doctor, error)
	List(ctx context.Context, filter models.DoctorFilter) ([]models.DoctorSummary, int, error)
	Create(ctx context.Context, doctor *models.Doctor) error
	UpdateAvailability(ctx context.Context, id string, mode models.AvailabilityMode, slots []string) error
}

// RegisterDoctorRequest describes the payload for doctor sign-up.
type RegisterDoctorRequest struct {
	Name          string `json:"name" validate:"required"`
	Email         string `json:"email" validate:"required,email"`
	Phone         string `json:"phone" validate:"required"`
	Password      string `json:"password" validate:"required,min=6"`
	LicenseNumber string `json:"license_number" validate:"required"`
	Specialty     string `json:"specialty" validate:"required"`
	Location      string `json:"location" validate:"required"`
}

// DoctorLoginRequest authenticates a doctor by email or phone.
type DoctorLoginRequest struct {
	Email    string `json:"email" validate:"omitempty,email"`
	Phone    string `json:"phone"`
	Password string `json:"password" validate:"required"`
}

// UpdateAvailabilityRequest replaces the doctor's availability declaration.
type UpdateAvailabilityRequest struct {
	Mode  string   `json:"availability_mode" validate:"required,oneof=24_7 custom"`
	Slots []string `json:"availability_slots"`
}

// DoctorService manages doctor accounts and their availability.
type DoctorService struct {
	repo         doctorRepository
	auth         *AuthService
	availability *AvailabilityService
	validator    *validator.Validate
	logger       *zap.Logger
}

// NewDoctorService instantiates DoctorService.
func NewDoctorService(repo doctorRepository, auth *AuthService, availability *AvailabilityService, validate *validator.Validate, logger *zap.Logger) *DoctorService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DoctorService{repo: repo, auth: auth, availability: availability, validator: validate, logger: logger}
}

// Register creates a doctor account. New doctors start unverified and
// unapproved and cannot be booked until moderation clears them.
func (s *DoctorService) Register(ctx context.Context, req RegisterDoctorRequest) (*models.AuthenticatedUser, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
	}

	if taken, err := s.identityTaken(ctx, req.Email, req.Phone, req.LicenseNumber); err != nil {
		return nil, err
	} else if taken != "" {
		return nil, appErrors.Clone(appErrors.ErrConflict, taken)
	}

	hash, err := s.auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	doctor := &models.Doctor{
		Name:             req.Name,
		Email:            strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:            strings.TrimSpace(req.Phone),
		PasswordHash:     hash,
		LicenseNumber:    strings.TrimSpace(req.LicenseNumber),
		Specialty:        req.Specialty,
		Location:         req.Location,
		AvailabilityMode: models.AvailabilityAlwaysOpen,
	}
	if err := s.repo.Create(ctx, doctor); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create doctor")
	}

	token, err := s.auth.GenerateToken(doctor.ID, models.RoleDoctor)
	if err != nil {
		return nil, err
	}
	return &models.AuthenticatedUser{ID: doctor.ID, Name: doctor.Name, Email: doctor.Email, Role: models.RoleDoctor, Token: token}, nil
}

// Login authenticates a doctor by email or phone.
func (s *DoctorService) Login(ctx context.Context, req DoctorLoginRequest) (*models.AuthenticatedUser, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}
	if req.Email == "" && req.Phone == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "please provide email or phone")
	}

	var doctor *models.Doctor
	var err error
	if req.Email != "" {
		doctor, err = s.repo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	} else {
		doctor, err = s.repo.FindByPhone(ctx, strings.TrimSpace(req.Phone))
	}
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load doctor")
	}

	if !s.auth.CheckPassword(doctor.PasswordHash, req.Password) {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "")
	}
	if doctor.IsBlocked {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "account is blocked")
	}

	token, err := s.auth.GenerateToken(doctor.ID, models.RoleDoctor)
	if err != nil {
		return nil, err
	}
	return &models.AuthenticatedUser{ID: doctor.ID, Name: doctor.Name, Email: doctor.Email, Role: models.RoleDoctor, Token: token}, nil
}

// Profile returns the full record of the calling doctor.
func (s *DoctorService) Profile(ctx context.Context, doctorID string) (*models.Doctor, error) {
	doctor, err := s.repo.FindByID(ctx, doctorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "doctor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load doctor")
	}
	return doctor, nil
}

// List returns the public doctor directory.
func (s *DoctorService) List(ctx context.Context, filter models.DoctorFilter) ([]models.DoctorSummary, *models.Pagination, error) {
	doctors, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list doctors")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return doctors, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// GetPublic returns one doctor for the public detail page. Doctors that are
// not yet cleared for booking are reported as not found.
func (s *DoctorService) GetPublic(ctx context.Context, doctorID string) (*models.DoctorSummary, error) {
	doctor, err := s.repo.FindByID(ctx, doctorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "doctor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load doctor")
	}
	if !doctor.Bookable() {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "doctor not found")
	}
	return &models.DoctorSummary{
		ID:               doctor.ID,
		Name:             doctor.Name,
		Specialty:        doctor.Specialty,
		Location:         doctor.Location,
		AvailabilityMode: doctor.AvailabilityMode,
		IsVerified:       doctor.IsVerified,
		IsApproved:       doctor.IsApproved,
	}, nil
}

// UpdateAvailability replaces the calling doctor's availability. Custom mode
// requires at least one valid slot; submitted slots are normalized and
// deduplicated before they are stored.
func (s *DoctorService) UpdateAvailability(ctx context.Context, doctorID string, req UpdateAvailabilityRequest) (*models.Doctor, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid availability payload")
	}

	mode := models.AvailabilityMode(req.Mode)
	var slots []string
	if mode == models.AvailabilityCustom {
		seen := make(map[string]struct{}, len(req.Slots))
		for _, raw := range req.Slots {
			normalized, ok := NormalizeTimeOfDay(raw)
			if !ok {
				return nil, appErrors.Clone(appErrors.ErrValidation, "invalid availability slot: "+raw)
			}
			if _, dup := seen[normalized]; dup {
				continue
			}
			seen[normalized] = struct{}{}
			slots = append(slots, normalized)
		}
		if len(slots) == 0 {
			return nil, appErrors.Clone(appErrors.ErrValidation, "custom availability requires at least one slot")
		}
		sort.Strings(slots)
	}

	if err := s.repo.UpdateAvailability(ctx, doctorID, mode, slots); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update availability")
	}

	if s.availability != nil {
		s.availability.InvalidateDoctorSlots(ctx, doctorID)
	}
	return s.Profile(ctx, doctorID)
}

func (s *DoctorService) identityTaken(ctx context.Context, email, phone, license string) (string, error) {
	checks := []struct {
		lookup func(context.Context, string) (*models.Doctor, error)
		value  string
		reason string
	}{
		{s.repo.FindByEmail, strings.ToLower(strings.TrimSpace(email)), "email already registered"},
		{s.repo.FindByPhone, strings.TrimSpace(phone), "phone number already registered"},
		{s.repo.FindByLicenseNumber, strings.TrimSpace(license), "license number already registered"},
	}

	for _, check := range checks {
		if _, err := check.lookup(ctx, check.value); err == nil {
			return check.reason, nil
		} else if !errors.Is(err, sql.ErrNoRows) {
			return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check registration")
		}
	}
	return "", nil
}
