package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/medi-online/clinic-api/internal/models"
	"github.com/medi-online/clinic-api/internal/service"
	appErrors "github.com/medi-online/clinic-api/pkg/errors"
	"github.com/medi-online/clinic-api/pkg/response"
)

// DoctorHandler exposes doctor account and directory endpoints.
type DoctorHandler struct {
	doctors *service.DoctorService
}

// NewDoctorHandler constructs handler.
func NewDoctorHandler(doctors *service.DoctorService) *DoctorHandler {
	return &DoctorHandler{doctors: doctors}
}

// Register godoc
// @Summary Register a doctor account
// @Tags Doctors
// @Accept json
// @Produce json
// @Param payload body service.RegisterDoctorRequest true "Registration payload"
// @Success 201 {object} response.Envelope
// @Router /doctors/register [post]
func (h *DoctorHandler) Register(c *gin.Context) {
	var req service.RegisterDoctorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	user, err := h.doctors.Register(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, user)
}

// Login godoc
// @Summary Log in as a doctor
// @Tags Doctors
// @Accept json
// @Produce json
// @Param payload body service.DoctorLoginRequest true "Login payload"
// @Success 200 {object} response.Envelope
// @Router /doctors/login [post]
func (h *DoctorHandler) Login(c *gin.Context) {
	var req service.DoctorLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	user, err := h.doctors.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, user, nil)
}

// List godoc
// @Summary List the public doctor directory
// @Tags Doctors
// @Produce json
// @Param specialty query string false "Filter by specialty"
// @Param location query string false "Filter by location"
// @Param search query string false "Free-text search on name"
// @Param page query int false "Page number"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /doctors [get]
func (h *DoctorHandler) List(c *gin.Context) {
	filter := models.DoctorFilter{
		Specialty:    c.Query("specialty"),
		Location:     c.Query("location"),
		Search:       c.Query("search"),
		ApprovedOnly: true,
		Page:         queryInt(c, "page", 1),
		PageSize:     queryInt(c, "pageSize", 20),
	}
	doctors, pagination, err := h.doctors.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, doctors, pagination)
}

// Get godoc
// @Summary Get one doctor's public profile
// @Tags Doctors
// @Produce json
// @Param id path string true "Doctor ID"
// @Success 200 {object} response.Envelope
// @Router /doctors/{id} [get]
func (h *DoctorHandler) Get(c *gin.Context) {
	doctor, err := h.doctors.GetPublic(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, doctor, nil)
}

// Profile godoc
// @Summary Get the calling doctor's profile
// @Tags Doctors
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /doctors/profile [get]
func (h *DoctorHandler) Profile(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	doctor, err := h.doctors.Profile(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, doctor, nil)
}

// UpdateAvailability godoc
// @Summary Update the calling doctor's availability
// @Tags Doctors
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.UpdateAvailabilityRequest true "Availability payload"
// @Success 200 {object} response.Envelope
// @Router /doctors/availability [put]
func (h *DoctorHandler) UpdateAvailability(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.UpdateAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	doctor, err := h.doctors.UpdateAvailability(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, doctor, nil)
}

func queryInt(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 1 {
		return fallback
	}
	return value
}
