package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tumblelab/gym-api/internal/models"
	"github.com/tumblelab/gym-api/internal/service"
	appErrors "github.com/tumblelab/gym-api/pkg/errors"
	"github.com/tumblelab/gym-api/pkg/response"
)

// FamilyHandler wires family and athlete endpoints.
type FamilyHandler struct {
	service *service.FamilyService
}

// NewFamilyHandler creates a new handler.
func NewFamilyHandler(svc *service.FamilyService) *FamilyHandler {
	return &FamilyHandler{service: svc}
}

// List godoc
// @Summary List families
// @Tags Families
// @Produce json
// @Param search query string false "Search by guardian name or email"
// @Success 200 {object} response.Envelope
// @Router /families [get]
func (h *FamilyHandler) List(c *gin.Context) {
	filter := models.FamilyFilter{
		Search:   c.Query("search"),
		Page:     queryInt(c, "page", 1),
		PageSize: queryInt(c, "page_size", 20),
	}

	families, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, families, pagination)
}

// Get godoc
// @Summary Get family
// @Tags Families
// @Produce json
// @Param id path string true "Family ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /families/{id} [get]
func (h *FamilyHandler) Get(c *gin.Context) {
	family, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, family, nil)
}

// Create godoc
// @Summary Create family
// @Tags Families
// @Accept json
// @Produce json
// @Param payload body service.FamilyRequest true "Family payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /families [post]
func (h *FamilyHandler) Create(c *gin.Context) {
	var req service.FamilyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid family payload"))
		return
	}

	family, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, family)
}

// Update godoc
// @Summary Update family
// @Tags Families
// @Accept json
// @Produce json
// @Param id path string true "Family ID"
// @Param payload body service.FamilyRequest true "Family payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /families/{id} [put]
func (h *FamilyHandler) Update(c *gin.Context) {
	var req service.FamilyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid family payload"))
		return
	}

	family, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, family, nil)
}

// ListAthletes godoc
// @Summary List a family's athletes
// @Tags Families
// @Produce json
// @Param id path string true "Family ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /families/{id}/athletes [get]
func (h *FamilyHandler) ListAthletes(c *gin.Context) {
	athletes, err := h.service.ListAthletes(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, athletes, nil)
}

// AddAthlete godoc
// @Summary Add athlete to family
// @Tags Families
// @Accept json
// @Produce json
// @Param id path string true "Family ID"
// @Param payload body service.AthleteRequest true "Athlete payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /families/{id}/athletes [post]
func (h *FamilyHandler) AddAthlete(c *gin.Context) {
	var req service.AthleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid athlete payload"))
		return
	}

	athlete, err := h.service.AddAthlete(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, athlete)
}

// UpdateAthlete godoc
// @Summary Update athlete
// @Tags Families
// @Accept json
// @Produce json
// @Param id path string true "Athlete ID"
// @Param payload body service.AthleteRequest true "Athlete payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /athletes/{id} [put]
func (h *FamilyHandler) UpdateAthlete(c *gin.Context) {
	var req service.AthleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid athlete payload"))
		return
	}

	athlete, err := h.service.UpdateAthlete(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, athlete, nil)
}
