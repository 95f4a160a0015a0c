package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tumblelab/gym-api/internal/service"
	appErrors "github.com/tumblelab/gym-api/pkg/errors"
	"github.com/tumblelab/gym-api/pkg/response"
)

// IterationHandler wires class iteration endpoints.
type IterationHandler struct {
	service *service.IterationService
}

// NewIterationHandler creates a new handler.
func NewIterationHandler(svc *service.IterationService) *IterationHandler {
	return &IterationHandler{service: svc}
}

// ListByProgram godoc
// @Summary List a program's iterations
// @Tags Iterations
// @Produce json
// @Param id path string true "Program ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /programs/{id}/iterations [get]
func (h *IterationHandler) ListByProgram(c *gin.Context) {
	iterations, err := h.service.ListByProgram(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, iterations, nil)
}

// Get godoc
// @Summary Get iteration
// @Tags Iterations
// @Produce json
// @Param id path string true "Iteration ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /iterations/{id} [get]
func (h *IterationHandler) Get(c *gin.Context) {
	detail, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Create godoc
// @Summary Create iteration
// @Tags Iterations
// @Accept json
// @Produce json
// @Param id path string true "Program ID"
// @Param payload body service.IterationRequest true "Iteration payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /programs/{id}/iterations [post]
func (h *IterationHandler) Create(c *gin.Context) {
	var req service.IterationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid iteration payload"))
		return
	}

	iteration, err := h.service.Create(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, iteration)
}

// Replace godoc
// @Summary Replace iteration schedule
// @Description Full-record replacement. Edits that remove selected days from active enrollments require confirm_truncate.
// @Tags Iterations
// @Accept json
// @Produce json
// @Param id path string true "Iteration ID"
// @Param payload body service.IterationRequest true "Iteration payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /iterations/{id} [put]
func (h *IterationHandler) Replace(c *gin.Context) {
	var req service.IterationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid iteration payload"))
		return
	}

	iteration, err := h.service.Replace(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, iteration, nil)
}

// Delete godoc
// @Summary Delete iteration
// @Tags Iterations
// @Produce json
// @Param id path string true "Iteration ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /iterations/{id} [delete]
func (h *IterationHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
