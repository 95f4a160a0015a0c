package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tumblelab/gym-api/internal/models"
	"github.com/tumblelab/gym-api/internal/service"
	"github.com/tumblelab/gym-api/pkg/response"
)

// BoardHandler serves the public family-facing event board.
type BoardHandler struct {
	events      *service.EventService
	enrollments *service.EnrollmentService
}

// NewBoardHandler creates a new handler.
func NewBoardHandler(events *service.EventService, enrollments *service.EnrollmentService) *BoardHandler {
	return &BoardHandler{events: events, enrollments: enrollments}
}

// Events godoc
// @Summary Public event board
// @Description Returns upcoming events visible to the requesting family. Without a family_id only all-families events are shown.
// @Tags Board
// @Produce json
// @Param family_id query string false "Family ID used to resolve audience membership"
// @Param search query string false "Case-insensitive search across name and descriptions"
// @Success 200 {object} response.Envelope
// @Router /board/events [get]
func (h *BoardHandler) Events(c *gin.Context) {
	var viewer models.AudienceContext
	if familyID := c.Query("family_id"); familyID != "" {
		ctx, err := h.enrollments.AudienceContextFor(c.Request.Context(), familyID)
		if err != nil {
			response.Error(c, err)
			return
		}
		viewer = ctx
	}

	events, err := h.events.Board(c.Request.Context(), viewer, c.Query("search"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, events, nil)
}
