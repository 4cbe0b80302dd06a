package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/classbridge/reportcard-api/internal/service"
	appErrors "github.com/classbridge/reportcard-api/pkg/errors"
	"github.com/classbridge/reportcard-api/pkg/response"
)

// MarkHandler exposes mark entry endpoints.
type MarkHandler struct {
	marks *service.MarkService
}

// NewMarkHandler constructs handler.
func NewMarkHandler(marks *service.MarkService) *MarkHandler {
	return &MarkHandler{marks: marks}
}

// Record godoc
// @Summary Record a single mark
// @Tags Marks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param school path string true "School slug"
// @Param payload body service.MarkInput true "Mark"
// @Success 201 {object} response.Envelope
// @Router /{school}/api/v1/marks [post]
func (h *MarkHandler) Record(c *gin.Context) {
	school := schoolFromContext(c)
	if school == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	var input service.MarkInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	mark, err := h.marks.Record(c.Request.Context(), school.ID, input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, mark)
}

// RecordBatch godoc
// @Summary Record a batch of marks
// @Tags Marks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param school path string true "School slug"
// @Param payload body []service.MarkInput true "Marks"
// @Success 200 {object} response.Envelope
// @Router /{school}/api/v1/marks/batch [post]
func (h *MarkHandler) RecordBatch(c *gin.Context) {
	school := schoolFromContext(c)
	if school == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	var inputs []service.MarkInput
	if err := c.ShouldBindJSON(&inputs); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	marks, err := h.marks.RecordBatch(c.Request.Context(), school.ID, inputs)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, marks, nil)
}
