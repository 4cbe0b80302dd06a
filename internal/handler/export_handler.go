package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/classbridge/reportcard-api/internal/dto"
	"github.com/classbridge/reportcard-api/internal/models"
	"github.com/classbridge/reportcard-api/internal/service"
	appErrors "github.com/classbridge/reportcard-api/pkg/errors"
	"github.com/classbridge/reportcard-api/pkg/response"
)

// ExportHandler exposes asynchronous report export endpoints.
type ExportHandler struct {
	exports *service.ExportJobService
}

// NewExportHandler constructs handler.
func NewExportHandler(exports *service.ExportJobService) *ExportHandler {
	return &ExportHandler{exports: exports}
}

// Create godoc
// @Summary Queue a section report export
// @Tags Report Exports
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param school path string true "School slug"
// @Param payload body dto.ExportRequest true "Export request"
// @Success 202 {object} response.Envelope
// @Router /{school}/api/v1/report-exports [post]
func (h *ExportHandler) Create(c *gin.Context) {
	school := schoolFromContext(c)
	claims := claimsFromContext(c)
	if school == nil || claims == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	var req dto.ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	job, err := h.exports.CreateJob(c.Request.Context(), school.ID, req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, job, nil)
}

// Status godoc
// @Summary Export job status
// @Tags Report Exports
// @Produce json
// @Security BearerAuth
// @Param school path string true "School slug"
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Router /{school}/api/v1/report-exports/{id} [get]
func (h *ExportHandler) Status(c *gin.Context) {
	school := schoolFromContext(c)
	claims := claimsFromContext(c)
	if school == nil || claims == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	status, err := h.exports.GetStatus(c.Request.Context(), school.ID, c.Param("id"), claims.UserID, claims.Role)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}

// Download godoc
// @Summary Download a finished export by signed token
// @Tags Report Exports
// @Produce octet-stream
// @Param token path string true "Signed download token"
// @Success 200
// @Router /api/v1/report-exports/download/{token} [get]
func (h *ExportHandler) Download(c *gin.Context) {
	download, err := h.exports.ResolveDownload(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer download.File.Close() //nolint:errcheck

	contentType := "text/csv"
	if download.Format == models.ExportFormatPDF {
		contentType = "application/pdf"
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", download.Filename))
	c.Header("Content-Type", contentType)
	c.File(download.File.Name())
}
