package dto

import "github.com/classbridge/reportcard-api/internal/models"

// ExportRequest asks for an asynchronous section export.
type ExportRequest struct {
	SectionID string              `json:"section_id" validate:"required,uuid"`
	TermLabel *string             `json:"term_label,omitempty" validate:"omitempty,max=40"`
	Format    models.ExportFormat `json:"format" validate:"required"`
}

// ExportJobResponse acknowledges job creation.
type ExportJobResponse struct {
	ID       string              `json:"id"`
	Status   models.ExportStatus `json:"status"`
	Progress int                 `json:"progress"`
}

// ExportStatusResponse reports job progress and, once finished, the signed
// download URL.
type ExportStatusResponse struct {
	ID        string              `json:"id"`
	Status    models.ExportStatus `json:"status"`
	Progress  int                 `json:"progress"`
	ResultURL *string             `json:"result_url,omitempty"`
	Error     *string             `json:"error,omitempty"`
}
