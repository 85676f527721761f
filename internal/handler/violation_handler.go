package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/invigilo/invigilo-backend/internal/middleware"
	"github.com/invigilo/invigilo-backend/internal/model"
	"github.com/invigilo/invigilo-backend/internal/response"
	"github.com/invigilo/invigilo-backend/internal/service"
	"github.com/invigilo/invigilo-backend/internal/validator"
	"github.com/rs/zerolog"
)

// ViolationHandler ingests live violation reports from student clients.
type ViolationHandler struct {
	monitorService *service.MonitorService
	log            zerolog.Logger
}

// NewViolationHandler creates a new ViolationHandler.
func NewViolationHandler(monitorService *service.MonitorService, log zerolog.Logger) *ViolationHandler {
	return &ViolationHandler{
		monitorService: monitorService,
		log:            log.With().Str("component", "violation_handler").Logger(),
	}
}

type reportViolationRequest struct {
	ExamID        uuid.UUID `json:"exam_id" binding:"required"`
	Type          string    `json:"type" binding:"required"`
	ScreenshotURL string    `json:"screenshot_url" binding:"omitempty,max=2048"`
	DetectedAt    int64     `json:"detected_at" binding:"omitempty"`
}

// Report godoc
// POST /api/v1/student/violations
// Publishes one violation to the exam's live monitor channel and queues it
// for batch persistence.
func (h *ViolationHandler) Report(c *gin.Context) {
	claims := middleware.GetClaims(c)

	var req reportViolationRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	vtype, err := model.ParseViolationType(req.Type)
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidViolation)
		return
	}

	detectedAt := req.DetectedAt
	if detectedAt == 0 {
		detectedAt = time.Now().Unix()
	}

	msg := &service.ViolationMessage{
		ExamID:        req.ExamID.String(),
		Email:         claims.Email,
		Username:      claims.Name,
		Type:          vtype,
		ScreenshotURL: req.ScreenshotURL,
		DetectedAt:    detectedAt,
	}
	if err := h.monitorService.PublishViolation(c.Request.Context(), msg); err != nil {
		h.log.Error().Err(err).Str("exam_id", req.ExamID.String()).Msg("Failed to publish violation")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusAccepted, gin.H{})
}
