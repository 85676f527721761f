package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/invigilo/invigilo-backend/internal/middleware"
	"github.com/invigilo/invigilo-backend/internal/model"
	"github.com/invigilo/invigilo-backend/internal/repository"
	"github.com/invigilo/invigilo-backend/internal/response"
	"github.com/invigilo/invigilo-backend/internal/service"
	"github.com/invigilo/invigilo-backend/internal/validator"
)

// SubmissionHandler handles submission persistence and review endpoints.
type SubmissionHandler struct {
	submissionService *service.SubmissionService
}

// NewSubmissionHandler creates a new SubmissionHandler.
func NewSubmissionHandler(submissionService *service.SubmissionService) *SubmissionHandler {
	return &SubmissionHandler{submissionService: submissionService}
}

// Create godoc
// POST /api/v1/student/submissions
// Grades and persists a finalized attempt. Any client-supplied score is
// ignored; the server recomputes from the stored correct options.
func (h *SubmissionHandler) Create(c *gin.Context) {
	claims := middleware.GetClaims(c)

	var req model.CreateSubmissionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	submission, err := h.submissionService.Create(c.Request.Context(), claims.UserID, &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAlreadySubmitted):
			response.Fail(c, http.StatusConflict, response.ErrAlreadySubmitted)
		case errors.Is(err, service.ErrAttemptsExhausted):
			response.Fail(c, http.StatusForbidden, response.ErrAttemptsExhausted)
		case errors.Is(err, repository.ErrNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	response.Success(c, http.StatusCreated, submission)
}

// ListOwn godoc
// GET /api/v1/student/submissions
func (h *SubmissionHandler) ListOwn(c *gin.Context) {
	claims := middleware.GetClaims(c)

	submissions, err := h.submissionService.ListOwn(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"submissions": submissions})
}

// GetByID godoc
// GET /api/v1/submissions/:id
// Owners see their own submissions; teachers see any.
func (h *SubmissionHandler) GetByID(c *gin.Context) {
	claims := middleware.GetClaims(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	submission, err := h.submissionService.GetByID(c.Request.Context(), id, claims.UserID, claims.Role)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, submission)
}

// ListByExam godoc
// GET /api/v1/teacher/exams/:id/submissions
func (h *SubmissionHandler) ListByExam(c *gin.Context) {
	claims := middleware.GetClaims(c)

	examID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	submissions, err := h.submissionService.ListByExam(c.Request.Context(), examID, claims.UserID)
	if err != nil {
		failExamError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"submissions": submissions})
}

// ApproveCheatingLogs godoc
// POST /api/v1/teacher/submissions/:id/approve-cheating-logs
// Marks the attached violation evidence as reviewed.
func (h *SubmissionHandler) ApproveCheatingLogs(c *gin.Context) {
	claims := middleware.GetClaims(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.submissionService.ApproveCheatingLogs(c.Request.Context(), id, claims.UserID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// approveFailureReasonRequest chooses the terminal status of a reviewed
// auto-failed submission.
type approveFailureReasonRequest struct {
	Overturn bool `json:"overturn"`
}

// ApproveFailureReason godoc
// POST /api/v1/teacher/submissions/:id/approve-failure-reason
// Settles an auto-failed submission: failed when upheld, passed when overturned.
func (h *SubmissionHandler) ApproveFailureReason(c *gin.Context) {
	claims := middleware.GetClaims(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req approveFailureReasonRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.submissionService.ApproveFailureReason(c.Request.Context(), id, claims.UserID, req.Overturn); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}
