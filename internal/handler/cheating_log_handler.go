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

// CheatingLogHandler handles violation aggregate endpoints.
type CheatingLogHandler struct {
	cheatLogService *service.CheatingLogService
}

// NewCheatingLogHandler creates a new CheatingLogHandler.
func NewCheatingLogHandler(cheatLogService *service.CheatingLogService) *CheatingLogHandler {
	return &CheatingLogHandler{cheatLogService: cheatLogService}
}

// Save godoc
// POST /api/v1/student/cheating-logs
// Merges the reported log into the stored one; counters only grow.
func (h *CheatingLogHandler) Save(c *gin.Context) {
	claims := middleware.GetClaims(c)

	var req model.SaveCheatingLogRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	// A student can only report under their own identity.
	req.Email = claims.Email
	if req.Username == "" {
		req.Username = claims.Name
	}

	entry, err := h.cheatLogService.Save(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusCreated, entry)
}

// ListByExam godoc
// GET /api/v1/teacher/exams/:id/cheating-logs
func (h *CheatingLogHandler) ListByExam(c *gin.Context) {
	claims := middleware.GetClaims(c)

	examID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	logs, err := h.cheatLogService.ListByExam(c.Request.Context(), examID, claims.UserID)
	if err != nil {
		failExamError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"cheating_logs": logs})
}

// GetOwn godoc
// GET /api/v1/student/exams/:id/cheating-log
func (h *CheatingLogHandler) GetOwn(c *gin.Context) {
	claims := middleware.GetClaims(c)

	examID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	entry, err := h.cheatLogService.GetOwn(c.Request.Context(), examID, claims.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, entry)
}
