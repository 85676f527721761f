package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/invigilo/invigilo-backend/internal/model"
	"github.com/invigilo/invigilo-backend/internal/repository"
	"github.com/rs/zerolog"
)

// CheatingLogService persists end-of-exam violation aggregates.
type CheatingLogService struct {
	examRepo     *repository.ExamRepository
	cheatLogRepo *repository.CheatingLogRepository
	log          zerolog.Logger
}

// NewCheatingLogService creates a new CheatingLogService.
func NewCheatingLogService(examRepo *repository.ExamRepository, cheatLogRepo *repository.CheatingLogRepository, log zerolog.Logger) *CheatingLogService {
	return &CheatingLogService{
		examRepo:     examRepo,
		cheatLogRepo: cheatLogRepo,
		log:          log.With().Str("component", "cheating_log_service").Logger(),
	}
}

// Save merges a reported log into the stored one. Counters only ever grow;
// a partial or duplicate report cannot erase recorded violations.
func (s *CheatingLogService) Save(ctx context.Context, req *model.SaveCheatingLogRequest) (*model.CheatingLog, error) {
	if _, err := s.examRepo.GetByID(ctx, req.ExamID); err != nil {
		return nil, err
	}

	entry := &model.CheatingLog{
		ExamID:                req.ExamID,
		Username:              req.Username,
		Email:                 req.Email,
		NoFaceCount:           req.NoFaceCount,
		MultipleFaceCount:     req.MultipleFaceCount,
		CellPhoneCount:        req.CellPhoneCount,
		ProhibitedObjectCount: req.ProhibitedObjectCount,
		Screenshots:           req.Screenshots,
		Reason:                req.Reason,
	}
	if entry.Screenshots == nil {
		entry.Screenshots = []model.Evidence{}
	}

	if err := s.cheatLogRepo.Upsert(ctx, entry); err != nil {
		return nil, fmt.Errorf("upsert cheating log: %w", err)
	}

	s.log.Info().
		Str("exam_id", req.ExamID.String()).
		Str("email", req.Email).
		Int("total", entry.TotalViolations()).
		Msg("Cheating log saved")

	return entry, nil
}

// ListByExam retrieves all logs of an exam for its author.
func (s *CheatingLogService) ListByExam(ctx context.Context, examID uuid.UUID, authorID int) ([]model.CheatingLog, error) {
	exam, err := s.examRepo.GetByID(ctx, examID)
	if err != nil {
		return nil, err
	}
	if exam.AuthorID != authorID {
		return nil, ErrNotExamAuthor
	}
	return s.cheatLogRepo.ListByExam(ctx, examID)
}

// GetOwn retrieves the student's own log for an exam.
func (s *CheatingLogService) GetOwn(ctx context.Context, examID uuid.UUID, email string) (*model.CheatingLog, error) {
	return s.cheatLogRepo.GetByExamAndEmail(ctx, examID, email)
}
