package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/invigilo/invigilo-backend/internal/config"
	"github.com/invigilo/invigilo-backend/internal/model"
	"github.com/invigilo/invigilo-backend/internal/repository"
	"github.com/redis/go-redis/v9"
)

// ErrNoCorrectOption is returned when a question is authored without exactly
// one correct option.
var ErrNoCorrectOption = errors.New("question must have exactly one correct option")

// QuestionService orchestrates question authoring.
type QuestionService struct {
	examRepo     *repository.ExamRepository
	questionRepo *repository.QuestionRepository
	rdb          *redis.Client
}

// NewQuestionService creates a new QuestionService.
func NewQuestionService(examRepo *repository.ExamRepository, questionRepo *repository.QuestionRepository, rdb *redis.Client) *QuestionService {
	return &QuestionService{examRepo: examRepo, questionRepo: questionRepo, rdb: rdb}
}

// Add attaches a question to an exam after verifying authorship.
// Option IDs are assigned server-side.
func (s *QuestionService) Add(ctx context.Context, examID uuid.UUID, authorID int, req *model.AddQuestionRequest) (*model.Question, error) {
	exam, err := s.examRepo.GetByID(ctx, examID)
	if err != nil {
		return nil, err
	}
	if exam.AuthorID != authorID {
		return nil, ErrNotExamAuthor
	}

	correct := 0
	options := make([]model.Option, len(req.Options))
	for i, o := range req.Options {
		options[i] = model.Option{
			ID:         uuid.New().String(),
			OptionText: o.OptionText,
			IsCorrect:  o.IsCorrect,
		}
		if o.IsCorrect {
			correct++
		}
	}
	if correct != 1 {
		return nil, ErrNoCorrectOption
	}

	question := &model.Question{
		ExamID:   examID,
		Text:     req.Text,
		Options:  options,
		OrderNum: req.OrderNum,
	}
	if err := s.questionRepo.Create(ctx, question); err != nil {
		return nil, fmt.Errorf("create question: %w", err)
	}

	s.invalidatePayload(ctx, examID)
	return question, nil
}

// ListByExam returns all questions of an exam for its author, correct-answer
// flags included.
func (s *QuestionService) ListByExam(ctx context.Context, examID uuid.UUID, authorID int) ([]model.Question, error) {
	exam, err := s.examRepo.GetByID(ctx, examID)
	if err != nil {
		return nil, err
	}
	if exam.AuthorID != authorID {
		return nil, ErrNotExamAuthor
	}
	return s.questionRepo.ListByExam(ctx, examID)
}

// Delete removes a question after verifying exam authorship.
func (s *QuestionService) Delete(ctx context.Context, examID, questionID uuid.UUID, authorID int) error {
	exam, err := s.examRepo.GetByID(ctx, examID)
	if err != nil {
		return err
	}
	if exam.AuthorID != authorID {
		return ErrNotExamAuthor
	}

	question, err := s.questionRepo.GetByID(ctx, questionID)
	if err != nil {
		return err
	}
	if question.ExamID != examID {
		return repository.ErrNotFound
	}

	if err := s.questionRepo.Delete(ctx, questionID); err != nil {
		return err
	}
	s.invalidatePayload(ctx, examID)
	return nil
}

func (s *QuestionService) invalidatePayload(ctx context.Context, examID uuid.UUID) {
	s.rdb.Del(ctx, config.CacheKey.ExamPayloadKey(examID.String()))
}
