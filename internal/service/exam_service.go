package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/invigilo/invigilo-backend/internal/config"
	"github.com/invigilo/invigilo-backend/internal/model"
	"github.com/invigilo/invigilo-backend/internal/repository"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Exam-specific errors surfaced to handlers.
var (
	ErrExamNotAvailable  = errors.New("exam not available")
	ErrNotExamAuthor     = errors.New("not the exam author")
	ErrNoQuestions       = errors.New("exam has no questions")
	ErrAttemptsExhausted = errors.New("all attempts used")
)

const examPayloadTTL = 10 * time.Minute

// ExamService orchestrates exam authoring and attempt entry.
type ExamService struct {
	examRepo       *repository.ExamRepository
	questionRepo   *repository.QuestionRepository
	submissionRepo *repository.SubmissionRepository
	rdb            *redis.Client
	log            zerolog.Logger
}

// NewExamService creates a new ExamService.
func NewExamService(
	examRepo *repository.ExamRepository,
	questionRepo *repository.QuestionRepository,
	submissionRepo *repository.SubmissionRepository,
	rdb *redis.Client,
	log zerolog.Logger,
) *ExamService {
	return &ExamService{
		examRepo:       examRepo,
		questionRepo:   questionRepo,
		submissionRepo: submissionRepo,
		rdb:            rdb,
		log:            log.With().Str("component", "exam_service").Logger(),
	}
}

// Create inserts a new exam owned by the teacher.
func (s *ExamService) Create(ctx context.Context, authorID int, req *model.CreateExamRequest) (*model.Exam, error) {
	exam := &model.Exam{
		ExamName:        req.ExamName,
		AuthorID:        authorID,
		TotalQuestions:  req.TotalQuestions,
		DurationMinutes: req.DurationMinutes,
		LiveDate:        req.LiveDate,
		DeadDate:        req.DeadDate,
		MaxAttempts:     req.MaxAttempts,
		CodingEnabled:   req.CodingEnabled,
	}
	if err := s.examRepo.Create(ctx, exam); err != nil {
		return nil, fmt.Errorf("create exam: %w", err)
	}
	return exam, nil
}

// Update applies partial changes to an exam after verifying authorship.
func (s *ExamService) Update(ctx context.Context, examID uuid.UUID, authorID int, req *model.UpdateExamRequest) (*model.Exam, error) {
	exam, err := s.getOwned(ctx, examID, authorID)
	if err != nil {
		return nil, err
	}

	if req.ExamName != "" {
		exam.ExamName = req.ExamName
	}
	if req.TotalQuestions != nil {
		exam.TotalQuestions = *req.TotalQuestions
	}
	if req.DurationMinutes != nil {
		exam.DurationMinutes = *req.DurationMinutes
	}
	if req.LiveDate != nil {
		exam.LiveDate = req.LiveDate
	}
	if req.DeadDate != nil {
		exam.DeadDate = req.DeadDate
	}
	if req.MaxAttempts != nil {
		exam.MaxAttempts = *req.MaxAttempts
	}
	if req.CodingEnabled != nil {
		exam.CodingEnabled = *req.CodingEnabled
	}

	if err := s.examRepo.Update(ctx, exam); err != nil {
		return nil, fmt.Errorf("update exam: %w", err)
	}
	s.invalidatePayload(ctx, examID)
	return exam, nil
}

// Delete removes an exam after verifying authorship.
func (s *ExamService) Delete(ctx context.Context, examID uuid.UUID, authorID int) error {
	if _, err := s.getOwned(ctx, examID, authorID); err != nil {
		return err
	}
	if err := s.examRepo.Delete(ctx, examID); err != nil {
		return fmt.Errorf("delete exam: %w", err)
	}
	s.invalidatePayload(ctx, examID)
	return nil
}

// GetByID retrieves a single exam.
func (s *ExamService) GetByID(ctx context.Context, examID uuid.UUID) (*model.Exam, error) {
	return s.examRepo.GetByID(ctx, examID)
}

// ListByAuthor retrieves a teacher's exams with pagination.
func (s *ExamService) ListByAuthor(ctx context.Context, authorID, page, perPage int) ([]model.Exam, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}
	return s.examRepo.ListByAuthorPaginated(ctx, authorID, perPage, (page-1)*perPage)
}

// ListAvailable returns exams open to students right now.
func (s *ExamService) ListAvailable(ctx context.Context) ([]model.Exam, error) {
	return s.examRepo.ListAvailable(ctx, time.Now())
}

// StartAttempt validates entry and returns the student-facing exam payload.
// The payload is cached in Redis; the correct-answer flags never leave the
// server. Attempt start time is recorded for audit.
func (s *ExamService) StartAttempt(ctx context.Context, examID uuid.UUID, studentID int) (*model.ExamPayload, int, error) {
	exam, err := s.examRepo.GetByID(ctx, examID)
	if err != nil {
		return nil, 0, err
	}

	if !exam.AvailableAt(time.Now()) {
		return nil, 0, ErrExamNotAvailable
	}

	used, err := s.submissionRepo.CountAttempts(ctx, examID, studentID)
	if err != nil {
		return nil, 0, fmt.Errorf("count attempts: %w", err)
	}
	if exam.MaxAttempts > 0 && used >= exam.MaxAttempts {
		return nil, 0, ErrAttemptsExhausted
	}
	attemptNumber := used + 1

	payload, err := s.getPayload(ctx, exam)
	if err != nil {
		return nil, 0, err
	}

	// Best effort audit trail; a Redis outage must not block the exam.
	startKey := config.CacheKey.AttemptStartKey(examID.String(), studentID)
	_ = s.rdb.Set(ctx, startKey, time.Now().Unix(), time.Duration(exam.DurationMinutes+5)*time.Minute).Err()

	return payload, attemptNumber, nil
}

// Questions returns the full question set, correct answers included.
// For server-side grading only; never expose to students.
func (s *ExamService) Questions(ctx context.Context, examID uuid.UUID) ([]model.Question, error) {
	return s.questionRepo.ListByExam(ctx, examID)
}

func (s *ExamService) getPayload(ctx context.Context, exam *model.Exam) (*model.ExamPayload, error) {
	cacheKey := config.CacheKey.ExamPayloadKey(exam.ID.String())

	if cached, err := s.rdb.Get(ctx, cacheKey).Result(); err == nil {
		payload := &model.ExamPayload{}
		if err := json.Unmarshal([]byte(cached), payload); err == nil {
			return payload, nil
		}
		// Corrupt cache entry, rebuild below.
		s.rdb.Del(ctx, cacheKey)
	}

	questions, err := s.questionRepo.ListByExam(ctx, exam.ID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	if len(questions) == 0 {
		return nil, ErrNoQuestions
	}

	forStudent := make([]model.QuestionForStudent, len(questions))
	for i := range questions {
		forStudent[i] = questions[i].ForStudent()
	}

	payload := &model.ExamPayload{
		ExamID:          exam.ID,
		ExamName:        exam.ExamName,
		TotalQuestions:  len(questions),
		DurationMinutes: exam.DurationMinutes,
		Questions:       forStudent,
	}

	if data, err := json.Marshal(payload); err == nil {
		if err := s.rdb.Set(ctx, cacheKey, data, examPayloadTTL).Err(); err != nil {
			s.log.Warn().Err(err).Msg("Failed to cache exam payload")
		}
	}

	return payload, nil
}

func (s *ExamService) getOwned(ctx context.Context, examID uuid.UUID, authorID int) (*model.Exam, error) {
	exam, err := s.examRepo.GetByID(ctx, examID)
	if err != nil {
		return nil, err
	}
	if exam.AuthorID != authorID {
		return nil, ErrNotExamAuthor
	}
	return exam, nil
}

func (s *ExamService) invalidatePayload(ctx context.Context, examID uuid.UUID) {
	if err := s.rdb.Del(ctx, config.CacheKey.ExamPayloadKey(examID.String())).Err(); err != nil {
		s.log.Warn().Err(err).Str("exam_id", examID.String()).Msg("Failed to invalidate payload cache")
	}
}
