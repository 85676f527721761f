package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/invigilo/invigilo-backend/internal/model"
	"github.com/invigilo/invigilo-backend/internal/repository"
	"github.com/rs/zerolog"
)

// ErrAlreadySubmitted is returned when the same attempt is persisted twice.
var ErrAlreadySubmitted = errors.New("attempt already submitted")

// SubmissionService persists and grades finalized attempts. The score is
// always recomputed server-side from the stored correct options; any score
// a client sends is ignored.
type SubmissionService struct {
	examRepo       *repository.ExamRepository
	questionRepo   *repository.QuestionRepository
	submissionRepo *repository.SubmissionRepository
	log            zerolog.Logger
}

// NewSubmissionService creates a new SubmissionService.
func NewSubmissionService(
	examRepo *repository.ExamRepository,
	questionRepo *repository.QuestionRepository,
	submissionRepo *repository.SubmissionRepository,
	log zerolog.Logger,
) *SubmissionService {
	return &SubmissionService{
		examRepo:       examRepo,
		questionRepo:   questionRepo,
		submissionRepo: submissionRepo,
		log:            log.With().Str("component", "submission_service").Logger(),
	}
}

// Create grades and persists a finalized attempt.
func (s *SubmissionService) Create(ctx context.Context, studentID int, req *model.CreateSubmissionRequest) (*model.Submission, error) {
	exam, err := s.examRepo.GetByID(ctx, req.ExamID)
	if err != nil {
		return nil, err
	}

	used, err := s.submissionRepo.CountAttempts(ctx, req.ExamID, studentID)
	if err != nil {
		return nil, fmt.Errorf("count attempts: %w", err)
	}
	if exam.MaxAttempts > 0 && used >= exam.MaxAttempts {
		return nil, ErrAttemptsExhausted
	}

	questions, err := s.questionRepo.ListByExam(ctx, req.ExamID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}

	answers, score := gradeAnswers(questions, req.Answers)

	status := req.Status
	if !status.Valid() {
		status = model.SubmissionStatusSubmitted
	}

	submission := &model.Submission{
		ExamID:        req.ExamID,
		StudentID:     studentID,
		AttemptNumber: req.AttemptNumber,
		Score:         score,
		Answers:       answers,
		CodingAnswer:  req.CodingAnswer,
		Status:        status,
		Reason:        req.Reason,
	}
	if err := s.submissionRepo.Create(ctx, submission); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrAlreadySubmitted
		}
		return nil, fmt.Errorf("create submission: %w", err)
	}

	s.log.Info().
		Str("exam_id", req.ExamID.String()).
		Int("student_id", studentID).
		Int("score", score).
		Str("status", string(status)).
		Msg("Submission recorded")

	return submission, nil
}

// gradeAnswers scores by comparing the stored correct option ID against the
// student's selection. Unanswered questions count as incorrect. Questions
// missing from the request are still recorded, as unanswered.
func gradeAnswers(questions []model.Question, submitted []model.CreateSubmissionAnswer) ([]model.SubmissionAnswer, int) {
	selected := make(map[uuid.UUID]model.CreateSubmissionAnswer, len(submitted))
	for _, a := range submitted {
		selected[a.QuestionID] = a
	}

	answers := make([]model.SubmissionAnswer, 0, len(questions))
	score := 0
	for i := range questions {
		q := &questions[i]
		sub := selected[q.ID]

		answer := model.SubmissionAnswer{
			QuestionID:     q.ID,
			SelectedOption: sub.SelectedOption,
			CodeAnswer:     sub.CodeAnswer,
		}
		if correct := q.CorrectOption(); correct != nil && sub.SelectedOption != "" && sub.SelectedOption == correct.ID {
			answer.IsCorrect = true
			score++
		}
		answers = append(answers, answer)
	}
	return answers, score
}

// GetByID retrieves one submission, restricted to its owner or any teacher.
func (s *SubmissionService) GetByID(ctx context.Context, id uuid.UUID, requesterID int, role model.UserRole) (*model.Submission, error) {
	submission, err := s.submissionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if role != model.RoleTeacher && submission.StudentID != requesterID {
		return nil, repository.ErrNotFound
	}
	return submission, nil
}

// ListByExam retrieves all submissions of an exam for its author.
func (s *SubmissionService) ListByExam(ctx context.Context, examID uuid.UUID, authorID int) ([]model.Submission, error) {
	exam, err := s.examRepo.GetByID(ctx, examID)
	if err != nil {
		return nil, err
	}
	if exam.AuthorID != authorID {
		return nil, ErrNotExamAuthor
	}
	return s.submissionRepo.ListByExam(ctx, examID)
}

// ListOwn retrieves a student's own submissions.
func (s *SubmissionService) ListOwn(ctx context.Context, studentID int) ([]model.Submission, error) {
	return s.submissionRepo.ListByStudent(ctx, studentID)
}

// ApproveCheatingLogs marks a submission's cheating logs as reviewed by a teacher.
func (s *SubmissionService) ApproveCheatingLogs(ctx context.Context, submissionID uuid.UUID, teacherID int) error {
	return s.submissionRepo.ApproveCheatingLogs(ctx, submissionID, teacherID, time.Now())
}

// ApproveFailureReason reviews an auto-failed submission and settles its
// terminal status: failed when the violations stand, passed when overturned.
func (s *SubmissionService) ApproveFailureReason(ctx context.Context, submissionID uuid.UUID, teacherID int, overturn bool) error {
	status := model.SubmissionStatusFailed
	if overturn {
		status = model.SubmissionStatusPassed
	}
	return s.submissionRepo.ApproveFailureReason(ctx, submissionID, teacherID, time.Now(), status)
}
