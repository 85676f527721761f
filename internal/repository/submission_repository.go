package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/invigilo/invigilo-backend/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const submissionColumns = `id, exam_id, student_id, attempt_number, score, answers, coding_answer,
	        status, reason,
	        cheating_logs_approved, cheating_logs_approved_by, cheating_logs_approved_at,
	        failure_reason_approved, failure_reason_approved_by, failure_reason_approved_at,
	        created_at, updated_at`

// SubmissionRepository handles submission data access.
type SubmissionRepository struct {
	pool *pgxpool.Pool
}

// NewSubmissionRepository creates a new SubmissionRepository.
func NewSubmissionRepository(pool *pgxpool.Pool) *SubmissionRepository {
	return &SubmissionRepository{pool: pool}
}

// Create inserts a finalized submission. Returns ErrDuplicate when the same
// attempt was already persisted (unique exam_id + student_id + attempt_number).
func (r *SubmissionRepository) Create(ctx context.Context, s *model.Submission) error {
	answers, err := json.Marshal(s.Answers)
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}
	var coding []byte
	if s.CodingAnswer != nil {
		coding, err = json.Marshal(s.CodingAnswer)
		if err != nil {
			return fmt.Errorf("marshal coding answer: %w", err)
		}
	}

	err = r.pool.QueryRow(ctx,
		`INSERT INTO submissions (exam_id, student_id, attempt_number, score, answers,
		                          coding_answer, status, reason)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, created_at, updated_at`,
		s.ExamID, s.StudentID, s.AttemptNumber, s.Score, answers,
		coding, s.Status, s.Reason,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

// GetByID retrieves a submission by its UUID.
func (r *SubmissionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Submission, error) {
	return scanSubmission(r.pool.QueryRow(ctx,
		`SELECT `+submissionColumns+` FROM submissions WHERE id = $1`, id))
}

// ListByExam retrieves all submissions for an exam, newest first.
func (r *SubmissionRepository) ListByExam(ctx context.Context, examID uuid.UUID) ([]model.Submission, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+submissionColumns+`
		 FROM submissions WHERE exam_id = $1
		 ORDER BY created_at DESC`, examID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSubmissions(rows)
}

// ListByStudent retrieves all submissions of a student, newest first.
func (r *SubmissionRepository) ListByStudent(ctx context.Context, studentID int) ([]model.Submission, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+submissionColumns+`
		 FROM submissions WHERE student_id = $1
		 ORDER BY created_at DESC`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSubmissions(rows)
}

// CountAttempts returns how many submissions a student already has for an exam.
func (r *SubmissionRepository) CountAttempts(ctx context.Context, examID uuid.UUID, studentID int) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM submissions WHERE exam_id = $1 AND student_id = $2`,
		examID, studentID).Scan(&n)
	return n, err
}

// ApproveCheatingLogs marks the submission's cheating logs as reviewed.
func (r *SubmissionRepository) ApproveCheatingLogs(ctx context.Context, id uuid.UUID, teacherID int, at time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE submissions
		 SET cheating_logs_approved = TRUE,
		     cheating_logs_approved_by = $1,
		     cheating_logs_approved_at = $2,
		     updated_at = NOW()
		 WHERE id = $3`, teacherID, at, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ApproveFailureReason marks the failure reason as reviewed and moves the
// submission to its terminal status.
func (r *SubmissionRepository) ApproveFailureReason(ctx context.Context, id uuid.UUID, teacherID int, at time.Time, status model.SubmissionStatus) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE submissions
		 SET failure_reason_approved = TRUE,
		     failure_reason_approved_by = $1,
		     failure_reason_approved_at = $2,
		     status = $3,
		     updated_at = NOW()
		 WHERE id = $4`, teacherID, at, status, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateStatus moves a submission to a new status.
func (r *SubmissionRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.SubmissionStatus) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE submissions SET status = $1, updated_at = NOW() WHERE id = $2`, status, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanSubmission(row pgx.Row) (*model.Submission, error) {
	s := &model.Submission{}
	var answers, coding []byte
	err := row.Scan(&s.ID, &s.ExamID, &s.StudentID, &s.AttemptNumber, &s.Score, &answers, &coding,
		&s.Status, &s.Reason,
		&s.CheatingLogsApproved, &s.CheatingLogsApprovedBy, &s.CheatingLogsApprovedAt,
		&s.FailureReasonApproved, &s.FailureReasonApprovedBy, &s.FailureReasonApprovedAt,
		&s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := decodeSubmissionJSON(s, answers, coding); err != nil {
		return nil, err
	}
	return s, nil
}

func collectSubmissions(rows pgx.Rows) ([]model.Submission, error) {
	var subs []model.Submission
	for rows.Next() {
		var s model.Submission
		var answers, coding []byte
		if err := rows.Scan(&s.ID, &s.ExamID, &s.StudentID, &s.AttemptNumber, &s.Score, &answers, &coding,
			&s.Status, &s.Reason,
			&s.CheatingLogsApproved, &s.CheatingLogsApprovedBy, &s.CheatingLogsApprovedAt,
			&s.FailureReasonApproved, &s.FailureReasonApprovedBy, &s.FailureReasonApprovedAt,
			&s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		if err := decodeSubmissionJSON(&s, answers, coding); err != nil {
			return nil, err
		}
		subs = append(subs, s)
	}
	return subs, rows.Err()
}

func decodeSubmissionJSON(s *model.Submission, answers, coding []byte) error {
	if len(answers) > 0 {
		if err := json.Unmarshal(answers, &s.Answers); err != nil {
			return fmt.Errorf("unmarshal answers: %w", err)
		}
	}
	if len(coding) > 0 {
		s.CodingAnswer = &model.CodingAnswer{}
		if err := json.Unmarshal(coding, s.CodingAnswer); err != nil {
			return fmt.Errorf("unmarshal coding answer: %w", err)
		}
	}
	return nil
}
