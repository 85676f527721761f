package model

import (
	"time"

	"github.com/google/uuid"
)

// Exam represents an exam entity authored by a teacher.
type Exam struct {
	ID              uuid.UUID  `json:"id"`
	ExamName        string     `json:"exam_name"`
	AuthorID        int        `json:"author_id"`
	TotalQuestions  int        `json:"total_questions"`
	DurationMinutes int        `json:"duration_minutes"`
	LiveDate        *time.Time `json:"live_date,omitempty"`
	DeadDate        *time.Time `json:"dead_date,omitempty"`
	MaxAttempts     int        `json:"max_attempts"`
	CodingEnabled   bool       `json:"coding_enabled"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// AvailableAt reports whether the exam's live/dead window contains t.
// A nil bound is open-ended.
func (e *Exam) AvailableAt(t time.Time) bool {
	if e.LiveDate != nil && t.Before(*e.LiveDate) {
		return false
	}
	if e.DeadDate != nil && t.After(*e.DeadDate) {
		return false
	}
	return true
}

// CreateExamRequest is the payload for creating a new exam.
type CreateExamRequest struct {
	ExamName        string     `json:"exam_name" binding:"required,min=3,max=255"`
	TotalQuestions  int        `json:"total_questions" binding:"required,min=1,max=500"`
	DurationMinutes int        `json:"duration_minutes" binding:"required,min=1,max=480"`
	LiveDate        *time.Time `json:"live_date" binding:"omitempty"`
	DeadDate        *time.Time `json:"dead_date" binding:"omitempty,gtfield=LiveDate"`
	MaxAttempts     int        `json:"max_attempts" binding:"omitempty,min=1,max=10"`
	CodingEnabled   bool       `json:"coding_enabled"`
}

// UpdateExamRequest is the payload for updating an existing exam.
type UpdateExamRequest struct {
	ExamName        string     `json:"exam_name" binding:"omitempty,min=3,max=255"`
	TotalQuestions  *int       `json:"total_questions" binding:"omitempty,min=1,max=500"`
	DurationMinutes *int       `json:"duration_minutes" binding:"omitempty,min=1,max=480"`
	LiveDate        *time.Time `json:"live_date" binding:"omitempty"`
	DeadDate        *time.Time `json:"dead_date" binding:"omitempty"`
	MaxAttempts     *int       `json:"max_attempts" binding:"omitempty,min=1,max=10"`
	CodingEnabled   *bool      `json:"coding_enabled" binding:"omitempty"`
}

// ExamPayload is the exam plus questions as served to a student starting an
// attempt. Correct-answer flags are stripped from the options.
type ExamPayload struct {
	ExamID          uuid.UUID            `json:"exam_id"`
	ExamName        string               `json:"exam_name"`
	TotalQuestions  int                  `json:"total_questions"`
	DurationMinutes int                  `json:"duration_minutes"`
	Questions       []QuestionForStudent `json:"questions"`
}
