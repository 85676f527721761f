package model

import (
	"time"

	"github.com/google/uuid"
)

// SubmissionStatus enumerates the terminal states of a submission.
// Transitions are one-way: a submission is never un-submitted.
type SubmissionStatus string

const (
	SubmissionStatusSubmitted  SubmissionStatus = "submitted"
	SubmissionStatusPassed     SubmissionStatus = "passed"
	SubmissionStatusFailed     SubmissionStatus = "failed"
	SubmissionStatusAutoFailed SubmissionStatus = "auto_failed"
)

// Valid reports whether s is a known submission status.
func (s SubmissionStatus) Valid() bool {
	switch s {
	case SubmissionStatusSubmitted, SubmissionStatusPassed, SubmissionStatusFailed, SubmissionStatusAutoFailed:
		return true
	}
	return false
}

// SubmissionAnswer records the student's choice for one question.
type SubmissionAnswer struct {
	QuestionID     uuid.UUID `json:"question_id"`
	SelectedOption string    `json:"selected_option"`
	CodeAnswer     string    `json:"code_answer,omitempty"`
	IsCorrect      bool      `json:"is_correct"`
}

// CodingAnswer is an optional coding submission captured at the submission root.
type CodingAnswer struct {
	Code     string `json:"code"`
	Language string `json:"language"`
}

// Submission is the durable record of one finalized exam attempt.
type Submission struct {
	ID            uuid.UUID          `json:"id"`
	ExamID        uuid.UUID          `json:"exam_id"`
	StudentID     int                `json:"student_id"`
	AttemptNumber int                `json:"attempt_number"`
	Score         int                `json:"score"`
	Answers       []SubmissionAnswer `json:"answers"`
	CodingAnswer  *CodingAnswer      `json:"coding_answer,omitempty"`
	Status        SubmissionStatus   `json:"status"`
	Reason        string             `json:"reason,omitempty"`

	// Teacher approvals gating what the student may see afterwards.
	CheatingLogsApproved     bool       `json:"cheating_logs_approved"`
	CheatingLogsApprovedBy   *int       `json:"cheating_logs_approved_by,omitempty"`
	CheatingLogsApprovedAt   *time.Time `json:"cheating_logs_approved_at,omitempty"`
	FailureReasonApproved    bool       `json:"failure_reason_approved"`
	FailureReasonApprovedBy  *int       `json:"failure_reason_approved_by,omitempty"`
	FailureReasonApprovedAt  *time.Time `json:"failure_reason_approved_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateSubmissionRequest is the payload for persisting a finalized attempt.
type CreateSubmissionRequest struct {
	ExamID        uuid.UUID                `json:"exam_id" binding:"required"`
	AttemptNumber int                      `json:"attempt_number" binding:"required,min=1"`
	Answers       []CreateSubmissionAnswer `json:"answers" binding:"dive"`
	CodingAnswer  *CodingAnswer            `json:"coding_answer" binding:"omitempty"`
	Status        SubmissionStatus         `json:"status" binding:"omitempty,oneof=submitted passed failed auto_failed"`
	Reason        string                   `json:"reason" binding:"omitempty,max=1000"`
}

// CreateSubmissionAnswer is one answer within CreateSubmissionRequest.
// Empty SelectedOption means the question was left unanswered.
type CreateSubmissionAnswer struct {
	QuestionID     uuid.UUID `json:"question_id" binding:"required"`
	SelectedOption string    `json:"selected_option"`
	CodeAnswer     string    `json:"code_answer"`
}
