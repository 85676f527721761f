package model

import (
	"github.com/google/uuid"
)

// Option is one selectable answer of a multiple-choice question.
type Option struct {
	ID         string `json:"id"`
	OptionText string `json:"option_text"`
	IsCorrect  bool   `json:"is_correct"`
}

// Question represents a single exam question with its options.
type Question struct {
	ID       uuid.UUID `json:"id"`
	ExamID   uuid.UUID `json:"exam_id"`
	Text     string    `json:"question"`
	Options  []Option  `json:"options"`
	OrderNum int       `json:"order_num"`
}

// CorrectOption returns the option flagged correct, or nil when the question
// has none (malformed authoring; graded as unanswerable).
func (q *Question) CorrectOption() *Option {
	for i := range q.Options {
		if q.Options[i].IsCorrect {
			return &q.Options[i]
		}
	}
	return nil
}

// QuestionForStudent is a question with the correct-answer flags stripped.
type QuestionForStudent struct {
	ID       uuid.UUID       `json:"id"`
	Text     string          `json:"question"`
	Options  []StudentOption `json:"options"`
	OrderNum int             `json:"order_num"`
}

// StudentOption is an option as shown to a student.
type StudentOption struct {
	ID         string `json:"id"`
	OptionText string `json:"option_text"`
}

// ForStudent strips grading information from the question.
func (q *Question) ForStudent() QuestionForStudent {
	opts := make([]StudentOption, len(q.Options))
	for i, o := range q.Options {
		opts[i] = StudentOption{ID: o.ID, OptionText: o.OptionText}
	}
	return QuestionForStudent{ID: q.ID, Text: q.Text, Options: opts, OrderNum: q.OrderNum}
}

// AddQuestionRequest is the payload for adding a question to an exam.
type AddQuestionRequest struct {
	Text     string             `json:"question" binding:"required,min=1,max=2000"`
	Options  []AddOptionRequest `json:"options" binding:"required,min=2,max=10,dive"`
	OrderNum int                `json:"order_num" binding:"min=0"`
}

// AddOptionRequest is one option within AddQuestionRequest.
type AddOptionRequest struct {
	OptionText string `json:"option_text" binding:"required,min=1,max=1000"`
	IsCorrect  bool   `json:"is_correct"`
}
