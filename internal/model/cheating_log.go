package model

import (
	"time"

	"github.com/google/uuid"
)

// CheatingLog is the persisted violation record for one exam attempt by one
// student. Counters mirror the evidence list: each counter equals the number
// of screenshots of the matching type.
type CheatingLog struct {
	ID                    uuid.UUID  `json:"id"`
	ExamID                uuid.UUID  `json:"exam_id"`
	Username              string     `json:"username"`
	Email                 string     `json:"email"`
	NoFaceCount           int        `json:"no_face_count"`
	MultipleFaceCount     int        `json:"multiple_face_count"`
	CellPhoneCount        int        `json:"cell_phone_count"`
	ProhibitedObjectCount int        `json:"prohibited_object_count"`
	Screenshots           []Evidence `json:"screenshots"`
	Reason                string     `json:"reason,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
}

// TotalViolations sums the four counters.
func (l *CheatingLog) TotalViolations() int {
	return l.NoFaceCount + l.MultipleFaceCount + l.CellPhoneCount + l.ProhibitedObjectCount
}

// SaveCheatingLogRequest is the payload for persisting a finalized cheating log.
type SaveCheatingLogRequest struct {
	ExamID                uuid.UUID  `json:"exam_id" binding:"required"`
	Username              string     `json:"username" binding:"required,max=255"`
	Email                 string     `json:"email" binding:"required,email"`
	NoFaceCount           int        `json:"no_face_count" binding:"min=0"`
	MultipleFaceCount     int        `json:"multiple_face_count" binding:"min=0"`
	CellPhoneCount        int        `json:"cell_phone_count" binding:"min=0"`
	ProhibitedObjectCount int        `json:"prohibited_object_count" binding:"min=0"`
	Screenshots           []Evidence `json:"screenshots"`
	Reason                string     `json:"reason" binding:"omitempty,max=1000"`
}
