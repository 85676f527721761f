package proctor

import (
	"sync"

	"github.com/google/uuid"
	"github.com/invigilo/invigilo-backend/internal/model"
)

// Delta is a partial session-log update: small non-negative counter
// increments plus newly captured evidence. Deltas are merged, never applied
// as absolute values, so concurrent violation events cannot clobber each
// other's counts.
type Delta struct {
	ExamID   uuid.UUID `json:"exam_id"`
	Username string    `json:"username,omitempty"`
	Email    string    `json:"email,omitempty"`

	NoFaceCount           int `json:"no_face_count,omitempty"`
	MultipleFaceCount     int `json:"multiple_face_count,omitempty"`
	CellPhoneCount        int `json:"cell_phone_count,omitempty"`
	ProhibitedObjectCount int `json:"prohibited_object_count,omitempty"`

	Screenshots []model.Evidence `json:"screenshots,omitempty"`
}

// DeltaFor builds the canonical one-violation delta: the counter for the
// evidence type incremented by one, with the evidence attached.
func DeltaFor(examID uuid.UUID, ev model.Evidence) Delta {
	d := Delta{ExamID: examID, Screenshots: []model.Evidence{ev}}
	switch ev.Type {
	case model.ViolationNoFace:
		d.NoFaceCount = 1
	case model.ViolationMultipleFace:
		d.MultipleFaceCount = 1
	case model.ViolationCellPhone:
		d.CellPhoneCount = 1
	case model.ViolationProhibitedObject:
		d.ProhibitedObjectCount = 1
	}
	return d
}

// Snapshot is a read-only projection of a session log.
type Snapshot struct {
	ExamID   uuid.UUID `json:"exam_id"`
	Username string    `json:"username"`
	Email    string    `json:"email"`

	NoFaceCount           int `json:"no_face_count"`
	MultipleFaceCount     int `json:"multiple_face_count"`
	CellPhoneCount        int `json:"cell_phone_count"`
	ProhibitedObjectCount int `json:"prohibited_object_count"`
	TotalViolations       int `json:"total_violations"`

	Screenshots []model.Evidence `json:"screenshots"`
}

// SessionLog accumulates violation counters and evidence for one exam
// attempt. It is the single source of truth for the attempt's violations and
// must only be mutated through MergeDelta and Reset.
//
// Merges are serialized by a mutex: counter addition is commutative and
// associative, and evidence is appended in arrival order, so bursts of
// near-simultaneous deltas (two violation types in the same sampling tick)
// never lose increments.
type SessionLog struct {
	mu sync.Mutex

	examID   uuid.UUID
	username string
	email    string

	noFace           int
	multipleFace     int
	cellPhone        int
	prohibitedObject int

	screenshots []model.Evidence
}

// NewSessionLog creates a zeroed session log bound to an exam attempt.
func NewSessionLog(examID uuid.UUID, username, email string) *SessionLog {
	return &SessionLog{examID: examID, username: username, email: email}
}

// MergeDelta adds the delta's counter increments, appends its evidence in
// arrival order and refreshes identity fields when the delta carries
// non-empty values. Blank identity values never overwrite existing ones.
func (l *SessionLog) MergeDelta(d Delta) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if d.ExamID != uuid.Nil {
		l.examID = d.ExamID
	}
	if d.Username != "" {
		l.username = d.Username
	}
	if d.Email != "" {
		l.email = d.Email
	}

	l.noFace += d.NoFaceCount
	l.multipleFace += d.MultipleFaceCount
	l.cellPhone += d.CellPhoneCount
	l.prohibitedObject += d.ProhibitedObjectCount

	l.screenshots = append(l.screenshots, d.Screenshots...)
}

// Reset zeroes all counters, clears the evidence list and rebinds the log to
// a new exam attempt. No state leaks from the prior session.
func (l *SessionLog) Reset(examID uuid.UUID, username, email string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.examID = examID
	l.username = username
	l.email = email
	l.noFace = 0
	l.multipleFace = 0
	l.cellPhone = 0
	l.prohibitedObject = 0
	l.screenshots = nil
}

// Snapshot returns a read-only copy of the current state with the derived
// violation total. The evidence slice is copied; callers cannot mutate the
// log through it.
func (l *SessionLog) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	shots := make([]model.Evidence, len(l.screenshots))
	copy(shots, l.screenshots)

	return Snapshot{
		ExamID:                l.examID,
		Username:              l.username,
		Email:                 l.email,
		NoFaceCount:           l.noFace,
		MultipleFaceCount:     l.multipleFace,
		CellPhoneCount:        l.cellPhone,
		ProhibitedObjectCount: l.prohibitedObject,
		TotalViolations:       l.noFace + l.multipleFace + l.cellPhone + l.prohibitedObject,
		Screenshots:           shots,
	}
}
