package model

import (
	"fmt"
	"time"
)

// ViolationType enumerates the proctoring rule breaches a session can record.
type ViolationType string

const (
	ViolationNoFace           ViolationType = "noFace"
	ViolationMultipleFace     ViolationType = "multipleFace"
	ViolationCellPhone        ViolationType = "cellPhone"
	ViolationProhibitedObject ViolationType = "prohibitedObject"
)

// ViolationTypes lists all violation types in a stable order.
var ViolationTypes = []ViolationType{
	ViolationNoFace,
	ViolationMultipleFace,
	ViolationCellPhone,
	ViolationProhibitedObject,
}

// Valid reports whether t is one of the known violation types.
func (t ViolationType) Valid() bool {
	switch t {
	case ViolationNoFace, ViolationMultipleFace, ViolationCellPhone, ViolationProhibitedObject:
		return true
	}
	return false
}

// ParseViolationType converts a wire string into a ViolationType.
func ParseViolationType(s string) (ViolationType, error) {
	t := ViolationType(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown violation type %q", s)
	}
	return t, nil
}

// ViolationEvent is an ephemeral detection produced by the violation detector
// and consumed immediately by the evidence capturer.
type ViolationEvent struct {
	Type       ViolationType `json:"type"`
	OccurredAt time.Time     `json:"occurred_at"`
}

// Evidence is a captured, uploaded screenshot backing one violation.
// Immutable once created; only ever appended to a session log.
type Evidence struct {
	URL        string        `json:"url"`
	Type       ViolationType `json:"type"`
	DetectedAt time.Time     `json:"detected_at"`
}
