package model

import (
	"testing"
	"time"
)

func TestParseViolationType(t *testing.T) {
	for _, vt := range ViolationTypes {
		got, err := ParseViolationType(string(vt))
		if err != nil || got != vt {
			t.Errorf("ParseViolationType(%q) = %v, %v", vt, got, err)
		}
	}

	for _, s := range []string{"", "cellphone", "CELL_PHONE", "faceMissing"} {
		if _, err := ParseViolationType(s); err == nil {
			t.Errorf("ParseViolationType(%q) accepted an unknown type", s)
		}
	}
}

func TestExamAvailableAt(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	before := now.Add(-time.Hour)
	after := now.Add(time.Hour)

	cases := []struct {
		name string
		exam Exam
		want bool
	}{
		{"open ended", Exam{}, true},
		{"inside window", Exam{LiveDate: &before, DeadDate: &after}, true},
		{"not yet live", Exam{LiveDate: &after}, false},
		{"already closed", Exam{DeadDate: &before}, false},
		{"open start", Exam{DeadDate: &after}, true},
		{"open end", Exam{LiveDate: &before}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.exam.AvailableAt(now); got != tc.want {
				t.Errorf("AvailableAt = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestCheatingLogTotalViolations(t *testing.T) {
	l := CheatingLog{NoFaceCount: 1, MultipleFaceCount: 2, CellPhoneCount: 3, ProhibitedObjectCount: 4}
	if got := l.TotalViolations(); got != 10 {
		t.Errorf("TotalViolations = %d, want 10", got)
	}
}
