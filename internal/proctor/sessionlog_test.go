package proctor

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/invigilo/invigilo-backend/internal/model"
)

func evidence(t model.ViolationType) model.Evidence {
	return model.Evidence{URL: "https://cdn.example/" + string(t) + ".jpg", Type: t, DetectedAt: time.Now()}
}

func TestMergeDeltaAddsCounters(t *testing.T) {
	examID := uuid.New()
	log := NewSessionLog(examID, "alice", "alice@example.com")

	log.MergeDelta(DeltaFor(examID, evidence(model.ViolationCellPhone)))
	log.MergeDelta(DeltaFor(examID, evidence(model.ViolationCellPhone)))
	log.MergeDelta(DeltaFor(examID, evidence(model.ViolationNoFace)))

	snap := log.Snapshot()
	if snap.CellPhoneCount != 2 {
		t.Errorf("CellPhoneCount = %d, want 2", snap.CellPhoneCount)
	}
	if snap.NoFaceCount != 1 {
		t.Errorf("NoFaceCount = %d, want 1", snap.NoFaceCount)
	}
	if snap.TotalViolations != 3 {
		t.Errorf("TotalViolations = %d, want 3", snap.TotalViolations)
	}
	if len(snap.Screenshots) != 3 {
		t.Errorf("len(Screenshots) = %d, want 3", len(snap.Screenshots))
	}
}

func TestMergeDeltaIdentityOnlyOverwritesWithNonEmpty(t *testing.T) {
	examID := uuid.New()
	log := NewSessionLog(examID, "alice", "alice@example.com")

	// Blank identity fields must not erase existing values.
	log.MergeDelta(Delta{ExamID: examID, NoFaceCount: 1})
	snap := log.Snapshot()
	if snap.Username != "alice" || snap.Email != "alice@example.com" {
		t.Fatalf("identity erased by blank delta: %q %q", snap.Username, snap.Email)
	}

	log.MergeDelta(Delta{ExamID: examID, Username: "alice-2"})
	snap = log.Snapshot()
	if snap.Username != "alice-2" {
		t.Errorf("Username = %q, want alice-2", snap.Username)
	}
	if snap.Email != "alice@example.com" {
		t.Errorf("Email = %q, want unchanged", snap.Email)
	}
}

func TestCountersMatchEvidence(t *testing.T) {
	examID := uuid.New()
	log := NewSessionLog(examID, "bob", "bob@example.com")

	types := []model.ViolationType{
		model.ViolationNoFace,
		model.ViolationMultipleFace,
		model.ViolationCellPhone,
		model.ViolationProhibitedObject,
		model.ViolationCellPhone,
	}
	for _, vt := range types {
		log.MergeDelta(DeltaFor(examID, evidence(vt)))
	}

	snap := log.Snapshot()
	perType := map[model.ViolationType]int{}
	for _, shot := range snap.Screenshots {
		perType[shot.Type]++
	}

	if snap.NoFaceCount != perType[model.ViolationNoFace] ||
		snap.MultipleFaceCount != perType[model.ViolationMultipleFace] ||
		snap.CellPhoneCount != perType[model.ViolationCellPhone] ||
		snap.ProhibitedObjectCount != perType[model.ViolationProhibitedObject] {
		t.Errorf("counters diverge from evidence: %+v vs %v", snap, perType)
	}
}

func TestConcurrentMergesLoseNothing(t *testing.T) {
	examID := uuid.New()
	log := NewSessionLog(examID, "carol", "carol@example.com")

	const n = 200
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			log.MergeDelta(DeltaFor(examID, evidence(model.ViolationCellPhone)))
		}()
	}
	wg.Wait()

	snap := log.Snapshot()
	if snap.CellPhoneCount != n {
		t.Errorf("CellPhoneCount = %d, want %d", snap.CellPhoneCount, n)
	}
	if len(snap.Screenshots) != n {
		t.Errorf("len(Screenshots) = %d, want %d", len(snap.Screenshots), n)
	}
}

func TestResetClearsEverything(t *testing.T) {
	examID := uuid.New()
	log := NewSessionLog(examID, "dave", "dave@example.com")
	log.MergeDelta(DeltaFor(examID, evidence(model.ViolationProhibitedObject)))

	newExam := uuid.New()
	log.Reset(newExam, "dave", "dave@new.example.com")

	snap := log.Snapshot()
	if snap.TotalViolations != 0 {
		t.Errorf("TotalViolations = %d after reset, want 0", snap.TotalViolations)
	}
	if len(snap.Screenshots) != 0 {
		t.Errorf("screenshots survived reset: %d", len(snap.Screenshots))
	}
	if snap.ExamID != newExam {
		t.Errorf("ExamID = %s, want %s", snap.ExamID, newExam)
	}
	if snap.Email != "dave@new.example.com" {
		t.Errorf("Email = %q, want rebound value", snap.Email)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	examID := uuid.New()
	log := NewSessionLog(examID, "erin", "erin@example.com")
	log.MergeDelta(DeltaFor(examID, evidence(model.ViolationNoFace)))

	snap := log.Snapshot()
	snap.Screenshots[0].URL = "tampered"

	if log.Snapshot().Screenshots[0].URL == "tampered" {
		t.Error("snapshot shares backing array with the log")
	}
}
