package session

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/invigilo/invigilo-backend/internal/model"
	"github.com/rs/zerolog"
)

func testQuestions(n int) []model.Question {
	qs := make([]model.Question, n)
	for i := range qs {
		qs[i] = model.Question{
			ID:       uuid.New(),
			OrderNum: i,
			Options: []model.Option{
				{ID: "a", OptionText: "A", IsCorrect: true},
				{ID: "b", OptionText: "B"},
			},
		}
	}
	return qs
}

func newTestAttempt(durationMinutes int) *Attempt {
	return NewAttempt(uuid.New(), testQuestions(3), durationMinutes, zerolog.Nop())
}

// tickTo drains the countdown until remaining seconds reach target.
func tickTo(a *Attempt, target int) {
	for a.Snapshot().RemainingSeconds > target {
		a.Tick()
	}
}

func TestPhaseThresholdsFireOnce(t *testing.T) {
	a := newTestAttempt(6) // 360s, crosses warning at 300 and critical at 60

	var mu sync.Mutex
	fired := map[Phase]int{}
	remAt := map[Phase]int{}
	a.OnPhaseChange(func(p Phase, rem int) {
		mu.Lock()
		fired[p]++
		remAt[p] = rem
		mu.Unlock()
	})
	a.OnFinish(func(FinishReason) {})

	tickTo(a, 0)

	if fired[PhaseWarning] != 1 {
		t.Errorf("warning fired %d times, want 1", fired[PhaseWarning])
	}
	if remAt[PhaseWarning] != 300 {
		t.Errorf("warning fired at %ds remaining, want 300", remAt[PhaseWarning])
	}
	if fired[PhaseCritical] != 1 {
		t.Errorf("critical fired %d times, want 1", fired[PhaseCritical])
	}
	if remAt[PhaseCritical] != 60 {
		t.Errorf("critical fired at %ds remaining, want 60", remAt[PhaseCritical])
	}
	if fired[PhaseExpired] != 1 {
		t.Errorf("expired fired %d times, want 1", fired[PhaseExpired])
	}
}

func TestShortExamSkipsStraightToCritical(t *testing.T) {
	a := NewAttempt(uuid.New(), testQuestions(1), 1, zerolog.Nop()) // 60s

	fired := map[Phase]int{}
	a.OnPhaseChange(func(p Phase, _ int) { fired[p]++ })
	a.OnFinish(func(FinishReason) {})

	a.Tick() // 59s, below both thresholds at once

	if fired[PhaseWarning] != 0 {
		t.Errorf("warning fired on a sub-minute clock")
	}
	if fired[PhaseCritical] != 1 {
		t.Errorf("critical fired %d times, want 1", fired[PhaseCritical])
	}
}

func TestExpiryTriggersFinishExactlyOnce(t *testing.T) {
	a := newTestAttempt(1)

	var mu sync.Mutex
	finishes := 0
	var reason FinishReason
	a.OnFinish(func(r FinishReason) {
		mu.Lock()
		finishes++
		reason = r
		mu.Unlock()
	})

	tickTo(a, 0)
	a.Tick() // extra ticks after expiry must not re-fire
	a.Tick()

	if finishes != 1 {
		t.Fatalf("finish handler ran %d times, want 1", finishes)
	}
	if reason != FinishExpired {
		t.Errorf("reason = %q, want %q", reason, FinishExpired)
	}
}

func TestManualFinishRacingExpiryRunsOnce(t *testing.T) {
	a := newTestAttempt(1)

	var mu sync.Mutex
	finishes := 0
	a.OnFinish(func(FinishReason) {
		mu.Lock()
		finishes++
		mu.Unlock()
	})

	tickTo(a, 1)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); a.Tick() }() // expiry path
	go func() { defer wg.Done(); a.Finish() }() // manual path
	wg.Wait()

	if finishes != 1 {
		t.Errorf("finish handler ran %d times under race, want 1", finishes)
	}
}

func TestNavigationClampsAtBounds(t *testing.T) {
	a := newTestAttempt(30)

	a.Previous()
	if got := a.Snapshot().QuestionIndex; got != 0 {
		t.Errorf("Previous at first question moved to %d", got)
	}

	a.Next()
	a.Next()
	a.Next() // beyond last
	if got := a.Snapshot().QuestionIndex; got != 2 {
		t.Errorf("index = %d after walking past the end, want 2", got)
	}

	a.Previous()
	if got := a.Snapshot().QuestionIndex; got != 1 {
		t.Errorf("index = %d after Previous, want 1", got)
	}
}

func TestSelectAnswerDoesNotAdvance(t *testing.T) {
	a := newTestAttempt(30)

	a.SelectAnswer("b")
	st := a.Snapshot()
	if st.QuestionIndex != 0 {
		t.Errorf("SelectAnswer advanced cursor to %d", st.QuestionIndex)
	}
	if st.Answers[a.questions[0].ID] != "b" {
		t.Errorf("answer not recorded: %v", st.Answers)
	}

	// Re-selecting overwrites.
	a.SelectAnswer("a")
	if got := a.Snapshot().Answers[a.questions[0].ID]; got != "a" {
		t.Errorf("answer = %q after reselect, want a", got)
	}
}

func TestMutationsRejectedAfterExpiry(t *testing.T) {
	a := newTestAttempt(1)
	a.OnFinish(func(FinishReason) {})
	a.SelectAnswer("a")
	tickTo(a, 0)

	a.Next()
	a.SelectAnswer("b")
	a.SetCodingAnswer("print(1)", "python")

	st := a.Snapshot()
	if st.QuestionIndex != 0 {
		t.Errorf("navigation accepted after expiry")
	}
	if st.Answers[a.questions[0].ID] != "a" {
		t.Errorf("answer mutated after expiry: %v", st.Answers)
	}
	if st.CodingAnswer != nil {
		t.Errorf("coding answer accepted after expiry")
	}
}

func TestAutoFailSharesOnceGuard(t *testing.T) {
	a := newTestAttempt(30)

	var mu sync.Mutex
	var reasons []FinishReason
	a.OnFinish(func(r FinishReason) {
		mu.Lock()
		reasons = append(reasons, r)
		mu.Unlock()
	})

	a.AutoFail()
	a.Finish()

	if len(reasons) != 1 || reasons[0] != FinishAutoFailed {
		t.Errorf("reasons = %v, want exactly [auto_failed]", reasons)
	}
	if got := a.Snapshot().Status; got != StatusAutoFailed {
		t.Errorf("status = %q, want %q", got, StatusAutoFailed)
	}

	// Submission success never hides the auto-fail.
	a.MarkSubmitted()
	if got := a.Snapshot().Status; got != StatusAutoFailed {
		t.Errorf("status = %q after MarkSubmitted, want %q", got, StatusAutoFailed)
	}
}

func TestMarkSubmittingPreservesState(t *testing.T) {
	a := newTestAttempt(30)
	a.OnFinish(func(FinishReason) {})
	a.SelectAnswer("a")
	a.Finish()

	a.MarkSubmitting()
	st := a.Snapshot()
	if st.Status != StatusSubmitting {
		t.Errorf("status = %q, want %q", st.Status, StatusSubmitting)
	}
	if st.Answers[a.questions[0].ID] != "a" {
		t.Errorf("answers lost across failed persistence: %v", st.Answers)
	}
}
