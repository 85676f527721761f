// Package session drives one in-progress exam attempt: the countdown and
// question-navigation state machine, the reconciliation of answers and
// violation logs into a durable submission, and the runtime that wires the
// proctoring pipeline to both.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/invigilo/invigilo-backend/internal/model"
	"github.com/rs/zerolog"
)

// AttemptStatus enumerates the lifecycle of an attempt.
type AttemptStatus string

const (
	StatusInProgress AttemptStatus = "inProgress"
	StatusSubmitting AttemptStatus = "submitting"
	StatusSubmitted  AttemptStatus = "submitted"
	StatusAutoFailed AttemptStatus = "autoFailed"
)

// Phase is the countdown phase. Transitions are monotonic:
// Running → Warning (≤5min) → Critical (≤1min) → Expired.
type Phase int

const (
	PhaseRunning Phase = iota
	PhaseWarning
	PhaseCritical
	PhaseExpired
)

const (
	warningThresholdSeconds  = 300
	criticalThresholdSeconds = 60
)

// PhaseHandler is notified exactly once per threshold crossing.
type PhaseHandler func(phase Phase, remainingSeconds int)

// FinishHandler performs the final submission. Invoked exactly once per
// attempt, from either timer expiry or a manual finish, never both.
type FinishHandler func(reason FinishReason)

// FinishReason tells the finish handler why the attempt ended.
type FinishReason string

const (
	FinishManual     FinishReason = "manual"
	FinishExpired    FinishReason = "time_expired"
	FinishAutoFailed FinishReason = "auto_failed"
)

// State is a read-only snapshot of the attempt.
type State struct {
	ExamID           uuid.UUID
	QuestionIndex    int
	Answers          map[uuid.UUID]string
	CodingAnswer     *model.CodingAnswer
	RemainingSeconds int
	Status           AttemptStatus
	Phase            Phase
}

// Attempt is the navigation and countdown state machine for one exam
// attempt. All mutation goes through its methods; the embedded mutex makes
// the timer tick and user-driven navigation safe to interleave.
type Attempt struct {
	mu sync.Mutex

	examID    uuid.UUID
	questions []model.Question

	questionIndex int
	answers       map[uuid.UUID]string
	codingAnswer  *model.CodingAnswer

	remaining int
	status    AttemptStatus
	phase     Phase

	onPhase  PhaseHandler
	onFinish FinishHandler

	finishOnce sync.Once
	log        zerolog.Logger
}

// NewAttempt creates a running attempt with the full exam duration on the
// clock and the cursor on the first question.
func NewAttempt(examID uuid.UUID, questions []model.Question, durationMinutes int, log zerolog.Logger) *Attempt {
	return &Attempt{
		examID:    examID,
		questions: questions,
		answers:   make(map[uuid.UUID]string),
		remaining: durationMinutes * 60,
		status:    StatusInProgress,
		phase:     PhaseRunning,
		log:       log.With().Str("component", "exam_attempt").Str("exam_id", examID.String()).Logger(),
	}
}

// OnPhaseChange registers the threshold notification handler. Call before Start.
func (a *Attempt) OnPhaseChange(fn PhaseHandler) { a.onPhase = fn }

// OnFinish registers the submission trigger. Call before Start.
func (a *Attempt) OnFinish(fn FinishHandler) { a.onFinish = fn }

// Start launches the once-per-second countdown and returns a stop handle.
// Stopping halts the ticker without finishing the attempt (used when the
// student navigates away).
func (a *Attempt) Start(ctx context.Context) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if a.Tick() {
					return
				}
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}
}

// Tick advances the countdown by one second and returns true once the
// attempt has expired. Crossing the warning and critical thresholds fires
// the phase handler exactly once each; expiry triggers the finish handler
// exactly once even if a manual finish races it.
func (a *Attempt) Tick() (expired bool) {
	a.mu.Lock()

	if a.status != StatusInProgress {
		a.mu.Unlock()
		return a.phase == PhaseExpired
	}

	if a.remaining > 0 {
		a.remaining--
	}

	var notify *Phase
	switch {
	case a.remaining <= 0 && a.phase != PhaseExpired:
		a.phase = PhaseExpired
		p := PhaseExpired
		notify = &p
	case a.remaining <= criticalThresholdSeconds && a.phase < PhaseCritical:
		a.phase = PhaseCritical
		p := PhaseCritical
		notify = &p
	case a.remaining <= warningThresholdSeconds && a.phase < PhaseWarning:
		a.phase = PhaseWarning
		p := PhaseWarning
		notify = &p
	}

	remaining := a.remaining
	expired = a.phase == PhaseExpired
	a.mu.Unlock()

	if notify != nil && a.onPhase != nil {
		a.onPhase(*notify, remaining)
	}

	if expired {
		a.log.Info().Msg("Time is up, forcing submission")
		a.finish(FinishExpired)
	}
	return expired
}

// Next moves the cursor forward. No-op at the last question or once expired.
func (a *Attempt) Next() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.phase == PhaseExpired || a.status != StatusInProgress {
		return
	}
	if a.questionIndex < len(a.questions)-1 {
		a.questionIndex++
	}
}

// Previous moves the cursor back. No-op at the first question or once expired.
func (a *Attempt) Previous() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.phase == PhaseExpired || a.status != StatusInProgress {
		return
	}
	if a.questionIndex > 0 {
		a.questionIndex--
	}
}

// SelectAnswer records the selected option for the current question. It does
// not advance the cursor. Rejected once the attempt is no longer in progress.
func (a *Attempt) SelectAnswer(optionID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.phase == PhaseExpired || a.status != StatusInProgress {
		return
	}
	if a.questionIndex >= 0 && a.questionIndex < len(a.questions) {
		a.answers[a.questions[a.questionIndex].ID] = optionID
	}
}

// SetCodingAnswer records the optional coding answer for the attempt.
func (a *Attempt) SetCodingAnswer(code, language string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.phase == PhaseExpired || a.status != StatusInProgress {
		return
	}
	a.codingAnswer = &model.CodingAnswer{Code: code, Language: language}
}

// Finish ends the attempt manually. Safe to call concurrently with timer
// expiry: the finish handler still runs exactly once.
func (a *Attempt) Finish() {
	a.finish(FinishManual)
}

// AutoFail terminates the attempt because the violation cap was reached.
// Uses the same once-guard as Finish and timer expiry.
func (a *Attempt) AutoFail() {
	a.finishOnce.Do(func() {
		a.mu.Lock()
		a.status = StatusAutoFailed
		a.mu.Unlock()

		if a.onFinish != nil {
			a.onFinish(FinishAutoFailed)
		}
	})
}

func (a *Attempt) finish(reason FinishReason) {
	a.finishOnce.Do(func() {
		a.mu.Lock()
		a.status = StatusSubmitting
		a.mu.Unlock()

		if a.onFinish != nil {
			a.onFinish(reason)
		}
	})
}

// MarkSubmitted records a successful submission. An auto-failed attempt
// keeps its status; the failure is the fact of record.
func (a *Attempt) MarkSubmitted() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.status == StatusAutoFailed {
		return
	}
	a.status = StatusSubmitted
}

// MarkSubmitting restores the submitting state after a failed persistence
// attempt so answers and the violation log survive for a retry.
func (a *Attempt) MarkSubmitting() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.status == StatusAutoFailed {
		return
	}
	a.status = StatusSubmitting
}

// Snapshot returns a read-only copy of the attempt state.
func (a *Attempt) Snapshot() State {
	a.mu.Lock()
	defer a.mu.Unlock()

	answers := make(map[uuid.UUID]string, len(a.answers))
	for k, v := range a.answers {
		answers[k] = v
	}

	var coding *model.CodingAnswer
	if a.codingAnswer != nil {
		c := *a.codingAnswer
		coding = &c
	}

	return State{
		ExamID:           a.examID,
		QuestionIndex:    a.questionIndex,
		Answers:          answers,
		CodingAnswer:     coding,
		RemainingSeconds: a.remaining,
		Status:           a.status,
		Phase:            a.phase,
	}
}

// Questions returns the attempt's question list (read-only by convention).
func (a *Attempt) Questions() []model.Question {
	return a.questions
}
