package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/invigilo/invigilo-backend/internal/model"
	"github.com/invigilo/invigilo-backend/internal/proctor"
	"github.com/rs/zerolog"
)

// ClassifierLoader loads the detection model once, before sampling starts.
type ClassifierLoader interface {
	Load(ctx context.Context) (proctor.Classifier, error)
}

// ViolationSink receives live violation deltas for monitoring. Best effort;
// implementations must not block the pipeline.
type ViolationSink interface {
	PublishViolation(ctx context.Context, delta proctor.Delta)
}

// ErrProctoringUnavailable is surfaced when the detection model fails to
// load. The exam continues without proctoring (fail-open): blocking the
// student over a model download hurts more than a gap in coverage, and the
// missing log is visible to the reviewing teacher either way.
var ErrProctoringUnavailable = errors.New("proctoring unavailable: detection model failed to load")

// Config wires one exam attempt's runtime.
type Config struct {
	Exam      model.Exam
	Questions []model.Question

	Username      string
	Email         string
	AttemptNumber int

	Source   proctor.FrameSource
	Loader   ClassifierLoader
	Uploader proctor.Uploader

	Submissions SubmissionAPI
	CheatLogs   CheatingLogAPI
	Monitor     ViolationSink // optional

	// SampleInterval overrides the detector default when > 0.
	SampleInterval time.Duration

	// MaxViolations auto-fails the attempt once total violations reach the
	// limit. Zero disables the cap.
	MaxViolations int

	Log zerolog.Logger
}

// Runner owns everything alive during one exam attempt: the session log, the
// violation detector, the countdown state machine and the reconciler. Start
// returns a single stop handle that tears all of it down; no timer or
// sampling loop outlives the attempt.
type Runner struct {
	cfg        Config
	sessionLog *proctor.SessionLog
	attempt    *Attempt
	reconciler *Reconciler
	log        zerolog.Logger

	onResult     func(*Result, error)
	onPhase      PhaseHandler
	onViolation  proctor.ViolationHandler
	proctorDown  bool
	submitCtx    context.Context
	submitCancel context.CancelFunc

	mu      sync.Mutex
	stopped bool
	stops   []func()
}

// NewRunner creates an attempt runtime. The session log starts zeroed and
// bound to the exam and student identity.
func NewRunner(cfg Config) *Runner {
	log := cfg.Log.With().Str("component", "session_runner").Str("exam_id", cfg.Exam.ID.String()).Logger()
	return &Runner{
		cfg:        cfg,
		sessionLog: proctor.NewSessionLog(cfg.Exam.ID, cfg.Username, cfg.Email),
		attempt:    NewAttempt(cfg.Exam.ID, cfg.Questions, cfg.Exam.DurationMinutes, cfg.Log),
		reconciler: NewReconciler(cfg.Submissions, cfg.CheatLogs, cfg.Log),
		log:        log,
	}
}

// OnResult registers the callback invoked with the reconciliation outcome.
// Call before Start.
func (r *Runner) OnResult(fn func(*Result, error)) { r.onResult = fn }

// OnPhaseChange registers the countdown threshold handler. Call before Start.
func (r *Runner) OnPhaseChange(fn PhaseHandler) { r.onPhase = fn }

// OnViolation registers a handler for every recorded violation (user-facing
// warning popups). Call before Start.
func (r *Runner) OnViolation(fn proctor.ViolationHandler) { r.onViolation = fn }

// Attempt exposes the navigation state machine for user-driven actions.
func (r *Runner) Attempt() *Attempt { return r.attempt }

// ProctoringActive reports whether the detection pipeline is running. False
// after a model load failure (the exam itself continues).
func (r *Runner) ProctoringActive() bool { return !r.proctorDown }

// SessionLog exposes the violation aggregate (read via Snapshot only).
func (r *Runner) SessionLog() *proctor.SessionLog { return r.sessionLog }

// Start loads the classifier, starts the detection loop and the countdown,
// and returns the cleanup handle. A classifier load failure returns
// ErrProctoringUnavailable alongside a valid stop handle: the countdown is
// already running and the exam proceeds unproctored.
func (r *Runner) Start(ctx context.Context) (stop func(), err error) {
	// Submissions may outlive the start context by a grace period: a
	// time-expired attempt must still reach the server.
	r.submitCtx, r.submitCancel = context.WithCancel(context.WithoutCancel(ctx))

	r.attempt.OnPhaseChange(r.onPhase)
	r.attempt.OnFinish(func(reason FinishReason) {
		go r.submitAndReport(r.submitCtx, reason)
	})

	timerStop := r.attempt.Start(ctx)
	r.addStop(timerStop)

	classifier, loadErr := r.cfg.Loader.Load(ctx)
	if loadErr != nil {
		r.log.Error().Err(loadErr).Msg("Detection model load failed, exam continues unproctored")
		r.proctorDown = true
		return r.stopAll, fmt.Errorf("%w: %v", ErrProctoringUnavailable, loadErr)
	}

	capturer := proctor.NewEvidenceCapturer(r.cfg.Source, r.cfg.Uploader, r.cfg.Log)
	detector := proctor.NewDetector(r.cfg.Exam.ID, r.cfg.Source, classifier, capturer, r.sessionLog, r.cfg.Log)
	if r.cfg.SampleInterval > 0 {
		detector.SetInterval(r.cfg.SampleInterval)
	}
	detector.OnViolation(func(vtype model.ViolationType, ev model.Evidence) {
		r.handleViolation(ctx, vtype, ev)
	})

	detectorStop := detector.Start(ctx)
	r.addStop(detectorStop)

	return r.stopAll, nil
}

// handleViolation fans a recorded violation out to the live monitor and the
// user-facing handler, and enforces the auto-fail cap.
func (r *Runner) handleViolation(ctx context.Context, vtype model.ViolationType, ev model.Evidence) {
	if r.cfg.Monitor != nil {
		r.cfg.Monitor.PublishViolation(ctx, proctor.DeltaFor(r.cfg.Exam.ID, ev))
	}
	if r.onViolation != nil {
		r.onViolation(vtype, ev)
	}

	if r.cfg.MaxViolations > 0 {
		if snap := r.sessionLog.Snapshot(); snap.TotalViolations >= r.cfg.MaxViolations {
			r.log.Warn().Int("total", snap.TotalViolations).Msg("Violation cap reached, auto-failing attempt")
			r.attempt.AutoFail()
		}
	}
}

// Resubmit retries reconciliation after a failed submission. Answers and the
// session log are untouched by the failure, so the payload is identical.
func (r *Runner) Resubmit(ctx context.Context) (*Result, error) {
	return r.submit(ctx, r.lastReason())
}

func (r *Runner) lastReason() FinishReason {
	if r.attempt.Snapshot().Status == StatusAutoFailed {
		return FinishAutoFailed
	}
	return FinishManual
}

func (r *Runner) submitAndReport(ctx context.Context, reason FinishReason) {
	res, err := r.submit(ctx, reason)
	if r.onResult != nil {
		r.onResult(res, err)
	}
}

// submit runs the reconciler once. On failure the attempt stays in
// submitting and all local state is preserved for an explicit retry; a
// success discards the attempt by stopping every loop.
func (r *Runner) submit(ctx context.Context, reason FinishReason) (*Result, error) {
	state := r.attempt.Snapshot()
	logSnap := r.sessionLog.Snapshot()

	status := model.SubmissionStatusSubmitted
	submitReason := ""
	if reason == FinishAutoFailed {
		status = model.SubmissionStatusAutoFailed
		submitReason = "Violation limit exceeded during proctoring"
	}

	res, err := r.reconciler.Submit(ctx, state, r.cfg.Questions, logSnap, status, r.cfg.AttemptNumber, submitReason)
	if err != nil {
		r.attempt.MarkSubmitting()
		return nil, err
	}

	r.attempt.MarkSubmitted()
	r.stopAll()
	return res, nil
}

func (r *Runner) addStop(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stops = append(r.stops, fn)
}

// stopAll cancels the detection loop and the countdown. Idempotent.
func (r *Runner) stopAll() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	stops := r.stops
	r.mu.Unlock()

	for _, fn := range stops {
		fn()
	}
	if r.submitCancel != nil {
		r.submitCancel()
	}
}
