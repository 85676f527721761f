package proctor

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/invigilo/invigilo-backend/internal/model"
	"github.com/rs/zerolog"
)

// DefaultSampleInterval is the default spacing between detection ticks.
// Started at 1s, widened to 2s to keep inference load manageable.
const DefaultSampleInterval = 2 * time.Second

// Classifier labels that map onto violation types.
const (
	classPerson    = "person"
	classCellPhone = "cell phone"
	classBook      = "book"
	classLaptop    = "laptop"
)

// DeltaSink receives merged violation deltas. Satisfied by *SessionLog.
type DeltaSink interface {
	MergeDelta(Delta)
}

// ViolationHandler is invoked after a violation has been captured and merged
// into the sink. Used for user-facing warnings and live monitor publishing.
type ViolationHandler func(vtype model.ViolationType, ev model.Evidence)

// Detector runs periodic inference over the live frame source and turns raw
// detections into counted, evidenced violations.
//
// Sampling ticks are best-effort: a tick is skipped when no frame is ready or
// when the previous inference is still outstanding; inferences never overlap.
// Evidence capture and upload run asynchronously so a slow upload never
// delays the next sample.
type Detector struct {
	examID      uuid.UUID
	source      FrameSource
	classifier  Classifier
	capturer    *EvidenceCapturer
	sink        DeltaSink
	onViolation ViolationHandler
	interval    time.Duration
	log         zerolog.Logger

	inFlight atomic.Bool
}

// NewDetector creates a detector for one exam attempt.
func NewDetector(
	examID uuid.UUID,
	source FrameSource,
	classifier Classifier,
	capturer *EvidenceCapturer,
	sink DeltaSink,
	log zerolog.Logger,
) *Detector {
	return &Detector{
		examID:     examID,
		source:     source,
		classifier: classifier,
		capturer:   capturer,
		sink:       sink,
		interval:   DefaultSampleInterval,
		log:        log.With().Str("component", "violation_detector").Logger(),
	}
}

// SetInterval overrides the sampling interval. Call before Start.
func (d *Detector) SetInterval(interval time.Duration) {
	if interval > 0 {
		d.interval = interval
	}
}

// OnViolation registers a handler called for every captured violation.
// Call before Start.
func (d *Detector) OnViolation(fn ViolationHandler) {
	d.onViolation = fn
}

// Start launches the sampling loop and returns a stop handle. Stopping
// cancels the ticker and waits for in-flight inference and captures, so no
// delta is merged into a discarded session after stop returns.
func (d *Detector) Start(ctx context.Context) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(d.interval)
		defer ticker.Stop()

		d.log.Info().Dur("interval", d.interval).Msg("Detection sampling started")
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				d.sample(ctx, &wg)
			}
		}
	}()

	return func() {
		cancel()
		wg.Wait()
	}
}

// sample runs one detection tick. Skips silently when the previous inference
// is still running or no decodable frame is available.
func (d *Detector) sample(ctx context.Context, wg *sync.WaitGroup) {
	if !d.inFlight.CompareAndSwap(false, true) {
		d.log.Debug().Msg("Inference still outstanding, skipping tick")
		return
	}

	frame, ok := d.source.CurrentFrame()
	if !ok || !frame.Ready {
		d.inFlight.Store(false)
		return
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer d.inFlight.Store(false)

		detections, err := d.classifier.Detect(ctx, frame)
		if err != nil {
			// Single-tick inference failures never stop the loop.
			d.log.Error().Err(err).Msg("Inference failed")
			return
		}

		for _, vtype := range MapDetections(detections) {
			wg.Add(1)
			go func(vt model.ViolationType) {
				defer wg.Done()
				d.handleViolation(ctx, vt)
			}(vtype)
		}
	}()
}

// handleViolation captures evidence for one violation and, only on a
// successful capture, merges the counter increment and evidence into the
// sink. A failed capture increments nothing.
func (d *Detector) handleViolation(ctx context.Context, vtype model.ViolationType) {
	if ctx.Err() != nil {
		return
	}

	ev := d.capturer.Capture(ctx, vtype)
	if ev == nil {
		return
	}
	if ctx.Err() != nil {
		// Session was torn down while the upload was in flight.
		return
	}

	d.sink.MergeDelta(DeltaFor(d.examID, *ev))

	if d.onViolation != nil {
		d.onViolation(vtype, *ev)
	}
}

// MapDetections applies the violation mapping rules to one frame's
// detections:
//
//   - each phone-like detection emits cellPhone
//   - each book- or laptop-like detection emits prohibitedObject
//   - zero person detections emit noFace; more than one emits multipleFace
//
// A single frame can therefore emit several violations in one tick. There is
// no episode debouncing: a sustained violation emits on every qualifying
// sample.
func MapDetections(detections []Detection) []model.ViolationType {
	var out []model.ViolationType
	persons := 0

	for _, det := range detections {
		switch det.Class {
		case classCellPhone:
			out = append(out, model.ViolationCellPhone)
		case classBook, classLaptop:
			out = append(out, model.ViolationProhibitedObject)
		case classPerson:
			persons++
		}
	}

	if persons == 0 {
		out = append(out, model.ViolationNoFace)
	} else if persons > 1 {
		out = append(out, model.ViolationMultipleFace)
	}

	return out
}
