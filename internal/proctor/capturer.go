package proctor

import (
	"context"
	"time"

	"github.com/invigilo/invigilo-backend/internal/model"
	"github.com/rs/zerolog"
)

// EvidenceCapturer converts the current frame into durable, referenceable
// evidence: it rasterizes the frame, uploads it to object storage and
// returns the stored reference.
type EvidenceCapturer struct {
	source   FrameSource
	uploader Uploader
	log      zerolog.Logger
	now      func() time.Time
}

// NewEvidenceCapturer creates a capturer over the given frame source and
// object storage uploader.
func NewEvidenceCapturer(source FrameSource, uploader Uploader, log zerolog.Logger) *EvidenceCapturer {
	return &EvidenceCapturer{
		source:   source,
		uploader: uploader,
		log:      log.With().Str("component", "evidence_capturer").Logger(),
		now:      time.Now,
	}
}

// Capture snapshots the current frame and uploads it, returning the evidence
// for the given violation type.
//
// A nil result is a normal, expected condition, not a fault: the frame may
// not be ready yet (camera initializing) or the upload may have failed.
// Callers must NOT count a violation when Capture returns nil: counters must
// never outpace stored evidence.
func (c *EvidenceCapturer) Capture(ctx context.Context, vtype model.ViolationType) *model.Evidence {
	frame, ok := c.source.CurrentFrame()
	if !ok || !frame.Ready || frame.Width == 0 || frame.Height == 0 {
		c.log.Debug().Str("type", string(vtype)).Msg("Frame not ready for screenshot")
		return nil
	}

	url, err := c.uploader.Upload(ctx, frame.JPEG)
	if err != nil {
		c.log.Error().Err(err).Str("type", string(vtype)).Msg("Evidence upload failed")
		return nil
	}

	return &model.Evidence{
		URL:        url,
		Type:       vtype,
		DetectedAt: c.now(),
	}
}
