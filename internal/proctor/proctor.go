// Package proctor implements the webcam proctoring pipeline for a single
// exam attempt: periodic frame classification, violation mapping, evidence
// capture and the session-scoped violation log.
//
// The ML classifier, the video frame source and the screenshot storage are
// external collaborators consumed through the interfaces below.
package proctor

import "context"

// Frame is one decodable video frame as reported by the frame source.
type Frame struct {
	Width  int
	Height int
	Ready  bool
	JPEG   []byte
}

// FrameSource exposes the current webcam frame. The second return value is
// false when no decodable frame is available yet (camera initializing).
type FrameSource interface {
	CurrentFrame() (Frame, bool)
}

// Detection is a single labeled object found in a frame.
type Detection struct {
	Class string `json:"class"`
}

// Classifier runs object detection over a frame. Implementations wrap the
// actual ML model; transient inference failures surface as errors.
type Classifier interface {
	Detect(ctx context.Context, frame Frame) ([]Detection, error)
}

// Uploader stores an encoded screenshot in durable object storage and
// returns its reference URL.
type Uploader interface {
	Upload(ctx context.Context, image []byte) (string, error)
}
