package proctor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/invigilo/invigilo-backend/internal/model"
	"github.com/rs/zerolog"
)

type stubSource struct {
	frame Frame
	ok    bool
}

func (s *stubSource) CurrentFrame() (Frame, bool) { return s.frame, s.ok }

type stubUploader struct {
	url      string
	err      error
	calls    int
	lastBody []byte
}

func (u *stubUploader) Upload(_ context.Context, image []byte) (string, error) {
	u.calls++
	u.lastBody = image
	return u.url, u.err
}

func readyFrame() Frame {
	return Frame{Width: 640, Height: 480, Ready: true, JPEG: []byte("jpegdata")}
}

func TestCaptureSuccess(t *testing.T) {
	src := &stubSource{frame: readyFrame(), ok: true}
	up := &stubUploader{url: "https://ucarecdn.com/abc/"}
	cap := NewEvidenceCapturer(src, up, zerolog.Nop())

	fixed := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	cap.now = func() time.Time { return fixed }

	ev := cap.Capture(context.Background(), model.ViolationCellPhone)
	if ev == nil {
		t.Fatal("Capture returned nil, want evidence")
	}
	if ev.URL != "https://ucarecdn.com/abc/" {
		t.Errorf("URL = %q", ev.URL)
	}
	if ev.Type != model.ViolationCellPhone {
		t.Errorf("Type = %q", ev.Type)
	}
	if !ev.DetectedAt.Equal(fixed) {
		t.Errorf("DetectedAt = %v, want %v", ev.DetectedAt, fixed)
	}
	if string(up.lastBody) != "jpegdata" {
		t.Errorf("uploaded body = %q", up.lastBody)
	}
}

func TestCaptureNilOnUnreadyFrame(t *testing.T) {
	cases := []struct {
		name  string
		frame Frame
		ok    bool
	}{
		{"no frame", Frame{}, false},
		{"not ready", Frame{Width: 640, Height: 480}, true},
		{"zero width", Frame{Height: 480, Ready: true}, true},
		{"zero height", Frame{Width: 640, Ready: true}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			up := &stubUploader{url: "https://ucarecdn.com/abc/"}
			cap := NewEvidenceCapturer(&stubSource{frame: tc.frame, ok: tc.ok}, up, zerolog.Nop())

			if ev := cap.Capture(context.Background(), model.ViolationNoFace); ev != nil {
				t.Errorf("Capture = %+v, want nil", ev)
			}
			if up.calls != 0 {
				t.Errorf("upload attempted %d times for unready frame", up.calls)
			}
		})
	}
}

func TestCaptureNilOnUploadFailure(t *testing.T) {
	src := &stubSource{frame: readyFrame(), ok: true}
	up := &stubUploader{err: errors.New("storage unreachable")}
	cap := NewEvidenceCapturer(src, up, zerolog.Nop())

	if ev := cap.Capture(context.Background(), model.ViolationMultipleFace); ev != nil {
		t.Errorf("Capture = %+v after failed upload, want nil", ev)
	}
}
