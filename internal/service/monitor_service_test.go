package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/invigilo/invigilo-backend/internal/config"
	"github.com/invigilo/invigilo-backend/internal/model"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestPublishViolationFeedsQueueAndChannel(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	svc := NewMonitorService(rdb, nil, zerolog.Nop())

	ctx := context.Background()
	examID := uuid.New()

	sub := svc.Subscribe(ctx, examID)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	msg := &ViolationMessage{
		ExamID:        examID.String(),
		Email:         "alice@example.com",
		Username:      "alice",
		Type:          model.ViolationCellPhone,
		ScreenshotURL: "https://ucarecdn.com/x/",
		DetectedAt:    time.Now().Unix(),
	}
	if err := svc.PublishViolation(ctx, msg); err != nil {
		t.Fatalf("PublishViolation: %v", err)
	}

	// Live path: the subscriber sees the delta.
	select {
	case m := <-sub.Channel():
		var got ViolationMessage
		if err := json.Unmarshal([]byte(m.Payload), &got); err != nil {
			t.Fatalf("unmarshal payload: %v", err)
		}
		if got.Email != msg.Email || got.Type != model.ViolationCellPhone {
			t.Errorf("received %+v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("no message on the monitor channel")
	}

	// Durable path: the persist queue holds the same message.
	queued, err := mr.List(config.WorkerKey.PersistViolationsQueue)
	if err != nil {
		t.Fatalf("read queue: %v", err)
	}
	if len(queued) != 1 {
		t.Fatalf("queue length = %d, want 1", len(queued))
	}
	var persisted ViolationMessage
	if err := json.Unmarshal([]byte(queued[0]), &persisted); err != nil {
		t.Fatalf("unmarshal queued: %v", err)
	}
	if persisted.ExamID != examID.String() {
		t.Errorf("queued exam_id = %q", persisted.ExamID)
	}
}

func TestPublishViolationIsolatedPerExam(t *testing.T) {
	rdb := newTestRedis(t)
	svc := NewMonitorService(rdb, nil, zerolog.Nop())

	ctx := context.Background()
	watched := uuid.New()
	other := uuid.New()

	sub := svc.Subscribe(ctx, watched)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	if err := svc.PublishViolation(ctx, &ViolationMessage{
		ExamID: other.String(),
		Email:  "bob@example.com",
		Type:   model.ViolationNoFace,
	}); err != nil {
		t.Fatalf("PublishViolation: %v", err)
	}

	select {
	case m := <-sub.Channel():
		t.Fatalf("cross-exam leak: %s", m.Payload)
	case <-time.After(100 * time.Millisecond):
	}
}
