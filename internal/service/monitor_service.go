package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/invigilo/invigilo-backend/internal/config"
	"github.com/invigilo/invigilo-backend/internal/model"
	"github.com/invigilo/invigilo-backend/internal/repository"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ViolationMessage is the wire format for one live violation. It travels
// twice: over the exam's PubSub channel to monitoring teachers, and through
// the persist queue to the batch worker.
type ViolationMessage struct {
	ExamID        string              `json:"exam_id"`
	Email         string              `json:"email"`
	Username      string              `json:"username"`
	Type          model.ViolationType `json:"type"`
	ScreenshotURL string              `json:"screenshot_url,omitempty"`
	DetectedAt    int64               `json:"detected_at"`
}

// MonitorService fans live violations out to watching teachers and feeds the
// persistence queue.
type MonitorService struct {
	rdb          *redis.Client
	cheatLogRepo *repository.CheatingLogRepository
	log          zerolog.Logger
}

// NewMonitorService creates a new MonitorService.
func NewMonitorService(rdb *redis.Client, cheatLogRepo *repository.CheatingLogRepository, log zerolog.Logger) *MonitorService {
	return &MonitorService{
		rdb:          rdb,
		cheatLogRepo: cheatLogRepo,
		log:          log.With().Str("component", "monitor_service").Logger(),
	}
}

// PublishViolation pushes one violation to the live channel and the persist
// queue in a single pipeline round trip. The publish is best effort; the
// queue push is the durable path.
func (s *MonitorService) PublishViolation(ctx context.Context, msg *ViolationMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal violation: %w", err)
	}

	channel := config.CacheKey.ExamMonitorChannel(msg.ExamID)

	pipe := s.rdb.Pipeline()
	pipe.Publish(ctx, channel, data)
	pipe.RPush(ctx, config.WorkerKey.PersistViolationsQueue, data)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish violation: %w", err)
	}
	return nil
}

// Subscribe opens a PubSub subscription on the exam's violation channel.
// The caller owns the subscription and must Close it.
func (s *MonitorService) Subscribe(ctx context.Context, examID uuid.UUID) *redis.PubSub {
	return s.rdb.Subscribe(ctx, config.CacheKey.ExamMonitorChannel(examID.String()))
}

// Snapshot returns total recorded violations per student email, used to
// seed a monitor session before live deltas start arriving.
func (s *MonitorService) Snapshot(ctx context.Context, examID uuid.UUID) (map[string]int64, error) {
	return s.cheatLogRepo.ViolationCounts(ctx, examID)
}
