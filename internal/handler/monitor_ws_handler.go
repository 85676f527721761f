package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/invigilo/invigilo-backend/internal/middleware"
	"github.com/invigilo/invigilo-backend/internal/model"
	"github.com/invigilo/invigilo-backend/internal/service"
	ws "github.com/invigilo/invigilo-backend/internal/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// An empty allowedOrigins slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// MonitorWSHandler streams live violations to a teacher watching an exam.
type MonitorWSHandler struct {
	examService    *service.ExamService
	monitorService *service.MonitorService
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewMonitorWSHandler creates a new MonitorWSHandler.
func NewMonitorWSHandler(examService *service.ExamService, monitorService *service.MonitorService, log zerolog.Logger, allowedOrigins []string) *MonitorWSHandler {
	return &MonitorWSHandler{
		examService:    examService,
		monitorService: monitorService,
		log:            log.With().Str("component", "monitor_ws_handler").Logger(),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// MonitorExam godoc
// WS /ws/v1/teacher/exams/:id/monitor?token=...
// Sends a snapshot of recorded totals, then forwards live violation deltas
// from the exam's PubSub channel until the teacher disconnects.
func (h *MonitorWSHandler) MonitorExam(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil || claims.Role != model.RoleTeacher {
		c.JSON(http.StatusForbidden, gin.H{"error": "teacher access only"})
		return
	}

	examID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid exam ID"})
		return
	}

	exam, err := h.examService.GetByID(c.Request.Context(), examID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "exam not found"})
		return
	}
	if exam.AuthorID != claims.UserID {
		c.JSON(http.StatusForbidden, gin.H{"error": "not the exam author"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	reqCtx := c.Request.Context()

	// Seed the monitor with totals recorded so far.
	if snapshot, err := h.monitorService.Snapshot(reqCtx, examID); err == nil {
		if err := ws.WriteTyped(conn, ws.SnapshotResponse{Event: ws.EventSnapshot, Data: snapshot}); err != nil {
			return
		}
	} else {
		h.log.Warn().Err(err).Str("exam_id", examID.String()).Msg("Monitor snapshot failed")
	}

	pubsub := h.monitorService.Subscribe(reqCtx, examID)
	defer pubsub.Close()
	deltas := pubsub.Channel()

	h.log.Info().Str("exam_id", examID.String()).Int("teacher_id", claims.UserID).Msg("Teacher attached to live monitor")

	h.pump(reqCtx, conn, deltas)

	h.log.Info().Str("exam_id", examID.String()).Msg("Teacher detached from live monitor")
}

// pump forwards violation deltas and answers pings on a single connection.
// The connection permits one concurrent writer, so the reader goroutine only
// parses frames; every write happens on this goroutine.
func (h *MonitorWSHandler) pump(ctx context.Context, conn *websocket.Conn, deltas <-chan *redis.Message) {
	pings := make(chan struct{}, 1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var env ws.RequestEnvelope
			if err := ws.ReadJSON(conn, &env); err != nil {
				return
			}
			if env.Action == ws.ActionPing {
				select {
				case pings <- struct{}{}:
				default:
					// A pong is already pending; coalesce.
				}
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case <-pings:
			if err := ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong}); err != nil {
				return
			}
		case msg, ok := <-deltas:
			if !ok {
				return
			}
			var payload service.ViolationMessage
			if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
				h.log.Warn().Err(err).Msg("Dropping malformed violation message")
				continue
			}
			if err := ws.WriteTyped(conn, ws.ViolationResponse{Event: ws.EventViolation, Data: payload}); err != nil {
				return
			}
		}
	}
}
