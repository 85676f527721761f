package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/invigilo/invigilo-backend/internal/model"
	"github.com/invigilo/invigilo-backend/internal/service"
	ws "github.com/invigilo/invigilo-backend/internal/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// startPumpServer runs the monitor pump behind a real WebSocket upgrade and
// returns a connected client. The deltas channel feeds the pump directly.
func startPumpServer(t *testing.T, deltas chan *redis.Message) *websocket.Conn {
	t.Helper()

	h := NewMonitorWSHandler(nil, nil, zerolog.Nop(), nil)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := h.upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		h.pump(r.Context(), conn, deltas)
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestMonitorPumpInterleavesPingsAndDeltas(t *testing.T) {
	const deltaCount = 100

	deltas := make(chan *redis.Message, deltaCount)
	conn := startPumpServer(t, deltas)

	// Flood pings from one goroutine while deltas stream from another, so
	// pong and violation writes race for the connection.
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			if err := conn.WriteJSON(ws.RequestEnvelope{Action: ws.ActionPing}); err != nil {
				return
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < deltaCount; i++ {
			payload, _ := json.Marshal(service.ViolationMessage{
				ExamID:     "11111111-2222-3333-4444-555555555555",
				Email:      "student@example.com",
				Username:   "Student",
				Type:       model.ViolationCellPhone,
				DetectedAt: time.Now().Unix(),
			})
			deltas <- &redis.Message{Payload: string(payload)}
		}
	}()

	var violations, pongs int
	deadline := time.Now().Add(10 * time.Second)
	for violations < deltaCount {
		conn.SetReadDeadline(deadline)
		var msg struct {
			Event ws.Event                 `json:"event"`
			Data  service.ViolationMessage `json:"data"`
		}
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read after %d violations, %d pongs: %v", violations, pongs, err)
		}
		switch msg.Event {
		case ws.EventViolation:
			if msg.Data.Type != model.ViolationCellPhone {
				t.Fatalf("violation type = %q, want %q", msg.Data.Type, model.ViolationCellPhone)
			}
			violations++
		case ws.EventPong:
			pongs++
		default:
			t.Fatalf("unexpected event %q", msg.Event)
		}
	}
	wg.Wait()

	if pongs == 0 {
		t.Fatal("expected at least one pong interleaved with the deltas")
	}
}

func TestMonitorPumpDropsMalformedDelta(t *testing.T) {
	deltas := make(chan *redis.Message, 2)
	conn := startPumpServer(t, deltas)

	deltas <- &redis.Message{Payload: "{not json"}
	good, _ := json.Marshal(service.ViolationMessage{
		ExamID: "11111111-2222-3333-4444-555555555555",
		Email:  "student@example.com",
		Type:   model.ViolationNoFace,
	})
	deltas <- &redis.Message{Payload: string(good)}

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg struct {
		Event ws.Event                 `json:"event"`
		Data  service.ViolationMessage `json:"data"`
	}
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	if msg.Event != ws.EventViolation || msg.Data.Type != model.ViolationNoFace {
		t.Fatalf("got event %q type %q, want the well-formed delta only", msg.Event, msg.Data.Type)
	}
}
