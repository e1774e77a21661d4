// Package bridge exposes the live session over a WebSocket so companion
// surfaces (a phone on the scale, a kitchen tablet) can mirror the brew.
//
// The bridge is a SessionObserver: the engine pushes events into it and
// it fans them out to every connected client as JSON text frames with a
// {type, ts, data} envelope. New clients get a "state_init" snapshot on
// connect so they never join blind. Slow clients are dropped when their
// send buffer fills; one stuck phone must not stall the tick loop.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/chu3/brewpilot/internal/brew"
	"github.com/chu3/brewpilot/internal/domain"
	"github.com/chu3/brewpilot/internal/logger"
	"github.com/chu3/brewpilot/internal/schedule"
)

// Compile-time interface check.
var _ domain.SessionObserver = (*Bridge)(nil)

const (
	writeWait  = 5 * time.Second
	pongWait   = 30 * time.Second
	pingPeriod = 20 * time.Second
	sendBuf    = 32
)

// envelope is the wire format for every frame.
type envelope struct {
	Type string      `json:"type"`
	Ts   time.Time   `json:"ts"`
	Data interface{} `json:"data,omitempty"`
}

type wireSnapshot struct {
	Phase       string  `json:"phase"`
	SessionID   string  `json:"session_id,omitempty"`
	MethodID    string  `json:"method_id,omitempty"`
	MethodName  string  `json:"method_name,omitempty"`
	Countdown   int     `json:"countdown,omitempty"`
	Elapsed     int     `json:"elapsed_seconds"`
	Total       int     `json:"total_seconds"`
	StageIndex  int     `json:"stage_index"`
	StageCount  int     `json:"stage_count"`
	StageLabel  string  `json:"stage_label,omitempty"`
	Waiting     bool    `json:"waiting"`
	WaterNow    float64 `json:"water_now"`
	WaterTarget float64 `json:"water_target"`
	FlowRate    float64 `json:"flow_rate"`
}

type wireStage struct {
	Kind          string  `json:"kind"`
	Start         int     `json:"start_seconds"`
	End           int     `json:"end_seconds"`
	Water         string  `json:"water"`
	WaterGrams    float64 `json:"water_grams"`
	OriginalIndex int     `json:"original_index"`
	Label         string  `json:"label"`
	Detail        string  `json:"detail,omitempty"`
	PourType      string  `json:"pour_type,omitempty"`
	ValveStatus   string  `json:"valve_status,omitempty"`
}

type wireStageChange struct {
	Index    int     `json:"index"`
	Progress float64 `json:"progress"`
	Waiting  bool    `json:"waiting"`
}

type wireNote struct {
	ID         string `json:"id"`
	MethodID   string `json:"method_id"`
	MethodName string `json:"method_name"`
	TotalTime  int    `json:"total_seconds"`
	Skipped    bool   `json:"skipped"`
}

// SnapshotFunc supplies the current session state for new clients.
type SnapshotFunc func() brew.Snapshot

// Bridge is the WebSocket hub. Create with New, start with Serve, feed
// it by registering it as an engine observer.
type Bridge struct {
	log      *logger.Logger
	snapshot SnapshotFunc

	mu      sync.Mutex
	clients map[*client]struct{}

	server *http.Server
}

type client struct {
	conn       *websocket.Conn
	send       chan []byte
	remoteAddr string
}

// New creates a bridge that serves snapshots from the given function.
func New(snapshot SnapshotFunc, log *logger.Logger) *Bridge {
	return &Bridge{
		log:      log,
		snapshot: snapshot,
		clients:  make(map[*client]struct{}),
	}
}

var upgrader = websocket.Upgrader{
	// Companion surfaces connect from arbitrary local origins.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Serve listens on addr and accepts WebSocket clients at /ws. Blocks
// until Shutdown or a listen error.
func (b *Bridge) Serve(addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", b.handleWS)

	b.server = &http.Server{Addr: addr, Handler: mux}
	b.log.Info("bridge listening on ws://%s/ws", addr)

	err := b.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops the HTTP server and disconnects all clients.
func (b *Bridge) Shutdown(ctx context.Context) error {
	b.mu.Lock()
	for c := range b.clients {
		_ = c.conn.Close()
		close(c.send)
		delete(b.clients, c)
	}
	b.mu.Unlock()

	if b.server == nil {
		return nil
	}
	return b.server.Shutdown(ctx)
}

func (b *Bridge) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.log.Warn("bridge upgrade failed: %v", err)
		return
	}

	c := &client{
		conn:       conn,
		send:       make(chan []byte, sendBuf),
		remoteAddr: r.RemoteAddr,
	}

	// Queue the snapshot before the client becomes broadcast-visible so
	// state_init is always the first frame it sees.
	if b.snapshot != nil {
		c.send <- marshalEnvelope("state_init", toWireSnapshot(b.snapshot()))
	}

	b.mu.Lock()
	b.clients[c] = struct{}{}
	n := len(b.clients)
	b.mu.Unlock()
	b.log.Info("bridge client connected: %s (clients=%d)", c.remoteAddr, n)

	// Pumps own the connection from here. Deliberately not tied to the
	// request context: net/http cancels it when this handler returns.
	go b.writePump(c)
	go b.readPump(c)
}

// writePump drains the client's send queue. Exits on write error or
// when the queue is closed by a drop.
func (b *Bridge) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				b.drop(c, "write error")
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				b.drop(c, "ping error")
				return
			}
		}
	}
}

// readPump discards inbound frames; it exists to notice disconnects
// and answer control frames.
func (b *Bridge) readPump(c *client) {
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			b.drop(c, "disconnect")
			return
		}
	}
}

// drop removes a client. Safe to call from multiple pumps; only the
// first caller closes the channel.
func (b *Bridge) drop(c *client, reason string) {
	b.mu.Lock()
	_, ok := b.clients[c]
	if ok {
		delete(b.clients, c)
	}
	n := len(b.clients)
	b.mu.Unlock()

	if ok {
		_ = c.conn.Close()
		close(c.send)
		b.log.Info("bridge client dropped: %s (%s, clients=%d)", c.remoteAddr, reason, n)
	}
}

// broadcast fans a frame out to all clients, dropping any whose send
// buffer is full. Never blocks.
func (b *Bridge) broadcast(msgType string, data interface{}) {
	msg := marshalEnvelope(msgType, data)

	var slow []*client
	b.mu.Lock()
	for c := range b.clients {
		select {
		case c.send <- msg:
		default:
			slow = append(slow, c)
		}
	}
	b.mu.Unlock()

	for _, c := range slow {
		b.drop(c, "slow client")
	}
}

func marshalEnvelope(msgType string, data interface{}) []byte {
	msg, err := json.Marshal(envelope{Type: msgType, Ts: time.Now().UTC(), Data: data})
	if err != nil {
		// Wire structs are all plain data; this cannot fail in practice.
		return []byte(`{"type":"error"}`)
	}
	return msg
}

// ── SessionObserver ──────────────────────────────────────────────

func (b *Bridge) RunningChanged(running bool) {
	b.broadcast("running_changed", map[string]bool{"running": running})
}

func (b *Bridge) StageChanged(change domain.StageChange) {
	b.broadcast("stage_changed", wireStageChange{
		Index:    change.Index,
		Progress: change.Progress,
		Waiting:  change.Waiting,
	})
}

func (b *Bridge) ScheduleChanged(stages []domain.ExpandedStage) {
	out := make([]wireStage, 0, len(stages))
	for _, s := range stages {
		out = append(out, wireStage{
			Kind:          s.Kind.String(),
			Start:         int(s.Start / time.Second),
			End:           int(s.End / time.Second),
			Water:         s.Water,
			WaterGrams:    schedule.ParseWater(s.Water),
			OriginalIndex: s.OriginalIndex,
			Label:         s.Label,
			Detail:        s.Detail,
			PourType:      s.PourType,
			ValveStatus:   s.ValveStatus,
		})
	}
	b.broadcast("schedule_changed", out)
}

func (b *Bridge) CountdownChanged(remaining int) {
	b.broadcast("countdown", map[string]int{"remaining": remaining})
}

func (b *Bridge) Completed(note domain.BrewNote, skipped bool) {
	b.broadcast("completed", wireNote{
		ID:         note.ID,
		MethodID:   note.MethodID,
		MethodName: note.MethodName,
		TotalTime:  int(note.TotalTime / time.Second),
		Skipped:    skipped,
	})
}

func (b *Bridge) SessionReset() {
	b.broadcast("session_reset", nil)
}

func toWireSnapshot(s brew.Snapshot) wireSnapshot {
	return wireSnapshot{
		Phase:       s.Phase.String(),
		SessionID:   s.SessionID,
		MethodID:    s.MethodID,
		MethodName:  s.MethodName,
		Countdown:   s.Countdown,
		Elapsed:     int(s.Elapsed / time.Second),
		Total:       int(s.Total / time.Second),
		StageIndex:  s.StageIndex,
		StageCount:  s.StageCount,
		StageLabel:  s.StageLabel,
		Waiting:     s.Waiting,
		WaterNow:    s.WaterNow,
		WaterTarget: s.WaterTarget,
		FlowRate:    s.FlowRate,
	}
}
