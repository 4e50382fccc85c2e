package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/orbitengine/server/internal/metrics"
	"github.com/orbitengine/server/internal/orbiterr"
	"github.com/orbitengine/server/internal/simulation"
)

const (
	sessionSendQueueSize = 4
	writeDeadline        = 10 * time.Second
	pongWait             = 60 * time.Second
	pingInterval         = (pongWait * 9) / 10
	readLimitBytes       = 4096
)

// Session is one connected websocket client: a bounded, drop-oldest egress
// queue for outbound state snapshots, and a read loop that decodes inbound
// commands and forwards them to the simulation engine. The queue holds
// only 4 slots since a state snapshot supersedes any snapshot still
// queued behind it — there is never a reason to deliver a stale one.
type Session struct {
	id     string
	conn   *websocket.Conn
	engine *simulation.Engine
	send   chan []byte
	log    *logrus.Logger
	m      *metrics.Metrics
}

// Hub tracks every connected Session and fans a snapshot out to each of
// them on every tick. The session map is guarded by mu rather than owned
// by a single goroutine, since Broadcast is called directly from the
// simulation engine's tick goroutine and must never wait on a channel
// read that a slow or absent Run loop could stall.
type Hub struct {
	mu       sync.RWMutex
	sessions map[*Session]bool
	m        *metrics.Metrics
	log      *logrus.Logger
}

// NewHub creates an empty Hub.
func NewHub(m *metrics.Metrics, log *logrus.Logger) *Hub {
	return &Hub{
		sessions: make(map[*Session]bool),
		m:        m,
		log:      log,
	}
}

// Run blocks until ctx is canceled. Registration happens synchronously in
// ServeWebSocket, so Run exists only to give the hub a lifecycle matching
// the engine and journal writer's Start/Stop shape.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
}

func (h *Hub) registerSession(s *Session) {
	h.mu.Lock()
	h.sessions[s] = true
	n := len(h.sessions)
	h.mu.Unlock()
	if h.m != nil {
		h.m.SessionsActive.Set(float64(n))
	}
}

func (h *Hub) unregisterSession(s *Session) {
	h.mu.Lock()
	_, ok := h.sessions[s]
	if ok {
		delete(h.sessions, s)
	}
	n := len(h.sessions)
	h.mu.Unlock()
	if !ok {
		return
	}
	close(s.send)
	if h.m != nil {
		h.m.SessionsActive.Set(float64(n))
	}
}

// Broadcast marshals snapshot once and pushes it to every session's
// egress queue, dropping the oldest queued frame on overflow instead of
// blocking the tick loop for a slow client.
func (h *Hub) Broadcast(snapshot simulation.Snapshot) {
	data, err := json.Marshal(toStateSnapshot(snapshot))
	if err != nil {
		if h.log != nil {
			h.log.WithError(err).Error("broadcast: marshal snapshot failed")
		}
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.sessions {
		select {
		case s.send <- data:
		default:
			select {
			case <-s.send:
			default:
			}
			select {
			case s.send <- data:
			default:
			}
			if h.m != nil {
				h.m.SnapshotsDropped.Inc()
			}
		}
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ServeWebSocket upgrades the connection, registers a Session with the
// hub, and starts its read/write pumps.
func (h *Hub) ServeWebSocket(engine *simulation.Engine, m *metrics.Metrics, log *logrus.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			if log != nil {
				log.WithError(err).Warn("websocket upgrade failed")
			}
			return
		}

		s := &Session{
			id:     uuid.NewString(),
			conn:   conn,
			engine: engine,
			send:   make(chan []byte, sessionSendQueueSize),
			log:    log,
			m:      m,
		}

		h.registerSession(s)

		ctx, cancel := context.WithCancel(r.Context())
		go s.writePump(ctx)
		go s.readPump(ctx, cancel, h)
	}
}

func (s *Session) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-s.send:
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Session) readPump(ctx context.Context, cancel context.CancelFunc, h *Hub) {
	defer func() {
		cancel()
		h.unregisterSession(s)
		_ = s.conn.Close()
	}()

	s.conn.SetReadLimit(readLimitBytes)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) && s.log != nil {
				s.log.WithError(err).WithField("session", s.id).Warn("websocket read error")
			}
			return
		}
		if !s.handleCommand(raw) {
			closeMsg := websocket.FormatCloseMessage(websocket.CloseUnsupportedData, string(orbiterr.ProtocolError))
			_ = s.conn.WriteControl(websocket.CloseMessage, closeMsg, time.Now().Add(writeDeadline))
			return
		}
	}
}

// handleCommand decodes and applies one inbound command. It returns false
// on a malformed command, which is a protocol error: the caller must
// terminate the session rather than keep reading from a peer that isn't
// speaking the protocol.
func (s *Session) handleCommand(raw []byte) bool {
	var dto commandDTO
	if err := json.Unmarshal(raw, &dto); err != nil {
		if s.log != nil {
			s.log.WithError(err).WithField("session", s.id).Warn("malformed command, terminating session")
		}
		return false
	}

	cmd := simulation.Command{Kind: simulation.CommandKind(dto.Type)}
	switch cmd.Kind {
	case simulation.CommandSetSpeed:
		cmd.TimeScale = dto.TimeScale
	case simulation.CommandFocus:
		cmd.FocusBody = dto.FocusBody
	case simulation.CommandLaunch:
		if dto.Launch == nil {
			return true
		}
		cmd.Launch = simulation.LaunchRequest{
			DepartureBody: dto.Launch.DepartureBody,
			ArrivalBody:   dto.Launch.ArrivalBody,
			TDep:          dto.Launch.TDep,
			TArr:          dto.Launch.TArr,
		}
	}

	if err := s.engine.Submit(cmd); err != nil {
		if s.m != nil {
			s.m.QueueOverflowTotal.WithLabelValues("engine_commands").Inc()
		}
		if s.log != nil {
			s.log.WithError(err).WithField("session", s.id).Warn("command dropped")
		}
	}
	return true
}
