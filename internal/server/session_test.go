package server

import (
	"encoding/json"
	"testing"

	"github.com/orbitengine/server/internal/metrics"
	"github.com/orbitengine/server/internal/simulation"
)

func newTestSession() *Session {
	return &Session{id: "test", send: make(chan []byte, sessionSendQueueSize)}
}

func TestHubRegisterUnregisterTracksSessions(t *testing.T) {
	h := NewHub(nil, nil)
	s := newTestSession()

	h.registerSession(s)
	h.mu.RLock()
	_, ok := h.sessions[s]
	h.mu.RUnlock()
	if !ok {
		t.Fatal("expected session to be registered")
	}

	h.unregisterSession(s)
	h.mu.RLock()
	_, ok = h.sessions[s]
	h.mu.RUnlock()
	if ok {
		t.Fatal("expected session to be unregistered")
	}

	select {
	case _, open := <-s.send:
		if open {
			t.Fatal("expected send channel to be drained and closed")
		}
	default:
		t.Fatal("expected send channel to be closed, not still open with no value")
	}
}

func TestHubUnregisterTwiceIsSafe(t *testing.T) {
	h := NewHub(nil, nil)
	s := newTestSession()
	h.registerSession(s)
	h.unregisterSession(s)
	h.unregisterSession(s) // must not double-close s.send
}

func TestBroadcastDropsOldestOnFullQueue(t *testing.T) {
	h := NewHub(metrics.Get(), nil)
	s := newTestSession()
	h.registerSession(s)
	defer h.unregisterSession(s)

	for i := 0; i < sessionSendQueueSize+2; i++ {
		h.Broadcast(simulation.Snapshot{SimTime: float64(i)})
	}

	if len(s.send) != sessionSendQueueSize {
		t.Fatalf("expected queue to stay at capacity %d, got %d", sessionSendQueueSize, len(s.send))
	}

	var last []byte
	for {
		select {
		case frame := <-s.send:
			last = frame
			continue
		default:
		}
		break
	}
	if last == nil {
		t.Fatal("expected at least one queued frame")
	}
	var snap stateSnapshotDTO
	if err := json.Unmarshal(last, &snap); err != nil {
		t.Fatalf("decode frame: %v", err)
	}
	if snap.SimTime != float64(sessionSendQueueSize+1) {
		t.Fatalf("expected newest frame sim_time %d to survive, got %g", sessionSendQueueSize+1, snap.SimTime)
	}
}

func TestBroadcastSkipsUnregisteredSessions(t *testing.T) {
	h := NewHub(nil, nil)
	s := newTestSession()
	h.registerSession(s)
	h.unregisterSession(s)

	// s.send is now closed; Broadcast must not attempt to send on it.
	h.Broadcast(simulation.Snapshot{SimTime: 1})
}

func TestHandleCommandRejectsMalformedJSON(t *testing.T) {
	s := &Session{id: "test", engine: simulation.NewEngine(50, 0, nil, nil), send: make(chan []byte, sessionSendQueueSize)}
	if s.handleCommand([]byte("not json")) {
		t.Fatal("expected malformed command to be rejected")
	}
}

func TestHandleCommandAcceptsWellFormedCommand(t *testing.T) {
	s := &Session{id: "test", engine: simulation.NewEngine(50, 0, nil, nil), send: make(chan []byte, sessionSendQueueSize)}
	if !s.handleCommand([]byte(`{"type":"play"}`)) {
		t.Fatal("expected well-formed command to be accepted")
	}
}
