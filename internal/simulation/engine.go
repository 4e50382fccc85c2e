package simulation

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/orbitengine/server/internal/constants"
	"github.com/orbitengine/server/internal/kepler"
	"github.com/orbitengine/server/internal/orbiterr"
	"github.com/orbitengine/server/internal/planner"
	"github.com/orbitengine/server/internal/vector3"
)

// CommandKind enumerates the operations a client session can queue against
// the engine. Commands are applied in arrival order at the next tick
// boundary, never mid-tick.
type CommandKind string

const (
	CommandPlay     CommandKind = "play"
	CommandPause    CommandKind = "pause"
	CommandSetSpeed CommandKind = "set_speed"
	CommandFocus    CommandKind = "focus"
	CommandLaunch   CommandKind = "launch"
)

// Command is one queued client instruction.
type Command struct {
	Kind      CommandKind
	TimeScale float64     // CommandSetSpeed
	FocusBody constants.BodyID // CommandFocus
	Launch    LaunchRequest    // CommandLaunch
}

// LaunchRequest parameterizes a CommandLaunch.
type LaunchRequest struct {
	DepartureBody constants.BodyID
	ArrivalBody   constants.BodyID
	TDep          float64
	TArr          float64
}

const commandQueueCapacity = 64

// DefaultTickHz is the tick loop's rate when the caller doesn't override it.
const DefaultTickHz = 20.0

// Snapshot is the engine's full observable state at one tick, suitable for
// broadcasting to every connected session.
type Snapshot struct {
	SimTime       float64
	TimeScale     float64
	State         State
	FocusBody     constants.BodyID
	BodyPositions map[constants.BodyID]vector3.Vector3
	Missions      []Mission
}

// Engine owns the simulation clock, the body ephemeris, and the mission
// roster, and drives them forward on a fixed-rate tick loop (Start/Stop
// around a ticker-driven goroutine guarded by a stop channel and
// WaitGroup). Every body is propagated from closed-form elements each
// tick, and a command queue and mission roster are layered on top.
type Engine struct {
	mu       sync.RWMutex
	clock    *Clock
	tickRate time.Duration
	missions map[string]*Mission
	focus    constants.BodyID

	commands chan Command
	onTick   func(Snapshot)

	log *logrus.Logger

	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewEngine creates an engine ticking at tickHz (DefaultTickHz if <= 0),
// starting stopped with the clock at simTime. onTick, if non-nil, is
// invoked synchronously from the tick goroutine with the snapshot produced
// by every tick; it must not block.
func NewEngine(tickHz float64, simTime float64, log *logrus.Logger, onTick func(Snapshot)) *Engine {
	if tickHz <= 0 {
		tickHz = DefaultTickHz
	}
	return &Engine{
		clock:    NewClock(simTime),
		tickRate: time.Duration(float64(time.Second) / tickHz),
		missions: make(map[string]*Mission),
		focus:    constants.Sun,
		commands: make(chan Command, commandQueueCapacity),
		onTick:   onTick,
		log:      log,
		stopCh:   make(chan struct{}),
	}
}

// Submit enqueues a command for application at the next tick boundary. It
// never blocks: a full queue is reported as orbiterr.QueueOverflow so the
// caller (the session command handler) can decide whether to drop or
// surface it to the client.
func (e *Engine) Submit(cmd Command) error {
	select {
	case e.commands <- cmd:
		return nil
	default:
		return orbiterr.New(orbiterr.QueueOverflow, "command queue full, dropping %s", cmd.Kind)
	}
}

// Start launches the tick loop in its own goroutine; it returns
// immediately. Calling Start twice without an intervening Stop is a no-op.
func (e *Engine) Start(ctx context.Context) {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return
	}
	e.running = true
	e.stopCh = make(chan struct{})
	e.mu.Unlock()

	e.wg.Add(1)
	go e.tickLoop(ctx)
}

// Stop halts the tick loop and waits for it to exit.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	close(e.stopCh)
	e.mu.Unlock()

	e.wg.Wait()
}

func (e *Engine) tickLoop(ctx context.Context) {
	defer e.wg.Done()

	ticker := time.NewTicker(e.tickRate)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case <-e.stopCh:
			return
		case now := <-ticker.C:
			wallDt := now.Sub(last).Seconds()
			last = now
			e.tick(wallDt)
		}
	}
}

// tick drains every command queued since the previous tick, applies them
// in arrival order, advances the clock, refreshes mission lifecycle
// status, and hands the resulting snapshot to onTick.
func (e *Engine) tick(wallDt float64) {
	e.drainCommands()
	e.clock.Advance(wallDt)

	simTime, timeScale, state := e.clock.Snapshot()

	e.mu.Lock()
	for _, m := range e.missions {
		m.updateStatus(simTime)
	}
	focus := e.focus
	missionsCopy := make([]Mission, 0, len(e.missions))
	for _, m := range e.missions {
		missionsCopy = append(missionsCopy, *m)
	}
	e.mu.Unlock()

	positions := make(map[constants.BodyID]vector3.Vector3, 9)
	for _, body := range constants.All() {
		r, _, err := kepler.Propagate(body, simTime)
		if err != nil {
			if e.log != nil {
				e.log.WithError(err).WithField("body", body.ID).Warn("tick: propagation failed, body omitted from snapshot")
			}
			continue
		}
		positions[body.ID] = r
	}

	if e.onTick != nil {
		e.onTick(Snapshot{
			SimTime:       simTime,
			TimeScale:     timeScale,
			State:         state,
			FocusBody:     focus,
			BodyPositions: positions,
			Missions:      missionsCopy,
		})
	}
}

func (e *Engine) drainCommands() {
	for {
		select {
		case cmd := <-e.commands:
			e.applyCommand(cmd)
		default:
			return
		}
	}
}

func (e *Engine) applyCommand(cmd Command) {
	switch cmd.Kind {
	case CommandPlay:
		e.clock.Play()
	case CommandPause:
		e.clock.Pause()
	case CommandSetSpeed:
		if cmd.TimeScale <= 0 {
			if e.log != nil {
				e.log.WithField("time_scale", cmd.TimeScale).Warn(string(orbiterr.InvalidSpeed))
			}
			return
		}
		e.clock.SetTimeScale(cmd.TimeScale)
	case CommandFocus:
		e.mu.Lock()
		e.focus = cmd.FocusBody
		e.mu.Unlock()
	case CommandLaunch:
		e.launch(cmd.Launch)
	default:
		if e.log != nil {
			e.log.WithField("kind", cmd.Kind).Warn("unknown command kind, ignored")
		}
	}
}

func (e *Engine) launch(req LaunchRequest) {
	xfer, err := planner.ComputeTransfer(req.DepartureBody, req.ArrivalBody, req.TDep, req.TArr)
	if err != nil {
		if e.log != nil {
			e.log.WithError(err).WithFields(logrus.Fields{
				"departure_body": req.DepartureBody,
				"arrival_body":   req.ArrivalBody,
			}).Warn("launch: transfer computation failed")
		}
		return
	}

	simTime, _, _ := e.clock.Snapshot()
	m := &Mission{
		ID:            uuid.NewString(),
		DepartureBody: req.DepartureBody,
		ArrivalBody:   req.ArrivalBody,
		Transfer:      xfer,
	}
	m.updateStatus(simTime)

	e.mu.Lock()
	e.missions[m.ID] = m
	e.mu.Unlock()
}

// Missions returns a snapshot copy of the current mission roster.
func (e *Engine) Missions() []Mission {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]Mission, 0, len(e.missions))
	for _, m := range e.missions {
		out = append(out, *m)
	}
	return out
}

// Mission looks up a single mission by id.
func (e *Engine) Mission(id string) (Mission, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	m, ok := e.missions[id]
	if !ok {
		return Mission{}, false
	}
	return *m, true
}

// LaunchMission computes and registers a transfer synchronously, bypassing
// the command queue, and returns the resulting mission. The server's REST
// launch endpoint uses this so the caller can report C3/delta-v/trajectory
// immediately rather than waiting for the next tick to see the roster
// update.
func (e *Engine) LaunchMission(req LaunchRequest) (Mission, error) {
	xfer, err := planner.ComputeTransfer(req.DepartureBody, req.ArrivalBody, req.TDep, req.TArr)
	if err != nil {
		return Mission{}, err
	}

	simTime, _, _ := e.clock.Snapshot()
	m := &Mission{
		ID:            uuid.NewString(),
		DepartureBody: req.DepartureBody,
		ArrivalBody:   req.ArrivalBody,
		Transfer:      xfer,
	}
	m.updateStatus(simTime)

	e.mu.Lock()
	e.missions[m.ID] = m
	e.mu.Unlock()

	return *m, nil
}
