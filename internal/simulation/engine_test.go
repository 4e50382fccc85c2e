package simulation

import (
	"context"
	"testing"
	"time"

	"github.com/orbitengine/server/internal/constants"
)

// TestSchedulerDeterminism checks that play + set_speed scales sim_time by
// the requested factor over a real wall-clock interval, and that pause
// freezes it again.
func TestSchedulerDeterminism(t *testing.T) {
	e := NewEngine(50, 0, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	e.Start(ctx)
	defer e.Stop()

	if err := e.Submit(Command{Kind: CommandPlay}); err != nil {
		t.Fatal(err)
	}
	if err := e.Submit(Command{Kind: CommandSetSpeed, TimeScale: 1000}); err != nil {
		t.Fatal(err)
	}

	time.Sleep(1 * time.Second)

	if err := e.Submit(Command{Kind: CommandPause}); err != nil {
		t.Fatal(err)
	}
	time.Sleep(50 * time.Millisecond) // let the pause command drain

	simTime, _, state := e.clock.Snapshot()
	if state != StatePaused {
		t.Fatalf("expected paused state, got %v", state)
	}
	if simTime < 950 || simTime > 1050 {
		t.Fatalf("sim_time = %g, expected ~1000 (1x speed * 1000 over 1s wall)", simTime)
	}

	frozen := simTime
	time.Sleep(100 * time.Millisecond)
	simTime2, _, _ := e.clock.Snapshot()
	if simTime2 != frozen {
		t.Fatalf("sim_time advanced while paused: %g -> %g", frozen, simTime2)
	}
}

// TestSetSpeedRejectsNonPositiveScale checks that a non-positive
// set_speed command is dropped rather than applied, leaving sim_time
// advancing at whatever scale was already in effect.
func TestSetSpeedRejectsNonPositiveScale(t *testing.T) {
	e := NewEngine(50, 0, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	e.Start(ctx)
	defer e.Stop()

	if err := e.Submit(Command{Kind: CommandSetSpeed, TimeScale: 5}); err != nil {
		t.Fatal(err)
	}
	time.Sleep(50 * time.Millisecond)

	if err := e.Submit(Command{Kind: CommandSetSpeed, TimeScale: -3}); err != nil {
		t.Fatal(err)
	}
	time.Sleep(50 * time.Millisecond)

	_, timeScale, _ := e.clock.Snapshot()
	if timeScale != 5 {
		t.Fatalf("expected negative set_speed to be rejected, time_scale = %g, want 5", timeScale)
	}
}

// TestMissionLifecycle checks that a launched mission transitions
// pending -> active -> completed as sim_time crosses its window.
func TestMissionLifecycle(t *testing.T) {
	e := NewEngine(50, 0, nil, nil)

	m, err := e.LaunchMission(LaunchRequest{
		DepartureBody: constants.Earth,
		ArrivalBody:   constants.Mars,
		TDep:          1000,
		TArr:          1000 + 315*86400,
	})
	if err != nil {
		t.Fatalf("LaunchMission: %v", err)
	}
	if m.Status != MissionPending {
		t.Fatalf("expected pending at sim_time=0, got %v", m.Status)
	}

	e.mu.Lock()
	e.missions[m.ID].updateStatus(1000 + 100)
	mid := *e.missions[m.ID]
	e.missions[m.ID].updateStatus(1000 + 315*86400 + 1)
	done := *e.missions[m.ID]
	e.mu.Unlock()

	if mid.Status != MissionActive {
		t.Fatalf("expected active mid-flight, got %v", mid.Status)
	}
	if mid.Progress <= 0 || mid.Progress >= 1 {
		t.Fatalf("expected progress in (0,1), got %g", mid.Progress)
	}
	if mid.CurrentPosition == nil {
		t.Fatal("expected a current position while active")
	}
	if done.Status != MissionCompleted {
		t.Fatalf("expected completed after arrival, got %v", done.Status)
	}
	if done.Progress != 1 {
		t.Fatalf("expected progress=1 on completion, got %g", done.Progress)
	}
}
