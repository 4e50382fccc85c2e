package journal

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWriterFlushesEntries(t *testing.T) {
	dir := t.TempDir()
	w, err := New(dir, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	w.Start()

	for i := 0; i < 5; i++ {
		w.Write(Entry{SimTime: float64(i), Kind: "tick", Data: map[string]int{"i": i}})
	}

	w.Stop()

	files, err := filepath.Glob(filepath.Join(dir, "journal-*.jsonl"))
	if err != nil {
		t.Fatal(err)
	}
	if len(files) == 0 {
		t.Fatal("expected at least one journal file")
	}

	total := 0
	for _, fp := range files {
		f, err := os.Open(fp)
		if err != nil {
			t.Fatal(err)
		}
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			var e Entry
			if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
				t.Fatalf("invalid journal line: %v", err)
			}
			total++
		}
		f.Close()
	}
	if total != 5 {
		t.Fatalf("expected 5 journaled entries, got %d", total)
	}
}

func TestWriterDropsOldestWhenFull(t *testing.T) {
	dir := t.TempDir()
	w, err := New(dir, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	// Deliberately not calling Start: fill the queue past capacity and
	// confirm backpressure drops the oldest entries rather than blocking.
	for i := 0; i < queueCapacity+10; i++ {
		w.Write(Entry{SimTime: float64(i), Kind: "tick"})
	}
	if w.Dropped() == 0 {
		t.Fatal("expected some entries to be dropped under backpressure")
	}
	if len(w.entries) != queueCapacity {
		t.Fatalf("expected queue to stay at capacity %d, got %d", queueCapacity, len(w.entries))
	}

	// The 10 oldest entries (SimTime 0..9) were dropped, so the queue now
	// starts at SimTime 10.
	select {
	case e := <-w.entries:
		if e.SimTime != 10 {
			t.Fatalf("expected oldest surviving entry SimTime 10, got %g", e.SimTime)
		}
	case <-time.After(time.Second):
		t.Fatal("expected a queued entry")
	}
}
