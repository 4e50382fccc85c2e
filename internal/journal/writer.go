// Package journal batches simulation snapshots to disk in the background,
// applying the same drop-oldest backpressure the streaming server uses for
// slow websocket clients, here applied to a slow (or stalled) filesystem
// instead of a slow network peer.
package journal

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	queueCapacity = 512
	batchSize     = 64
	flushInterval = 2 * time.Second
)

// Entry is one journaled record: a tick snapshot or a mission event,
// tagged with the sim_time it occurred at.
type Entry struct {
	SimTime   float64     `json:"sim_time"`
	Kind      string      `json:"kind"`
	Data      interface{} `json:"data"`
	WrittenAt time.Time   `json:"written_at"`
}

// Writer batches Entry values and flushes them to sequence-numbered JSON
// lines files under Dir. Writes never block the tick loop: a full queue
// drops the oldest queued entry to make room, mirroring
// livefeed.LiveFeedStreamer.BroadcastTelemetry's overflow handling.
type Writer struct {
	dir string
	seq int

	mu     sync.Mutex
	file   *os.File
	buf    *bufio.Writer
	bytesW int

	entries chan Entry
	stopCh  chan struct{}
	wg      sync.WaitGroup

	log *logrus.Logger

	dropped int64
}

// New creates a Writer rooted at dir, creating the directory if needed.
func New(dir string, log *logrus.Logger) (*Writer, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create journal directory: %w", err)
	}
	return &Writer{
		dir:     dir,
		entries: make(chan Entry, queueCapacity),
		stopCh:  make(chan struct{}),
		log:     log,
	}, nil
}

// Start launches the background flush goroutine.
func (w *Writer) Start() {
	w.wg.Add(1)
	go w.run()
}

// Stop signals the flush goroutine to drain and exit, waiting for it to
// finish so no buffered entries are lost on shutdown.
func (w *Writer) Stop() {
	close(w.stopCh)
	w.wg.Wait()
	w.closeCurrentFile()
}

// Write enqueues an entry for the background writer. It never blocks:
// when the queue is full, the oldest queued entry is dropped to make room
// for this one, since a live journal favors recency over completeness.
func (w *Writer) Write(e Entry) {
	e.WrittenAt = time.Now()
	select {
	case w.entries <- e:
	default:
		select {
		case <-w.entries:
		default:
		}
		select {
		case w.entries <- e:
		default:
		}
		w.mu.Lock()
		w.dropped++
		w.mu.Unlock()
		if w.log != nil {
			w.log.Warn("journal queue full, dropped oldest entry")
		}
	}
}

// Dropped returns the number of entries dropped so far due to backpressure.
func (w *Writer) Dropped() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.dropped
}

func (w *Writer) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	batch := make([]Entry, 0, batchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := w.flushBatch(batch); err != nil && w.log != nil {
			w.log.WithError(err).Error("journal: flush failed")
		}
		batch = batch[:0]
	}

	for {
		select {
		case <-w.stopCh:
			for {
				select {
				case e := <-w.entries:
					batch = append(batch, e)
				default:
					flush()
					return
				}
			}
		case e := <-w.entries:
			batch = append(batch, e)
			if len(batch) >= batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

func (w *Writer) flushBatch(batch []Entry) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, e := range batch {
		if w.file == nil || w.bytesW > 8<<20 { // roll past 8MiB
			if err := w.rollFileLocked(); err != nil {
				return err
			}
		}
		line, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("marshal journal entry: %w", err)
		}
		n, err := w.buf.Write(append(line, '\n'))
		if err != nil {
			return fmt.Errorf("write journal entry: %w", err)
		}
		w.bytesW += n
	}
	return w.buf.Flush()
}

func (w *Writer) rollFileLocked() error {
	w.closeCurrentFileLocked()
	w.seq++
	name := filepath.Join(w.dir, fmt.Sprintf("journal-%06d.jsonl", w.seq))
	f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("open journal file %s: %w", name, err)
	}
	w.file = f
	w.buf = bufio.NewWriter(f)
	w.bytesW = 0
	return nil
}

func (w *Writer) closeCurrentFile() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closeCurrentFileLocked()
}

func (w *Writer) closeCurrentFileLocked() {
	if w.file == nil {
		return
	}
	_ = w.buf.Flush()
	_ = w.file.Close()
	w.file = nil
	w.buf = nil
}
