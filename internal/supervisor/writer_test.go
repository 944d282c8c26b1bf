package supervisor

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

// recordingWriter collects writes and signals when a count is reached.
type recordingWriter struct {
	mu     sync.Mutex
	buf    bytes.Buffer
	closed bool
	wrote  chan struct{}
}

func newRecordingWriter() *recordingWriter {
	return &recordingWriter{wrote: make(chan struct{}, 1024)}
}

func (w *recordingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	n, err := w.buf.Write(p)
	w.wrote <- struct{}{}
	return n, err
}

func (w *recordingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func (w *recordingWriter) contents() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.String()
}

func (w *recordingWriter) isClosed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}

type failingWriter struct{ closed bool }

func (w *failingWriter) Write(p []byte) (int, error) { return 0, errors.New("broken pipe") }
func (w *failingWriter) Close() error                { w.closed = true; return nil }

func TestWriteQueuePreservesOrder(t *testing.T) {
	w := newRecordingWriter()
	q := newWriteQueue(w, nil)

	for _, line := range []string{"one\n", "two\n", "three\n"} {
		if err := q.enqueue([]byte(line)); err != nil {
			t.Fatalf("enqueue(%q): %v", line, err)
		}
	}
	q.close()
	q.wait()

	if got, want := w.contents(), "one\ntwo\nthree\n"; got != want {
		t.Errorf("drained writes = %q, want %q", got, want)
	}
	if !w.isClosed() {
		t.Error("stdin not closed after drain")
	}
}

func TestWriteQueueRejectsAfterClose(t *testing.T) {
	q := newWriteQueue(newRecordingWriter(), nil)
	q.close()
	if err := q.enqueue([]byte("late\n")); err == nil {
		t.Error("enqueue after close returned nil error")
	}
	q.close() // idempotent
	q.wait()
}

func TestWriteQueueFailureIsolatedPerUnit(t *testing.T) {
	var (
		mu       sync.Mutex
		failures []string
	)
	onError := func(err error) {
		mu.Lock()
		failures = append(failures, err.Error())
		mu.Unlock()
	}
	q := newWriteQueue(&failingWriter{}, onError)

	q.enqueue([]byte("a\n"))
	q.enqueue([]byte("b\n"))
	q.close()
	q.wait()

	mu.Lock()
	defer mu.Unlock()
	if len(failures) != 2 {
		t.Fatalf("onError called %d times, want 2", len(failures))
	}
	for _, msg := range failures {
		if !strings.Contains(msg, "broken pipe") {
			t.Errorf("unexpected failure message %q", msg)
		}
	}
}

// blockingWriter stalls until released, simulating pipe backpressure.
type blockingWriter struct {
	release chan struct{}
}

func (w *blockingWriter) Write(p []byte) (int, error) {
	<-w.release
	return len(p), nil
}

func (w *blockingWriter) Close() error { return nil }

func TestWriteQueueBoundedWhenStalled(t *testing.T) {
	w := &blockingWriter{release: make(chan struct{})}
	q := newWriteQueue(w, nil)
	defer close(w.release)
	defer q.close()

	// One unit is held by the stalled drainer; the channel holds the
	// bound on top of that.
	deadline := time.After(2 * time.Second)
	accepted := 0
	for {
		if err := q.enqueue([]byte("x\n")); err != nil {
			if !errors.Is(err, errQueueFull) {
				t.Fatalf("enqueue failed with %v, want errQueueFull", err)
			}
			break
		}
		accepted++
		if accepted > writeQueueCapacity+1 {
			t.Fatalf("accepted %d units, bound of %d not enforced", accepted, writeQueueCapacity)
		}
		select {
		case <-deadline:
			t.Fatal("queue never reported full")
		default:
		}
	}
	if accepted < writeQueueCapacity {
		t.Errorf("accepted only %d units before full, want at least %d", accepted, writeQueueCapacity)
	}
}
