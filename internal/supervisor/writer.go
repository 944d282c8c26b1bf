package supervisor

import (
	"errors"
	"io"
	"sync"
)

// errQueueFull reports that the write queue's bound was hit. The
// offered unit is failed; queued units are unaffected.
var errQueueFull = errors.New("write queue full")

const writeQueueCapacity = 256

// writeQueue serializes writes to the child's stdin: a bounded channel
// drained by a single consumer goroutine, so writes flush in call order
// and pipe backpressure (a blocking Write) delays only the drainer. A
// failed write is reported through onError and the drainer moves on to
// the next unit.
type writeQueue struct {
	stdin   io.WriteCloser
	onError func(error)

	mu     sync.Mutex
	ch     chan []byte
	closed bool

	done chan struct{}
}

func newWriteQueue(stdin io.WriteCloser, onError func(error)) *writeQueue {
	q := &writeQueue{
		stdin:   stdin,
		onError: onError,
		ch:      make(chan []byte, writeQueueCapacity),
		done:    make(chan struct{}),
	}
	go q.drain()
	return q
}

func (q *writeQueue) drain() {
	defer close(q.done)
	for payload := range q.ch {
		if _, err := q.stdin.Write(payload); err != nil {
			if q.onError != nil {
				q.onError(err)
			}
		}
	}
	q.stdin.Close()
}

// enqueue offers a unit. Returns errQueueFull when the bound is hit and
// an error when the queue is already closed.
func (q *writeQueue) enqueue(payload []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return errors.New("write queue closed")
	}
	select {
	case q.ch <- payload:
		return nil
	default:
		return errQueueFull
	}
}

// close stops accepting units, lets queued units drain, then closes
// stdin. Idempotent.
func (q *writeQueue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.ch)
}

// wait blocks until the drainer has exited and stdin is closed.
func (q *writeQueue) wait() {
	<-q.done
}
