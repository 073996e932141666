package mqtt

import (
	"errors"
	"sync"

	"github.com/golang-io/mqtt/packet"
)

// ErrQueueClosed is returned by enqueue once the queue is sealed.
var ErrQueueClosed = errors.New("mqtt: outbound queue closed")

// outQueue is a connection's unbounded outbound queue: the dispatcher
// (and the read loop's own replies) enqueue, the connection's write
// loop drains. Unbounded on purpose — a slow subscriber must never
// stall the single dispatcher goroutine, at the cost of memory growth
// on that one connection.
type outQueue struct {
	mu     sync.Mutex
	items  []packet.Packet
	wake   chan struct{}
	closed bool
}

func newOutQueue() *outQueue {
	return &outQueue{wake: make(chan struct{}, 1)}
}

// enqueue appends pkt and never blocks.
func (q *outQueue) enqueue(pkt packet.Packet) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}
	q.items = append(q.items, pkt)
	q.mu.Unlock()
	select {
	case q.wake <- struct{}{}:
	default:
	}
	return nil
}

// dequeue blocks until a packet is available; returns false once the
// queue is closed and fully drained.
func (q *outQueue) dequeue() (packet.Packet, bool) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			pkt := q.items[0]
			q.items = q.items[1:]
			q.mu.Unlock()
			return pkt, true
		}
		closed := q.closed
		q.mu.Unlock()
		if closed {
			return nil, false
		}
		<-q.wake
	}
}

// close seals the queue: pending packets still drain, new enqueues
// fail. Safe to call more than once.
func (q *outQueue) close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	select {
	case q.wake <- struct{}{}:
	default:
	}
}
