package service

import (
	"context"
	"sync"

	"github.com/clearway-ai/chat-gateway/pkg/metrics"
)

// turnLog serializes completion delivery for one session. Turns are issued
// monotonically at request time; deliveries run strictly in issue order, so
// two requests sent back-to-back append in the order they were sent even when
// the upstream resolves them out of order. Closing the log cancels in-flight
// requests and drops any late or buffered deliveries.
type turnLog struct {
	mu       sync.Mutex
	next     uint64
	deliver  uint64
	flushing bool // a flusher is running deliveries outside the lock
	pending  map[uint64]*pendingDelivery
	cancels  map[uint64]context.CancelFunc
	closed   bool
}

type pendingDelivery struct {
	fn   func()
	done chan struct{}
	ran  bool // written before done closes
}

// wait blocks until the delivery has run or been dropped and reports which.
func (d *pendingDelivery) wait() bool {
	<-d.done
	return d.ran
}

func newTurnLog() *turnLog {
	return &turnLog{
		next:    1,
		deliver: 1,
		pending: make(map[uint64]*pendingDelivery),
		cancels: make(map[uint64]context.CancelFunc),
	}
}

// issue assigns the next turn and derives a cancellable context for its
// upstream call. The third return is false when the log is closed.
func (l *turnLog) issue(ctx context.Context) (uint64, context.Context, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return 0, nil, false
	}

	turn := l.next
	l.next++

	callCtx, cancel := context.WithCancel(ctx)
	l.cancels[turn] = cancel
	return turn, callCtx, true
}

// complete hands in the delivery function for a turn. In-order completions
// run immediately and flush any buffered successors; out-of-order ones are
// buffered until their predecessors arrive. The caller waits on the returned
// entry, which reports whether the delivery ran or was dropped when the log
// closed underneath it.
func (l *turnLog) complete(turn uint64, fn func()) *pendingDelivery {
	entry := &pendingDelivery{fn: fn, done: make(chan struct{})}

	l.mu.Lock()
	if cancel, ok := l.cancels[turn]; ok {
		delete(l.cancels, turn)
		defer cancel()
	}

	if l.closed {
		l.mu.Unlock()
		close(entry.done)
		return entry
	}

	if turn != l.deliver || l.flushing {
		if turn != l.deliver {
			metrics.TurnsBuffered.Inc()
		}
		l.pending[turn] = entry
		l.mu.Unlock()
		return entry
	}

	// Become the flusher. Anything completing while we run, including the
	// next turn in order, lands in pending and we drain it here, so only
	// one delivery ever executes at a time and always in turn order.
	l.flushing = true
	cur := entry
	for {
		delete(l.pending, l.deliver)
		l.deliver++
		l.mu.Unlock()

		cur.fn()
		cur.ran = true
		close(cur.done)

		l.mu.Lock()
		if l.closed {
			break
		}
		next, ok := l.pending[l.deliver]
		if !ok {
			break
		}
		cur = next
	}
	l.flushing = false
	l.mu.Unlock()
	return entry
}

// skip releases a turn without delivering anything, for requests that failed
// before reaching the upstream. Buffered successors are flushed.
func (l *turnLog) skip(turn uint64) {
	l.complete(turn, func() {})
}

// close cancels all in-flight calls and drops buffered deliveries.
func (l *turnLog) close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.closed = true
	for turn, cancel := range l.cancels {
		cancel()
		delete(l.cancels, turn)
	}
	for turn, entry := range l.pending {
		delete(l.pending, turn)
		close(entry.done)
	}
}
