package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTurnLog_MonotonicIssue(t *testing.T) {
	l := newTurnLog()

	for want := uint64(1); want <= 5; want++ {
		turn, callCtx, ok := l.issue(context.Background())
		require.True(t, ok)
		require.NotNil(t, callCtx)
		assert.Equal(t, want, turn)
	}
}

func TestTurnLog_InOrderDelivery(t *testing.T) {
	l := newTurnLog()
	t1, _, _ := l.issue(context.Background())
	t2, _, _ := l.issue(context.Background())

	var order []uint64
	require.True(t, l.complete(t1, func() { order = append(order, t1) }).wait())
	require.True(t, l.complete(t2, func() { order = append(order, t2) }).wait())

	assert.Equal(t, []uint64{1, 2}, order)
}

func TestTurnLog_OutOfOrderBuffered(t *testing.T) {
	l := newTurnLog()
	t1, _, _ := l.issue(context.Background())
	t2, _, _ := l.issue(context.Background())

	var order []uint64

	// Turn 2 resolves first; its delivery must wait for turn 1.
	second := l.complete(t2, func() { order = append(order, t2) })
	select {
	case <-second.done:
		t.Fatal("turn 2 delivered before turn 1")
	case <-time.After(10 * time.Millisecond):
	}
	assert.Empty(t, order)

	require.True(t, l.complete(t1, func() { order = append(order, t1) }).wait())
	require.True(t, second.wait())
	assert.Equal(t, []uint64{1, 2}, order)
}

func TestTurnLog_SlowDeliveryStillSerialized(t *testing.T) {
	l := newTurnLog()
	t1, _, _ := l.issue(context.Background())
	t2, _, _ := l.issue(context.Background())

	var mu sync.Mutex
	var order []uint64
	record := func(turn uint64) {
		mu.Lock()
		order = append(order, turn)
		mu.Unlock()
	}

	firstRunning := make(chan struct{})
	release := make(chan struct{})
	firstDone := make(chan struct{})
	go func() {
		defer close(firstDone)
		l.complete(t1, func() {
			close(firstRunning)
			<-release
			record(t1)
		}).wait()
	}()
	<-firstRunning

	// Turn 2 resolves while turn 1's delivery is still running. It must
	// not jump the queue even though it is next in line.
	secondDone := make(chan struct{})
	go func() {
		defer close(secondDone)
		l.complete(t2, func() { record(t2) }).wait()
	}()
	select {
	case <-secondDone:
		t.Fatal("turn 2 delivered while turn 1 was still running")
	case <-time.After(20 * time.Millisecond):
	}

	close(release)
	<-firstDone
	<-secondDone

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []uint64{1, 2}, order)
}

func TestTurnLog_SkipFlushesSuccessors(t *testing.T) {
	l := newTurnLog()
	t1, _, _ := l.issue(context.Background())
	t2, _, _ := l.issue(context.Background())

	ran := false
	second := l.complete(t2, func() { ran = true })

	l.skip(t1)
	require.True(t, second.wait())
	assert.True(t, ran)
}

func TestTurnLog_CloseCancelsInFlight(t *testing.T) {
	l := newTurnLog()
	_, callCtx, ok := l.issue(context.Background())
	require.True(t, ok)

	l.close()

	select {
	case <-callCtx.Done():
	default:
		t.Fatal("in-flight context not cancelled on close")
	}

	_, _, ok = l.issue(context.Background())
	assert.False(t, ok, "closed log refuses new turns")
}

func TestTurnLog_CloseDropsBufferedDeliveries(t *testing.T) {
	l := newTurnLog()
	_, _, _ = l.issue(context.Background())
	t2, _, _ := l.issue(context.Background())

	ran := false
	second := l.complete(t2, func() { ran = true })

	l.close()

	assert.False(t, second.wait(), "buffered delivery dropped, not run")
	assert.False(t, ran)
}

func TestTurnLog_CompleteAfterClose(t *testing.T) {
	l := newTurnLog()
	t1, _, _ := l.issue(context.Background())
	l.close()

	ran := false
	assert.False(t, l.complete(t1, func() { ran = true }).wait())
	assert.False(t, ran)
}
