package useCases

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPendingDeliverWithoutWaiter(t *testing.T) {
	p := NewPendingReplies(time.Minute)
	defer p.Stop()

	assert.False(t, p.Deliver(42, "hello"))
}

func TestPendingAwaitReceivesDeliveredText(t *testing.T) {
	p := NewPendingReplies(time.Minute)
	defer p.Stop()

	done := make(chan string, 1)
	go func() {
		text, err := p.Await(context.Background(), 42, nil)
		require.NoError(t, err)
		done <- text
	}()

	require.Eventually(t, func() bool {
		return p.Deliver(42, "AB12")
	}, 2*time.Second, 10*time.Millisecond)

	select {
	case text := <-done:
		assert.Equal(t, "AB12", text)
	case <-time.After(2 * time.Second):
		t.Fatal("waiter never resumed")
	}
}

func TestPendingAwaitHonorsContext(t *testing.T) {
	p := NewPendingReplies(time.Minute)
	defer p.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := p.Await(ctx, 42, nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPendingTimedOutWaiterLeavesSuccessorIntact(t *testing.T) {
	p := NewPendingReplies(time.Minute)
	defer p.Stop()

	// First waiter times out while a replacement is already registered;
	// its cleanup must not unregister the replacement.
	shortCtx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	firstDone := make(chan error, 1)
	go func() {
		_, err := p.Await(shortCtx, 42, nil)
		firstDone <- err
	}()

	time.Sleep(10 * time.Millisecond)
	second := make(chan string, 1)
	go func() {
		text, err := p.Await(context.Background(), 42, nil)
		require.NoError(t, err)
		second <- text
	}()

	select {
	case err := <-firstDone:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(2 * time.Second):
		t.Fatal("first waiter never timed out")
	}

	require.Eventually(t, func() bool {
		return p.Deliver(42, "for the second waiter")
	}, 2*time.Second, 10*time.Millisecond)

	select {
	case text := <-second:
		assert.Equal(t, "for the second waiter", text)
	case <-time.After(2 * time.Second):
		t.Fatal("second waiter was stranded")
	}
}

func TestPendingWaiterConsumedOnce(t *testing.T) {
	p := NewPendingReplies(time.Minute)
	defer p.Stop()

	go func() { _, _ = p.Await(context.Background(), 42, nil) }()

	require.Eventually(t, func() bool {
		return p.Deliver(42, "first")
	}, 2*time.Second, 10*time.Millisecond)

	assert.False(t, p.Deliver(42, "second"))
}
