package turn

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() Config {
	return Config{
		DebounceWindow: 20 * time.Millisecond,
		DedupTTL:       time.Minute,
		DedupMax:       100,
	}
}

// recorder collects handler invocations.
type recorder struct {
	mu    sync.Mutex
	calls [][]Message
}

func (r *recorder) handler(_ context.Context, _ string, _ string, msgs []Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, msgs)
	return nil
}

func (r *recorder) snapshot() [][]Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([][]Message, len(r.calls))
	copy(out, r.calls)
	return out
}

func TestEnqueueRunsTasksInSubmissionOrder(t *testing.T) {
	c := NewCoordinator(testConfig(), func(context.Context, string, string, []Message) error { return nil })

	var mu sync.Mutex
	var got []int
	for i := 0; i < 200; i++ {
		i := i
		c.Enqueue("key", func(context.Context) {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
		})
	}
	c.Close()

	require.Len(t, got, 200)
	for i, v := range got {
		assert.Equal(t, i, v)
	}
}

func TestDifferentKeysRunInParallel(t *testing.T) {
	c := NewCoordinator(testConfig(), func(context.Context, string, string, []Message) error { return nil })
	defer c.Close()

	blockA := make(chan struct{})
	bDone := make(chan struct{})

	c.Enqueue("phone-a", func(context.Context) { <-blockA })
	c.Enqueue("phone-b", func(context.Context) { close(bDone) })

	select {
	case <-bDone:
		// phone-b progressed while phone-a is blocked
	case <-time.After(time.Second):
		t.Fatal("task for a different key was blocked by another key's chain")
	}
	close(blockA)
}

func TestPanickingTaskDoesNotBlockTheChain(t *testing.T) {
	c := NewCoordinator(testConfig(), func(context.Context, string, string, []Message) error { return nil })

	ran := false
	c.Enqueue("key", func(context.Context) { panic("boom") })
	c.Enqueue("key", func(context.Context) { ran = true })
	c.Close()

	assert.True(t, ran, "a failed task must not block later turns")
}

func TestBurstIsCoalescedIntoOneTurn(t *testing.T) {
	rec := &recorder{}
	c := NewCoordinator(testConfig(), rec.handler)
	defer c.Close()

	for i := 0; i < 3; i++ {
		c.Submit(Message{
			ID:    fmt.Sprintf("msg-%d", i),
			Phone: "+5511000",
			Text:  fmt.Sprintf("parte %d", i),
		})
	}

	require.Eventually(t, func() bool { return len(rec.snapshot()) == 1 }, time.Second, 5*time.Millisecond)

	calls := rec.snapshot()
	require.Len(t, calls, 1, "three messages inside the window make one turn")
	require.Len(t, calls[0], 3)
	for i, m := range calls[0] {
		assert.Equal(t, fmt.Sprintf("parte %d", i), m.Text, "order preserved inside the turn")
	}
}

func TestDuplicateMessageIDDropped(t *testing.T) {
	rec := &recorder{}
	c := NewCoordinator(testConfig(), rec.handler)
	defer c.Close()

	c.Submit(Message{ID: "dup-1", Phone: "+5511001", Text: "oi"})
	c.Submit(Message{ID: "dup-1", Phone: "+5511001", Text: "oi"})

	require.Eventually(t, func() bool { return len(rec.snapshot()) == 1 }, time.Second, 5*time.Millisecond)
	calls := rec.snapshot()
	require.Len(t, calls, 1)
	assert.Len(t, calls[0], 1, "redelivery within the TTL is processed once")
}

func TestHandlerErrorDoesNotBlockNextTurn(t *testing.T) {
	var mu sync.Mutex
	var turns int
	c := NewCoordinator(testConfig(), func(_ context.Context, _ string, _ string, _ []Message) error {
		mu.Lock()
		defer mu.Unlock()
		turns++
		if turns == 1 {
			return errors.New("downstream failed")
		}
		return nil
	})
	defer c.Close()

	c.Submit(Message{ID: "e-1", Phone: "+5511002", Text: "primeira"})
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return turns == 1
	}, time.Second, 5*time.Millisecond)

	c.Submit(Message{ID: "e-2", Phone: "+5511002", Text: "segunda"})
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return turns == 2
	}, time.Second, 5*time.Millisecond)
}

func TestTurnsForSameKeyObserveSubmissionOrder(t *testing.T) {
	var mu sync.Mutex
	var order []string
	c := NewCoordinator(testConfig(), func(_ context.Context, _ string, _ string, msgs []Message) error {
		mu.Lock()
		defer mu.Unlock()
		for _, m := range msgs {
			order = append(order, m.Text)
		}
		return nil
	})
	defer c.Close()

	for i := 0; i < 5; i++ {
		c.Submit(Message{ID: fmt.Sprintf("o-%d", i), Phone: "+5511003", Text: fmt.Sprintf("%d", i)})
		c.Flush("+5511003")
	}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(order) == 5
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"0", "1", "2", "3", "4"}, order)
}
