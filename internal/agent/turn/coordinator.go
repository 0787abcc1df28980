// Package turn serializes message processing per lead. It guarantees
// strict FIFO execution per phone key, coalesces message bursts within a
// debounce window into one downstream turn, and drops provider redeliveries
// via a bounded TTL dedup set. Different keys proceed fully in parallel.
package turn

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	logx "github.com/dealerflow-core/server/pkg/logger"
)

// Message is one inbound provider message.
type Message struct {
	ID         string
	Phone      string
	Text       string
	ReceivedAt time.Time
}

// Handler processes one coalesced turn. Messages arrive in submission
// order. A handler error is logged and swallowed: it must never block the
// key's chain for later turns.
type Handler func(ctx context.Context, phone string, turnID string, msgs []Message) error

// Config tunes the coordinator.
type Config struct {
	DebounceWindow time.Duration
	DedupTTL       time.Duration
	DedupMax       int
}

// Task is one unit of chained per-key work.
type Task func(ctx context.Context)

// Coordinator owns all process-wide serialization state. Instantiate one
// per process (or per test); Close tears it down.
type Coordinator struct {
	cfg     Config
	handler Handler

	mu      sync.Mutex
	tails   map[string]chan struct{} // completion signal of the last chained task per key
	buffers map[string]*keyBuffer
	drains  map[string]bool // per-key drain lock
	closed  bool

	seen *dedupSet
	wg   sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc
}

type keyBuffer struct {
	msgs  []Message
	timer *time.Timer
}

// NewCoordinator builds a coordinator delivering coalesced turns to handler.
func NewCoordinator(cfg Config, handler Handler) *Coordinator {
	if cfg.DebounceWindow <= 0 {
		cfg.DebounceWindow = 2 * time.Second
	}
	if cfg.DedupTTL <= 0 {
		cfg.DedupTTL = 20 * time.Minute
	}
	if cfg.DedupMax <= 0 {
		cfg.DedupMax = 5000
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator{
		cfg:     cfg,
		handler: handler,
		tails:   make(map[string]chan struct{}),
		buffers: make(map[string]*keyBuffer),
		drains:  make(map[string]bool),
		seen:    newDedupSet(cfg.DedupTTL, cfg.DedupMax),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Submit accepts one inbound message. Duplicates within the dedup TTL are
// dropped; the first message of a burst arms the debounce timer and later
// ones within the window join the same buffer.
func (c *Coordinator) Submit(msg Message) {
	if msg.ID != "" && !c.MarkSeen(msg.ID) {
		logx.Debug().
			Str("component", "turn_coordinator").
			Str("message_id", msg.ID).
			Msg("duplicate delivery dropped")
		return
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	buf, ok := c.buffers[msg.Phone]
	if !ok {
		buf = &keyBuffer{}
		c.buffers[msg.Phone] = buf
	}
	buf.msgs = append(buf.msgs, msg)
	if buf.timer == nil {
		key := msg.Phone
		buf.timer = time.AfterFunc(c.cfg.DebounceWindow, func() {
			c.Enqueue(key, func(ctx context.Context) { c.drain(ctx, key) })
		})
	}
	c.mu.Unlock()
}

// MarkSeen records a provider message id and reports whether it was new.
func (c *Coordinator) MarkSeen(id string) bool {
	return c.seen.markSeen(id, time.Now())
}

// Enqueue chains a task onto the key's FIFO tail. The task awaits the
// previous one (whose failure is swallowed) before running, so side effects
// for a key execute in submission order.
func (c *Coordinator) Enqueue(key string, task Task) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	prev := c.tails[key]
	done := make(chan struct{})
	c.tails[key] = done
	c.wg.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.wg.Done()
		defer close(done)
		if prev != nil {
			<-prev
		}
		defer func() {
			if r := recover(); r != nil {
				logx.Error().
					Str("component", "turn_coordinator").
					Str("key", key).
					Msgf("task panic recovered: %v", r)
			}
			// prune the tail entry once the chain is quiescent
			c.mu.Lock()
			if c.tails[key] == done {
				delete(c.tails, key)
			}
			c.mu.Unlock()
		}()
		task(c.ctx)
	}()
}

// drain flushes the key's buffer through the handler. An overlapping
// trigger that finds the drain lock held skips: it never processes twice.
// The lock is released on every exit path.
func (c *Coordinator) drain(ctx context.Context, key string) {
	c.mu.Lock()
	if c.drains[key] {
		c.mu.Unlock()
		return
	}
	c.drains[key] = true
	buf := c.buffers[key]
	delete(c.buffers, key)
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.drains, key)
		c.mu.Unlock()
	}()

	if buf == nil || len(buf.msgs) == 0 {
		return
	}
	if buf.timer != nil {
		buf.timer.Stop()
	}

	turnID := uuid.NewString()
	logx.Debug().
		Str("component", "turn_coordinator").
		Str("phone", key).
		Str("turn_id", turnID).
		Int("messages", len(buf.msgs)).
		Msg("draining coalesced turn")

	if err := c.handler(ctx, key, turnID, buf.msgs); err != nil {
		logx.Error().Err(err).
			Str("component", "turn_coordinator").
			Str("phone", key).
			Str("turn_id", turnID).
			Msg("turn handler failed")
	}
}

// Flush forces the pending buffer of a key onto its chain without waiting
// for the debounce timer. Used by tests and teardown.
func (c *Coordinator) Flush(key string) {
	c.mu.Lock()
	buf := c.buffers[key]
	if buf != nil && buf.timer != nil {
		buf.timer.Stop()
		buf.timer = nil
	}
	c.mu.Unlock()
	if buf != nil {
		c.Enqueue(key, func(ctx context.Context) { c.drain(ctx, key) })
	}
}

// Close stops accepting work, cancels in-flight handler contexts not yet
// started, and waits for chained tasks to finish.
func (c *Coordinator) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	for _, buf := range c.buffers {
		if buf.timer != nil {
			buf.timer.Stop()
		}
	}
	c.buffers = make(map[string]*keyBuffer)
	c.mu.Unlock()

	c.wg.Wait()
	c.cancel()
}
