// Package eventbus implements a bounded, single-dispatcher publish/subscribe
// queue. It intentionally trades delivery guarantees for producer latency:
// a full queue drops rather than blocks, so the matching hot path never
// waits on slow subscribers.
package eventbus

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"

	"matchcore/internal/common"
)

// DefaultCapacity is the default bounded-queue size.
const DefaultCapacity = 10_000

// shutdownJoinTimeout bounds how long Shutdown waits for the dispatcher to
// drain before giving up and reporting anyway.
const shutdownJoinTimeout = 500 * time.Millisecond

// Subscriber is invoked by the dispatcher for every event of a kind it
// registered for. Panics are recovered and logged; they never reach other
// subscribers or stop the dispatcher.
type Subscriber func(common.Event)

// Bus is a single-producer-safe, single-dispatcher pub/sub queue.
type Bus struct {
	queue chan common.Event

	subMu sync.RWMutex
	subs  map[common.EventKind][]Subscriber

	dropped atomic.Int64

	t *tomb.Tomb
}

// New constructs a Bus with the given bounded capacity and starts its
// dispatcher goroutine. capacity <= 0 selects DefaultCapacity.
func New(capacity int) *Bus {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	b := &Bus{
		queue: make(chan common.Event, capacity),
		subs:  make(map[common.EventKind][]Subscriber),
		t:     new(tomb.Tomb),
	}
	b.t.Go(b.dispatch)
	return b
}

// Subscribe registers fn to be invoked for every event of kind, in
// subscription order relative to other subscribers of the same kind.
func (b *Bus) Subscribe(kind common.EventKind, fn func(common.Event)) {
	b.subMu.Lock()
	defer b.subMu.Unlock()
	b.subs[kind] = append(b.subs[kind], fn)
}

// Publish offers event onto the queue without blocking. If the queue is
// full, the event is dropped and the dropped-event counter is
// incremented — the hot matching path must never block on slow
// consumers.
func (b *Bus) Publish(event common.Event) {
	select {
	case b.queue <- event:
	default:
		b.dropped.Add(1)
	}
}

// Dropped returns the number of events dropped for queue overflow so far.
func (b *Bus) Dropped() int64 {
	return b.dropped.Load()
}

// dispatch is the single background dispatcher: it pulls events in FIFO
// order and invokes every subscriber registered for that kind. When the
// queue is empty and the bus is still running it sleeps briefly rather
// than spinning, since aggregate latency is bounded by drain rate, not
// per-event latency.
func (b *Bus) dispatch() error {
	for {
		select {
		case <-b.t.Dying():
			b.drain()
			return nil
		case event := <-b.queue:
			b.deliver(event)
		case <-time.After(time.Millisecond):
			// idle tick; loop back around to check for shutdown/events.
		}
	}
}

// drain delivers whatever remains in the queue once shutdown has been
// requested, so Shutdown's bounded join sees a fully flushed queue when
// it completes within the timeout.
func (b *Bus) drain() {
	for {
		select {
		case event := <-b.queue:
			b.deliver(event)
		default:
			return
		}
	}
}

func (b *Bus) deliver(event common.Event) {
	b.subMu.RLock()
	subs := b.subs[event.Kind]
	b.subMu.RUnlock()

	for _, sub := range subs {
		b.invoke(sub, event)
	}
}

// invoke calls a subscriber, recovering and logging any panic so it never
// affects subsequent subscribers or events.
func (b *Bus) invoke(sub Subscriber, event common.Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Any("panic", r).
				Str("kind", event.Kind.String()).
				Msg("event bus subscriber panicked")
		}
	}()
	sub(event)
}

// Shutdown stops the dispatcher, waits (bounded) for it to drain the
// queue, and returns the number of events dropped over the bus's
// lifetime. Publish is not disabled: events published after Shutdown are
// queued (or dropped when the queue is full) but never delivered.
func (b *Bus) Shutdown() int64 {
	b.t.Kill(nil)

	select {
	case <-b.t.Dead():
	case <-time.After(shutdownJoinTimeout):
		log.Warn().Msg("event bus dispatcher did not exit within bounded join")
	}

	dropped := b.Dropped()
	log.Info().Int64("dropped", dropped).Msg("event bus shut down")
	return dropped
}
