package events

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/PuppyCerberus/token-staking-contract/core/types"
)

const busHistoryLimit = 1024

// Envelope wraps a rendered event with its position in the bus sequence.
type Envelope struct {
	Sequence  uint64      `json:"sequence"`
	Cursor    string      `json:"cursor"`
	Timestamp int64       `json:"timestamp"`
	Event     types.Event `json:"event"`
}

// Bus fans committed events out to subscribers. Slow subscribers miss events
// rather than blocking the emitter; they can resume from a cursor while the
// event is still in the bounded history.
type Bus struct {
	mu      sync.Mutex
	seq     uint64
	nextID  uint64
	subs    map[uint64]chan Envelope
	durable map[uint64]*durableSub
	history []Envelope
	now     func() time.Time
}

// NewBus constructs an empty event bus.
func NewBus() *Bus {
	return &Bus{
		subs:    make(map[uint64]chan Envelope),
		durable: make(map[uint64]*durableSub),
		now:     time.Now,
	}
}

// Emit implements Emitter.
func (b *Bus) Emit(evt Event) {
	if b == nil || evt == nil {
		return
	}
	rendered := evt.Event()
	if rendered == nil {
		return
	}
	b.mu.Lock()
	b.seq++
	env := Envelope{
		Sequence:  b.seq,
		Cursor:    strconv.FormatUint(b.seq, 10),
		Timestamp: b.now().Unix(),
		Event:     cloneEvent(*rendered),
	}
	b.history = append(b.history, env)
	if len(b.history) > busHistoryLimit {
		excess := len(b.history) - busHistoryLimit
		trimmed := make([]Envelope, busHistoryLimit)
		copy(trimmed, b.history[excess:])
		b.history = trimmed
	}
	// Sends stay under the lock so cancel cannot close a channel mid-send.
	for _, ch := range b.subs {
		select {
		case ch <- env:
		default:
		}
	}
	for _, sub := range b.durable {
		sub.push(env)
	}
	b.mu.Unlock()
}

// Subscribe registers a subscriber and returns the events recorded after
// cursor as a backlog. The returned cancel function is idempotent and is also
// invoked when ctx ends.
func (b *Bus) Subscribe(ctx context.Context, cursor string) (<-chan Envelope, func(), []Envelope) {
	updates := make(chan Envelope, 64)

	var since uint64
	if trimmed := strings.TrimSpace(cursor); trimmed != "" {
		if parsed, err := strconv.ParseUint(trimmed, 10, 64); err == nil {
			since = parsed
		}
	}

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = updates
	backlog := make([]Envelope, 0, len(b.history))
	if since > 0 {
		for _, env := range b.history {
			if env.Sequence > since {
				backlog = append(backlog, env)
			}
		}
	}
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			if sub, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(sub)
			}
			b.mu.Unlock()
		})
	}
	if ctx != nil {
		go func() {
			<-ctx.Done()
			cancel()
		}()
	}
	return updates, cancel, backlog
}

// SubscribeDurable registers a subscriber that receives every event emitted
// after the call, in sequence order, however far it falls behind. Pending
// events queue in memory until read.
//
// The returned cancel function stops new events from being queued, delivers
// the ones already queued and then closes the channel. Ending ctx stops
// delivery at once and drops anything still queued.
func (b *Bus) SubscribeDurable(ctx context.Context) (<-chan Envelope, func()) {
	sub := &durableSub{
		wake:     make(chan struct{}, 1),
		abort:    make(chan struct{}),
		finished: make(chan struct{}),
		out:      make(chan Envelope),
	}

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.durable[id] = sub
	b.mu.Unlock()

	var detach sync.Once
	remove := func() {
		detach.Do(func() {
			b.mu.Lock()
			delete(b.durable, id)
			b.mu.Unlock()
		})
	}
	go sub.forward()

	if ctx == nil {
		ctx = context.Background()
	}
	go func() {
		select {
		case <-ctx.Done():
			remove()
			sub.stop()
		case <-sub.finished:
		}
	}()

	return sub.out, func() {
		remove()
		sub.drain()
	}
}

type durableSub struct {
	mu       sync.Mutex
	pending  []Envelope
	closing  bool
	wake     chan struct{}
	abort    chan struct{}
	stopOnce sync.Once
	finished chan struct{}
	out      chan Envelope
}

func (d *durableSub) push(env Envelope) {
	d.mu.Lock()
	d.pending = append(d.pending, env)
	d.mu.Unlock()
	d.signal()
}

func (d *durableSub) signal() {
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

func (d *durableSub) drain() {
	d.mu.Lock()
	d.closing = true
	d.mu.Unlock()
	d.signal()
}

func (d *durableSub) stop() {
	d.stopOnce.Do(func() { close(d.abort) })
}

func (d *durableSub) forward() {
	defer close(d.finished)
	defer close(d.out)
	for {
		d.mu.Lock()
		batch := d.pending
		d.pending = nil
		closing := d.closing
		d.mu.Unlock()

		for _, env := range batch {
			select {
			case d.out <- env:
			case <-d.abort:
				return
			}
		}
		if len(batch) > 0 {
			continue
		}
		if closing {
			return
		}
		select {
		case <-d.wake:
		case <-d.abort:
			return
		}
	}
}

func cloneEvent(evt types.Event) types.Event {
	attrs := make(map[string]string, len(evt.Attributes))
	for k, v := range evt.Attributes {
		attrs[k] = v
	}
	return types.Event{Type: evt.Type, Attributes: attrs}
}

// Multi forwards each event to every non-nil emitter.
type Multi []Emitter

// Emit implements Emitter.
func (m Multi) Emit(evt Event) {
	for _, emitter := range m {
		if emitter != nil {
			emitter.Emit(evt)
		}
	}
}
