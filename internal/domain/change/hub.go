// Package change fans out remote change notifications to in-process subscribers.
package change

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrSourceRequired indicates a pump cannot be constructed without a source.
var ErrSourceRequired = errors.New("change source is required")

// Well-known tables that emit notifications.
const (
	TableTenants         = "talleres"
	TableRoleAssignments = "usuarios_roles"
	TableWorkOrders      = "ordenes"
)

// Event is a change notification. It carries no diff; receivers re-fetch.
type Event struct {
	Table    string `json:"table"`
	TenantID string `json:"tenant_id"`
}

// Key identifies a subscription: one table of one tenant.
type Key struct {
	Table    string
	TenantID string
}

// Key returns the subscription key the event is delivered to.
func (e Event) Key() Key { return Key(e) }

// Hub is a keyed, coalescing broadcaster. Each subscriber channel has capacity 1;
// bursts collapse into a single pending signal.
type Hub[K comparable] struct {
	mu     sync.Mutex
	subs   map[K]map[chan struct{}]struct{}
	closed bool
}

// NewHub constructs an empty hub.
func NewHub[K comparable]() *Hub[K] {
	return &Hub[K]{subs: make(map[K]map[chan struct{}]struct{})}
}

// Subscribe registers interest in key. The returned function unsubscribes and
// closes the channel; it is safe to call more than once.
func (h *Hub[K]) Subscribe(key K) (func(), <-chan struct{}) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan struct{}, 1)
	if h.closed {
		close(ch)
		return func() {}, ch
	}
	if h.subs[key] == nil {
		h.subs[key] = make(map[chan struct{}]struct{})
	}
	h.subs[key][ch] = struct{}{}

	unsub := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		subscribers := h.subs[key]
		if _, ok := subscribers[ch]; !ok {
			return
		}
		delete(subscribers, ch)
		drainAndClose(ch)
		if len(subscribers) == 0 {
			delete(h.subs, key)
		}
	}
	return unsub, ch
}

// Publish signals every subscriber of key without blocking.
func (h *Hub[K]) Publish(key K) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.subs[key] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Subscribers returns the number of live subscriptions for key.
func (h *Hub[K]) Subscribers(key K) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[key])
}

// StopAll closes every subscription. Later subscriptions receive a closed channel.
func (h *Hub[K]) StopAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for key, subscribers := range h.subs {
		for ch := range subscribers {
			drainAndClose(ch)
		}
		delete(h.subs, key)
	}
}

// drainAndClose removes any buffered signal before closing so receivers observe
// a closed channel immediately.
func drainAndClose(ch chan struct{}) {
	for {
		select {
		case <-ch:
		default:
			close(ch)
			return
		}
	}
}

// Source delivers remote change events. Listen blocks until ctx is done or the
// underlying connection fails.
type Source interface {
	Listen(ctx context.Context, deliver func(Event)) error
}

// PumpOptions configure Pump.
type PumpOptions struct {
	Source  Source
	Hub     *Hub[Key]
	Backoff time.Duration
	// OnError is called with each listen failure before backing off.
	OnError func(error)
	// OnEvent is called for every delivered event.
	OnEvent func(Event)
}

// Pump relays events from a Source into a Hub, reconnecting with a fixed backoff.
type Pump struct {
	source  Source
	hub     *Hub[Key]
	backoff time.Duration
	onError func(error)
	onEvent func(Event)
}

// NewPump validates options and constructs a pump.
func NewPump(opts PumpOptions) (*Pump, error) {
	if opts.Source == nil {
		return nil, ErrSourceRequired
	}
	if opts.Hub == nil {
		return nil, errors.New("change hub is required")
	}
	backoff := opts.Backoff
	if backoff <= 0 {
		backoff = time.Second
	}
	return &Pump{
		source:  opts.Source,
		hub:     opts.Hub,
		backoff: backoff,
		onError: opts.OnError,
		onEvent: opts.OnEvent,
	}, nil
}

// Run blocks until ctx is cancelled.
func (p *Pump) Run(ctx context.Context) error {
	deliver := func(ev Event) {
		if p.onEvent != nil {
			p.onEvent(ev)
		}
		p.hub.Publish(ev.Key())
	}

	for ctx.Err() == nil {
		err := p.source.Listen(ctx, deliver)
		if ctx.Err() != nil {
			break
		}
		if err != nil && p.onError != nil {
			p.onError(err)
		}

		timer := time.NewTimer(p.backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
	return nil
}
