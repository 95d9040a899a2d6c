package clientsync

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrInactive = errors.New("clientsync: region is not active")

// Region is one view that renders an unread badge, e.g. the chat list or the
// notification bell in the header.
//
// While active it polls the server, publishes each fresh total on the bus,
// and takes totals published by sibling regions for the same topic.
// Every activation gets a new generation; a fetch started under an older
// generation never applies its result.
type Region struct {
	name     string
	topic    Topic
	bus      *Bus
	interval time.Duration
	fetch    FetchFunc

	// render serializes accepting a total and the OnChange callback
	// with Deactivate. Taken before mu.
	render sync.Mutex

	mu          sync.Mutex
	active      bool
	generation  uint64
	cancel      context.CancelFunc
	unsubscribe func()
	total       int64
	known       bool
	onChange    func(total int64)
}

func NewRegion(name string, topic Topic, bus *Bus, interval time.Duration, fetch FetchFunc) *Region {
	return &Region{name: name, topic: topic, bus: bus, interval: interval, fetch: fetch}
}

// OnChange sets the callback fired each time the region accepts a total.
// Once Deactivate returns the callback is not running and will not fire again
// until the next Activate. The callback must not call Deactivate.
func (r *Region) OnChange(fn func(total int64)) {
	r.mu.Lock()
	r.onChange = fn
	r.mu.Unlock()
}

func (r *Region) Activate(ctx context.Context) {
	r.mu.Lock()
	if r.active {
		r.mu.Unlock()
		return
	}
	r.active = true
	r.generation++
	gen := r.generation

	pollCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.unsubscribe = r.bus.Subscribe(r.topic, func(ev UnreadEvent) {
		if ev.Source == r.name {
			return
		}
		r.apply(gen, ev.Total, false)
	})
	r.mu.Unlock()

	if last, ok := r.bus.Last(r.topic); ok {
		r.apply(gen, last, false)
	}

	poller := &Poller{
		Name:     r.name,
		Interval: r.interval,
		Fetch:    r.fetch,
		Apply:    func(total int64) { r.apply(gen, total, true) },
	}
	go poller.Run(pollCtx)
}

// Deactivate stops polling and listening. It does not wait for an in-flight
// fetch; that fetch's result is discarded.
func (r *Region) Deactivate() {
	r.render.Lock()
	defer r.render.Unlock()
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.active {
		return
	}
	r.active = false
	r.generation++
	r.cancel()
	r.unsubscribe()
}

// Refresh fetches immediately, e.g. right after the user opened a conversation.
func (r *Region) Refresh(ctx context.Context) error {
	r.mu.Lock()
	active, gen := r.active, r.generation
	r.mu.Unlock()
	if !active {
		return ErrInactive
	}

	total, err := r.fetch(ctx)
	if err != nil {
		return err
	}
	r.apply(gen, total, true)
	return nil
}

// Total returns the last total the region accepted.
func (r *Region) Total() (int64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.total, r.known
}

func (r *Region) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

func (r *Region) apply(gen uint64, total int64, fetched bool) {
	r.render.Lock()
	r.mu.Lock()
	if !r.active || gen != r.generation {
		r.mu.Unlock()
		r.render.Unlock()
		return
	}
	r.total = total
	r.known = true
	onChange := r.onChange
	r.mu.Unlock()

	if onChange != nil {
		onChange(total)
	}
	r.render.Unlock()

	// 发布放在 render 之外，兄弟区域的回调不会与本区域互相等待
	if fetched {
		r.bus.Publish(UnreadEvent{Topic: r.topic, Total: total, Source: r.name})
	}
}
