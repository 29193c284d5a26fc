package audit

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Config controls dispatcher buffering behavior.
type Config struct {
	Enabled    bool
	BufferSize int
	// DropIfFull makes Emit non-blocking for info events. Alerts still wait
	// up to AlertGrace for buffer space before they are dropped.
	DropIfFull bool
	AlertGrace time.Duration
	// Logger receives a Warn for every dropped alert and an Error when a
	// sink panics. Defaults to slog.Default().
	Logger *slog.Logger
}

// Dispatcher relays session events and security alerts to a sink on a
// single background goroutine. Request paths only ever enqueue.
type Dispatcher struct {
	cfg           Config
	sink          Sink
	logger        *slog.Logger
	ch            chan Event
	done          chan struct{}
	wg            sync.WaitGroup
	dropped       atomic.Uint64
	droppedAlerts atomic.Uint64
	closed        atomic.Bool
	closeOnce     sync.Once
}

// NewDispatcher starts the delivery goroutine. It returns nil when cfg is
// disabled; a nil Dispatcher accepts and discards events.
func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if cfg.AlertGrace < 0 {
		cfg.AlertGrace = 0
	}
	if sink == nil {
		sink = NoOpSink{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	d := &Dispatcher{
		cfg:    cfg,
		sink:   sink,
		logger: logger,
		ch:     make(chan Event, cfg.BufferSize),
		done:   make(chan struct{}),
	}

	d.wg.Add(1)
	go d.run()

	return d
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case event := <-d.ch:
			d.deliver(event)
		case <-d.done:
			for {
				select {
				case event := <-d.ch:
					d.deliver(event)
				default:
					return
				}
			}
		}
	}
}

// deliver isolates the loop from sink panics so one bad event cannot stop
// later alerts from being delivered.
func (d *Dispatcher) deliver(event Event) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("boardAuth: audit sink panicked", "event", event.EventType, "panic", r)
		}
	}()
	d.sink.Emit(context.Background(), event)
}

// Emit queues event for delivery.
//
// Without DropIfFull the call waits for buffer space, ctx cancellation or
// Close. With DropIfFull an info event is dropped at once when the buffer is
// full, and an alert waits at most AlertGrace before it is dropped.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil || d.closed.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	select {
	case d.ch <- event:
		return
	case <-d.done:
		return
	default:
	}

	if !d.cfg.DropIfFull {
		select {
		case d.ch <- event:
		case <-ctx.Done():
			d.drop(event)
		case <-d.done:
		}
		return
	}

	if event.Severity == SeverityAlert && d.cfg.AlertGrace > 0 {
		timer := time.NewTimer(d.cfg.AlertGrace)
		defer timer.Stop()
		select {
		case d.ch <- event:
			return
		case <-d.done:
			return
		case <-ctx.Done():
		case <-timer.C:
		}
	}
	d.drop(event)
}

func (d *Dispatcher) drop(event Event) {
	d.dropped.Add(1)
	if event.Severity != SeverityAlert {
		return
	}
	d.droppedAlerts.Add(1)
	d.logger.Warn("boardAuth: audit buffer full, alert dropped",
		"event", event.EventType,
		"member_id", event.MemberID,
	)
}

// Close stops accepting events, drains the buffer and waits for the
// delivery goroutine. It is safe to call more than once.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.done)
		d.wg.Wait()
	})
}

// Dropped counts every event that never reached the buffer.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

// DroppedAlerts counts the alert-severity subset of Dropped.
func (d *Dispatcher) DroppedAlerts() uint64 {
	if d == nil {
		return 0
	}
	return d.droppedAlerts.Load()
}
