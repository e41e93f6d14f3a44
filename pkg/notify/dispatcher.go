package notify

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/kurthamm/flighttrak-enhanced-sub000/pkg/alert"
)

// dispatchTimeout bounds a single sink delivery so one slow destination
// cannot stall the queue indefinitely.
const dispatchTimeout = 15 * time.Second

// Dispatcher decouples alert delivery from the poll loop: the loop
// enqueues and moves on, a worker goroutine fans each alert out to every
// sink. Sink failures are logged and dropped, never retried here.
type Dispatcher struct {
	sinks  []Sink
	queue  chan alert.Alert
	logger zerolog.Logger
	wg     sync.WaitGroup

	mu      sync.Mutex
	dropped int
}

// NewDispatcher creates a dispatcher with a bounded queue.
func NewDispatcher(sinks []Sink, queueSize int, logger zerolog.Logger) *Dispatcher {
	if queueSize < 1 {
		queueSize = 64
	}
	return &Dispatcher{
		sinks:  sinks,
		queue:  make(chan alert.Alert, queueSize),
		logger: logger.With().Str("component", "dispatcher").Logger(),
	}
}

// Enqueue hands an alert to the delivery worker without blocking. When
// the queue is full the alert is dropped and counted; a full queue means
// every sink is already struggling.
func (d *Dispatcher) Enqueue(a alert.Alert) bool {
	select {
	case d.queue <- a:
		return true
	default:
		d.mu.Lock()
		d.dropped++
		d.mu.Unlock()
		d.logger.Warn().Str("alert_id", a.ID).Msg("Dispatch queue full, dropping alert")
		return false
	}
}

// Dropped returns how many alerts were discarded due to a full queue.
func (d *Dispatcher) Dropped() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dropped
}

// Run delivers queued alerts until the context is canceled, then drains
// whatever is still queued best-effort before returning.
func (d *Dispatcher) Run(ctx context.Context) {
	d.wg.Add(1)
	defer d.wg.Done()

	for {
		select {
		case a := <-d.queue:
			d.deliver(a)
		case <-ctx.Done():
			d.drain()
			return
		}
	}
}

// drain flushes the remaining queue after shutdown begins.
func (d *Dispatcher) drain() {
	for {
		select {
		case a := <-d.queue:
			d.deliver(a)
		default:
			return
		}
	}
}

// Wait blocks until the delivery worker has stopped.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) deliver(a alert.Alert) {
	ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
	defer cancel()

	for _, sink := range d.sinks {
		if err := sink.Send(ctx, a); err != nil {
			d.logger.Error().
				Err(err).
				Str("sink", sink.Name()).
				Str("alert_id", a.ID).
				Str("aircraft_id", a.AircraftID).
				Msg("Alert dispatch failed")
			continue
		}
		d.logger.Debug().
			Str("sink", sink.Name()).
			Str("alert_id", a.ID).
			Msg("Alert dispatched")
	}
}
