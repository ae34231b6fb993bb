// Package notifier decouples event publishing from the request path. Events
// are queued to a bounded buffer and forwarded to the configured sink by a
// single background worker; when the buffer is full the event is dropped
// with a warning rather than stalling a mission transition.
package notifier

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/crocebianca-ops/fleet-missions-api/internal/ports/out/events"
)

const defaultBufferSize = 64

// Dispatcher is an async events.Publisher wrapping a downstream sink.
type Dispatcher struct {
	sink events.Publisher
	log  *zap.Logger

	queue chan events.Event
	stop  chan struct{}
	wg    sync.WaitGroup

	// SendTimeout bounds each downstream publish so a hung sink cannot
	// wedge the worker.
	SendTimeout time.Duration
}

func NewDispatcher(sink events.Publisher, log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	d := &Dispatcher{
		sink:        sink,
		log:         log,
		queue:       make(chan events.Event, defaultBufferSize),
		stop:        make(chan struct{}),
		SendTimeout: 5 * time.Second,
	}
	d.wg.Add(1)
	go d.run()
	return d
}

// Publish queues the event without blocking. The request context is not
// carried into delivery: the transition has already committed by the time
// the event reaches the sink.
func (d *Dispatcher) Publish(_ context.Context, ev events.Event) {
	select {
	case d.queue <- ev:
	default:
		d.log.Warn("event buffer full, dropping event",
			zap.String("type", string(ev.Type)),
			zap.String("missionId", string(ev.MissionID)),
		)
	}
}

// Close drains the queue and stops the worker. Events still queued are
// delivered before Close returns.
func (d *Dispatcher) Close() {
	close(d.stop)
	d.wg.Wait()
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for {
		select {
		case ev := <-d.queue:
			d.deliver(ev)
		case <-d.stop:
			for {
				select {
				case ev := <-d.queue:
					d.deliver(ev)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) deliver(ev events.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), d.SendTimeout)
	defer cancel()
	d.sink.Publish(ctx, ev)
}
