package service

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	. "github.com/go-ozzo/ozzo-validation"

	"github.com/ZertGraf/gerrit-automerge/internal/domain"
	"github.com/ZertGraf/gerrit-automerge/internal/pkg/logger"
)

// EventHandler consumes one review event.
type EventHandler interface {
	HandleEvent(ctx context.Context, e *domain.Event) error
}

// EventHandlerFunc adapts a function into an EventHandler.
type EventHandlerFunc func(ctx context.Context, e *domain.Event) error

func (f EventHandlerFunc) HandleEvent(ctx context.Context, e *domain.Event) error {
	return f(ctx, e)
}

type DispatcherConfig struct {
	QueueSize      int
	EnqueueTimeout time.Duration
}

func (c *DispatcherConfig) Validate() error {
	return ValidateStruct(c,
		Field(&c.QueueSize, Required, Min(1), Max(100000)),
		Field(&c.EnqueueTimeout, Required, Min(time.Millisecond), Max(10*time.Minute)),
	)
}

type job struct {
	ctx    context.Context
	event  *domain.Event
	result chan error
}

// Dispatcher feeds events to the handler from a single consumer goroutine, so
// no two events are ever processed at the same time. Producers block until
// their event has been handled and receive the handler's error.
type Dispatcher struct {
	handler EventHandler
	config  *DispatcherConfig
	logger  *logger.Logger
	jobs    chan job

	mu      sync.RWMutex
	running bool
	stop    chan struct{}
	done    chan struct{}
}

func NewDispatcher(handler EventHandler, config *DispatcherConfig, logger *logger.Logger) (*Dispatcher, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid dispatcher config: %w", err)
	}
	return &Dispatcher{
		handler: handler,
		config:  config,
		logger:  logger.Component("service/dispatcher"),
	}, nil
}

func (d *Dispatcher) Start(_ context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running {
		return fmt.Errorf("dispatcher already running")
	}
	d.running = true
	// a fresh queue per run: nothing accepted before a Stop survives into the next Start
	d.jobs = make(chan job, d.config.QueueSize)
	d.stop = make(chan struct{})
	d.done = make(chan struct{})

	go d.run(d.jobs, d.stop, d.done)

	d.logger.Info("event dispatcher started", "queue_size", d.config.QueueSize)
	return nil
}

// Stop lets the event in progress finish; queued events are rejected with
// domain.ErrDispatcherStopped.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return nil
	}
	d.running = false
	close(d.stop)
	done := d.done
	d.mu.Unlock()

	select {
	case <-done:
		d.logger.Info("event dispatcher stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for dispatcher: %w", ctx.Err())
	}
}

// Dispatch queues the event and waits for its result.
func (d *Dispatcher) Dispatch(ctx context.Context, e *domain.Event) error {
	d.mu.RLock()
	running, jobs, stop, done := d.running, d.jobs, d.stop, d.done
	d.mu.RUnlock()

	if !running {
		return domain.ErrDispatcherStopped
	}

	j := job{ctx: ctx, event: e, result: make(chan error, 1)}

	timer := time.NewTimer(d.config.EnqueueTimeout)
	defer timer.Stop()

	select {
	case jobs <- j:
	case <-stop:
		return domain.ErrDispatcherStopped
	case <-timer.C:
		return domain.ErrDispatcherBusy
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-j.result:
		return err
	case <-done:
		// the loop may have finished this job right before exiting
		select {
		case err := <-j.result:
			return err
		default:
			return domain.ErrDispatcherStopped
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) run(jobs chan job, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	defer rejectQueued(jobs)

	for {
		select {
		case <-stop:
			return
		default:
		}

		select {
		case j := <-jobs:
			j.result <- d.process(j)
		case <-stop:
			return
		}
	}
}

// rejectQueued answers every event still waiting in the queue with
// domain.ErrDispatcherStopped; none of them is handled.
func rejectQueued(jobs chan job) {
	for {
		select {
		case j := <-jobs:
			j.result <- domain.ErrDispatcherStopped
		default:
			return
		}
	}
}

func (d *Dispatcher) process(j job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("panic while handling event",
				"error", r,
				"stack", string(debug.Stack()))
			err = fmt.Errorf("handle %s event: panic: %v", j.event.Type, r)
		}
	}()

	// a producer giving up must not abort a half-merged group
	ctx := context.WithoutCancel(j.ctx)

	start := time.Now()
	err = d.handler.HandleEvent(ctx, j.event)

	attrs := []any{
		"event", j.event.Type,
		"project", j.event.Change.Project,
		"change", j.event.Change.Number,
		"duration_ms", time.Since(start).Milliseconds(),
	}
	if err != nil {
		d.logger.Error("event processing failed", append(attrs, "error", err)...)
		return err
	}
	d.logger.Debug("event processed", attrs...)
	return nil
}
