package queue

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/msblog/userpost-system/internal/api/metrics"
	"github.com/msblog/userpost-system/internal/core/domain"
	"github.com/msblog/userpost-system/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
)

// Job is one cascade notification waiting to be applied. Done, when set, is
// called by the worker with the handling result.
type Job struct {
	MessageID    string
	Notification domain.UserDeleted
	Done         func(ctx context.Context, err error)
}

// Dispatcher routes cascade notifications to a fixed set of workers sharded by
// user id, so notifications for one user are applied in arrival order.
type Dispatcher struct {
	workers []chan Job
	handler ports.CascadeHandler
	log     zerolog.Logger
	wg      sync.WaitGroup
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, handler ports.CascadeHandler, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan Job, numWorkers),
		handler: handler,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan Job, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled;
// Wait blocks until they have.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Enqueue sends a job to the worker responsible for its user id. It blocks
// while that worker's channel is full and gives up when ctx is cancelled.
func (d *Dispatcher) Enqueue(ctx context.Context, job Job) error {
	idx := d.shardIndex(job.Notification.UserID)
	select {
	case d.workers[idx] <- job:
		metrics.CascadeQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// shardIndex maps a user id deterministically to a worker index.
func (d *Dispatcher) shardIndex(userID int64) int {
	n := int64(len(d.workers))
	idx := userID % n
	if idx < 0 {
		idx += n
	}
	return int(idx)
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan Job) {
	defer d.wg.Done()
	label := strconv.Itoa(id)

	for {
		select {
		case <-ctx.Done():
			return
		case job := <-ch:
			metrics.CascadeQueueDepth.WithLabelValues(label).Set(float64(len(ch)))

			start := time.Now()
			err := d.process(ctx, job)
			result := "ok"
			if err != nil {
				result = "error"
				d.log.Error().Err(err).
					Int64("user_id", job.Notification.UserID).
					Str("message_id", job.MessageID).
					Int("worker_id", id).
					Msg("cascade processing failed")
			}
			metrics.CascadeProcessingDuration.WithLabelValues(result).Observe(time.Since(start).Seconds())

			if job.Done != nil {
				job.Done(ctx, err)
			}
		}
	}
}

var errHandlerPanic = errors.New("cascade handler panicked")

// process runs the handler, turning a panic into an error so one bad
// notification cannot take the worker down.
func (d *Dispatcher) process(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", errHandlerPanic, r)
		}
	}()
	return d.handler.HandleUserDeleted(ctx, job.Notification)
}
