package mailer

import (
	"context"
	"errors"
	"expvar"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	ErrQueueFull        = errors.New("email queue is full")
	ErrDispatcherClosed = errors.New("email dispatcher is closed")
)

// Process-wide counters, published on /api/debug/vars.
var (
	emailsSent    = expvar.NewInt("emails_sent")
	emailsFailed  = expvar.NewInt("emails_failed")
	emailsDropped = expvar.NewInt("emails_dropped")
)

// DeadLetterSink receives jobs whose delivery failed.
type DeadLetterSink interface {
	Push(ctx context.Context, job EmailJob, cause error) error
}

type DispatcherOptions struct {
	Workers     int
	QueueSize   int
	SendTimeout time.Duration
	DeadLetters DeadLetterSink // optional
}

// Stats counts outcomes of a single Dispatcher.
type Stats struct {
	Sent    int64
	Failed  int64
	Dropped int64
}

// Dispatcher sends emails on a bounded in-process queue drained by a fixed set
// of workers. Enqueue never blocks the caller.
type Dispatcher struct {
	sender  Sender
	logger  *logrus.Logger
	dead    DeadLetterSink
	timeout time.Duration

	jobs chan EmailJob
	wg   sync.WaitGroup

	mu     sync.RWMutex
	closed bool

	sent, failed, dropped atomic.Int64
}

func NewDispatcher(sender Sender, logger *logrus.Logger, opts DispatcherOptions) *Dispatcher {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = 30 * time.Second
	}
	d := &Dispatcher{
		sender:  sender,
		logger:  logger,
		dead:    opts.DeadLetters,
		timeout: opts.SendTimeout,
		jobs:    make(chan EmailJob, opts.QueueSize),
	}
	d.wg.Add(opts.Workers)
	for i := 0; i < opts.Workers; i++ {
		go d.work()
	}
	return d
}

// Enqueue queues job for delivery. It returns ErrQueueFull instead of waiting
// when the queue has no room.
func (d *Dispatcher) Enqueue(ctx context.Context, job EmailJob) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrDispatcherClosed
	}
	select {
	case d.jobs <- job:
		return nil
	default:
		d.dropped.Add(1)
		emailsDropped.Add(1)
		return ErrQueueFull
	}
}

// Close stops accepting jobs and waits for queued ones to be delivered or for
// ctx to end, whichever comes first.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.jobs)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) Stats() Stats {
	return Stats{Sent: d.sent.Load(), Failed: d.failed.Load(), Dropped: d.dropped.Load()}
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for job := range d.jobs {
		d.deliver(job)
	}
}

func (d *Dispatcher) deliver(job EmailJob) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	err := Deliver(ctx, d.sender, job)
	if err == nil {
		d.sent.Add(1)
		emailsSent.Add(1)
		return
	}

	d.failed.Add(1)
	emailsFailed.Add(1)
	if d.logger != nil {
		d.logger.WithError(err).WithFields(logrus.Fields{
			"to":       job.To,
			"template": job.Template,
		}).Error("email delivery failed")
	}
	if d.dead != nil {
		pctx, pcancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer pcancel()
		if derr := d.dead.Push(pctx, job, err); derr != nil && d.logger != nil {
			d.logger.WithError(derr).Warn("failed to record dead letter")
		}
	}
}
