// Package delivery implements the worker pool that drains the delivery
// queue against the transport.
//
// Workers pop jobs in priority order and perform the wire call with
// bounded in-place retry on rate limiting. A rate-limit sleep stalls only
// the worker holding the job; other workers and the queue keep moving.
package delivery

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/xraph/lounge/observability"
	"github.com/xraph/lounge/queue"
	"github.com/xraph/lounge/ratelimit"
	"github.com/xraph/lounge/registry"
	"github.com/xraph/lounge/transport"
)

// LeaveEnforcer applies the forced-leave side effect for recipients the
// transport reports as permanently unreachable. Implementations must also
// retract the participant's remaining queued deliveries.
type LeaveEnforcer interface {
	ForceLeave(ctx context.Context, participantID int64)
}

// EngineConfig holds worker pool configuration.
type EngineConfig struct {
	// Workers is the number of delivery worker goroutines (default 1).
	Workers int

	// MaxAttempts bounds rate-limit retries per job.
	MaxAttempts int

	// MaxBackoff caps each rate-limit wait.
	MaxBackoff time.Duration

	// SendRate paces outbound sends per recipient (sends per second).
	// Zero disables proactive pacing; the transport's own rate-limit
	// errors still drive reactive backoff.
	SendRate int

	Metrics *observability.Metrics
	Tracer  *observability.Tracer
}

// Engine is the delivery worker pool.
type Engine struct {
	q       *queue.Queue
	reg     *registry.Registry
	tp      transport.Transport
	leaver  LeaveEnforcer
	retrier *Retrier
	limiter *ratelimit.Limiter
	config  EngineConfig
	logger  *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup

	// sleep is swapped out in tests.
	sleep func(ctx context.Context, d time.Duration)
}

// NewEngine creates a delivery engine.
func NewEngine(q *queue.Queue, reg *registry.Registry, tp transport.Transport, leaver LeaveEnforcer, cfg EngineConfig, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &Engine{
		q:       q,
		reg:     reg,
		tp:      tp,
		leaver:  leaver,
		retrier: NewRetrier(cfg.MaxAttempts, cfg.MaxBackoff),
		limiter: ratelimit.New(cfg.SendRate),
		config:  cfg,
		logger:  logger,
		sleep:   sleepCtx,
	}
}

// Start launches the delivery workers.
func (e *Engine) Start(ctx context.Context) {
	ctx, e.cancel = context.WithCancel(ctx)

	for i := 0; i < e.config.Workers; i++ {
		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			e.worker(ctx)
		}()
	}
}

// Stop cancels the workers and waits for in-flight deliveries to finish.
func (e *Engine) Stop(_ context.Context) {
	if e.cancel != nil {
		e.cancel()
	}
	e.wg.Wait()
}

// ForgetRecipient drops the pacing state of a departed recipient.
func (e *Engine) ForgetRecipient(recipientID int64) {
	e.limiter.Forget(recipientID)
}

// worker drains the queue until the context is cancelled.
func (e *Engine) worker(ctx context.Context) {
	for {
		job, err := e.q.Dequeue(ctx)
		if err != nil {
			return // context cancelled
		}
		e.process(ctx, job)

		if e.config.Metrics != nil {
			e.config.Metrics.QueueDepth.Set(float64(e.q.Len()))
		}
	}
}

// process handles one popped job. Eligibility is NOT re-checked here: the
// gate decided at enqueue time and staleness is tolerated by design.
func (e *Engine) process(ctx context.Context, job *queue.Job) {
	var span trace.Span
	if e.config.Tracer != nil {
		ctx, span = e.config.Tracer.StartDeliverySpan(ctx, job.ID.String(), job.MSID, job.TargetID)
	}

	switch job.Kind {
	case queue.KindSend:
		attempts, outcome := e.send(ctx, job)
		if span != nil {
			e.config.Tracer.EndDeliverySpan(span, attempts, outcome)
		}
	case queue.KindDelete:
		attempts, outcome := e.delete(ctx, job)
		if span != nil {
			e.config.Tracer.EndDeliverySpan(span, attempts, outcome)
		}
	}
}

// send delivers a payload, retrying the same job in place on rate limits.
func (e *Engine) send(ctx context.Context, job *queue.Job) (attempts int, outcome string) {
	payload := job.Payload
	if job.ReplyToMSID != 0 {
		// Retarget the reply onto the recipient's own copy; deliver
		// unthreaded if the mapping is gone.
		if mid, ok := e.reg.MappingFor(job.ReplyToMSID, job.TargetID); ok {
			payload.ReplyTo = mid
		}
	}

	for {
		if err := e.limiter.Wait(ctx, job.TargetID); err != nil {
			return attempts, "cancelled"
		}
		attempts++
		start := time.Now()
		mid, err := e.tp.Send(ctx, job.TargetID, payload)
		latency := time.Since(start).Seconds()

		if err == nil {
			e.reg.RecordMapping(job.MSID, job.TargetID, mid)
			if e.config.Metrics != nil {
				e.config.Metrics.RecordDelivery("delivered", latency)
			}
			e.logger.DebugContext(ctx, "delivered",
				"job_id", job.ID, "msid", job.MSID, "target", job.TargetID, "attempts", attempts)
			return attempts, "delivered"
		}

		switch e.retrier.Decide(err, attempts) {
		case Retry:
			wait := e.retrier.Backoff(err)
			if e.config.Metrics != nil {
				e.config.Metrics.RetriesTotal.Inc()
				e.config.Metrics.RecordDelivery("retried", latency)
			}
			e.logger.WarnContext(ctx, "rate limited, retrying in place",
				"job_id", job.ID, "target", job.TargetID, "wait", wait, "attempt", attempts)
			e.sleep(ctx, wait)
			if ctx.Err() != nil {
				return attempts, "cancelled"
			}

		case DropUnreachable:
			if e.config.Metrics != nil {
				e.config.Metrics.RecordDelivery("unreachable", latency)
			}
			e.logger.InfoContext(ctx, "recipient unreachable, forcing leave",
				"job_id", job.ID, "target", job.TargetID)
			if e.leaver != nil {
				e.leaver.ForceLeave(ctx, job.TargetID)
			}
			return attempts, "unreachable"

		case Drop:
			if e.config.Metrics != nil {
				e.config.Metrics.RecordDelivery("failed", latency)
			}
			e.logger.ErrorContext(ctx, "delivery failed",
				"job_id", job.ID, "msid", job.MSID, "target", job.TargetID, "error", err)
			return attempts, "failed"
		}
	}
}

// delete removes an already-delivered message. Failures other than rate
// limits are logged and ignored.
func (e *Engine) delete(ctx context.Context, job *queue.Job) (attempts int, outcome string) {
	for {
		if err := e.limiter.Wait(ctx, job.TargetID); err != nil {
			return attempts, "cancelled"
		}
		attempts++
		err := e.tp.DeleteMessage(ctx, job.TargetID, job.DeleteMID)
		if err == nil {
			return attempts, "deleted"
		}

		if e.retrier.Decide(err, attempts) == Retry {
			e.sleep(ctx, e.retrier.Backoff(err))
			if ctx.Err() != nil {
				return attempts, "cancelled"
			}
			continue
		}

		e.logger.WarnContext(ctx, "remote delete failed",
			"job_id", job.ID, "target", job.TargetID, "error", err)
		return attempts, "failed"
	}
}

// sleepCtx sleeps for d or until ctx is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
