package lounge

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/xraph/lounge/delivery"
	"github.com/xraph/lounge/directory"
	"github.com/xraph/lounge/gate"
	"github.com/xraph/lounge/hub"
	"github.com/xraph/lounge/observability"
	"github.com/xraph/lounge/presenter"
	"github.com/xraph/lounge/queue"
	"github.com/xraph/lounge/registry"
	"github.com/xraph/lounge/scheduler"
	"github.com/xraph/lounge/spam"
	"github.com/xraph/lounge/transport"
)

// Lounge is the root anonymous group-relay engine.
type Lounge struct {
	config    Config
	dir       directory.Directory
	transport transport.Transport
	hub       hub.Hub
	presenter presenter.Presenter
	logger    *slog.Logger
	metrics   *observability.Metrics
	tracer    *observability.Tracer

	queue    *queue.Queue
	registry *registry.Registry
	gate     *gate.Gate
	engine   *delivery.Engine
	sched    *scheduler.Scheduler

	scores           *spam.ScoreKeeper
	signThrottle     *spam.Throttle
	upvoteThrottle   *spam.Throttle
	downvoteThrottle *spam.Throttle

	hubSets *hubCache

	cancel  context.CancelFunc
	schedWG sync.WaitGroup
	running bool
}

// New creates a new Lounge with the given options.
func New(opts ...Option) (*Lounge, error) {
	l := &Lounge{
		config:    DefaultConfig(),
		presenter: presenter.NewEnglish(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(l); err != nil {
			return nil, err
		}
	}
	if l.dir == nil {
		return nil, ErrNoDirectory
	}
	if l.transport == nil {
		return nil, ErrNoTransport
	}
	l.wireServices()
	return l, nil
}

// wireServices initializes the internal services after options have been applied.
func (l *Lounge) wireServices() {
	l.queue = queue.New()
	l.registry = registry.New(l.config.MessageTTL)
	l.sched = scheduler.New(l.logger)

	l.scores = spam.NewScoreKeeper(0, 0)
	l.signThrottle = spam.NewThrottle(l.config.SignInterval)
	l.upvoteThrottle = spam.NewThrottle(l.config.UpvoteInterval)
	l.downvoteThrottle = spam.NewThrottle(l.config.DownvoteInterval)

	var sets gate.ExternalSets
	if l.hub != nil {
		l.hubSets = &hubCache{}
		sets = l.hubSets
	}

	l.gate = gate.New(gate.Config{
		PrivilegedUsernames: l.config.PrivilegedUsernames,
		BlacklistContact:    l.config.BlacklistContact,
		RegUploads:          l.config.RegUploads,
		MediaTimeout:        l.config.MediaTimeout,
	}, l.dir, l.transport, sets, l, l.logger)

	l.engine = delivery.NewEngine(l.queue, l.registry, l.transport, l, delivery.EngineConfig{
		Workers:     l.config.Workers,
		MaxAttempts: l.config.MaxAttempts,
		MaxBackoff:  l.config.MaxBackoff,
		SendRate:    l.config.SendRate,
		Metrics:     l.metrics,
		Tracer:      l.tracer,
	}, l.logger)
}

// Start begins delivery workers and the background scheduler.
func (l *Lounge) Start(ctx context.Context) {
	if l.running {
		return
	}
	ctx, l.cancel = context.WithCancel(ctx)
	l.running = true

	l.registerSweeps()
	if l.hubSets != nil {
		l.hubSets.refresh(ctx, l.hub, l.config.Name, l.logger)
	}

	l.engine.Start(ctx)
	l.schedWG.Add(1)
	go func() {
		defer l.schedWG.Done()
		l.sched.Run(ctx)
	}()

	l.logger.InfoContext(ctx, "lounge started",
		"name", l.config.Name,
		"workers", l.config.Workers,
	)
}

// Shutdown stops delivery workers and the scheduler, waiting for in-flight
// work to finish.
func (l *Lounge) Shutdown(ctx context.Context) {
	if !l.running {
		return
	}
	l.cancel()
	l.engine.Stop(ctx)
	l.schedWG.Wait()
	l.running = false
	l.logger.InfoContext(ctx, "lounge stopped", "pending_jobs", l.queue.Len())
}

// Scheduler exposes the background task scheduler.
func (l *Lounge) Scheduler() *scheduler.Scheduler {
	return l.sched
}

// Registry exposes the message identity registry.
func (l *Lounge) Registry() *registry.Registry {
	return l.registry
}

// Directory exposes the participant directory.
func (l *Lounge) Directory() directory.Directory {
	return l.dir
}

// registerSweeps wires the periodic housekeeping tasks.
func (l *Lounge) registerSweeps() {
	ctx := context.Background()

	l.sched.Register(func(any) {
		l.scores.Decay()
	}, scheduler.Options{Name: "spam-decay", Interval: l.config.SpamInterval})

	l.sched.Register(func(any) {
		l.sweepWarnings(ctx)
	}, scheduler.Options{Name: "warn-sweep", Interval: l.config.WarnSweepInterval})

	l.sched.Register(func(any) {
		l.evictExpired(ctx)
	}, scheduler.Options{Name: "registry-evict", Interval: l.config.EvictInterval})

	if l.hubSets != nil {
		l.sched.Register(func(any) {
			l.hubSets.refresh(ctx, l.hub, l.config.Name, l.logger)
		}, scheduler.Options{Name: "hub-refresh", Interval: l.config.HubRefreshInterval})
	}
}

// sweepWarnings forgives warnings whose expiry has passed.
func (l *Lounge) sweepWarnings(ctx context.Context) {
	parts, err := l.dir.All(ctx)
	if err != nil {
		l.logger.WarnContext(ctx, "warn sweep: list participants", "error", err)
		return
	}
	now := nowUTC()
	for _, p := range parts {
		if p.Warnings == 0 || p.WarnExpiry == nil || p.WarnExpiry.After(now) {
			continue
		}
		_, err := l.dir.Modify(ctx, p.ID, func(p *directory.Participant) {
			p.RemoveWarning()
		})
		if err != nil {
			l.logger.WarnContext(ctx, "warn sweep: forgive warning",
				"participant", p.ID, "error", err)
		}
	}
}

// evictExpired drops registry records past their TTL and retracts any
// still-queued jobs for them.
func (l *Lounge) evictExpired(ctx context.Context) {
	expired := l.registry.Evict(nowUTC())
	if len(expired) == 0 {
		return
	}
	set := make(map[int64]struct{}, len(expired))
	for _, msid := range expired {
		set[msid] = struct{}{}
	}
	removed := l.queue.Delete(func(j *queue.Job) bool {
		_, ok := set[j.MSID]
		return ok
	})

	if l.metrics != nil {
		l.metrics.EvictionsTotal.Add(float64(len(expired)))
		l.metrics.RegistrySize.Set(float64(l.registry.Len()))
		l.metrics.QueueDepth.Set(float64(l.queue.Len()))
	}
	l.logger.DebugContext(ctx, "registry eviction",
		"evicted", len(expired),
		"jobs_retracted", removed,
	)
}

// ForceLeave marks the participant as left, retracts their queued
// deliveries and clears their hub record. Invoked by the gate and the
// delivery engine when a participant turns out to be unreachable.
func (l *Lounge) ForceLeave(ctx context.Context, participantID int64) {
	_, err := l.dir.Modify(ctx, participantID, func(p *directory.Participant) {
		p.SetLeft()
	})
	if err != nil && !errors.Is(err, directory.ErrNotFound) {
		l.logger.WarnContext(ctx, "force leave: mark left",
			"participant", participantID, "error", err)
	}

	removed := l.queue.Delete(func(j *queue.Job) bool {
		return j.TargetID == participantID
	})
	l.engine.ForgetRecipient(participantID)

	if l.hub != nil {
		if err := l.hub.MarkLeft(ctx, participantID, l.config.Name); err != nil {
			l.logger.WarnContext(ctx, "force leave: hub mark left",
				"participant", participantID, "error", err)
		}
	}

	l.logger.InfoContext(ctx, "participant force-left",
		"participant", participantID,
		"jobs_retracted", removed,
	)
}

// notify renders a notice and queues it for delivery to one recipient.
// Notices bypass the registry: they are not replyable, votable or
// addressable.
func (l *Lounge) notify(ctx context.Context, recipientID int64, n *presenter.Notice) {
	if n == nil {
		return
	}
	payload := transport.Payload{
		Text:   l.presenter.Render(n),
		Notice: true,
	}
	prio := directory.UnknownPriority()
	if p, err := l.dir.Get(ctx, recipientID); err == nil {
		prio = p.MessagePriority()
	}
	l.queue.Enqueue(prio, queue.NewSend(0, recipientID, 0, 0, payload))
}

// hubCache is a periodically refreshed snapshot of the hub's ban and
// active-elsewhere sets, serving the gate without per-evaluation network
// round-trips.
type hubCache struct {
	mu     sync.RWMutex
	banned hub.Set
	active hub.Set
}

var _ gate.ExternalSets = (*hubCache)(nil)

func (c *hubCache) Banned(id int64) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.banned.Contains(id)
}

func (c *hubCache) ActiveElsewhere(id int64) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.active.Contains(id)
}

// dropBan removes id from the cached ban set so a lifted ban takes
// effect before the next refresh.
func (c *hubCache) dropBan(id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.banned, id)
}

// refresh re-reads both sets; on error the previous snapshot stays.
func (c *hubCache) refresh(ctx context.Context, h hub.Hub, lounge string, logger *slog.Logger) {
	banned, err := h.BannedEverywhere(ctx)
	if err != nil {
		logger.WarnContext(ctx, "hub refresh: ban set", "error", err)
		return
	}
	active, err := h.ActiveElsewhere(ctx, lounge)
	if err != nil {
		logger.WarnContext(ctx, "hub refresh: active set", "error", err)
		return
	}
	c.mu.Lock()
	c.banned = banned
	c.active = active
	c.mu.Unlock()
}
