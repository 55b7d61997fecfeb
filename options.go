package lounge

import (
	"log/slog"
	"time"

	"github.com/xraph/lounge/directory"
	"github.com/xraph/lounge/hub"
	"github.com/xraph/lounge/observability"
	"github.com/xraph/lounge/presenter"
	"github.com/xraph/lounge/transport"
)

// Option configures a Lounge instance.
type Option func(*Lounge) error

// WithDirectory sets the participant directory backend.
func WithDirectory(d directory.Directory) Option {
	return func(l *Lounge) error {
		l.dir = d
		return nil
	}
}

// WithTransport sets the chat transport.
func WithTransport(t transport.Transport) Option {
	return func(l *Lounge) error {
		l.transport = t
		return nil
	}
}

// WithHub connects the lounge to a shared cross-lounge hub.
func WithHub(h hub.Hub) Option {
	return func(l *Lounge) error {
		l.hub = h
		return nil
	}
}

// WithPresenter sets the notice presenter. Defaults to the built-in
// English presenter.
func WithPresenter(p presenter.Presenter) Option {
	return func(l *Lounge) error {
		l.presenter = p
		return nil
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Lounge) error {
		l.logger = logger
		return nil
	}
}

// WithMetrics sets the metric instruments.
func WithMetrics(m *observability.Metrics) Option {
	return func(l *Lounge) error {
		l.metrics = m
		return nil
	}
}

// WithTracer sets the delivery span tracer.
func WithTracer(t *observability.Tracer) Option {
	return func(l *Lounge) error {
		l.tracer = t
		return nil
	}
}

// WithConfig replaces the entire configuration.
func WithConfig(cfg Config) Option {
	return func(l *Lounge) error {
		l.config = cfg
		return nil
	}
}

// WithName sets the lounge's name on the shared hub.
func WithName(name string) Option {
	return func(l *Lounge) error {
		l.config.Name = name
		return nil
	}
}

// WithWorkers sets the number of delivery worker goroutines.
func WithWorkers(n int) Option {
	return func(l *Lounge) error {
		l.config.Workers = n
		return nil
	}
}

// WithMessageTTL sets how long relayed messages stay addressable.
func WithMessageTTL(d time.Duration) Option {
	return func(l *Lounge) error {
		l.config.MessageTTL = d
		return nil
	}
}

// WithRegUploads sets the media upload threshold for registration.
func WithRegUploads(n int) Option {
	return func(l *Lounge) error {
		l.config.RegUploads = n
		return nil
	}
}

// WithSigning enables or disables signed messages.
func WithSigning(enabled bool) Option {
	return func(l *Lounge) error {
		l.config.EnableSigning = enabled
		return nil
	}
}

// WithPrivilegedUsernames sets the identity overrides auto-promoted to
// admin by the authorization gate.
func WithPrivilegedUsernames(usernames ...string) Option {
	return func(l *Lounge) error {
		l.config.PrivilegedUsernames = usernames
		return nil
	}
}

// WithMaxParticipants caps active membership.
func WithMaxParticipants(n int) Option {
	return func(l *Lounge) error {
		l.config.MaxParticipants = n
		return nil
	}
}

// WithRegistrationOpen controls whether new participants may join.
func WithRegistrationOpen(open bool) Option {
	return func(l *Lounge) error {
		l.config.RegistrationOpen = open
		return nil
	}
}
