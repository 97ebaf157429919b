// -- internal/humanoid/humanoid.go --
package humanoid

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/xkilldash9x/postlens/internal/config"
	"go.uber.org/zap"
)

// Kind names a pacing profile.
type Kind string

const (
	// General is the pause between discrete user actions.
	General Kind = "general"
	// Scroll is the pause before each further scroll of a lazily loaded list.
	Scroll Kind = "scroll"
	// Navigation is the settle time after a page transition.
	Navigation Kind = "navigation"
	// Keystroke is the gap between typed characters.
	Keystroke Kind = "keystroke"
)

// Profile is a base duration plus a uniform random spread.
type Profile struct {
	Base   time.Duration
	Spread time.Duration
}

// Sleeper blocks for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Policy produces jittered delays and runs retries. It is safe for concurrent use.
type Policy struct {
	profiles map[Kind]Profile
	sleep    Sleeper
	logger   *zap.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// Option customizes a Policy.
type Option func(*Policy)

// WithSleeper replaces the real timer, mostly for tests.
func WithSleeper(s Sleeper) Option {
	return func(p *Policy) { p.sleep = s }
}

// WithRand makes the jitter deterministic.
func WithRand(rng *rand.Rand) Option {
	return func(p *Policy) { p.rng = rng }
}

// WithProfile overrides a single profile.
func WithProfile(kind Kind, prof Profile) Option {
	return func(p *Policy) { p.profiles[kind] = prof }
}

// New builds a Policy from the configured delays.
func New(delays config.DelaysConfig, logger *zap.Logger, opts ...Option) *Policy {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Policy{
		profiles: map[Kind]Profile{
			General:    Profile(delays.General),
			Scroll:     Profile(delays.Scroll),
			Navigation: Profile(delays.Navigation),
			Keystroke:  Profile(delays.Keystroke),
		},
		sleep:  sleepContext,
		logger: logger.Named("humanoid"),
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// NoDelay returns a Policy whose pauses return immediately. Cancellation is
// still honored.
func NoDelay() *Policy {
	return New(config.DelaysConfig{}, nil, WithSleeper(func(ctx context.Context, _ time.Duration) error {
		return ctx.Err()
	}))
}

// Profile returns the profile registered for kind.
func (p *Policy) Profile(kind Kind) Profile {
	return p.profiles[kind]
}

// Delay draws base + uniform[0, spread) for the named profile.
func (p *Policy) Delay(kind Kind) time.Duration {
	prof := p.profiles[kind]
	if prof.Spread <= 0 {
		return prof.Base
	}
	p.mu.Lock()
	jitter := time.Duration(p.rng.Int63n(int64(prof.Spread)))
	p.mu.Unlock()
	return prof.Base + jitter
}

// Pause sleeps for a jittered delay of the named profile.
func (p *Policy) Pause(ctx context.Context, kind Kind) error {
	return p.sleep(ctx, p.Delay(kind))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
