// Package scheduler reconciles expired entities with live connections. It
// warns soon-to-expire sessions, severs connections whose sessions have
// passed, and purges rows the storage layer would otherwise keep forever.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/arjun/temporary-social/internal/config"
	"github.com/arjun/temporary-social/internal/presence"
	"github.com/arjun/temporary-social/internal/relay"
	"github.com/arjun/temporary-social/internal/repository"
)

// Sweeper runs the periodic session sweeps. The sweeps share no state and
// may overlap each other and any client-initiated operation.
type Sweeper struct {
	repos    *repository.Repositories
	registry *presence.Registry
	cfg      *config.Config
}

func NewSweeper(repos *repository.Repositories, registry *presence.Registry, cfg *config.Config) *Sweeper {
	return &Sweeper{
		repos:    repos,
		registry: registry,
		cfg:      cfg,
	}
}

// Run starts the three sweep loops and blocks until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	warning := time.NewTicker(s.cfg.WarningInterval)
	expiry := time.NewTicker(s.cfg.ExpiryInterval)
	purge := time.NewTicker(s.cfg.PurgeInterval)
	defer warning.Stop()
	defer expiry.Stop()
	defer purge.Stop()

	log.Printf("scheduler: sweeps running (warning %v, expiry %v, purge %v)",
		s.cfg.WarningInterval, s.cfg.ExpiryInterval, s.cfg.PurgeInterval)

	for {
		select {
		case <-ctx.Done():
			return
		case <-warning.C:
			s.WarningSweep(ctx)
		case <-expiry.C:
			s.ExpirySweep(ctx)
		case <-purge.C:
			s.PurgeSweep(ctx)
		}
	}
}

// WarningSweep pushes a sessionWarning to every present identity whose
// session ends within the warning window. It re-warns on every tick until
// the session is extended or expires; duplicates are accepted.
func (s *Sweeper) WarningSweep(ctx context.Context) {
	now := time.Now()
	users, err := s.repos.User.ExpiringBetween(ctx, now, now.Add(s.cfg.WarningWindow))
	if err != nil {
		log.Printf("scheduler: warning sweep query failed: %v", err)
		return
	}

	for _, user := range users {
		handle := s.registry.Lookup(user.ID)
		if handle == nil {
			continue
		}

		remaining := user.Remaining(now)
		event, err := relay.NewEvent(relay.EventTypeSessionWarning, relay.SessionWarningPayload{
			TimeRemaining: remaining,
			Message:       fmt.Sprintf("Your session expires in %dh %dm", remaining.Hours, remaining.Minutes),
		})
		if err != nil {
			log.Printf("scheduler: failed to build warning for %s: %v", user.ID, err)
			continue
		}
		data, err := event.Encode()
		if err != nil {
			log.Printf("scheduler: failed to encode warning for %s: %v", user.ID, err)
			continue
		}
		if err := handle.Push(data); err != nil {
			// Stale handle; the disconnect path cleans it up.
			continue
		}
	}
}

// ExpirySweep severs live connections whose sessions have passed: it pushes
// sessionExpired, removes the presence entry and deactivates the identity.
// The row itself is left for the purge sweep.
func (s *Sweeper) ExpirySweep(ctx context.Context) {
	now := time.Now()
	users, err := s.repos.User.ExpiredBefore(ctx, now)
	if err != nil {
		log.Printf("scheduler: expiry sweep query failed: %v", err)
		return
	}

	expired := 0
	for _, user := range users {
		if err := s.repos.User.Deactivate(ctx, user.ID); err != nil {
			log.Printf("scheduler: failed to deactivate %s: %v", user.ID, err)
			// Still sever the connection below.
		}

		handle := s.registry.Lookup(user.ID)
		if handle == nil {
			continue
		}

		event, err := relay.NewEvent(relay.EventTypeSessionExpired, nil)
		if err == nil {
			if data, err := event.Encode(); err == nil {
				_ = handle.Push(data)
			}
		}

		// A connection registered after the Lookup belongs to a fresh
		// session and must survive the sweep.
		s.registry.RemoveIf(user.ID, handle)
		expired++
	}

	if expired > 0 {
		log.Printf("scheduler: expiry sweep disconnected %d sessions", expired)
	}
}

// PurgeSweep deletes rows whose TTL has passed. It stands in for a store
// with native TTL deletion; purge latency is bounded by the sweep interval.
func (s *Sweeper) PurgeSweep(ctx context.Context) {
	now := time.Now()

	if n, err := s.repos.OTP.PurgeExpiredBefore(ctx, now); err != nil {
		log.Printf("scheduler: otp purge failed: %v", err)
	} else if n > 0 {
		log.Printf("scheduler: purged %d expired otp challenges", n)
	}

	if n, err := s.repos.Message.PurgeExpiredBefore(ctx, now); err != nil {
		log.Printf("scheduler: message purge failed: %v", err)
	} else if n > 0 {
		log.Printf("scheduler: purged %d expired messages", n)
	}

	if n, err := s.repos.Payment.PurgeExpiredBefore(ctx, now); err != nil {
		log.Printf("scheduler: payment purge failed: %v", err)
	} else if n > 0 {
		log.Printf("scheduler: purged %d expired payments", n)
	}

	if n, err := s.repos.User.PurgeExpiredBefore(ctx, now); err != nil {
		log.Printf("scheduler: user purge failed: %v", err)
	} else if n > 0 {
		log.Printf("scheduler: purged %d expired users", n)
	}
}
