package identity

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"storefront-service/internal/domain"
	"storefront-service/internal/store"
)

const DefaultRefreshInterval = 30 * time.Minute

// TokenRefresher is the part of Client the Refresher needs.
type TokenRefresher interface {
	RefreshToken(ctx context.Context, refreshToken string) (domain.AuthSession, error)
}

// Refresher keeps signed-in sessions' id tokens fresh by refreshing them on a
// fixed interval. A failed refresh is logged and tried again on the next tick.
type Refresher struct {
	tokens   TokenRefresher
	values   store.SessionStorer
	interval time.Duration
	log      logrus.FieldLogger

	mu       sync.Mutex
	sessions map[string]struct{}
}

func NewRefresher(tokens TokenRefresher, values store.SessionStorer, interval time.Duration, log logrus.FieldLogger) *Refresher {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	return &Refresher{
		tokens:   tokens,
		values:   values,
		interval: interval,
		log:      log,
		sessions: make(map[string]struct{}),
	}
}

// Track adds a signed-in session.
func (r *Refresher) Track(sessionID string) {
	r.mu.Lock()
	r.sessions[sessionID] = struct{}{}
	r.mu.Unlock()
}

// Untrack stops refreshing a session, typically on sign-out.
func (r *Refresher) Untrack(sessionID string) {
	r.mu.Lock()
	delete(r.sessions, sessionID)
	r.mu.Unlock()
}

func (r *Refresher) Tracked() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	return ids
}

// Run refreshes every tracked session once per interval until ctx is cancelled.
func (r *Refresher) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.log.WithField("interval", r.interval.String()).Info("Token refresher started")
	for {
		select {
		case <-ctx.Done():
			r.log.Info("Token refresher stopped")
			return
		case <-ticker.C:
			r.RefreshAll(ctx)
		}
	}
}

// RefreshAll refreshes each tracked session once.
func (r *Refresher) RefreshAll(ctx context.Context) {
	for _, id := range r.Tracked() {
		if ctx.Err() != nil {
			return
		}
		if err := r.refresh(ctx, id); err != nil {
			r.log.WithError(err).WithField("session_id", id).Warn("Token refresh failed")
		}
	}
}

func (r *Refresher) refresh(ctx context.Context, sessionID string) error {
	refreshToken, err := r.values.GetValue(ctx, sessionID, store.KeyRefreshToken)
	if errors.Is(err, store.ErrValueNotFound) {
		// Signed out elsewhere.
		r.Untrack(sessionID)
		return nil
	}
	if err != nil {
		return err
	}

	fresh, err := r.tokens.RefreshToken(ctx, refreshToken)
	if err != nil {
		return err
	}
	if err := r.values.PutValue(ctx, sessionID, store.KeyAuthToken, fresh.IDToken); err != nil {
		return err
	}
	if fresh.RefreshToken != "" && fresh.RefreshToken != refreshToken {
		if err := r.values.PutValue(ctx, sessionID, store.KeyRefreshToken, fresh.RefreshToken); err != nil {
			return err
		}
	}
	return nil
}
