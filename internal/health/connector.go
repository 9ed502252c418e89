package health

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/stridefit/stride/internal/db"
	"github.com/stridefit/stride/internal/models"
)

const (
	// probeTimeout bounds each data-access probe so a hung platform query
	// cannot stall authorization indefinitely.
	probeTimeout = 3 * time.Second

	// sustainedFailureCount operational failures within
	// sustainedFailureWindow demote a connected state to limited and force
	// re-verification. A single failed query never does: the platform's
	// status reporting produces false negatives.
	sustainedFailureCount  = 5
	sustainedFailureWindow = 10 * time.Minute
)

// probeBackoff is the wait after each failed data-access probe.
var probeBackoff = []time.Duration{
	500 * time.Millisecond,
	1000 * time.Millisecond,
	1500 * time.Millisecond,
}

// Connector owns the connection state machine. It layers two things on top
// of the raw gateway authorization: versioned scope grants, so new data
// types added across releases trigger a delta re-auth, and live data-access
// probes, because the platform's own authorization status cannot be
// trusted after the initial grant.
type Connector struct {
	gateway Gateway
	db      *db.DB
	logger  *slog.Logger

	mu             sync.Mutex
	failures       int
	firstFailureAt time.Time
}

// NewConnector creates a connector persisting state through the given
// database.
func NewConnector(gateway Gateway, database *db.DB, logger *slog.Logger) *Connector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Connector{
		gateway: gateway,
		db:      database,
		logger:  logger,
	}
}

// State returns the persisted connection state.
func (c *Connector) State() models.ConnectionState {
	settings, err := c.db.GetConnectionSettings()
	if err != nil {
		return models.StateDisconnected
	}
	return settings.State
}

// EnsureConnected verifies data access, authorizing first if needed, and
// returns the resulting state. Already-connected with a current scope grant
// is a fast no-op. A stale scope version re-authorizes even when connected;
// the platform only prompts for the delta.
func (c *Connector) EnsureConnected(ctx context.Context) (models.ConnectionState, error) {
	settings, err := c.db.GetConnectionSettings()
	if err != nil {
		return models.StateDisconnected, fmt.Errorf("load connection settings: %w", err)
	}

	if settings.State == models.StateConnected && settings.GrantedScopeVersion >= ScopeVersion {
		return models.StateConnected, nil
	}

	// Limited with a current grant means authorization already happened but
	// no probe has succeeded yet. Skip the auth dialog and go straight to
	// the probe.
	if settings.State != models.StateLimited || settings.GrantedScopeVersion < ScopeVersion {
		if _, err := c.gateway.Authorize(ctx, RequiredScopes()); err != nil {
			if setErr := c.db.SetConnectionState(models.StateDisconnected); setErr != nil {
				c.logger.Warn("persist disconnected state", "error", setErr)
			}
			return models.StateDisconnected, fmt.Errorf("%w: %v", ErrAuthorizationDenied, err)
		}
		if err := c.db.SetConnectionState(models.StateLimited); err != nil {
			c.logger.Warn("persist limited state", "error", err)
		}
	}

	if !c.probe(ctx) {
		if err := c.db.SetConnectionState(models.StateDisconnected); err != nil {
			c.logger.Warn("persist disconnected state", "error", err)
		}
		return models.StateDisconnected, ErrAuthorizationDenied
	}

	// A successful probe wins over whatever the platform's status API says.
	if err := c.db.SetConnectionState(models.StateConnected); err != nil {
		return models.StateConnected, fmt.Errorf("persist connected state: %w", err)
	}
	if err := c.db.SetGrantedScopeVersion(ScopeVersion); err != nil {
		return models.StateConnected, fmt.Errorf("persist scope version: %w", err)
	}
	c.resetFailures()
	return models.StateConnected, nil
}

// Disconnect records an explicit user disconnect.
func (c *Connector) Disconnect() error {
	return c.db.SetConnectionState(models.StateDisconnected)
}

// probe attempts a zero-cost query up to three times with increasing
// backoff before concluding access was denied.
func (c *Connector) probe(ctx context.Context) bool {
	for attempt, wait := range probeBackoff {
		err := runWithTimeout(ctx, probeTimeout, func(ctx context.Context) error {
			_, err := c.gateway.BoundedFetch(ctx, models.StreamAllWorkouts, true, 1)
			return err
		})
		if err == nil {
			return true
		}
		c.logger.Debug("data-access probe failed",
			"attempt", attempt+1, "error", err)
		if attempt < len(probeBackoff)-1 {
			select {
			case <-ctx.Done():
				return false
			case <-time.After(wait):
			}
		}
	}
	return false
}

// RecordFailure notes an operational query failure. Repeated failures over
// a sustained period demote connected to limited, prompting the next
// EnsureConnected call to re-verify with a probe.
func (c *Connector) RecordFailure() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if c.failures == 0 || now.Sub(c.firstFailureAt) > sustainedFailureWindow {
		c.failures = 0
		c.firstFailureAt = now
	}
	c.failures++
	if c.failures < sustainedFailureCount {
		return
	}
	c.failures = 0

	settings, err := c.db.GetConnectionSettings()
	if err != nil || settings.State != models.StateConnected {
		return
	}
	c.logger.Warn("sustained query failures, scheduling access re-verification")
	if err := c.db.SetConnectionState(models.StateLimited); err != nil {
		c.logger.Warn("persist limited state", "error", err)
	}
}

// RecordSuccess resets the sustained-failure tracking.
func (c *Connector) RecordSuccess() {
	c.resetFailures()
}

func (c *Connector) resetFailures() {
	c.mu.Lock()
	c.failures = 0
	c.mu.Unlock()
}
