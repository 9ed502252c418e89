package health

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stridefit/stride/internal/db"
	"github.com/stridefit/stride/internal/models"
)

// countingGateway tracks authorization and probe traffic, with switchable
// failures.
type countingGateway struct {
	mu         sync.Mutex
	authCalls  int
	probeCalls int
	denyAuth   bool
	failProbe  bool
}

func (g *countingGateway) Authorize(ctx context.Context, scopes []Scope) (models.ConnectionState, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.authCalls++
	if g.denyAuth {
		return models.StateDisconnected, fmt.Errorf("user denied")
	}
	return models.StateLimited, nil
}

func (g *countingGateway) AnchoredFetch(ctx context.Context, streamID string, cursor []byte) (*models.FetchResult, error) {
	return &models.FetchResult{}, nil
}

func (g *countingGateway) BoundedFetch(ctx context.Context, streamID string, sortDesc bool, limit int) ([]models.Workout, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.probeCalls++
	if g.failProbe {
		return nil, fmt.Errorf("no data access")
	}
	return nil, nil
}

func (g *countingGateway) FetchByExternalID(ctx context.Context, externalID string) (*models.Workout, error) {
	return nil, nil
}

func (g *countingGateway) Subscribe(streamID string, onChange func()) (func(), error) {
	return func() {}, nil
}

func (g *countingGateway) counts() (auth, probe int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.authCalls, g.probeCalls
}

func testConnector(t *testing.T) (*countingGateway, *db.DB, *Connector) {
	t.Helper()

	database, err := db.New(db.DefaultConfig(filepath.Join(t.TempDir(), "test.db")))
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := database.Close(); err != nil {
			t.Logf("Failed to close test database: %v", err)
		}
	})

	gateway := &countingGateway{}
	return gateway, database, NewConnector(gateway, database, nil)
}

func TestEnsureConnected_AuthorizeThenProbe(t *testing.T) {
	gateway, database, c := testConnector(t)

	assert.Equal(t, models.StateDisconnected, c.State())

	state, err := c.EnsureConnected(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.StateConnected, state)
	assert.Equal(t, models.StateConnected, c.State())

	settings, err := database.GetConnectionSettings()
	require.NoError(t, err)
	assert.Equal(t, ScopeVersion, settings.GrantedScopeVersion)

	auth, probe := gateway.counts()
	assert.Equal(t, 1, auth)
	assert.Equal(t, 1, probe)

	// Connected with a current grant is a fast no-op
	state, err = c.EnsureConnected(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.StateConnected, state)

	auth, probe = gateway.counts()
	assert.Equal(t, 1, auth)
	assert.Equal(t, 1, probe)
}

func TestEnsureConnected_AuthorizationDenied(t *testing.T) {
	gateway, _, c := testConnector(t)
	gateway.denyAuth = true

	state, err := c.EnsureConnected(context.Background())
	assert.ErrorIs(t, err, ErrAuthorizationDenied)
	assert.Equal(t, models.StateDisconnected, state)
	assert.Equal(t, models.StateDisconnected, c.State())
}

func TestEnsureConnected_ProbeExhaustsRetries(t *testing.T) {
	gateway, _, c := testConnector(t)
	gateway.failProbe = true

	state, err := c.EnsureConnected(context.Background())
	assert.ErrorIs(t, err, ErrAuthorizationDenied)
	assert.Equal(t, models.StateDisconnected, state)

	_, probe := gateway.counts()
	assert.Equal(t, 3, probe)
}

func TestEnsureConnected_ScopeUpgradeReauthorizes(t *testing.T) {
	gateway, database, c := testConnector(t)

	// A previous release connected with an older scope set
	require.NoError(t, database.SetConnectionState(models.StateConnected))
	require.NoError(t, database.SetGrantedScopeVersion(ScopeVersion-1))

	state, err := c.EnsureConnected(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.StateConnected, state)

	auth, _ := gateway.counts()
	assert.Equal(t, 1, auth)

	settings, err := database.GetConnectionSettings()
	require.NoError(t, err)
	assert.Equal(t, ScopeVersion, settings.GrantedScopeVersion)
}

func TestEnsureConnected_LimitedSkipsAuthDialog(t *testing.T) {
	gateway, database, c := testConnector(t)

	// Authorization already happened; only the probe is outstanding
	require.NoError(t, database.SetConnectionState(models.StateLimited))
	require.NoError(t, database.SetGrantedScopeVersion(ScopeVersion))

	state, err := c.EnsureConnected(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.StateConnected, state)

	auth, probe := gateway.counts()
	assert.Equal(t, 0, auth)
	assert.Equal(t, 1, probe)
}

func TestRecordFailure_SustainedDemotesToLimited(t *testing.T) {
	_, database, c := testConnector(t)

	_, err := c.EnsureConnected(context.Background())
	require.NoError(t, err)

	// A few scattered failures never demote
	c.RecordFailure()
	c.RecordFailure()
	assert.Equal(t, models.StateConnected, c.State())

	// A success resets the streak
	c.RecordSuccess()
	for i := 0; i < 4; i++ {
		c.RecordFailure()
	}
	assert.Equal(t, models.StateConnected, c.State())

	c.RecordFailure()
	assert.Equal(t, models.StateLimited, c.State())

	settings, err := database.GetConnectionSettings()
	require.NoError(t, err)
	assert.Equal(t, models.StateLimited, settings.State)
}

func TestDisconnect(t *testing.T) {
	_, _, c := testConnector(t)

	_, err := c.EnsureConnected(context.Background())
	require.NoError(t, err)

	require.NoError(t, c.Disconnect())
	assert.Equal(t, models.StateDisconnected, c.State())
}

func TestRunWithTimeout(t *testing.T) {
	err := runWithTimeout(context.Background(), 50*time.Millisecond, func(ctx context.Context) error {
		return nil
	})
	assert.NoError(t, err)

	err = runWithTimeout(context.Background(), 20*time.Millisecond, func(ctx context.Context) error {
		select {
		case <-time.After(time.Second):
		case <-ctx.Done():
		}
		return nil
	})
	assert.ErrorIs(t, err, ErrTimeout)

	wantErr := fmt.Errorf("query failed")
	err = runWithTimeout(context.Background(), 50*time.Millisecond, func(ctx context.Context) error {
		return wantErr
	})
	assert.ErrorIs(t, err, wantErr)
}
