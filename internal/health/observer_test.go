package health

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stridefit/stride/internal/models"
)

// subscribeGateway overrides only Subscribe on top of the counting fake.
type subscribeGateway struct {
	countingGateway
	subscribe func(streamID string, onChange func()) (func(), error)
}

func (g *subscribeGateway) Subscribe(streamID string, onChange func()) (func(), error) {
	return g.subscribe(streamID, onChange)
}

func TestObserverRelay_AcknowledgesBeforeHandling(t *testing.T) {
	var onChange func()
	gw := &subscribeGateway{
		subscribe: func(streamID string, fn func()) (func(), error) {
			onChange = fn
			return func() {}, nil
		},
	}

	release := make(chan struct{})
	handled := make(chan struct{})

	relay := NewObserverRelay(gw, nil)
	err := relay.Watch(models.StreamAllWorkouts, func() {
		<-release
		close(handled)
	})
	require.NoError(t, err)
	require.NotNil(t, onChange)

	// The platform callback must return even while the handler blocks
	done := make(chan struct{})
	go func() {
		onChange()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("platform callback blocked on the handler")
	}

	close(release)
	relay.Close()

	select {
	case <-handled:
	case <-time.After(time.Second):
		t.Fatal("handler never ran")
	}
}

func TestObserverRelay_CloseCancelsSubscriptions(t *testing.T) {
	cancelled := 0
	gw := &subscribeGateway{
		subscribe: func(streamID string, fn func()) (func(), error) {
			return func() { cancelled++ }, nil
		},
	}

	relay := NewObserverRelay(gw, nil)
	require.NoError(t, relay.Watch(models.StreamAllWorkouts, func() {}))
	require.NoError(t, relay.Watch(models.StreamExerciseTime, func() {}))

	relay.Close()
	assert.Equal(t, 2, cancelled)

	// Close is idempotent
	relay.Close()
	assert.Equal(t, 2, cancelled)
}
