package health

import (
	"log/slog"
	"sync"
)

// ObserverRelay bridges the platform's observer-query callback style to the
// sync core. Platform callbacks must be acknowledged within the execution
// budget before any real work happens, so the relay returns from the
// subscription callback immediately and dispatches handling on its own
// goroutine.
type ObserverRelay struct {
	gateway Gateway
	logger  *slog.Logger

	mu      sync.Mutex
	cancels []func()
	wg      sync.WaitGroup
}

// NewObserverRelay creates a relay for the given gateway.
func NewObserverRelay(gateway Gateway, logger *slog.Logger) *ObserverRelay {
	if logger == nil {
		logger = slog.Default()
	}
	return &ObserverRelay{gateway: gateway, logger: logger}
}

// Watch subscribes to a stream and invokes handle asynchronously on each
// change notification. The platform callback itself only spawns the
// handler goroutine and returns, which acknowledges the notification
// inside the execution budget.
func (r *ObserverRelay) Watch(streamID string, handle func()) error {
	cancel, err := r.gateway.Subscribe(streamID, func() {
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			handle()
		}()
	})
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.cancels = append(r.cancels, cancel)
	r.mu.Unlock()

	r.logger.Debug("observer registered", "stream", streamID)
	return nil
}

// Close cancels all subscriptions and waits for in-flight handlers.
func (r *ObserverRelay) Close() {
	r.mu.Lock()
	cancels := r.cancels
	r.cancels = nil
	r.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
	r.wg.Wait()
}
