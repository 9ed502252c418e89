package telemetry

// Event names.
const (
	EventCLICommandExecuted = "cli_command_executed"
	EventCLIErrorOccurred   = "cli_error_occurred"
	EventSyncCompleted      = "sync_completed"
	EventSyncFailed         = "sync_failed"
	EventResyncProgress     = "resync_started"
	EventQueueProcessed     = "route_queue_processed"
	EventRouteRetry         = "route_retry_requested"
)

// TrackCLICommandExecuted records a CLI command invocation.
func (c *posthogClient) TrackCLICommandExecuted(commandName string, hasFlags bool, durationMs int64) {
	c.Track(EventCLICommandExecuted, map[string]interface{}{
		"command_name": commandName,
		"has_flags":    hasFlags,
		"duration_ms":  durationMs,
	})
}

// TrackCLIError records a command failure. Only the error type is sent,
// never message contents.
func (c *posthogClient) TrackCLIError(commandName, errorType string) {
	c.Track(EventCLIErrorOccurred, map[string]interface{}{
		"command_name": commandName,
		"error_type":   errorType,
	})
}

// TrackSyncCompleted records the outcome of a sync cycle.
func (c *posthogClient) TrackSyncCompleted(mode string, imported, updated, removed, skipped int, durationMs int64) {
	c.Track(EventSyncCompleted, map[string]interface{}{
		"mode":        mode,
		"imported":    imported,
		"updated":     updated,
		"removed":     removed,
		"skipped":     skipped,
		"duration_ms": durationMs,
	})
}

// TrackSyncFailed records a failed sync cycle.
func (c *posthogClient) TrackSyncFailed(mode, errorType string) {
	c.Track(EventSyncFailed, map[string]interface{}{
		"mode":       mode,
		"error_type": errorType,
	})
}

// TrackResyncProgress records the size of a full resync.
func (c *posthogClient) TrackResyncProgress(totalBatches, totalRecords int) {
	c.Track(EventResyncProgress, map[string]interface{}{
		"total_batches": totalBatches,
		"total_records": totalRecords,
	})
}

// TrackQueueProcessed records a route queue run.
func (c *posthogClient) TrackQueueProcessed(completed, failed, pending int) {
	c.Track(EventQueueProcessed, map[string]interface{}{
		"completed": completed,
		"failed":    failed,
		"pending":   pending,
	})
}

// TrackRouteRetry records a user-triggered enrichment retry.
func (c *posthogClient) TrackRouteRetry(hadTask bool) {
	c.Track(EventRouteRetry, map[string]interface{}{
		"had_task": hadTask,
	})
}

// No-op implementations for disabled telemetry.

func (c *noopClient) TrackCLICommandExecuted(commandName string, hasFlags bool, durationMs int64) {}

func (c *noopClient) TrackCLIError(commandName, errorType string) {}

func (c *noopClient) TrackSyncCompleted(mode string, imported, updated, removed, skipped int, durationMs int64) {
}

func (c *noopClient) TrackSyncFailed(mode, errorType string) {}

func (c *noopClient) TrackResyncProgress(totalBatches, totalRecords int) {}

func (c *noopClient) TrackQueueProcessed(completed, failed, pending int) {}

func (c *noopClient) TrackRouteRetry(hadTask bool) {}
