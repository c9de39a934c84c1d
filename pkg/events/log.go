package events

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/agentstation/hubsync/pkg/logging"
)

// LogSink renders events through zerolog. Fetch pages, batches and discards
// are logged at debug level, failures at error level, the rest at info.
type LogSink struct {
	// Logger overrides the context logger when set.
	Logger *zerolog.Logger
}

// Emit implements Sink.
func (s LogSink) Emit(ctx context.Context, e Event) {
	logger := s.Logger
	if logger == nil {
		logger = logging.FromContext(ctx)
	}

	var ev *zerolog.Event
	switch e.Stage {
	case RecordFailed, EntityFailed, BacklinkError:
		ev = logger.Error()
	case FetchPage, BatchSent, Discard, RecordPushed:
		ev = logger.Debug()
	default:
		ev = logger.Info()
	}

	ev = ev.Str("stage", string(e.Stage))
	if e.Organization != "" {
		ev = ev.Str("organization", e.Organization)
	}
	if e.Entity != "" {
		ev = ev.Str("entity", e.Entity)
	}
	if e.Side != "" {
		ev = ev.Str("side", e.Side)
	}
	if e.ID != "" {
		ev = ev.Str("id", e.ID)
	}
	if e.Count != 0 {
		ev = ev.Int("count", e.Count)
	}
	if e.Page != 0 {
		ev = ev.Int("page", e.Page)
	}
	if e.Batch != 0 {
		ev = ev.Int("batch", e.Batch)
	}
	if e.Reason != "" {
		ev = ev.Str("reason", e.Reason)
	}
	if e.Duration != 0 {
		ev = ev.Dur("duration", e.Duration)
	}
	if e.Err != nil {
		ev = ev.Err(e.Err)
	}
	ev.Msg(message(e.Stage))
}

func message(stage Stage) string {
	switch stage {
	case SyncStart:
		return "Starting synchronization"
	case SyncDone:
		return "Synchronization finished"
	case EntityStart:
		return "Synchronizing entity"
	case EntityDone:
		return "Entity synchronized"
	case EntityFailed:
		return "Entity synchronization failed"
	case FetchStart:
		return "Fetching records"
	case FetchPage:
		return "Fetched page"
	case FetchDone:
		return "Fetched records"
	case Discard:
		return "Discarded record"
	case Conflict:
		return "Resolved conflict"
	case Consolidated:
		return "Consolidated records"
	case PushStart:
		return "Pushing records"
	case BatchSent:
		return "Sent batch"
	case RecordPushed:
		return "Pushed record"
	case RecordFailed:
		return "Failed to push record"
	case BacklinkSent:
		return "Sent back-correlations"
	case BacklinkError:
		return "Failed to send back-correlation"
	default:
		return string(stage)
	}
}
