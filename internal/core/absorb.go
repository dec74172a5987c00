package core

import (
	"context"

	"gwi.com/finance-chat/internal/observability"
	"gwi.com/finance-chat/internal/telemetry"
)

// absorb logs a storage failure and reports it without surfacing it to the caller.
func absorb(ctx context.Context, msg string, err error, kv ...any) {
	args := append([]any{"error", err}, kv...)
	observability.LoggerFromContext(ctx).Warn(msg, args...)
	telemetry.CaptureError(ctx, err)
}
