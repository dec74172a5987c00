// Package telemetry reports absorbed failures to Sentry.
package telemetry

import (
	"context"
	"time"

	"github.com/getsentry/sentry-go"

	"gwi.com/finance-chat/internal/observability"
)

const (
	serviceName = "finance-chat"
)

// Config holds the configuration for Sentry initialization.
type Config struct {
	DSN         string
	Environment string
	Debug       bool
}

// Init initializes Sentry.
// Returns a shutdown function to flush pending events.
// If DSN is empty, returns a no-op shutdown function.
func Init(cfg Config) (func(), error) {
	if cfg.DSN == "" {
		return func() {}, nil
	}

	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.DSN,
		Environment: cfg.Environment,
		Debug:       cfg.Debug,
		ServerName:  serviceName,
	})
	if err != nil {
		observability.Logger().Warn("sentry: failed to initialize, continuing without it", "error", err)
		return func() {}, nil
	}

	observability.Logger().Info("sentry: initialized", "environment", cfg.Environment)
	return func() { sentry.Flush(5 * time.Second) }, nil
}

// Enabled reports whether a Sentry client is bound.
func Enabled() bool {
	return sentry.CurrentHub().Client() != nil
}

// CaptureError captures an error to Sentry with the current context.
// It is a no-op when Sentry was not initialized.
func CaptureError(ctx context.Context, err error) {
	if err == nil {
		return
	}
	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		hub.CaptureException(err)
	} else {
		sentry.CaptureException(err)
	}
}

// AddBreadcrumb adds a breadcrumb to the current scope.
func AddBreadcrumb(ctx context.Context, category, message string) {
	breadcrumb := &sentry.Breadcrumb{
		Type:      "default",
		Category:  category,
		Message:   message,
		Level:     sentry.LevelInfo,
		Timestamp: time.Now(),
	}

	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		hub.AddBreadcrumb(breadcrumb, nil)
	} else {
		sentry.AddBreadcrumb(breadcrumb)
	}
}
