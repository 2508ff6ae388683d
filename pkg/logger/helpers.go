package logger

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// LogRateLimit logs a governor suspension for an endpoint
func LogRateLimit(l Logger, endpoint string, wait time.Duration, reset time.Time) {
	l.WithFields(map[string]interface{}{
		"endpoint": endpoint,
		"wait":     wait,
		"reset_at": reset,
		"action":   "rate_limited",
	}).Warn("Rate limit reached, suspending phase")
}

// LogPhase logs a crawl phase transition
func LogPhase(l Logger, phase, state string, fields map[string]interface{}) {
	merged := map[string]interface{}{
		"phase": phase,
		"state": state,
	}
	for k, v := range fields {
		merged[k] = v
	}
	l.InfoWithFields("Crawl phase "+state, merged)
}

// LogDownload logs the outcome of a single media instruction
func LogDownload(l Logger, url, ref string, skipped bool, err error) {
	fields := map[string]interface{}{
		"url":     url,
		"skipped": skipped,
	}
	if ref != "" {
		fields["artifact"] = ref
	}

	entry := l.WithFields(fields)
	switch {
	case err != nil:
		entry.WithError(err).Warn("Media download failed")
	case skipped:
		entry.Debug("Media download skipped")
	default:
		entry.Debug("Media download completed")
	}
}

// LogComponentStart logs when a component starts
func LogComponentStart(l Logger, component string, settings map[string]interface{}) {
	entry := l.WithField("component", component)
	if len(settings) > 0 {
		entry = entry.WithFields(settings)
	}
	entry.Info("Component started")
}

// LogComponentStop logs when a component stops
func LogComponentStop(l Logger, component, reason string) {
	l.WithFields(map[string]interface{}{
		"component": component,
		"reason":    reason,
	}).Info("Component stopped")
}

// NewNopLogger creates a no-operation logger for testing
func NewNopLogger() Logger {
	return nopLogger{}
}

type nopLogger struct{}

func (n nopLogger) Debug(string)                                     {}
func (n nopLogger) Info(string)                                      {}
func (n nopLogger) Warn(string)                                      {}
func (n nopLogger) Error(string)                                     {}
func (n nopLogger) WithField(string, interface{}) Logger             { return n }
func (n nopLogger) WithFields(map[string]interface{}) Logger         { return n }
func (n nopLogger) WithError(error) Logger                           { return n }
func (n nopLogger) WithContext(context.Context) Logger               { return n }
func (n nopLogger) DebugWithFields(string, map[string]interface{})   {}
func (n nopLogger) InfoWithFields(string, map[string]interface{})    {}
func (n nopLogger) WarnWithFields(string, map[string]interface{})    {}
func (n nopLogger) ErrorWithFields(string, map[string]interface{})   {}
func (n nopLogger) Zerolog() *zerolog.Logger                         { nop := zerolog.Nop(); return &nop }
