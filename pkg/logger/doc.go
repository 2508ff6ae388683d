// Package logger provides the structured logging interface used across tweetvault.
//
// It wraps zerolog with a small interface so components can be handed a
// capturing TestLogger or a no-op logger in tests.
//
// Basic Usage:
//
//	if err := logger.Initialize(&cfg.Logging); err != nil {
//	    return err
//	}
//
//	logger.Info("Archive opened")
//	logger.WithField("phase", "followers").Info("Phase started")
//
// Components take a Logger and add their own fields:
//
//	log := logger.GetLogger().WithField("component", "dispatcher")
//	log.InfoWithFields("Queue drained", map[string]interface{}{
//	    "pending": 0,
//	})
//
// Console output is colorized. When LoggingConfig.File is set, entries are
// also appended to that file as JSON.
package logger
