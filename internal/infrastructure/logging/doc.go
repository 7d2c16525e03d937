// Package logging provides structured logging using uber/zap.
//
// Two modes:
//   - Production: JSON output for machine parsing
//   - Development: colored console output for humans
//
// Example Usage:
//
//	logger := logging.NewDefault()
//	logger.Info("Stage finished", zap.String("stage", "generate-image"))
//	logger.Error("Dial failed", zap.Error(err))
package logging
