// Package logging provides structured logging using uber/zap.
//
// Production builds log JSON for machine parsing; development builds log
// colored console output. Components take a *zap.Logger tagged with their
// name via Logger.Component.
//
//	logger := logging.FromConfig(cfg.Logging.Level, cfg.Logging.Development)
//	logger.Info("Server starting", zap.String("port", "8000"))
//	tracker := tracking.NewManager(..., logger.Component("tracking"))
package logging
