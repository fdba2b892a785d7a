// Package logger builds the slog loggers used by hero applications.
//
// Records go to stdout as JSON (or text) and, when a Sentry DSN is configured,
// are fanned out to Sentry: errors become issues, warnings are kept as logs.
// ContextExtractor functions copy request-scoped values such as the request
// ID from the context into every record.
//
//	log := logger.New(logger.Config{Level: "debug"}, middlewares.RequestIDExtractor())
//	log.InfoContext(ctx, "user created", "user_id", id)
package logger
