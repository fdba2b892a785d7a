// Package health runs named dependency probes and aggregates their outcome.
//
// Probes share one deadline and run concurrently:
//
//	report := health.Run(ctx, health.Checks{
//	    "redis": redis.Healthcheck(client),
//	}, health.WithTimeout(3*time.Second))
//	if !report.Healthy() {
//	    return report.Err()
//	}
//
// The framework exposes the same report on its liveness and readiness
// endpoints, as plain text or JSON depending on the Accept header.
package health
