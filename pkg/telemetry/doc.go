// Package telemetry carries the Prometheus metrics and OpenTelemetry tracing
// of the draftform service.
//
// Metrics implements form.Observer, so a single value counts draft writes
// and submit outcomes for every screen:
//
//	metrics := telemetry.NewMetrics(telemetry.WithRegistry(reg))
//	syncer := form.NewSynchronizer(id, seeder, drafts, form.WithObserver(metrics))
//
// Both Metrics.Middleware and Tracing wrap the admin router. Their status
// recorder forwards Hijack, so live-update websockets upgrade normally.
package telemetry
