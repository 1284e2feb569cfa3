// Package telemetry wires vismatch into log/slog and OpenTelemetry.
//
// NewSlogHandler builds a text or JSON handler that stamps trace and span
// ids from the context onto every record. Collector implements
// vismatch.MetricsCollector on OpenTelemetry instruments:
//
//	mc, err := telemetry.NewCollector(otel.Meter("vismatch"))
//	db, err := vismatch.New(
//	    vismatch.WithMetricsCollector(mc),
//	    vismatch.WithLogger(telemetry.NewLogger(os.Stderr, "info", "json")),
//	)
package telemetry
