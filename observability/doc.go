// Package observability carries the OpenTelemetry tracing and metrics of
// the service. Export is off by default. Enabled, Setup pushes spans and
// metrics to an OTLP/HTTP collector and installs the global providers.
//
// StartSpan and Meter always work: before Setup, or with export disabled,
// they resolve to the global no-op implementations.
package observability
