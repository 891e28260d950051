// Package otel republishes engine metrics through an OpenTelemetry meter.
//
// Counters and histogram buckets are registered as observable instruments
// and read from an engine snapshot on each collection cycle.
package otel
