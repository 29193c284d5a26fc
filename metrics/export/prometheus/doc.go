// Package prometheus exposes engine metrics to Prometheus.
//
// [NewCollector] plugs into a client_golang registry and is what the server
// mounts behind promhttp. [NewPrometheusExporter] renders the same series as
// plain text for embedders that do not run a registry. Counter names are
// boardauth_*_total; the single histogram is
// boardauth_authenticate_latency_seconds.
//
// # What this package must NOT do
//
//   - Register into the global Prometheus registry.
//   - Mutate engine state.
package prometheus
