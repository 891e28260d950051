// Package prometheus renders engine metrics in the Prometheus text
// exposition format without depending on the Prometheus client library.
//
// The exporter reads point-in-time snapshots from the engine; it holds no
// state of its own and is safe to scrape concurrently.
package prometheus
