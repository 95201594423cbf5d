// Package server implements the HTTP server using Echo framework.
//
// Routes: health probes, Prometheus metrics, and the dashboard API
// (cache stats, live feed state, projection compute passthrough).
package server
