// Package projection implements the isolated compute engine for fantasy
// analytics: expected-points projection, squad statistics, differential
// squad analysis, and Monte Carlo match simulation.
//
// The Engine owns its state in a single goroutine and is reachable only via
// typed compute messages; every request gets exactly one SUCCESS or ERROR
// response matched by request ID. A failure (or panic) in one request never
// affects another.
package projection
