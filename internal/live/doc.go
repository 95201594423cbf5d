// Package live implements the reconnecting, topic-multiplexed live feed client.
//
// The Client is a single-goroutine actor driven by a command channel (no
// mutexes): subscriptions are reference-counted so the transport carries at
// most one subscription per topic, inbound frames fan out to per-message-type
// listener lists, and a dropped transport re-dials with capped exponential
// backoff, replaying active subscriptions on reconnect. The closed state is
// terminal and only reached by explicit shutdown.
package live
