// Package backends defines the client interfaces for the three downstream
// dependencies of order fulfillment (inventory, payment, shipping) and
// provides simulated implementations for local runs and tests.
//
// The simulated clients inject configurable latency and failure rates so the
// surrounding retry, circuit breaker, and timeout behavior can be exercised
// without real services. Failures are classified with the resilience package's
// transient/permanent markers the way real adapters would classify them.
package backends
