// Package health reports on the health of the fulfillment workflow's
// external dependencies.
//
// A Checker answers a single question: is this component usable right now.
// The DependencyChecker derives its answer from the resilience monitor's
// per-dependency metrics (circuit state, success rate, recent timeouts).
// An Aggregator fans out over all registered checkers and rolls the results
// up into one overall status, and the HTTP handlers expose liveness,
// readiness, and detailed health over net/http.
package health
