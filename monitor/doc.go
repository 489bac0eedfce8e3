// Package monitor aggregates resilience telemetry per dependency.
//
// A Monitor subscribes to pipeline events (see resilience.EventListener) and
// maintains one metrics record per dependency: circuit state and transition
// counts, retry and timeout totals, and request success rates. Records are
// created on demand, mutated only through the recording API, and never
// deleted; an explicit administrative Reset clears a single record.
//
// The Monitor is an injected component, not a singleton. Snapshots returned
// by Metrics and AllMetrics are copies and never expose the live map.
package monitor
