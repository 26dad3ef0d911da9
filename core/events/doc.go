// Package events defines the simulation events emitted on the event bus.
//
// Available event types:
//   - RequestEvent: a request was created, completed or failed
//   - PlanningEvent: outcome of one planning attempt
//   - TickEvent: counters at the end of a simulated minute
//   - AlertEvent: transient operator-facing message
package events
