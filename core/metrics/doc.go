// Package metrics defines the sinks recording simulation metrics. Every sink
// implements MetricsSink; optional recorder interfaces cover planning,
// request and end-of-run events. Sinks like PromSink and InfluxSink live in
// infra/metrics and can be combined with NewMultiSink. The factory helpers
// return a MultiSink automatically when multiple sinks are configured.
package metrics
