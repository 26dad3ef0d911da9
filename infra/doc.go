// Package infra contains technical adapters such as the MQTT and Redis
// frame publishers and the metrics exporters. These packages should depend only on the
// interfaces defined in the core packages.
package infra
