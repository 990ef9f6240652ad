// Package infra contains technical adapters: the HTTP fetch transport, MQTT
// ingest, metrics exporters and logging. These packages depend only on the
// interfaces defined in the core packages.
package infra
