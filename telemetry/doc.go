// Package telemetry builds the zerolog loggers and Prometheus metrics
// shared by the router, the server and the CLI.
package telemetry
