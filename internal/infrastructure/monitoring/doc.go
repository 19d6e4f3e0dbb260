// Package monitoring provides Prometheus metrics for the shell service.
package monitoring
