// Package bundle maintains the registry of installable activity
// bundles, keyed by the service name their processes claim on the bus.
package bundle
