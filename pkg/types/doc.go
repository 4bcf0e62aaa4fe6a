// Package types defines the StorageProvider contract, the Concept entity and
// its JSON wire format, registry records, configuration, and the sentinel
// errors shared by every backend and service in the concept store.
//
// Backends live under internal/storage; pkg/storage opens the configured one.
package types
