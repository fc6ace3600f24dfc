// Package store defines the persistence contract for review records.
// The interfaces abstract the underlying storage mechanism from the
// scheduling core, so business rules stay independent of the database
// technology behind a deployment. Implementations live under
// internal/platform.
package store
