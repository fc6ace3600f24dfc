// Package domain contains the core learning entities of the application:
// review records, catalog items, and the statistics derived from them.
// It is independent of any storage backend or delivery mechanism.
package domain
