// Package queue derives read-only views over a namespace's review records:
// the due list, aggregate statistics, and shuffled learning sessions that
// mix due records with catalog items never reviewed.
//
// Nothing in this package writes to the store, so every operation can be
// abandoned through its context at any point.
package queue
