// Package api exposes review progress over HTTP.
//
// Routes live under /v1 and act on the namespace of the caller's identity:
// reviews and mastery marks per item, progress reads and resets, the due
// list, statistics, practice sessions and bulk import. Errors are mapped to
// status codes by MapErrorToStatusCode and reach clients only as the safe
// messages of GetSafeErrorMessage.
package api
