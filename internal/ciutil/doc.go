// Package ciutil detects the execution environment (CI or local
// development) and resolves the connection settings of the integration
// test backends from environment variables.
//
// Integration tests call TestDatabaseURL or TestRedisAddr. Locally an unset
// variable skips the test; in CI it fails it, so a misconfigured pipeline
// cannot silently pass.
package ciutil
