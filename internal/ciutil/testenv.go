package ciutil

import (
	"testing"
)

// TestDatabaseURL returns the postgres DSN for integration tests, skipping
// t when none is configured outside CI.
func TestDatabaseURL(t testing.TB) string {
	t.Helper()
	return requireBackend(t, "postgres", EnvTestDatabaseURL, EnvDatabaseURL)
}

// TestRedisAddr returns the redis address (host:port or redis:// URL) for
// integration tests, skipping t when none is configured outside CI.
func TestRedisAddr(t testing.TB) string {
	t.Helper()
	return requireBackend(t, "redis", EnvTestRedisAddr, EnvRedisURL)
}

func requireBackend(t testing.TB, backend string, envVars ...string) string {
	t.Helper()
	if val := GetEnvWithFallbacks(envVars, "", nil); val != "" {
		return val
	}
	if IsCI() {
		t.Fatalf("%s integration tests require %s in CI", backend, envVars[0])
	}
	t.Skipf("%s not set; skipping %s integration test", envVars[0], backend)
	return ""
}
