package ciutil

import (
	"log/slog"
	"os"

	"github.com/phrazzld/verbdrill/internal/redact"
)

// Environment variable names used by CI detection and integration tests.
const (
	EnvCI            = "CI"
	EnvGitHubActions = "GITHUB_ACTIONS"
	EnvGitLabCI      = "GITLAB_CI"
	EnvJenkinsURL    = "JENKINS_URL"
	EnvCircleCI      = "CIRCLECI"

	// EnvTestDatabaseURL is the preferred name for the postgres test DSN.
	EnvTestDatabaseURL = "VERBDRILL_TEST_DATABASE_URL"
	// EnvDatabaseURL is accepted as a fallback for EnvTestDatabaseURL.
	EnvDatabaseURL = "DATABASE_URL"

	// EnvTestRedisAddr is the preferred name for the redis test address.
	EnvTestRedisAddr = "VERBDRILL_TEST_REDIS_ADDR"
	// EnvRedisURL is accepted as a fallback for EnvTestRedisAddr.
	EnvRedisURL = "REDIS_URL"
)

// IsCI returns true if the current environment is a CI environment.
// It checks for common CI environment variables across different CI providers.
func IsCI() bool {
	return os.Getenv(EnvCI) != "" ||
		os.Getenv(EnvGitHubActions) != "" ||
		os.Getenv(EnvGitLabCI) != "" ||
		os.Getenv(EnvJenkinsURL) != "" ||
		os.Getenv(EnvCircleCI) != ""
}

// GetEnvWithFallbacks returns the value of the first non-empty environment
// variable in envVars, or defaultValue when none is set. Using anything but
// the first name logs a warning.
func GetEnvWithFallbacks(envVars []string, defaultValue string, logger *slog.Logger) string {
	for i, envVar := range envVars {
		val := os.Getenv(envVar)
		if val == "" {
			continue
		}
		if i > 0 && logger != nil {
			logger.Warn("using fallback environment variable",
				"used_var", envVar,
				"preferred_var", envVars[0],
				"value", redact.String(val))
		}
		return val
	}
	return defaultValue
}
