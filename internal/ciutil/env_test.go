package ciutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func clearCIEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{EnvCI, EnvGitHubActions, EnvGitLabCI, EnvJenkinsURL, EnvCircleCI} {
		t.Setenv(name, "")
	}
}

func TestIsCI(t *testing.T) {
	tests := []struct {
		name string
		env  string
		want bool
	}{
		{name: "local", env: "", want: false},
		{name: "generic CI", env: EnvCI, want: true},
		{name: "GitHub Actions", env: EnvGitHubActions, want: true},
		{name: "CircleCI", env: EnvCircleCI, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearCIEnv(t)
			if tt.env != "" {
				t.Setenv(tt.env, "true")
			}
			assert.Equal(t, tt.want, IsCI())
		})
	}
}

func TestGetEnvWithFallbacks(t *testing.T) {
	t.Setenv(EnvTestRedisAddr, "")
	t.Setenv(EnvRedisURL, "")
	vars := []string{EnvTestRedisAddr, EnvRedisURL}

	assert.Equal(t, "default", GetEnvWithFallbacks(vars, "default", nil))

	t.Setenv(EnvRedisURL, "redis://fallback:6379")
	assert.Equal(t, "redis://fallback:6379", GetEnvWithFallbacks(vars, "", nil))

	t.Setenv(EnvTestRedisAddr, "localhost:6379")
	assert.Equal(t, "localhost:6379", GetEnvWithFallbacks(vars, "", nil))
}

func TestTestDatabaseURL(t *testing.T) {
	clearCIEnv(t)
	t.Setenv(EnvDatabaseURL, "")
	t.Setenv(EnvTestDatabaseURL, "postgres://verbdrill@localhost/verbdrill_test")

	assert.Equal(t, "postgres://verbdrill@localhost/verbdrill_test", TestDatabaseURL(t))
}
