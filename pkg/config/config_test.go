package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultMatchesSpecValues(t *testing.T) {
	cfg := Default()
	require.Equal(t, 3, cfg.RetryAttempts)
	require.Equal(t, 32, cfg.BatchConcurrency)
	require.Equal(t, 5, cfg.DegradeAfterFailures)
}

func TestCustomDeployment(t *testing.T) {
	d := Custom("local", "http://be", "http://l0", "http://l1")
	require.Equal(t, "local", d.Name)
	require.Equal(t, "http://be", d.BEURL)
}

func TestFromEnvOverridesWithPrefix(t *testing.T) {
	t.Setenv("DAGSDK_TEST_BATCH_CONCURRENCY", "8")
	cfg, err := FromEnv("DAGSDK_TEST")
	require.NoError(t, err)
	require.Equal(t, 8, cfg.BatchConcurrency)
}
