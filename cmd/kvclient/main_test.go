package main

import (
	"testing"

	"kvclient/internal/config"

	"github.com/stretchr/testify/require"
)

func TestVersion_SkipsConfig(t *testing.T) {
	t.Setenv(config.EnvPollInterval, "soon")

	rootCmd.SetArgs([]string{"version"})
	require.NoError(t, rootCmd.Execute())

	rootCmd.SetArgs([]string{"status", "job-1"})
	require.ErrorContains(t, rootCmd.Execute(), config.EnvPollInterval)
}
