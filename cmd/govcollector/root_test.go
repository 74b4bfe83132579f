package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["serve"])
	assert.True(t, names["collect"])
	assert.True(t, names["seed"])
}

func TestCommandFlags(t *testing.T) {
	org := collectCmd.Flags().Lookup("org")
	require.NotNil(t, org)
	assert.Equal(t, "", org.DefValue)

	dry := collectCmd.Flags().Lookup("dry-run")
	require.NotNil(t, dry)
	assert.Equal(t, "false", dry.DefValue)

	immediate := serveCmd.Flags().Lookup("run-immediately")
	require.NotNil(t, immediate)
	assert.Equal(t, "false", immediate.DefValue)
}
