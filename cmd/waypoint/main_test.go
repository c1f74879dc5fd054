package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/waypoint"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(append(args, "--env-file", "", "--flows", "../../flows"))
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, "waypoint version "+waypoint.Version+"\n", out)
}

func TestValidate(t *testing.T) {
	out, err := execute(t, "", "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ career_onboarding_v1.json (career_onboarding_v1)")
	assert.Contains(t, out, "All flows are valid!")
}

func TestGraph(t *testing.T) {
	out, err := execute(t, "", "graph", "career_onboarding_v1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "graph TD"))

	_, err = execute(t, "", "graph", "missing")
	assert.Error(t, err)
}

func TestRunPlain(t *testing.T) {
	out, err := execute(t, "working\npeople\njob\nDelhi\n", "run", "career_onboarding_v1", "--plain")
	require.NoError(t, err)
	assert.NotContains(t, out, "\x1b[")
	assert.Contains(t, out, "complete.")
	assert.Contains(t, out, "- social")
}

func TestSessionLsEmpty(t *testing.T) {
	out, err := execute(t, "", "session", "ls", "--store", "memory")
	require.NoError(t, err)
	assert.Equal(t, "No sessions found.\n", out)
}
