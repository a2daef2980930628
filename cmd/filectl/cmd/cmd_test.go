package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserCreateRequiresPassword(t *testing.T) {
	t.Setenv("FILECTL_PASSWORD", "")

	c := UserCmd()
	c.SetArgs([]string{"create", "alice", "--email", "alice@example.com"})
	c.SetOut(&bytes.Buffer{})
	c.SetErr(&bytes.Buffer{})

	err := c.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FILECTL_PASSWORD")
}

func TestMigrateSubcommands(t *testing.T) {
	t.Parallel()

	var names []string
	for _, sub := range MigrateCmd().Commands() {
		names = append(names, sub.Name())
	}
	assert.ElementsMatch(t, []string{"up", "down"}, names)
}
