package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommandTree(t *testing.T) {
	root := newRootCmd()

	for _, path := range [][]string{
		{"migrate", "up"},
		{"migrate", "down"},
		{"migrate", "status"},
		{"create-user"},
	} {
		cmd, _, err := root.Find(path)
		require.NoError(t, err, path)
		assert.Equal(t, path[len(path)-1], cmd.Name())
	}

	createUser, _, err := root.Find([]string{"create-user"})
	require.NoError(t, err)
	for _, flag := range []string{"name", "email", "password", "dob", "description"} {
		assert.NotNil(t, createUser.Flags().Lookup(flag), flag)
	}
}
