package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextVersion(t *testing.T) {
	dir := t.TempDir()

	v, err := nextVersion(dir)
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	for _, name := range []string{
		"000001_init.up.sql",
		"000001_init.down.sql",
		"000004_owner_index.up.sql",
		"000004_owner_index.down.sql",
		"README.md",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0644))
	}

	v, err = nextVersion(dir)
	require.NoError(t, err)
	assert.Equal(t, 5, v)
}
