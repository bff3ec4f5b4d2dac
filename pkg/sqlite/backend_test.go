package sqlite

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/chainlink/pkg/types"
)

func TestOpenReturnsUsableHandle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "issues.db")
	h, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, path, h.Path())

	id, err := h.CreateIssue("first", nil, types.PriorityMedium)
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	require.NoError(t, h.Close())
	_, err = h.GetIssue(id)
	assert.ErrorIs(t, err, types.ErrStoreClosed)
}

func TestOpenConfigErrorsAreNilHandles(t *testing.T) {
	h, err := OpenConfig(types.Config{Backend: "postgres", DataDir: t.TempDir()})
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrBackendUnknown))
	assert.Nil(t, h, "a failed open must not return a typed nil")
}
