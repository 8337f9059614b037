package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_SaveGetRoundTrip(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	saved, err := s.Save("My Flow", []any{map[string]any{"id": "a"}}, []any{}, "desc", "")
	require.NoError(t, err)
	require.NotEmpty(t, saved.ID)

	got, ok, err := s.Get(saved.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, saved.Name, got.Name)
	assert.Equal(t, saved.Description, got.Description)
	assert.Len(t, got.Nodes, 1)
}

func TestFileStore_SaveWithExistingIDUpdatesInPlace(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	first, err := s.Save("A", nil, nil, "", "")
	require.NoError(t, err)

	second, err := s.Save("A renamed", nil, nil, "", first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)

	list, err := s.List()
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestFileStore_ListSortedByUpdatedAtDesc(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	older, err := s.Save("older", nil, nil, "", "")
	require.NoError(t, err)
	newer, err := s.Save("newer", nil, nil, "", "")
	require.NoError(t, err)
	newer.UpdatedAt = newer.UpdatedAt.Add(time.Hour)
	require.NoError(t, s.writeLocked(newer))

	list, err := s.List()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer.ID, list[0].ID)
	assert.Equal(t, older.ID, list[1].ID)
}

func TestFileStore_DeleteRemovesEntry(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	saved, err := s.Save("gone soon", nil, nil, "", "")
	require.NoError(t, err)
	require.NoError(t, s.Delete(saved.ID))

	_, ok, err := s.Get(saved.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileStore_RenameUnknownIDReturnsFalse(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	_, ok, err := s.Rename("wf_does_not_exist", "new name")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileStore_DuplicateGetsNewID(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	require.NoError(t, err)

	original, err := s.Save("source", []any{map[string]any{"id": "a"}}, nil, "", "")
	require.NoError(t, err)

	dup, ok, err := s.Duplicate(original.ID, "")
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotEqual(t, original.ID, dup.ID)
	assert.Equal(t, "source (copy)", dup.Name)
	assert.Len(t, dup.Nodes, 1)
}
