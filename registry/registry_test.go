package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBaseRegistry_RegisterDuplicateErrors(t *testing.T) {
	r := NewBaseRegistry[int]()
	require.NoError(t, r.Register("a", 1))
	err := r.Register("a", 2)
	assert.Error(t, err)
	got, ok := r.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, got)
}

func TestBaseRegistry_SetIsIdempotentReplace(t *testing.T) {
	r := NewBaseRegistry[int]()
	r.Set("a", 1)
	r.Set("a", 2)
	got, ok := r.Get("a")
	require.True(t, ok)
	assert.Equal(t, 2, got)
	assert.Equal(t, 1, r.Count())
}

func TestBaseRegistry_ListSortedByName(t *testing.T) {
	r := NewBaseRegistry[string]()
	r.Set("zebra", "z")
	r.Set("apple", "a")
	r.Set("mango", "m")
	assert.Equal(t, []string{"a", "m", "z"}, r.List())
}

func TestBaseRegistry_RemoveAndClear(t *testing.T) {
	r := NewBaseRegistry[int]()
	r.Set("a", 1)
	require.NoError(t, r.Remove("a"))
	assert.Error(t, r.Remove("a"))
	r.Set("b", 2)
	r.Clear()
	assert.Equal(t, 0, r.Count())
}
