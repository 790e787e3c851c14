package cache

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatementCacheGetOrRender(t *testing.T) {
	c, err := NewStatementCache[uint64, string](2)
	require.NoError(t, err)

	renders := 0
	render := func(sql string) func() (string, error) {
		return func() (string, error) {
			renders++
			return sql, nil
		}
	}

	got, err := c.GetOrRender(1, render("SELECT 1"))
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1", got)

	got, err = c.GetOrRender(1, render("SELECT 1 again"))
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1", got)
	assert.Equal(t, 1, renders)

	_, _ = c.GetOrRender(2, render("SELECT 2"))
	_, _ = c.GetOrRender(3, render("SELECT 3"))
	assert.Equal(t, 2, c.Len())
	_, ok := c.Get(1)
	assert.False(t, ok, "least recently used entry should be evicted")

	c.Purge()
	assert.Equal(t, 0, c.Len())
}

func TestStatementCacheRenderError(t *testing.T) {
	c, err := NewStatementCache[uint64, string](0)
	require.NoError(t, err)

	boom := errors.New("boom")
	_, err = c.GetOrRender(7, func() (string, error) { return "", boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, c.Len())
}
