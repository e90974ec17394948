package clock

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIncrement_MonotonicAndPersistent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clocks.yaml")
	c := New("node-a", path)

	assert.Equal(t, int64(0), c.Current())

	for i := int64(1); i <= 5; i++ {
		v, err := c.Increment()
		require.NoError(t, err)
		assert.Equal(t, i, v)
	}

	// A fresh handle over the same file continues, not restarts.
	reopened := New("node-a", path)
	assert.Equal(t, int64(5), reopened.Current())

	v, err := reopened.Increment()
	require.NoError(t, err)
	assert.Equal(t, int64(6), v)
}

func TestObserve_TakesMaxPlusOne(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clocks.yaml")
	c := New("node-a", path)

	_, err := c.Increment()
	require.NoError(t, err)
	_, err = c.Increment()
	require.NoError(t, err)

	tests := []struct {
		name   string
		remote int64
		want   int64
	}{
		{"remote ahead", 10, 11},
		{"remote behind", 3, 12},
		{"remote equal", 12, 13},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := c.Observe(tt.remote)
			require.NoError(t, err)
			assert.Equal(t, tt.want, v)
			assert.Equal(t, tt.want, c.Current())
		})
	}
}

func TestTwoNodesShareOneFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clocks.yaml")
	a := New("node-a", path)
	b := New("node-b", path)

	for i := 0; i < 3; i++ {
		_, err := a.Increment()
		require.NoError(t, err)
	}
	v, err := b.Increment()
	require.NoError(t, err)

	assert.Equal(t, int64(1), v, "node-b must not inherit node-a's counter")
	assert.Equal(t, int64(3), a.Current())
}

func TestCorruptStateFallsBackToZero(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clocks.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{not yaml"), 0600))

	c := New("node-a", path)
	assert.Equal(t, int64(0), c.Current())

	v, err := c.Increment()
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)
}

func TestMissingFileStartsAtZero(t *testing.T) {
	c := New("node-a", filepath.Join(t.TempDir(), "nested", "clocks.yaml"))

	assert.Equal(t, int64(0), c.Current())
	v, err := c.Increment()
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)
}
