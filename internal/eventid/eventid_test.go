package eventid

import (
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_UniqueAndOrdered(t *testing.T) {
	const n = 10000

	ids := make([]string, 0, n)
	seen := make(map[string]struct{}, n)

	for i := 0; i < n; i++ {
		id := New()
		require.Len(t, id, Length)

		_, dup := seen[id]
		require.False(t, dup, "duplicate id %s at iteration %d", id, i)
		seen[id] = struct{}{}

		ids = append(ids, id)
	}

	assert.True(t, sort.StringsAreSorted(ids), "generation order must match sort order")
}

func TestNew_SortableAcrossClockTicks(t *testing.T) {
	first := New()
	time.Sleep(2 * time.Millisecond)
	second := New()

	assert.True(t, first < second, "id %s should sort before %s", first, second)
}

func TestValid(t *testing.T) {
	tests := []struct {
		name  string
		id    string
		valid bool
	}{
		{"generated id", New(), true},
		{"empty", "", false},
		{"too short", "01ARZ3NDEKTSV4RRFFQ69G5FA", false},
		{"too long", "01ARZ3NDEKTSV4RRFFQ69G5FAVX", false},
		{"excluded alphabet char", strings.Repeat("I", Length), false},
		{"lowercase rejected", strings.ToLower(New()), false},
		{"known good ulid", "01ARZ3NDEKTSV4RRFFQ69G5FAV", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, Valid(tt.id))
		})
	}
}
