package combin

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func collect(n, k int) [][]int {
	var out [][]int
	Each(n, k, func(idx []int) bool {
		out = append(out, append([]int(nil), idx...))
		return true
	})
	return out
}

func TestEach_LexicographicOrder(t *testing.T) {
	assert.Equal(t, [][]int{{0, 1}, {0, 2}, {1, 2}}, collect(3, 2))
	assert.Equal(t, [][]int{{0, 1, 2}}, collect(3, 3))
	assert.Len(t, collect(5, 2), 10)
}

func TestEach_OutOfRange(t *testing.T) {
	assert.Empty(t, collect(2, 3))
	assert.Empty(t, collect(2, 0))
}

func TestEach_StopsEarly(t *testing.T) {
	calls := 0
	Each(4, 2, func([]int) bool {
		calls++
		return calls < 2
	})
	assert.Equal(t, 2, calls)
}
