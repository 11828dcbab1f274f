package util

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransformSlice(t *testing.T) {
	assert.Equal(t, []string{"1", "2", "3"},
		TransformSlice([]int{1, 2, 3}, strconv.Itoa))
	assert.Equal(t, []string{}, TransformSlice([]int{}, strconv.Itoa))
}

func TestCanonicalMapIter(t *testing.T) {
	m := map[string]int{"b": 2, "a": 1, "c": 3}

	var keys []string
	for k, v := range CanonicalMapIter(m) {
		keys = append(keys, k)
		assert.Equal(t, m[k], v)
	}
	assert.Equal(t, []string{"a", "b", "c"}, keys)
}
