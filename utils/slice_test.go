package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnique(t *testing.T) {
	assert.Nil(t, Unique[int](nil))
	assert.Equal(t, []int{}, Unique([]int{}))
	assert.Equal(t, []int64{3, 1, 2}, Unique([]int64{3, 1, 3, 2, 1}))
	assert.Equal(t, []string{"b", "a"}, Unique([]string{"b", "a", "b"}))
}
