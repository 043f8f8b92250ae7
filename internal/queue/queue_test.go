package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMax(t *testing.T) {
	pq := NewMax(3)

	_, ok := pq.Top()
	assert.False(t, ok)

	pq.Push(Item{Position: 0, Distance: 2.0})
	pq.Push(Item{Position: 1, Distance: 0.5})
	pq.Push(Item{Position: 2, Distance: 1.5})

	top, ok := pq.Top()
	require.True(t, ok)
	assert.Equal(t, 0, top.Position)

	// Pops come out worst-first.
	order := []int{}
	for pq.Len() > 0 {
		item, ok := pq.Pop()
		require.True(t, ok)
		order = append(order, item.Position)
	}
	assert.Equal(t, []int{0, 2, 1}, order)
}
