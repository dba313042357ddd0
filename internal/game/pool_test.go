package game

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cardczar/internal/cards"
)

func testRNG() *rand.Rand {
	return rand.New(rand.NewPCG(7, 11))
}

func TestPool_DrawsEveryCardOnce(t *testing.T) {
	p := newPool()
	rng := testRNG()
	for i := 0; i < 10; i++ {
		p.add(cards.ID{Pack: 0, Card: i})
	}
	require.Equal(t, 10, p.size())

	seen := make(map[cards.ID]bool)
	for i := 0; i < 10; i++ {
		id, ok := p.draw(rng)
		require.True(t, ok)
		assert.False(t, seen[id], "card %v drawn twice", id)
		seen[id] = true
	}

	assert.Equal(t, 0, p.size())
	_, ok := p.draw(rng)
	assert.False(t, ok, "empty pool must not deal")
}

func TestPool_AddIsIdempotent(t *testing.T) {
	p := newPool()
	id := cards.ID{Pack: 1, Card: 3}

	p.add(id)
	p.add(id)
	p.add(id)

	assert.Equal(t, 1, p.size())
	assert.True(t, p.contains(id))
}

func TestPool_DrawRemovesMembership(t *testing.T) {
	p := newPool()
	rng := testRNG()
	p.add(cards.ID{Pack: 0, Card: 0})
	p.add(cards.ID{Pack: 0, Card: 1})

	id, ok := p.draw(rng)
	require.True(t, ok)
	assert.False(t, p.contains(id))
	assert.Equal(t, 1, p.size())

	// Returning the drawn card restores it exactly once.
	p.add(id)
	p.add(id)
	assert.Equal(t, 2, p.size())
	assert.True(t, p.contains(id))
}
