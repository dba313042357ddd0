package game

import (
	"math/rand/v2"

	"cardczar/internal/cards"
)

// pool is a draw pile of card ids with uniform draws and idempotent
// returns. Cards are dealt without replacement until the pile empties.
type pool struct {
	ids   []cards.ID
	index map[cards.ID]int
}

func newPool() *pool {
	return &pool{index: make(map[cards.ID]int)}
}

// add returns a card to the pile. Adding a card already present is a
// no-op.
func (p *pool) add(id cards.ID) {
	if _, ok := p.index[id]; ok {
		return
	}
	p.index[id] = len(p.ids)
	p.ids = append(p.ids, id)
}

// draw removes and returns a uniformly random card.
func (p *pool) draw(rng *rand.Rand) (cards.ID, bool) {
	if len(p.ids) == 0 {
		return cards.ID{}, false
	}
	i := rng.IntN(len(p.ids))
	id := p.ids[i]

	last := len(p.ids) - 1
	p.ids[i] = p.ids[last]
	p.index[p.ids[i]] = i
	p.ids = p.ids[:last]
	delete(p.index, id)
	return id, true
}

func (p *pool) contains(id cards.ID) bool {
	_, ok := p.index[id]
	return ok
}

func (p *pool) size() int {
	return len(p.ids)
}
