package playlist

import (
	"fmt"
	"math/rand/v2"

	"github.com/desertthunder/nodeq/internal/shared"
)

// Unset is returned by [ShuffleOrder] lookups past either end.
const Unset = -1

// ShuffleOrder is a permutation of playlist indices, as kept by the external player.
type ShuffleOrder interface {
	Len() int
	Next(i int) int     // index played after i, or Unset
	Previous(i int) int // index played before i, or Unset
	First() int
	Last() int
}

// Order is a [ShuffleOrder] backed by an explicit index list.
type Order struct {
	shuffled []int
	position []int // position[i] is where index i sits in shuffled
}

// NewOrder builds an order from a permutation of 0..len(indices)-1.
func NewOrder(indices []int) (*Order, error) {
	o := &Order{
		shuffled: make([]int, len(indices)),
		position: make([]int, len(indices)),
	}
	for i := range o.position {
		o.position[i] = Unset
	}

	for pos, idx := range indices {
		if idx < 0 || idx >= len(indices) || o.position[idx] != Unset {
			return nil, fmt.Errorf("%w: %v is not a permutation", shared.ErrInvalidInput, indices)
		}
		o.shuffled[pos] = idx
		o.position[idx] = pos
	}
	return o, nil
}

// Usable reports whether o is a permutation of 0..n-1. Orders pushed by the external player are
// checked with it before any of their indices are used: walking Next from First must visit every
// index exactly once, and Previous must walk the same chain back.
func Usable(o ShuffleOrder, n int) bool {
	if o == nil || o.Len() != n {
		return false
	}
	if n == 0 {
		return true
	}

	seen := make([]bool, n)
	prev := Unset
	i := o.First()
	for count := 0; count < n; count++ {
		if i < 0 || i >= n || seen[i] || o.Previous(i) != prev {
			return false
		}
		seen[i] = true
		prev, i = i, o.Next(i)
	}
	return i == Unset && o.Last() == prev
}

// RandomOrder returns a random order of n indices drawn from rng.
func RandomOrder(n int, rng *rand.Rand) *Order {
	o, _ := NewOrder(rng.Perm(n))
	return o
}

// NewRand returns a deterministic generator for seed, or a randomly seeded one when seed is 0.
func NewRand(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = rand.Uint64()
	}
	return rand.New(rand.NewPCG(seed, seed>>1|1))
}

func (o *Order) Len() int { return len(o.shuffled) }

func (o *Order) Next(i int) int {
	if i < 0 || i >= len(o.position) || o.position[i] >= len(o.shuffled)-1 {
		return Unset
	}
	return o.shuffled[o.position[i]+1]
}

func (o *Order) Previous(i int) int {
	if i < 0 || i >= len(o.position) || o.position[i] <= 0 {
		return Unset
	}
	return o.shuffled[o.position[i]-1]
}

func (o *Order) First() int {
	if len(o.shuffled) == 0 {
		return Unset
	}
	return o.shuffled[0]
}

func (o *Order) Last() int {
	if len(o.shuffled) == 0 {
		return Unset
	}
	return o.shuffled[len(o.shuffled)-1]
}

// Indices returns a copy of the shuffled index list.
func (o *Order) Indices() []int {
	out := make([]int, len(o.shuffled))
	copy(out, o.shuffled)
	return out
}

// Without returns the order after removing playlist index idx, with later indices shifted down.
func (o *Order) Without(idx int) *Order {
	if idx < 0 || idx >= len(o.position) {
		return o
	}

	indices := make([]int, 0, len(o.shuffled)-1)
	for _, i := range o.shuffled {
		switch {
		case i == idx:
			continue
		case i > idx:
			indices = append(indices, i-1)
		default:
			indices = append(indices, i)
		}
	}

	out, _ := NewOrder(indices)
	return out
}

// Swapped returns the order after playlist indices a and b trade places.
func (o *Order) Swapped(a, b int) *Order {
	indices := o.Indices()
	for pos, i := range indices {
		switch i {
		case a:
			indices[pos] = b
		case b:
			indices[pos] = a
		}
	}
	out, _ := NewOrder(indices)
	return out
}
