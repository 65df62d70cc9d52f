// Package ownership tracks which player holds which object.
//
// The relation is a partial injective function in both directions: an object
// has at most one holder and a player holds at most one object.
package ownership

import (
	"fmt"
	"sort"
)

type Pair struct {
	Object string
	Player string
}

type Registry struct {
	holderOf map[string]string // object -> player
	heldBy   map[string]string // player -> object
}

func NewRegistry() *Registry {
	return &Registry{
		holderOf: map[string]string{},
		heldBy:   map[string]string{},
	}
}

// TryAcquire records object -> player. It fails without touching state when
// the object already has a holder or the player already holds something.
func (r *Registry) TryAcquire(object, player string) bool {
	if object == "" || player == "" {
		return false
	}
	if _, ok := r.holderOf[object]; ok {
		return false
	}
	if _, ok := r.heldBy[player]; ok {
		return false
	}
	r.holderOf[object] = player
	r.heldBy[player] = object
	return true
}

// Release drops the edge held by player, if any.
func (r *Registry) Release(player string) (string, bool) {
	object, ok := r.heldBy[player]
	if !ok {
		return "", false
	}
	delete(r.heldBy, player)
	delete(r.holderOf, object)
	return object, true
}

// ReleaseObject drops the edge on object regardless of who holds it.
func (r *Registry) ReleaseObject(object string) (string, bool) {
	player, ok := r.holderOf[object]
	if !ok {
		return "", false
	}
	delete(r.holderOf, object)
	delete(r.heldBy, player)
	return player, true
}

func (r *Registry) HolderOf(object string) (string, bool) {
	p, ok := r.holderOf[object]
	return p, ok
}

func (r *Registry) HeldBy(player string) (string, bool) {
	o, ok := r.heldBy[player]
	return o, ok
}

func (r *Registry) Len() int { return len(r.holderOf) }

// Pairs returns all edges sorted by object id.
func (r *Registry) Pairs() []Pair {
	out := make([]Pair, 0, len(r.holderOf))
	for o, p := range r.holderOf {
		out = append(out, Pair{Object: o, Player: p})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Object < out[j].Object })
	return out
}

// Check verifies that both indexes describe the same relation.
func (r *Registry) Check() error {
	if len(r.holderOf) != len(r.heldBy) {
		return fmt.Errorf("ownership: index size mismatch %d != %d", len(r.holderOf), len(r.heldBy))
	}
	for o, p := range r.holderOf {
		if back, ok := r.heldBy[p]; !ok || back != o {
			return fmt.Errorf("ownership: object %s -> player %s has no inverse", o, p)
		}
	}
	return nil
}
