package world

import "sync/atomic"

// ScoreCounter is the shared delivery score. Add is its only mutation path.
type ScoreCounter struct {
	v atomic.Int64
}

// Add applies delta as one read-modify-write and returns the new total.
func (c *ScoreCounter) Add(delta int64) int64 { return c.v.Add(delta) }

func (c *ScoreCounter) Load() int64 { return c.v.Load() }

// restore is used only by snapshot import.
func (c *ScoreCounter) restore(v int64) { c.v.Store(v) }
