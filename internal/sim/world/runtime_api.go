package world

import (
	"propworks.ai/internal/persistence/snapshot"
	"propworks.ai/internal/sim/world/feature/ownership"
)

func (w *World) SetTickLogger(l TickLogger)                    { w.tickLogger = l }
func (w *World) SetAuditLogger(l AuditLogger)                  { w.auditLogger = l }
func (w *World) SetSnapshotSink(ch chan<- snapshot.SnapshotV1) { w.snapshotSink = ch }

func (w *World) ExportSnapshot(nowTick uint64) snapshot.SnapshotV1 {
	return w.exportSnapshot(nowTick)
}

// ImportSnapshot replaces the current in-memory world state with the snapshot.
// It sets the world's tick to snapshotTick+1 (the next tick to simulate).
//
// This must be called only when the world is stopped or from the world loop goroutine.
func (w *World) ImportSnapshot(s snapshot.SnapshotV1) error {
	return w.importSnapshotV1(s)
}

func (w *World) Inbox() chan<- InputEnvelope { return w.inbox }
func (w *World) Join() chan<- JoinRequest    { return w.join }
func (w *World) Leave() chan<- string        { return w.leave }

// Submit enqueues an input without blocking. A full inbox drops it.
func (w *World) Submit(env InputEnvelope) bool {
	select {
	case w.inbox <- env:
		return true
	default:
		return false
	}
}

func (w *World) CurrentTick() uint64 { return w.tick.Load() }

// Score is safe to call from any goroutine.
func (w *World) Score() int64 { return w.score.Load() }

// The accessors below read world-loop state; call them only when the loop is
// stopped (tests, replay, tooling).

func (w *World) HolderOf(objectID string) (string, bool) { return w.owners.HolderOf(objectID) }
func (w *World) HeldBy(playerID string) (string, bool)   { return w.owners.HeldBy(playerID) }
func (w *World) HolderPairs() []ownership.Pair           { return w.owners.Pairs() }
func (w *World) CheckOwnership() error                   { return w.owners.Check() }
func (w *World) StateDigest() string                     { return w.stateDigest(w.tick.Load()) }
