// Package indexdb maintains queryable secondary indexes of the tick and audit
// streams. JSONL logs stay the source of truth; indexes may drop under load.
package indexdb

import (
	"sync/atomic"

	"propworks.ai/internal/persistence/snapshot"
	"propworks.ai/internal/sim/world"
)

// Index is a best-effort sink for world events.
type Index interface {
	WriteTick(world.TickLogEntry) error
	WriteAudit(world.AuditEntry) error
	RecordSnapshot(path string, snap snapshot.SnapshotV1)
	Stats() Stats
	Close() error
}

type Stats struct {
	QueueDepth        int
	QueueCapacity     int
	DropTickTotal     uint64
	DropAuditTotal    uint64
	DropSnapshotTotal uint64
}

type dropCounters struct {
	tick     atomic.Uint64
	audit    atomic.Uint64
	snapshot atomic.Uint64
}

func (d *dropCounters) fill(st *Stats) {
	st.DropTickTotal = d.tick.Load()
	st.DropAuditTotal = d.audit.Load()
	st.DropSnapshotTotal = d.snapshot.Load()
}

type snapshotRow struct {
	Tick    uint64 `json:"tick"`
	Path    string `json:"path"`
	WorldID string `json:"world_id"`
	Seed    int64  `json:"seed"`
	Score   int64  `json:"score"`
	Objects int    `json:"objects"`
	Bodies  int    `json:"bodies"`
}

func snapshotRowOf(path string, snap snapshot.SnapshotV1) snapshotRow {
	return snapshotRow{
		Tick:    snap.Header.Tick,
		Path:    path,
		WorldID: snap.Header.WorldID,
		Seed:    snap.Seed,
		Score:   snap.Score,
		Objects: len(snap.Objects),
		Bodies:  len(snap.Bodies),
	}
}
