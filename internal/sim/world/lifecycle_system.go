package world

import (
	"propworks.ai/internal/sim/tuning"
	"propworks.ai/internal/sim/world/feature/lifecycle"
)

func (w *World) systemTimedSweep(nowTick uint64) {
	ids, load := w.lifetimeLookup()
	for _, id := range lifecycle.SortedExpired(ids, load, nowTick) {
		w.despawnObject(nowTick, id, lifecycle.ReasonExpire)
	}
}

// systemBoundarySweep despawns boundary objects that fell off the world and
// scores one point for each.
func (w *World) systemBoundarySweep(nowTick uint64) {
	ids, load := w.lifetimeLookup()
	for _, id := range lifecycle.SortedBelow(ids, load, w.tun.Lifecycle.KillZ) {
		pos, ok := w.despawnObject(nowTick, id, lifecycle.ReasonOutOfBounds)
		if !ok {
			continue
		}
		total := w.score.Add(1)
		w.auditEvent(nowTick, "WORLD", "SCORE", id, pos, lifecycle.ReasonOutOfBounds, map[string]any{"score": total})
	}
}

// lifetimeLookup queries every entity with a spawn record. The sweeps despawn
// after the query finishes, since the ECS world is locked while iterating.
func (w *World) lifetimeLookup() ([]string, func(string) (lifecycle.Record, bool)) {
	recs := w.objects.lifetimeRecords(w.entityZ)
	ids := make([]string, len(recs))
	byID := make(map[string]lifecycle.Record, len(recs))
	for i, r := range recs {
		ids[i] = r.ID
		byID[r.ID] = r
	}
	return ids, func(id string) (lifecycle.Record, bool) {
		r, ok := byID[id]
		return r, ok
	}
}

func (w *World) systemSpawner(nowTick uint64) {
	sp := w.tun.Spawner
	n := w.spawned.Add(1) - 1
	pos := lifecycle.SpawnPosition(w.cfg.Seed, lifecycle.StreamSpawner, n, sp.Center, sp.HalfExtent, sp.Height)
	var caps Capability
	if sp.Holdable {
		caps |= CapHoldable
	}
	o := w.spawnSphere(nowTick, pos, sp.Radius, sp.Mass, caps, w.spawnPolicy, tuning.Ticks(sp.TTLMS, w.tun.TickRateHz))
	w.auditEvent(nowTick, "WORLD", "SPAWN", o.ID, pos, w.spawnPolicy.String(), nil)
}
