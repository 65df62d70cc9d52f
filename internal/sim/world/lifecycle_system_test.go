package world

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"propworks.ai/internal/protocol"
	"propworks.ai/internal/sim/world/feature/lifecycle"
)

func TestBoundaryDespawn_ScoresOnce(t *testing.T) {
	w := newTestWorld(t, bareTuning())
	o := placeCube(w, 0, 0)
	w.phys.SetPosition(o.Body, mgl64.Vec3{0, 0, -10})

	sweep := int(w.tun.Lifecycle.SweepMS * w.tun.TickRateHz / 1000)
	for i := 0; i < sweep; i++ {
		w.step(nil, nil, nil)
	}
	if _, ok := current(w, o.ID); ok {
		t.Fatalf("object should be despawned below kill_z")
	}
	if got := w.Score(); got != 1 {
		t.Fatalf("score=%d want 1", got)
	}
	if _, ok := w.phys.State(o.Body); ok {
		t.Fatalf("physics body not removed")
	}
	for i := 0; i < 3*sweep; i++ {
		w.step(nil, nil, nil)
	}
	if got := w.Score(); got != 1 {
		t.Fatalf("score=%d after more sweeps, want 1", got)
	}
	if w.despawned[lifecycle.ReasonOutOfBounds] != 1 {
		t.Fatalf("despawn count=%v", w.despawned)
	}
}

func TestBoundaryDespawn_ReleasesHolder(t *testing.T) {
	w := newTestWorld(t, bareTuning())
	a := joinPlayer(t, w, "a")
	o := placeCube(w, 0, 0)
	origin, dir := rayAtCube(0, 0)
	w.step(nil, nil, []InputEnvelope{interact(a, origin, dir, protocol.InteractPickup)})
	if _, ok := w.HeldBy(a); !ok {
		t.Fatalf("pickup failed")
	}

	w.phys.SetPosition(o.Body, mgl64.Vec3{0, 0, -50})
	for i := 0; i < 40; i++ {
		w.step(nil, nil, nil)
	}
	if _, ok := current(w, o.ID); ok {
		t.Fatalf("held object should still despawn out of bounds")
	}
	if _, ok := w.HeldBy(a); ok {
		t.Fatalf("dangling edge after despawn")
	}
	if w.Score() != 1 {
		t.Fatalf("score=%d", w.Score())
	}
	mustCheck(t, w)

	// The player can pick something else up again.
	o2 := placeCube(w, 0, 0)
	w.step(nil, nil, []InputEnvelope{interact(a, origin, dir, protocol.InteractPickup)})
	if h, _ := w.HolderOf(o2.ID); h != a {
		t.Fatalf("holder=%q", h)
	}
}

func TestTimedDespawn_AfterTTL(t *testing.T) {
	tun := bareTuning()
	tun.Spawner.Enabled = true
	tun.Spawner.Center = [2]float64{0, 0}
	tun.Spawner.Height = 1
	tun.Spawner.IntervalMS = 60000
	w := newTestWorld(t, tun)

	ttl := int(uint64(tun.Spawner.TTLMS) * uint64(tun.TickRateHz) / 1000)
	// Tick 0 spawns the first sphere.
	w.step(nil, nil, nil)
	const id = "O000001"
	o, ok := current(w, id)
	if !ok || o.Kind != KindSphere || o.Policy != lifecycle.PolicyTimed {
		t.Fatalf("expected timed sphere, got %+v", o)
	}
	if o.ExpiresTick != uint64(ttl) {
		t.Fatalf("expires=%d want %d", o.ExpiresTick, ttl)
	}
	for w.tick.Load() < uint64(ttl) {
		w.step(nil, nil, nil)
		if _, ok := current(w, id); !ok {
			t.Fatalf("despawned early at tick %d", w.tick.Load()-1)
		}
	}
	sweep := uint64(tun.Lifecycle.SweepMS * tun.TickRateHz / 1000)
	for i := uint64(0); i < sweep; i++ {
		w.step(nil, nil, nil)
	}
	if _, ok := current(w, id); ok {
		t.Fatalf("still present one sweep after TTL")
	}
	if w.Score() != 0 {
		t.Fatalf("timed despawn must not score")
	}
}

func TestTimedDespawn_ReleasesHolder(t *testing.T) {
	tun := bareTuning()
	tun.Rig.LoadTicks = 1 << 30 // no hold force, so the sphere stays where it lands
	w := newTestWorld(t, tun)
	a := joinPlayer(t, w, "a")
	ttl := uint64(10)
	o := w.spawnSphere(w.tick.Load(), mgl64.Vec3{0, 0, 0.5}, 0.5, 1, CapHoldable, lifecycle.PolicyTimed, ttl)
	origin, dir := rayAtCube(0, 0)
	w.step(nil, nil, []InputEnvelope{interact(a, origin, dir, protocol.InteractPickup)})
	if h, _ := w.HolderOf(o.ID); h != a {
		t.Fatalf("holder=%q want %s", h, a)
	}

	sweep := uint64(tun.Lifecycle.SweepMS * tun.TickRateHz / 1000)
	for w.tick.Load() <= o.ExpiresTick+sweep {
		w.step(nil, nil, nil)
	}
	if _, ok := current(w, o.ID); ok {
		t.Fatalf("held timed object should expire")
	}
	if _, ok := w.HeldBy(a); ok {
		t.Fatalf("dangling edge after expiry")
	}
	if w.despawned[lifecycle.ReasonExpire] != 1 || w.Score() != 0 {
		t.Fatalf("despawned=%v score=%d", w.despawned, w.Score())
	}
	mustCheck(t, w)
}

func TestSpawner_Cadence(t *testing.T) {
	tun := bareTuning()
	tun.Spawner.Enabled = true
	w := newTestWorld(t, tun)
	interval := int(tun.Spawner.IntervalMS * tun.TickRateHz / 1000)
	for i := 0; i < 3*interval; i++ {
		w.step(nil, nil, nil)
	}
	if got := w.spawned.Load(); got != 3 {
		t.Fatalf("spawned=%d want 3", got)
	}
	for _, id := range w.objects.sortedIDs() {
		p := w.objectPos(mustCurrent(t, w, id))
		if p.Y() < -tun.Spawner.HalfExtent[1]-0.5 || p.Y() > tun.Spawner.HalfExtent[1]+0.5 {
			t.Fatalf("spawn drifted out of its rectangle: %v", p)
		}
	}
}

func TestDespawn_MissingIsNoop(t *testing.T) {
	w := newTestWorld(t, bareTuning())
	if _, ok := w.despawnObject(0, "O999999", lifecycle.ReasonExpire); ok {
		t.Fatalf("despawning a missing object must report false")
	}
}
