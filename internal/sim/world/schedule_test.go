package world

import "testing"

func TestRegisterSystems_Order(t *testing.T) {
	tun := bareTuning()
	tun.Spawner.Enabled = true
	w := newTestWorld(t, tun)
	want := []string{"hold", "hold_apply", "physics", "sweep_timed", "sweep_boundary", "spawner"}
	if len(w.systems) != len(want) {
		t.Fatalf("systems=%d want %d", len(w.systems), len(want))
	}
	for i, s := range w.systems {
		if s.name != want[i] {
			t.Fatalf("system %d=%s want %s", i, s.name, want[i])
		}
	}
	if w.systems[0].every != 1 || w.systems[1].every != 1 || w.systems[3].every != 20 || w.systems[5].every != 100 {
		t.Fatalf("unexpected cadences: %+v", w.systems)
	}
}

func TestEvery_Cadence(t *testing.T) {
	w := newTestWorld(t, bareTuning())
	w.systems = nil
	var runs []uint64
	w.every(50, "counter", func(nowTick uint64) { runs = append(runs, nowTick) })
	for i := uint64(0); i < 25; i++ {
		w.runSystems(i)
	}
	if len(runs) != 3 || runs[0] != 0 || runs[1] != 10 || runs[2] != 20 {
		t.Fatalf("runs=%v", runs)
	}
}

func TestScoreCounter(t *testing.T) {
	var c ScoreCounter
	if c.Add(1) != 1 || c.Add(2) != 3 || c.Load() != 3 {
		t.Fatalf("score counter arithmetic")
	}
}
