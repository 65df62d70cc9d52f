package world

import (
	"testing"

	"propworks.ai/internal/protocol"
	"propworks.ai/internal/sim/tuning"
)

type scriptedTick struct {
	joins  []JoinRequest
	leaves []string
	inputs []InputEnvelope
}

// script drives two players through pickups, poses, paints and a disconnect.
func script(tick uint64) scriptedTick {
	var s scriptedTick
	switch tick {
	case 0:
		s.joins = []JoinRequest{{Name: "a"}, {Name: "b"}}
	case 60:
		s.inputs = []InputEnvelope{pose("P1", [3]float64{0, -6, 0})}
	case 61:
		s.inputs = []InputEnvelope{interact("P1", [3]float64{0, -6, 0.5}, [3]float64{0, 1, 0}, protocol.InteractPickup)}
	case 120:
		s.inputs = []InputEnvelope{paint("P2", [3]float64{3, 3, 4}, [3]float64{0, 0, -1})}
	case 200:
		s.inputs = []InputEnvelope{interact("P1", [3]float64{}, [3]float64{0, 1, 0}, protocol.InteractLetGo)}
	case 260:
		s.leaves = []string{"P2"}
	}
	return s
}

func runScripted(t *testing.T, tun tuning.Tuning, ticks uint64) []string {
	t.Helper()
	w := newTestWorld(t, tun)
	out := make([]string, 0, ticks)
	for i := uint64(0); i < ticks; i++ {
		s := script(i)
		_, d := w.StepOnce(s.joins, s.leaves, s.inputs)
		out = append(out, d)
		mustCheck(t, w)
	}
	return out
}

func TestDeterminism_SameInputsSameDigests(t *testing.T) {
	tun := tuning.Defaults()
	tun.Rig.LoadTicks = 20
	a := runScripted(t, tun, 400)
	b := runScripted(t, tun, 400)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("digest diverged at tick %d", i)
		}
	}
	if a[0] == a[len(a)-1] {
		t.Fatalf("digest never changed")
	}
}
