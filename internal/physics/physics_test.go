package physics

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func testWorld() *World {
	w := NewWorld(Config{
		Gravity:       mgl64.Vec3{0, 0, -9.81},
		LinearDamping: 0.5,
		Restitution:   0.2,
		Friction:      0.4,
	})
	// floor top at z=0
	w.AddStaticBox(mgl64.Vec3{0, 0, -0.5}, mgl64.Vec3{10, 10, 0.5})
	return w
}

func TestStep_BoxSettlesOnFloor(t *testing.T) {
	w := testWorld()
	id := w.AddBox(mgl64.Vec3{0, 0, 2}, mgl64.Vec3{0.5, 0.5, 0.5}, 1)
	for i := 0; i < 2000; i++ {
		w.Step(0.005)
	}
	p, ok := w.Position(id)
	if !ok {
		t.Fatalf("body missing")
	}
	if math.Abs(p.Z()-0.5) > 0.01 {
		t.Fatalf("z=%v want ~0.5", p.Z())
	}
	v, _ := w.Velocity(id)
	if v.Len() > 0.05 {
		t.Fatalf("still moving: %v", v)
	}
}

func TestStep_SphereFallsOffEdge(t *testing.T) {
	w := testWorld()
	id := w.AddSphere(mgl64.Vec3{12, 0, 3}, 0.1, 0.2)
	for i := 0; i < 400; i++ {
		w.Step(0.005)
	}
	p, _ := w.Position(id)
	if p.Z() >= 0 {
		t.Fatalf("sphere off the floor should keep falling, z=%v", p.Z())
	}
}

func TestAddForce_CancelsGravity(t *testing.T) {
	w := testWorld()
	id := w.AddSphere(mgl64.Vec3{0, 0, 5}, 0.5, 2)
	for i := 0; i < 200; i++ {
		w.AddForce(id, mgl64.Vec3{0, 0, 2 * 9.81})
		w.Step(0.005)
	}
	p, _ := w.Position(id)
	if math.Abs(p.Z()-5) > 1e-9 {
		t.Fatalf("z=%v want 5", p.Z())
	}
	if f := w.PendingForce(id); f.Len() != 0 {
		t.Fatalf("force not cleared: %v", f)
	}
}

func TestAddForce_StaticRejected(t *testing.T) {
	w := testWorld()
	if w.AddForce(1, mgl64.Vec3{0, 0, 1}) {
		t.Fatalf("static body accepted force")
	}
	if w.AddForce(99, mgl64.Vec3{0, 0, 1}) {
		t.Fatalf("missing body accepted force")
	}
}

func TestRaycast_FirstHit(t *testing.T) {
	w := testWorld()
	near := w.AddBox(mgl64.Vec3{3, 0, 0.5}, mgl64.Vec3{0.5, 0.5, 0.5}, 1)
	w.AddBox(mgl64.Vec3{6, 0, 0.5}, mgl64.Vec3{0.5, 0.5, 0.5}, 1)

	hit, ok := w.Raycast(mgl64.Vec3{0, 0, 0.5}, mgl64.Vec3{2, 0, 0}, 100)
	if !ok {
		t.Fatalf("expected hit")
	}
	if hit.Body != near {
		t.Fatalf("hit %d want %d", hit.Body, near)
	}
	if math.Abs(hit.Distance-2.5) > 1e-9 {
		t.Fatalf("distance=%v want 2.5", hit.Distance)
	}
	if math.Abs(hit.Point.X()-2.5) > 1e-9 {
		t.Fatalf("point=%v", hit.Point)
	}
}

func TestRaycast_MissAndRange(t *testing.T) {
	w := testWorld()
	w.AddSphere(mgl64.Vec3{0, 0, 5}, 0.5, 1)
	if _, ok := w.Raycast(mgl64.Vec3{0, 0, 1}, mgl64.Vec3{1, 0, 0}, 100); ok {
		t.Fatalf("expected miss")
	}
	if _, ok := w.Raycast(mgl64.Vec3{0, 0, 1}, mgl64.Vec3{0, 0, 1}, 2); ok {
		t.Fatalf("expected out of range")
	}
	if _, ok := w.Raycast(mgl64.Vec3{0, 0, 1}, mgl64.Vec3{0, 0, 0}, 100); ok {
		t.Fatalf("zero direction must not hit")
	}
	hit, ok := w.Raycast(mgl64.Vec3{0, 0, 1}, mgl64.Vec3{0, 0, 1}, 100)
	if !ok || math.Abs(hit.Distance-3.5) > 1e-9 {
		t.Fatalf("hit=%+v ok=%v", hit, ok)
	}
}

func TestRaycast_DownHitsFloor(t *testing.T) {
	w := testWorld()
	hit, ok := w.Raycast(mgl64.Vec3{1, 1, 2}, mgl64.Vec3{0, 0, -1}, 100)
	if !ok || hit.Body != 1 {
		t.Fatalf("hit=%+v ok=%v", hit, ok)
	}
}

func TestRemoveAndImport(t *testing.T) {
	w := testWorld()
	a := w.AddSphere(mgl64.Vec3{0, 0, 1}, 0.5, 1)
	b := w.AddSphere(mgl64.Vec3{2, 0, 1}, 0.5, 1)
	st, _ := w.State(a)
	if !w.Remove(a) {
		t.Fatalf("remove failed")
	}
	if w.Remove(a) {
		t.Fatalf("second remove should report false")
	}
	if err := w.Import(st); err != nil {
		t.Fatalf("import: %v", err)
	}
	if err := w.Import(st); err == nil {
		t.Fatalf("duplicate import should fail")
	}
	states := w.States()
	for i := 1; i < len(states); i++ {
		if states[i-1].ID >= states[i].ID {
			t.Fatalf("states not sorted: %v", states)
		}
	}
	if c := w.AddSphere(mgl64.Vec3{}, 1, 1); c <= b {
		t.Fatalf("new id %d must exceed %d", c, b)
	}
}

func TestStep_Deterministic(t *testing.T) {
	run := func() []BodyState {
		w := testWorld()
		for i := 0; i < 10; i++ {
			w.AddBox(mgl64.Vec3{float64(i%3) * 0.7, float64(i/3) * 0.7, 1 + float64(i)}, mgl64.Vec3{0.5, 0.5, 0.5}, 1)
		}
		for i := 0; i < 500; i++ {
			w.Step(0.005)
		}
		return w.States()
	}
	a, b := run(), run()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("body %d diverged: %+v vs %+v", a[i].ID, a[i], b[i])
		}
	}
}
