package holdforce

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func testParams() Params {
	return Params{
		MaxForce:            100,
		Gain:                60,
		HeadOffsetScale:     0.65,
		ForwardOffset:       mgl64.Vec3{0, 2, 0},
		GravityCompensation: 1,
		Epsilon:             1e-4,
	}
}

func near(a, b mgl64.Vec3) bool { return a.Sub(b).Len() < 1e-9 }

func TestAnchor_Identity(t *testing.T) {
	p := testParams()
	got := Anchor(p, mgl64.Vec3{1, 1, 0}, mgl64.QuatIdent(), Head{
		Translation: mgl64.Vec3{0, 0, 2},
		Rotation:    mgl64.QuatIdent(),
	})
	want := mgl64.Vec3{1, 3, 1.3}
	if !near(got, want) {
		t.Fatalf("anchor=%v want %v", got, want)
	}
}

func TestAnchor_RotatesWithLook(t *testing.T) {
	p := testParams()
	yaw := mgl64.QuatRotate(math.Pi/2, mgl64.Vec3{0, 0, 1})
	got := Anchor(p, mgl64.Vec3{}, yaw, Head{Rotation: mgl64.QuatIdent()})
	// +Y rotated 90 degrees about +Z points to -X.
	if !near(got, mgl64.Vec3{-2, 0, 0}) {
		t.Fatalf("anchor=%v", got)
	}

	pitch := mgl64.QuatRotate(math.Pi/2, mgl64.Vec3{1, 0, 0})
	got = Anchor(p, mgl64.Vec3{}, mgl64.QuatIdent(), Head{Rotation: pitch})
	if !near(got, mgl64.Vec3{0, 0, 2}) {
		t.Fatalf("looking up anchor=%v", got)
	}
}

func TestCorrective_Bounded(t *testing.T) {
	p := testParams()
	for _, d := range []float64{0.001, 0.5, 1, 1.5, 10, 1000} {
		f := Corrective(p, mgl64.Vec3{}, mgl64.Vec3{d, 0, 0})
		if f.Len() > p.MaxForce+1e-9 {
			t.Fatalf("distance %v: |f|=%v exceeds max", d, f.Len())
		}
		want := math.Min(p.MaxForce, d*p.Gain)
		if math.Abs(f.Len()-want) > 1e-9 {
			t.Fatalf("distance %v: |f|=%v want %v", d, f.Len(), want)
		}
		if f.X() <= 0 {
			t.Fatalf("force must point at the anchor: %v", f)
		}
	}
}

func TestCorrective_Epsilon(t *testing.T) {
	p := testParams()
	if f := Corrective(p, mgl64.Vec3{1, 1, 1}, mgl64.Vec3{1, 1, 1.00001}); f.Len() != 0 {
		t.Fatalf("expected no force inside epsilon, got %v", f)
	}
	if f := Corrective(p, mgl64.Vec3{}, mgl64.Vec3{}); f.Len() != 0 {
		t.Fatalf("expected no force at zero distance, got %v", f)
	}
}

func TestGravityCompensation(t *testing.T) {
	p := testParams()
	g := mgl64.Vec3{0, 0, -9.81}
	if got := GravityCompensation(p, g, 2); !near(got, mgl64.Vec3{0, 0, 19.62}) {
		t.Fatalf("comp=%v", got)
	}
	p.GravityCompensation = 0
	if got := GravityCompensation(p, g, 2); got.Len() != 0 {
		t.Fatalf("disabled comp=%v", got)
	}
}
