package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

type BodyID uint64

type Shape uint8

const (
	ShapeSphere Shape = iota + 1
	ShapeBox
)

func (s Shape) String() string {
	switch s {
	case ShapeSphere:
		return "SPHERE"
	case ShapeBox:
		return "BOX"
	default:
		return "UNKNOWN"
	}
}

// Body is a rigid body. Boxes are axis-aligned; Rot is carried for
// presentation only and does not affect collision.
type Body struct {
	ID       BodyID
	Shape    Shape
	Static   bool
	Radius   float64
	HalfSize mgl64.Vec3
	Mass     float64

	Pos mgl64.Vec3
	Vel mgl64.Vec3
	Rot mgl64.Quat

	force mgl64.Vec3
}

// proxyRadius is the sphere used for dynamic-dynamic contacts.
func (b *Body) proxyRadius() float64 {
	if b.Shape == ShapeSphere {
		return b.Radius
	}
	return math.Min(b.HalfSize.X(), math.Min(b.HalfSize.Y(), b.HalfSize.Z()))
}

func (b *Body) invMass() float64 {
	if b.Static || b.Mass <= 0 {
		return 0
	}
	return 1 / b.Mass
}

func (b *Body) bounds() (mn, mx mgl64.Vec3) {
	h := b.HalfSize
	if b.Shape == ShapeSphere {
		h = mgl64.Vec3{b.Radius, b.Radius, b.Radius}
	}
	return b.Pos.Sub(h), b.Pos.Add(h)
}

// BodyState is a plain copy of a body, used for snapshots.
type BodyState struct {
	ID       BodyID
	Shape    Shape
	Static   bool
	Radius   float64
	HalfSize [3]float64
	Mass     float64
	Pos      [3]float64
	Vel      [3]float64
	Rot      [4]float64 // x, y, z, w
}

func (b *Body) state() BodyState {
	return BodyState{
		ID:       b.ID,
		Shape:    b.Shape,
		Static:   b.Static,
		Radius:   b.Radius,
		HalfSize: b.HalfSize,
		Mass:     b.Mass,
		Pos:      b.Pos,
		Vel:      b.Vel,
		Rot:      [4]float64{b.Rot.V.X(), b.Rot.V.Y(), b.Rot.V.Z(), b.Rot.W},
	}
}

func bodyFromState(s BodyState) *Body {
	rot := mgl64.Quat{W: s.Rot[3], V: mgl64.Vec3{s.Rot[0], s.Rot[1], s.Rot[2]}}
	if rot.Len() == 0 {
		rot = mgl64.QuatIdent()
	}
	return &Body{
		ID:       s.ID,
		Shape:    s.Shape,
		Static:   s.Static,
		Radius:   s.Radius,
		HalfSize: mgl64.Vec3(s.HalfSize),
		Mass:     s.Mass,
		Pos:      mgl64.Vec3(s.Pos),
		Vel:      mgl64.Vec3(s.Vel),
		Rot:      rot,
	}
}
