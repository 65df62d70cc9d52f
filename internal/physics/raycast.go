package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

type Hit struct {
	Body     BodyID
	Point    mgl64.Vec3
	Distance float64
}

// Raycast returns the first body hit along dir within maxDist.
// Bodies containing the origin are ignored. Ties go to the lower body id.
func (w *World) Raycast(origin, dir mgl64.Vec3, maxDist float64) (Hit, bool) {
	l := dir.Len()
	if l == 0 || math.IsNaN(l) || math.IsInf(l, 0) {
		return Hit{}, false
	}
	dir = dir.Mul(1 / l)
	if maxDist <= 0 {
		maxDist = math.Inf(1)
	}

	best := Hit{Distance: math.Inf(1)}
	found := false
	for _, id := range w.order {
		b := w.bodies[id]
		var t float64
		var ok bool
		if b.Shape == ShapeSphere {
			t, ok = raySphere(origin, dir, b.Pos, b.Radius)
		} else {
			mn, mx := b.bounds()
			t, ok = rayAABB(origin, dir, mn, mx)
		}
		if !ok || t > maxDist || t >= best.Distance {
			continue
		}
		best = Hit{Body: id, Distance: t}
		found = true
	}
	if !found {
		return Hit{}, false
	}
	best.Point = origin.Add(dir.Mul(best.Distance))
	return best, true
}

func raySphere(o, d, c mgl64.Vec3, r float64) (float64, bool) {
	oc := o.Sub(c)
	b := oc.Dot(d)
	cc := oc.Dot(oc) - r*r
	if cc <= 0 {
		return 0, false
	}
	disc := b*b - cc
	if disc < 0 {
		return 0, false
	}
	t := -b - math.Sqrt(disc)
	if t < 0 {
		return 0, false
	}
	return t, true
}

func rayAABB(o, d, mn, mx mgl64.Vec3) (float64, bool) {
	tmin := math.Inf(-1)
	tmax := math.Inf(1)
	for i := 0; i < 3; i++ {
		if d[i] == 0 {
			if o[i] < mn[i] || o[i] > mx[i] {
				return 0, false
			}
			continue
		}
		inv := 1 / d[i]
		t1 := (mn[i] - o[i]) * inv
		t2 := (mx[i] - o[i]) * inv
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tmin = math.Max(tmin, t1)
		tmax = math.Min(tmax, t2)
		if tmin > tmax {
			return 0, false
		}
	}
	if tmin < 0 {
		return 0, false
	}
	return tmin, true
}
