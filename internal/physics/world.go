package physics

import (
	"fmt"
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
)

type Config struct {
	Gravity mgl64.Vec3
	// LinearDamping is a per-second velocity decay rate.
	LinearDamping float64
	Restitution   float64
	// Friction is a Coulomb coefficient applied on static contacts.
	Friction float64
}

// restitutionThreshold: slower impacts do not bounce, so resting bodies stay put.
const restitutionThreshold = 0.5

// World is a deterministic rigid-body world. It is not safe for concurrent use;
// the sim world loop owns it.
type World struct {
	cfg    Config
	bodies map[BodyID]*Body
	order  []BodyID
	nextID BodyID
}

func NewWorld(cfg Config) *World {
	return &World{
		cfg:    cfg,
		bodies: map[BodyID]*Body{},
	}
}

func (w *World) Gravity() mgl64.Vec3 { return w.cfg.Gravity }

func (w *World) Len() int { return len(w.bodies) }

// NextID is the last allocated body id.
func (w *World) NextID() BodyID { return w.nextID }

// SetNextID raises the id counter; it never moves it backwards.
func (w *World) SetNextID(id BodyID) {
	if id > w.nextID {
		w.nextID = id
	}
}

func (w *World) insert(b *Body) BodyID {
	if b.ID == 0 {
		w.nextID++
		b.ID = w.nextID
	} else if b.ID > w.nextID {
		w.nextID = b.ID
	}
	if b.Rot.Len() == 0 {
		b.Rot = mgl64.QuatIdent()
	}
	w.bodies[b.ID] = b
	i := sort.Search(len(w.order), func(i int) bool { return w.order[i] >= b.ID })
	w.order = append(w.order, 0)
	copy(w.order[i+1:], w.order[i:])
	w.order[i] = b.ID
	return b.ID
}

func (w *World) AddStaticBox(center, halfSize mgl64.Vec3) BodyID {
	return w.insert(&Body{Shape: ShapeBox, Static: true, HalfSize: halfSize, Pos: center})
}

func (w *World) AddSphere(pos mgl64.Vec3, radius, mass float64) BodyID {
	return w.insert(&Body{Shape: ShapeSphere, Radius: radius, Mass: mass, Pos: pos})
}

func (w *World) AddBox(pos, halfSize mgl64.Vec3, mass float64) BodyID {
	return w.insert(&Body{Shape: ShapeBox, HalfSize: halfSize, Mass: mass, Pos: pos})
}

// Import inserts a body with its recorded id.
func (w *World) Import(s BodyState) error {
	if s.ID == 0 {
		return fmt.Errorf("physics: import body with zero id")
	}
	if _, ok := w.bodies[s.ID]; ok {
		return fmt.Errorf("physics: duplicate body id %d", s.ID)
	}
	w.insert(bodyFromState(s))
	return nil
}

func (w *World) Remove(id BodyID) bool {
	if _, ok := w.bodies[id]; !ok {
		return false
	}
	delete(w.bodies, id)
	i := sort.Search(len(w.order), func(i int) bool { return w.order[i] >= id })
	if i < len(w.order) && w.order[i] == id {
		w.order = append(w.order[:i], w.order[i+1:]...)
	}
	return true
}

func (w *World) Position(id BodyID) (mgl64.Vec3, bool) {
	b := w.bodies[id]
	if b == nil {
		return mgl64.Vec3{}, false
	}
	return b.Pos, true
}

func (w *World) Velocity(id BodyID) (mgl64.Vec3, bool) {
	b := w.bodies[id]
	if b == nil {
		return mgl64.Vec3{}, false
	}
	return b.Vel, true
}

func (w *World) Mass(id BodyID) (float64, bool) {
	b := w.bodies[id]
	if b == nil {
		return 0, false
	}
	return b.Mass, true
}

// SetPosition teleports a body. Used by admin tooling and tests.
func (w *World) SetPosition(id BodyID, pos mgl64.Vec3) bool {
	b := w.bodies[id]
	if b == nil {
		return false
	}
	b.Pos = pos
	return true
}

func (w *World) SetVelocity(id BodyID, vel mgl64.Vec3) bool {
	b := w.bodies[id]
	if b == nil || b.Static {
		return false
	}
	b.Vel = vel
	return true
}

// AddForce accumulates f on a dynamic body until the next Step.
func (w *World) AddForce(id BodyID, f mgl64.Vec3) bool {
	b := w.bodies[id]
	if b == nil || b.Static {
		return false
	}
	b.force = b.force.Add(f)
	return true
}

// PendingForce returns the force accumulated since the last Step.
func (w *World) PendingForce(id BodyID) mgl64.Vec3 {
	if b := w.bodies[id]; b != nil {
		return b.force
	}
	return mgl64.Vec3{}
}

func (w *World) State(id BodyID) (BodyState, bool) {
	b := w.bodies[id]
	if b == nil {
		return BodyState{}, false
	}
	return b.state(), true
}

// States returns all bodies sorted by id.
func (w *World) States() []BodyState {
	out := make([]BodyState, 0, len(w.order))
	for _, id := range w.order {
		out = append(out, w.bodies[id].state())
	}
	return out
}

// Step integrates forces over dt seconds, then resolves contacts.
func (w *World) Step(dt float64) {
	if dt <= 0 {
		return
	}
	damp := 1 / (1 + w.cfg.LinearDamping*dt)
	for _, id := range w.order {
		b := w.bodies[id]
		if b.Static {
			continue
		}
		acc := w.cfg.Gravity
		if inv := b.invMass(); inv > 0 {
			acc = acc.Add(b.force.Mul(inv))
		}
		b.Vel = b.Vel.Add(acc.Mul(dt)).Mul(damp)
		b.Pos = b.Pos.Add(b.Vel.Mul(dt))
		b.force = mgl64.Vec3{}
	}

	for i, id := range w.order {
		b := w.bodies[id]
		if b.Static {
			continue
		}
		for _, sid := range w.order {
			s := w.bodies[sid]
			if !s.Static {
				continue
			}
			w.resolveStatic(b, s, dt)
		}
		for _, oid := range w.order[i+1:] {
			o := w.bodies[oid]
			if o.Static {
				continue
			}
			w.resolvePair(b, o)
		}
	}
}

func (w *World) resolveStatic(b, s *Body, dt float64) {
	var n mgl64.Vec3
	var pen float64
	if b.Shape == ShapeSphere {
		smin, smax := s.bounds()
		closest := mgl64.Vec3{
			mgl64.Clamp(b.Pos.X(), smin.X(), smax.X()),
			mgl64.Clamp(b.Pos.Y(), smin.Y(), smax.Y()),
			mgl64.Clamp(b.Pos.Z(), smin.Z(), smax.Z()),
		}
		d := b.Pos.Sub(closest)
		dist := d.Len()
		if dist >= b.Radius {
			return
		}
		if dist > 1e-9 {
			n = d.Mul(1 / dist)
			pen = b.Radius - dist
		} else {
			n, pen = minAxis(b.Pos.Sub(s.Pos), s.HalfSize)
			pen += b.Radius
		}
	} else {
		d := b.Pos.Sub(s.Pos)
		var ok bool
		n, pen, ok = aabbOverlap(d, b.HalfSize.Add(s.HalfSize))
		if !ok {
			return
		}
	}
	b.Pos = b.Pos.Add(n.Mul(pen))

	vn := b.Vel.Dot(n)
	if vn >= 0 {
		return
	}
	e := w.cfg.Restitution
	if -vn < restitutionThreshold {
		e = 0
	}
	b.Vel = b.Vel.Sub(n.Mul(vn * (1 + e)))

	// Coulomb friction against the contact normal impulse.
	vt := b.Vel.Sub(n.Mul(b.Vel.Dot(n)))
	speed := vt.Len()
	if speed == 0 || w.cfg.Friction <= 0 {
		return
	}
	drop := w.cfg.Friction * (-vn) * (1 + e)
	if g := w.cfg.Gravity.Len() * dt * w.cfg.Friction; drop < g {
		drop = g
	}
	if drop >= speed {
		b.Vel = b.Vel.Sub(vt)
		return
	}
	b.Vel = b.Vel.Sub(vt.Mul(drop / speed))
}

func (w *World) resolvePair(a, b *Body) {
	ra, rb := a.proxyRadius(), b.proxyRadius()
	d := b.Pos.Sub(a.Pos)
	dist := d.Len()
	if dist >= ra+rb {
		return
	}
	n := mgl64.Vec3{0, 0, 1}
	if dist > 1e-9 {
		n = d.Mul(1 / dist)
	}
	pen := ra + rb - dist
	wa, wb := a.invMass(), b.invMass()
	sum := wa + wb
	if sum == 0 {
		return
	}
	a.Pos = a.Pos.Sub(n.Mul(pen * wa / sum))
	b.Pos = b.Pos.Add(n.Mul(pen * wb / sum))

	vr := b.Vel.Sub(a.Vel).Dot(n)
	if vr >= 0 {
		return
	}
	e := w.cfg.Restitution
	if -vr < restitutionThreshold {
		e = 0
	}
	j := -(1 + e) * vr / sum
	a.Vel = a.Vel.Sub(n.Mul(j * wa))
	b.Vel = b.Vel.Add(n.Mul(j * wb))
}

// aabbOverlap returns the minimum-translation normal and depth for two boxes
// with center offset d and combined half size h.
func aabbOverlap(d, h mgl64.Vec3) (mgl64.Vec3, float64, bool) {
	best := -1
	bestPen := math.Inf(1)
	for i := 0; i < 3; i++ {
		o := h[i] - math.Abs(d[i])
		if o <= 0 {
			return mgl64.Vec3{}, 0, false
		}
		if o < bestPen {
			bestPen = o
			best = i
		}
	}
	var n mgl64.Vec3
	n[best] = 1
	if d[best] < 0 {
		n[best] = -1
	}
	return n, bestPen, true
}

// minAxis picks the box face nearest to a point inside the box at offset d.
func minAxis(d, half mgl64.Vec3) (mgl64.Vec3, float64) {
	n, pen, ok := aabbOverlap(d, half)
	if !ok {
		return mgl64.Vec3{0, 0, 1}, 0
	}
	return n, pen
}
