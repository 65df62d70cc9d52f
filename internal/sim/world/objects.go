package world

import (
	"fmt"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/mlange-42/arche/ecs"
	"github.com/mlange-42/arche/generic"

	"propworks.ai/internal/physics"
	"propworks.ai/internal/sim/world/feature/lifecycle"
)

type Kind string

const (
	KindCube   Kind = "CUBE"
	KindSphere Kind = "SPHERE"
	KindPaint  Kind = "PAINT"
)

// Capability flags as persisted in snapshots. At runtime they are derived from
// the Holdable and BodyRef components.
type Capability uint8

const (
	CapHoldable Capability = 1 << iota
	CapPhysical
)

var heldColor = [4]float64{0, 1, 0, 1}

// Identity is carried by every object entity.
type Identity struct {
	ID          string
	Kind        Kind
	CreatedTick uint64
}

// BodyRef links an entity to its rigid body.
type BodyRef struct {
	Body physics.BodyID
}

// Holdable marks objects a PICKUP may target.
type Holdable struct{}

// HeldMarker is present exactly while a player holds the object.
type HeldMarker struct {
	Color [4]float64
}

// Lifetime is the spawn record read by the sweeps.
type Lifetime struct {
	Policy      lifecycle.Policy
	ExpiresTick uint64
}

// Marker is a bodiless paint mark.
type Marker struct {
	Pos   mgl64.Vec3
	Color [4]float64
}

// HoldDrive is the latest controller output for a held object. Total is
// applied on every physics step until the controller runs again.
type HoldDrive struct {
	Anchor     mgl64.Vec3
	Corrective mgl64.Vec3
	Total      mgl64.Vec3
}

// objectStore keeps objects as ECS entities with an id and a body index.
// Query results are sorted by object id wherever order can reach state.
type objectStore struct {
	world ecs.World

	idBody     ecs.ID
	idHoldable ecs.ID
	idHeld     ecs.ID
	idLifetime ecs.ID
	idMarker   ecs.ID
	idDrive    ecs.ID
	idIdentity ecs.ID

	identity generic.Map1[Identity]
	body     generic.Map1[BodyRef]
	held     generic.Map1[HeldMarker]
	lifetime generic.Map1[Lifetime]
	marker   generic.Map1[Marker]
	drive    generic.Map1[HoldDrive]

	lifetimes *generic.Filter2[Identity, Lifetime]
	drives    *generic.Filter2[BodyRef, HoldDrive]

	byID   map[string]ecs.Entity
	byBody map[physics.BodyID]ecs.Entity
}

func newObjectStore() *objectStore {
	s := &objectStore{
		world:  ecs.NewWorld(),
		byID:   map[string]ecs.Entity{},
		byBody: map[physics.BodyID]ecs.Entity{},
	}
	w := &s.world
	s.idIdentity = ecs.ComponentID[Identity](w)
	s.idBody = ecs.ComponentID[BodyRef](w)
	s.idHoldable = ecs.ComponentID[Holdable](w)
	s.idHeld = ecs.ComponentID[HeldMarker](w)
	s.idLifetime = ecs.ComponentID[Lifetime](w)
	s.idMarker = ecs.ComponentID[Marker](w)
	s.idDrive = ecs.ComponentID[HoldDrive](w)

	s.identity = generic.NewMap1[Identity](w)
	s.body = generic.NewMap1[BodyRef](w)
	s.held = generic.NewMap1[HeldMarker](w)
	s.lifetime = generic.NewMap1[Lifetime](w)
	s.marker = generic.NewMap1[Marker](w)
	s.drive = generic.NewMap1[HoldDrive](w)

	s.lifetimes = generic.NewFilter2[Identity, Lifetime]()
	s.drives = generic.NewFilter2[BodyRef, HoldDrive]()
	return s
}

// objectSpec describes an entity to create. Zero fields mean "component absent".
type objectSpec struct {
	ID          string
	Kind        Kind
	CreatedTick uint64
	Body        physics.BodyID
	Holdable    bool
	Lifetime    *Lifetime
	Marker      *Marker
}

func (s *objectStore) create(spec objectSpec) (ecs.Entity, error) {
	if spec.ID == "" {
		return ecs.Entity{}, fmt.Errorf("object: empty id")
	}
	if _, dup := s.byID[spec.ID]; dup {
		return ecs.Entity{}, fmt.Errorf("object %s: duplicate id", spec.ID)
	}
	ids := []ecs.ID{s.idIdentity}
	if spec.Body != 0 {
		ids = append(ids, s.idBody)
	}
	if spec.Holdable {
		ids = append(ids, s.idHoldable)
	}
	if spec.Lifetime != nil {
		ids = append(ids, s.idLifetime)
	}
	if spec.Marker != nil {
		ids = append(ids, s.idMarker)
	}
	e := s.world.NewEntity(ids...)
	*s.identity.Get(e) = Identity{ID: spec.ID, Kind: spec.Kind, CreatedTick: spec.CreatedTick}
	if spec.Body != 0 {
		*s.body.Get(e) = BodyRef{Body: spec.Body}
		s.byBody[spec.Body] = e
	}
	if spec.Lifetime != nil {
		*s.lifetime.Get(e) = *spec.Lifetime
	}
	if spec.Marker != nil {
		*s.marker.Get(e) = *spec.Marker
	}
	s.byID[spec.ID] = e
	return e, nil
}

func (s *objectStore) Len() int { return len(s.byID) }

func (s *objectStore) entity(id string) (ecs.Entity, bool) {
	e, ok := s.byID[id]
	return e, ok
}

func (s *objectStore) atBody(body physics.BodyID) (ecs.Entity, bool) {
	e, ok := s.byBody[body]
	return e, ok
}

func (s *objectStore) has(e ecs.Entity, id ecs.ID) bool {
	return s.world.Alive(e) && s.world.Has(e, id)
}

func (s *objectStore) bodyOf(e ecs.Entity) (physics.BodyID, bool) {
	if !s.has(e, s.idBody) {
		return 0, false
	}
	return s.body.Get(e).Body, true
}

// markHeld attaches the held marker. It reports false if one is already set.
func (s *objectStore) markHeld(e ecs.Entity) bool {
	if !s.world.Alive(e) || s.world.Has(e, s.idHeld) {
		return false
	}
	s.world.Add(e, s.idHeld)
	s.held.Get(e).Color = heldColor
	return true
}

// clearHeld drops the held marker and the controller output.
func (s *objectStore) clearHeld(e ecs.Entity) {
	if !s.world.Alive(e) {
		return
	}
	var rem []ecs.ID
	if s.world.Has(e, s.idHeld) {
		rem = append(rem, s.idHeld)
	}
	if s.world.Has(e, s.idDrive) {
		rem = append(rem, s.idDrive)
	}
	if len(rem) > 0 {
		s.world.Remove(e, rem...)
	}
}

func (s *objectStore) setDrive(e ecs.Entity, d HoldDrive) {
	if !s.world.Has(e, s.idDrive) {
		s.world.Add(e, s.idDrive)
	}
	*s.drive.Get(e) = d
}

// remove deletes the entity and returns its last view.
func (s *objectStore) remove(id string) (objectView, bool) {
	e, ok := s.byID[id]
	if !ok {
		return objectView{}, false
	}
	v := s.viewOf(e)
	if v.Body != 0 {
		delete(s.byBody, v.Body)
	}
	delete(s.byID, id)
	s.world.RemoveEntity(e)
	return v, true
}

func (s *objectStore) sortedIDs() []string {
	ids := make([]string, 0, len(s.byID))
	for id := range s.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// lifetimeRecords returns the spawn records of every entity with a Lifetime,
// sorted by id. z reports the current height of a body.
func (s *objectStore) lifetimeRecords(z func(ecs.Entity) float64) []lifecycle.Record {
	var out []lifecycle.Record
	q := s.lifetimes.Query(&s.world)
	for q.Next() {
		ident, lt := q.Get()
		out = append(out, lifecycle.Record{
			ID:          ident.ID,
			Policy:      lt.Policy,
			CreatedTick: ident.CreatedTick,
			ExpiresTick: lt.ExpiresTick,
			Z:           z(q.Entity()),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// eachDrive calls fn for every held body with a controller output.
func (s *objectStore) eachDrive(fn func(body physics.BodyID, d HoldDrive)) {
	q := s.drives.Query(&s.world)
	for q.Next() {
		ref, d := q.Get()
		fn(ref.Body, *d)
	}
}

// objectView is a copy of one entity's components.
type objectView struct {
	ID          string
	Kind        Kind
	CreatedTick uint64
	Body        physics.BodyID
	Holdable    bool
	Policy      lifecycle.Policy
	ExpiresTick uint64

	// Color is the held marker on a prop and the tint on a paint mark.
	Color *[4]float64
	// Pos is only set for bodiless objects.
	Pos   mgl64.Vec3
	Drive *HoldDrive
}

func (v objectView) Caps() Capability {
	var c Capability
	if v.Holdable {
		c |= CapHoldable
	}
	if v.Body != 0 {
		c |= CapPhysical
	}
	return c
}

func (s *objectStore) view(id string) (objectView, bool) {
	e, ok := s.byID[id]
	if !ok {
		return objectView{}, false
	}
	return s.viewOf(e), true
}

func (s *objectStore) viewOf(e ecs.Entity) objectView {
	ident := s.identity.Get(e)
	v := objectView{ID: ident.ID, Kind: ident.Kind, CreatedTick: ident.CreatedTick}
	if s.world.Has(e, s.idBody) {
		v.Body = s.body.Get(e).Body
	}
	v.Holdable = s.world.Has(e, s.idHoldable)
	if s.world.Has(e, s.idLifetime) {
		lt := s.lifetime.Get(e)
		v.Policy, v.ExpiresTick = lt.Policy, lt.ExpiresTick
	}
	if s.world.Has(e, s.idHeld) {
		c := s.held.Get(e).Color
		v.Color = &c
	}
	if s.world.Has(e, s.idMarker) {
		m := s.marker.Get(e)
		c := m.Color
		v.Color, v.Pos = &c, m.Pos
	}
	if s.world.Has(e, s.idDrive) {
		d := *s.drive.Get(e)
		v.Drive = &d
	}
	return v
}

func (w *World) newObjectID() string {
	n := w.nextObjectNum.Add(1)
	return fmt.Sprintf("O%06d", n)
}

func (w *World) spawnObject(spec objectSpec) objectView {
	e, err := w.objects.create(spec)
	if err != nil {
		// Ids come from the allocator, so this is a broken counter.
		panic(err)
	}
	return w.objects.viewOf(e)
}

func (w *World) spawnCube(nowTick uint64, pos mgl64.Vec3, half, mass float64, caps Capability, policy lifecycle.Policy) objectView {
	return w.spawnObject(objectSpec{
		ID:          w.newObjectID(),
		Kind:        KindCube,
		CreatedTick: nowTick,
		Body:        w.phys.AddBox(pos, mgl64.Vec3{half, half, half}, mass),
		Holdable:    caps&CapHoldable != 0,
		Lifetime:    &Lifetime{Policy: policy},
	})
}

func (w *World) spawnSphere(nowTick uint64, pos mgl64.Vec3, radius, mass float64, caps Capability, policy lifecycle.Policy, ttlTicks uint64) objectView {
	lt := Lifetime{Policy: policy}
	if policy == lifecycle.PolicyTimed {
		lt.ExpiresTick = lifecycle.ExpiryTick(nowTick, ttlTicks)
	}
	return w.spawnObject(objectSpec{
		ID:          w.newObjectID(),
		Kind:        KindSphere,
		CreatedTick: nowTick,
		Body:        w.phys.AddSphere(pos, radius, mass),
		Holdable:    caps&CapHoldable != 0,
		Lifetime:    &lt,
	})
}

func (w *World) objectPos(v objectView) mgl64.Vec3 {
	if v.Body == 0 {
		return v.Pos
	}
	p, _ := w.phys.Position(v.Body)
	return p
}

func (w *World) entityZ(e ecs.Entity) float64 {
	body, ok := w.objects.bodyOf(e)
	if !ok {
		return 0
	}
	p, _ := w.phys.Position(body)
	return p.Z()
}

// despawnObject is the only way objects leave the world. It drops any holder
// edge before the body and the entity go away.
func (w *World) despawnObject(nowTick uint64, id, reason string) (mgl64.Vec3, bool) {
	v, ok := w.objects.view(id)
	if !ok {
		return mgl64.Vec3{}, false
	}
	pos := w.objectPos(v)
	holder, held := w.owners.ReleaseObject(id)
	if v.Body != 0 {
		w.phys.Remove(v.Body)
	}
	w.objects.remove(id)
	if v.Kind == KindPaint {
		w.paintOrder = removeID(w.paintOrder, id)
	}
	w.despawned[reason]++

	details := map[string]any{"kind": string(v.Kind)}
	if held {
		details["held_by"] = holder
	}
	w.auditEvent(nowTick, "WORLD", "DESPAWN", id, pos, reason, details)
	return pos, true
}

func removeID(ids []string, id string) []string {
	for i := 0; i < len(ids); i++ {
		if ids[i] != id {
			continue
		}
		copy(ids[i:], ids[i+1:])
		return ids[:len(ids)-1]
	}
	return ids
}
