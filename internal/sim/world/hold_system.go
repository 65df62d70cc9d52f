package world

import (
	"propworks.ai/internal/physics"
	"propworks.ai/internal/sim/world/feature/holdforce"
)

// systemHold recomputes the drive of every held object toward its holder's
// anchor. Pairs whose holder rig or body is unavailable are skipped.
func (w *World) systemHold(uint64) {
	gravity := w.phys.Gravity()
	w.maxHoldForce = 0
	for _, pair := range w.owners.Pairs() {
		e, ok := w.objects.entity(pair.Object)
		p := w.players[pair.Player]
		if !ok || p == nil {
			continue
		}
		head, ok := p.Head()
		if !ok {
			continue
		}
		body, ok := w.objects.bodyOf(e)
		if !ok {
			continue
		}
		pos, ok := w.phys.Position(body)
		if !ok {
			continue
		}
		mass, _ := w.phys.Mass(body)

		anchor := holdforce.Anchor(w.hold, p.Pos, p.Rot, head)
		f := holdforce.Corrective(w.hold, pos, anchor)
		comp := holdforce.GravityCompensation(w.hold, gravity, mass)
		w.objects.setDrive(e, HoldDrive{Anchor: anchor, Corrective: f, Total: f.Add(comp)})

		if l := f.Len(); l > w.maxHoldForce {
			w.maxHoldForce = l
		}
	}
}

// systemHoldApply adds the latest drive of every held body to this physics
// step, so the force stays continuous between controller updates.
func (w *World) systemHoldApply(uint64) {
	w.objects.eachDrive(func(body physics.BodyID, d HoldDrive) {
		w.phys.AddForce(body, d.Total)
	})
}
