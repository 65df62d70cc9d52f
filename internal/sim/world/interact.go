package world

import (
	"github.com/go-gl/mathgl/mgl64"

	"propworks.ai/internal/protocol"
)

// applyInteract resolves one INTERACT. It returns "" on success or the reason
// code of a silent rejection.
func (w *World) applyInteract(playerID string, m *protocol.InteractMsg, nowTick uint64) string {
	if m == nil || !m.Interaction.Valid() {
		return w.reject(protocol.ErrBadRequest)
	}
	switch m.Interaction {
	case protocol.InteractPickup:
		return w.pickup(playerID, mgl64.Vec3(m.RayOrigin), mgl64.Vec3(m.RayDir), nowTick)
	default:
		return w.letGo(playerID, nowTick)
	}
}

func (w *World) pickup(playerID string, origin, dir mgl64.Vec3, nowTick uint64) string {
	if w.players[playerID] == nil {
		return w.reject(protocol.ErrNoPermission)
	}
	if !protocol.ValidRay(origin, dir) {
		return w.reject(protocol.ErrBadRequest)
	}
	hit, ok := w.phys.Raycast(origin, dir, w.tun.Physics.MaxRayDist)
	if !ok {
		return w.reject(protocol.ErrNoHit)
	}
	e, ok := w.objects.atBody(hit.Body)
	if !ok || !w.objects.has(e, w.objects.idHoldable) {
		return w.reject(protocol.ErrNotHoldable)
	}
	// A marker means another pickup already won this object.
	if w.objects.has(e, w.objects.idHeld) {
		return w.reject(protocol.ErrConflict)
	}
	o := w.objects.viewOf(e)
	if !w.owners.TryAcquire(o.ID, playerID) {
		return w.reject(protocol.ErrConflict)
	}
	w.objects.markHeld(e)
	w.auditEvent(nowTick, playerID, "PICKUP", o.ID, w.objectPos(o), "", map[string]any{
		"distance": hit.Distance,
	})
	return ""
}

func (w *World) letGo(playerID string, nowTick uint64) string {
	if w.players[playerID] == nil {
		return w.reject(protocol.ErrNoPermission)
	}
	obj, ok := w.owners.HeldBy(playerID)
	if !ok {
		return w.reject(protocol.ErrNothingHeld)
	}
	w.owners.Release(playerID)
	pos, _ := w.dropHeld(obj)
	w.auditEvent(nowTick, playerID, "RELEASE", obj, pos, "", nil)
	return ""
}

// dropHeld clears the held marker and controller output of a released object.
func (w *World) dropHeld(id string) (mgl64.Vec3, bool) {
	e, ok := w.objects.entity(id)
	if !ok {
		return mgl64.Vec3{}, false
	}
	w.objects.clearHeld(e)
	return w.objectPos(w.objects.viewOf(e)), true
}

func (w *World) reject(code string) string {
	w.rejected[code]++
	return code
}
