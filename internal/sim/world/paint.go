package world

import (
	"github.com/go-gl/mathgl/mgl64"

	"propworks.ai/internal/protocol"
)

func (w *World) applyPaint(playerID string, m *protocol.PaintMsg, nowTick uint64) string {
	p := w.players[playerID]
	if p == nil {
		return w.reject(protocol.ErrNoPermission)
	}
	if m == nil || !protocol.ValidRay(m.RayOrigin, m.RayDir) {
		return w.reject(protocol.ErrBadRequest)
	}
	hit, ok := w.phys.Raycast(mgl64.Vec3(m.RayOrigin), mgl64.Vec3(m.RayDir), w.tun.Physics.MaxRayDist)
	if !ok {
		return w.reject(protocol.ErrNoHit)
	}
	o := w.spawnObject(objectSpec{
		ID:          w.newObjectID(),
		Kind:        KindPaint,
		CreatedTick: nowTick,
		Marker:      &Marker{Pos: hit.Point, Color: p.Palette},
	})
	w.paintOrder = append(w.paintOrder, o.ID)
	w.auditEvent(nowTick, playerID, "PAINT", o.ID, hit.Point, "", nil)

	limit := w.tun.Paint.MaxMarkers
	for limit > 0 && len(w.paintOrder) > limit {
		w.despawnObject(nowTick, w.paintOrder[0], "EVICT")
	}
	return ""
}
