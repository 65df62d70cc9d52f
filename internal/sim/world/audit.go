package world

import "github.com/go-gl/mathgl/mgl64"

func (w *World) auditEvent(tick uint64, actor, action, object string, pos mgl64.Vec3, reason string, details map[string]any) {
	if w.auditLogger == nil {
		return
	}
	_ = w.auditLogger.WriteAudit(AuditEntry{
		Tick:    tick,
		Actor:   actor,
		Action:  action,
		Object:  object,
		Pos:     pos,
		Reason:  reason,
		Details: details,
	})
}
