package main

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"propworks.ai/internal/protocol"
)

const (
	eyeHeight  = 1.6
	walkStep   = 0.25
	reachRange = 2.5
)

// brain is a tiny scripted controller: walk to the nearest free cube, hold the
// trigger for a while, let go, and sprinkle paint in between. The trigger is
// edge-triggered so each transition produces exactly one INTERACT.
type brain struct {
	holdFor    int
	paintEvery int

	pos     mgl64.Vec3
	yaw     float64
	pressed bool
	held    int
	frames  int
	event   string
}

func newBrain(holdFor, paintEvery int) *brain {
	return &brain{holdFor: holdFor, paintEvery: paintEvery}
}

func (b *brain) takeEvent() string {
	ev := b.event
	b.event = ""
	return ev
}

// observe consumes one STATE frame and returns the messages to send.
func (b *brain) observe(st *protocol.StateMsg) []any {
	b.frames++
	var holding string
	for _, p := range st.Players {
		if p.ID == st.PlayerID {
			b.pos = mgl64.Vec3(p.Pos)
			holding = p.Holding
		}
	}

	var out []any
	if b.pressed {
		b.held++
		if holding == "" || b.held >= b.holdFor {
			b.pressed = false
			b.held = 0
			b.event = "LET_GO " + holding
			out = append(out, b.interact(protocol.InteractLetGo, mgl64.Vec3{1, 0, 0}))
		}
		return append(out, b.pose())
	}

	target, ok := nearestFree(st, b.pos)
	if ok {
		to := target.Sub(b.pos)
		flat := mgl64.Vec3{to[0], to[1], 0}
		b.yaw = math.Atan2(flat[1], flat[0])
		if d := flat.Len(); d > reachRange {
			b.pos = b.pos.Add(flat.Mul(walkStep / d))
		} else {
			b.pressed = true
			b.event = fmt.Sprintf("PICKUP at (%.1f,%.1f,%.1f)", target[0], target[1], target[2])
			out = append(out, b.interact(protocol.InteractPickup, target.Sub(b.eye())))
		}
	}
	if b.paintEvery > 0 && b.frames%b.paintEvery == 0 {
		out = append(out, protocol.PaintMsg{
			Type:            protocol.TypePaint,
			ProtocolVersion: protocol.Version,
			RayOrigin:       b.eye(),
			RayDir:          [3]float64{math.Cos(b.yaw), math.Sin(b.yaw), -1},
		})
	}
	return append(out, b.pose())
}

func (b *brain) eye() mgl64.Vec3 { return b.pos.Add(mgl64.Vec3{0, 0, eyeHeight}) }

func (b *brain) interact(kind protocol.Interaction, dir mgl64.Vec3) protocol.InteractMsg {
	if dir.Len() == 0 {
		dir = mgl64.Vec3{1, 0, 0}
	}
	return protocol.InteractMsg{
		Type:            protocol.TypeInteract,
		ProtocolVersion: protocol.Version,
		RayOrigin:       b.eye(),
		RayDir:          dir.Normalize(),
		Interaction:     kind,
	}
}

func (b *brain) pose() protocol.PoseMsg {
	q := mgl64.QuatRotate(b.yaw, mgl64.Vec3{0, 0, 1})
	return protocol.PoseMsg{
		Type:            protocol.TypePose,
		ProtocolVersion: protocol.Version,
		Position:        b.pos,
		Rotation:        [4]float64{q.V[0], q.V[1], q.V[2], q.W},
		HeadRotation:    [4]float64{0, 0, 0, 1},
	}
}

func nearestFree(st *protocol.StateMsg, from mgl64.Vec3) (mgl64.Vec3, bool) {
	best := math.Inf(1)
	var at mgl64.Vec3
	for _, o := range st.Objects {
		if o.Kind != "CUBE" || o.HeldBy != "" {
			continue
		}
		p := mgl64.Vec3(o.Pos)
		if d := p.Sub(from).Len(); d < best {
			best, at = d, p
		}
	}
	return at, !math.IsInf(best, 1)
}
