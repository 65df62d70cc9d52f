package world

import (
	"fmt"
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl64"

	"propworks.ai/internal/protocol"
	"propworks.ai/internal/sim/world/feature/holdforce"
)

// Rig is the loaded visual rig. Only the head bone is tracked.
type Rig struct {
	HeadOffset mgl64.Vec3
}

type Player struct {
	ID   string
	Name string

	Pos     mgl64.Vec3
	Rot     mgl64.Quat
	HeadRot mgl64.Quat

	JoinedTick uint64
	// Rig stays nil until the model has loaded.
	Rig *Rig

	Palette [4]float64
}

// Head returns the head transform, or false while the rig is loading.
func (p *Player) Head() (holdforce.Head, bool) {
	if p == nil || p.Rig == nil {
		return holdforce.Head{}, false
	}
	return holdforce.Head{Translation: p.Rig.HeadOffset, Rotation: p.HeadRot}, true
}

var palette = [...][4]float64{
	{1, 0.2, 0.2, 1},
	{0.2, 0.4, 1, 1},
	{1, 0.8, 0.1, 1},
	{0.7, 0.2, 1, 1},
	{0.1, 0.9, 0.9, 1},
	{1, 0.5, 0.1, 1},
}

const goldenAngle = 2.399963229728653

func (w *World) joinPlayer(nowTick uint64, name string, out chan []byte) JoinResponse {
	n := w.nextPlayerNum.Add(1)
	id := fmt.Sprintf("P%d", n)
	if name == "" {
		name = "player"
	}
	theta := float64(n) * goldenAngle
	ring := w.tun.Rig.SpawnRing
	p := &Player{
		ID:         id,
		Name:       name,
		Pos:        mgl64.Vec3{ring * math.Cos(theta), ring * math.Sin(theta), 0},
		Rot:        mgl64.QuatIdent(),
		HeadRot:    mgl64.QuatIdent(),
		JoinedTick: nowTick,
		Palette:    palette[(n-1)%uint64(len(palette))],
	}
	w.players[id] = p
	if out != nil {
		w.clients[id] = &clientState{Out: out}
	}
	w.logf("player %s (%s) joined at tick %d", id, name, nowTick)

	return JoinResponse{
		Welcome: protocol.WelcomeMsg{
			Type:            protocol.TypeWelcome,
			ProtocolVersion: protocol.Version,
			PlayerID:        id,
			WorldParams: protocol.WorldParams{
				TickRateHz:          w.tun.TickRateHz,
				BroadcastEveryTicks: w.tun.BroadcastEveryTicks,
				FloorHalfExtent:     w.tun.Floor.HalfExtent,
				KillZ:               w.tun.Lifecycle.KillZ,
				Seed:                w.cfg.Seed,
			},
		},
	}
}

// leavePlayer tears the player down. A held object is released first so no
// edge outlives its holder.
func (w *World) leavePlayer(nowTick uint64, id string) {
	p := w.players[id]
	if p == nil {
		return
	}
	if obj, ok := w.owners.Release(id); ok {
		if pos, ok := w.dropHeld(obj); ok {
			w.auditEvent(nowTick, id, "RELEASE", obj, pos, "DISCONNECT", nil)
		}
	}
	delete(w.players, id)
	delete(w.clients, id)
	w.logf("player %s left at tick %d", id, nowTick)
}

// loadRigs attaches rigs whose loading delay has elapsed.
func (w *World) loadRigs(nowTick uint64) {
	delay := uint64(w.tun.Rig.LoadTicks)
	for _, p := range w.players {
		if p.Rig != nil || nowTick < p.JoinedTick+delay {
			continue
		}
		p.Rig = &Rig{HeadOffset: mgl64.Vec3(w.tun.Rig.HeadOffset)}
	}
}

func (w *World) applyPose(p *Player, m *protocol.PoseMsg) bool {
	if m == nil || !protocol.Finite(m.Position[:]...) || !protocol.Finite(m.Rotation[:]...) || !protocol.Finite(m.HeadRotation[:]...) {
		w.reject(protocol.ErrBadRequest)
		return false
	}
	p.Pos = mgl64.Vec3(m.Position)
	if q, ok := quatFromArray(m.Rotation); ok {
		p.Rot = q
	}
	if q, ok := quatFromArray(m.HeadRotation); ok {
		p.HeadRot = q
	}
	return true
}

func quatFromArray(a [4]float64) (mgl64.Quat, bool) {
	q := mgl64.Quat{W: a[3], V: mgl64.Vec3{a[0], a[1], a[2]}}
	if q.Len() < 1e-9 {
		return mgl64.Quat{}, false
	}
	return q.Normalize(), true
}

func quatToArray(q mgl64.Quat) [4]float64 {
	return [4]float64{q.V.X(), q.V.Y(), q.V.Z(), q.W}
}

func (w *World) sortedPlayerIDs() []string {
	ids := make([]string, 0, len(w.players))
	for id := range w.players {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
