package world

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"propworks.ai/internal/protocol"
	"propworks.ai/internal/sim/tuning"
	"propworks.ai/internal/sim/world/feature/lifecycle"
)

// bareTuning is the default tuning without scene props, spawner or rig delay.
func bareTuning() tuning.Tuning {
	tun := tuning.Defaults()
	tun.Scene.Cubes = 0
	tun.Scene.Shute = false
	tun.Spawner.Enabled = false
	tun.Rig.LoadTicks = 0
	return tun
}

func newTestWorld(t *testing.T, tun tuning.Tuning) *World {
	t.Helper()
	w, err := New(WorldConfig{ID: "test", Seed: 42, Tuning: tun})
	if err != nil {
		t.Fatalf("new world: %v", err)
	}
	return w
}

func joinPlayer(t *testing.T, w *World, name string) string {
	t.Helper()
	resp := make(chan JoinResponse, 1)
	w.step([]JoinRequest{{Name: name, Resp: resp}}, nil, nil)
	id := (<-resp).Welcome.PlayerID
	if id == "" {
		t.Fatalf("join returned empty id")
	}
	return id
}

// placeCube puts a holdable boundary cube resting on the floor.
func placeCube(w *World, x, y float64) objectView {
	return w.spawnCube(w.tick.Load(), mgl64.Vec3{x, y, 0.5}, 0.5, 1, CapHoldable, lifecycle.PolicyBoundary)
}

// current re-reads an object's components; ok is false once it despawned.
func current(w *World, id string) (objectView, bool) {
	return w.objects.view(id)
}

func mustCurrent(t *testing.T, w *World, id string) objectView {
	t.Helper()
	v, ok := w.objects.view(id)
	if !ok {
		t.Fatalf("object %s missing", id)
	}
	return v
}

func interact(player string, origin, dir [3]float64, kind protocol.Interaction) InputEnvelope {
	return InputEnvelope{PlayerID: player, Input: Input{
		Type: protocol.TypeInteract,
		Interact: &protocol.InteractMsg{
			Type:            protocol.TypeInteract,
			ProtocolVersion: protocol.Version,
			RayOrigin:       origin,
			RayDir:          dir,
			Interaction:     kind,
		},
	}}
}

func pose(player string, pos [3]float64) InputEnvelope {
	return InputEnvelope{PlayerID: player, Input: Input{
		Type: protocol.TypePose,
		Pose: &protocol.PoseMsg{
			Type:            protocol.TypePose,
			ProtocolVersion: protocol.Version,
			Position:        pos,
			Rotation:        [4]float64{0, 0, 0, 1},
			HeadRotation:    [4]float64{0, 0, 0, 1},
		},
	}}
}

func paint(player string, origin, dir [3]float64) InputEnvelope {
	return InputEnvelope{PlayerID: player, Input: Input{
		Type: protocol.TypePaint,
		Paint: &protocol.PaintMsg{
			Type:            protocol.TypePaint,
			ProtocolVersion: protocol.Version,
			RayOrigin:       origin,
			RayDir:          dir,
		},
	}}
}

// rayAtCube aims along +Y at a cube resting at (x, y).
func rayAtCube(x, y float64) ([3]float64, [3]float64) {
	return [3]float64{x, y - 5, 0.5}, [3]float64{0, 1, 0}
}

func mustCheck(t *testing.T, w *World) {
	t.Helper()
	if err := w.CheckOwnership(); err != nil {
		t.Fatalf("ownership: %v", err)
	}
	for _, p := range w.HolderPairs() {
		if _, ok := current(w, p.Object); !ok {
			t.Fatalf("edge references missing object %s", p.Object)
		}
		if w.players[p.Player] == nil {
			t.Fatalf("edge references missing player %s", p.Player)
		}
	}
}
