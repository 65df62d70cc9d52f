package worldtest

import (
	"encoding/json"
	"math"
	"testing"

	"propworks.ai/internal/persistence/snapshot"
	"propworks.ai/internal/protocol"
	"propworks.ai/internal/sim/tuning"
	world "propworks.ai/internal/sim/world"
)

// Harness drives a world through exported APIs only:
// Join and Leave go through StepOnce, inputs are queued per tick, and each
// session's Out channel is drained into its latest STATE.
type Harness struct {
	T *testing.T
	W *world.World

	pending  []world.InputEnvelope
	sessions map[string]*session
}

type session struct {
	PlayerID  string
	Out       chan []byte
	lastState protocol.StateMsg
}

// ScenarioTuning broadcasts every tick and loads rigs immediately so tests can
// observe each step.
func ScenarioTuning() tuning.Tuning {
	tun := tuning.Defaults()
	tun.BroadcastEveryTicks = 1
	tun.Rig.LoadTicks = 0
	tun.Spawner.Enabled = false
	tun.Scene.Shute = false
	return tun
}

func NewHarness(t *testing.T, cfg world.WorldConfig) *Harness {
	t.Helper()
	w, err := world.New(cfg)
	if err != nil {
		t.Fatalf("world.New: %v", err)
	}
	return NewHarnessWithWorld(t, w)
}

// NewHarnessWithWorld wraps an existing world, e.g. one restored from a snapshot.
func NewHarnessWithWorld(t *testing.T, w *world.World) *Harness {
	t.Helper()
	if w == nil {
		t.Fatalf("NewHarnessWithWorld: nil world")
	}
	return &Harness{T: t, W: w, sessions: map[string]*session{}}
}

func (h *Harness) Join(name string) string {
	h.T.Helper()
	out := make(chan []byte, 16)
	resp := make(chan world.JoinResponse, 1)
	_, _ = h.W.StepOnce([]world.JoinRequest{{Name: name, Out: out, Resp: resp}}, nil, nil)
	jr := <-resp
	if jr.Welcome.PlayerID == "" {
		h.T.Fatalf("join returned empty player id")
	}
	s := &session{PlayerID: jr.Welcome.PlayerID, Out: out}
	h.sessions[s.PlayerID] = s
	h.drainAll()
	return s.PlayerID
}

func (h *Harness) Leave(playerID string) {
	h.T.Helper()
	_, _ = h.W.StepOnce(nil, []string{playerID}, nil)
	delete(h.sessions, playerID)
	h.drainAll()
}

// Pose places the player at pos facing yaw radians about +Z.
func (h *Harness) Pose(playerID string, pos [3]float64, yaw float64) {
	h.pending = append(h.pending, world.InputEnvelope{PlayerID: playerID, Input: world.Input{
		Type: protocol.TypePose,
		Pose: &protocol.PoseMsg{
			Type:            protocol.TypePose,
			ProtocolVersion: protocol.Version,
			Position:        pos,
			Rotation:        [4]float64{0, 0, math.Sin(yaw / 2), math.Cos(yaw / 2)},
			HeadRotation:    [4]float64{0, 0, 0, 1},
		},
	}})
}

func (h *Harness) Interact(playerID string, origin, dir [3]float64, kind protocol.Interaction) {
	h.pending = append(h.pending, world.InputEnvelope{PlayerID: playerID, Input: world.Input{
		Type: protocol.TypeInteract,
		Interact: &protocol.InteractMsg{
			Type:            protocol.TypeInteract,
			ProtocolVersion: protocol.Version,
			RayOrigin:       origin,
			RayDir:          dir,
			Interaction:     kind,
		},
	}})
}

func (h *Harness) Paint(playerID string, origin, dir [3]float64) {
	h.pending = append(h.pending, world.InputEnvelope{PlayerID: playerID, Input: world.Input{
		Type: protocol.TypePaint,
		Paint: &protocol.PaintMsg{
			Type:            protocol.TypePaint,
			ProtocolVersion: protocol.Version,
			RayOrigin:       origin,
			RayDir:          dir,
		},
	}})
}

// Step flushes queued inputs into one tick.
func (h *Harness) Step() {
	h.T.Helper()
	inputs := h.pending
	h.pending = nil
	_, _ = h.W.StepOnce(nil, nil, inputs)
	h.drainAll()
	if err := h.W.CheckOwnership(); err != nil {
		h.T.Fatalf("tick %d: %v", h.W.CurrentTick()-1, err)
	}
}

func (h *Harness) StepFor(n int) {
	h.T.Helper()
	for i := 0; i < n; i++ {
		h.Step()
	}
}

func (h *Harness) LastState(playerID string) protocol.StateMsg {
	h.T.Helper()
	s := h.sessions[playerID]
	if s == nil {
		h.T.Fatalf("unknown player id: %q", playerID)
	}
	return s.lastState
}

// Object finds id in the player's latest STATE.
func (h *Harness) Object(playerID, id string) (protocol.ObjectState, bool) {
	for _, o := range h.LastState(playerID).Objects {
		if o.ID == id {
			return o, true
		}
	}
	return protocol.ObjectState{}, false
}

// Snapshot exports at currentTick-1 so an import resumes at the current tick.
func (h *Harness) Snapshot() (tick uint64, snap snapshot.SnapshotV1) {
	h.T.Helper()
	cur := h.W.CurrentTick()
	if cur == 0 {
		return 0, h.W.ExportSnapshot(0)
	}
	tick = cur - 1
	return tick, h.W.ExportSnapshot(tick)
}

func (h *Harness) drainAll() {
	h.T.Helper()
	for _, s := range h.sessions {
		var last []byte
		for drained := false; !drained; {
			select {
			case b := <-s.Out:
				last = b
			default:
				drained = true
			}
		}
		if len(last) == 0 {
			continue
		}
		var st protocol.StateMsg
		if err := json.Unmarshal(last, &st); err != nil {
			h.T.Fatalf("unmarshal STATE: %v", err)
		}
		s.lastState = st
	}
}
