package protocol

import "math"

// Interaction is the intent carried by an INTERACT message.
type Interaction string

const (
	InteractPickup Interaction = "PICKUP"
	InteractLetGo  Interaction = "LET_GO"
)

func (i Interaction) Valid() bool {
	return i == InteractPickup || i == InteractLetGo
}

// HELLO (client -> server)
type HelloMsg struct {
	Type            string            `json:"type"`
	ProtocolVersion string            `json:"protocol_version"`
	PlayerName      string            `json:"player_name"`
	Capabilities    HelloCapabilities `json:"capabilities"`
}

type HelloCapabilities struct {
	MaxQueue int `json:"max_queue,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	PlayerID        string      `json:"player_id"`
	WorldParams     WorldParams `json:"world_params"`
}

type WorldParams struct {
	TickRateHz          int     `json:"tick_rate_hz"`
	BroadcastEveryTicks int     `json:"broadcast_every_ticks"`
	FloorHalfExtent     float64 `json:"floor_half_extent"`
	KillZ               float64 `json:"kill_z"`
	Seed                int64   `json:"seed"`
}

// INTERACT (client -> server). Sent once per edge-triggered button transition,
// unreliably: the server never acknowledges it.
type InteractMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	RayOrigin       [3]float64  `json:"ray_origin"`
	RayDir          [3]float64  `json:"ray_dir"`
	Interaction     Interaction `json:"interaction"`
}

// PAINT (client -> server): drop a marker where the ray hits.
type PaintMsg struct {
	Type            string     `json:"type"`
	ProtocolVersion string     `json:"protocol_version"`
	RayOrigin       [3]float64 `json:"ray_origin"`
	RayDir          [3]float64 `json:"ray_dir"`
}

// POSE (client -> server): character controller output.
// Quaternions are encoded as [x, y, z, w].
type PoseMsg struct {
	Type            string     `json:"type"`
	ProtocolVersion string     `json:"protocol_version"`
	Position        [3]float64 `json:"position"`
	Rotation        [4]float64 `json:"rotation"`
	HeadRotation    [4]float64 `json:"head_rotation"`
}

// STATE (server -> client)
type StateMsg struct {
	Type            string        `json:"type"`
	ProtocolVersion string        `json:"protocol_version"`
	Tick            uint64        `json:"tick"`
	PlayerID        string        `json:"player_id"`
	Score           int64         `json:"score"`
	Objects         []ObjectState `json:"objects"`
	Players         []PlayerState `json:"players"`
}

type ObjectState struct {
	ID     string      `json:"id"`
	Kind   string      `json:"kind"`
	Pos    [3]float64  `json:"pos"`
	Color  *[4]float64 `json:"color,omitempty"`
	HeldBy string      `json:"held_by,omitempty"`
	Anchor *[3]float64 `json:"anchor,omitempty"`
}

type PlayerState struct {
	ID      string     `json:"id"`
	Name    string     `json:"name"`
	Pos     [3]float64 `json:"pos"`
	Holding string     `json:"holding,omitempty"`
}

// ValidRay reports whether origin and dir are finite and dir is non-zero.
func ValidRay(origin, dir [3]float64) bool {
	if !Finite(origin[:]...) || !Finite(dir[:]...) {
		return false
	}
	return dir[0] != 0 || dir[1] != 0 || dir[2] != 0
}

func Finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
