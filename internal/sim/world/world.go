package world

import (
	"errors"
	"fmt"
	"log"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl64"

	"propworks.ai/internal/persistence/snapshot"
	"propworks.ai/internal/physics"
	"propworks.ai/internal/protocol"
	"propworks.ai/internal/sim/tuning"
	"propworks.ai/internal/sim/world/feature/holdforce"
	"propworks.ai/internal/sim/world/feature/lifecycle"
	"propworks.ai/internal/sim/world/feature/ownership"
)

type WorldConfig struct {
	ID     string
	Seed   int64
	Tuning tuning.Tuning
	// Logger is optional.
	Logger *log.Logger
}

type JoinRequest struct {
	Name string
	Out  chan []byte
	Resp chan JoinResponse
}

type JoinResponse struct {
	Welcome protocol.WelcomeMsg
}

// Input is one client message routed to the world. Exactly one payload is set,
// matching Type.
type Input struct {
	Type     string                `json:"type"`
	Interact *protocol.InteractMsg `json:"interact,omitempty"`
	Paint    *protocol.PaintMsg    `json:"paint,omitempty"`
	Pose     *protocol.PoseMsg     `json:"pose,omitempty"`
}

type InputEnvelope struct {
	PlayerID string
	Input    Input
}

type RecordedJoin struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
}

type RecordedInput struct {
	PlayerID string `json:"player_id"`
	Input    Input  `json:"input"`
}

// World is a single-threaded authoritative simulation.
// All state must be accessed only from the world loop goroutine.
type World struct {
	cfg    WorldConfig
	tun    tuning.Tuning
	logger *log.Logger

	hold        holdforce.Params
	spawnPolicy lifecycle.Policy
	dt          float64

	tick atomic.Uint64

	phys    *physics.World
	objects *objectStore
	players map[string]*Player
	clients map[string]*clientState
	owners  *ownership.Registry
	score   ScoreCounter

	// paintOrder lists paint markers oldest first.
	paintOrder []string

	systems []system

	inbox chan InputEnvelope
	join  chan JoinRequest
	leave chan string
	admin chan adminSnapshotReq
	stop  chan struct{}

	nextPlayerNum atomic.Uint64
	nextObjectNum atomic.Uint64
	spawned       atomic.Uint64

	// Optional loggers (may be nil). Implemented in internal/persistence/*.
	tickLogger  TickLogger
	auditLogger AuditLogger

	// Optional snapshot sink (may be nil). Snapshot writing should be off-thread.
	snapshotSink chan<- snapshot.SnapshotV1

	rejected     map[string]uint64
	despawned    map[string]uint64
	maxHoldForce float64

	metrics atomic.Value
}

type TickLogger interface {
	WriteTick(entry TickLogEntry) error
}

type AuditLogger interface {
	WriteAudit(entry AuditEntry) error
}

type TickLogEntry struct {
	Tick   uint64          `json:"tick"`
	Joins  []RecordedJoin  `json:"joins,omitempty"`
	Leaves []string        `json:"leaves,omitempty"`
	Inputs []RecordedInput `json:"inputs,omitempty"`
	Digest string          `json:"digest"`
}

type AuditEntry struct {
	Tick    uint64         `json:"tick"`
	Actor   string         `json:"actor"`
	Action  string         `json:"action"` // e.g. "PICKUP"
	Object  string         `json:"object,omitempty"`
	Pos     [3]float64     `json:"pos"`
	Reason  string         `json:"reason,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

type clientState struct {
	Out chan []byte
}

func New(cfg WorldConfig) (*World, error) {
	if err := cfg.Tuning.Validate(); err != nil {
		return nil, fmt.Errorf("world: %w", err)
	}
	if cfg.ID == "" {
		return nil, errors.New("world: empty id")
	}
	tun := cfg.Tuning
	policy, err := lifecycle.ParsePolicy(tun.Spawner.Policy)
	if err != nil {
		return nil, fmt.Errorf("world: spawner: %w", err)
	}

	w := &World{
		cfg:    cfg,
		tun:    tun,
		logger: cfg.Logger,
		hold: holdforce.Params{
			MaxForce:            tun.Hold.MaxForce,
			Gain:                tun.Hold.Gain,
			HeadOffsetScale:     tun.Hold.HeadOffsetScale,
			ForwardOffset:       mgl64.Vec3(tun.Hold.ForwardOffset),
			GravityCompensation: tun.Hold.GravityCompensation,
			Epsilon:             tun.Hold.Epsilon,
		},
		spawnPolicy: policy,
		dt:          1 / float64(tun.TickRateHz),
		phys:        newPhysics(tun),
		objects:     newObjectStore(),
		players:     map[string]*Player{},
		clients:     map[string]*clientState{},
		owners:      ownership.NewRegistry(),
		inbox:       make(chan InputEnvelope, 4096),
		join:        make(chan JoinRequest, 64),
		leave:       make(chan string, 64),
		admin:       make(chan adminSnapshotReq, 8),
		stop:        make(chan struct{}),
		rejected:    map[string]uint64{},
		despawned:   map[string]uint64{},
	}
	w.buildScene()
	w.registerSystems()
	w.publishMetrics(0, 0)
	return w, nil
}

func newPhysics(tun tuning.Tuning) *physics.World {
	return physics.NewWorld(physics.Config{
		Gravity:       mgl64.Vec3(tun.Gravity),
		LinearDamping: tun.Physics.LinearDamping,
		Restitution:   tun.Physics.Restitution,
		Friction:      tun.Physics.Friction,
	})
}

func (w *World) ID() string {
	if w == nil {
		return ""
	}
	return w.cfg.ID
}

func (w *World) TickRateHz() int {
	if w == nil {
		return 0
	}
	return w.tun.TickRateHz
}

func (w *World) logf(format string, args ...any) {
	if w.logger != nil {
		w.logger.Printf(format, args...)
	}
}
