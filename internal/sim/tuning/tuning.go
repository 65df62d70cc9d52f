package tuning

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version"`

	TickRateHz          int `yaml:"tick_rate_hz"`
	BroadcastEveryTicks int `yaml:"broadcast_every_ticks"`
	SnapshotEveryTicks  int `yaml:"snapshot_every_ticks"`
	DigestEveryTicks    int `yaml:"digest_every_ticks"`

	Gravity [3]float64 `yaml:"gravity"`

	Floor     Floor     `yaml:"floor"`
	Scene     Scene     `yaml:"scene"`
	Hold      Hold      `yaml:"hold"`
	Spawner   Spawner   `yaml:"spawner"`
	Lifecycle Lifecycle `yaml:"lifecycle"`
	Rig       Rig       `yaml:"rig"`
	Paint     Paint     `yaml:"paint"`
	Physics   Physics   `yaml:"physics"`
}

type Floor struct {
	HalfExtent float64 `yaml:"half_extent"`
	Thickness  float64 `yaml:"thickness"`
}

type Scene struct {
	Cubes          int        `yaml:"cubes"`
	AreaHalfExtent float64    `yaml:"area_half_extent"`
	CubeHalfSize   float64    `yaml:"cube_half_size"`
	CubeMass       float64    `yaml:"cube_mass"`
	Shute          bool       `yaml:"shute"`
	ShuteCenter    [3]float64 `yaml:"shute_center"`
	ShuteHalfSize  [3]float64 `yaml:"shute_half_size"`
}

type Hold struct {
	RateMS int `yaml:"rate_ms"`
	// MaxForce caps the corrective force magnitude (gravity compensation excluded).
	MaxForce float64 `yaml:"max_force"`
	// Gain is force per unit distance before saturation.
	Gain                float64    `yaml:"gain"`
	HeadOffsetScale     float64    `yaml:"head_offset_scale"`
	ForwardOffset       [3]float64 `yaml:"forward_offset"`
	GravityCompensation float64    `yaml:"gravity_compensation"`
	Epsilon             float64    `yaml:"epsilon"`
}

type Spawner struct {
	Enabled    bool       `yaml:"enabled"`
	IntervalMS int        `yaml:"interval_ms"`
	Center     [2]float64 `yaml:"center"`
	HalfExtent [2]float64 `yaml:"half_extent"`
	Height     float64    `yaml:"height"`
	Radius     float64    `yaml:"radius"`
	Mass       float64    `yaml:"mass"`
	// Policy is "timed" or "boundary".
	Policy   string `yaml:"policy"`
	TTLMS    int    `yaml:"ttl_ms"`
	Holdable bool   `yaml:"holdable"`
}

type Lifecycle struct {
	SweepMS int     `yaml:"sweep_ms"`
	KillZ   float64 `yaml:"kill_z"`
}

type Rig struct {
	LoadTicks  int        `yaml:"load_ticks"`
	HeadOffset [3]float64 `yaml:"head_offset"`
	SpawnRing  float64    `yaml:"spawn_ring"`
}

type Paint struct {
	MaxMarkers int `yaml:"max_markers"`
}

type Physics struct {
	LinearDamping float64 `yaml:"linear_damping"`
	Restitution   float64 `yaml:"restitution"`
	Friction      float64 `yaml:"friction"`
	MaxRayDist    float64 `yaml:"max_ray_dist"`
}

const (
	PolicyTimed    = "timed"
	PolicyBoundary = "boundary"
)

func Defaults() Tuning {
	return Tuning{
		ProtocolVersion:     "1.0",
		TickRateHz:          200,
		BroadcastEveryTicks: 10,
		SnapshotEveryTicks:  120000,
		DigestEveryTicks:    200,
		Gravity:             [3]float64{0, 0, -9.81},
		Floor: Floor{
			HalfExtent: 10,
			Thickness:  0.5,
		},
		Scene: Scene{
			Cubes:          30,
			AreaHalfExtent: 10,
			CubeHalfSize:   0.5,
			CubeMass:       1,
			Shute:          true,
			ShuteCenter:    [3]float64{10, 0, 3},
			ShuteHalfSize:  [3]float64{1, 1, 0.25},
		},
		Hold: Hold{
			RateMS:              5,
			MaxForce:            100,
			Gain:                60,
			HeadOffsetScale:     0.65,
			ForwardOffset:       [3]float64{0, 2, 0},
			GravityCompensation: 1,
			Epsilon:             1e-4,
		},
		Spawner: Spawner{
			Enabled:    true,
			IntervalMS: 500,
			Center:     [2]float64{10, 0},
			HalfExtent: [2]float64{1, 1},
			Height:     10,
			Radius:     0.1,
			Mass:       0.2,
			Policy:     PolicyTimed,
			TTLMS:      5000,
		},
		Lifecycle: Lifecycle{
			SweepMS: 100,
			KillZ:   -5,
		},
		Rig: Rig{
			LoadTicks:  40,
			HeadOffset: [3]float64{0, 0, 1.6},
			SpawnRing:  3,
		},
		Paint: Paint{
			MaxMarkers: 512,
		},
		Physics: Physics{
			LinearDamping: 0.5,
			Restitution:   0.2,
			Friction:      0.4,
			MaxRayDist:    100,
		},
	}
}

// Load reads path over Defaults. Fields absent from the file keep their defaults.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	var errs []error
	if t.TickRateHz <= 0 {
		errs = append(errs, fmt.Errorf("tick_rate_hz must be > 0"))
	}
	if t.BroadcastEveryTicks <= 0 {
		errs = append(errs, fmt.Errorf("broadcast_every_ticks must be > 0"))
	}
	if t.Floor.HalfExtent <= 0 {
		errs = append(errs, fmt.Errorf("floor.half_extent must be > 0"))
	}
	if t.Hold.RateMS <= 0 {
		errs = append(errs, fmt.Errorf("hold.rate_ms must be > 0"))
	}
	if t.Hold.MaxForce < 0 || t.Hold.Gain < 0 {
		errs = append(errs, fmt.Errorf("hold.max_force and hold.gain must be >= 0"))
	}
	if t.Hold.GravityCompensation < 0 {
		errs = append(errs, fmt.Errorf("hold.gravity_compensation must be >= 0"))
	}
	if t.Lifecycle.SweepMS <= 0 {
		errs = append(errs, fmt.Errorf("lifecycle.sweep_ms must be > 0"))
	}
	if t.Scene.CubeHalfSize <= 0 || t.Scene.CubeMass <= 0 {
		errs = append(errs, fmt.Errorf("scene.cube_half_size and scene.cube_mass must be > 0"))
	}
	if t.Spawner.Enabled {
		if t.Spawner.IntervalMS <= 0 {
			errs = append(errs, fmt.Errorf("spawner.interval_ms must be > 0"))
		}
		if t.Spawner.Radius <= 0 || t.Spawner.Mass <= 0 {
			errs = append(errs, fmt.Errorf("spawner.radius and spawner.mass must be > 0"))
		}
		switch t.Spawner.Policy {
		case PolicyTimed:
			if t.Spawner.TTLMS <= 0 {
				errs = append(errs, fmt.Errorf("spawner.ttl_ms must be > 0 for timed policy"))
			}
		case PolicyBoundary:
		default:
			errs = append(errs, fmt.Errorf("spawner.policy: unknown %q", t.Spawner.Policy))
		}
	}
	if t.Paint.MaxMarkers < 0 {
		errs = append(errs, fmt.Errorf("paint.max_markers must be >= 0"))
	}
	return errors.Join(errs...)
}

// Ticks converts a millisecond interval to whole ticks at rate hz (minimum 1).
func Ticks(ms int, hz int) uint64 {
	if ms <= 0 || hz <= 0 {
		return 1
	}
	n := uint64(ms) * uint64(hz) / 1000
	if n == 0 {
		return 1
	}
	return n
}
