package lifecycle

import (
	"fmt"
	"sort"

	"github.com/go-gl/mathgl/mgl64"

	"propworks.ai/internal/sim/world/logic/mathx"
)

type Policy uint8

const (
	PolicyNone Policy = iota
	PolicyTimed
	PolicyBoundary
)

func (p Policy) String() string {
	switch p {
	case PolicyTimed:
		return "timed"
	case PolicyBoundary:
		return "boundary"
	default:
		return "none"
	}
}

func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "timed":
		return PolicyTimed, nil
	case "boundary":
		return PolicyBoundary, nil
	case "", "none":
		return PolicyNone, nil
	default:
		return PolicyNone, fmt.Errorf("unknown despawn policy %q", s)
	}
}

// Record is the spawn bookkeeping of one transient object.
type Record struct {
	ID          string
	Policy      Policy
	CreatedTick uint64
	ExpiresTick uint64
	Z           float64
}

// Despawn reasons.
const (
	ReasonExpire      = "EXPIRE"
	ReasonOutOfBounds = "OUT_OF_BOUNDS"
)

func ExpiryTick(created, ttlTicks uint64) uint64 {
	return created + ttlTicks
}

// Streams separate independent random sequences drawn from one seed.
const (
	StreamSpawner = 0
	StreamScene   = 1
)

// SpawnPosition returns a point uniformly spread over center±half at height z.
// The result depends only on seed, stream and n.
func SpawnPosition(seed int64, stream int, n uint64, center, half [2]float64, z float64) mgl64.Vec3 {
	hx := mathx.Hash2(seed, int(n), 2*stream)
	hy := mathx.Hash2(seed, int(n), 2*stream+1)
	return mgl64.Vec3{
		center[0] + mathx.Signed(hx)*half[0],
		center[1] + mathx.Signed(hy)*half[1],
		z,
	}
}

// SortedExpired returns timed records whose expiry tick has been reached.
func SortedExpired(ids []string, load func(string) (Record, bool), nowTick uint64) []string {
	out := make([]string, 0)
	if load == nil {
		return out
	}
	for _, id := range ids {
		r, ok := load(id)
		if !ok || r.Policy != PolicyTimed {
			continue
		}
		if r.ExpiresTick != 0 && nowTick >= r.ExpiresTick {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// SortedBelow returns boundary records that fell under killZ.
func SortedBelow(ids []string, load func(string) (Record, bool), killZ float64) []string {
	out := make([]string, 0)
	if load == nil {
		return out
	}
	for _, id := range ids {
		r, ok := load(id)
		if !ok || r.Policy != PolicyBoundary {
			continue
		}
		if r.Z < killZ {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}
