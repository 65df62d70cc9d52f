package world

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"propworks.ai/internal/persistence/snapshot"
	"propworks.ai/internal/physics"
	"propworks.ai/internal/sim/world/feature/lifecycle"
	"propworks.ai/internal/sim/world/feature/ownership"
)

func (w *World) importSnapshotV1(s snapshot.SnapshotV1) error {
	if s.Header.Version != snapshot.Version {
		return fmt.Errorf("%w: %d", snapshot.ErrVersion, s.Header.Version)
	}
	if s.TickRate != 0 && s.TickRate != w.tun.TickRateHz {
		return fmt.Errorf("snapshot tick rate %d != world tick rate %d", s.TickRate, w.tun.TickRateHz)
	}

	phys := newPhysics(w.tun)
	for _, b := range s.Bodies {
		if err := phys.Import(bodyFromV1(b)); err != nil {
			return fmt.Errorf("import body: %w", err)
		}
	}
	phys.SetNextID(physics.BodyID(s.Counters.NextBody))

	objects := newObjectStore()
	for _, ov := range s.Objects {
		policy, err := lifecycle.ParsePolicy(ov.Policy)
		if err != nil {
			return fmt.Errorf("import object %s: %w", ov.ID, err)
		}
		spec := objectSpec{
			ID:          ov.ID,
			Kind:        Kind(ov.Kind),
			CreatedTick: ov.CreatedTick,
			Body:        physics.BodyID(ov.Body),
			Holdable:    Capability(ov.Caps)&CapHoldable != 0,
		}
		if spec.Body != 0 {
			if _, ok := phys.State(spec.Body); !ok {
				return fmt.Errorf("import object %s: missing body %d", ov.ID, ov.Body)
			}
		}
		if policy != lifecycle.PolicyNone {
			spec.Lifetime = &Lifetime{Policy: policy, ExpiresTick: ov.ExpiresTick}
		}
		if spec.Kind == KindPaint {
			m := Marker{Pos: mgl64.Vec3(ov.Pos)}
			if ov.Color != nil {
				m.Color = *ov.Color
			}
			spec.Marker = &m
		}
		if _, err := objects.create(spec); err != nil {
			return fmt.Errorf("import: %w", err)
		}
	}

	w.phys = phys
	w.objects = objects
	w.players = map[string]*Player{}
	w.clients = map[string]*clientState{}
	w.owners = ownership.NewRegistry()
	w.paintOrder = append([]string(nil), s.PaintOrder...)
	w.score.restore(s.Score)
	w.nextPlayerNum.Store(s.Counters.NextPlayer)
	w.nextObjectNum.Store(s.Counters.NextObject)
	w.spawned.Store(s.Counters.Spawned)
	w.tick.Store(s.Header.Tick + 1)
	w.publishMetrics(s.Header.Tick+1, 0)
	return nil
}
