package world

import (
	"propworks.ai/internal/persistence/snapshot"
	"propworks.ai/internal/physics"
)

// exportSnapshot captures objects, bodies, score and counters. Players and
// holder edges are session state and are not persisted.
func (w *World) exportSnapshot(nowTick uint64) snapshot.SnapshotV1 {
	s := snapshot.SnapshotV1{
		Header: snapshot.Header{
			Version: snapshot.Version,
			WorldID: w.cfg.ID,
			Tick:    nowTick,
		},
		Seed:     w.cfg.Seed,
		TickRate: w.tun.TickRateHz,
		Score:    w.score.Load(),
		Counters: snapshot.CountersV1{
			NextPlayer: w.nextPlayerNum.Load(),
			NextObject: w.nextObjectNum.Load(),
			Spawned:    w.spawned.Load(),
			NextBody:   uint64(w.phys.NextID()),
		},
	}
	for _, id := range w.objects.sortedIDs() {
		o, _ := w.objects.view(id)
		ov := snapshot.ObjectV1{
			ID:          o.ID,
			Kind:        string(o.Kind),
			Caps:        uint8(o.Caps()),
			Body:        uint64(o.Body),
			Pos:         o.Pos,
			Policy:      o.Policy.String(),
			CreatedTick: o.CreatedTick,
			ExpiresTick: o.ExpiresTick,
		}
		if o.Kind == KindPaint && o.Color != nil {
			c := *o.Color
			ov.Color = &c
		}
		s.Objects = append(s.Objects, ov)
	}
	for _, b := range w.phys.States() {
		s.Bodies = append(s.Bodies, bodyToV1(b))
	}
	s.PaintOrder = append([]string(nil), w.paintOrder...)
	return s
}

func bodyToV1(b physics.BodyState) snapshot.BodyV1 {
	return snapshot.BodyV1{
		ID:       uint64(b.ID),
		Shape:    uint8(b.Shape),
		Static:   b.Static,
		Radius:   b.Radius,
		HalfSize: b.HalfSize,
		Mass:     b.Mass,
		Pos:      b.Pos,
		Vel:      b.Vel,
		Rot:      b.Rot,
	}
}

func bodyFromV1(b snapshot.BodyV1) physics.BodyState {
	return physics.BodyState{
		ID:       physics.BodyID(b.ID),
		Shape:    physics.Shape(b.Shape),
		Static:   b.Static,
		Radius:   b.Radius,
		HalfSize: b.HalfSize,
		Mass:     b.Mass,
		Pos:      b.Pos,
		Vel:      b.Vel,
		Rot:      b.Rot,
	}
}
