package world

import "propworks.ai/internal/sim/tuning"

// system is a fixed-rate callback run on ticks divisible by every.
type system struct {
	name  string
	every uint64
	fn    func(nowTick uint64)
}

// every registers fn to run every intervalMS, rounded to whole ticks (minimum 1).
func (w *World) every(intervalMS int, name string, fn func(nowTick uint64)) {
	w.everyTicks(tuning.Ticks(intervalMS, w.tun.TickRateHz), name, fn)
}

func (w *World) everyTicks(n uint64, name string, fn func(nowTick uint64)) {
	if n == 0 {
		n = 1
	}
	w.systems = append(w.systems, system{name: name, every: n, fn: fn})
}

func (w *World) registerSystems() {
	w.every(w.tun.Hold.RateMS, "hold", w.systemHold)
	w.everyTicks(1, "hold_apply", w.systemHoldApply)
	w.everyTicks(1, "physics", w.systemPhysics)
	w.every(w.tun.Lifecycle.SweepMS, "sweep_timed", w.systemTimedSweep)
	w.every(w.tun.Lifecycle.SweepMS, "sweep_boundary", w.systemBoundarySweep)
	if w.tun.Spawner.Enabled {
		w.every(w.tun.Spawner.IntervalMS, "spawner", w.systemSpawner)
	}
}

func (w *World) runSystems(nowTick uint64) {
	for _, s := range w.systems {
		if nowTick%s.every == 0 {
			s.fn(nowTick)
		}
	}
}

func (w *World) systemPhysics(uint64) {
	w.phys.Step(w.dt)
}
