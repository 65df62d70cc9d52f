package world

// WorldMetrics is a thread-safe read-only view of key world runtime signals.
// It is updated from the world loop goroutine and read from HTTP handlers/tests.
type WorldMetrics struct {
	Tick uint64 `json:"tick"`

	Players int   `json:"players"`
	Clients int   `json:"clients"`
	Objects int   `json:"objects"`
	Bodies  int   `json:"bodies"`
	Held    int   `json:"held"`
	Score   int64 `json:"score"`

	QueueDepths QueueDepths `json:"queue_depths"`

	StepMS       float64 `json:"step_ms"`
	MaxHoldForce float64 `json:"max_hold_force"`

	Spawned   uint64            `json:"spawned"`
	Despawned map[string]uint64 `json:"despawned,omitempty"`
	Rejected  map[string]uint64 `json:"rejected,omitempty"`
}

type QueueDepths struct {
	Inbox int `json:"inbox"`
	Join  int `json:"join"`
	Leave int `json:"leave"`
}

func (w *World) Metrics() WorldMetrics {
	if w == nil {
		return WorldMetrics{}
	}
	v := w.metrics.Load()
	if v == nil {
		return WorldMetrics{}
	}
	m, ok := v.(WorldMetrics)
	if !ok {
		return WorldMetrics{}
	}
	return m
}

func (w *World) publishMetrics(nextTick uint64, stepMS float64) {
	w.metrics.Store(WorldMetrics{
		Tick:    nextTick,
		Players: len(w.players),
		Clients: len(w.clients),
		Objects: w.objects.Len(),
		Bodies:  w.phys.Len(),
		Held:    w.owners.Len(),
		Score:   w.score.Load(),
		QueueDepths: QueueDepths{
			Inbox: len(w.inbox),
			Join:  len(w.join),
			Leave: len(w.leave),
		},
		StepMS:       stepMS,
		MaxHoldForce: w.maxHoldForce,
		Spawned:      w.spawned.Load(),
		Despawned:    copyCounts(w.despawned),
		Rejected:     copyCounts(w.rejected),
	})
}

func copyCounts(m map[string]uint64) map[string]uint64 {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]uint64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
