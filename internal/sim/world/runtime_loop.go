package world

import (
	"context"
	"time"

	"propworks.ai/internal/protocol"
)

func (w *World) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(w.tun.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var pendingInputs []InputEnvelope
	var pendingJoins []JoinRequest
	var pendingLeaves []string
	var pendingAdmin []adminSnapshotReq

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stop:
			return nil
		case req := <-w.join:
			pendingJoins = append(pendingJoins, req)
		case id := <-w.leave:
			pendingLeaves = append(pendingLeaves, id)
		case req := <-w.admin:
			pendingAdmin = append(pendingAdmin, req)
		case env := <-w.inbox:
			pendingInputs = append(pendingInputs, env)
		case <-ticker.C:
			w.step(pendingJoins, pendingLeaves, pendingInputs)
			w.handleAdminSnapshotRequests(pendingAdmin)
			pendingJoins = pendingJoins[:0]
			pendingLeaves = pendingLeaves[:0]
			pendingInputs = pendingInputs[:0]
			pendingAdmin = pendingAdmin[:0]
		}
	}
}

func (w *World) Stop() { close(w.stop) }

// StepOnce advances the world by a single tick using the same ordering semantics as the server.
// It is primarily intended for deterministic replays/tests.
func (w *World) StepOnce(joins []JoinRequest, leaves []string, inputs []InputEnvelope) (tick uint64, digest string) {
	tick = w.tick.Load()
	w.step(joins, leaves, inputs)
	return tick, w.stateDigest(tick)
}

func (w *World) step(joins []JoinRequest, leaves []string, inputs []InputEnvelope) {
	stepStart := time.Now()
	nowTick := w.tick.Load()

	// Leaves first: a disconnecting holder drops its edge before anything else this tick.
	recordedLeaves := make([]string, 0, len(leaves))
	for _, id := range leaves {
		if _, ok := w.players[id]; ok {
			w.leavePlayer(nowTick, id)
			recordedLeaves = append(recordedLeaves, id)
		}
	}
	recordedJoins := make([]RecordedJoin, 0, len(joins))
	for _, req := range joins {
		resp := w.joinPlayer(nowTick, req.Name, req.Out)
		if req.Resp != nil {
			req.Resp <- resp
		}
		recordedJoins = append(recordedJoins, RecordedJoin{PlayerID: resp.Welcome.PlayerID, Name: req.Name})
	}
	w.loadRigs(nowTick)

	// POSE before interactions so rays and anchors use this tick's transforms.
	recorded := make([]RecordedInput, 0, len(inputs))
	for _, env := range inputs {
		if env.Input.Type != protocol.TypePose {
			continue
		}
		p := w.players[env.PlayerID]
		if p == nil {
			w.reject(protocol.ErrNoPermission)
			continue
		}
		if w.applyPose(p, env.Input.Pose) {
			recorded = append(recorded, RecordedInput{PlayerID: env.PlayerID, Input: env.Input})
		}
	}
	// Interactions in receive order.
	for _, env := range inputs {
		switch env.Input.Type {
		case protocol.TypeInteract:
			w.applyInteract(env.PlayerID, env.Input.Interact, nowTick)
		case protocol.TypePaint:
			w.applyPaint(env.PlayerID, env.Input.Paint, nowTick)
		default:
			continue
		}
		if w.players[env.PlayerID] != nil {
			recorded = append(recorded, RecordedInput{PlayerID: env.PlayerID, Input: env.Input})
		}
	}

	w.runSystems(nowTick)

	if nowTick%uint64(w.tun.BroadcastEveryTicks) == 0 {
		w.broadcastState(nowTick)
	}

	hasInputs := len(recordedJoins) > 0 || len(recordedLeaves) > 0 || len(recorded) > 0
	every := uint64(w.tun.DigestEveryTicks)
	if w.tickLogger != nil && (hasInputs || (every > 0 && nowTick%every == 0)) {
		_ = w.tickLogger.WriteTick(TickLogEntry{
			Tick:   nowTick,
			Joins:  recordedJoins,
			Leaves: recordedLeaves,
			Inputs: recorded,
			Digest: w.stateDigest(nowTick),
		})
	}

	// Snapshot every N ticks, starting after tick 0.
	if w.snapshotSink != nil && nowTick != 0 && w.tun.SnapshotEveryTicks > 0 {
		if nowTick%uint64(w.tun.SnapshotEveryTicks) == 0 {
			snap := w.exportSnapshot(nowTick)
			select {
			case w.snapshotSink <- snap:
			default:
				// Drop snapshot if sink is backed up.
			}
		}
	}

	stepMS := float64(time.Since(stepStart).Microseconds()) / 1000.0
	nextTick := w.tick.Add(1)
	w.publishMetrics(nextTick, stepMS)
}
