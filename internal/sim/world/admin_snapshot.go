package world

import (
	"context"
	"errors"
)

var (
	ErrSnapshotUnavailable = errors.New("admin snapshot not available")
	ErrNoSnapshotSink      = errors.New("snapshot sink not configured")
	ErrSnapshotSinkFull    = errors.New("snapshot sink full")
)

// SnapshotReceipt identifies a snapshot handed to the sink. Digest is the
// state digest at Tick, so it can be matched against the tick log.
type SnapshotReceipt struct {
	Tick    uint64 `json:"tick"`
	Digest  string `json:"digest"`
	Objects int    `json:"objects"`
	Bodies  int    `json:"bodies"`
	Score   int64  `json:"score"`
}

type adminSnapshotReq struct {
	Resp chan adminSnapshotResp
}

type adminSnapshotResp struct {
	Receipt SnapshotReceipt
	Err     error
}

// RequestSnapshot asks the world loop to export the last completed tick to the
// snapshot sink. Safe to call from any goroutine.
func (w *World) RequestSnapshot(ctx context.Context) (SnapshotReceipt, error) {
	if w == nil || w.admin == nil {
		return SnapshotReceipt{}, ErrSnapshotUnavailable
	}
	resp := make(chan adminSnapshotResp, 1)
	select {
	case w.admin <- adminSnapshotReq{Resp: resp}:
	case <-ctx.Done():
		return SnapshotReceipt{}, ctx.Err()
	}
	select {
	case r := <-resp:
		return r.Receipt, r.Err
	case <-ctx.Done():
		return SnapshotReceipt{}, ctx.Err()
	}
}

// handleAdminSnapshotRequests runs between ticks. All pending requests share
// one export.
func (w *World) handleAdminSnapshotRequests(reqs []adminSnapshotReq) {
	if w == nil || len(reqs) == 0 {
		return
	}
	var snapTick uint64
	if cur := w.tick.Load(); cur > 0 {
		snapTick = cur - 1
	}
	out := adminSnapshotResp{Receipt: SnapshotReceipt{Tick: snapTick}}
	if w.snapshotSink == nil {
		out.Err = ErrNoSnapshotSink
	} else {
		snap := w.exportSnapshot(snapTick)
		select {
		case w.snapshotSink <- snap:
			out.Receipt = SnapshotReceipt{
				Tick:    snapTick,
				Digest:  w.stateDigest(snapTick),
				Objects: len(snap.Objects),
				Bodies:  len(snap.Bodies),
				Score:   snap.Score,
			}
		default:
			out.Err = ErrSnapshotSinkFull
		}
	}
	for _, r := range reqs {
		select {
		case r.Resp <- out:
		default:
			// Never block the world loop on a caller.
		}
	}
}
