package world

import (
	"context"
	"errors"
	"testing"
	"time"

	"propworks.ai/internal/persistence/snapshot"
)

func TestAdminSnapshot_ReceiptMatchesTickDigest(t *testing.T) {
	w := newTestWorld(t, bareTuning())
	placeCube(w, 0, 0)
	sink := make(chan snapshot.SnapshotV1, 1)
	w.SetSnapshotSink(sink)
	tick, digest := w.StepOnce(nil, nil, nil)

	resp := make(chan adminSnapshotResp, 1)
	stale := make(chan adminSnapshotResp) // nobody reads this one
	w.handleAdminSnapshotRequests([]adminSnapshotReq{{Resp: stale}, {Resp: resp}})

	r := <-resp
	if r.Err != nil {
		t.Fatalf("err: %v", r.Err)
	}
	if r.Receipt.Tick != tick || r.Receipt.Digest != digest {
		t.Fatalf("receipt=%+v want tick %d digest %s", r.Receipt, tick, digest)
	}
	if r.Receipt.Objects != 1 || r.Receipt.Bodies != 2 {
		t.Fatalf("receipt counts=%+v", r.Receipt)
	}
	if snap := <-sink; snap.Header.Tick != tick {
		t.Fatalf("sink tick=%d", snap.Header.Tick)
	}
}

func TestAdminSnapshot_SinkErrors(t *testing.T) {
	w := newTestWorld(t, bareTuning())
	w.StepOnce(nil, nil, nil)

	resp := make(chan adminSnapshotResp, 1)
	w.handleAdminSnapshotRequests([]adminSnapshotReq{{Resp: resp}})
	if r := <-resp; !errors.Is(r.Err, ErrNoSnapshotSink) {
		t.Fatalf("err=%v want no sink", r.Err)
	}

	sink := make(chan snapshot.SnapshotV1, 1)
	sink <- snapshot.SnapshotV1{}
	w.SetSnapshotSink(sink)
	w.handleAdminSnapshotRequests([]adminSnapshotReq{{Resp: resp}})
	if r := <-resp; !errors.Is(r.Err, ErrSnapshotSinkFull) || r.Receipt.Digest != "" {
		t.Fatalf("resp=%+v want sink full", r)
	}
}

func TestRequestSnapshot_ThroughLoop(t *testing.T) {
	w := newTestWorld(t, bareTuning())
	sink := make(chan snapshot.SnapshotV1, 1)
	w.SetSnapshotSink(sink)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	rec, err := w.RequestSnapshot(ctx)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if rec.Digest == "" {
		t.Fatalf("empty digest in %+v", rec)
	}
	if snap := <-sink; snap.Header.Tick != rec.Tick {
		t.Fatalf("sink tick=%d receipt tick=%d", snap.Header.Tick, rec.Tick)
	}
}
