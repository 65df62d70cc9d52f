package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	persistlog "propworks.ai/internal/persistence/log"
	"propworks.ai/internal/persistence/snapshot"
	"propworks.ai/internal/sim/tuning"
	"propworks.ai/internal/sim/world"
)

func main() {
	var (
		snapPath   = flag.String("snapshot", "", "path to .snap.zst to start from (empty: replay from tick 0)")
		eventsDir  = flag.String("events", "", "events dir containing events-*.jsonl.zst")
		tuningPath = flag.String("tuning", "./configs/tuning.yaml", "tuning the server ran with")
		worldID    = flag.String("world", "world_1", "world id (fresh replays only)")
		seed       = flag.Int64("seed", 1337, "world seed (fresh replays only)")
		toTick     = flag.Uint64("to_tick", 0, "stop at tick (inclusive, optional)")
	)
	flag.Parse()

	tune, err := tuning.Load(*tuningPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load tuning:", err)
		os.Exit(1)
	}

	w, err := startWorld(*snapPath, *worldID, *seed, tune)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *eventsDir == "" {
		return
	}

	files, err := persistlog.Files(*eventsDir, "events")
	if err != nil {
		fmt.Fprintln(os.Stderr, "list events:", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "no events files found in", *eventsDir)
		os.Exit(1)
	}

	start := w.CurrentTick()
	checked, err := replay(w, files, *toTick)
	if err != nil {
		fmt.Fprintln(os.Stderr, "replay:", err)
		os.Exit(1)
	}
	fmt.Printf("replay ok: checked=%d entries ticks=%d..%d\n", checked, start, w.CurrentTick())
}

func startWorld(snapPath, worldID string, seed int64, tune tuning.Tuning) (*world.World, error) {
	if snapPath == "" {
		return world.New(world.WorldConfig{ID: worldID, Seed: seed, Tuning: tune})
	}
	snap, err := snapshot.ReadSnapshot(snapPath)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	fmt.Printf("snapshot v%d world=%s tick=%d seed=%d score=%d objects=%d bodies=%d\n",
		snap.Header.Version, snap.Header.WorldID, snap.Header.Tick, snap.Seed, snap.Score,
		len(snap.Objects), len(snap.Bodies))

	w, err := world.New(world.WorldConfig{ID: snap.Header.WorldID, Seed: snap.Seed, Tuning: tune})
	if err != nil {
		return nil, fmt.Errorf("world: %w", err)
	}
	if err := w.ImportSnapshot(snap); err != nil {
		return nil, fmt.Errorf("import snapshot: %w", err)
	}
	return w, nil
}

var errStop = errors.New("stop")

// replay feeds logged ticks into w and checks each logged digest. Ticks with
// nothing logged are stepped empty, which is what the live loop did.
func replay(w *world.World, files []string, toTick uint64) (uint64, error) {
	var checked uint64
	start := w.CurrentTick()

	for _, path := range files {
		err := persistlog.ReadJSONL(path, func(entry world.TickLogEntry) error {
			if entry.Tick < start {
				return nil
			}
			if toTick != 0 && entry.Tick > toTick {
				return errStop
			}
			if entry.Tick < w.CurrentTick() {
				return fmt.Errorf("log rewinds to tick %d at tick %d (%s); replay from the snapshot the server resumed from",
					entry.Tick, w.CurrentTick(), filepath.Base(path))
			}
			for w.CurrentTick() < entry.Tick {
				w.StepOnce(nil, nil, nil)
			}

			joins := make([]world.JoinRequest, 0, len(entry.Joins))
			for _, j := range entry.Joins {
				joins = append(joins, world.JoinRequest{Name: j.Name})
			}
			inputs := make([]world.InputEnvelope, 0, len(entry.Inputs))
			for _, in := range entry.Inputs {
				inputs = append(inputs, world.InputEnvelope{PlayerID: in.PlayerID, Input: in.Input})
			}

			tick, digest := w.StepOnce(joins, entry.Leaves, inputs)
			if tick != entry.Tick {
				return fmt.Errorf("internal tick mismatch: stepped=%d entry=%d", tick, entry.Tick)
			}
			checked++
			if digest != entry.Digest {
				return fmt.Errorf("digest mismatch at tick %d: got=%s want=%s", tick, digest, entry.Digest)
			}
			return nil
		})
		if errors.Is(err, errStop) {
			break
		}
		if err != nil {
			return checked, err
		}
	}
	return checked, nil
}
