package indexdb

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"propworks.ai/internal/persistence/snapshot"
	"propworks.ai/internal/sim/world"
)

// HTTPConfig points the remote index at an ingest endpoint that accepts
// batched JSON events.
type HTTPConfig struct {
	Endpoint      string
	Token         string
	WorldID       string
	BatchSize     int
	FlushInterval time.Duration
	HTTPTimeout   time.Duration
	Retries       int
	Logger        *log.Logger
}

type HTTPIndex struct {
	cfg        HTTPConfig
	httpClient *http.Client

	ch   chan ingestEvent
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool
	drops  dropCounters
	sent   atomic.Uint64
	failed atomic.Uint64

	auditMu       sync.Mutex
	lastAuditTick uint64
	auditSeq      int
}

type ingestEvent struct {
	Kind    string `json:"kind"`
	WorldID string `json:"world_id"`
	Payload any    `json:"payload"`
}

type auditPayload struct {
	Seq int `json:"seq"`
	world.AuditEntry
}

func OpenHTTP(cfg HTTPConfig) (*HTTPIndex, error) {
	cfg.Endpoint = strings.TrimSpace(cfg.Endpoint)
	cfg.WorldID = strings.TrimSpace(cfg.WorldID)
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("empty index ingest endpoint")
	}
	if cfg.WorldID == "" {
		return nil, fmt.Errorf("empty world id")
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 128
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 500 * time.Millisecond
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 10 * time.Second
	}
	if cfg.Retries <= 0 {
		cfg.Retries = 3
	}

	d := &HTTPIndex{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.HTTPTimeout},
		ch:         make(chan ingestEvent, 32768),
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.loop()
	}()
	return d, nil
}

func (d *HTTPIndex) Close() error {
	if d == nil {
		return nil
	}
	d.once.Do(func() {
		d.closed.Store(true)
		close(d.ch)
		d.wg.Wait()
	})
	return nil
}

func (d *HTTPIndex) Stats() Stats {
	st := Stats{QueueDepth: len(d.ch), QueueCapacity: cap(d.ch)}
	d.drops.fill(&st)
	return st
}

// Sent and Failed count events delivered and events given up on.
func (d *HTTPIndex) Sent() uint64   { return d.sent.Load() }
func (d *HTTPIndex) Failed() uint64 { return d.failed.Load() }

func (d *HTTPIndex) WriteTick(entry world.TickLogEntry) error {
	d.enqueue(ingestEvent{Kind: "tick", Payload: entry}, &d.drops.tick)
	return nil
}

func (d *HTTPIndex) WriteAudit(entry world.AuditEntry) error {
	p := auditPayload{Seq: d.nextAuditSeq(entry.Tick), AuditEntry: entry}
	d.enqueue(ingestEvent{Kind: "audit", Payload: p}, &d.drops.audit)
	return nil
}

func (d *HTTPIndex) RecordSnapshot(path string, snap snapshot.SnapshotV1) {
	d.enqueue(ingestEvent{Kind: "snapshot", Payload: snapshotRowOf(path, snap)}, &d.drops.snapshot)
}

func (d *HTTPIndex) nextAuditSeq(tick uint64) int {
	d.auditMu.Lock()
	defer d.auditMu.Unlock()
	if tick != d.lastAuditTick {
		d.lastAuditTick = tick
		d.auditSeq = 0
	}
	seq := d.auditSeq
	d.auditSeq++
	return seq
}

func (d *HTTPIndex) enqueue(ev ingestEvent, drop *atomic.Uint64) {
	if d == nil || d.closed.Load() {
		return
	}
	ev.WorldID = d.cfg.WorldID
	select {
	case d.ch <- ev:
	default:
		drop.Add(1)
	}
}

func (d *HTTPIndex) loop() {
	ticker := time.NewTicker(d.cfg.FlushInterval)
	defer ticker.Stop()

	batch := make([]ingestEvent, 0, d.cfg.BatchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := d.sendBatch(batch); err != nil {
			d.failed.Add(uint64(len(batch)))
			d.printf("index flush failed batch=%d err=%v", len(batch), err)
		} else {
			d.sent.Add(uint64(len(batch)))
		}
		batch = batch[:0]
	}

	for {
		select {
		case ev, ok := <-d.ch:
			if !ok {
				flush()
				return
			}
			batch = append(batch, ev)
			if len(batch) >= d.cfg.BatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

func (d *HTTPIndex) sendBatch(events []ingestEvent) error {
	buf, err := json.Marshal(struct {
		Events []ingestEvent `json:"events"`
	}{Events: events})
	if err != nil {
		return err
	}

	var lastErr error
	for attempt := 0; attempt < d.cfg.Retries; attempt++ {
		if attempt > 0 {
			time.Sleep(time.Duration(50*(1<<attempt)) * time.Millisecond)
		}
		req, err := http.NewRequest(http.MethodPost, d.cfg.Endpoint, bytes.NewReader(buf))
		if err != nil {
			return err
		}
		req.Header.Set("content-type", "application/json")
		if d.cfg.Token != "" {
			req.Header.Set("x-pw-index-token", d.cfg.Token)
		}
		resp, err := d.httpClient.Do(req)
		if err == nil {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 16*1024))
			_ = resp.Body.Close()
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				return nil
			}
			err = fmt.Errorf("status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(body)))
		}
		lastErr = err
	}
	return lastErr
}

func (d *HTTPIndex) printf(format string, args ...any) {
	if d.cfg.Logger != nil {
		d.cfg.Logger.Printf(format, args...)
	}
}
