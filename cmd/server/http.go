package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/http/pprof"
	"sort"
	"strings"
	"time"

	"propworks.ai/internal/persistence/indexdb"
	"propworks.ai/internal/persistence/snapshot"
	"propworks.ai/internal/sim/world"
	"propworks.ai/internal/transport/ws"
)

type httpDeps struct {
	WorldID string
	World   *world.World
	WS      *ws.Server
	Index   indexdb.Index
	Env     serverEnv
	Logger  *log.Logger
	// SnapshotDir is where the snapshot writer puts files; it only labels
	// admin responses.
	SnapshotDir string
}

func newMux(d httpDeps) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(http.StatusOK)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		writeMetrics(rw, d)
	})

	if d.Env.adminEnabled() {
		// Local-only admin endpoints (do not affect simulation determinism).
		mux.HandleFunc("/admin/v1/state", loopbackOnly(func(rw http.ResponseWriter, r *http.Request) {
			rw.Header().Set("Content-Type", "application/json")
			resp := struct {
				WorldID string             `json:"world_id"`
				Tick    uint64             `json:"tick"`
				Metrics world.WorldMetrics `json:"metrics"`
			}{
				WorldID: d.WorldID,
				Tick:    d.World.CurrentTick(),
				Metrics: d.World.Metrics(),
			}
			_ = json.NewEncoder(rw).Encode(resp)
		}))
		mux.HandleFunc("/admin/v1/snapshot", loopbackOnly(func(rw http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				rw.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
			defer cancel()
			rec, err := d.World.RequestSnapshot(ctx)
			rw.Header().Set("Content-Type", "application/json")
			if err != nil {
				rw.WriteHeader(http.StatusServiceUnavailable)
				_ = json.NewEncoder(rw).Encode(map[string]any{"ok": false, "tick": rec.Tick, "error": err.Error()})
				return
			}
			resp := struct {
				OK bool `json:"ok"`
				world.SnapshotReceipt
				Path string `json:"path,omitempty"`
			}{OK: true, SnapshotReceipt: rec}
			if d.SnapshotDir != "" {
				resp.Path = snapshot.Path(d.SnapshotDir, rec.Tick)
			}
			_ = json.NewEncoder(rw).Encode(resp)
		}))
	} else if d.Logger != nil {
		d.Logger.Printf("admin endpoints disabled (PW_ENABLE_ADMIN_HTTP=false)")
	}

	if d.Env.PprofHTTP {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}
	if d.WS != nil {
		mux.HandleFunc("/v1/ws", d.WS.Handler())
	}
	return mux
}

func loopbackOnly(h http.HandlerFunc) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		h(rw, r)
	}
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

type promWriter struct {
	w     io.Writer
	world string
}

func (p promWriter) header(name, typ, help string) {
	fmt.Fprintf(p.w, "# HELP %s %s\n", name, help)
	fmt.Fprintf(p.w, "# TYPE %s %s\n", name, typ)
}

func (p promWriter) gauge(name, help string, v any) {
	p.header(name, "gauge", help)
	p.sample(name, "", "", v)
}

func (p promWriter) sample(name, label, value string, v any) {
	if label == "" {
		fmt.Fprintf(p.w, "%s{world=%q} %v\n", name, p.world, v)
		return
	}
	fmt.Fprintf(p.w, "%s{world=%q,%s=%q} %v\n", name, p.world, label, value, v)
}

// labeled writes one sample per map key, in key order.
func (p promWriter) labeled(name, typ, help, label string, m map[string]uint64) {
	p.header(name, typ, help)
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		p.sample(name, label, k, m[k])
	}
}

func writeMetrics(w io.Writer, d httpDeps) {
	m := d.World.Metrics()
	tick := d.World.CurrentTick()
	if m.Tick != 0 {
		tick = m.Tick
	}
	p := promWriter{w: w, world: d.WorldID}

	p.gauge("propworks_world_tick", "Current world tick.", tick)
	p.gauge("propworks_world_players", "Players currently joined.", m.Players)
	p.gauge("propworks_world_clients", "Players with a live transport session.", m.Clients)
	p.gauge("propworks_world_objects", "Live object entities.", m.Objects)
	p.gauge("propworks_world_bodies", "Rigid bodies in the physics world.", m.Bodies)
	p.gauge("propworks_world_held", "Objects currently held.", m.Held)
	p.gauge("propworks_world_score", "Objects that left through the kill plane.", m.Score)
	p.gauge("propworks_world_step_ms", "Last tick step duration in milliseconds.", fmt.Sprintf("%.3f", m.StepMS))
	p.gauge("propworks_world_max_hold_force", "Largest corrective force from the latest hold controller update.", fmt.Sprintf("%.3f", m.MaxHoldForce))

	p.header("propworks_world_queue_depth", "gauge", "Channel backlog depth.")
	p.sample("propworks_world_queue_depth", "queue", "inbox", m.QueueDepths.Inbox)
	p.sample("propworks_world_queue_depth", "queue", "join", m.QueueDepths.Join)
	p.sample("propworks_world_queue_depth", "queue", "leave", m.QueueDepths.Leave)

	p.header("propworks_spawned_total", "counter", "Objects created by the spawner.")
	p.sample("propworks_spawned_total", "", "", m.Spawned)
	p.labeled("propworks_despawned_total", "counter", "Objects destroyed, by reason.", "reason", m.Despawned)
	p.labeled("propworks_rejected_total", "counter", "Rejected interactions, by code.", "code", m.Rejected)

	if d.WS != nil {
		p.gauge("propworks_ws_sessions", "Connected websocket sessions.", d.WS.Sessions())
		p.header("propworks_ws_dropped_inputs_total", "counter", "Inputs dropped on a full world inbox.")
		p.sample("propworks_ws_dropped_inputs_total", "", "", d.WS.DroppedInputs())
		p.header("propworks_ws_invalid_frames_total", "counter", "Client frames that failed to decode.")
		p.sample("propworks_ws_invalid_frames_total", "", "", d.WS.InvalidFrames())
	}
	if d.Index != nil {
		st := d.Index.Stats()
		p.gauge("propworks_index_queue_depth", "Index writer backlog.", st.QueueDepth)
		p.labeled("propworks_index_dropped_total", "counter", "Index events dropped on backpressure.", "kind", map[string]uint64{
			"tick":     st.DropTickTotal,
			"audit":    st.DropAuditTotal,
			"snapshot": st.DropSnapshotTotal,
		})
	}
}
