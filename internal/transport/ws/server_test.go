package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"propworks.ai/internal/protocol"
	"propworks.ai/internal/sim/tuning"
	"propworks.ai/internal/sim/world"
)

func startServer(t *testing.T) (*world.World, *Server, string) {
	t.Helper()
	tun := tuning.Defaults()
	tun.Scene.Cubes = 0
	tun.Spawner.Enabled = false
	w, err := world.New(world.WorldConfig{ID: "ws", Seed: 1, Tuning: tun})
	if err != nil {
		t.Fatalf("world: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = w.Run(ctx) }()

	srv := NewServer(w, nil)
	hs := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		hs.Close()
		cancel()
	})
	return w, srv, "ws" + strings.TrimPrefix(hs.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func hello(t *testing.T, conn *websocket.Conn, name string) protocol.WelcomeMsg {
	t.Helper()
	if err := conn.WriteJSON(protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		PlayerName:      name,
	}); err != nil {
		t.Fatalf("hello: %v", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var welcome protocol.WelcomeMsg
	if err := conn.ReadJSON(&welcome); err != nil {
		t.Fatalf("welcome: %v", err)
	}
	if welcome.Type != protocol.TypeWelcome || welcome.PlayerID == "" {
		t.Fatalf("bad welcome: %+v", welcome)
	}
	return welcome
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestServer_HelloWelcomeAndState(t *testing.T) {
	w, srv, url := startServer(t)
	conn := dial(t, url)
	defer conn.Close()

	welcome := hello(t, conn, "ann")
	if welcome.WorldParams.TickRateHz != 200 {
		t.Fatalf("tick rate=%d", welcome.WorldParams.TickRateHz)
	}

	_ = conn.WriteJSON(protocol.PoseMsg{
		Type:            protocol.TypePose,
		ProtocolVersion: protocol.Version,
		Position:        [3]float64{1, 2, 0},
		Rotation:        [4]float64{0, 0, 0, 1},
		HeadRotation:    [4]float64{0, 0, 0, 1},
	})

	var st protocol.StateMsg
	for {
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, b, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read state: %v", err)
		}
		if err := json.Unmarshal(b, &st); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if st.Type != protocol.TypeState || len(st.Players) != 1 {
			continue
		}
		if st.Players[0].Pos == [3]float64{1, 2, 0} {
			break
		}
	}
	if st.PlayerID != welcome.PlayerID {
		t.Fatalf("state for %s, want %s", st.PlayerID, welcome.PlayerID)
	}
	if srv.Sessions() != 1 {
		t.Fatalf("sessions=%d", srv.Sessions())
	}

	_ = conn.Close()
	waitFor(t, "leave", func() bool { return w.Metrics().Players == 0 && srv.Sessions() == 0 })
}

func TestServer_RejectsMissingHello(t *testing.T) {
	_, _, url := startServer(t)
	conn := dial(t, url)
	defer conn.Close()

	_ = conn.WriteJSON(protocol.PaintMsg{Type: protocol.TypePaint, ProtocolVersion: protocol.Version})
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err := conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.ClosePolicyViolation) {
		t.Fatalf("expected policy violation close, got %v", err)
	}
}

func TestServer_CountsInvalidFrames(t *testing.T) {
	_, srv, url := startServer(t)
	conn := dial(t, url)
	defer conn.Close()
	hello(t, conn, "bob")

	_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"PAINT","protocol_version":"0.1"}`))
	_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"TELEPORT","protocol_version":"1.0"}`))
	_ = conn.WriteMessage(websocket.TextMessage, []byte(`not json`))
	waitFor(t, "invalid frames", func() bool { return srv.InvalidFrames() == 3 })
}

func TestDecodeInput(t *testing.T) {
	in, ok := decodeInput([]byte(`{"type":"INTERACT","protocol_version":"1.0","ray_origin":[0,0,1],"ray_dir":[0,1,0],"interaction":"LET_GO"}`))
	if !ok || in.Interact == nil || in.Interact.Interaction != protocol.InteractLetGo {
		t.Fatalf("decode interact: ok=%v in=%+v", ok, in)
	}
	if _, ok := decodeInput([]byte(`{"type":"HELLO","protocol_version":"1.0"}`)); ok {
		t.Fatalf("HELLO mid-session must not decode as input")
	}
}
