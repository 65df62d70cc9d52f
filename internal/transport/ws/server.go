package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"propworks.ai/internal/protocol"
	"propworks.ai/internal/sim/world"
)

const (
	handshakeTimeout = 5 * time.Second
	readTimeout      = 60 * time.Second
	writeTimeout     = 5 * time.Second

	defaultQueue = 8
	maxQueue     = 64
)

type Server struct {
	world *world.World
	log   *log.Logger

	upgrader websocket.Upgrader

	sessions atomic.Int64
	dropped  atomic.Uint64
	invalid  atomic.Uint64
}

func NewServer(w *world.World, logger *log.Logger) *Server {
	return &Server{
		world: w,
		log:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

// Sessions is the number of connected clients past the handshake.
func (s *Server) Sessions() int64 { return s.sessions.Load() }

// DroppedInputs counts inputs lost to a full world inbox.
func (s *Server) DroppedInputs() uint64 { return s.dropped.Load() }

// InvalidFrames counts frames that failed to decode or carried a bad version.
func (s *Server) InvalidFrames() uint64 { return s.invalid.Load() }

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		playerID, out := s.handshake(conn)
		if playerID == "" {
			return
		}
		s.sessions.Add(1)
		defer s.sessions.Add(-1)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()
		go s.writeLoop(ctx, cancel, conn, out)

		for {
			_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			in, ok := decodeInput(msg)
			if !ok {
				s.invalid.Add(1)
				continue
			}
			if !s.world.Submit(world.InputEnvelope{PlayerID: playerID, Input: in}) {
				s.dropped.Add(1)
			}
		}
		cancel()

		// Releases anything the player held.
		s.world.Leave() <- playerID
		if s.log != nil {
			s.log.Printf("session %s closed", playerID)
		}
	}
}

func (s *Server) writeLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, out <-chan []byte) {
	for {
		select {
		case <-ctx.Done():
			return
		case b, ok := <-out:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
				cancel()
				_ = conn.Close()
				return
			}
		}
	}
}

// decodeInput maps one client frame to a world input. Content checks beyond
// shape (finite values, known interaction) happen in the world so that
// rejections are counted by reason.
func decodeInput(msg []byte) (world.Input, bool) {
	base, err := protocol.DecodeBase(msg)
	if err != nil || base.ProtocolVersion != protocol.Version {
		return world.Input{}, false
	}
	in := world.Input{Type: base.Type}
	switch base.Type {
	case protocol.TypeInteract:
		var m protocol.InteractMsg
		if err := json.Unmarshal(msg, &m); err != nil {
			return world.Input{}, false
		}
		in.Interact = &m
	case protocol.TypePaint:
		var m protocol.PaintMsg
		if err := json.Unmarshal(msg, &m); err != nil {
			return world.Input{}, false
		}
		in.Paint = &m
	case protocol.TypePose:
		var m protocol.PoseMsg
		if err := json.Unmarshal(msg, &m); err != nil {
			return world.Input{}, false
		}
		in.Pose = &m
	default:
		return world.Input{}, false
	}
	return in, true
}

func (s *Server) handshake(conn *websocket.Conn) (playerID string, out chan []byte) {
	_ = conn.SetReadDeadline(time.Now().Add(handshakeTimeout))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return "", nil
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		closeWith(conn, "expected HELLO")
		return "", nil
	}
	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		closeWith(conn, "bad HELLO")
		return "", nil
	}
	if hello.ProtocolVersion != protocol.Version {
		closeWith(conn, "bad protocol_version")
		return "", nil
	}

	q := hello.Capabilities.MaxQueue
	if q <= 0 {
		q = defaultQueue
	}
	if q > maxQueue {
		q = maxQueue
	}
	out = make(chan []byte, q)

	respCh := make(chan world.JoinResponse, 1)
	s.world.Join() <- world.JoinRequest{Name: hello.PlayerName, Out: out, Resp: respCh}
	resp := <-respCh

	if err := writeJSON(conn, resp.Welcome); err != nil {
		s.world.Leave() <- resp.Welcome.PlayerID
		return "", nil
	}
	return resp.Welcome.PlayerID, out
}

func closeWith(conn *websocket.Conn, reason string) {
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason),
		time.Now().Add(time.Second))
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteMessage(websocket.TextMessage, b)
}
