package protocol_test

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"propworks.ai/internal/protocol"
)

func compileSchema(t *testing.T, name string) *jsonschema.Schema {
	t.Helper()
	p := filepath.Join("..", "..", "schemas", name)
	s, err := jsonschema.Compile(p)
	if err != nil {
		t.Fatalf("compile %s: %v", name, err)
	}
	return s
}

func validateJSON(t *testing.T, s *jsonschema.Schema, raw []byte) {
	t.Helper()
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	if err := s.Validate(v); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestSchemas_ValidateSamples(t *testing.T) {
	validateJSON(t, compileSchema(t, "hello.schema.json"), []byte(`{
	  "type":"HELLO",
	  "protocol_version":"1.0",
	  "player_name":"bot1",
	  "capabilities":{"max_queue":8}
	}`))
	validateJSON(t, compileSchema(t, "interact.schema.json"), []byte(`{
	  "type":"INTERACT",
	  "protocol_version":"1.0",
	  "ray_origin":[0,0,1.6],
	  "ray_dir":[0,1,0],
	  "interaction":"PICKUP"
	}`))
	validateJSON(t, compileSchema(t, "paint.schema.json"), []byte(`{
	  "type":"PAINT",
	  "protocol_version":"1.0",
	  "ray_origin":[0,0,1.6],
	  "ray_dir":[0,0.5,-0.5]
	}`))
	validateJSON(t, compileSchema(t, "pose.schema.json"), []byte(`{
	  "type":"POSE",
	  "protocol_version":"1.0",
	  "position":[1,2,0],
	  "rotation":[0,0,0,1],
	  "head_rotation":[0,0,0,1]
	}`))
}

func TestSchemas_ValidateEncodedMessages(t *testing.T) {
	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		PlayerID:        "P1",
		WorldParams: protocol.WorldParams{
			TickRateHz:          200,
			BroadcastEveryTicks: 10,
			FloorHalfExtent:     10,
			KillZ:               -5,
			Seed:                1337,
		},
	}
	b, err := json.Marshal(welcome)
	if err != nil {
		t.Fatalf("marshal welcome: %v", err)
	}
	validateJSON(t, compileSchema(t, "welcome.schema.json"), b)

	green := [4]float64{0, 1, 0, 1}
	anchor := [3]float64{0, 2, 1.6}
	state := protocol.StateMsg{
		Type:            protocol.TypeState,
		ProtocolVersion: protocol.Version,
		Tick:            42,
		PlayerID:        "P1",
		Score:           3,
		Objects: []protocol.ObjectState{
			{ID: "O000001", Kind: "CUBE", Pos: [3]float64{0, 2, 1.5}, Color: &green, HeldBy: "P1", Anchor: &anchor},
			{ID: "O000002", Kind: "SPHERE", Pos: [3]float64{10, 0, 4}},
		},
		Players: []protocol.PlayerState{{ID: "P1", Name: "bot", Pos: [3]float64{0, 0, 0}, Holding: "O000001"}},
	}
	b, err = json.Marshal(state)
	if err != nil {
		t.Fatalf("marshal state: %v", err)
	}
	validateJSON(t, compileSchema(t, "state.schema.json"), b)

	interact := protocol.InteractMsg{
		Type:            protocol.TypeInteract,
		ProtocolVersion: protocol.Version,
		RayOrigin:       [3]float64{0, 0, 1.6},
		RayDir:          [3]float64{0, 1, 0},
		Interaction:     protocol.InteractLetGo,
	}
	b, err = json.Marshal(interact)
	if err != nil {
		t.Fatalf("marshal interact: %v", err)
	}
	validateJSON(t, compileSchema(t, "interact.schema.json"), b)
}

func TestSchemas_RejectUnknownInteraction(t *testing.T) {
	s := compileSchema(t, "interact.schema.json")
	var v any
	_ = json.Unmarshal([]byte(`{
	  "type":"INTERACT",
	  "protocol_version":"1.0",
	  "ray_origin":[0,0,0],
	  "ray_dir":[0,1,0],
	  "interaction":"THROW"
	}`), &v)
	if err := s.Validate(v); err == nil {
		t.Fatalf("expected THROW to be rejected")
	}
}
