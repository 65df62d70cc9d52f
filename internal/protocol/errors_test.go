package protocol

import (
	"math"
	"testing"
)

func TestIsKnownCode(t *testing.T) {
	cases := append([]string{""}, KnownCodes()...)
	for _, c := range cases {
		if !IsKnownCode(c) {
			t.Fatalf("expected known code: %q", c)
		}
	}
	if IsKnownCode("E_NOT_DEFINED") {
		t.Fatalf("expected unknown code rejected")
	}
	if len(KnownCodes()) != len(knownCodes) {
		t.Fatalf("KnownCodes out of sync: list=%d map=%d", len(KnownCodes()), len(knownCodes))
	}
}

func TestValidRay(t *testing.T) {
	if !ValidRay([3]float64{0, 0, 1}, [3]float64{0, 1, 0}) {
		t.Fatalf("expected valid ray")
	}
	if ValidRay([3]float64{0, 0, 1}, [3]float64{0, 0, 0}) {
		t.Fatalf("zero direction should be rejected")
	}
	nan := [3]float64{0, 0, 0}
	nan[1] = math.NaN()
	if ValidRay(nan, [3]float64{1, 0, 0}) {
		t.Fatalf("NaN origin should be rejected")
	}
}

func TestInteractionValid(t *testing.T) {
	if !InteractPickup.Valid() || !InteractLetGo.Valid() {
		t.Fatalf("expected PICKUP and LET_GO valid")
	}
	if Interaction("DROP").Valid() {
		t.Fatalf("unexpected valid interaction DROP")
	}
}

func TestKnownCodesListsEveryRejection(t *testing.T) {
	want := []string{ErrNoPermission, ErrNoHit, ErrNotHoldable, ErrConflict, ErrNothingHeld, ErrBadRequest}
	got := KnownCodes()
	if len(got) != len(want) {
		t.Fatalf("codes=%v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("codes[%d]=%q want %q", i, got[i], want[i])
		}
	}
	if IsKnownCode("E_INTERNAL") || IsKnownCode("E_PROTO_BAD_REQUEST") {
		t.Fatalf("unused codes should not be known")
	}
}
