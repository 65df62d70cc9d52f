package protocol

// Reason codes for silently rejected requests. They never reach the client;
// the world counts them in metrics and tests assert on them.
const (
	ErrNoPermission = "E_NO_PERMISSION"
	ErrNoHit        = "E_NO_HIT"
	ErrNotHoldable  = "E_NOT_HOLDABLE"
	ErrConflict     = "E_CONFLICT"
	ErrNothingHeld  = "E_NOTHING_HELD"
	ErrBadRequest   = "E_BAD_REQUEST"
)

var knownCodes = map[string]struct{}{
	ErrNoPermission: {},
	ErrNoHit:        {},
	ErrNotHoldable:  {},
	ErrConflict:     {},
	ErrNothingHeld:  {},
	ErrBadRequest:   {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}

// KnownCodes returns all reason codes in a stable order.
func KnownCodes() []string {
	return []string{
		ErrNoPermission,
		ErrNoHit,
		ErrNotHoldable,
		ErrConflict,
		ErrNothingHeld,
		ErrBadRequest,
	}
}
