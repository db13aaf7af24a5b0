package crdtsync

// State is a datatype's lifecycle state (spec §3).
type State int

const (
	DueToCreate State = iota
	DueToSubscribe
	DueToSubscribeOrCreate
	Subscribed
	DueToUnsubscribe
	DueToDelete
	Disabled
)

func (s State) String() string {
	switch s {
	case DueToCreate:
		return "DueToCreate"
	case DueToSubscribe:
		return "DueToSubscribe"
	case DueToSubscribeOrCreate:
		return "DueToSubscribeOrCreate"
	case Subscribed:
		return "Subscribed"
	case DueToUnsubscribe:
		return "DueToUnsubscribe"
	case DueToDelete:
		return "DueToDelete"
	case Disabled:
		return "Disabled"
	default:
		return "Unknown"
	}
}

// Writable reports whether ops may originate locally while a datatype is
// in state s. Per spec §3, writable states are {DueToCreate,
// DueToSubscribeOrCreate, Subscribed}; readonly is checked separately by
// the caller (state-writable AND NOT is_readonly).
func (s State) Writable() bool {
	switch s {
	case DueToCreate, DueToSubscribeOrCreate, Subscribed:
		return true
	default:
		return false
	}
}

// DatatypeType enumerates the CRDT kinds a client can build. Variable and
// Map are named extension points (spec §1, SPEC_FULL §6): the wire shape
// and Attribute carry them, but only TypeCounter has a built CRDT.
type DatatypeType int

const (
	TypeCounter DatatypeType = iota
	TypeVariable
	TypeMap
)

func (t DatatypeType) String() string {
	switch t {
	case TypeCounter:
		return "Counter"
	case TypeVariable:
		return "Variable"
	case TypeMap:
		return "Map"
	default:
		return "Unknown"
	}
}
