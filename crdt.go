package crdtsync

// CRDT is the capability set every datatype kind implements (spec §9:
// "model the CRDT as a tagged variant with a capability set"). CounterCRDT is
// the only built implementation; Variable (last-writer-wins register) and
// Map (per-key LWW) are named extension points (SPEC_FULL §6) that would
// plug in here alongside CounterCRDT without changing MutableDatatype.
type CRDT interface {
	// ApplyLocal applies an operation this client authored. It returns
	// ErrWrongOperationType if op.Body doesn't match the CRDT's kind.
	ApplyLocal(op Operation) error
	// ApplyRemote applies an operation replayed from a pulled transaction.
	ApplyRemote(op Operation) error
	// Snapshot captures the current value as an Operation, for
	// WiredDatatype.GetSubscribeSnapshot.
	Snapshot() Operation
	// Value returns the current materialization, for the user-facing
	// get_value path.
	Value() any
	// Clone returns an independent copy, used by the rollback shadow.
	Clone() CRDT
}

// CounterCRDT is the sole built CRDT: a commuting int64 accumulator. The
// user-facing handle over it is Counter (counter.go).
type CounterCRDT struct {
	value int64
}

// NewCounter returns a zero-valued CounterCRDT.
func NewCounter() *CounterCRDT { return &CounterCRDT{} }

func (c *CounterCRDT) ApplyLocal(op Operation) error  { return c.apply(op) }
func (c *CounterCRDT) ApplyRemote(op Operation) error { return c.apply(op) }

func (c *CounterCRDT) apply(op Operation) error {
	if isNoopBody(op.Body) {
		return nil
	}
	switch b := op.Body.(type) {
	case CounterIncrease:
		c.value += b.Delta // overflow is not a semantic error at this layer (spec §4.3)
		return nil
	case CounterSnapshot:
		c.value = b.Value
		return nil
	default:
		return ErrWrongOperationType
	}
}

func (c *CounterCRDT) Snapshot() Operation {
	return Operation{Body: CounterSnapshot{Value: c.value}}
}

func (c *CounterCRDT) Value() any { return c.value }

func (c *CounterCRDT) Clone() CRDT {
	return &CounterCRDT{value: c.value}
}

// newCRDT constructs the CRDT implementation for a DatatypeType. Only
// TypeCounter is built; anything else is ErrUnsupportedType (SPEC_FULL §6).
func newCRDT(t DatatypeType) (CRDT, error) {
	switch t {
	case TypeCounter:
		return NewCounter(), nil
	default:
		return nil, ErrUnsupportedType
	}
}
