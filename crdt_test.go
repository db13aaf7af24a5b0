package crdtsync

import "testing"

func TestNewCRDTUnsupportedType(t *testing.T) {
	if _, err := newCRDT(TypeVariable); err != ErrUnsupportedType {
		t.Fatalf("newCRDT(TypeVariable) err = %v, want ErrUnsupportedType", err)
	}
	if _, err := newCRDT(TypeMap); err != ErrUnsupportedType {
		t.Fatalf("newCRDT(TypeMap) err = %v, want ErrUnsupportedType", err)
	}
	if c, err := newCRDT(TypeCounter); err != nil || c == nil {
		t.Fatalf("newCRDT(TypeCounter) = %v, %v, want a Counter", c, err)
	}
}

func TestCounterApplyWrongOperationType(t *testing.T) {
	c := NewCounter()
	err := c.ApplyLocal(Operation{Body: struct{ OpBody }{}})
	if err != ErrWrongOperationType {
		t.Fatalf("ApplyLocal(bogus body) = %v, want ErrWrongOperationType", err)
	}
}

func TestCounterSnapshotRoundtrip(t *testing.T) {
	c := NewCounter()
	if err := c.ApplyLocal(Operation{Body: CounterIncrease{Delta: 9}}); err != nil {
		t.Fatal(err)
	}
	snap := c.Snapshot()
	other := NewCounter()
	if err := other.ApplyRemote(snap); err != nil {
		t.Fatal(err)
	}
	if other.Value() != int64(9) {
		t.Fatalf("Value() after snapshot apply = %v, want 9", other.Value())
	}
}

func TestCounterCloneIndependence(t *testing.T) {
	c := NewCounter()
	_ = c.ApplyLocal(Operation{Body: CounterIncrease{Delta: 5}})
	clone := c.Clone().(*CounterCRDT)
	_ = c.ApplyLocal(Operation{Body: CounterIncrease{Delta: 1}})
	if clone.Value() != int64(5) {
		t.Fatalf("clone.Value() = %v, want 5 (unaffected by later mutation)", clone.Value())
	}
	if c.Value() != int64(6) {
		t.Fatalf("c.Value() = %v, want 6", c.Value())
	}
}
