package crdtsync

import "testing"

func TestOperationSize(t *testing.T) {
	op := Operation{Lamport: 1, Body: CounterIncrease{Delta: 5}}
	want := operationOverhead + 8
	if got := op.Size(); got != want {
		t.Errorf("Size() = %d, want %d", got, want)
	}
}

func TestOperationSizeNilBody(t *testing.T) {
	op := Operation{Lamport: 1}
	if got := op.Size(); got != operationOverhead {
		t.Errorf("Size() = %d, want %d", got, operationOverhead)
	}
}

func TestCounterIncreaseKind(t *testing.T) {
	if (CounterIncrease{}).Kind() != "CounterIncrease" {
		t.Fatal("wrong kind")
	}
	if (CounterSnapshot{}).Kind() != "CounterSnapshot" {
		t.Fatal("wrong kind")
	}
}
