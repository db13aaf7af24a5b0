package crdtsync

import "testing"

func TestTransactionSize(t *testing.T) {
	tx := Transaction{
		Tag: "abc",
		Ops: []Operation{
			{Body: CounterIncrease{Delta: 1}},
			{Body: CounterIncrease{Delta: 2}},
		},
	}
	want := transactionOverhead + len("abc") + 2*(operationOverhead+8)
	if got := tx.Size(); got != want {
		t.Errorf("Size() = %d, want %d", got, want)
	}
}

func TestTransactionCloneIndependentOps(t *testing.T) {
	tx := Transaction{Ops: []Operation{{Body: CounterIncrease{Delta: 1}}}}
	clone := tx.Clone()
	clone.Ops[0] = Operation{Body: CounterIncrease{Delta: 99}}

	if tx.Ops[0].Body.(CounterIncrease).Delta != 1 {
		t.Fatal("Clone aliased the original Ops slice")
	}
}
