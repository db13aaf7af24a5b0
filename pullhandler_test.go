package crdtsync

import (
	"errors"
	"testing"
)

func TestNextState(t *testing.T) {
	tests := []struct {
		old, pulled, want State
	}{
		{DueToCreate, DueToCreate, Subscribed},
		{DueToSubscribe, DueToSubscribe, Subscribed},
		{DueToSubscribeOrCreate, DueToCreate, Subscribed},
		{DueToSubscribeOrCreate, DueToSubscribe, Subscribed},
		{Subscribed, Subscribed, Subscribed},
		{DueToCreate, DueToSubscribe, DueToCreate}, // reserved pair: unchanged
		{Disabled, Subscribed, Disabled},           // reserved: unchanged
	}
	for _, tt := range tests {
		got, _ := nextState(tt.old, tt.pulled)
		if got != tt.want {
			t.Errorf("nextState(%v, %v) = %v, want %v", tt.old, tt.pulled, got, tt.want)
		}
	}
}

func TestApplyPullCreateTransitionsToSubscribed(t *testing.T) {
	attr := newTestAttribute(false)
	d, err := NewMutableDatatype(attr, DueToCreate, defaultPushBufferMemSize)
	if err != nil {
		t.Fatal(err)
	}
	serverDuid := NewDuid()
	pulled := &PushPullPack{
		Duid:       serverDuid,
		State:      DueToCreate,
		Checkpoint: CheckPoint{Sseq: 1, Cseq: 0},
	}
	if err := ApplyPull(d, pulled); err != nil {
		t.Fatalf("ApplyPull: %v", err)
	}
	if d.State() != Subscribed {
		t.Fatalf("state = %v, want Subscribed", d.State())
	}
	if d.attr.Duid != serverDuid {
		t.Fatalf("duid not adopted from server: got %v want %v", d.attr.Duid, serverDuid)
	}
	if d.Checkpoint().Sseq != 1 {
		t.Fatalf("checkpoint.sseq = %d, want 1", d.Checkpoint().Sseq)
	}
}

func TestApplyPullReplaysRemoteTransactions(t *testing.T) {
	attr := newTestAttribute(false)
	d, err := NewMutableDatatype(attr, Subscribed, defaultPushBufferMemSize)
	if err != nil {
		t.Fatal(err)
	}

	remoteCuid := NewCuid()
	pulled := &PushPullPack{
		State: Subscribed,
		Transactions: []Transaction{
			{Cuid: remoteCuid, Sseq: 1, Ops: []Operation{{Body: CounterIncrease{Delta: 10}}}},
			{Cuid: remoteCuid, Sseq: 2, Ops: []Operation{{Body: CounterIncrease{Delta: 5}}}},
		},
		Checkpoint: CheckPoint{Sseq: 2, Cseq: 0},
	}
	if err := ApplyPull(d, pulled); err != nil {
		t.Fatalf("ApplyPull: %v", err)
	}
	if got := d.CRDTValue().(int64); got != 15 {
		t.Fatalf("value after replay = %d, want 15", got)
	}
	if d.Checkpoint().Sseq != 2 {
		t.Fatalf("checkpoint.sseq = %d, want 2", d.Checkpoint().Sseq)
	}
}

func TestApplyPullSkipsAlreadyAppliedBySseq(t *testing.T) {
	attr := newTestAttribute(false)
	d, err := NewMutableDatatype(attr, Subscribed, defaultPushBufferMemSize)
	if err != nil {
		t.Fatal(err)
	}
	d.cp.Sseq = 5 // already caught up through sseq 5

	remoteCuid := NewCuid()
	pulled := &PushPullPack{
		State: Subscribed,
		Transactions: []Transaction{
			{Cuid: remoteCuid, Sseq: 3, Ops: []Operation{{Body: CounterIncrease{Delta: 999}}}}, // stale
			{Cuid: remoteCuid, Sseq: 6, Ops: []Operation{{Body: CounterIncrease{Delta: 1}}}},   // fresh
		},
		Checkpoint: CheckPoint{Sseq: 6, Cseq: 0},
	}
	if err := ApplyPull(d, pulled); err != nil {
		t.Fatalf("ApplyPull: %v", err)
	}
	if got := d.CRDTValue().(int64); got != 1 {
		t.Fatalf("value = %d, want 1 (stale sseq=3 tx must be skipped)", got)
	}
}

func TestApplyPullIllegalPushRequestAborts(t *testing.T) {
	attr := newTestAttribute(false)
	d, err := NewMutableDatatype(attr, DueToSubscribe, defaultPushBufferMemSize)
	if err != nil {
		t.Fatal(err)
	}
	pulled := &PushPullPack{
		Error: &ServerPushPullError{Kind: IllegalPushRequest, Reason: "cannot push transactions when subscribing"},
	}
	err = ApplyPull(d, pulled)
	var ppe *ClientPushPullError
	if !errors.As(err, &ppe) || ppe.Kind != FailedAndAbort {
		t.Fatalf("expected FailedAndAbort, got %v", err)
	}
	if d.State() != DueToSubscribe {
		t.Fatalf("state changed on abort: %v", d.State())
	}
}

func TestApplyPullIgnoresOwnLocalTransactionsDuringReplay(t *testing.T) {
	attr := newTestAttribute(false)
	d, err := NewMutableDatatype(attr, Subscribed, defaultPushBufferMemSize)
	if err != nil {
		t.Fatal(err)
	}
	if err := d.ExecuteLocalOperation(CounterIncrease{Delta: 1}); err != nil {
		t.Fatal(err)
	}
	if err := d.EndTransaction("", true); err != nil {
		t.Fatal(err)
	}

	// Server echoes back the client's own transaction with Cuid set; it
	// must not be double-applied.
	own := Transaction{Cuid: attr.clientCommon.Cuid, Cseq: 1, Sseq: 1, Ops: []Operation{{Body: CounterIncrease{Delta: 1}}}}
	pulled := &PushPullPack{
		State:        Subscribed,
		Transactions: []Transaction{own},
		Checkpoint:   CheckPoint{Sseq: 1, Cseq: 1},
	}
	if err := ApplyPull(d, pulled); err != nil {
		t.Fatalf("ApplyPull: %v", err)
	}
	if got := d.CRDTValue().(int64); got != 1 {
		t.Fatalf("value = %d, want 1 (own echoed tx must not double-apply)", got)
	}
}
