package crdtsync

import (
	"context"
	"errors"
)

// DefaultMaxTransmissionSize bounds the bytes of outbound transactions in
// one push pack (spec §6).
const DefaultMaxTransmissionSize = 4 << 20 // 4 MB

// WiredDatatype builds push packs, invokes Connectivity, and applies pull
// results via PullHandler (spec §4.5). It holds the exclusive reference
// to its MutableDatatype.
type WiredDatatype struct {
	d            *MutableDatatype
	connectivity Connectivity
	sched        *Scheduler
}

// NewWiredDatatype pairs a MutableDatatype with the Connectivity capability
// that serves it. sched, if non-nil, bounds how many of this (and every
// other) WiredDatatype's push_pull exchanges run concurrently (spec §5);
// a nil sched runs the exchange ungated, which is fine for a single
// datatype under test.
func NewWiredDatatype(d *MutableDatatype, connectivity Connectivity, sched *Scheduler) *WiredDatatype {
	return &WiredDatatype{d: d, connectivity: connectivity, sched: sched}
}

// Datatype returns the underlying MutableDatatype.
func (w *WiredDatatype) Datatype() *MutableDatatype { return w.d }

// NeedPush reports whether a push/pull round would do useful work (spec
// §4.5): either the datatype hasn't converged past its initial lifecycle
// state, or there are committed local transactions the server hasn't
// acknowledged yet.
func (w *WiredDatatype) NeedPush() bool {
	w.d.mu.Lock()
	defer w.d.mu.Unlock()
	switch w.d.state {
	case DueToCreate, DueToSubscribe, DueToSubscribeOrCreate:
		return true
	}
	return w.d.buf.LastCseq() > w.d.cp.Cseq
}

// PushIfNeeded short-circuits when there is no useful work (NeedPush is
// false) and otherwise calls PushPull. It runs at the top of every
// EventLoop iteration regardless of realtime mode, which is how an
// initial DueToCreate/DueToSubscribe state converges without an explicit
// sync() (spec §4.7). Realtime mode instead gates whether a *write*
// best-effort posts an event at all (spec §2) — it is not a second gate
// on this method. See DESIGN.md for this resolved ambiguity.
func (w *WiredDatatype) PushIfNeeded(ctx context.Context) error {
	if !w.NeedPush() {
		return nil
	}
	return w.PushPull(ctx)
}

// buildPushPack snapshots the datatype under its write lock (spec §4.5
// step 1).
func (w *WiredDatatype) buildPushPack() *PushPullPack {
	w.d.mu.Lock()
	defer w.d.mu.Unlock()

	txs, _, err := w.d.buf.GetAfter(w.d.cp.Cseq+1, DefaultMaxTransmissionSize)
	if err != nil {
		txs = nil
	}

	cp := w.d.cp
	if len(txs) > 0 {
		cp.Cseq = txs[len(txs)-1].Cseq
	}

	return &PushPullPack{
		Collection:   w.d.attr.clientCommon.Collection,
		Cuid:         w.d.attr.clientCommon.Cuid,
		Duid:         w.d.attr.Duid,
		Key:          w.d.attr.Key,
		Type:         w.d.attr.Type,
		State:        w.d.state,
		Checkpoint:   cp,
		Transactions: txs,
		IsReadonly:   w.d.attr.IsReadonly,
	}
}

// PushPull implements spec §4.5: build a pack, exchange it through
// Connectivity under the scheduler's capacity gate, and hand the result
// to PullHandler. Only this exchange occupies a scheduler slot, and only
// for the round-trip's duration — not the caller's lifetime. A
// FailedAndAbort from PullHandler moves the datatype to Disabled, and a
// Disabled datatype's later rounds are refused with FailedAndAbort.
func (w *WiredDatatype) PushPull(ctx context.Context) error {
	if w.d.State() == Disabled {
		return &ClientPushPullError{Kind: FailedAndAbort, Reason: "datatype is disabled"}
	}
	push := w.buildPushPack()

	var pulled *PushPullPack
	exchange := func(ctx context.Context) error {
		p, err := w.connectivity.PushAndPull(ctx, push)
		if err != nil {
			return &ClientPushPullError{Kind: FailedInConnectivity, Cause: err}
		}
		pulled = p
		return nil
	}

	var err error
	if w.sched != nil {
		err = w.sched.RunExclusive(ctx, exchange)
	} else {
		err = exchange(ctx)
	}
	if err != nil {
		return err
	}

	if err := ApplyPull(w.d, pulled); err != nil {
		var ppe *ClientPushPullError
		if errors.As(err, &ppe) && ppe.Kind == FailedAndAbort {
			w.d.mu.Lock()
			w.d.setStateLocked(Disabled)
			w.d.mu.Unlock()
		}
		return err
	}

	// a successful round lets the buffer drop everything the server has
	// now acknowledged.
	w.d.dequeueUpTo(pulled.Checkpoint.Cseq)
	return nil
}

// GetSubscribeSnapshot returns a synthetic Transaction carrying the CRDT's
// current value, for serving a subscriber (spec §4.5).
func (w *WiredDatatype) GetSubscribeSnapshot(serverSseq uint64) Transaction {
	w.d.mu.Lock()
	defer w.d.mu.Unlock()
	op := w.d.crdt.Snapshot()
	return Transaction{
		Sseq: serverSseq,
		Tag:  "snapshot",
		Ops:  []Operation{op},
	}
}
