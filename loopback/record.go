package loopback

import (
	"sync"

	crdtsync "github.com/go-mizu/crdtsync"
)

// record is the server-side state for one ResourceID (spec §4.8): type,
// key, the server-assigned duid, creation bookkeeping, the global sseq
// counter, a per-client checkpoint, the append-only history, and the
// live clients subscribed to it. Guarded by its own exclusive lock,
// matching the ancestor MemoryStore's per-key locking style.
type record struct {
	mu sync.Mutex

	typ     crdtsync.DatatypeType
	key     string
	duid    crdtsync.Duid
	created bool
	creator crdtsync.Cuid

	sseq         uint64
	cseqByClient map[crdtsync.Cuid]crdtsync.CheckPoint
	history      []crdtsync.Transaction
	clients      map[crdtsync.Cuid]*crdtsync.WiredDatatype
}

func newRecord(typ crdtsync.DatatypeType, key string) *record {
	return &record{
		typ:          typ,
		key:          key,
		duid:         crdtsync.NilDuid,
		cseqByClient: make(map[crdtsync.Cuid]crdtsync.CheckPoint),
		clients:      make(map[crdtsync.Cuid]*crdtsync.WiredDatatype),
	}
}

// pushTransactions appends every not-yet-seen transaction from pushed to
// history, stamping each with the server sseq and bumping the author's
// client checkpoint (spec §4.8's push_transactions). Returns the
// author's resulting cseq high-water mark.
func (r *record) pushTransactions(cuid crdtsync.Cuid, txs []crdtsync.Transaction) uint64 {
	cp := r.cseqByClient[cuid]
	for _, tx := range txs {
		if tx.Cseq <= cp.Cseq {
			continue
		}
		r.sseq++
		tx.Sseq = r.sseq
		r.history = append(r.history, tx)
		cp.Cseq = tx.Cseq
	}
	cp.Sseq = r.sseq
	r.cseqByClient[cuid] = cp
	return cp.Cseq
}

// processDueToCreate implements spec §4.8's process_due_to_create.
func (r *record) processDueToCreate(pushed *crdtsync.PushPullPack) *crdtsync.PushPullPack {
	if r.created && r.duid != pushed.Duid {
		return errorPull(pushed, crdtsync.FailedToCreate, "already exist")
	}
	if pushed.IsReadonly {
		return errorPull(pushed, crdtsync.FailedToCreate, "readonly client cannot create datatype")
	}

	r.created = true
	r.duid = pushed.Duid
	r.creator = pushed.Cuid
	cseq := r.pushTransactions(pushed.Cuid, pushed.Transactions)

	return &crdtsync.PushPullPack{
		Collection: pushed.Collection,
		Cuid:       pushed.Cuid,
		Duid:       r.duid,
		Key:        pushed.Key,
		Type:       r.typ,
		State:      crdtsync.DueToCreate,
		Checkpoint: crdtsync.CheckPoint{Sseq: r.sseq, Cseq: cseq},
	}
}

// processDueToSubscribe implements spec §4.8's process_due_to_subscribe.
func (r *record) processDueToSubscribe(pushed *crdtsync.PushPullPack, snapshot func() crdtsync.Transaction) *crdtsync.PushPullPack {
	if !r.created {
		return errorPull(pushed, crdtsync.FailedToSubscribe, pushed.Type.String()+" '"+pushed.Key+"' not exists")
	}
	if r.typ != pushed.Type {
		return errorPull(pushed, crdtsync.FailedToSubscribe, "mismatched types for '"+pushed.Key+"'")
	}
	if len(pushed.Transactions) > 0 {
		return &crdtsync.PushPullPack{
			Collection: pushed.Collection,
			Cuid:       pushed.Cuid,
			State:      pushed.State,
			Error:      &crdtsync.ServerPushPullError{Kind: crdtsync.IllegalPushRequest, Reason: "cannot push transactions when subscribing"},
		}
	}

	snap := snapshot()
	cp := r.cseqByClient[pushed.Cuid]
	cp.Sseq = r.sseq
	r.cseqByClient[pushed.Cuid] = cp

	return &crdtsync.PushPullPack{
		Collection:   pushed.Collection,
		Cuid:         pushed.Cuid,
		Duid:         r.duid,
		Key:          pushed.Key,
		Type:         r.typ,
		State:        crdtsync.DueToSubscribe,
		Checkpoint:   crdtsync.CheckPoint{Sseq: r.sseq, Cseq: cp.Cseq},
		Transactions: []crdtsync.Transaction{snap},
		HasSnapshot:  true,
	}
}

// processSubscribed handles a steady-state push from an already-subscribed
// client: apply any new transactions and report the history the client
// hasn't seen yet, ordered by sseq (spec §4.6 step 3 relies on the
// caller sorting; this returns history in append order, which is already
// sseq order).
func (r *record) processSubscribed(pushed *crdtsync.PushPullPack) *crdtsync.PushPullPack {
	cseq := r.pushTransactions(pushed.Cuid, pushed.Transactions)

	var toSend []crdtsync.Transaction
	for _, tx := range r.history {
		if tx.Sseq > pushed.Checkpoint.Sseq && tx.Cuid != pushed.Cuid {
			toSend = append(toSend, tx)
		}
	}

	return &crdtsync.PushPullPack{
		Collection:   pushed.Collection,
		Cuid:         pushed.Cuid,
		Duid:         r.duid,
		Key:          pushed.Key,
		Type:         r.typ,
		State:        crdtsync.Subscribed,
		Checkpoint:   crdtsync.CheckPoint{Sseq: r.sseq, Cseq: cseq},
		Transactions: toSend,
	}
}

func errorPull(pushed *crdtsync.PushPullPack, kind crdtsync.ServerPushPullErrorKind, reason string) *crdtsync.PushPullPack {
	return &crdtsync.PushPullPack{
		Collection: pushed.Collection,
		Cuid:       pushed.Cuid,
		State:      pushed.State,
		Error:      &crdtsync.ServerPushPullError{Kind: kind, Reason: reason},
	}
}
