package crdtsync

import (
	"errors"
	"sync"
)

// MutableDatatype owns a CRDT's state, op-id counters, the currently open
// transaction (if any), a rollback shadow, its PushBuffer, and its
// checkpoint (spec §3). It is exclusively owned by one WiredDatatype and
// accessed under a single per-datatype write lock (spec §5).
type MutableDatatype struct {
	mu sync.Mutex

	attr  *Attribute
	state State

	crdt  CRDT
	opID  opIDState

	openTx *Transaction

	shadow *rollbackShadow
	buf    *PushBuffer
	cp     CheckPoint

	blocked bool // set when a commit hit ExceedMaxMemSize; cleared on drain
}

// NewMutableDatatype constructs a fresh datatype at the given initial
// state with an empty CRDT of attr.Type.
func NewMutableDatatype(attr *Attribute, initial State, maxBufMem uint64) (*MutableDatatype, error) {
	c, err := newCRDT(attr.Type)
	if err != nil {
		return nil, err
	}
	d := &MutableDatatype{
		attr:  attr,
		state: initial,
		crdt:  c,
		buf:   NewPushBuffer(maxBufMem),
	}
	d.shadow = newRollbackShadow(d.crdt, d.opID, d.state)
	return d, nil
}

// Attribute returns the datatype's identity block.
func (d *MutableDatatype) Attribute() *Attribute {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.attr
}

// State returns the current lifecycle state.
func (d *MutableDatatype) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Checkpoint returns the current (sseq, cseq) high-water mark.
func (d *MutableDatatype) Checkpoint() CheckPoint {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cp
}

// opIDCseq returns the most recently assigned local cseq (spec §6's
// client_version accessor).
func (d *MutableDatatype) opIDCseq() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.opID.Cseq
}

// CRDTValue returns a locally-consistent snapshot of the CRDT's value
// (spec §4.2's get_value path).
func (d *MutableDatatype) CRDTValue() any {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.crdt.Value()
}

// Writable reports state-writable AND NOT readonly (spec §3/§4.2).
func (d *MutableDatatype) Writable() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state.Writable() && !d.attr.IsReadonly
}

// ExecuteLocalOperation implements spec §4.3's contract: open a
// transaction if needed, stamp the op's lamport, apply it to the CRDT,
// and on success append it to the open transaction. CRDT rejection rolls
// back just the id bumps and surfaces FailedToExecuteOperation.
func (d *MutableDatatype) ExecuteLocalOperation(body OpBody) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.blocked {
		return &ClientPushPullError{Kind: ExceedMaxMemSize, Reason: "push buffer full; drain pending before new commits"}
	}
	if !d.state.Writable() || d.attr.IsReadonly {
		return &DatatypeError{Kind: FailedToWrite}
	}

	openedHere := d.openTx == nil
	if openedHere {
		cseq := d.opID.nextCseq()
		d.openTx = &Transaction{Cuid: d.attr.clientCommon.Cuid, Cseq: cseq, Sseq: 0}
	}

	lamport := d.opID.nextLamport()
	op := Operation{Lamport: lamport, Body: body}

	if err := d.crdt.ApplyLocal(op); err != nil {
		d.opID.prevLamport()
		if openedHere {
			d.opID.prevCseq()
			d.openTx = nil
		}
		return &DatatypeError{Kind: FailedToExecuteOperation, Cause: err}
	}

	d.openTx.Ops = append(d.openTx.Ops, op)
	return nil
}

// EndTransaction implements spec §4.3: commit moves the open transaction
// into the PushBuffer (local origin only); abort performs do_rollback.
func (d *MutableDatatype) EndTransaction(tag string, committed bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.openTx == nil {
		return ErrNoOpenTransaction
	}
	tx := *d.openTx
	d.openTx = nil

	if !committed {
		d.doRollbackLocked()
		return nil
	}

	tx.Tag = tag
	if err := d.buf.Enqueue(tx); err != nil {
		var ppe *ClientPushPullError
		if errors.As(err, &ppe) && ppe.Kind == ExceedMaxMemSize {
			d.blocked = true
		}
		// the commit already happened against the CRDT; only the buffer
		// enqueue failed, so the shadow still advances below. The caller
		// learns about backpressure via the returned error.
		d.shadow.update(d.crdt, d.opID, d.state)
		return err
	}

	d.shadow.update(d.crdt, d.opID, d.state)
	return nil
}

// doRollbackLocked restores state/crdt/opID from the shadow (spec §4.3's
// do_rollback). The shadow is already advanced to reflect every committed
// transaction (EndTransaction updates it on each commit), so restoring
// from it alone undoes exactly the open transaction's uncommitted
// ApplyLocal calls without re-applying history still sitting in the
// PushBuffer. Caller must hold d.mu.
func (d *MutableDatatype) doRollbackLocked() {
	d.crdt = d.shadow.crdt.Clone()
	d.opID = d.shadow.opID
	d.state = d.shadow.state
}

// applyRemoteLocked replays op against the CRDT as a remote-origin
// operation (spec §4.6 step 3). Caller must hold d.mu.
func (d *MutableDatatype) applyRemoteLocked(op Operation) error {
	return d.crdt.ApplyRemote(op)
}

// setStateLocked commits a lifecycle transition (spec §4.6 step 5).
// Caller must hold d.mu.
func (d *MutableDatatype) setStateLocked(s State) {
	d.state = s
}

// dequeueUpTo drains committed transactions up to upto and clears the
// backpressure flag once the buffer is no longer over its bound. It
// acquires d.mu itself; callers must not already hold it.
func (d *MutableDatatype) dequeueUpTo(upto uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.buf.Dequeue(upto)
	if d.blocked && d.buf.MemSize() < int(d.buf.maxMemSize) {
		d.blocked = false
	}
}
