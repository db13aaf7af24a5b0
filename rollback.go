package crdtsync

// opIDState is the counter state MutableDatatype owns: next_cseq and
// next_lamport, with one-step "prev" rollback for aborted id bumps
// (spec §3's OperationId description).
type opIDState struct {
	Cseq    uint64
	Lamport uint64
}

func (s *opIDState) nextCseq() uint64 {
	s.Cseq++
	s.Lamport++
	return s.Cseq
}

func (s *opIDState) nextLamport() uint64 {
	s.Lamport++
	return s.Lamport
}

func (s *opIDState) prevCseq() {
	if s.Cseq > 0 {
		s.Cseq--
	}
	if s.Lamport > 0 {
		s.Lamport--
	}
}

func (s *opIDState) prevLamport() {
	if s.Lamport > 0 {
		s.Lamport--
	}
}

// rollbackShadow is the state as of the last successful commit (spec
// §3): an independent CRDT clone plus the op-id and Attribute.State at
// that point, used to undo an aborted transaction.
type rollbackShadow struct {
	crdt  CRDT
	opID  opIDState
	state State
}

func newRollbackShadow(c CRDT, id opIDState, state State) *rollbackShadow {
	return &rollbackShadow{crdt: c.Clone(), opID: id, state: state}
}

func (r *rollbackShadow) update(c CRDT, id opIDState, state State) {
	r.crdt = c.Clone()
	r.opID = id
	r.state = state
}
