package crdtsync

import "sort"

// ApplyPull is PullHandler's single entry point (spec §4.6): it decodes a
// pulled PushPullPack against d's current state, replays remote
// transactions, advances the checkpoint, and commits any lifecycle state
// change.
func ApplyPull(d *MutableDatatype, pulled *PushPullPack) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if pulled.Error != nil {
		switch pulled.Error.Kind {
		case IllegalPushRequest:
			return &ClientPushPullError{Kind: FailedAndAbort, Reason: pulled.Error.Reason}
		case FailedToCreate, FailedToSubscribe:
			// reserved for retry/backoff policy (spec §4.6); no state
			// change, surfaced as-is so a caller can decide to retry.
			return &ClientPushPullError{Kind: FailedInConnectivity, Cause: pulled.Error}
		}
	}

	newState, transition := nextState(d.state, pulled.State)
	_ = transition // named for readability; decision lives in nextState

	// Skip already-applied transactions (spec §4.6 step 2).
	firstLocalCseq := d.buf.FirstCseq()
	var remaining []Transaction
	for _, tx := range pulled.Transactions {
		if tx.Sseq != 0 && tx.Sseq <= d.cp.Sseq {
			continue
		}
		if tx.Cuid == d.attr.clientCommon.Cuid && firstLocalCseq > 0 && tx.Cseq <= firstLocalCseq-1 {
			continue
		}
		remaining = append(remaining, tx)
	}

	// Ordering: increasing sseq (spec §4.6 step 3).
	sort.SliceStable(remaining, func(i, j int) bool { return remaining[i].Sseq < remaining[j].Sseq })

	for _, tx := range remaining {
		if tx.Cuid == d.attr.clientCommon.Cuid {
			continue // local-origin transactions are already reflected locally
		}
		for _, op := range tx.Ops {
			if err := d.applyRemoteLocked(op); err != nil {
				return &DatatypeError{Kind: FailedToExecuteOperation, Cause: err}
			}
		}
	}

	if pulled.Duid != NilDuid && d.attr.Duid != pulled.Duid {
		d.attr.Duid = pulled.Duid
	}

	d.cp.CheckWith(pulled.Checkpoint)

	if newState != d.state {
		d.setStateLocked(newState)
	}

	d.shadow.update(d.crdt, d.opID, d.state)
	return nil
}

// nextState computes the lifecycle transition per spec §4.6 step 1. The
// bool return is only for documentation at the call site; reserved pairs
// (DueToUnsubscribe/DueToDelete and anything already Disabled) are left
// unreachable per spec §9(b) rather than invented.
func nextState(old, pulledState State) (State, bool) {
	switch {
	case old == DueToCreate && pulledState == DueToCreate:
		return Subscribed, true
	case old == DueToSubscribe && pulledState == DueToSubscribe:
		return Subscribed, true
	case old == DueToSubscribeOrCreate && (pulledState == DueToCreate || pulledState == DueToSubscribe):
		return Subscribed, true
	case old == Subscribed && pulledState == Subscribed:
		return Subscribed, false
	default:
		return old, false
	}
}
