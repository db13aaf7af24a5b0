package crdtsync

// transactionOverhead approximates Transaction's fixed framing cost for
// PushBuffer memory accounting (spec §3).
const transactionOverhead = 48

// Transaction is a committed, ordered group of Operations authored in one
// client round (spec §3). Cseq is assigned when the transaction opens;
// Sseq is assigned by the server upon commit (zero until then).
type Transaction struct {
	Cuid  Cuid
	Cseq  uint64
	Sseq  uint64
	Tag   string
	Event bool
	Ops   []Operation
}

// Size is the memory cost used by PushBuffer's bound (spec §3: "fixed
// overhead + tag length + sum of op sizes").
func (tx Transaction) Size() int {
	size := transactionOverhead + len(tx.Tag)
	for _, op := range tx.Ops {
		size += op.Size()
	}
	return size
}

// Clone returns a deep-enough copy for handing a Transaction across the
// push/pull boundary without aliasing the Ops slice.
func (tx Transaction) Clone() Transaction {
	out := tx
	out.Ops = append([]Operation(nil), tx.Ops...)
	return out
}
