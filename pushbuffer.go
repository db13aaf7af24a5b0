package crdtsync

import "sync"

const (
	minPushBufferMemSize     = 1 << 20         // 1 MB
	maxPushBufferMemSize     = 1 << 30         // 1 GB
	defaultPushBufferMemSize = 100 * (1 << 20) // 100 MB
)

// ClampPushBufferMemSize clamps a requested bound into [1 MB, 1 GB],
// per spec §3/§6.
func ClampPushBufferMemSize(n uint64) uint64 {
	switch {
	case n < minPushBufferMemSize:
		return minPushBufferMemSize
	case n > maxPushBufferMemSize:
		return maxPushBufferMemSize
	default:
		return n
	}
}

// PushBuffer is a FIFO of committed local transactions, indexed by cseq,
// bounded by a memory cap (spec §4.4). Build one with NewPushBuffer: the
// zero value has a zero cap and rejects every Enqueue with ExceedMaxMemSize.
type PushBuffer struct {
	mu         sync.Mutex
	txs        []Transaction
	firstCseq  uint64
	lastCseq   uint64
	memSize    int
	maxMemSize uint64
}

// NewPushBuffer returns an empty PushBuffer bounded by maxMemSize (clamped
// to [1 MB, 1 GB]).
func NewPushBuffer(maxMemSize uint64) *PushBuffer {
	return &PushBuffer{maxMemSize: ClampPushBufferMemSize(maxMemSize)}
}

// FirstCseq, LastCseq, MemSize report the buffer's invariants (spec §3);
// all are zero when the buffer is empty.
func (b *PushBuffer) FirstCseq() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.firstCseq
}

func (b *PushBuffer) LastCseq() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastCseq
}

func (b *PushBuffer) MemSize() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.memSize
}

func (b *PushBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.txs)
}

// Enqueue appends tx, enforcing cseq contiguity and the memory bound
// (spec §4.4).
func (b *PushBuffer) Enqueue(tx Transaction) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.txs) > 0 && tx.Cseq != b.lastCseq+1 {
		return &ClientPushPullError{Kind: NonSequentialCseq}
	}
	size := tx.Size()
	if b.memSize+size > int(b.maxMemSize) {
		return &ClientPushPullError{Kind: ExceedMaxMemSize}
	}

	b.txs = append(b.txs, tx.Clone())
	if len(b.txs) == 1 {
		b.firstCseq = tx.Cseq
	}
	b.lastCseq = tx.Cseq
	b.memSize += size
	return nil
}

// GetAfter returns the longest contiguous suffix starting at cseq whose
// cumulative size does not exceed cap, plus its total size (spec §4.4).
func (b *PushBuffer) GetAfter(cseq uint64, cap int) ([]Transaction, int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if cseq == 0 || cseq < b.firstCseq {
		return nil, 0, &ClientPushPullError{Kind: FailToGetAfter}
	}
	if len(b.txs) == 0 || cseq > b.lastCseq {
		return nil, 0, nil
	}

	start := int(cseq - b.firstCseq)
	var out []Transaction
	total := 0
	for i := start; i < len(b.txs); i++ {
		size := b.txs[i].Size()
		if total+size > cap {
			break
		}
		out = append(out, b.txs[i].Clone())
		total += size
	}
	return out, total, nil
}

// Dequeue removes every transaction with cseq <= upto and returns them.
func (b *PushBuffer) Dequeue(upto uint64) []Transaction {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.txs) == 0 {
		return nil
	}
	cut := 0
	for cut < len(b.txs) && b.txs[cut].Cseq <= upto {
		cut++
	}
	removed := append([]Transaction(nil), b.txs[:cut]...)
	for _, tx := range removed {
		b.memSize -= tx.Size()
	}
	b.txs = b.txs[cut:]
	if len(b.txs) == 0 {
		b.firstCseq = 0
		b.lastCseq = 0
		b.memSize = 0
	} else {
		b.firstCseq = b.txs[0].Cseq
	}
	return removed
}
