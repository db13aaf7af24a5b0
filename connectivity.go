package crdtsync

import "context"

// EventSender lets a Connectivity implementation push guaranteed events
// back to a datatype's EventLoop (e.g. to wake it for a server-initiated
// pull) without holding a reference to the EventLoop itself (spec §9's
// weak/indexed reference discipline).
type EventSender interface {
	// Notify posts a guaranteed PushTransaction event; it never blocks
	// indefinitely (EventLoop's implementation appends to its unbounded
	// guaranteed queue).
	Notify()
}

// Connectivity is the narrow capability the replication core consumes
// (spec §1/§4.8): register a live datatype, exchange PushPullPacks
// synchronously, and report whether writes should best-effort push in
// realtime.
type Connectivity interface {
	Register(ctx context.Context, wired *WiredDatatype, sender EventSender) error
	PushAndPull(ctx context.Context, push *PushPullPack) (*PushPullPack, error)
	IsRealtime() bool
}

// noopConnectivity is the default passthrough Connectivity used when a
// Client is built without WithConnectivity (spec §4.1). PushAndPull echoes
// the pushed pack back without its transactions, so PullHandler moves a
// DueToCreate or DueToSubscribe datatype to Subscribed (a
// DueToSubscribeOrCreate one keeps its state) and treats every pushed
// transaction as acknowledged, dropping it from the PushBuffer. It exists
// so Client.build never needs a nil check on the hot path.
type noopConnectivity struct{}

func (noopConnectivity) Register(context.Context, *WiredDatatype, EventSender) error { return nil }

func (noopConnectivity) PushAndPull(_ context.Context, push *PushPullPack) (*PushPullPack, error) {
	out := *push
	out.Transactions = nil
	return &out, nil
}

func (noopConnectivity) IsRealtime() bool { return false }
