package crdtsync

import "context"

// Counter is the user-facing handle for a Counter datatype (spec §4.2).
// Each mutating call checks writability, opens a transaction on this
// handle if none is open yet, or extends the one already open. The
// transaction commits when the outermost caller returns nil from
// Transaction, or rolls back on error.
type Counter struct {
	wired *WiredDatatype
	loop  *EventLoop

	txDepth int // nesting depth of Transaction calls on this handle
}

// Key, Type, State, ServerVersion, ClientVersion, SyncedClientVersion are
// the common datatype accessors from spec §6.
func (c *Counter) Key() string        { return c.wired.Datatype().Attribute().Key }
func (c *Counter) Type() DatatypeType { return c.wired.Datatype().Attribute().Type }
func (c *Counter) State() State       { return c.wired.Datatype().State() }

// ServerVersion returns the last sseq the client has observed from the server.
func (c *Counter) ServerVersion() uint64 { return c.wired.Datatype().Checkpoint().Sseq }

// ClientVersion returns the most recently assigned local cseq; while a
// transaction is open this is the open transaction's cseq.
func (c *Counter) ClientVersion() uint64 { return c.wired.Datatype().opIDCseq() }

// SyncedClientVersion returns the last cseq the server has acknowledged.
func (c *Counter) SyncedClientVersion() uint64 { return c.wired.Datatype().Checkpoint().Cseq }

// GetValue returns a locally-consistent snapshot of the counter's value.
func (c *Counter) GetValue() int64 {
	return c.wired.Datatype().CRDTValue().(int64)
}

// Increase adds 1 (spec §4.2).
func (c *Counter) Increase() error { return c.IncreaseBy(1) }

// IncreaseBy adds delta, opening or extending the currently open
// transaction on this handle.
func (c *Counter) IncreaseBy(delta int64) error {
	if !c.wired.Datatype().Writable() {
		return &DatatypeError{Kind: FailedToWrite}
	}

	standalone := c.txDepth == 0
	if err := c.wired.Datatype().ExecuteLocalOperation(CounterIncrease{Delta: delta}); err != nil {
		return err
	}
	if standalone {
		if err := c.wired.Datatype().EndTransaction("", true); err != nil {
			return &DatatypeError{Kind: FailedTransaction, Cause: err}
		}
		c.notifyWrite()
	}
	return nil
}

// Transaction groups every Increase/IncreaseBy call made by fn into one
// transaction, committing on a nil return and rolling back otherwise
// (spec §4.2). Transactions may nest on the same handle; only the
// outermost call commits or rolls back.
func (c *Counter) Transaction(tag string, fn func(*Counter) error) error {
	if !c.wired.Datatype().Writable() {
		return &DatatypeError{Kind: FailedToWrite}
	}

	c.txDepth++
	err := fn(c)
	c.txDepth--

	if c.txDepth > 0 {
		return err
	}

	if err != nil {
		if rbErr := c.wired.Datatype().EndTransaction(tag, false); rbErr != nil {
			return rbErr
		}
		return &DatatypeError{Kind: FailedTransaction, Cause: err}
	}
	if commitErr := c.wired.Datatype().EndTransaction(tag, true); commitErr != nil {
		return &DatatypeError{Kind: FailedTransaction, Cause: commitErr}
	}
	c.notifyWrite()
	return nil
}

// notifyWrite implements spec §2's write-path dispatch: realtime mode
// best-effort posts PushTransaction; otherwise a caller must call Sync.
func (c *Counter) notifyWrite() {
	if c.wired.connectivity.IsRealtime() {
		c.loop.PostBestEffort()
	}
}

// Sync posts a guaranteed PushTransaction event and blocks for one
// round-trip (spec §4.7).
func (c *Counter) Sync(ctx context.Context) error {
	return c.loop.Sync(ctx)
}
