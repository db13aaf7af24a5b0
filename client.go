package crdtsync

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// handle is what DatatypeManager keeps per key: the live WiredDatatype
// plus its EventLoop. Per spec §9, the manager holds this as the single
// strong owner; nothing else in the package keeps a second strong
// reference to the MutableDatatype.
type handle struct {
	wired *WiredDatatype
	loop  *EventLoop
}

// DatatypeManager owns a Client's key -> live datatype mapping (spec §4.1).
type DatatypeManager struct {
	mu     sync.Mutex
	byKey  map[string]*handle
	common *clientCommon
	sched  *Scheduler
	log    *slog.Logger
}

func newDatatypeManager(common *clientCommon, sched *Scheduler, log *slog.Logger) *DatatypeManager {
	return &DatatypeManager{
		byKey:  make(map[string]*handle),
		common: common,
		sched:  sched,
		log:    log,
	}
}

// doSubscribeOrCreateDatatype implements spec §4.1: under the manager's
// exclusive lock, reject a duplicate key, else build and register a new
// MutableDatatype + WiredDatatype, start its EventLoop, and insert the
// handle.
func (m *DatatypeManager) doSubscribeOrCreateDatatype(
	ctx context.Context,
	key string,
	typ DatatypeType,
	initial State,
	option any,
	readonly bool,
	maxBufMem uint64,
) (*WiredDatatype, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byKey[key]; exists {
		return nil, &ClientError{Kind: FailedToSubscribeOrCreateDatatype, Message: fmt.Sprintf("key %q already registered", key)}
	}

	attr := &Attribute{
		Key:          key,
		Type:         typ,
		Duid:         NewDuid(),
		clientCommon: m.common,
		Option:       option,
		IsReadonly:   readonly,
	}

	d, err := NewMutableDatatype(attr, initial, maxBufMem)
	if err != nil {
		return nil, &ClientError{Kind: FailedToSubscribeOrCreateDatatype, Message: err.Error()}
	}

	wired := NewWiredDatatype(d, m.common.Connectivity, m.sched)
	loop := NewEventLoop(wired, m.log)

	m.sched.Go(ctx, loop.Run)

	m.byKey[key] = &handle{wired: wired, loop: loop}
	return wired, nil
}

// get returns the live handle for key, if any.
func (m *DatatypeManager) get(key string) (*handle, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.byKey[key]
	return h, ok
}

// closeAll stops every live EventLoop and waits for the scheduler to drain.
func (m *DatatypeManager) closeAll(ctx context.Context) error {
	m.mu.Lock()
	handles := make([]*handle, 0, len(m.byKey))
	for _, h := range m.byKey {
		handles = append(handles, h)
	}
	m.mu.Unlock()

	for _, h := range handles {
		if err := h.loop.Stop(ctx); err != nil {
			return err
		}
	}
	return m.sched.Wait()
}

// Client is bound to one (collection, alias) pair (spec §1/§4.1).
type Client struct {
	collection string
	alias      string
	manager    *DatatypeManager
	log        *slog.Logger
}

// ClientOption sets one field of a ClientBuilder's configuration.
// ClientBuilder has no method that takes a ClientOption, so Build applies
// none; its WithConnectivity and WithLogger methods set the connectivity
// and logger directly, and the scheduler worker count stays at its default.
type ClientOption func(*clientConfig)

type clientConfig struct {
	connectivity  Connectivity
	log           *slog.Logger
	schedulerSize int64
}

// WithConnectivity sets the Connectivity capability a Client's datatypes
// use. The default is a no-op passthrough (spec §4.1).
func WithConnectivity(c Connectivity) ClientOption {
	return func(cfg *clientConfig) { cfg.connectivity = c }
}

// WithClientLogger sets the Client's logger. If nil, slog.Default() is used.
func WithClientLogger(l *slog.Logger) ClientOption {
	return func(cfg *clientConfig) { cfg.log = l }
}

// WithSchedulerWorkers overrides the Client's shared Scheduler's worker
// count (default available_parallelism() or 4, spec §6).
func WithSchedulerWorkers(n int64) ClientOption {
	return func(cfg *clientConfig) { cfg.schedulerSize = n }
}

// ClientBuilder builds a Client bound to (collection, alias).
type ClientBuilder struct {
	collection string
	alias      string
	cfg        clientConfig
}

// Builder starts a ClientBuilder for (collection, alias).
func Builder(collection, alias string) *ClientBuilder {
	return &ClientBuilder{collection: collection, alias: alias}
}

// WithConnectivity attaches a Connectivity capability to the builder.
func (b *ClientBuilder) WithConnectivity(c Connectivity) *ClientBuilder {
	b.cfg.connectivity = c
	return b
}

// WithLogger attaches a logger to the builder.
func (b *ClientBuilder) WithLogger(l *slog.Logger) *ClientBuilder {
	b.cfg.log = l
	return b
}

// Build validates the collection name and constructs a Client (spec §4.1).
func (b *ClientBuilder) Build() (*Client, error) {
	if !IsValidCollectionName(b.collection) {
		return nil, &ClientError{Kind: InvalidCollectionName, Message: b.collection}
	}

	log := b.cfg.log
	if log == nil {
		log = slog.Default()
	}
	connectivity := b.cfg.connectivity
	if connectivity == nil {
		connectivity = noopConnectivity{}
	}

	common := &clientCommon{
		Collection:   b.collection,
		Cuid:         NewCuid(),
		Connectivity: connectivity,
	}
	sched := NewScheduler(b.cfg.schedulerSize)

	return &Client{
		collection: b.collection,
		alias:      b.alias,
		manager:    newDatatypeManager(common, sched, log),
		log:        log,
	}, nil
}

// Collection, Alias, Cuid report the Client's identity.
func (c *Client) Collection() string { return c.collection }
func (c *Client) Alias() string      { return c.alias }
func (c *Client) Cuid() Cuid         { return c.manager.common.Cuid }

// Close stops every live datatype's EventLoop and waits for the shared
// Scheduler to drain.
func (c *Client) Close(ctx context.Context) error {
	return c.manager.closeAll(ctx)
}

// DatatypeBuilder builds a single datatype handle under a Client (spec §4.1/§6).
type DatatypeBuilder struct {
	client    *Client
	key       string
	initial   State
	maxBufMem uint64
	readonly  bool
}

func (c *Client) newBuilder(key string, initial State) *DatatypeBuilder {
	return &DatatypeBuilder{client: c, key: key, initial: initial, maxBufMem: defaultPushBufferMemSize}
}

// SubscribeDatatype starts a DatatypeBuilder tagged DueToSubscribe.
func (c *Client) SubscribeDatatype(key string) *DatatypeBuilder {
	return c.newBuilder(key, DueToSubscribe)
}

// CreateDatatype starts a DatatypeBuilder tagged DueToCreate.
func (c *Client) CreateDatatype(key string) *DatatypeBuilder {
	return c.newBuilder(key, DueToCreate)
}

// SubscribeOrCreateDatatype starts a DatatypeBuilder tagged DueToSubscribeOrCreate.
func (c *Client) SubscribeOrCreateDatatype(key string) *DatatypeBuilder {
	return c.newBuilder(key, DueToSubscribeOrCreate)
}

// WithMaxMemSizeOfPushBuffer overrides the datatype's PushBuffer memory
// bound (clamped to [1 MB, 1 GB], spec §6).
func (b *DatatypeBuilder) WithMaxMemSizeOfPushBuffer(n uint64) *DatatypeBuilder {
	b.maxBufMem = n
	return b
}

// WithReadonly marks the datatype readonly (spec §6).
func (b *DatatypeBuilder) WithReadonly() *DatatypeBuilder {
	b.readonly = true
	return b
}

// BuildCounter validates the key and registers a Counter datatype.
func (b *DatatypeBuilder) BuildCounter(ctx context.Context) (*Counter, error) {
	if !IsValidDatatypeKey(b.key) {
		return nil, &ClientError{Kind: FailedToSubscribeOrCreateDatatype, Message: fmt.Sprintf("invalid key %q", b.key)}
	}
	wired, err := b.client.manager.doSubscribeOrCreateDatatype(ctx, b.key, TypeCounter, b.initial, nil, b.readonly, b.maxBufMem)
	if err != nil {
		return nil, err
	}
	h, _ := b.client.manager.get(b.key)
	return &Counter{wired: wired, loop: h.loop}, nil
}
