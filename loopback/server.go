// Package loopback implements the in-process reference server that
// defines the contract crdtsync's replication core must satisfy (spec
// §1/§4.8). It is not a real network service: Register and PushAndPull
// run synchronously in the caller's goroutine, which is what makes it
// useful as a contract test fixture.
package loopback

import (
	"context"
	"log/slog"
	"sync"

	crdtsync "github.com/go-mizu/crdtsync"
)

// Server implements crdtsync.Connectivity. Its outer map of
// ResourceID -> *record is read-dominant (sync.RWMutex); each record
// protects its own fields with an exclusive lock (spec §5).
type Server struct {
	mu       sync.RWMutex
	records  map[crdtsync.ResourceID]*record
	realtime bool
	log      *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithRealtime sets whether IsRealtime reports true (default false).
func WithRealtime(v bool) Option {
	return func(s *Server) { s.realtime = v }
}

// WithLogger sets the server's logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// NewServer returns an empty Server.
func NewServer(opts ...Option) *Server {
	s := &Server{
		records: make(map[crdtsync.ResourceID]*record),
		log:     slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Server) getOrCreate(rid crdtsync.ResourceID, typ crdtsync.DatatypeType, key string) *record {
	s.mu.RLock()
	rec, ok := s.records[rid]
	s.mu.RUnlock()
	if ok {
		return rec
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.records[rid]; ok {
		return rec
	}
	rec = newRecord(typ, key)
	s.records[rid] = rec
	return rec
}

// Register associates wired with this server's record for its
// ResourceID, so a later subscriber can be served a snapshot of wired's
// current CRDT value (spec §4.8).
func (s *Server) Register(_ context.Context, wired *crdtsync.WiredDatatype, _ crdtsync.EventSender) error {
	attr := wired.Datatype().Attribute()
	rec := s.getOrCreate(attr.ResourceID(), attr.Type, attr.Key)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.clients[attr.Cuid()] = wired
	return nil
}

// PushAndPull implements the server endpoint of spec §4.8's protocol.
// Protocol-level failures are carried in the returned pack's Error field,
// never as a Go error; a Go error here would mean the transport itself
// failed, which the in-process loopback never does.
func (s *Server) PushAndPull(_ context.Context, push *crdtsync.PushPullPack) (*crdtsync.PushPullPack, error) {
	rec := s.getOrCreate(crdtsync.NewResourceID(push.Collection, push.Key), push.Type, push.Key)

	rec.mu.Lock()
	defer rec.mu.Unlock()

	switch push.State {
	case crdtsync.DueToCreate:
		return rec.processDueToCreate(push), nil
	case crdtsync.DueToSubscribe:
		return rec.processDueToSubscribe(push, s.snapshotOf(rec)), nil
	case crdtsync.DueToSubscribeOrCreate:
		if rec.created {
			return rec.processDueToSubscribe(push, s.snapshotOf(rec)), nil
		}
		return rec.processDueToCreate(push), nil
	case crdtsync.Subscribed:
		return rec.processSubscribed(push), nil
	default:
		// DueToUnsubscribe, DueToDelete, Disabled: reserved (spec §9(b)).
		return &crdtsync.PushPullPack{
			Collection: push.Collection,
			Cuid:       push.Cuid,
			Duid:       rec.duid,
			State:      push.State,
			Checkpoint: push.Checkpoint,
		}, nil
	}
}

// snapshotOf returns a closure that asks the creator's registered
// WiredDatatype for a synthetic snapshot transaction (spec §4.5's
// get_subscribe_snapshot), resolving the creator lazily by Cuid rather
// than holding a direct owning reference (spec §9).
func (s *Server) snapshotOf(rec *record) func() crdtsync.Transaction {
	return func() crdtsync.Transaction {
		if creator, ok := rec.clients[rec.creator]; ok {
			return creator.GetSubscribeSnapshot(rec.sseq)
		}
		return crdtsync.Transaction{Sseq: rec.sseq, Tag: "snapshot"}
	}
}

// IsRealtime reports whether writes should best-effort push immediately.
func (s *Server) IsRealtime() bool { return s.realtime }
