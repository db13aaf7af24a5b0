package crdtsync

// clientCommon holds the fields every datatype handle on one Client shares:
// collection, cuid, and the Connectivity capability. It is separate from
// Attribute so many Attributes can point at the same shared block without
// copying it (spec §3: "client_common (shared)").
type clientCommon struct {
	Collection   string
	Cuid         Cuid
	Connectivity Connectivity
}

// Attribute is a datatype's identity: everything about it that isn't CRDT
// state (spec §3).
type Attribute struct {
	Key          string
	Type         DatatypeType
	Duid         Duid // mutable: replaced by the server on creation/subscribe
	clientCommon *clientCommon
	Option       any
	IsReadonly   bool
}

// ResourceID returns this attribute's server-side address.
func (a *Attribute) ResourceID() ResourceID {
	return NewResourceID(a.clientCommon.Collection, a.Key)
}

// Cuid returns the owning client's identifier.
func (a *Attribute) Cuid() Cuid { return a.clientCommon.Cuid }

// Collection returns the owning client's collection name.
func (a *Attribute) Collection() string { return a.clientCommon.Collection }
