package crdtsync

import "fmt"

// ResourceID is the unique server-side address of a datatype: "<collection>/<key>".
type ResourceID string

// NewResourceID builds a ResourceID from a collection and a key.
func NewResourceID(collection, key string) ResourceID {
	return ResourceID(fmt.Sprintf("%s/%s", collection, key))
}

func (r ResourceID) String() string { return string(r) }
