//go:build crdttest

package crdtsync

import "time"

// Delay4Test exists only in test builds (spec §3): it lets tests widen the
// race window between a user write and a push_pull round without touching
// CRDT state. CRDT.ApplyLocal/ApplyRemote no-op on it.
type Delay4Test struct {
	For time.Duration
}

func (Delay4Test) Kind() string { return "Delay4Test" }
func (Delay4Test) Size() int    { return 8 }
