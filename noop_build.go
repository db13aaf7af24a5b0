//go:build !crdttest

package crdtsync

// isNoopBody is always false outside test builds; see noop_crdttest_build.go.
func isNoopBody(OpBody) bool { return false }
