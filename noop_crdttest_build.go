//go:build crdttest

package crdtsync

// isNoopBody reports whether body is Delay4Test, the test-only operation
// that CRDTs accept and stamp but never apply.
func isNoopBody(body OpBody) bool {
	_, ok := body.(Delay4Test)
	return ok
}
