package crdtsync

// CheckPoint is the (sseq, cseq) high-water mark a client has
// acknowledged to/from the server (spec §3). It is monotone
// non-decreasing across a datatype's lifetime.
type CheckPoint struct {
	Sseq uint64
	Cseq uint64
}

// CheckWith advances cp component-wise to the max of cp and other,
// enforcing the monotonicity invariant from spec §5 and §4.6 step 4.
func (cp *CheckPoint) CheckWith(other CheckPoint) {
	if other.Sseq > cp.Sseq {
		cp.Sseq = other.Sseq
	}
	if other.Cseq > cp.Cseq {
		cp.Cseq = other.Cseq
	}
}
