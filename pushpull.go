package crdtsync

// PushPullPack is the bidirectional wire message exchanged between a
// client and the server in one push/pull round (spec §6).
type PushPullPack struct {
	Collection   string
	Cuid         Cuid
	Duid         Duid
	Key          string
	Type         DatatypeType
	State        State
	Checkpoint   CheckPoint
	SafeSseq     uint64
	Transactions []Transaction
	IsReadonly   bool
	HasSnapshot  bool
	Error        *ServerPushPullError
}
