package crdtsync

import (
	"encoding/base64"
	"regexp"

	"github.com/google/uuid"
)

// uidAlphabet is URL-safe base64 minus padding: 64 symbols from [A-Za-z0-9_-].
const uidAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"

var uidPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{16}$`)

// Uid is a 16-character opaque identifier drawn from [A-Za-z0-9_-].
type Uid string

// NilUid is the all-zero Uid; it never names a live entity.
const NilUid Uid = "0000000000000000"

// IsNil reports whether u is the all-zero Uid.
func (u Uid) IsNil() bool { return u == NilUid }

// Valid reports whether u matches the 16-character Uid alphabet.
func (u Uid) Valid() bool { return uidPattern.MatchString(string(u)) }

func (u Uid) String() string { return string(u) }

// NewUid generates a fresh random Uid by folding a random UUID's 128 bits
// down to 16 symbols of the Uid alphabet (96 bits of entropy).
func NewUid() Uid {
	id := uuid.New()
	return uidFromBytes(id[:])
}

// uidFromBytes folds b to 12 bytes (96 bits) by XORing every byte past the
// twelfth back in from byte 6 on, which also covers a UUID's fixed version
// and variant bits, then encodes those 96 bits as 16 six-bit symbols.
func uidFromBytes(b []byte) Uid {
	var f [12]byte
	copy(f[:], b)
	for i := 12; i < len(b); i++ {
		f[(i-6)%12] ^= b[i]
	}
	return Uid(base64.NewEncoding(uidAlphabet).WithPadding(base64.NoPadding).EncodeToString(f[:]))
}

// Cuid identifies a client instance for the life of its process.
type Cuid Uid

// NilCuid is the zero-value Cuid.
const NilCuid Cuid = Cuid(NilUid)

func (c Cuid) String() string { return string(c) }
func (c Cuid) IsNil() bool    { return Uid(c).IsNil() }

// NewCuid mints a fresh client identifier.
func NewCuid() Cuid { return Cuid(NewUid()) }

// Duid identifies a logical datatype. It is re-assigned by the server on
// creation, so a client-generated Duid is provisional until a successful
// DueToCreate pull adopts the server's value.
type Duid Uid

// NilDuid is the zero-value Duid.
const NilDuid Duid = Duid(NilUid)

func (d Duid) String() string { return string(d) }
func (d Duid) IsNil() bool    { return Uid(d).IsNil() }

// NewDuid mints a fresh provisional datatype identifier.
func NewDuid() Duid { return Duid(NewUid()) }
