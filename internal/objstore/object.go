// Package objstore implements the content-addressed object store:
// framing, hashing and zlib-compressed persistence of Blob/Tree/Commit/Tag
// objects keyed by SHA-1 or SHA-256, the same framing Git uses.
package objstore

import (
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/libra-vcs/libra/internal/vcserrors"
)

// HashKind fixes the digest width a repository uses for every object id.
// It is set once at repository init and threaded explicitly from then on,
// never stored as process-wide state.
type HashKind int

const (
	HashSHA1 HashKind = iota
	HashSHA256
)

// HexLen returns the number of hex characters an id of this kind has.
func (k HashKind) HexLen() int {
	switch k {
	case HashSHA1:
		return 40
	case HashSHA256:
		return 64
	default:
		panic(fmt.Sprintf("unknown hash kind %d", k))
	}
}

// Capability advertises the git wire-protocol token for this hash kind,
// e.g. "object-format=sha256". SHA-1 has no capability token.
func (k HashKind) Capability() string {
	if k == HashSHA256 {
		return "object-format=sha256"
	}
	return ""
}

// KindFromHexLen infers the hash kind from an observed hex length, used by
// the wire client when parsing ref advertisements.
func KindFromHexLen(n int) (HashKind, bool) {
	switch n {
	case 40:
		return HashSHA1, true
	case 64:
		return HashSHA256, true
	default:
		return 0, false
	}
}

// Kind is the type tag of a stored object.
type Kind int

const (
	KindBlob Kind = iota
	KindTree
	KindCommit
	KindTag
)

func (k Kind) String() string {
	switch k {
	case KindBlob:
		return "blob"
	case KindTree:
		return "tree"
	case KindCommit:
		return "commit"
	case KindTag:
		return "tag"
	default:
		panic(fmt.Sprintf("unknown object kind %d", k))
	}
}

// ParseKind reverses Kind.String, used when parsing the on-disk header.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "blob":
		return KindBlob, nil
	case "tree":
		return KindTree, nil
	case "commit":
		return KindCommit, nil
	case "tag":
		return KindTag, nil
	default:
		return 0, vcserrors.New(vcserrors.KindInvalidHeader, fmt.Sprintf("unknown object kind %q", s))
	}
}

// ID is a lowercase hex object id. Its length determines whether it was
// produced under SHA-1 or SHA-256; ParseID validates it against a HashKind.
type ID string

// ParseID validates that s is a well-formed id for the given hash kind.
func ParseID(s string, kind HashKind) (ID, error) {
	if len(s) != kind.HexLen() {
		return "", vcserrors.New(vcserrors.KindValidation,
			fmt.Sprintf("id %q has length %d, expected %d for this repository's hash kind", s, len(s), kind.HexLen()))
	}
	if _, err := hex.DecodeString(s); err != nil {
		return "", vcserrors.Wrap(vcserrors.KindValidation, fmt.Sprintf("id %q is not valid hex", s), err)
	}
	return ID(s), nil
}

// Hash computes the object id for (kind, payload) under the given hash
// kind: H(kind || ' ' || len(payload) || 0x00 || payload).
func Hash(kind Kind, payload []byte, hashKind HashKind) ID {
	framed := frame(kind, payload)
	switch hashKind {
	case HashSHA256:
		sum := sha256.Sum256(framed)
		return ID(hex.EncodeToString(sum[:]))
	default:
		sum := sha1.Sum(framed)
		return ID(hex.EncodeToString(sum[:]))
	}
}

// frame builds the "<kind> <len>\0<payload>" byte sequence that is both
// hashed and, zlib-compressed, stored on disk.
func frame(kind Kind, payload []byte) []byte {
	header := fmt.Sprintf("%s %d\x00", kind.String(), len(payload))
	buf := make([]byte, 0, len(header)+len(payload))
	buf = append(buf, header...)
	buf = append(buf, payload...)
	return buf
}
