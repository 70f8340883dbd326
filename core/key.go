package core

import (
	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // protocol-mandated digest, spec.md §3/§4.2
)

// digestSize is fixed by the wire protocol: 20 bytes of RIPEMD-160.
const digestSize = ripemd160.Size

// Digest is the 20-byte stable identity of a Key.
type Digest [digestSize]byte

// Key identifies a single record. Two keys are equal iff their digests are
// equal (spec.md §3); the namespace/set/user-key fields are retained only
// for routing and for echoing back to the caller, never compared directly.
type Key struct {
	Namespace string
	Set       string
	UserKey   Value // NullValue() if the key was constructed from a raw digest
	digest    Digest
}

// NewKey builds a Key from a namespace, set and user-supplied value,
// computing its digest as RIPEMD-160(set || particle_type_byte || user_key_bytes).
func NewKey(namespace, set string, userKey Value) (Key, error) {
	if namespace == "" {
		return Key{}, newInvalidArgument("key: namespace must not be empty")
	}
	if userKey.Type() == ParticleList || userKey.Type() == ParticleMap || userKey.Type() == ParticleOrderedMap {
		return Key{}, newInvalidArgument("key: user key must be a scalar particle type")
	}
	d, err := computeDigest(set, userKey)
	if err != nil {
		return Key{}, err
	}
	return Key{Namespace: namespace, Set: set, UserKey: userKey, digest: d}, nil
}

// NewKeyFromDigest builds a Key from a namespace/set and an already-known
// digest, for callers (e.g. batch replay, MRT monitor bookkeeping) that
// only ever carry the digest forward.
func NewKeyFromDigest(namespace, set string, digest Digest) Key {
	return Key{Namespace: namespace, Set: set, UserKey: NullValue(), digest: digest}
}

func computeDigest(set string, userKey Value) (Digest, error) {
	h := ripemd160.New()
	_, _ = h.Write([]byte(set))
	_, _ = h.Write([]byte{byte(userKey.Type())})
	_, _ = h.Write(userKey.particleBytes())
	var d Digest
	copy(d[:], h.Sum(nil))
	return d, nil
}

// Digest returns the key's 20-byte identity.
func (k Key) Digest() Digest { return k.digest }

// Equal reports whether two keys share the same digest (spec.md §3, law 1).
func (k Key) Equal(other Key) bool { return k.digest == other.digest }

// PartitionID returns the partition bucket (0..4095) this key's digest maps
// to, per spec.md §4.2: the first 12 bits of the digest, little-endian.
func (k Key) PartitionID() uint16 {
	return (uint16(k.digest[0]) | uint16(k.digest[1])<<8) & 0x0FFF
}
