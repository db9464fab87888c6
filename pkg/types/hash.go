// Package types defines core primitive types shared by coinforge components.
package types

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// HashSize is the length of a hash, object ID or address in bytes.
const HashSize = 32

// Hash represents a 256-bit hash value.
type Hash [HashSize]byte

// ObjectID identifies an on-chain object (coins included).
type ObjectID [HashSize]byte

// IsZero returns true if the hash is all zeros.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// String returns the hex-encoded hash without prefix.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// Bytes returns a copy of the hash as a byte slice.
func (h Hash) Bytes() []byte {
	b := make([]byte, HashSize)
	copy(b, h[:])
	return b
}

// IsZero returns true if the object ID is all zeros.
func (id ObjectID) IsZero() bool {
	return id == ObjectID{}
}

// String returns the 0x-prefixed, full-length hex form.
func (id ObjectID) String() string {
	return "0x" + hex.EncodeToString(id[:])
}

// Short returns an abbreviated form for display, e.g. "0x1a2b…9f0e".
func (id ObjectID) Short() string {
	return shorten(id.String())
}

// MarshalJSON encodes the object ID as a 0x-prefixed hex string.
func (id ObjectID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.String())
}

// UnmarshalJSON decodes a 0x-prefixed or raw hex string into an object ID.
func (id *ObjectID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*id = ObjectID{}
		return nil
	}
	parsed, err := ParseObjectID(s)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// ParseObjectID parses a 0x-prefixed or raw hex object ID.
// Short forms such as "0x2" are left-padded with zeros.
func ParseObjectID(s string) (ObjectID, error) {
	b, err := parseHex32(s)
	if err != nil {
		return ObjectID{}, fmt.Errorf("invalid object id: %w", err)
	}
	return ObjectID(b), nil
}

// parseHex32 decodes up to 64 hex characters (optionally 0x-prefixed)
// into a 32-byte array, left-padding short input.
func parseHex32(s string) ([HashSize]byte, error) {
	var out [HashSize]byte
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if s == "" {
		return out, fmt.Errorf("empty hex")
	}
	if len(s) > HashSize*2 {
		return out, fmt.Errorf("must be at most %d hex characters, got %d", HashSize*2, len(s))
	}
	if len(s)%2 == 1 {
		s = "0" + s
	}
	decoded, err := hex.DecodeString(s)
	if err != nil {
		return out, err
	}
	copy(out[HashSize-len(decoded):], decoded)
	return out, nil
}

func shorten(s string) string {
	if len(s) <= 12 {
		return s
	}
	return s[:6] + "…" + s[len(s)-4:]
}
