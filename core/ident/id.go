// Package ident provides the 128-bit node identifier type and the
// monotonic millisecond clock the memory engine uses for tau_created and
// tau_accessed timestamps.
package ident

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ID is a 128-bit node identifier. IDs are never reused; new IDs are minted from a UUIDv4-backed random source so
// collisions across a running store's lifetime are negligible.
type ID [16]byte

// Nil is the zero ID, never assigned to a live node; used as a sentinel
// for "no entity linked" / "no parent".
var Nil ID

// New mints a fresh random ID.
func New() ID {
	u := uuid.New()
	var id ID
	copy(id[:], u[:])
	return id
}

// String renders the ID as lower-case hex with dash separators, mirroring
// the conventional 8-4-4-4-12 grouping without claiming UUID semantics.
func (id ID) String() string {
	h := hex.EncodeToString(id[:])
	return strings.Join([]string{h[0:8], h[8:12], h[12:16], h[16:20], h[20:32]}, "-")
}

// Parse decodes the lower-case hex/dash form produced by String back into
// an ID.
func Parse(s string) (ID, error) {
	s = strings.ReplaceAll(s, "-", "")
	if len(s) != 32 {
		return ID{}, fmt.Errorf("ident: invalid id length %d", len(s))
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return ID{}, fmt.Errorf("ident: invalid id: %w", err)
	}
	var id ID
	copy(id[:], b)
	return id, nil
}

// IsNil reports whether id is the zero value.
func (id ID) IsNil() bool { return id == Nil }

// Hash mixes both 64-bit halves of the ID into a single 64-bit value.
// The in-memory maps and indices key on ID itself, not on this value.
func (id ID) Hash() uint64 {
	hi := binary.BigEndian.Uint64(id[0:8])
	lo := binary.BigEndian.Uint64(id[8:16])
	// splitmix64-style mix so structurally similar IDs (e.g. sequential
	// UUIDs) don't cluster in hash-bucketed structures.
	h := hi ^ (lo + 0x9E3779B97F4A7C15 + (hi << 6) + (hi >> 2))
	h ^= h >> 33
	h *= 0xff51afd7ed558ccd
	h ^= h >> 33
	h *= 0xc4ceb9fe1a85ec53
	h ^= h >> 33
	return h
}

// MarshalText implements encoding.TextMarshaler so IDs serialize as plain
// strings in JSON-RPC payloads.
func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *ID) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
