// Package id provides sortable ID generation utilities.
package id

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"strings"
	"time"
)

// Crockford's Base32 alphabet (excludes I, L, O, U to avoid confusion).
const crockfordBase32 = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

// ULIDLength is the length of an encoded ULID.
const ULIDLength = 26

// ErrInvalidULID is returned when a string is not a well-formed ULID.
var ErrInvalidULID = errors.New("id: invalid ulid")

// NewULID generates a ULID (Universally Unique Lexicographically Sortable Identifier).
// Returns a 26-character string: 10 chars timestamp (48-bit ms) + 16 chars random (80-bit).
func NewULID() string {
	ms := uint64(time.Now().UnixMilli())

	var entropy [10]byte
	if _, err := rand.Read(entropy[:]); err != nil {
		// degraded but functional
		binary.BigEndian.PutUint64(entropy[:8], uint64(time.Now().UnixNano()))
	}

	var out [ULIDLength]byte
	for i := 9; i >= 0; i-- {
		out[i] = crockfordBase32[ms&0x1F]
		ms >>= 5
	}

	// 80 random bits as two 40-bit halves, 8 chars each.
	hi := uint64(entropy[0])<<32 | uint64(binary.BigEndian.Uint32(entropy[1:5]))
	lo := uint64(entropy[5])<<32 | uint64(binary.BigEndian.Uint32(entropy[6:10]))
	for i := 17; i >= 10; i-- {
		out[i] = crockfordBase32[hi&0x1F]
		hi >>= 5
	}
	for i := 25; i >= 18; i-- {
		out[i] = crockfordBase32[lo&0x1F]
		lo >>= 5
	}

	return string(out[:])
}

// ULIDTime returns the creation time encoded in a ULID.
func ULIDTime(s string) (time.Time, error) {
	if len(s) != ULIDLength {
		return time.Time{}, ErrInvalidULID
	}
	var ms uint64
	for i := range 10 {
		idx := strings.IndexByte(crockfordBase32, s[i])
		if idx < 0 {
			return time.Time{}, ErrInvalidULID
		}
		ms = ms<<5 | uint64(idx)
	}
	for i := 10; i < ULIDLength; i++ {
		if strings.IndexByte(crockfordBase32, s[i]) < 0 {
			return time.Time{}, ErrInvalidULID
		}
	}
	return time.UnixMilli(int64(ms)), nil
}

// IsULID reports whether s is a well-formed ULID.
func IsULID(s string) bool {
	_, err := ULIDTime(s)
	return err == nil
}
