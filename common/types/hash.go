package types

import (
	"bytes"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
)

const (
	// HashSize is the fixed width of a block identifier.
	HashSize = 32
)

// Hash identifies a block. It is a fixed-width opaque byte string; the zero
// value is the sentinel "none".
type Hash [HashSize]byte

var ZeroHash = Hash{}

func BytesToHash(b []byte) (Hash, error) {
	var h Hash
	err := h.SetBytes(b)
	return h, err
}

func HexToHash(hexstr string) (Hash, error) {
	if len(hexstr) != 2*HashSize {
		return Hash{}, fmt.Errorf("error hex hash size %v", len(hexstr))
	}
	b, err := hex.DecodeString(hexstr)
	if err != nil {
		return Hash{}, err
	}
	return BytesToHash(b)
}

func HexToHashPanic(hexstr string) Hash {
	h, err := HexToHash(hexstr)
	if err != nil {
		panic(err)
	}
	return h
}

// RandomHash draws a hash from a cryptographically strong source, never the
// default-seeded global math/rand generator.
func RandomHash() Hash {
	var h Hash
	if _, err := rand.Read(h[:]); err != nil {
		panic(err)
	}
	return h
}

func (h *Hash) SetBytes(b []byte) error {
	if len(b) != HashSize {
		return fmt.Errorf("error hash size %v", len(b))
	}
	copy(h[:], b)
	return nil
}

func (h Hash) Hex() string {
	return hex.EncodeToString(h[:])
}

func (h Hash) Bytes() []byte {
	return h[:]
}

func (h Hash) String() string {
	return h.Hex()
}

func (h Hash) Big() *big.Int {
	return new(big.Int).SetBytes(h[:])
}

func (h Hash) IsZero() bool {
	return h == ZeroHash
}

// Cmp orders two hashes byte-wise.
func (h Hash) Cmp(other Hash) int {
	return bytes.Compare(h[:], other[:])
}

func BigToHash(b *big.Int) (Hash, error) {
	slice := b.Bytes()
	if len(slice) < HashSize {
		padded := make([]byte, HashSize)
		copy(padded[HashSize-len(slice):], slice)
		return BytesToHash(padded)
	}
	return BytesToHash(slice)
}

// DataHash hashes arbitrary data into the block-identifier space. The core
// never validates signatures or proof-of-work (out of scope), so a plain
// sha256 stands in for the node's real block-hashing scheme here.
func DataHash(data []byte) Hash {
	sum := sha256.Sum256(data)
	h, _ := BytesToHash(sum[:])
	return h
}

func (h *Hash) UnmarshalJSON(input []byte) error {
	var s string
	if err := json.Unmarshal(input, &s); err != nil {
		return err
	}
	hash, err := HexToHash(s)
	if err != nil {
		return err
	}
	*h = hash
	return nil
}

func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}
