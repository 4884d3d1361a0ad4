package common

import (
	ethereumCommon "github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/blake2b"
)

// Hash is a 32 byte digest, based on Ethereum's common.Hash
type Hash ethereumCommon.Hash

func (h Hash) Bytes() []byte {
	return ethereumCommon.Hash(h).Bytes()
}

func (h Hash) String() string {
	return ethereumCommon.Hash(h).String()
}

func (h Hash) Hex() string {
	return ethereumCommon.Hash(h).Hex()
}

// Short returns the first n hex digits without the 0x prefix.
func (h Hash) Short(n int) string {
	s := h.Hex()[2:]
	if n > len(s) {
		n = len(s)
	}
	return s[:n]
}

func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.Hex()), nil
}

func (h *Hash) UnmarshalText(b []byte) error {
	*h = HexToHash(string(b))
	return nil
}

func BytesToHash(b []byte) Hash {
	return Hash(ethereumCommon.BytesToHash(b))
}

func HexToHash(s string) Hash {
	return Hash(ethereumCommon.HexToHash(s))
}

func IsNilHash(h Hash) bool {
	return h == Hash{}
}

// ComputeHash computes the BLAKE2b-256 hash of data
func ComputeHash(data []byte) []byte {
	hash := blake2b.Sum256(data)
	return hash[:]
}

func Blake2Hash(data []byte) Hash {
	return BytesToHash(ComputeHash(data))
}

// Blake2HashParts hashes the concatenation of parts, each prefixed with its
// length so that different splits never collide.
func Blake2HashParts(parts ...[]byte) Hash {
	h, _ := blake2b.New256(nil)
	var n [4]byte
	for _, p := range parts {
		l := len(p)
		n[0], n[1], n[2], n[3] = byte(l), byte(l>>8), byte(l>>16), byte(l>>24)
		h.Write(n[:])
		h.Write(p)
	}
	return BytesToHash(h.Sum(nil))
}
