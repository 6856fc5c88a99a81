package types

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/mr-tron/base58"
)

// HashSize is the byte length of block and state root hashes
const HashSize = 32

// Hash is a 32-byte block hash or state root
type Hash [HashSize]byte

// String returns the lowercase hex form
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// IsZero reports whether every byte of h is zero
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// MarshalText encodes the hash as hex
func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText decodes a hex hash
func (h *Hash) UnmarshalText(text []byte) error {
	parsed, err := HashFromHex(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// HashFromHex parses a 64 character hex string
func HashFromHex(s string) (Hash, error) {
	var h Hash
	b, err := hex.DecodeString(s)
	if err != nil {
		return h, fmt.Errorf("invalid hash hex: %w", err)
	}
	if len(b) != HashSize {
		return h, fmt.Errorf("invalid hash length: %d", len(b))
	}
	copy(h[:], b)
	return h, nil
}

// HashOf returns sha256(data)
func HashOf(data []byte) Hash {
	return Hash(sha256.Sum256(data))
}

// PubKey is a committee member public key, shown in base58
type PubKey []byte

func (k PubKey) String() string {
	return base58.Encode(k)
}

// Equal compares two keys byte by byte
func (k PubKey) Equal(other PubKey) bool {
	return string(k) == string(other)
}

// MarshalText encodes the key as base58
func (k PubKey) MarshalText() ([]byte, error) {
	return []byte(base58.Encode(k)), nil
}

// UnmarshalText decodes a base58 key; empty text is a nil key
func (k *PubKey) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*k = nil
		return nil
	}
	parsed, err := PubKeyFromBase58(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// PubKeyFromBase58 decodes a non-empty base58 public key
func PubKeyFromBase58(s string) (PubKey, error) {
	if s == "" {
		return nil, fmt.Errorf("empty public key")
	}
	b, err := base58.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("invalid base58 public key %q: %w", s, err)
	}
	return PubKey(b), nil
}

// Peer is the network location of a node
type Peer struct {
	IP   string `json:"ip"`
	Port uint32 `json:"port"`
}

func (p Peer) String() string {
	return fmt.Sprintf("%s:%d", p.IP, p.Port)
}

// Member is one seat in a DS committee or shard
type Member struct {
	PubKey PubKey `json:"pub_key"`
	Peer   Peer   `json:"peer"`
}
