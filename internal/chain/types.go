package chain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Address identifies an account on the devnet: a user wallet, the admin,
// or a deployed component such as the lending pool.
type Address string

func (a Address) IsZero() bool {
	return strings.TrimSpace(string(a)) == ""
}

// HashSize is 31 bytes, matching the felt252-sized key the contracts use.
const HashSize = 31

// Hash is the opaque identifier a score record is keyed by: the SHA-256
// digest of a raw Bitcoin address truncated to 31 bytes. The raw address
// never appears on-chain.
type Hash [HashSize]byte

var zeroHash Hash

func (h Hash) IsZero() bool {
	return h == zeroHash
}

func (h Hash) Hex() string {
	return "0x" + hex.EncodeToString(h[:])
}

// HashBTCAddress derives the on-chain key from a raw Bitcoin address.
// Deterministic: the same address always yields the same hash.
func HashBTCAddress(btcAddress string) Hash {
	sum := sha256.Sum256([]byte(strings.TrimSpace(btcAddress)))
	var h Hash
	copy(h[:], sum[:HashSize])
	return h
}

// ParseHash accepts the hex form produced by Hash.Hex, with or without
// the 0x prefix.
func ParseHash(input string) (Hash, error) {
	raw := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(input)), "0x")
	var h Hash
	decoded, err := hex.DecodeString(raw)
	if err != nil {
		return h, fmt.Errorf("invalid_hash")
	}
	if len(decoded) != HashSize {
		return h, fmt.Errorf("invalid_hash_length")
	}
	copy(h[:], decoded)
	return h, nil
}

// Event is a single contract event buffered during an operation and
// published only if the operation commits.
type Event struct {
	Name string
	Data any
}

// Receipt describes one committed operation.
type Receipt struct {
	TxHash    string
	Caller    Address
	Timestamp uint64
	Events    []Event
}

// Observer is notified about the outcome of executed operations.
// Committed receives the receipt after all writes are final; Reverted
// receives the error that discarded the operation's writes.
type Observer interface {
	Committed(Receipt)
	Reverted(Address, error)
}
