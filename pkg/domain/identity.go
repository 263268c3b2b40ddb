package domain

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// ID is an opaque 256-bit entity identifier rendered as a short type prefix
// plus 64 lowercase hex characters, e.g. "agr_3f9c...".
type ID string

const idHexLen = 64

// NewID generates a fresh random ID with the given prefix.
func NewID(prefix string) ID {
	var b [32]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(fmt.Sprintf("id entropy: %v", err))
	}
	return ID(prefix + "_" + hex.EncodeToString(b[:]))
}

func (id ID) Validate() error {
	i := strings.IndexByte(string(id), '_')
	if i <= 0 {
		return errors.New("id missing type prefix")
	}
	hexPart := string(id)[i+1:]
	if len(hexPart) != idHexLen {
		return fmt.Errorf("id hex part must be %d chars, got %d", idHexLen, len(hexPart))
	}
	if _, err := hex.DecodeString(hexPart); err != nil {
		return errors.New("id hex part is not valid hex")
	}
	return nil
}

// Address identifies an account: "acct_" plus the hex of its Ed25519 public
// key. Every authenticated call attests to one of these.
type Address string

const addressPrefix = "acct_"

func AddressFromPublicKey(pub ed25519.PublicKey) Address {
	return Address(addressPrefix + hex.EncodeToString(pub))
}

func (a Address) Validate() error {
	s := string(a)
	if !strings.HasPrefix(s, addressPrefix) {
		return errors.New("address missing acct_ prefix")
	}
	raw, err := hex.DecodeString(strings.TrimPrefix(s, addressPrefix))
	if err != nil {
		return errors.New("address is not valid hex")
	}
	if len(raw) != ed25519.PublicKeySize {
		return fmt.Errorf("address must encode a %d-byte key, got %d", ed25519.PublicKeySize, len(raw))
	}
	return nil
}

// PublicKey recovers the Ed25519 public key an address encodes.
func (a Address) PublicKey() (ed25519.PublicKey, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	raw, _ := hex.DecodeString(strings.TrimPrefix(string(a), addressPrefix))
	return ed25519.PublicKey(raw), nil
}
