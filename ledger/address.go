package ledger

import (
	"crypto/sha256"
	"fmt"

	"github.com/google/uuid"
	"github.com/stellar/go/strkey"
)

// Address identifies an account (G...) or a contract instance (C...).
type Address string

func (a Address) String() string { return string(a) }

// IsContract reports whether a is a contract address.
func (a Address) IsContract() bool {
	_, err := strkey.Decode(strkey.VersionByteContract, string(a))
	return err == nil
}

// ParseAddress validates an account or contract strkey.
func ParseAddress(s string) (Address, error) {
	if strkey.IsValidEd25519PublicKey(s) {
		return Address(s), nil
	}
	if _, err := strkey.Decode(strkey.VersionByteContract, s); err == nil {
		return Address(s), nil
	}
	return "", fmt.Errorf("%w: malformed address %q", ErrInvalidArgument, s)
}

// ContractAddress derives a contract address from an arbitrary seed.
func ContractAddress(seed []byte) Address {
	sum := sha256.Sum256(seed)
	s, err := strkey.Encode(strkey.VersionByteContract, sum[:])
	if err != nil {
		// a 32 byte payload always encodes
		panic(err)
	}
	return Address(s)
}

func newContractAddress() Address {
	id := uuid.New()
	return ContractAddress(id[:])
}
