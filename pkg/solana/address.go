package solana

import (
	"bytes"
	"crypto/ed25519"
	"crypto/sha256"
	"math"

	"github.com/jdgcs/ed25519/edwards25519"
	"github.com/pkg/errors"
)

const (
	MaxSeeds      = 16
	MaxSeedLength = 32
)

var (
	ErrTooManySeeds          = errors.New("too many seeds")
	ErrMaxSeedLengthExceeded = errors.New("max seed length exceeded")
	ErrInvalidPublicKey      = errors.New("invalid public key")
	ErrNoViableBump          = errors.New("unable to find a viable program address bump seed")
	ErrAddressMismatch       = errors.New("derived address mismatch")
)

var (
	programHashCtor = sha256.New

	programDerivedAddressMarker = []byte("ProgramDerivedAddress")
)

// CreateProgramAddress derives the address for the seed list under the given
// program. The seed list must already include the bump, if any.
//
// Derived addresses _must not_ lie on the ed25519 curve, so that no private key
// exists for them. If the hash happens to be a valid curve point,
// ErrInvalidPublicKey is returned and the caller is expected to try another
// bump.
//
// Reference: https://github.com/solana-labs/solana/blob/5548e599fe4920b71766e0ad1d121755ce9c63d5/sdk/program/src/pubkey.rs#L158
func CreateProgramAddress(program ed25519.PublicKey, seeds ...[]byte) (ed25519.PublicKey, error) {
	if len(seeds) > MaxSeeds {
		return nil, ErrTooManySeeds
	}

	h := programHashCtor()
	for _, seed := range seeds {
		if len(seed) > MaxSeedLength {
			return nil, ErrMaxSeedLengthExceeded
		}

		if _, err := h.Write(seed); err != nil {
			return nil, errors.Wrap(err, "failed to hash seed")
		}
	}

	if _, err := h.Write(program); err != nil {
		return nil, errors.Wrap(err, "failed to hash program")
	}
	if _, err := h.Write(programDerivedAddressMarker); err != nil {
		return nil, errors.Wrap(err, "failed to hash marker")
	}

	var candidate [32]byte
	copy(candidate[:], h.Sum(nil))

	// The standard library keeps its edwards25519 point type internal, so the
	// curve membership test goes through the same decompression routine that
	// ed25519.Verify uses, exposed by the jdgcs fork.
	var point edwards25519.ExtendedGroupElement
	if point.FromBytes(&candidate) {
		return nil, ErrInvalidPublicKey
	}

	return candidate[:], nil
}

// FindProgramAddressAndBump searches bump seeds from 255 downward and returns
// the first derived address that is off the curve, along with its bump.
//
// Reference: https://github.com/solana-labs/solana/blob/5548e599fe4920b71766e0ad1d121755ce9c63d5/sdk/program/src/pubkey.rs#L234
func FindProgramAddressAndBump(program ed25519.PublicKey, seeds ...[]byte) (ed25519.PublicKey, uint8, error) {
	withBump := make([][]byte, len(seeds)+1)
	copy(withBump, seeds)

	bump := uint8(math.MaxUint8)
	for i := 0; i < math.MaxUint8; i++ {
		withBump[len(seeds)] = []byte{bump}

		address, err := CreateProgramAddress(program, withBump...)
		if err == nil {
			return address, bump, nil
		}
		if err != ErrInvalidPublicKey {
			return nil, 0, err
		}

		bump--
	}

	return nil, 0, ErrNoViableBump
}

// FindProgramAddress is FindProgramAddressAndBump without the bump.
func FindProgramAddress(program ed25519.PublicKey, seeds ...[]byte) (ed25519.PublicKey, error) {
	address, _, err := FindProgramAddressAndBump(program, seeds...)
	return address, err
}

// VerifyProgramAddress recomputes the address for the seed list (bump
// included) and checks that it is byte-identical to the expected address.
func VerifyProgramAddress(expected, program ed25519.PublicKey, seeds ...[]byte) error {
	actual, err := CreateProgramAddress(program, seeds...)
	if err != nil {
		return errors.Wrap(ErrAddressMismatch, err.Error())
	}

	if !bytes.Equal(expected, actual) {
		return ErrAddressMismatch
	}
	return nil
}
