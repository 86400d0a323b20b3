// Package amm implements a constant-product automated market maker program.
//
// A pool holds two assets in vaults owned by the pool's config address and
// issues LP tokens against them. Instructions are decoded, validated against
// the supplied accounts and executed through cross-program invocations of the
// token and system programs.
package amm

import (
	"crypto/ed25519"

	"github.com/mr-tron/base58"
)

var (
	ConfigPrefix = []byte("config")
	LpMintPrefix = []byte("mint_lp")
)

const (
	// LpMintDecimals is the number of decimals of every pool's LP mint
	LpMintDecimals = 6

	// MaxFeeBps is the exclusive upper bound of a pool's fee, in basis points
	MaxFeeBps = 10_000

	// withdrawPrecision scales the share of liquidity remaining after a
	// partial withdrawal
	withdrawPrecision = 1_000_000
)

var (
	// DefaultProgramID is the address the program is deployed at unless
	// configured otherwise
	DefaultProgramID = ed25519.PublicKey(mustBase58Decode("22222222222222222222222222222222222222222222"))
)

func mustBase58Decode(value string) []byte {
	decoded, err := base58.Decode(value)
	if err != nil {
		panic(err)
	}
	return decoded
}
