package amm

import (
	"crypto/ed25519"
	"encoding/binary"

	"github.com/code-payments/amm-program/pkg/solana"
	"github.com/code-payments/amm-program/pkg/solana/token"
)

type GetConfigAddressArgs struct {
	Seed  uint64
	MintX ed25519.PublicKey
	MintY ed25519.PublicKey
}

// FindConfigAddress returns the canonical config address and bump of a pool
func FindConfigAddress(programID ed25519.PublicKey, args *GetConfigAddressArgs) (ed25519.PublicKey, uint8, error) {
	return solana.FindProgramAddressAndBump(
		programID,
		ConfigPrefix,
		seedBytes(args.Seed),
		args.MintX,
		args.MintY,
	)
}

// GetConfigAddress returns the config address of a pool for a known bump
func GetConfigAddress(programID ed25519.PublicKey, args *GetConfigAddressArgs, bump uint8) (ed25519.PublicKey, error) {
	return solana.CreateProgramAddress(programID, configSeeds(args.Seed, args.MintX, args.MintY, bump)...)
}

// FindLpMintAddress returns the canonical LP mint address and bump of a pool
func FindLpMintAddress(programID, config ed25519.PublicKey) (ed25519.PublicKey, uint8, error) {
	return solana.FindProgramAddressAndBump(
		programID,
		LpMintPrefix,
		config,
	)
}

// GetLpMintAddress returns the LP mint address of a pool for a known bump
func GetLpMintAddress(programID, config ed25519.PublicKey, bump uint8) (ed25519.PublicKey, error) {
	return solana.CreateProgramAddress(programID, lpMintSeeds(config, bump)...)
}

// GetVaultAddress returns the vault holding mint on behalf of the pool's
// config. Vaults are associated token accounts of the config address.
func GetVaultAddress(config, mint ed25519.PublicKey) (ed25519.PublicKey, error) {
	return token.GetAssociatedAccount(config, mint)
}

func configSeeds(seed uint64, mintX, mintY ed25519.PublicKey, bump uint8) [][]byte {
	return [][]byte{
		ConfigPrefix,
		seedBytes(seed),
		mintX,
		mintY,
		{bump},
	}
}

func lpMintSeeds(config ed25519.PublicKey, bump uint8) [][]byte {
	return [][]byte{
		LpMintPrefix,
		config,
		{bump},
	}
}

func seedBytes(seed uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, seed)
	return b
}
