package amm

import (
	"bytes"
	"context"
	"crypto/ed25519"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"

	"github.com/code-payments/amm-program/pkg/solana/runtime"
	"github.com/code-payments/amm-program/pkg/solana/system"
	"github.com/code-payments/amm-program/pkg/solana/token"
)

func checkSigner(info *runtime.AccountInfo) error {
	if !info.IsSigner {
		return errors.Wrap(ErrMissingRequiredSignature, base58.Encode(info.Key))
	}
	return nil
}

func checkTokenProgram(info *runtime.AccountInfo) error {
	if !bytes.Equal(info.Key, token.ProgramKey) {
		return errors.Wrapf(ErrInvalidArgument, "%s is not the token program", base58.Encode(info.Key))
	}
	return nil
}

func checkSystemProgram(info *runtime.AccountInfo) error {
	if !bytes.Equal(info.Key, system.ProgramKey[:]) {
		return errors.Wrapf(ErrInvalidArgument, "%s is not the system program", base58.Encode(info.Key))
	}
	return nil
}

// checkVault verifies info is the vault of the config for mint
func checkVault(config, mint ed25519.PublicKey, info *runtime.AccountInfo) error {
	expected, err := GetVaultAddress(config, mint)
	if err != nil {
		return errors.Wrap(ErrAddressMismatch, err.Error())
	}
	if !bytes.Equal(expected, info.Key) {
		return errors.Wrapf(ErrAddressMismatch, "expected vault %s, got %s", base58.Encode(expected), base58.Encode(info.Key))
	}
	return nil
}

// loadTokenAccount decodes the token account held by info after checking the
// account's size and owner
func loadTokenAccount(info *runtime.AccountInfo) (*token.Account, error) {
	if len(info.Data) != token.AccountSize || !bytes.Equal(info.Owner, token.ProgramKey) {
		return nil, errors.Wrapf(ErrAccountShapeViolation, "%s is not a token account", base58.Encode(info.Key))
	}

	var account token.Account
	if !account.Unmarshal(info.Data) {
		return nil, errors.Wrapf(ErrAccountShapeViolation, "%s is not a token account", base58.Encode(info.Key))
	}
	return &account, nil
}

// loadMint decodes the mint held by info after checking the account's size
// and owner
func loadMint(info *runtime.AccountInfo) (*token.Mint, error) {
	if len(info.Data) != token.MintSize || !bytes.Equal(info.Owner, token.ProgramKey) {
		return nil, errors.Wrapf(ErrAccountShapeViolation, "%s is not a mint", base58.Encode(info.Key))
	}

	var mint token.Mint
	if !mint.Unmarshal(info.Data) {
		return nil, errors.Wrapf(ErrAccountShapeViolation, "%s is not a mint", base58.Encode(info.Key))
	}
	return &mint, nil
}

// checkLpMint verifies info is a mint whose authority is the config
func checkLpMint(config ed25519.PublicKey, info *runtime.AccountInfo) (*token.Mint, error) {
	mint, err := loadMint(info)
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(mint.MintAuthority, config) {
		return nil, errors.Wrapf(ErrAddressMismatch, "%s is not minted by config %s", base58.Encode(info.Key), base58.Encode(config))
	}
	return mint, nil
}

// checkExpiration fails when expiration is set and the ledger clock has
// passed it
func checkExpiration(ctx context.Context, clock runtime.Clock, expiration int64) error {
	if expiration == 0 {
		return nil
	}

	now, err := clock.UnixTimestamp(ctx)
	if err != nil {
		return errors.Wrap(err, "error reading clock")
	}
	if now > expiration {
		return errors.Wrapf(ErrExpired, "expired at %d, now %d", expiration, now)
	}
	return nil
}
