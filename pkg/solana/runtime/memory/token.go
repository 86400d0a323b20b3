package memory

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"math"

	"github.com/mr-tron/base58/base58"
	"github.com/pkg/errors"

	"github.com/code-payments/amm-program/pkg/solana"
	"github.com/code-payments/amm-program/pkg/solana/runtime"
	"github.com/code-payments/amm-program/pkg/solana/token"
)

// processToken applies a token program instruction. Signatures and
// writability have already been checked by the invocation.
//
// Reference: https://github.com/solana-labs/solana-program-library/blob/b011698251981b5a12088acba18fad1d41c3719a/token/program/src/processor.rs
func (l *Ledger) processToken(_ context.Context, instruction solana.Instruction) error {
	cmd, err := token.GetCommand(instruction)
	if err != nil {
		return err
	}

	switch cmd {
	case token.CommandTransfer:
		return l.tokenTransfer(instruction)
	case token.CommandMintTo:
		return l.tokenMintTo(instruction)
	case token.CommandBurn:
		return l.tokenBurn(instruction)
	case token.CommandInitializeMint2:
		return l.tokenInitializeMint2(instruction)
	default:
		return errors.Wrapf(token.ErrorInvalidInstruction, "unsupported token command %d", cmd)
	}
}

func (l *Ledger) tokenTransfer(instruction solana.Instruction) error {
	decompiled, err := token.DecompileTransfer(instruction)
	if err != nil {
		return errors.Wrap(token.ErrorInvalidInstruction, err.Error())
	}

	srcAccount, src, err := l.loadTokenAccount(decompiled.Source)
	if err != nil {
		return err
	}
	dstAccount, dst, err := l.loadTokenAccount(decompiled.Destination)
	if err != nil {
		return err
	}

	if !bytes.Equal(src.Mint, dst.Mint) {
		return token.ErrorMintMismatch
	}
	if !bytes.Equal(src.Owner, decompiled.Owner) {
		return token.ErrorOwnerMismatch
	}
	if src.Amount < decompiled.Amount {
		return token.ErrorInsufficientFunds
	}

	// Self transfers are validated but leave the balance untouched.
	if bytes.Equal(decompiled.Source, decompiled.Destination) {
		return nil
	}

	if dst.Amount > math.MaxUint64-decompiled.Amount {
		return token.ErrorOverflow
	}

	src.Amount -= decompiled.Amount
	dst.Amount += decompiled.Amount

	copy(srcAccount.Data, src.Marshal())
	copy(dstAccount.Data, dst.Marshal())
	return nil
}

func (l *Ledger) tokenMintTo(instruction solana.Instruction) error {
	decompiled, err := token.DecompileMintTo(instruction)
	if err != nil {
		return errors.Wrap(token.ErrorInvalidInstruction, err.Error())
	}

	dstAccount, dst, err := l.loadTokenAccount(decompiled.Destination)
	if err != nil {
		return err
	}
	mintAccount, mint, err := l.loadMint(decompiled.Mint)
	if err != nil {
		return err
	}

	if !bytes.Equal(dst.Mint, decompiled.Mint) {
		return token.ErrorMintMismatch
	}
	if len(mint.MintAuthority) == 0 {
		return token.ErrorFixedSupply
	}
	if !bytes.Equal(mint.MintAuthority, decompiled.Authority) {
		return token.ErrorOwnerMismatch
	}
	if mint.Supply > math.MaxUint64-decompiled.Amount || dst.Amount > math.MaxUint64-decompiled.Amount {
		return token.ErrorOverflow
	}

	mint.Supply += decompiled.Amount
	dst.Amount += decompiled.Amount

	copy(mintAccount.Data, mint.Marshal())
	copy(dstAccount.Data, dst.Marshal())
	return nil
}

func (l *Ledger) tokenBurn(instruction solana.Instruction) error {
	decompiled, err := token.DecompileBurn(instruction)
	if err != nil {
		return errors.Wrap(token.ErrorInvalidInstruction, err.Error())
	}

	srcAccount, src, err := l.loadTokenAccount(decompiled.Account)
	if err != nil {
		return err
	}
	mintAccount, mint, err := l.loadMint(decompiled.Mint)
	if err != nil {
		return err
	}

	if !bytes.Equal(src.Mint, decompiled.Mint) {
		return token.ErrorMintMismatch
	}
	if !bytes.Equal(src.Owner, decompiled.Owner) {
		return token.ErrorOwnerMismatch
	}
	if src.Amount < decompiled.Amount {
		return token.ErrorInsufficientFunds
	}
	if mint.Supply < decompiled.Amount {
		return token.ErrorOverflow
	}

	src.Amount -= decompiled.Amount
	mint.Supply -= decompiled.Amount

	copy(srcAccount.Data, src.Marshal())
	copy(mintAccount.Data, mint.Marshal())
	return nil
}

func (l *Ledger) tokenInitializeMint2(instruction solana.Instruction) error {
	decompiled, err := token.DecompileInitializeMint2(instruction)
	if err != nil {
		return errors.Wrap(token.ErrorInvalidInstruction, err.Error())
	}

	account, ok := l.lookup(decompiled.Mint)
	if !ok {
		return errors.Wrap(ErrAccountNotFound, base58.Encode(decompiled.Mint))
	}
	if !bytes.Equal(account.Owner, token.ProgramKey) {
		return errors.Wrap(ErrInvalidAccountOwner, base58.Encode(decompiled.Mint))
	}
	if len(account.Data) != token.MintSize {
		return errors.Wrap(ErrInvalidAccountData, base58.Encode(decompiled.Mint))
	}

	var mint token.Mint
	mint.Unmarshal(account.Data)
	if mint.IsInitialized {
		return token.ErrorAlreadyInUse
	}
	if account.Lamports < minimumBalance(token.MintSize) {
		return token.ErrorNotRentExempt
	}

	mint = token.Mint{
		MintAuthority:   decompiled.MintAuthority,
		Decimals:        decompiled.Decimals,
		IsInitialized:   true,
		FreezeAuthority: decompiled.FreezeAuthority,
	}
	copy(account.Data, mint.Marshal())
	return nil
}

func (l *Ledger) loadTokenAccount(key ed25519.PublicKey) (*runtime.Account, *token.Account, error) {
	account, ok := l.lookup(key)
	if !ok {
		return nil, nil, errors.Wrap(ErrAccountNotFound, base58.Encode(key))
	}
	if !bytes.Equal(account.Owner, token.ProgramKey) {
		return nil, nil, errors.Wrap(ErrInvalidAccountOwner, base58.Encode(key))
	}

	var decoded token.Account
	if !decoded.Unmarshal(account.Data) {
		return nil, nil, errors.Wrap(ErrInvalidAccountData, base58.Encode(key))
	}

	switch decoded.State {
	case token.AccountStateInitialized:
	case token.AccountStateFrozen:
		return nil, nil, token.ErrorAccountFrozen
	default:
		return nil, nil, token.ErrorUninitializedState
	}

	return account, &decoded, nil
}

func (l *Ledger) loadMint(key ed25519.PublicKey) (*runtime.Account, *token.Mint, error) {
	account, ok := l.lookup(key)
	if !ok {
		return nil, nil, errors.Wrap(ErrAccountNotFound, base58.Encode(key))
	}
	if !bytes.Equal(account.Owner, token.ProgramKey) {
		return nil, nil, errors.Wrap(ErrInvalidAccountOwner, base58.Encode(key))
	}

	var decoded token.Mint
	if !decoded.Unmarshal(account.Data) {
		return nil, nil, errors.Wrap(ErrInvalidAccountData, base58.Encode(key))
	}
	if !decoded.IsInitialized {
		return nil, nil, token.ErrorUninitializedState
	}

	return account, &decoded, nil
}
