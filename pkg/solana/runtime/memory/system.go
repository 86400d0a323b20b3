package memory

import (
	"bytes"
	"context"
	"crypto/ed25519"

	"github.com/mr-tron/base58/base58"
	"github.com/pkg/errors"

	"github.com/code-payments/amm-program/pkg/solana"
	"github.com/code-payments/amm-program/pkg/solana/system"
)

// processSystem applies a system program instruction. Only account creation
// is supported.
//
// Reference: https://github.com/solana-labs/solana/blob/f02a78d8fff2dd7297dc6ce6eb5a68a3002f5359/runtime/src/system_instruction_processor.rs
func (l *Ledger) processSystem(_ context.Context, instruction solana.Instruction) error {
	decompiled, err := system.DecompileCreateAccount(instruction)
	if err != nil {
		return errors.Wrap(ErrUnsupportedProgram, err.Error())
	}

	if decompiled.Size > maxAccountDataSize {
		return errors.Wrapf(ErrInvalidAccountData, "size %d exceeds maximum", decompiled.Size)
	}

	funder, ok := l.lookup(decompiled.Funder)
	if !ok {
		return errors.Wrap(ErrAccountNotFound, base58.Encode(decompiled.Funder))
	}
	if !isSystemOwned(funder.Owner) || len(funder.Data) > 0 {
		return errors.Wrap(ErrInvalidAccountOwner, "funder must be a system account without data")
	}
	if funder.Lamports < decompiled.Lamports {
		return errors.Wrapf(ErrInsufficientFunds, "funder has %d lamports, need %d", funder.Lamports, decompiled.Lamports)
	}

	created, ok := l.lookup(decompiled.Address)
	if !ok {
		return errors.Wrap(ErrAccountNotFound, base58.Encode(decompiled.Address))
	}
	if created.Lamports > 0 || len(created.Data) > 0 || !isSystemOwned(created.Owner) {
		return errors.Wrap(ErrAccountAlreadyInUse, base58.Encode(decompiled.Address))
	}

	funder.Lamports -= decompiled.Lamports
	created.Lamports = decompiled.Lamports
	created.Data = make([]byte, decompiled.Size)
	created.Owner = make(ed25519.PublicKey, ed25519.PublicKeySize)
	copy(created.Owner, decompiled.Owner)
	return nil
}

func isSystemOwned(owner ed25519.PublicKey) bool {
	return bytes.Equal(owner, system.ProgramKey[:])
}
