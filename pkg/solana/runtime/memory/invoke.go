package memory

import (
	"bytes"
	"context"

	"github.com/mr-tron/base58/base58"
	"github.com/pkg/errors"

	"github.com/code-payments/amm-program/pkg/solana"
	"github.com/code-payments/amm-program/pkg/solana/runtime"
	"github.com/code-payments/amm-program/pkg/solana/system"
	"github.com/code-payments/amm-program/pkg/solana/token"
)

// invocation is the runtime.Invoker handed to a program for one instruction.
type invocation struct {
	ledger    *Ledger
	programID []byte
	provided  map[string]*runtime.AccountInfo
}

// Invoke implements runtime.Invoker.
func (i *invocation) Invoke(ctx context.Context, instruction solana.Instruction, signers ...runtime.Signer) error {
	if _, ok := i.provided[string(instruction.Program)]; !ok {
		return errors.Wrapf(ErrAccountNotProvided, "program %s", base58.Encode(instruction.Program))
	}

	derived := make(map[string]struct{})
	for _, seeds := range signers {
		address, err := solana.CreateProgramAddress(i.programID, seeds...)
		if err != nil {
			return errors.Wrap(ErrInvalidSigner, err.Error())
		}
		derived[string(address)] = struct{}{}
	}

	for _, meta := range instruction.Accounts {
		info, ok := i.provided[string(meta.PublicKey)]
		if !ok {
			return errors.Wrap(ErrAccountNotProvided, base58.Encode(meta.PublicKey))
		}

		if meta.IsSigner && !info.IsSigner {
			if _, ok := derived[string(meta.PublicKey)]; !ok {
				return errors.Wrap(ErrMissingSignature, base58.Encode(meta.PublicKey))
			}
		}

		if meta.IsWritable && !info.IsWritable {
			return errors.Wrap(ErrReadonlyAccount, base58.Encode(meta.PublicKey))
		}
	}

	switch {
	case bytes.Equal(instruction.Program, token.ProgramKey):
		return i.ledger.processToken(ctx, instruction)
	case bytes.Equal(instruction.Program, system.ProgramKey[:]):
		return i.ledger.processSystem(ctx, instruction)
	default:
		return errors.Wrap(ErrUnsupportedProgram, base58.Encode(instruction.Program))
	}
}

// checkReadonly verifies that accounts supplied without the writable flag
// match their snapshot.
func (i *invocation) checkReadonly(snapshot map[string]*runtime.Account) error {
	for k, info := range i.provided {
		if info.IsWritable {
			continue
		}

		saved := snapshot[k]
		if saved == nil {
			continue
		}

		if info.Lamports != saved.Lamports || !bytes.Equal(info.Owner, saved.Owner) || !bytes.Equal(info.Data, saved.Data) {
			return errors.Wrap(ErrReadonlyModified, base58.Encode(info.Key))
		}
	}
	return nil
}
