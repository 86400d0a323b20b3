package amm

import (
	"context"
	"crypto/ed25519"

	bin "github.com/gagliardetto/binary"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/amm-program/pkg/solana"
	"github.com/code-payments/amm-program/pkg/solana/runtime"
	"github.com/code-payments/amm-program/pkg/solana/token"
)

const (
	DepositInstructionArgsSize = (8 + // amount
		8 + // max_x
		8 + // max_y
		8) // expiration
)

type DepositInstructionArgs struct {
	// Amount of LP tokens minted to the depositor
	Amount     uint64
	MaxX       uint64
	MaxY       uint64
	Expiration int64
}

func (args *DepositInstructionArgs) MarshalWithEncoder(encoder *bin.Encoder) error {
	if err := encoder.WriteUint64(args.Amount, bin.LE); err != nil {
		return err
	}
	if err := encoder.WriteUint64(args.MaxX, bin.LE); err != nil {
		return err
	}
	if err := encoder.WriteUint64(args.MaxY, bin.LE); err != nil {
		return err
	}
	return encoder.WriteInt64(args.Expiration, bin.LE)
}

func (args *DepositInstructionArgs) UnmarshalWithDecoder(decoder *bin.Decoder) (err error) {
	if args.Amount, err = decoder.ReadUint64(bin.LE); err != nil {
		return err
	}
	if args.MaxX, err = decoder.ReadUint64(bin.LE); err != nil {
		return err
	}
	if args.MaxY, err = decoder.ReadUint64(bin.LE); err != nil {
		return err
	}
	args.Expiration, err = decoder.ReadInt64(bin.LE)
	return err
}

func (args *DepositInstructionArgs) Marshal() []byte {
	return marshal(args)
}

func (args *DepositInstructionArgs) Unmarshal(data []byte) error {
	if len(data) != DepositInstructionArgsSize {
		return errors.Wrapf(ErrMalformedInput, "deposit payload is %d bytes", len(data))
	}
	return unmarshal(args, data)
}

// Validate checks the arguments' business rules
func (args *DepositInstructionArgs) Validate() error {
	if args.Amount == 0 {
		return errors.Wrap(ErrInvalidArgument, "lp amount must be positive")
	}
	return nil
}

type DepositInstructionAccounts = LiquidityInstructionAccounts

func NewDepositInstruction(
	programID ed25519.PublicKey,
	accounts *DepositInstructionAccounts,
	args *DepositInstructionArgs,
) solana.Instruction {
	return solana.NewInstruction(
		programID,
		instructionData(InstructionTypeDeposit, args.Marshal()),
		accounts.metas()...,
	)
}

type depositInstruction struct {
	accounts *liquidityAccounts
	args     *DepositInstructionArgs
}

func (p *Program) newDepositInstruction(ctx context.Context, env runtime.Environment, accounts []runtime.AccountInfo, data []byte) (*depositInstruction, error) {
	validated, err := newLiquidityAccounts(p.programID, accounts)
	if err != nil {
		return nil, err
	}

	var args DepositInstructionArgs
	if err := args.Unmarshal(data); err != nil {
		return nil, err
	}
	if err := args.Validate(); err != nil {
		return nil, err
	}
	if err := checkExpiration(ctx, env.Clock, args.Expiration); err != nil {
		return nil, err
	}

	if validated.pool.State() != PoolStateInitialized {
		return nil, errors.Wrapf(ErrStateViolation, "cannot deposit into %s pool", validated.pool.State())
	}

	return &depositInstruction{
		accounts: validated,
		args:     &args,
	}, nil
}

// processDeposit moves the caller's chosen amounts into the vaults and mints
// the requested LP tokens. The amounts are not checked against the pool's
// current ratio.
func (p *Program) processDeposit(ctx context.Context, env runtime.Environment, ix *depositInstruction) error {
	accounts, args := ix.accounts, ix.args

	if args.MaxX > 0 {
		err := env.Invoker.Invoke(ctx, token.Transfer(accounts.userX.Key, accounts.vaultX.Key, accounts.user.Key, args.MaxX))
		if err != nil {
			return errors.Wrap(err, "error depositing x")
		}
	}

	if args.MaxY > 0 {
		err := env.Invoker.Invoke(ctx, token.Transfer(accounts.userY.Key, accounts.vaultY.Key, accounts.user.Key, args.MaxY))
		if err != nil {
			return errors.Wrap(err, "error depositing y")
		}
	}

	err := env.Invoker.Invoke(
		ctx,
		token.MintTo(accounts.mintLp.Key, accounts.userLp.Key, accounts.config.Key, args.Amount),
		accounts.pool.Signer(),
	)
	if err != nil {
		return errors.Wrap(err, "error minting lp tokens")
	}

	p.log.WithFields(logrus.Fields{
		"method": "processDeposit",
		"lp":     args.Amount,
		"x":      args.MaxX,
		"y":      args.MaxY,
	}).Trace("deposited liquidity")
	return nil
}
