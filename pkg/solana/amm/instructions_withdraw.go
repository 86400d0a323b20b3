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
	WithdrawInstructionArgsSize = (8 + // amount
		8 + // min_x
		8 + // min_y
		8) // expiration
)

type WithdrawInstructionArgs struct {
	// Amount of LP tokens burned by the withdrawer
	Amount     uint64
	MinX       uint64
	MinY       uint64
	Expiration int64
}

func (args *WithdrawInstructionArgs) MarshalWithEncoder(encoder *bin.Encoder) error {
	if err := encoder.WriteUint64(args.Amount, bin.LE); err != nil {
		return err
	}
	if err := encoder.WriteUint64(args.MinX, bin.LE); err != nil {
		return err
	}
	if err := encoder.WriteUint64(args.MinY, bin.LE); err != nil {
		return err
	}
	return encoder.WriteInt64(args.Expiration, bin.LE)
}

func (args *WithdrawInstructionArgs) UnmarshalWithDecoder(decoder *bin.Decoder) (err error) {
	if args.Amount, err = decoder.ReadUint64(bin.LE); err != nil {
		return err
	}
	if args.MinX, err = decoder.ReadUint64(bin.LE); err != nil {
		return err
	}
	if args.MinY, err = decoder.ReadUint64(bin.LE); err != nil {
		return err
	}
	args.Expiration, err = decoder.ReadInt64(bin.LE)
	return err
}

func (args *WithdrawInstructionArgs) Marshal() []byte {
	return marshal(args)
}

func (args *WithdrawInstructionArgs) Unmarshal(data []byte) error {
	if len(data) != WithdrawInstructionArgsSize {
		return errors.Wrapf(ErrMalformedInput, "withdraw payload is %d bytes", len(data))
	}
	return unmarshal(args, data)
}

// Validate checks the arguments' business rules
func (args *WithdrawInstructionArgs) Validate() error {
	if args.Amount == 0 {
		return errors.Wrap(ErrInvalidArgument, "lp amount must be positive")
	}
	return nil
}

type WithdrawInstructionAccounts = LiquidityInstructionAccounts

func NewWithdrawInstruction(
	programID ed25519.PublicKey,
	accounts *WithdrawInstructionAccounts,
	args *WithdrawInstructionArgs,
) solana.Instruction {
	return solana.NewInstruction(
		programID,
		instructionData(InstructionTypeWithdraw, args.Marshal()),
		accounts.metas()...,
	)
}

type withdrawInstruction struct {
	accounts *liquidityAccounts
	args     *WithdrawInstructionArgs
}

// newWithdrawInstruction validates a withdrawal, quoting it against the
// current reserves. Withdrawals are accepted in every pool state.
func (p *Program) newWithdrawInstruction(ctx context.Context, env runtime.Environment, accounts []runtime.AccountInfo, data []byte) (*withdrawInstruction, error) {
	validated, err := newLiquidityAccounts(p.programID, accounts)
	if err != nil {
		return nil, err
	}

	var args WithdrawInstructionArgs
	if err := args.Unmarshal(data); err != nil {
		return nil, err
	}
	if err := args.Validate(); err != nil {
		return nil, err
	}
	if err := checkExpiration(ctx, env.Clock, args.Expiration); err != nil {
		return nil, err
	}

	ix := &withdrawInstruction{
		accounts: validated,
		args:     &args,
	}
	if _, err := ix.quote(); err != nil {
		return nil, err
	}
	return ix, nil
}

func (ix *withdrawInstruction) quote() (*WithdrawQuote, error) {
	mint, err := loadMint(ix.accounts.mintLp)
	if err != nil {
		return nil, err
	}

	x, y, err := ix.accounts.reserves()
	if err != nil {
		return nil, err
	}

	return QuoteWithdraw(x, y, mint.Supply, ix.args.Amount, ix.args.MinX, ix.args.MinY)
}

// processWithdraw burns the LP tokens before paying out the reserves. The
// quote is recomputed from the same accounts it was validated against, and
// the floors are enforced again.
func (p *Program) processWithdraw(ctx context.Context, env runtime.Environment, ix *withdrawInstruction) error {
	accounts, args := ix.accounts, ix.args

	quote, err := ix.quote()
	if err != nil {
		return err
	}

	err = env.Invoker.Invoke(ctx, token.Burn(accounts.userLp.Key, accounts.mintLp.Key, accounts.user.Key, args.Amount))
	if err != nil {
		return errors.Wrap(err, "error burning lp tokens")
	}

	signer := accounts.pool.Signer()

	if quote.X > 0 {
		err := env.Invoker.Invoke(ctx, token.Transfer(accounts.vaultX.Key, accounts.userX.Key, accounts.config.Key, quote.X), signer)
		if err != nil {
			return errors.Wrap(err, "error withdrawing x")
		}
	}

	if quote.Y > 0 {
		err := env.Invoker.Invoke(ctx, token.Transfer(accounts.vaultY.Key, accounts.userY.Key, accounts.config.Key, quote.Y), signer)
		if err != nil {
			return errors.Wrap(err, "error withdrawing y")
		}
	}

	p.log.WithFields(logrus.Fields{
		"method": "processWithdraw",
		"lp":     args.Amount,
		"x":      quote.X,
		"y":      quote.Y,
	}).Trace("withdrew liquidity")
	return nil
}
