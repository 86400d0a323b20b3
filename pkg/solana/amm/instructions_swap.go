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
	SwapInstructionArgsSize = (1 + // is_x
		8 + // amount
		8 + // min
		8) // expiration
)

type SwapInstructionArgs struct {
	// IsX is set when the trader pays in X and receives Y
	IsX        bool
	Amount     uint64
	Min        uint64
	Expiration int64
}

func (args *SwapInstructionArgs) MarshalWithEncoder(encoder *bin.Encoder) error {
	var isX uint8
	if args.IsX {
		isX = 1
	}

	if err := encoder.WriteUint8(isX); err != nil {
		return err
	}
	if err := encoder.WriteUint64(args.Amount, bin.LE); err != nil {
		return err
	}
	if err := encoder.WriteUint64(args.Min, bin.LE); err != nil {
		return err
	}
	return encoder.WriteInt64(args.Expiration, bin.LE)
}

func (args *SwapInstructionArgs) UnmarshalWithDecoder(decoder *bin.Decoder) (err error) {
	isX, err := decoder.ReadUint8()
	if err != nil {
		return err
	}
	switch isX {
	case 0, 1:
		args.IsX = isX == 1
	default:
		return errors.Errorf("invalid direction flag %d", isX)
	}

	if args.Amount, err = decoder.ReadUint64(bin.LE); err != nil {
		return err
	}
	if args.Min, err = decoder.ReadUint64(bin.LE); err != nil {
		return err
	}
	args.Expiration, err = decoder.ReadInt64(bin.LE)
	return err
}

func (args *SwapInstructionArgs) Marshal() []byte {
	return marshal(args)
}

func (args *SwapInstructionArgs) Unmarshal(data []byte) error {
	if len(data) != SwapInstructionArgsSize {
		return errors.Wrapf(ErrMalformedInput, "swap payload is %d bytes", len(data))
	}
	return unmarshal(args, data)
}

// Validate checks the arguments' business rules
func (args *SwapInstructionArgs) Validate() error {
	if args.Amount == 0 {
		return errors.Wrap(ErrInvalidArgument, "swap amount must be positive")
	}
	if args.Min == 0 {
		return errors.Wrap(ErrInvalidArgument, "minimum output must be positive")
	}
	return nil
}

type SwapInstructionAccounts struct {
	User   ed25519.PublicKey
	UserX  ed25519.PublicKey
	UserY  ed25519.PublicKey
	VaultX ed25519.PublicKey
	VaultY ed25519.PublicKey
	Config ed25519.PublicKey
}

func NewSwapInstruction(
	programID ed25519.PublicKey,
	accounts *SwapInstructionAccounts,
	args *SwapInstructionArgs,
) solana.Instruction {
	return solana.NewInstruction(
		programID,
		instructionData(InstructionTypeSwap, args.Marshal()),
		solana.NewReadonlyAccountMeta(accounts.User, true),
		solana.NewAccountMeta(accounts.UserX, false),
		solana.NewAccountMeta(accounts.UserY, false),
		solana.NewAccountMeta(accounts.VaultX, false),
		solana.NewAccountMeta(accounts.VaultY, false),
		solana.NewReadonlyAccountMeta(accounts.Config, false),
		solana.NewReadonlyAccountMeta(token.ProgramKey, false),
	)
}

type swapAccounts struct {
	user         *runtime.AccountInfo
	userX        *runtime.AccountInfo
	userY        *runtime.AccountInfo
	vaultX       *runtime.AccountInfo
	vaultY       *runtime.AccountInfo
	config       *runtime.AccountInfo
	tokenProgram *runtime.AccountInfo

	pool *PoolConfig
}

func newSwapAccounts(programID ed25519.PublicKey, accounts []runtime.AccountInfo) (*swapAccounts, error) {
	if len(accounts) != 7 {
		return nil, errors.Wrapf(ErrNotEnoughAccountKeys, "swap requires 7 accounts, got %d", len(accounts))
	}

	validated := &swapAccounts{
		user:         &accounts[0],
		userX:        &accounts[1],
		userY:        &accounts[2],
		vaultX:       &accounts[3],
		vaultY:       &accounts[4],
		config:       &accounts[5],
		tokenProgram: &accounts[6],
	}

	if err := checkSigner(validated.user); err != nil {
		return nil, err
	}

	pool, err := LoadPoolConfig(programID, validated.config)
	if err != nil {
		return nil, err
	}
	validated.pool = pool

	if err := checkTokenProgram(validated.tokenProgram); err != nil {
		return nil, err
	}

	for _, info := range []*runtime.AccountInfo{
		validated.userX,
		validated.userY,
		validated.vaultX,
		validated.vaultY,
	} {
		if _, err := loadTokenAccount(info); err != nil {
			return nil, err
		}
	}

	if err := checkVault(validated.config.Key, pool.MintX(), validated.vaultX); err != nil {
		return nil, err
	}
	if err := checkVault(validated.config.Key, pool.MintY(), validated.vaultY); err != nil {
		return nil, err
	}

	return validated, nil
}

type swapInstruction struct {
	accounts *swapAccounts
	args     *SwapInstructionArgs
}

func (p *Program) newSwapInstruction(ctx context.Context, env runtime.Environment, accounts []runtime.AccountInfo, data []byte) (*swapInstruction, error) {
	validated, err := newSwapAccounts(p.programID, accounts)
	if err != nil {
		return nil, err
	}

	var args SwapInstructionArgs
	if err := args.Unmarshal(data); err != nil {
		return nil, err
	}
	if err := checkExpiration(ctx, env.Clock, args.Expiration); err != nil {
		return nil, err
	}
	if err := args.Validate(); err != nil {
		return nil, err
	}

	if validated.pool.State() != PoolStateInitialized {
		return nil, errors.Wrapf(ErrStateViolation, "cannot swap in %s pool", validated.pool.State())
	}

	return &swapInstruction{
		accounts: validated,
		args:     &args,
	}, nil
}

// processSwap collects the full input, fee included, into the input vault
// and pays the curve's output from the other vault.
func (p *Program) processSwap(ctx context.Context, env runtime.Environment, ix *swapInstruction) error {
	accounts, args := ix.accounts, ix.args

	reserveX, reserveY, err := readReserves(accounts.vaultX, accounts.vaultY)
	if err != nil {
		return err
	}

	userIn, vaultIn, vaultOut, userOut := accounts.userX, accounts.vaultX, accounts.vaultY, accounts.userY
	reserveIn, reserveOut := reserveX, reserveY
	if !args.IsX {
		userIn, vaultIn, vaultOut, userOut = accounts.userY, accounts.vaultY, accounts.vaultX, accounts.userX
		reserveIn, reserveOut = reserveY, reserveX
	}

	quote, err := QuoteSwap(reserveIn, reserveOut, args.Amount, accounts.pool.Fee(), args.Min)
	if err != nil {
		return err
	}

	err = env.Invoker.Invoke(ctx, token.Transfer(userIn.Key, vaultIn.Key, accounts.user.Key, quote.Deposit))
	if err != nil {
		return errors.Wrap(err, "error depositing swap input")
	}

	err = env.Invoker.Invoke(
		ctx,
		token.Transfer(vaultOut.Key, userOut.Key, accounts.config.Key, quote.Withdraw),
		accounts.pool.Signer(),
	)
	if err != nil {
		return errors.Wrap(err, "error withdrawing swap output")
	}

	p.log.WithFields(logrus.Fields{
		"method":   "processSwap",
		"is_x":     args.IsX,
		"deposit":  quote.Deposit,
		"withdraw": quote.Withdraw,
	}).Trace("swapped")
	return nil
}
