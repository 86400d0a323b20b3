package amm

import (
	"bytes"
	"context"
	"crypto/ed25519"

	bin "github.com/gagliardetto/binary"
	"github.com/mr-tron/base58"
	"github.com/pkg/errors"

	"github.com/code-payments/amm-program/pkg/solana"
	"github.com/code-payments/amm-program/pkg/solana/runtime"
	"github.com/code-payments/amm-program/pkg/solana/system"
	"github.com/code-payments/amm-program/pkg/solana/token"
)

const (
	InitializeInstructionArgsSize = (8 + // seed
		2 + // fee
		32 + // mint_x
		32 + // mint_y
		1 + // config_bump
		1) // lp_bump

	InitializeInstructionArgsWithAuthoritySize = (InitializeInstructionArgsSize +
		32) // authority
)

type InitializeInstructionArgs struct {
	Seed       uint64
	Fee        uint16
	MintX      ed25519.PublicKey
	MintY      ed25519.PublicKey
	ConfigBump uint8
	LpBump     uint8

	// Authority is optional and omitted from the payload when empty
	Authority ed25519.PublicKey
}

func (args *InitializeInstructionArgs) MarshalWithEncoder(encoder *bin.Encoder) error {
	if err := encoder.WriteUint64(args.Seed, bin.LE); err != nil {
		return err
	}
	if err := encoder.WriteUint16(args.Fee, bin.LE); err != nil {
		return err
	}
	if err := encoder.WriteBytes(fixedKey(args.MintX), false); err != nil {
		return err
	}
	if err := encoder.WriteBytes(fixedKey(args.MintY), false); err != nil {
		return err
	}
	if err := encoder.WriteUint8(args.ConfigBump); err != nil {
		return err
	}
	if err := encoder.WriteUint8(args.LpBump); err != nil {
		return err
	}
	if len(args.Authority) > 0 {
		return encoder.WriteBytes(fixedKey(args.Authority), false)
	}
	return nil
}

func (args *InitializeInstructionArgs) UnmarshalWithDecoder(decoder *bin.Decoder) (err error) {
	if args.Seed, err = decoder.ReadUint64(bin.LE); err != nil {
		return err
	}
	if args.Fee, err = decoder.ReadUint16(bin.LE); err != nil {
		return err
	}
	if args.MintX, err = readKey(decoder); err != nil {
		return err
	}
	if args.MintY, err = readKey(decoder); err != nil {
		return err
	}
	if args.ConfigBump, err = decoder.ReadUint8(); err != nil {
		return err
	}
	if args.LpBump, err = decoder.ReadUint8(); err != nil {
		return err
	}

	args.Authority = nil
	if decoder.Remaining() > 0 {
		if args.Authority, err = readKey(decoder); err != nil {
			return err
		}
	}
	return nil
}

func (args *InitializeInstructionArgs) Marshal() []byte {
	return marshal(args)
}

// Unmarshal decodes either payload layout. The authority is empty when the
// payload omits it.
func (args *InitializeInstructionArgs) Unmarshal(data []byte) error {
	switch len(data) {
	case InitializeInstructionArgsSize, InitializeInstructionArgsWithAuthoritySize:
	default:
		return errors.Wrapf(ErrMalformedInput, "initialize payload is %d bytes", len(data))
	}
	return unmarshal(args, data)
}

// Validate checks the arguments' business rules
func (args *InitializeInstructionArgs) Validate() error {
	if bytes.Equal(args.MintX, args.MintY) {
		return errors.Wrap(ErrInvalidArgument, "pool mints must differ")
	}
	if args.Fee >= MaxFeeBps {
		return errors.Wrapf(ErrInvalidArgument, "fee of %d bps exceeds maximum", args.Fee)
	}
	return nil
}

type InitializeInstructionAccounts struct {
	Initializer ed25519.PublicKey
	MintLp      ed25519.PublicKey
	Config      ed25519.PublicKey
}

func NewInitializeInstruction(
	programID ed25519.PublicKey,
	accounts *InitializeInstructionAccounts,
	args *InitializeInstructionArgs,
) solana.Instruction {
	return solana.NewInstruction(
		programID,
		instructionData(InstructionTypeInitialize, args.Marshal()),
		solana.NewAccountMeta(accounts.Initializer, true),
		solana.NewAccountMeta(accounts.MintLp, false),
		solana.NewAccountMeta(accounts.Config, false),
		solana.NewReadonlyAccountMeta(system.ProgramKey[:], false),
		solana.NewReadonlyAccountMeta(token.ProgramKey, false),
	)
}

type initializeAccounts struct {
	initializer   *runtime.AccountInfo
	mintLp        *runtime.AccountInfo
	config        *runtime.AccountInfo
	systemProgram *runtime.AccountInfo
	tokenProgram  *runtime.AccountInfo
}

func newInitializeAccounts(accounts []runtime.AccountInfo) (*initializeAccounts, error) {
	if len(accounts) != 5 {
		return nil, errors.Wrapf(ErrNotEnoughAccountKeys, "initialize requires 5 accounts, got %d", len(accounts))
	}

	validated := &initializeAccounts{
		initializer:   &accounts[0],
		mintLp:        &accounts[1],
		config:        &accounts[2],
		systemProgram: &accounts[3],
		tokenProgram:  &accounts[4],
	}

	if err := checkSigner(validated.initializer); err != nil {
		return nil, err
	}
	if err := checkSystemProgram(validated.systemProgram); err != nil {
		return nil, err
	}
	if err := checkTokenProgram(validated.tokenProgram); err != nil {
		return nil, err
	}

	return validated, nil
}

type initializeInstruction struct {
	accounts *initializeAccounts
	args     *InitializeInstructionArgs
}

func (p *Program) newInitializeInstruction(accounts []runtime.AccountInfo, data []byte) (*initializeInstruction, error) {
	validated, err := newInitializeAccounts(accounts)
	if err != nil {
		return nil, err
	}

	var args InitializeInstructionArgs
	if err := args.Unmarshal(data); err != nil {
		return nil, err
	}
	if err := args.Validate(); err != nil {
		return nil, err
	}

	configAddress, err := GetConfigAddress(
		p.programID,
		&GetConfigAddressArgs{
			Seed:  args.Seed,
			MintX: args.MintX,
			MintY: args.MintY,
		},
		args.ConfigBump,
	)
	if err != nil {
		return nil, errors.Wrap(ErrAddressMismatch, err.Error())
	}
	if !bytes.Equal(configAddress, validated.config.Key) {
		return nil, errors.Wrapf(ErrAddressMismatch, "expected config %s, got %s", base58.Encode(configAddress), base58.Encode(validated.config.Key))
	}

	lpMintAddress, err := GetLpMintAddress(p.programID, configAddress, args.LpBump)
	if err != nil {
		return nil, errors.Wrap(ErrAddressMismatch, err.Error())
	}
	if !bytes.Equal(lpMintAddress, validated.mintLp.Key) {
		return nil, errors.Wrapf(ErrAddressMismatch, "expected lp mint %s, got %s", base58.Encode(lpMintAddress), base58.Encode(validated.mintLp.Key))
	}

	// A config owned by the program belongs to a pool that already exists
	if bytes.Equal(validated.config.Owner, p.programID) {
		return nil, errors.Wrapf(ErrStateViolation, "pool %s is already initialized", base58.Encode(configAddress))
	}

	return &initializeInstruction{
		accounts: validated,
		args:     &args,
	}, nil
}

func (p *Program) processInitialize(ctx context.Context, env runtime.Environment, ix *initializeInstruction) error {
	accounts, args := ix.accounts, ix.args

	configLamports, err := env.Rent.MinimumBalance(ctx, PoolConfigSize)
	if err != nil {
		return errors.Wrap(err, "error getting config rent")
	}

	configSigner := runtime.Signer(configSeeds(args.Seed, args.MintX, args.MintY, args.ConfigBump))
	err = env.Invoker.Invoke(
		ctx,
		system.CreateAccount(accounts.initializer.Key, accounts.config.Key, p.programID, configLamports, PoolConfigSize),
		configSigner,
	)
	if err != nil {
		return errors.Wrap(err, "error creating config")
	}

	var pool PoolConfig
	if err := pool.SetInner(args.Seed, args.Authority, args.MintX, args.MintY, args.Fee, args.ConfigBump); err != nil {
		return err
	}
	if err := pool.Store(p.programID, accounts.config); err != nil {
		return err
	}

	mintLamports, err := env.Rent.MinimumBalance(ctx, token.MintSize)
	if err != nil {
		return errors.Wrap(err, "error getting lp mint rent")
	}

	lpMintSigner := runtime.Signer(lpMintSeeds(accounts.config.Key, args.LpBump))
	err = env.Invoker.Invoke(
		ctx,
		system.CreateAccount(accounts.initializer.Key, accounts.mintLp.Key, token.ProgramKey, mintLamports, token.MintSize),
		lpMintSigner,
	)
	if err != nil {
		return errors.Wrap(err, "error creating lp mint")
	}

	err = env.Invoker.Invoke(ctx, token.InitializeMint2(accounts.mintLp.Key, accounts.config.Key, nil, LpMintDecimals))
	if err != nil {
		return errors.Wrap(err, "error initializing lp mint")
	}

	p.log.WithField("pool", pool.String()).Debug("pool initialized")
	return nil
}
