package amm

import (
	"context"
	"crypto/ed25519"
	"sync"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"lukechampine.com/uint128"

	"github.com/code-payments/amm-program/pkg/solana"
	"github.com/code-payments/amm-program/pkg/solana/runtime/memory"
	"github.com/code-payments/amm-program/pkg/solana/token"
	"github.com/code-payments/amm-program/pkg/testutil"
)

const (
	testSeed      = 42
	testFee       = 30
	testTimestamp = 1_700_000_000

	initialUserBalance = 10_000_000
)

type testEnv struct {
	ctx       context.Context
	ledger    *memory.Ledger
	programID ed25519.PublicKey

	initializer   ed25519.PublicKey
	user          ed25519.PublicKey
	mintAuthority ed25519.PublicKey

	mintX ed25519.PublicKey
	mintY ed25519.PublicKey

	config     ed25519.PublicKey
	configBump uint8
	mintLp     ed25519.PublicKey
	lpBump     uint8
	vaultX     ed25519.PublicKey
	vaultY     ed25519.PublicKey

	userX  ed25519.PublicKey
	userY  ed25519.PublicKey
	userLp ed25519.PublicKey
}

func setup(t *testing.T) *testEnv {
	keys := testutil.GenerateSolanaKeys(t, 7)

	env := &testEnv{
		ctx:           context.Background(),
		ledger:        memory.NewWithConfigs(memory.WithLockStripes(16)),
		programID:     keys[0],
		initializer:   keys[1],
		user:          keys[2],
		mintAuthority: keys[3],
		userX:         keys[4],
		userY:         keys[5],
		userLp:        keys[6],
	}
	env.mintX, env.mintY = testutil.GenerateMintPair(t)

	program, err := NewProgram(WithProgramID(env.programID))
	require.NoError(t, err)
	env.ledger.RegisterProgram(env.programID, program)
	env.ledger.SetUnixTimestamp(testTimestamp)

	env.config, env.configBump, err = FindConfigAddress(env.programID, &GetConfigAddressArgs{
		Seed:  testSeed,
		MintX: env.mintX,
		MintY: env.mintY,
	})
	require.NoError(t, err)

	env.mintLp, env.lpBump, err = FindLpMintAddress(env.programID, env.config)
	require.NoError(t, err)

	env.vaultX, err = GetVaultAddress(env.config, env.mintX)
	require.NoError(t, err)
	env.vaultY, err = GetVaultAddress(env.config, env.mintY)
	require.NoError(t, err)

	env.ledger.Fund(env.initializer, 1_000_000_000)
	env.ledger.CreateMint(env.mintX, env.mintAuthority, 6)
	env.ledger.CreateMint(env.mintY, env.mintAuthority, 6)

	require.NoError(t, env.ledger.CreateTokenAccount(env.vaultX, env.mintX, env.config, 0))
	require.NoError(t, env.ledger.CreateTokenAccount(env.vaultY, env.mintY, env.config, 0))
	require.NoError(t, env.ledger.CreateTokenAccount(env.userX, env.mintX, env.user, initialUserBalance))
	require.NoError(t, env.ledger.CreateTokenAccount(env.userY, env.mintY, env.user, initialUserBalance))
	require.NoError(t, env.ledger.CreateTokenAccount(env.userLp, env.mintLp, env.user, 0))

	return env
}

func (e *testEnv) initializeInstruction(args *InitializeInstructionArgs) solana.Instruction {
	return NewInitializeInstruction(
		e.programID,
		&InitializeInstructionAccounts{
			Initializer: e.initializer,
			MintLp:      e.mintLp,
			Config:      e.config,
		},
		args,
	)
}

func (e *testEnv) defaultInitializeArgs() *InitializeInstructionArgs {
	return &InitializeInstructionArgs{
		Seed:       testSeed,
		Fee:        testFee,
		MintX:      e.mintX,
		MintY:      e.mintY,
		ConfigBump: e.configBump,
		LpBump:     e.lpBump,
	}
}

func (e *testEnv) initialize(t *testing.T) {
	require.NoError(t, e.ledger.ExecuteInstruction(e.ctx, e.initializeInstruction(e.defaultInitializeArgs())))
}

func (e *testEnv) liquidityAccounts() *LiquidityInstructionAccounts {
	return &LiquidityInstructionAccounts{
		User:   e.user,
		MintLp: e.mintLp,
		VaultX: e.vaultX,
		VaultY: e.vaultY,
		UserX:  e.userX,
		UserY:  e.userY,
		UserLp: e.userLp,
		Config: e.config,
	}
}

func (e *testEnv) deposit(args *DepositInstructionArgs) error {
	return e.ledger.ExecuteInstruction(e.ctx, NewDepositInstruction(e.programID, e.liquidityAccounts(), args))
}

func (e *testEnv) withdraw(args *WithdrawInstructionArgs) error {
	return e.ledger.ExecuteInstruction(e.ctx, NewWithdrawInstruction(e.programID, e.liquidityAccounts(), args))
}

func (e *testEnv) swapInstruction(args *SwapInstructionArgs) solana.Instruction {
	return NewSwapInstruction(
		e.programID,
		&SwapInstructionAccounts{
			User:   e.user,
			UserX:  e.userX,
			UserY:  e.userY,
			VaultX: e.vaultX,
			VaultY: e.vaultY,
			Config: e.config,
		},
		args,
	)
}

func (e *testEnv) swap(args *SwapInstructionArgs) error {
	return e.ledger.ExecuteInstruction(e.ctx, e.swapInstruction(args))
}

func (e *testEnv) seedLiquidity(t *testing.T) {
	e.initialize(t)
	require.NoError(t, e.deposit(&DepositInstructionArgs{
		Amount: 1_000_000,
		MaxX:   1_000_000,
		MaxY:   1_000_000,
	}))
}

func (e *testEnv) poolConfig(t *testing.T) *PoolConfig {
	account, err := e.ledger.GetAccount(e.config)
	require.NoError(t, err)

	var config PoolConfig
	require.NoError(t, config.Unmarshal(account.Data))
	return &config
}

func (e *testEnv) setPoolState(t *testing.T, state PoolState) {
	account, err := e.ledger.GetAccount(e.config)
	require.NoError(t, err)

	var config PoolConfig
	require.NoError(t, config.Unmarshal(account.Data))
	require.NoError(t, config.SetState(state))

	account.Data = config.Marshal()
	e.ledger.SetAccount(e.config, account)
}

func (e *testEnv) assertBalances(t *testing.T, userX, userY, vaultX, vaultY uint64) {
	assertTokenBalance(t, e.ledger, e.userX, userX)
	assertTokenBalance(t, e.ledger, e.userY, userY)
	assertTokenBalance(t, e.ledger, e.vaultX, vaultX)
	assertTokenBalance(t, e.ledger, e.vaultY, vaultY)
}

func (e *testEnv) assertLp(t *testing.T, balance, supply uint64) {
	assertTokenBalance(t, e.ledger, e.userLp, balance)

	mint, err := e.ledger.GetMint(e.mintLp)
	require.NoError(t, err)
	assert.Equal(t, supply, mint.Supply)
}

func assertTokenBalance(t *testing.T, l *memory.Ledger, key ed25519.PublicKey, expected uint64) {
	account, err := l.GetTokenAccount(key)
	require.NoError(t, err)
	assert.Equal(t, expected, account.Amount, base58.Encode(key))
}

func TestNewProgram(t *testing.T) {
	programID := testutil.GenerateSolanaKeys(t, 1)[0]

	program, err := NewProgram(WithProgramID(programID))
	require.NoError(t, err)
	assert.EqualValues(t, programID, program.ID())

	program, err = NewProgram(WithEnvConfigs())
	require.NoError(t, err)
	assert.EqualValues(t, DefaultProgramID, program.ID())
	assert.Equal(t, "22222222222222222222222222222222222222222222", base58.Encode(program.ID()))

	t.Setenv(ProgramIDConfigEnvName, base58.Encode(programID))
	program, err = NewProgram(WithEnvConfigs())
	require.NoError(t, err)
	assert.EqualValues(t, programID, program.ID())

	t.Setenv(ProgramIDConfigEnvName, "invalid0")
	_, err = NewProgram(WithEnvConfigs())
	assert.Error(t, err)
}

func TestProcess_Lifecycle(t *testing.T) {
	env := setup(t)

	before, err := env.ledger.GetAccount(env.initializer)
	require.NoError(t, err)

	env.initialize(t)

	config := env.poolConfig(t)
	assert.Equal(t, PoolStateInitialized, config.State())
	assert.EqualValues(t, testSeed, config.Seed())
	assert.EqualValues(t, testFee, config.Fee())
	assert.EqualValues(t, env.mintX, config.MintX())
	assert.EqualValues(t, env.mintY, config.MintY())
	assert.Equal(t, env.configBump, config.ConfigBump())
	_, ok := config.Authority()
	assert.False(t, ok)

	configAccount, err := env.ledger.GetAccount(env.config)
	require.NoError(t, err)
	assert.EqualValues(t, env.programID, configAccount.Owner)
	assert.Len(t, configAccount.Data, PoolConfigSize)

	lpMint, err := env.ledger.GetMint(env.mintLp)
	require.NoError(t, err)
	assert.True(t, lpMint.IsInitialized)
	assert.EqualValues(t, LpMintDecimals, lpMint.Decimals)
	assert.EqualValues(t, env.config, lpMint.MintAuthority)
	assert.Empty(t, lpMint.FreezeAuthority)
	assert.Zero(t, lpMint.Supply)

	configRent, err := env.ledger.MinimumBalance(env.ctx, PoolConfigSize)
	require.NoError(t, err)
	mintRent, err := env.ledger.MinimumBalance(env.ctx, token.MintSize)
	require.NoError(t, err)
	after, err := env.ledger.GetAccount(env.initializer)
	require.NoError(t, err)
	assert.Equal(t, before.Lamports-configRent-mintRent, after.Lamports)

	require.NoError(t, env.deposit(&DepositInstructionArgs{
		Amount: 1_000_000,
		MaxX:   1_000_000,
		MaxY:   1_000_000,
	}))
	env.assertBalances(t, 9_000_000, 9_000_000, 1_000_000, 1_000_000)
	env.assertLp(t, 1_000_000, 1_000_000)

	err = env.swap(&SwapInstructionArgs{IsX: true, Amount: 10_000, Min: 9_872})
	assert.ErrorIs(t, err, ErrSlippageViolation)
	env.assertBalances(t, 9_000_000, 9_000_000, 1_000_000, 1_000_000)

	require.NoError(t, env.swap(&SwapInstructionArgs{IsX: true, Amount: 10_000, Min: 9_871}))
	env.assertBalances(t, 8_990_000, 9_009_871, 1_010_000, 990_129)

	require.NoError(t, env.swap(&SwapInstructionArgs{IsX: false, Amount: 10_000, Min: 1}))
	env.assertBalances(t, 9_000_068, 8_999_871, 999_932, 1_000_129)

	err = env.withdraw(&WithdrawInstructionArgs{Amount: 250_000, MinX: 249_984})
	assert.ErrorIs(t, err, ErrSlippageViolation)
	env.assertLp(t, 1_000_000, 1_000_000)

	require.NoError(t, env.withdraw(&WithdrawInstructionArgs{Amount: 250_000, MinX: 249_983, MinY: 250_033}))
	env.assertBalances(t, 9_250_051, 9_249_904, 749_949, 750_096)
	env.assertLp(t, 750_000, 750_000)

	err = env.withdraw(&WithdrawInstructionArgs{Amount: 750_001})
	assert.ErrorIs(t, err, ErrArithmeticFailure)

	require.NoError(t, env.withdraw(&WithdrawInstructionArgs{Amount: 750_000, MinX: 749_949, MinY: 750_096}))
	env.assertBalances(t, initialUserBalance, initialUserBalance, 0, 0)
	env.assertLp(t, 0, 0)

	err = env.swap(&SwapInstructionArgs{IsX: true, Amount: 10_000, Min: 1})
	assert.ErrorIs(t, err, ErrArithmeticFailure)
}

func TestProcess_InitializeWithAuthority(t *testing.T) {
	env := setup(t)
	authority := testutil.GenerateSolanaKeys(t, 1)[0]

	args := env.defaultInitializeArgs()
	args.Authority = authority
	require.NoError(t, env.ledger.ExecuteInstruction(env.ctx, env.initializeInstruction(args)))

	actual, ok := env.poolConfig(t).Authority()
	require.True(t, ok)
	assert.EqualValues(t, authority, actual)
}

func TestProcess_InitializeFailures(t *testing.T) {
	env := setup(t)

	args := env.defaultInitializeArgs()
	args.MintY = env.mintX
	err := env.ledger.ExecuteInstruction(env.ctx, env.initializeInstruction(args))
	assert.ErrorIs(t, err, ErrInvalidArgument)

	args = env.defaultInitializeArgs()
	args.Fee = MaxFeeBps
	err = env.ledger.ExecuteInstruction(env.ctx, env.initializeInstruction(args))
	assert.ErrorIs(t, err, ErrInvalidArgument)

	args = env.defaultInitializeArgs()
	args.Seed = testSeed + 1
	err = env.ledger.ExecuteInstruction(env.ctx, env.initializeInstruction(args))
	assert.ErrorIs(t, err, ErrAddressMismatch)

	args = env.defaultInitializeArgs()
	args.LpBump = env.lpBump - 1
	err = env.ledger.ExecuteInstruction(env.ctx, env.initializeInstruction(args))
	assert.ErrorIs(t, err, ErrAddressMismatch)

	ix := env.initializeInstruction(env.defaultInitializeArgs())
	ix.Accounts[0].IsSigner = false
	err = env.ledger.ExecuteInstruction(env.ctx, ix)
	assert.ErrorIs(t, err, ErrMissingRequiredSignature)

	ix = env.initializeInstruction(env.defaultInitializeArgs())
	ix.Accounts = ix.Accounts[:4]
	err = env.ledger.ExecuteInstruction(env.ctx, ix)
	assert.ErrorIs(t, err, ErrNotEnoughAccountKeys)

	ix = env.initializeInstruction(env.defaultInitializeArgs())
	ix.Data = ix.Data[:len(ix.Data)-1]
	err = env.ledger.ExecuteInstruction(env.ctx, ix)
	assert.ErrorIs(t, err, ErrMalformedInput)

	// Nothing is left behind by failed attempts
	_, err = env.ledger.GetAccount(env.config)
	assert.ErrorIs(t, err, memory.ErrAccountNotFound)

	env.initialize(t)

	err = env.ledger.ExecuteInstruction(env.ctx, env.initializeInstruction(env.defaultInitializeArgs()))
	assert.ErrorIs(t, err, ErrStateViolation)
}

func TestProcess_InitializeRollsBackWithoutFunds(t *testing.T) {
	env := setup(t)

	poor := testutil.GenerateSolanaKeys(t, 1)[0]
	configRent, err := env.ledger.MinimumBalance(env.ctx, PoolConfigSize)
	require.NoError(t, err)

	// Enough to create the config but not the LP mint
	env.ledger.Fund(poor, configRent)

	ix := NewInitializeInstruction(
		env.programID,
		&InitializeInstructionAccounts{
			Initializer: poor,
			MintLp:      env.mintLp,
			Config:      env.config,
		},
		env.defaultInitializeArgs(),
	)
	err = env.ledger.ExecuteInstruction(env.ctx, ix)
	assert.ErrorIs(t, err, memory.ErrInsufficientFunds)

	_, err = env.ledger.GetAccount(env.config)
	assert.ErrorIs(t, err, memory.ErrAccountNotFound)

	account, err := env.ledger.GetAccount(poor)
	require.NoError(t, err)
	assert.Equal(t, configRent, account.Lamports)
}

func TestProcess_DepositRollsBack(t *testing.T) {
	env := setup(t)
	env.initialize(t)

	// The x leg succeeds before the y leg runs out of funds
	err := env.deposit(&DepositInstructionArgs{
		Amount: 1_000,
		MaxX:   1_000,
		MaxY:   initialUserBalance + 1,
	})
	assert.ErrorIs(t, err, token.ErrorInsufficientFunds)
	assert.Equal(t, solana.InstructionErrorCustom, ErrorKey(err))

	env.assertBalances(t, initialUserBalance, initialUserBalance, 0, 0)
	env.assertLp(t, 0, 0)
}

func TestProcess_DepositSingleSided(t *testing.T) {
	env := setup(t)
	env.initialize(t)

	require.NoError(t, env.deposit(&DepositInstructionArgs{Amount: 500, MaxX: 1_000}))
	env.assertBalances(t, initialUserBalance-1_000, initialUserBalance, 1_000, 0)
	env.assertLp(t, 500, 500)
}

func TestProcess_Expiration(t *testing.T) {
	env := setup(t)
	env.seedLiquidity(t)

	err := env.deposit(&DepositInstructionArgs{Amount: 1, MaxX: 1, MaxY: 1, Expiration: testTimestamp - 1})
	assert.ErrorIs(t, err, ErrExpired)
	assert.Equal(t, ExpiredErrorCode, *InstructionErrorFor(0, err).CustomError())

	err = env.swap(&SwapInstructionArgs{IsX: true, Amount: 10_000, Min: 1, Expiration: testTimestamp - 1})
	assert.ErrorIs(t, err, ErrExpired)

	err = env.withdraw(&WithdrawInstructionArgs{Amount: 1, Expiration: testTimestamp - 1})
	assert.ErrorIs(t, err, ErrExpired)

	require.NoError(t, env.swap(&SwapInstructionArgs{IsX: true, Amount: 10_000, Min: 1, Expiration: testTimestamp}))
	require.NoError(t, env.deposit(&DepositInstructionArgs{Amount: 1, MaxX: 1, MaxY: 1, Expiration: testTimestamp + 1}))

	env.ledger.SetUnixTimestamp(testTimestamp + 2)
	err = env.deposit(&DepositInstructionArgs{Amount: 1, MaxX: 1, MaxY: 1, Expiration: testTimestamp + 1})
	assert.ErrorIs(t, err, ErrExpired)
}

func TestProcess_DisabledPool(t *testing.T) {
	env := setup(t)
	env.seedLiquidity(t)
	env.setPoolState(t, PoolStateDisabled)

	err := env.deposit(&DepositInstructionArgs{Amount: 1, MaxX: 1, MaxY: 1})
	assert.ErrorIs(t, err, ErrStateViolation)

	err = env.swap(&SwapInstructionArgs{IsX: true, Amount: 10_000, Min: 1})
	assert.ErrorIs(t, err, ErrStateViolation)

	require.NoError(t, env.withdraw(&WithdrawInstructionArgs{Amount: 1_000_000}))
	env.assertBalances(t, initialUserBalance, initialUserBalance, 0, 0)
	env.assertLp(t, 0, 0)
}

func TestProcess_SwapValidation(t *testing.T) {
	env := setup(t)
	env.seedLiquidity(t)

	err := env.swap(&SwapInstructionArgs{IsX: true, Amount: 0, Min: 1})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	err = env.swap(&SwapInstructionArgs{IsX: true, Amount: 10_000, Min: 0})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	// Consumed entirely by the fee
	err = env.swap(&SwapInstructionArgs{IsX: true, Amount: 1, Min: 1})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	err = env.swap(&SwapInstructionArgs{IsX: true, Amount: initialUserBalance, Min: 1})
	assert.ErrorIs(t, err, token.ErrorInsufficientFunds)

	ix := env.swapInstruction(&SwapInstructionArgs{IsX: true, Amount: 10_000, Min: 1})
	ix.Accounts[0].IsSigner = false
	err = env.ledger.ExecuteInstruction(env.ctx, ix)
	assert.ErrorIs(t, err, ErrMissingRequiredSignature)

	ix = env.swapInstruction(&SwapInstructionArgs{IsX: true, Amount: 10_000, Min: 1})
	ix.Accounts[3].PublicKey = env.userX
	err = env.ledger.ExecuteInstruction(env.ctx, ix)
	assert.ErrorIs(t, err, ErrAddressMismatch)

	ix = env.swapInstruction(&SwapInstructionArgs{IsX: true, Amount: 10_000, Min: 1})
	ix.Accounts[5].PublicKey = env.mintX
	err = env.ledger.ExecuteInstruction(env.ctx, ix)
	assert.ErrorIs(t, err, ErrAccountShapeViolation)

	ix = env.swapInstruction(&SwapInstructionArgs{IsX: true, Amount: 10_000, Min: 1})
	ix.Accounts[6].PublicKey = env.programID
	err = env.ledger.ExecuteInstruction(env.ctx, ix)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	ix = env.swapInstruction(&SwapInstructionArgs{IsX: true, Amount: 10_000, Min: 1})
	ix.Accounts = ix.Accounts[:6]
	err = env.ledger.ExecuteInstruction(env.ctx, ix)
	assert.ErrorIs(t, err, ErrNotEnoughAccountKeys)

	ix = env.swapInstruction(&SwapInstructionArgs{IsX: true, Amount: 10_000, Min: 1})
	ix.Data[1] = 2
	err = env.ledger.ExecuteInstruction(env.ctx, ix)
	assert.ErrorIs(t, err, ErrMalformedInput)

	env.assertBalances(t, 9_000_000, 9_000_000, 1_000_000, 1_000_000)
}

func TestProcess_LiquidityValidation(t *testing.T) {
	env := setup(t)
	env.seedLiquidity(t)

	accounts := env.liquidityAccounts()
	accounts.MintLp = env.mintX
	err := env.ledger.ExecuteInstruction(env.ctx, NewDepositInstruction(env.programID, accounts, &DepositInstructionArgs{Amount: 1}))
	assert.ErrorIs(t, err, ErrAddressMismatch)

	accounts = env.liquidityAccounts()
	accounts.VaultX, accounts.VaultY = env.vaultY, env.vaultX
	err = env.ledger.ExecuteInstruction(env.ctx, NewWithdrawInstruction(env.programID, accounts, &WithdrawInstructionArgs{Amount: 1}))
	assert.ErrorIs(t, err, ErrAddressMismatch)

	accounts = env.liquidityAccounts()
	accounts.UserLp = env.initializer
	err = env.ledger.ExecuteInstruction(env.ctx, NewDepositInstruction(env.programID, accounts, &DepositInstructionArgs{Amount: 1}))
	assert.ErrorIs(t, err, ErrAccountShapeViolation)

	ix := NewDepositInstruction(env.programID, env.liquidityAccounts(), &DepositInstructionArgs{Amount: 1})
	ix.Accounts[0].IsSigner = false
	err = env.ledger.ExecuteInstruction(env.ctx, ix)
	assert.ErrorIs(t, err, ErrMissingRequiredSignature)

	ix = NewWithdrawInstruction(env.programID, env.liquidityAccounts(), &WithdrawInstructionArgs{Amount: 1})
	ix.Accounts = ix.Accounts[:8]
	err = env.ledger.ExecuteInstruction(env.ctx, ix)
	assert.ErrorIs(t, err, ErrNotEnoughAccountKeys)

	err = env.deposit(&DepositInstructionArgs{Amount: 0, MaxX: 1})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	err = env.withdraw(&WithdrawInstructionArgs{Amount: 0})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	// Burning more than held fails in the token program and unwinds
	other := testutil.GenerateSolanaKeys(t, 1)[0]
	require.NoError(t, env.ledger.CreateTokenAccount(other, env.mintLp, env.mintAuthority, 0))
	accounts = env.liquidityAccounts()
	accounts.UserLp = other
	err = env.ledger.ExecuteInstruction(env.ctx, NewWithdrawInstruction(env.programID, accounts, &WithdrawInstructionArgs{Amount: 1}))
	assert.ErrorIs(t, err, token.ErrorOwnerMismatch)

	env.assertBalances(t, 9_000_000, 9_000_000, 1_000_000, 1_000_000)
	env.assertLp(t, 1_000_000, 1_000_000)
}

func TestProcess_UnknownInstruction(t *testing.T) {
	env := setup(t)

	err := env.ledger.Execute(env.ctx, env.programID, nil)
	assert.ErrorIs(t, err, ErrMalformedInput)
	assert.Equal(t, solana.InstructionErrorInvalidInstructionData, ErrorKey(err))

	err = env.ledger.Execute(env.ctx, env.programID, []byte{4})
	assert.ErrorIs(t, err, ErrMalformedInput)

	err = env.ledger.Execute(env.ctx, env.programID, []byte{0xff, 1, 2, 3})
	assert.ErrorIs(t, err, ErrMalformedInput)
}

func TestProcess_ConcurrentSwaps(t *testing.T) {
	env := setup(t)
	env.seedLiquidity(t)

	const workers = 8

	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(isX bool) {
			defer wg.Done()
			for i := 0; i < 10; i++ {
				if err := env.swap(&SwapInstructionArgs{IsX: isX, Amount: 1_000, Min: 1}); err != nil {
					errs <- err
					return
				}
			}
		}(w%2 == 0)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	userX, err := env.ledger.GetTokenAccount(env.userX)
	require.NoError(t, err)
	userY, err := env.ledger.GetTokenAccount(env.userY)
	require.NoError(t, err)
	vaultX, err := env.ledger.GetTokenAccount(env.vaultX)
	require.NoError(t, err)
	vaultY, err := env.ledger.GetTokenAccount(env.vaultY)
	require.NoError(t, err)

	assert.EqualValues(t, initialUserBalance, userX.Amount+vaultX.Amount)
	assert.EqualValues(t, initialUserBalance, userY.Amount+vaultY.Amount)

	before := uint128.From64(1_000_000).Mul64(1_000_000)
	after := uint128.From64(vaultX.Amount).Mul64(vaultY.Amount)
	assert.True(t, after.Cmp(before) >= 0)
}
