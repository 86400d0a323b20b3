// Package memory provides an in-memory ledger that implements the runtime
// collaborators. It executes registered programs against a local account
// store with per-account exclusive access and all-or-nothing rollback, and
// understands the subset of the token and system programs that programs
// invoke.
package memory

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"sync"
	"time"

	"github.com/mr-tron/base58/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/amm-program/pkg/solana"
	"github.com/code-payments/amm-program/pkg/solana/runtime"
	"github.com/code-payments/amm-program/pkg/solana/system"
	"github.com/code-payments/amm-program/pkg/solana/token"
	sync_util "github.com/code-payments/amm-program/pkg/sync"
)

const (
	// Reference: https://github.com/solana-labs/solana/blob/0f3fbf3b6ce2fd35b7da1c0f3f76a2cdc6bd57fb/sdk/program/src/rent.rs#L23-L36
	accountStorageOverhead    = 128
	lamportsPerByteYear       = 3480
	exemptionThresholdInYears = 2

	maxAccountDataSize = 10 * 1024 * 1024
)

var (
	ErrUnknownProgram      = errors.New("program is not registered")
	ErrAccountNotProvided  = errors.New("account not provided to the calling program")
	ErrMissingSignature    = errors.New("missing required signature")
	ErrReadonlyAccount     = errors.New("account is not writable")
	ErrReadonlyModified    = errors.New("readonly account was modified")
	ErrUnsupportedProgram  = errors.New("unsupported program")
	ErrInvalidSigner       = errors.New("invalid signer seeds")
	ErrAccountAlreadyInUse = errors.New("account already in use")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrInvalidAccountData  = errors.New("invalid account data")
	ErrInvalidAccountOwner = errors.New("invalid account owner")
	ErrAccountNotFound     = errors.New("account not found")
)

// Ledger is an in-memory ledger. It is safe for concurrent use; instructions
// touching disjoint accounts execute in parallel.
type Ledger struct {
	log *logrus.Entry

	// locks serializes access to account contents. mu only guards the maps.
	locks *sync_util.StripedLock

	mu       sync.RWMutex
	accounts map[string]*runtime.Account
	programs map[string]runtime.Program

	clockMu       sync.RWMutex
	unixTimestamp int64
}

// New returns a new, empty Ledger configured from the environment.
func New() *Ledger {
	return NewWithConfigs(WithEnvConfigs())
}

// NewWithConfigs returns a new, empty Ledger. The token and system programs
// are always available for invocation.
func NewWithConfigs(configProvider ConfigProvider) *Ledger {
	conf := configProvider()

	stripes := conf.lockStripes.Get(context.Background())
	if stripes == 0 {
		stripes = defaultLockStripes
	}

	l := &Ledger{
		log:           logrus.StandardLogger().WithField("type", "solana/runtime/memory"),
		locks:         sync_util.NewStripedLock(uint(stripes)),
		accounts:      make(map[string]*runtime.Account),
		programs:      make(map[string]runtime.Program),
		unixTimestamp: time.Now().Unix(),
	}

	for _, builtin := range []ed25519.PublicKey{system.ProgramKey[:], token.ProgramKey, token.AssociatedTokenAccountProgramKey} {
		l.accounts[string(builtin)] = &runtime.Account{
			Owner:      system.ProgramKey[:],
			Executable: true,
		}
	}

	return l
}

// RegisterProgram makes the program executable at the provided address.
func (l *Ledger) RegisterProgram(programID ed25519.PublicKey, program runtime.Program) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.programs[string(programID)] = program
	l.accounts[string(programID)] = &runtime.Account{
		Owner:      system.ProgramKey[:],
		Executable: true,
	}
}

// Execute runs a single instruction against the registered program.
//
// Every referenced account is exclusively locked for the duration of the
// instruction. Addresses the ledger has never seen are supplied as empty,
// system-owned accounts. If the program fails, every referenced account is
// restored to its state prior to execution.
func (l *Ledger) Execute(ctx context.Context, programID ed25519.PublicKey, data []byte, metas ...solana.AccountMeta) error {
	log := l.log.WithFields(logrus.Fields{
		"method":  "Execute",
		"program": base58.Encode(programID),
	})

	l.mu.RLock()
	program, ok := l.programs[string(programID)]
	l.mu.RUnlock()
	if !ok {
		return errors.Wrap(ErrUnknownProgram, base58.Encode(programID))
	}

	// Program accounts are immutable, so they are left out of the lock set
	// to keep unrelated instructions from contending on them.
	var keys [][]byte
	for _, meta := range metas {
		if account, ok := l.lookup(meta.PublicKey); ok && account.Executable {
			continue
		}
		keys = append(keys, meta.PublicKey)
	}
	unlock := l.locks.LockAll(keys...)
	defer unlock()

	inv := &invocation{
		ledger:    l,
		programID: programID,
		provided:  make(map[string]*runtime.AccountInfo),
	}

	infos := make([]runtime.AccountInfo, len(metas))
	snapshot := make(map[string]*runtime.Account)
	var materialized [][]byte
	for i, meta := range metas {
		account, created := l.getOrCreate(meta.PublicKey)
		if created {
			materialized = append(materialized, meta.PublicKey)
		}

		infos[i] = runtime.AccountInfo{
			Key:        meta.PublicKey,
			IsSigner:   meta.IsSigner,
			IsWritable: meta.IsWritable,
			Account:    account,
		}

		k := string(meta.PublicKey)
		if _, ok := snapshot[k]; !ok {
			snapshot[k] = account.Clone()
		}

		// Flags of duplicate references are merged, as the ledger would when
		// compiling a transaction.
		if existing, ok := inv.provided[k]; ok {
			existing.IsSigner = existing.IsSigner || meta.IsSigner
			existing.IsWritable = existing.IsWritable || meta.IsWritable
		} else {
			info := infos[i]
			inv.provided[k] = &info
		}
	}

	env := runtime.Environment{
		Invoker: inv,
		Clock:   l,
		Rent:    l,
	}

	err := program.Process(ctx, env, infos, data)
	if err == nil {
		err = inv.checkReadonly(snapshot)
	}
	if err != nil {
		log.WithError(err).Debug("instruction failed, rolling back")
		l.restore(snapshot, materialized)
		return err
	}

	return nil
}

// ExecuteInstruction runs the instruction against the program it addresses.
func (l *Ledger) ExecuteInstruction(ctx context.Context, instruction solana.Instruction) error {
	return l.Execute(ctx, instruction.Program, instruction.Data, instruction.Accounts...)
}

// getOrCreate must be called with the account's stripe held.
func (l *Ledger) getOrCreate(key ed25519.PublicKey) (*runtime.Account, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	account, ok := l.accounts[string(key)]
	if ok {
		return account, false
	}

	account = &runtime.Account{
		Owner: system.ProgramKey[:],
	}
	l.accounts[string(key)] = account
	return account, true
}

func (l *Ledger) lookup(key ed25519.PublicKey) (*runtime.Account, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	account, ok := l.accounts[string(key)]
	return account, ok
}

// restore must be called with the stripes of every snapshot account held.
func (l *Ledger) restore(snapshot map[string]*runtime.Account, materialized [][]byte) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for k, saved := range snapshot {
		if account, ok := l.accounts[k]; ok {
			restored := saved.Clone()
			account.Owner = restored.Owner
			account.Lamports = restored.Lamports
			account.Data = restored.Data
		}
	}

	for _, key := range materialized {
		delete(l.accounts, string(key))
	}
}

// SetAccount stores a copy of the account at the address, replacing any
// existing account.
func (l *Ledger) SetAccount(key ed25519.PublicKey, account *runtime.Account) {
	mu := l.locks.Get(key)
	mu.Lock()
	defer mu.Unlock()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.accounts[string(key)] = account.Clone()
}

// GetAccount returns a copy of the account at the address.
func (l *Ledger) GetAccount(key ed25519.PublicKey) (*runtime.Account, error) {
	mu := l.locks.Get(key)
	mu.RLock()
	defer mu.RUnlock()

	account, ok := l.lookup(key)
	if !ok {
		return nil, errors.Wrap(ErrAccountNotFound, base58.Encode(key))
	}
	return account.Clone(), nil
}

// Fund credits lamports to the address, creating a system-owned account if
// none exists.
func (l *Ledger) Fund(key ed25519.PublicKey, lamports uint64) {
	mu := l.locks.Get(key)
	mu.Lock()
	defer mu.Unlock()

	account, _ := l.getOrCreate(key)
	account.Lamports += lamports
}

// CreateMint creates an initialized, rent-exempt mint with zero supply.
func (l *Ledger) CreateMint(key, authority ed25519.PublicKey, decimals byte) {
	mint := token.Mint{
		MintAuthority: authority,
		Decimals:      decimals,
		IsInitialized: true,
	}

	l.SetAccount(key, &runtime.Account{
		Owner:    token.ProgramKey,
		Lamports: minimumBalance(token.MintSize),
		Data:     mint.Marshal(),
	})
}

// CreateTokenAccount creates an initialized, rent-exempt token account
// holding amount tokens. The mint's supply is increased by amount when the
// mint exists in the ledger.
func (l *Ledger) CreateTokenAccount(key, mint, owner ed25519.PublicKey, amount uint64) error {
	unlock := l.locks.LockAll(key, mint)
	defer unlock()

	if amount > 0 {
		if account, ok := l.lookup(mint); ok {
			var m token.Mint
			if !m.Unmarshal(account.Data) {
				return errors.Wrap(ErrInvalidAccountData, "mint")
			}
			m.Supply += amount
			copy(account.Data, m.Marshal())
		}
	}

	tokenAccount := token.Account{
		Mint:   mint,
		Owner:  owner,
		Amount: amount,
		State:  token.AccountStateInitialized,
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.accounts[string(key)] = &runtime.Account{
		Owner:    token.ProgramKey,
		Lamports: minimumBalance(token.AccountSize),
		Data:     tokenAccount.Marshal(),
	}
	return nil
}

// GetTokenAccount returns the decoded token account at the address.
func (l *Ledger) GetTokenAccount(key ed25519.PublicKey) (*token.Account, error) {
	account, err := l.GetAccount(key)
	if err != nil {
		return nil, err
	}

	if !bytes.Equal(account.Owner, token.ProgramKey) {
		return nil, errors.Wrap(ErrInvalidAccountOwner, base58.Encode(key))
	}

	var decoded token.Account
	if !decoded.Unmarshal(account.Data) {
		return nil, errors.Wrap(ErrInvalidAccountData, base58.Encode(key))
	}
	return &decoded, nil
}

// GetMint returns the decoded mint at the address.
func (l *Ledger) GetMint(key ed25519.PublicKey) (*token.Mint, error) {
	account, err := l.GetAccount(key)
	if err != nil {
		return nil, err
	}

	if !bytes.Equal(account.Owner, token.ProgramKey) {
		return nil, errors.Wrap(ErrInvalidAccountOwner, base58.Encode(key))
	}

	var decoded token.Mint
	if !decoded.Unmarshal(account.Data) {
		return nil, errors.Wrap(ErrInvalidAccountData, base58.Encode(key))
	}
	return &decoded, nil
}

// SetUnixTimestamp sets the ledger clock.
func (l *Ledger) SetUnixTimestamp(ts int64) {
	l.clockMu.Lock()
	l.unixTimestamp = ts
	l.clockMu.Unlock()
}

// UnixTimestamp implements runtime.Clock.
func (l *Ledger) UnixTimestamp(_ context.Context) (int64, error) {
	l.clockMu.RLock()
	defer l.clockMu.RUnlock()

	return l.unixTimestamp, nil
}

// MinimumBalance implements runtime.Rent.
func (l *Ledger) MinimumBalance(_ context.Context, size uint64) (uint64, error) {
	if size > maxAccountDataSize {
		return 0, errors.Errorf("account size %d exceeds maximum of %d", size, maxAccountDataSize)
	}
	return minimumBalance(size), nil
}

func minimumBalance(size uint64) uint64 {
	return (accountStorageOverhead + size) * lamportsPerByteYear * exemptionThresholdInYears
}
