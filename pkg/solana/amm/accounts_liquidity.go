package amm

import (
	"crypto/ed25519"

	"github.com/pkg/errors"

	"github.com/code-payments/amm-program/pkg/solana"
	"github.com/code-payments/amm-program/pkg/solana/runtime"
	"github.com/code-payments/amm-program/pkg/solana/token"
)

// LiquidityInstructionAccounts are the accounts of instructions that add or
// remove liquidity
type LiquidityInstructionAccounts struct {
	User   ed25519.PublicKey
	MintLp ed25519.PublicKey
	VaultX ed25519.PublicKey
	VaultY ed25519.PublicKey
	UserX  ed25519.PublicKey
	UserY  ed25519.PublicKey
	UserLp ed25519.PublicKey
	Config ed25519.PublicKey
}

func (accounts *LiquidityInstructionAccounts) metas() []solana.AccountMeta {
	return []solana.AccountMeta{
		solana.NewReadonlyAccountMeta(accounts.User, true),
		solana.NewAccountMeta(accounts.MintLp, false),
		solana.NewAccountMeta(accounts.VaultX, false),
		solana.NewAccountMeta(accounts.VaultY, false),
		solana.NewAccountMeta(accounts.UserX, false),
		solana.NewAccountMeta(accounts.UserY, false),
		solana.NewAccountMeta(accounts.UserLp, false),
		solana.NewReadonlyAccountMeta(accounts.Config, false),
		solana.NewReadonlyAccountMeta(token.ProgramKey, false),
	}
}

type liquidityAccounts struct {
	user         *runtime.AccountInfo
	mintLp       *runtime.AccountInfo
	vaultX       *runtime.AccountInfo
	vaultY       *runtime.AccountInfo
	userX        *runtime.AccountInfo
	userY        *runtime.AccountInfo
	userLp       *runtime.AccountInfo
	config       *runtime.AccountInfo
	tokenProgram *runtime.AccountInfo

	pool *PoolConfig
}

func newLiquidityAccounts(programID ed25519.PublicKey, accounts []runtime.AccountInfo) (*liquidityAccounts, error) {
	if len(accounts) != 9 {
		return nil, errors.Wrapf(ErrNotEnoughAccountKeys, "liquidity instructions require 9 accounts, got %d", len(accounts))
	}

	validated := &liquidityAccounts{
		user:         &accounts[0],
		mintLp:       &accounts[1],
		vaultX:       &accounts[2],
		vaultY:       &accounts[3],
		userX:        &accounts[4],
		userY:        &accounts[5],
		userLp:       &accounts[6],
		config:       &accounts[7],
		tokenProgram: &accounts[8],
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

	if err := checkVault(validated.config.Key, pool.MintX(), validated.vaultX); err != nil {
		return nil, err
	}
	if err := checkVault(validated.config.Key, pool.MintY(), validated.vaultY); err != nil {
		return nil, err
	}

	if _, err := checkLpMint(validated.config.Key, validated.mintLp); err != nil {
		return nil, err
	}

	for _, info := range []*runtime.AccountInfo{
		validated.vaultX,
		validated.vaultY,
		validated.userX,
		validated.userY,
		validated.userLp,
	} {
		if _, err := loadTokenAccount(info); err != nil {
			return nil, err
		}
	}

	return validated, nil
}

// reserves returns the current balances of both vaults
func (a *liquidityAccounts) reserves() (x, y uint64, err error) {
	return readReserves(a.vaultX, a.vaultY)
}

func readReserves(vaultX, vaultY *runtime.AccountInfo) (x, y uint64, err error) {
	decodedX, err := loadTokenAccount(vaultX)
	if err != nil {
		return 0, 0, err
	}
	decodedY, err := loadTokenAccount(vaultY)
	if err != nil {
		return 0, 0, err
	}
	return decodedX.Amount, decodedY.Amount, nil
}
