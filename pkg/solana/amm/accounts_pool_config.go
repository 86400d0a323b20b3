package amm

import (
	"bytes"
	"crypto/ed25519"
	"fmt"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"

	"github.com/code-payments/amm-program/pkg/solana/binary"
	"github.com/code-payments/amm-program/pkg/solana/runtime"
)

type PoolState uint8

const (
	PoolStateUninitialized PoolState = iota
	PoolStateInitialized
	PoolStateDisabled
	PoolStateWithdrawOnly
)

func (s PoolState) String() string {
	switch s {
	case PoolStateUninitialized:
		return "uninitialized"
	case PoolStateInitialized:
		return "initialized"
	case PoolStateDisabled:
		return "disabled"
	case PoolStateWithdrawOnly:
		return "withdraw_only"
	}
	return fmt.Sprintf("unknown(%d)", uint8(s))
}

const (
	PoolConfigSize = (1 + // state
		8 + // seed
		32 + // authority
		32 + // mint_x
		32 + // mint_y
		2 + // fee
		1) // config_bump
)

var zeroKey = make(ed25519.PublicKey, ed25519.PublicKeySize)

// PoolConfig is the persistent record of a pool. Fields are only mutated
// through setters that enforce the record's invariants.
type PoolConfig struct {
	state      PoolState
	seed       uint64
	authority  ed25519.PublicKey
	mintX      ed25519.PublicKey
	mintY      ed25519.PublicKey
	fee        uint16
	configBump uint8
}

func (c *PoolConfig) State() PoolState {
	return c.state
}

func (c *PoolConfig) Seed() uint64 {
	return c.seed
}

// Authority returns the pool's authority. The all-zero key is the sentinel
// for a pool without one.
func (c *PoolConfig) Authority() (ed25519.PublicKey, bool) {
	if len(c.authority) == 0 || bytes.Equal(c.authority, zeroKey) {
		return nil, false
	}
	return c.authority, true
}

func (c *PoolConfig) MintX() ed25519.PublicKey {
	return c.mintX
}

func (c *PoolConfig) MintY() ed25519.PublicKey {
	return c.mintY
}

// Fee returns the swap fee in basis points
func (c *PoolConfig) Fee() uint16 {
	return c.fee
}

func (c *PoolConfig) ConfigBump() uint8 {
	return c.configBump
}

// SetState updates the pool's state. Only states preceding WithdrawOnly can
// be set.
//
// todo: WithdrawOnly is unreachable until the bound is confirmed to be
// inclusive.
func (c *PoolConfig) SetState(state PoolState) error {
	if state >= PoolStateWithdrawOnly {
		return errors.Wrapf(ErrInvalidArgument, "cannot set pool state to %s", state)
	}
	c.state = state
	return nil
}

func (c *PoolConfig) SetSeed(seed uint64) {
	c.seed = seed
}

// SetAuthority updates the pool's authority. An empty key clears it.
func (c *PoolConfig) SetAuthority(authority ed25519.PublicKey) {
	c.authority = copyKey(authority)
}

func (c *PoolConfig) SetMintX(mint ed25519.PublicKey) {
	c.mintX = copyKey(mint)
}

func (c *PoolConfig) SetMintY(mint ed25519.PublicKey) {
	c.mintY = copyKey(mint)
}

// SetFee updates the swap fee, which must be below MaxFeeBps
func (c *PoolConfig) SetFee(fee uint16) error {
	if fee >= MaxFeeBps {
		return errors.Wrapf(ErrInvalidArgument, "fee of %d bps exceeds maximum", fee)
	}
	c.fee = fee
	return nil
}

func (c *PoolConfig) SetConfigBump(bump uint8) {
	c.configBump = bump
}

// SetInner populates a freshly created config and marks the pool initialized
func (c *PoolConfig) SetInner(seed uint64, authority, mintX, mintY ed25519.PublicKey, fee uint16, configBump uint8) error {
	if err := c.SetState(PoolStateInitialized); err != nil {
		return err
	}
	c.SetSeed(seed)
	c.SetAuthority(authority)
	c.SetMintX(mintX)
	c.SetMintY(mintY)
	if err := c.SetFee(fee); err != nil {
		return err
	}
	c.SetConfigBump(configBump)
	return nil
}

// Signer returns the proof that authorizes the program to act on behalf of
// the config address during an invocation.
func (c *PoolConfig) Signer() runtime.Signer {
	return configSeeds(c.seed, c.mintX, c.mintY, c.configBump)
}

// Address recomputes the config address from the stored seeds
func (c *PoolConfig) Address(programID ed25519.PublicKey) (ed25519.PublicKey, error) {
	return GetConfigAddress(
		programID,
		&GetConfigAddressArgs{
			Seed:  c.seed,
			MintX: c.mintX,
			MintY: c.mintY,
		},
		c.configBump,
	)
}

func (c *PoolConfig) Marshal() []byte {
	b := make([]byte, PoolConfigSize)

	var offset int
	binary.PutUint8(b, uint8(c.state), &offset)
	binary.PutUint64(b[offset:], c.seed, &offset)
	binary.PutKey32(b[offset:], c.authority, &offset)
	binary.PutKey32(b[offset:], c.mintX, &offset)
	binary.PutKey32(b[offset:], c.mintY, &offset)
	binary.PutUint16(b[offset:], c.fee, &offset)
	binary.PutUint8(b[offset:], c.configBump, &offset)

	return b
}

func (c *PoolConfig) Unmarshal(data []byte) error {
	if len(data) != PoolConfigSize {
		return errors.Wrapf(ErrAccountShapeViolation, "pool config is %d bytes", len(data))
	}

	var state uint8
	var offset int
	binary.GetUint8(data, &state, &offset)
	binary.GetUint64(data[offset:], &c.seed, &offset)
	binary.GetKey32(data[offset:], &c.authority, &offset)
	binary.GetKey32(data[offset:], &c.mintX, &offset)
	binary.GetKey32(data[offset:], &c.mintY, &offset)
	binary.GetUint16(data[offset:], &c.fee, &offset)
	binary.GetUint8(data[offset:], &c.configBump, &offset)
	c.state = PoolState(state)

	return nil
}

func (c *PoolConfig) String() string {
	authority := "none"
	if key, ok := c.Authority(); ok {
		authority = base58.Encode(key)
	}

	return fmt.Sprintf(
		"PoolConfig{state=%s,seed=%d,authority=%s,mint_x=%s,mint_y=%s,fee=%d,config_bump=%d}",
		c.state,
		c.seed,
		authority,
		base58.Encode(c.mintX),
		base58.Encode(c.mintY),
		c.fee,
		c.configBump,
	)
}

// LoadPoolConfig decodes the pool config held by info after checking the
// account is a config owned by the program.
func LoadPoolConfig(programID ed25519.PublicKey, info *runtime.AccountInfo) (*PoolConfig, error) {
	if err := checkPoolConfigAccount(programID, info); err != nil {
		return nil, err
	}

	var config PoolConfig
	if err := config.Unmarshal(info.Data); err != nil {
		return nil, err
	}
	return &config, nil
}

// Store writes the pool config into info, which must be a config owned by the
// program.
func (c *PoolConfig) Store(programID ed25519.PublicKey, info *runtime.AccountInfo) error {
	if err := checkPoolConfigAccount(programID, info); err != nil {
		return err
	}

	copy(info.Data, c.Marshal())
	return nil
}

func checkPoolConfigAccount(programID ed25519.PublicKey, info *runtime.AccountInfo) error {
	if len(info.Data) != PoolConfigSize {
		return errors.Wrapf(ErrAccountShapeViolation, "config %s is %d bytes", base58.Encode(info.Key), len(info.Data))
	}
	if !bytes.Equal(info.Owner, programID) {
		return errors.Wrapf(ErrAccountShapeViolation, "config %s is not owned by the program", base58.Encode(info.Key))
	}
	return nil
}

func copyKey(key ed25519.PublicKey) ed25519.PublicKey {
	if len(key) == 0 {
		return nil
	}
	copied := make(ed25519.PublicKey, len(key))
	copy(copied, key)
	return copied
}
