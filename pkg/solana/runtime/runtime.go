// Package runtime defines the collaborators a program consumes from the ledger
// it executes in: account storage, cross-program invocation, the clock and the
// rent oracle.
package runtime

import (
	"context"
	"crypto/ed25519"

	"github.com/code-payments/amm-program/pkg/solana"
)

// Account is the ledger's record for a single address.
type Account struct {
	Owner      ed25519.PublicKey
	Lamports   uint64
	Data       []byte
	Executable bool
}

// Clone returns a deep copy of the account.
func (a *Account) Clone() *Account {
	cloned := &Account{
		Owner:      make(ed25519.PublicKey, len(a.Owner)),
		Lamports:   a.Lamports,
		Data:       make([]byte, len(a.Data)),
		Executable: a.Executable,
	}
	copy(cloned.Owner, a.Owner)
	copy(cloned.Data, a.Data)
	return cloned
}

// AccountInfo is an account as supplied to a program for a single
// instruction, along with the flags the caller attached to it.
//
// The embedded Account is shared with the ledger for the duration of the
// instruction, so effects of cross-program invocations are visible through it.
type AccountInfo struct {
	Key        ed25519.PublicKey
	IsSigner   bool
	IsWritable bool

	*Account
}

// Signer is the seed list, bump included, of a derived address the calling
// program wants to act on behalf of during an invocation. The ledger re-derives
// the address under the calling program, so a Signer can only ever authorize
// addresses owned by that program.
type Signer [][]byte

// Invoker performs cross-program invocations.
type Invoker interface {
	// Invoke executes the instruction against the ledger. Accounts referenced
	// by the instruction must have been supplied to the calling program.
	Invoke(ctx context.Context, instruction solana.Instruction, signers ...Signer) error
}

// Clock is the ledger's time oracle.
type Clock interface {
	// UnixTimestamp returns the current ledger time in Unix seconds.
	UnixTimestamp(ctx context.Context) (int64, error)
}

// Rent is the ledger's rent oracle.
type Rent interface {
	// MinimumBalance returns the lamports required for an account holding
	// size bytes of data to be exempt from rent.
	MinimumBalance(ctx context.Context, size uint64) (uint64, error)
}

// Environment bundles the collaborators available to a program while it
// processes an instruction.
type Environment struct {
	Invoker Invoker
	Clock   Clock
	Rent    Rent
}

// Program processes instructions addressed to it.
type Program interface {
	// Process executes a single instruction with the supplied accounts.
	Process(ctx context.Context, env Environment, accounts []AccountInfo, data []byte) error
}
