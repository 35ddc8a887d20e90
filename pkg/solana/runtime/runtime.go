// Package runtime defines the contract between a ledger and the programs it
// executes.
package runtime

import (
	"bytes"
	"crypto/ed25519"

	"github.com/sirupsen/logrus"

	"github.com/code-payments/token-wrapper/pkg/solana"
	"github.com/code-payments/token-wrapper/pkg/solana/system"
)

// MaxInvokeDepth bounds nested cross-program invocation. The top level
// instruction counts as the first level.
const MaxInvokeDepth = 4

// Account is the ledger level state of an address.
type Account struct {
	Lamports   uint64
	Data       []byte
	Owner      ed25519.PublicKey
	Executable bool
}

func (a *Account) Clone() *Account {
	clone := &Account{
		Lamports:   a.Lamports,
		Data:       make([]byte, len(a.Data)),
		Owner:      make(ed25519.PublicKey, len(a.Owner)),
		Executable: a.Executable,
	}
	copy(clone.Data, a.Data)
	copy(clone.Owner, a.Owner)
	return clone
}

// IsOwnedBy reports whether program owns the account. An unset owner is the
// system program.
func (a *Account) IsOwnedBy(program ed25519.PublicKey) bool {
	if len(a.Owner) == 0 {
		return bytes.Equal(program, system.ProgramKey[:])
	}
	return bytes.Equal(a.Owner, program)
}

// Info returns the solana.AccountInfo view of the account.
func (a *Account) Info() solana.AccountInfo {
	clone := a.Clone()
	return solana.AccountInfo{
		Data:       clone.Data,
		Owner:      clone.Owner,
		Lamports:   clone.Lamports,
		Executable: clone.Executable,
	}
}

// AccountInfo is an account as passed to an executing instruction. Entries
// that reference the same key share the underlying Account.
type AccountInfo struct {
	*Account

	Key        ed25519.PublicKey
	IsSigner   bool
	IsWritable bool
}

// Program processes instructions addressed to its program id.
type Program interface {
	ProcessInstruction(ctx InvokeContext, accounts []*AccountInfo, data []byte) error
}

// ProgramFunc adapts a function to a Program.
type ProgramFunc func(ctx InvokeContext, accounts []*AccountInfo, data []byte) error

func (f ProgramFunc) ProcessInstruction(ctx InvokeContext, accounts []*AccountInfo, data []byte) error {
	return f(ctx, accounts, data)
}

// InvokeContext exposes the ledger to an executing program.
type InvokeContext interface {
	// ProgramID is the id of the executing program.
	ProgramID() ed25519.PublicKey

	// Invoke executes ix as a cross-program invocation. Every account it
	// references must have been passed to the calling instruction, and it can
	// only carry the signer and writable privileges the caller holds.
	Invoke(ix solana.Instruction) error

	// InvokeSigned is Invoke with the program addresses derived from
	// ProgramID and each seed list granted signer status.
	InvokeSigned(ix solana.Instruction, signerSeeds ...[][]byte) error

	Rent() system.Rent
	Epoch() uint64
	Log() *logrus.Entry
}

// FindAccount returns the first account info keyed by key.
func FindAccount(accounts []*AccountInfo, key ed25519.PublicKey) (*AccountInfo, bool) {
	for _, info := range accounts {
		if bytes.Equal(info.Key, key) {
			return info, true
		}
	}
	return nil, false
}
