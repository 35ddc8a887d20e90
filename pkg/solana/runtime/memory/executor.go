package memory

import (
	"bytes"
	"crypto/ed25519"

	"github.com/mr-tron/base58"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/token-wrapper/pkg/solana"
	"github.com/code-payments/token-wrapper/pkg/solana/runtime"
	"github.com/code-payments/token-wrapper/pkg/solana/system"
)

// executor runs the instructions of a single transaction against a working
// set of accounts.
type executor struct {
	bank     *Bank
	accounts map[string]*runtime.Account
	epoch    uint64
	log      *logrus.Entry

	// stack holds the programs of the active invocations, outermost first.
	stack []ed25519.PublicKey
}

type accountRef struct {
	key        ed25519.PublicKey
	isSigner   bool
	isWritable bool
}

// snapshot is the state of an account at the start of an instruction, or
// after the last cross-program invocation it made.
type snapshot struct {
	key        ed25519.PublicKey
	isWritable bool
	lamports   uint64
	data       []byte
	owner      ed25519.PublicKey
	executable bool
}

func (e *executor) processTopLevel(m solana.Message, index int) error {
	compiled := m.Instructions[index]

	refs := make([]accountRef, len(compiled.Accounts))
	for i, accountIndex := range compiled.Accounts {
		refs[i] = accountRef{
			key:        m.Accounts[accountIndex],
			isSigner:   m.IsSigner(int(accountIndex)),
			isWritable: m.IsWritable(int(accountIndex)),
		}
	}

	return e.process(m.Accounts[compiled.ProgramIndex], refs, compiled.Data)
}

func (e *executor) process(programID ed25519.PublicKey, refs []accountRef, data []byte) error {
	program, ok := e.bank.program(programID)
	if !ok {
		return runtime.ErrUnsupportedProgramID
	}

	infos := make([]*runtime.AccountInfo, len(refs))
	for i, ref := range refs {
		account, ok := e.accounts[string(ref.key)]
		if !ok {
			return runtime.ErrMissingAccount
		}

		infos[i] = &runtime.AccountInfo{
			Account:    account,
			Key:        ref.key,
			IsSigner:   ref.isSigner,
			IsWritable: ref.isWritable,
		}
	}

	e.stack = append(e.stack, programID)
	defer func() {
		e.stack = e.stack[:len(e.stack)-1]
	}()

	ctx := &invokeContext{
		executor:  e,
		programID: programID,
		accounts:  infos,
		pre:       e.snapshot(refs),
		log: e.log.WithFields(logrus.Fields{
			"program": base58.Encode(programID),
			"depth":   len(e.stack),
		}),
	}

	if err := program.ProcessInstruction(ctx, infos, data); err != nil {
		return err
	}

	return e.verify(programID, ctx.pre)
}

func (e *executor) snapshot(refs []accountRef) []snapshot {
	var snapshots []snapshot
	indexes := make(map[string]int)

	for _, ref := range refs {
		if i, ok := indexes[string(ref.key)]; ok {
			snapshots[i].isWritable = snapshots[i].isWritable || ref.isWritable
			continue
		}

		account := e.accounts[string(ref.key)]
		indexes[string(ref.key)] = len(snapshots)
		snapshots = append(snapshots, snapshot{
			key:        ref.key,
			isWritable: ref.isWritable,
			lamports:   account.Lamports,
			data:       append([]byte(nil), account.Data...),
			owner:      append(ed25519.PublicKey(nil), account.Owner...),
			executable: account.Executable,
		})
	}

	return snapshots
}

// verify enforces the account modification rules for program against the
// pre-instruction snapshots.
//
// Reference: https://github.com/solana-labs/solana/blob/v1.14.17/program-runtime/src/pre_account.rs#L40
func (e *executor) verify(program ed25519.PublicKey, pre []snapshot) error {
	var preTotal, postTotal uint64

	for _, before := range pre {
		after := e.accounts[string(before.key)]
		ownedByProgram := isOwner(before.owner, program)

		preTotal += before.lamports
		postTotal += after.Lamports

		if !bytes.Equal(normalizeOwner(before.owner), normalizeOwner(after.Owner)) {
			if !ownedByProgram || !before.isWritable || before.executable || !isZeroed(after.Data) {
				return runtime.ErrModifiedProgramID
			}
		}

		if after.Lamports < before.lamports && !ownedByProgram {
			return runtime.ErrExternalAccountLamportSpend
		}
		if after.Lamports != before.lamports && !before.isWritable {
			return runtime.ErrReadonlyLamportChange
		}

		if len(after.Data) != len(before.data) {
			if !ownedByProgram || !before.isWritable {
				return runtime.ErrAccountDataSizeChanged
			}
		} else if !bytes.Equal(after.Data, before.data) {
			if !before.isWritable {
				return runtime.ErrReadonlyDataModified
			}
			if !ownedByProgram {
				return runtime.ErrExternalAccountDataModified
			}
		}

		if after.Executable != before.executable {
			return runtime.ErrInvalidAccountData
		}
	}

	if preTotal != postTotal {
		return runtime.ErrUnbalancedInstruction
	}
	return nil
}

type invokeContext struct {
	executor  *executor
	programID ed25519.PublicKey
	accounts  []*runtime.AccountInfo
	pre       []snapshot
	log       *logrus.Entry
}

func (c *invokeContext) ProgramID() ed25519.PublicKey {
	return c.programID
}

func (c *invokeContext) Rent() system.Rent {
	return c.executor.bank.rent
}

func (c *invokeContext) Epoch() uint64 {
	return c.executor.epoch
}

func (c *invokeContext) Log() *logrus.Entry {
	return c.log
}

func (c *invokeContext) Invoke(ix solana.Instruction) error {
	return c.InvokeSigned(ix)
}

// Reference: https://github.com/solana-labs/solana/blob/v1.14.17/programs/bpf_loader/src/syscalls/cpi.rs
func (c *invokeContext) InvokeSigned(ix solana.Instruction, signerSeeds ...[][]byte) error {
	e := c.executor

	if len(e.stack) >= runtime.MaxInvokeDepth {
		return runtime.ErrCallDepth
	}
	for i, program := range e.stack {
		// Direct recursion is permitted, re-entering an outer program isn't.
		if bytes.Equal(program, ix.Program) && i != len(e.stack)-1 {
			return runtime.ErrReentrancyNotAllowed
		}
	}

	if _, ok := runtime.FindAccount(c.accounts, ix.Program); !ok {
		return runtime.ErrMissingAccount
	}

	signers := make([]ed25519.PublicKey, 0, len(signerSeeds))
	for _, seeds := range signerSeeds {
		address, err := solana.CreateProgramAddress(c.programID, seeds...)
		switch err {
		case nil:
			signers = append(signers, address)
		case solana.ErrMaxSeedLengthExceeded:
			return runtime.ErrMaxSeedLengthExceeded
		default:
			return runtime.ErrInvalidSeeds
		}
	}

	refs := make([]accountRef, len(ix.Accounts))
	for i, meta := range ix.Accounts {
		caller, ok := c.callerPrivileges(meta.PublicKey)
		if !ok {
			c.log.WithField("account", base58.Encode(meta.PublicKey)).Debug("account missing from caller")
			return runtime.ErrMissingAccount
		}

		if meta.IsWritable && !caller.isWritable {
			c.log.WithField("account", base58.Encode(meta.PublicKey)).Debug("writable privilege escalated")
			return runtime.ErrPrivilegeEscalation
		}
		if meta.IsSigner && !caller.isSigner && !containsKey(signers, meta.PublicKey) {
			c.log.WithField("account", base58.Encode(meta.PublicKey)).Debug("signer privilege escalated")
			return runtime.ErrPrivilegeEscalation
		}

		refs[i] = accountRef{
			key:        meta.PublicKey,
			isSigner:   meta.IsSigner,
			isWritable: meta.IsWritable,
		}
	}

	// The caller's own changes are checked before the callee observes them,
	// and the callee's changes are absorbed once it returns.
	if err := e.verify(c.programID, c.pre); err != nil {
		return err
	}

	if err := e.process(ix.Program, refs, ix.Data); err != nil {
		return err
	}

	c.pre = e.snapshot(c.refs())
	return nil
}

// callerPrivileges merges the privileges of every caller account keyed by key.
func (c *invokeContext) callerPrivileges(key ed25519.PublicKey) (accountRef, bool) {
	ref := accountRef{key: key}

	var found bool
	for _, info := range c.accounts {
		if !bytes.Equal(info.Key, key) {
			continue
		}

		found = true
		ref.isSigner = ref.isSigner || info.IsSigner
		ref.isWritable = ref.isWritable || info.IsWritable
	}
	return ref, found
}

func (c *invokeContext) refs() []accountRef {
	refs := make([]accountRef, len(c.accounts))
	for i, info := range c.accounts {
		refs[i] = accountRef{
			key:        info.Key,
			isSigner:   info.IsSigner,
			isWritable: info.IsWritable,
		}
	}
	return refs
}

func isOwner(owner, program ed25519.PublicKey) bool {
	return bytes.Equal(normalizeOwner(owner), program)
}

func normalizeOwner(owner ed25519.PublicKey) ed25519.PublicKey {
	if len(owner) == 0 {
		return system.ProgramKey[:]
	}
	return owner
}

func isZeroed(data []byte) bool {
	for _, v := range data {
		if v != 0 {
			return false
		}
	}
	return true
}

func containsKey(keys []ed25519.PublicKey, key ed25519.PublicKey) bool {
	for _, k := range keys {
		if bytes.Equal(k, key) {
			return true
		}
	}
	return false
}
