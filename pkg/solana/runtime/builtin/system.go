// Package builtin provides the native programs a ledger needs to host the
// token wrapper: system, SPL Token, Token-2022 and associated token accounts.
package builtin

import (
	"github.com/code-payments/token-wrapper/pkg/solana/runtime"
	"github.com/code-payments/token-wrapper/pkg/solana/system"
)

// System creates and funds accounts.
type System struct{}

func NewSystemProgram() runtime.Program {
	return &System{}
}

func (p *System) ProcessInstruction(ctx runtime.InvokeContext, accounts []*runtime.AccountInfo, data []byte) error {
	command, err := system.DecodeCommand(data)
	if err != nil {
		return runtime.ErrInvalidInstructionData
	}

	switch command {
	case system.CommandCreateAccount:
		args, err := system.DecodeCreateAccountArgs(data)
		if err != nil {
			return runtime.ErrInvalidInstructionData
		}
		return p.createAccount(ctx, accounts, args)
	case system.CommandTransfer:
		lamports, err := system.DecodeTransferArgs(data)
		if err != nil {
			return runtime.ErrInvalidInstructionData
		}
		return p.transfer(ctx, accounts, lamports)
	default:
		return runtime.ErrInvalidInstructionData
	}
}

func (p *System) createAccount(ctx runtime.InvokeContext, accounts []*runtime.AccountInfo, args *system.CreateAccountArgs) error {
	if len(accounts) < 2 {
		return runtime.ErrNotEnoughAccountKeys
	}
	funder, created := accounts[0], accounts[1]

	if !funder.IsSigner || !created.IsSigner {
		return runtime.ErrMissingRequiredSignature
	}

	if created.Lamports > 0 || len(created.Data) > 0 || !created.IsOwnedBy(system.ProgramKey[:]) {
		ctx.Log().WithField("account", encode(created.Key)).Debug("create account: address already in use")
		return system.ErrorAccountAlreadyInUse
	}
	if args.Size > system.MaxPermittedDataLength {
		return system.ErrorInvalidAccountDataLength
	}
	if funder.Lamports < args.Lamports {
		ctx.Log().WithField("account", encode(funder.Key)).Debug("create account: insufficient lamports")
		return system.ErrorResultWithNegativeLamports
	}

	funder.Lamports -= args.Lamports
	created.Lamports += args.Lamports
	created.Data = make([]byte, args.Size)
	created.Owner = cloneKey(args.Owner)

	return nil
}

func (p *System) transfer(ctx runtime.InvokeContext, accounts []*runtime.AccountInfo, lamports uint64) error {
	if len(accounts) < 2 {
		return runtime.ErrNotEnoughAccountKeys
	}
	from, to := accounts[0], accounts[1]

	if !from.IsSigner {
		return runtime.ErrMissingRequiredSignature
	}
	if len(from.Data) > 0 {
		return runtime.ErrInvalidArgument
	}
	if from.Lamports < lamports {
		ctx.Log().WithField("account", encode(from.Key)).Debug("transfer: insufficient lamports")
		return system.ErrorResultWithNegativeLamports
	}

	from.Lamports -= lamports
	to.Lamports += lamports
	return nil
}
