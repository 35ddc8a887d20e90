package builtin

import (
	"bytes"

	"github.com/code-payments/token-wrapper/pkg/solana"
	"github.com/code-payments/token-wrapper/pkg/solana/runtime"
	"github.com/code-payments/token-wrapper/pkg/solana/system"
	"github.com/code-payments/token-wrapper/pkg/solana/token"
	"github.com/code-payments/token-wrapper/pkg/solana/token2022"
)

// AssociatedTokenAccount creates the canonical token account of a wallet for
// a mint.
type AssociatedTokenAccount struct{}

func NewAssociatedTokenAccountProgram() runtime.Program {
	return &AssociatedTokenAccount{}
}

func (p *AssociatedTokenAccount) ProcessInstruction(ctx runtime.InvokeContext, accounts []*runtime.AccountInfo, data []byte) error {
	command, err := token.DecodeAssociatedCommand(data)
	if err != nil {
		return runtime.ErrInvalidInstructionData
	}

	// Accounts expected by this instruction:
	//
	//   0. `[writeable,signer]` Funding account
	//   1. `[writeable]` Associated token account address to be created
	//   2. `[]` Wallet address for the new associated token account
	//   3. `[]` The token mint for the new associated token account
	//   4. `[]` System program
	//   5. `[]` Token program
	if len(accounts) < 6 {
		return runtime.ErrNotEnoughAccountKeys
	}
	funder, associated, wallet, mint, systemProgram, tokenProgram := accounts[0], accounts[1], accounts[2], accounts[3], accounts[4], accounts[5]

	if !bytes.Equal(systemProgram.Key, system.ProgramKey[:]) {
		return runtime.ErrIncorrectProgramID
	}
	if !bytes.Equal(tokenProgram.Key, token.ProgramKey) && !bytes.Equal(tokenProgram.Key, token2022.ProgramKey) {
		return runtime.ErrIncorrectProgramID
	}
	if !mint.IsOwnedBy(tokenProgram.Key) {
		return runtime.ErrIncorrectProgramID
	}

	expected, bump, err := solana.FindProgramAddressAndBump(
		ctx.ProgramID(),
		wallet.Key,
		tokenProgram.Key,
		mint.Key,
	)
	if err != nil {
		return runtime.ErrInvalidSeeds
	}
	if !bytes.Equal(expected, associated.Key) {
		ctx.Log().WithField("expected", encode(expected)).Debug("associated address mismatch")
		return runtime.ErrInvalidSeeds
	}

	if command == token.AssociatedCommandCreateIdempotent && associated.IsOwnedBy(tokenProgram.Key) {
		var existing token2022.AccountWithExtensions
		if err := existing.Unmarshal(associated.Data); err != nil || !existing.Base.IsInitialized() {
			return runtime.ErrInvalidAccountData
		}
		if !bytes.Equal(existing.Base.Owner, wallet.Key) {
			return runtime.ErrIllegalOwner
		}
		return nil
	}

	size := token.AccountSize
	if bytes.Equal(tokenProgram.Key, token2022.ProgramKey) {
		size, err = token2022.GetAccountLen(mint.Data, token2022.ExtensionTypeImmutableOwner)
		if err != nil {
			return runtime.ErrInvalidAccountData
		}
	}

	err = ctx.InvokeSigned(
		system.CreateAccount(funder.Key, associated.Key, tokenProgram.Key, ctx.Rent().MinimumBalance(uint64(size)), uint64(size)),
		[][]byte{wallet.Key, tokenProgram.Key, mint.Key, {bump}},
	)
	if err != nil {
		return err
	}

	instructions := token.NewInstructionBuilder(tokenProgram.Key)
	if bytes.Equal(tokenProgram.Key, token2022.ProgramKey) {
		if err := ctx.Invoke(instructions.InitializeImmutableOwner(associated.Key)); err != nil {
			return err
		}
	}

	return ctx.Invoke(instructions.InitializeAccount3(associated.Key, mint.Key, wallet.Key))
}
