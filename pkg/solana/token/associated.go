package token

import (
	"crypto/ed25519"

	"github.com/pkg/errors"

	"github.com/code-payments/token-wrapper/pkg/solana"
	"github.com/code-payments/token-wrapper/pkg/solana/system"
)

// AssociatedTokenAccountProgramKey  is the address of the associated token account program that should be used.
//
// Current key: ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL
var AssociatedTokenAccountProgramKey = ed25519.PublicKey{140, 151, 37, 143, 78, 36, 137, 241, 187, 61, 16, 41, 20, 142, 13, 131, 11, 90, 19, 153, 218, 255, 16, 132, 4, 142, 123, 216, 219, 233, 248, 89}

type AssociatedCommand byte

const (
	AssociatedCommandCreate AssociatedCommand = iota
	AssociatedCommandCreateIdempotent
)

var ErrInvalidAssociatedInstructionData = errors.New("invalid associated token account instruction data")

// GetAssociatedAccount returns the associated account address for an SPL token.
//
// Reference: https://spl.solana.com/associated-token-account#finding-the-associated-token-account-address
func GetAssociatedAccount(wallet, mint ed25519.PublicKey) (ed25519.PublicKey, error) {
	return GetAssociatedAccountForProgram(wallet, mint, ProgramKey)
}

// GetAssociatedAccountForProgram derives the associated account of a mint
// owned by tokenProgram, which allows Token-2022 mints to be used.
func GetAssociatedAccountForProgram(wallet, mint, tokenProgram ed25519.PublicKey) (ed25519.PublicKey, error) {
	return solana.FindProgramAddress(
		AssociatedTokenAccountProgramKey,
		wallet,
		tokenProgram,
		mint,
	)
}

// Reference: https://github.com/solana-labs/solana-program-library/blob/0639953c7dd0f5228c3ceda3ba68fece3b46ff1d/associated-token-account/program/src/lib.rs#L54
func CreateAssociatedTokenAccount(subsidizer, wallet, mint ed25519.PublicKey) (solana.Instruction, ed25519.PublicKey, error) {
	return CreateAssociatedTokenAccountForProgram(subsidizer, wallet, mint, ProgramKey)
}

func CreateAssociatedTokenAccountForProgram(subsidizer, wallet, mint, tokenProgram ed25519.PublicKey) (solana.Instruction, ed25519.PublicKey, error) {
	addr, err := GetAssociatedAccountForProgram(wallet, mint, tokenProgram)
	if err != nil {
		return solana.Instruction{}, nil, err
	}

	// Accounts expected by this instruction:
	//
	//   0. `[writeable,signer]` Funding account
	//   1. `[writeable]` Associated token account address to be created
	//   2. `[]` Wallet address for the new associated token account
	//   3. `[]` The token mint for the new associated token account
	//   4. `[]` System program
	//   5. `[]` SPL Token program
	//   6. `[]` Rent sysvar
	return solana.NewInstruction(
		AssociatedTokenAccountProgramKey,
		[]byte{byte(AssociatedCommandCreate)},
		solana.NewAccountMeta(subsidizer, true),
		solana.NewAccountMeta(addr, false),
		solana.NewReadonlyAccountMeta(wallet, false),
		solana.NewReadonlyAccountMeta(mint, false),
		solana.NewReadonlyAccountMeta(system.ProgramKey[:], false),
		solana.NewReadonlyAccountMeta(tokenProgram, false),
		solana.NewReadonlyAccountMeta(system.RentSysVar, false),
	), addr, nil
}

// DecodeAssociatedCommand returns the command of an associated token account
// instruction. Empty data is the original Create encoding.
func DecodeAssociatedCommand(data []byte) (AssociatedCommand, error) {
	if len(data) == 0 {
		return AssociatedCommandCreate, nil
	}

	switch command := AssociatedCommand(data[0]); command {
	case AssociatedCommandCreate, AssociatedCommandCreateIdempotent:
		return command, nil
	default:
		return 0, ErrInvalidAssociatedInstructionData
	}
}
