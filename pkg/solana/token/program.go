package token

import (
	"crypto/ed25519"
	"encoding/binary"

	"github.com/code-payments/token-wrapper/pkg/solana"
	"github.com/code-payments/token-wrapper/pkg/solana/system"
)

// ProgramKey is the address of the token program that should be used.
//
// Current key: TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA
var ProgramKey = ed25519.PublicKey{6, 221, 246, 225, 215, 101, 161, 147, 217, 203, 225, 70, 206, 235, 121, 172, 28, 180, 133, 237, 95, 91, 55, 145, 58, 140, 245, 133, 126, 255, 0, 169}

type Command byte

// Reference: https://github.com/solana-labs/solana-program-library/blob/b011698251981b5a12088acba18fad1d41c3719a/token/program/src/instruction.rs
const (
	CommandInitializeMint Command = iota
	CommandInitializeAccount
	CommandInitializeMultisig
	CommandTransfer
	CommandApprove
	CommandRevoke
	CommandSetAuthority
	CommandMintTo
	CommandBurn
	CommandCloseAccount
	CommandFreezeAccount
	CommandThawAccount
	CommandTransferChecked
	CommandApproveChecked
	CommandMintToChecked
	CommandBurnChecked
	CommandInitializeAccount2
	CommandSyncNative
	CommandInitializeAccount3
	CommandInitializeMultisig2
	CommandInitializeMint2
	CommandGetAccountDataSize
	CommandInitializeImmutableOwner
)

const (
	ErrorNotRentExempt solana.CustomError = iota
	ErrorInsufficientFunds
	ErrorInvalidMint
	ErrorMintMismatch
	ErrorOwnerMismatch
	ErrorFixedSupply
	ErrorAlreadyInUse
	ErrorInvalidNumberOfProvidedSigners
	ErrorInvalidNumberOfRequiredSigners
	ErrorUninitializedState
	ErrorNativeNotSupported
	ErrorNonNativeHasBalance
	ErrorInvalidInstruction
	ErrorInvalidState
	ErrorOverflow
	ErrorAuthorityTypeNotSupported
	ErrorMintCannotFreeze
	ErrorAccountFrozen
	ErrorMintDecimalsMismatch
)

// Instructions builds instructions for the SPL Token program.
var Instructions = NewInstructionBuilder(ProgramKey)

// InstructionBuilder builds instructions for a token program. The SPL Token
// and Token-2022 programs share the base instruction set, so a builder is
// bound to the program that should receive the instructions.
type InstructionBuilder struct {
	program ed25519.PublicKey
}

func NewInstructionBuilder(program ed25519.PublicKey) InstructionBuilder {
	return InstructionBuilder{program: program}
}

func (b InstructionBuilder) Program() ed25519.PublicKey {
	return b.program
}

// Reference: https://github.com/solana-labs/solana-program-library/blob/b011698251981b5a12088acba18fad1d41c3719a/token/program/src/instruction.rs#L29-L40
func (b InstructionBuilder) InitializeMint(mint, mintAuthority, freezeAuthority ed25519.PublicKey, decimals byte) solana.Instruction {
	// Accounts expected by this instruction:
	//
	//   0. `[writable]` The mint to initialize.
	//   1. `[]` Rent sysvar
	return solana.NewInstruction(
		b.program,
		initializeMintData(CommandInitializeMint, mintAuthority, freezeAuthority, decimals),
		solana.NewAccountMeta(mint, false),
		solana.NewReadonlyAccountMeta(system.RentSysVar, false),
	)
}

// InitializeMint2 is InitializeMint without the rent sysvar account.
func (b InstructionBuilder) InitializeMint2(mint, mintAuthority, freezeAuthority ed25519.PublicKey, decimals byte) solana.Instruction {
	return solana.NewInstruction(
		b.program,
		initializeMintData(CommandInitializeMint2, mintAuthority, freezeAuthority, decimals),
		solana.NewAccountMeta(mint, false),
	)
}

// Reference: https://github.com/solana-labs/solana-program-library/blob/b011698251981b5a12088acba18fad1d41c3719a/token/program/src/instruction.rs#L41-L55
func (b InstructionBuilder) InitializeAccount(account, mint, owner ed25519.PublicKey) solana.Instruction {
	// Accounts expected by this instruction:
	//
	//   0. `[writable]`  The account to initialize.
	//   1. `[]` The mint this account will be associated with.
	//   2. `[]` The new account's owner/multisignature.
	//   3. `[]` Rent sysvar
	return solana.NewInstruction(
		b.program,
		[]byte{byte(CommandInitializeAccount)},
		solana.NewAccountMeta(account, false),
		solana.NewReadonlyAccountMeta(mint, false),
		solana.NewReadonlyAccountMeta(owner, false),
		solana.NewReadonlyAccountMeta(system.RentSysVar, false),
	)
}

// InitializeAccount3 carries the owner in the instruction data rather than as
// an account.
func (b InstructionBuilder) InitializeAccount3(account, mint, owner ed25519.PublicKey) solana.Instruction {
	data := make([]byte, 1+ed25519.PublicKeySize)
	data[0] = byte(CommandInitializeAccount3)
	copy(data[1:], owner)

	return solana.NewInstruction(
		b.program,
		data,
		solana.NewAccountMeta(account, false),
		solana.NewReadonlyAccountMeta(mint, false),
	)
}

// InitializeImmutableOwner must run before the account is initialized.
func (b InstructionBuilder) InitializeImmutableOwner(account ed25519.PublicKey) solana.Instruction {
	return solana.NewInstruction(
		b.program,
		[]byte{byte(CommandInitializeImmutableOwner)},
		solana.NewAccountMeta(account, false),
	)
}

// Reference: https://github.com/solana-labs/solana-program-library/blob/b011698251981b5a12088acba18fad1d41c3719a/token/program/src/instruction.rs#L76-L91
func (b InstructionBuilder) Transfer(source, dest, owner ed25519.PublicKey, amount uint64) solana.Instruction {
	// Accounts expected by this instruction:
	//
	//   0. `[writable]` The source account.
	//   1. `[writable]` The destination account.
	//   2. `[signer]` The source account's owner/delegate.
	return solana.NewInstruction(
		b.program,
		amountData(CommandTransfer, amount, nil),
		solana.NewAccountMeta(source, false),
		solana.NewAccountMeta(dest, false),
		solana.NewReadonlyAccountMeta(owner, true),
	)
}

// Reference: https://github.com/solana-labs/solana-program-library/blob/b011698251981b5a12088acba18fad1d41c3719a/token/program/src/instruction.rs#L230-L252
func (b InstructionBuilder) TransferChecked(source, mint, dest, owner ed25519.PublicKey, amount uint64, decimals byte) solana.Instruction {
	// Accounts expected by this instruction:
	//
	//   0. `[writable]` The source account.
	//   1. `[]` The token mint.
	//   2. `[writable]` The destination account.
	//   3. `[signer]` The source account's owner/delegate.
	return solana.NewInstruction(
		b.program,
		amountData(CommandTransferChecked, amount, &decimals),
		solana.NewAccountMeta(source, false),
		solana.NewReadonlyAccountMeta(mint, false),
		solana.NewAccountMeta(dest, false),
		solana.NewReadonlyAccountMeta(owner, true),
	)
}

// Reference: https://github.com/solana-labs/solana-program-library/blob/b011698251981b5a12088acba18fad1d41c3719a/token/program/src/instruction.rs#L140-L151
func (b InstructionBuilder) MintTo(mint, dest, authority ed25519.PublicKey, amount uint64) solana.Instruction {
	// Accounts expected by this instruction:
	//
	//   0. `[writable]` The mint.
	//   1. `[writable]` The account to mint tokens to.
	//   2. `[signer]` The mint's minting authority.
	return solana.NewInstruction(
		b.program,
		amountData(CommandMintTo, amount, nil),
		solana.NewAccountMeta(mint, false),
		solana.NewAccountMeta(dest, false),
		solana.NewReadonlyAccountMeta(authority, true),
	)
}

func (b InstructionBuilder) MintToChecked(mint, dest, authority ed25519.PublicKey, amount uint64, decimals byte) solana.Instruction {
	return solana.NewInstruction(
		b.program,
		amountData(CommandMintToChecked, amount, &decimals),
		solana.NewAccountMeta(mint, false),
		solana.NewAccountMeta(dest, false),
		solana.NewReadonlyAccountMeta(authority, true),
	)
}

// Reference: https://github.com/solana-labs/solana-program-library/blob/b011698251981b5a12088acba18fad1d41c3719a/token/program/src/instruction.rs#L152-L163
func (b InstructionBuilder) Burn(account, mint, owner ed25519.PublicKey, amount uint64) solana.Instruction {
	// Accounts expected by this instruction:
	//
	//   0. `[writable]` The account to burn from.
	//   1. `[writable]` The token mint.
	//   2. `[signer]` The account's owner/delegate.
	return solana.NewInstruction(
		b.program,
		amountData(CommandBurn, amount, nil),
		solana.NewAccountMeta(account, false),
		solana.NewAccountMeta(mint, false),
		solana.NewReadonlyAccountMeta(owner, true),
	)
}

func (b InstructionBuilder) BurnChecked(account, mint, owner ed25519.PublicKey, amount uint64, decimals byte) solana.Instruction {
	return solana.NewInstruction(
		b.program,
		amountData(CommandBurnChecked, amount, &decimals),
		solana.NewAccountMeta(account, false),
		solana.NewAccountMeta(mint, false),
		solana.NewReadonlyAccountMeta(owner, true),
	)
}

// Reference: https://github.com/solana-labs/solana-program-library/blob/b011698251981b5a12088acba18fad1d41c3719a/token/program/src/instruction.rs#L198-L207
func (b InstructionBuilder) FreezeAccount(account, mint, freezeAuthority ed25519.PublicKey) solana.Instruction {
	// Accounts expected by this instruction:
	//
	//   0. `[writable]` The account to freeze.
	//   1. `[]` The token mint.
	//   2. `[signer]` The mint freeze authority.
	return solana.NewInstruction(
		b.program,
		[]byte{byte(CommandFreezeAccount)},
		solana.NewAccountMeta(account, false),
		solana.NewReadonlyAccountMeta(mint, false),
		solana.NewReadonlyAccountMeta(freezeAuthority, true),
	)
}

func (b InstructionBuilder) ThawAccount(account, mint, freezeAuthority ed25519.PublicKey) solana.Instruction {
	return solana.NewInstruction(
		b.program,
		[]byte{byte(CommandThawAccount)},
		solana.NewAccountMeta(account, false),
		solana.NewReadonlyAccountMeta(mint, false),
		solana.NewReadonlyAccountMeta(freezeAuthority, true),
	)
}

func initializeMintData(command Command, mintAuthority, freezeAuthority ed25519.PublicKey, decimals byte) []byte {
	// Instruction level options use a single byte tag rather than the four
	// byte tag used in account state.
	data := make([]byte, 1+1+ed25519.PublicKeySize+1, 1+1+ed25519.PublicKeySize+1+ed25519.PublicKeySize)
	data[0] = byte(command)
	data[1] = decimals
	copy(data[2:], mintAuthority)
	if len(freezeAuthority) > 0 {
		data[2+ed25519.PublicKeySize] = 1
		data = append(data, freezeAuthority...)
	}
	return data
}

func amountData(command Command, amount uint64, decimals *byte) []byte {
	size := 1 + 8
	if decimals != nil {
		size++
	}

	data := make([]byte, size)
	data[0] = byte(command)
	binary.LittleEndian.PutUint64(data[1:], amount)
	if decimals != nil {
		data[9] = *decimals
	}
	return data
}
