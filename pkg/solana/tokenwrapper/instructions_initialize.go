package tokenwrapper

import (
	"crypto/ed25519"

	"github.com/code-payments/token-wrapper/pkg/solana"
)

const (
	InitializeInstructionArgsSize = 0
)

type InitializeInstructionArgs struct {
}

type InitializeInstructionAccounts struct {
	Payer               ed25519.PublicKey
	UnderlyingMint      ed25519.PublicKey
	WrapperMint         ed25519.PublicKey
	ReserveAuthority    ed25519.PublicKey
	ReserveTokenAccount ed25519.PublicKey
}

func NewInitializeInstruction(
	accounts *InitializeInstructionAccounts,
	args *InitializeInstructionArgs,
) solana.Instruction {
	var offset int

	// Serialize instruction arguments
	data := make([]byte, 1+InitializeInstructionArgsSize)

	putInstructionType(data, InstructionTypeInitialize, &offset)

	return solana.Instruction{
		Program: PROGRAM_ADDRESS,

		// Instruction args
		Data: data,

		// Instruction accounts
		Accounts: []solana.AccountMeta{
			{
				PublicKey:  accounts.Payer,
				IsWritable: true,
				IsSigner:   true,
			},
			{
				PublicKey:  accounts.UnderlyingMint,
				IsWritable: false,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.WrapperMint,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.ReserveAuthority,
				IsWritable: false,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.ReserveTokenAccount,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  SPL_TOKEN_PROGRAM_ID,
				IsWritable: false,
				IsSigner:   false,
			},
			{
				PublicKey:  SPL_TOKEN_2022_PROGRAM_ID,
				IsWritable: false,
				IsSigner:   false,
			},
			{
				PublicKey:  SYSTEM_PROGRAM_ID,
				IsWritable: false,
				IsSigner:   false,
			},
			{
				PublicKey:  SYSVAR_RENT_PUBKEY,
				IsWritable: false,
				IsSigner:   false,
			},
		},
	}
}
