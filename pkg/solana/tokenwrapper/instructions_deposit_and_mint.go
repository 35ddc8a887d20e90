package tokenwrapper

import (
	"crypto/ed25519"

	"github.com/code-payments/token-wrapper/pkg/solana"
)

const (
	DepositAndMintInstructionArgsSize = (8 + // amount
		1) // use_max
)

type DepositAndMintInstructionArgs struct {
	// Amount of the underlying asset to deposit. Ignored when UseMax is set, in
	// which case the full balance of the user's underlying account is
	// deposited.
	Amount uint64
	UseMax bool
}

type DepositAndMintInstructionAccounts struct {
	User                       ed25519.PublicKey
	ReserveAuthority           ed25519.PublicKey
	UnderlyingMint             ed25519.PublicKey
	WrapperMint                ed25519.PublicKey
	UserWrapperTokenAccount    ed25519.PublicKey
	UserUnderlyingTokenAccount ed25519.PublicKey
	ReserveTokenAccount        ed25519.PublicKey
}

func NewDepositAndMintInstruction(
	accounts *DepositAndMintInstructionAccounts,
	args *DepositAndMintInstructionArgs,
) solana.Instruction {
	var offset int

	// Serialize instruction arguments
	data := make([]byte, 1+DepositAndMintInstructionArgsSize)

	putInstructionType(data, InstructionTypeDepositAndMint, &offset)
	putUint64(data, args.Amount, &offset)
	putBool(data, args.UseMax, &offset)

	return solana.Instruction{
		Program: PROGRAM_ADDRESS,

		// Instruction args
		Data: data,

		// Instruction accounts
		Accounts: []solana.AccountMeta{
			{
				PublicKey:  accounts.User,
				IsWritable: true,
				IsSigner:   true,
			},
			{
				PublicKey:  accounts.ReserveAuthority,
				IsWritable: false,
				IsSigner:   false,
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
				PublicKey:  accounts.UserWrapperTokenAccount,
				IsWritable: true,
				IsSigner:   false,
			},
			{
				PublicKey:  accounts.UserUnderlyingTokenAccount,
				IsWritable: true,
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
				PublicKey:  SPL_ASSOCIATED_TOKEN_ACCOUNT_PROGRAM_ID,
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
