package tokenwrapper

import (
	"crypto/ed25519"

	"github.com/code-payments/token-wrapper/pkg/solana"
)

const (
	WithdrawAndBurnInstructionArgsSize = (8 + // amount
		1) // use_max
)

type WithdrawAndBurnInstructionArgs struct {
	// Amount of the wrapper token to burn. Ignored when UseMax is set, in
	// which case the full wrapper balance is burned.
	Amount uint64
	UseMax bool
}

type WithdrawAndBurnInstructionAccounts struct {
	User                       ed25519.PublicKey
	ReserveAuthority           ed25519.PublicKey
	UnderlyingMint             ed25519.PublicKey
	WrapperMint                ed25519.PublicKey
	UserWrapperTokenAccount    ed25519.PublicKey
	UserUnderlyingTokenAccount ed25519.PublicKey
	ReserveTokenAccount        ed25519.PublicKey
}

func NewWithdrawAndBurnInstruction(
	accounts *WithdrawAndBurnInstructionAccounts,
	args *WithdrawAndBurnInstructionArgs,
) solana.Instruction {
	var offset int

	// Serialize instruction arguments
	data := make([]byte, 1+WithdrawAndBurnInstructionArgsSize)

	putInstructionType(data, InstructionTypeWithdrawAndBurn, &offset)
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
				// Burning reduces the wrapper supply
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
				PublicKey:  SYSVAR_RENT_PUBKEY,
				IsWritable: false,
				IsSigner:   false,
			},
		},
	}
}
