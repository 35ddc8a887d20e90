package processor

import (
	"github.com/mr-tron/base58"

	"github.com/code-payments/token-wrapper/pkg/solana/runtime"
	"github.com/code-payments/token-wrapper/pkg/solana/system"
	"github.com/code-payments/token-wrapper/pkg/solana/token"
	"github.com/code-payments/token-wrapper/pkg/solana/token2022"
	"github.com/code-payments/token-wrapper/pkg/solana/tokenwrapper"
)

const initializeAccountsLen = 9

func (p *Processor) initialize(ctx runtime.InvokeContext, accounts []*runtime.AccountInfo) error {
	op, err := newOperation(ctx, accounts, initializeAccountsLen, func(op *operation, accounts []*runtime.AccountInfo) {
		op.authority = accounts[0]
		op.underlyingMint = accounts[1]
		op.wrapperMint = accounts[2]
		op.reserveAuthority = accounts[3]
		op.reserveTokenAccount = accounts[4]
		op.tokenProgram = accounts[5]
		op.token2022Program = accounts[6]
		op.systemProgram = accounts[7]
		op.rent = accounts[8]
	})
	if err != nil {
		return err
	}

	err = run(op,
		signer{authorityAccount},

		derivedAddress{wrapperMintAccount, wrapperMintAddress, tokenwrapper.ErrorUnexpectedWrapperMint},
		derivedAddress{reserveAuthorityAccount, reserveAuthorityAddress, tokenwrapper.ErrorUnexpectedReserveAuthority},
		derivedAddress{reserveTokenAccountAccount, reserveTokenAccountAddress, tokenwrapper.ErrorUnexpectedReserveTokenAccount},

		lifecycle{wrapperMintAccount, false},
		lifecycle{reserveAuthorityAccount, false},
		lifecycle{reserveTokenAccountAccount, false},

		ownedBy{wrapperMintAccount, tokenwrapper.SYSTEM_PROGRAM_ID, tokenwrapper.ErrorUnexpectedWrapperMint},
		ownedBy{reserveTokenAccountAccount, tokenwrapper.SYSTEM_PROGRAM_ID, tokenwrapper.ErrorUnexpectedReserveTokenAccount},

		programKey{tokenProgramAccount, tokenwrapper.SPL_TOKEN_PROGRAM_ID, tokenwrapper.ErrorUnexpectedTokenProgram},
		programKey{token2022ProgramAccount, tokenwrapper.SPL_TOKEN_2022_PROGRAM_ID, tokenwrapper.ErrorUnexpectedToken2022Program},
		programKey{systemProgramAccount, tokenwrapper.SYSTEM_PROGRAM_ID, tokenwrapper.ErrorUnexpectedSystemProgram},
		programKey{rentAccount, tokenwrapper.SYSVAR_RENT_PUBKEY, tokenwrapper.ErrorUnexpectedRent},

		validMint{underlyingMintAccount, tokenwrapper.SPL_TOKEN_2022_PROGRAM_ID, underlyingState},
	)
	if err != nil {
		return err
	}

	rent := ctx.Rent()
	decimals := op.underlyingState.Base.Decimals

	// Wrapper mint, with the reserve authority as both mint and freeze
	// authority.
	err = ctx.InvokeSigned(
		system.CreateAccount(
			op.authority.Key,
			op.wrapperMint.Key,
			tokenwrapper.SPL_TOKEN_PROGRAM_ID,
			rent.MinimumBalance(token.MintSize),
			token.MintSize,
		),
		op.vault.WrapperMintSeeds(),
	)
	if err != nil {
		return err
	}

	err = ctx.Invoke(token.Instructions.InitializeMint(
		op.wrapperMint.Key,
		op.vault.ReserveAuthority,
		op.vault.ReserveAuthority,
		decimals,
	))
	if err != nil {
		return err
	}

	// Reserve token account, sized for whatever account extensions the
	// underlying mint requires.
	size, err := token2022.GetAccountLen(op.underlyingMint.Data, token2022.ExtensionTypeImmutableOwner)
	if err != nil {
		return runtime.ErrInvalidAccountData
	}

	err = ctx.InvokeSigned(
		system.CreateAccount(
			op.authority.Key,
			op.reserveTokenAccount.Key,
			tokenwrapper.SPL_TOKEN_2022_PROGRAM_ID,
			rent.MinimumBalance(uint64(size)),
			uint64(size),
		),
		op.vault.ReserveTokenAccountSeeds(),
	)
	if err != nil {
		return err
	}

	err = ctx.Invoke(token2022.Instructions.InitializeImmutableOwner(op.reserveTokenAccount.Key))
	if err != nil {
		return err
	}

	err = ctx.InvokeSigned(
		token2022.Instructions.InitializeAccount3(
			op.reserveTokenAccount.Key,
			op.underlyingMint.Key,
			op.vault.ReserveAuthority,
		),
		op.vault.ReserveAuthoritySeeds(),
	)
	if err != nil {
		return err
	}

	ctx.Log().WithField("wrapper_mint", base58.Encode(op.wrapperMint.Key)).Debug("vault initialized")
	return nil
}
