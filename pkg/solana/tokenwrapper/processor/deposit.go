package processor

import (
	"github.com/sirupsen/logrus"

	"github.com/code-payments/token-wrapper/pkg/solana/runtime"
	"github.com/code-payments/token-wrapper/pkg/solana/token"
	"github.com/code-payments/token-wrapper/pkg/solana/token2022"
	"github.com/code-payments/token-wrapper/pkg/solana/tokenwrapper"
)

const depositAndMintAccountsLen = 12

func (p *Processor) depositAndMint(ctx runtime.InvokeContext, accounts []*runtime.AccountInfo, amount uint64, useMax bool) error {
	op, err := newOperation(ctx, accounts, depositAndMintAccountsLen, func(op *operation, accounts []*runtime.AccountInfo) {
		op.authority = accounts[0]
		op.reserveAuthority = accounts[1]
		op.underlyingMint = accounts[2]
		op.wrapperMint = accounts[3]
		op.userWrapper = accounts[4]
		op.userUnderlying = accounts[5]
		op.reserveTokenAccount = accounts[6]
		op.tokenProgram = accounts[7]
		op.token2022Program = accounts[8]
		op.systemProgram = accounts[9]
		op.associatedProgram = accounts[10]
		op.rent = accounts[11]
	})
	if err != nil {
		return err
	}

	err = run(op, vaultChecks(
		programKey{associatedProgramAccount, tokenwrapper.SPL_ASSOCIATED_TOKEN_ACCOUNT_PROGRAM_ID, tokenwrapper.ErrorUnexpectedAssociatedTokenProgram},
	)...)
	if err != nil {
		return err
	}

	if op.userWrapper.Lamports == 0 {
		create, _, err := token.CreateAssociatedTokenAccountForProgram(
			op.authority.Key,
			op.authority.Key,
			op.wrapperMint.Key,
			tokenwrapper.SPL_TOKEN_PROGRAM_ID,
		)
		if err != nil {
			return runtime.ErrInvalidSeeds
		}
		if err := ctx.Invoke(create); err != nil {
			return err
		}
	}

	if err := run(op, tokenAccountChecks()...); err != nil {
		return err
	}

	// The maximum is the balance observed once the wrapper account exists,
	// immediately before the transfer.
	if useMax {
		amount = op.userUnderlyingState.Base.Amount
	}

	decimals := op.underlyingState.Base.Decimals
	pre := op.reserveState.Base.Amount

	err = ctx.Invoke(token2022.Instructions.TransferChecked(
		op.userUnderlying.Key,
		op.underlyingMint.Key,
		op.reserveTokenAccount.Key,
		op.authority.Key,
		amount,
		decimals,
	))
	if err != nil {
		return err
	}

	if err := op.reloadReserve(); err != nil {
		return runtime.ErrInvalidAccountData
	}
	post := op.reserveState.Base.Amount
	if post < pre {
		return runtime.ErrInvalidAccountData
	}

	// Only what the reserve actually received is minted, which excludes any
	// transfer fee withheld by the underlying mint.
	received := post - pre

	err = ctx.InvokeSigned(
		token.Instructions.MintToChecked(
			op.wrapperMint.Key,
			op.userWrapper.Key,
			op.vault.ReserveAuthority,
			received,
			decimals,
		),
		op.vault.ReserveAuthoritySeeds(),
	)
	if err != nil {
		return err
	}

	ctx.Log().WithFields(logrus.Fields{
		"deposited": amount,
		"minted":    received,
	}).Debug("deposit complete")
	return nil
}
