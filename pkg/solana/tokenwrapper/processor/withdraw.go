package processor

import (
	"github.com/code-payments/token-wrapper/pkg/solana/runtime"
	"github.com/code-payments/token-wrapper/pkg/solana/token"
	"github.com/code-payments/token-wrapper/pkg/solana/token2022"
)

const withdrawAndBurnAccountsLen = 11

func (p *Processor) withdrawAndBurn(ctx runtime.InvokeContext, accounts []*runtime.AccountInfo, amount uint64, useMax bool) error {
	op, err := newOperation(ctx, accounts, withdrawAndBurnAccountsLen, func(op *operation, accounts []*runtime.AccountInfo) {
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
		op.rent = accounts[10]
	})
	if err != nil {
		return err
	}

	checks := vaultChecks(lifecycle{userWrapperAccount, true})
	checks = append(checks, tokenAccountChecks()...)
	if err := run(op, checks...); err != nil {
		return err
	}

	if useMax {
		amount = op.userWrapperState.Base.Amount
	}

	decimals := op.underlyingState.Base.Decimals

	err = ctx.Invoke(token.Instructions.BurnChecked(
		op.userWrapper.Key,
		op.wrapperMint.Key,
		op.authority.Key,
		amount,
		decimals,
	))
	if err != nil {
		return err
	}

	err = ctx.InvokeSigned(
		token2022.Instructions.TransferChecked(
			op.reserveTokenAccount.Key,
			op.underlyingMint.Key,
			op.userUnderlying.Key,
			op.vault.ReserveAuthority,
			amount,
			decimals,
		),
		op.vault.ReserveAuthoritySeeds(),
	)
	if err != nil {
		return err
	}

	ctx.Log().WithField("withdrawn", amount).Debug("withdraw complete")
	return nil
}
