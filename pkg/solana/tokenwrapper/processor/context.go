package processor

import (
	"crypto/ed25519"

	"github.com/code-payments/token-wrapper/pkg/solana/runtime"
	"github.com/code-payments/token-wrapper/pkg/solana/token2022"
	"github.com/code-payments/token-wrapper/pkg/solana/tokenwrapper"
)

// operation holds the accounts of a single instruction by role, along with
// the state parsed from them as checks pass.
type operation struct {
	ctx   runtime.InvokeContext
	vault *tokenwrapper.VaultAddresses

	authority           *runtime.AccountInfo // payer for Initialize, user otherwise
	underlyingMint      *runtime.AccountInfo
	wrapperMint         *runtime.AccountInfo
	reserveAuthority    *runtime.AccountInfo
	reserveTokenAccount *runtime.AccountInfo
	userWrapper         *runtime.AccountInfo
	userUnderlying      *runtime.AccountInfo
	tokenProgram        *runtime.AccountInfo
	token2022Program    *runtime.AccountInfo
	systemProgram       *runtime.AccountInfo
	associatedProgram   *runtime.AccountInfo
	rent                *runtime.AccountInfo

	underlyingState     token2022.MintWithExtensions
	wrapperState        token2022.MintWithExtensions
	reserveState        token2022.AccountWithExtensions
	userWrapperState    token2022.AccountWithExtensions
	userUnderlyingState token2022.AccountWithExtensions
}

func newOperation(ctx runtime.InvokeContext, accounts []*runtime.AccountInfo, required int, assign func(op *operation, accounts []*runtime.AccountInfo)) (*operation, error) {
	if len(accounts) < required {
		return nil, runtime.ErrNotEnoughAccountKeys
	}

	op := &operation{ctx: ctx}
	assign(op, accounts)

	vault, err := tokenwrapper.GetVaultAddresses(op.underlyingMint.Key, ctx.ProgramID())
	if err != nil {
		return nil, runtime.ErrInvalidSeeds
	}
	op.vault = vault

	return op, nil
}

// Role accessors used by checks.

func authorityAccount(op *operation) *runtime.AccountInfo { return op.authority }
func underlyingMintAccount(op *operation) *runtime.AccountInfo { return op.underlyingMint }
func wrapperMintAccount(op *operation) *runtime.AccountInfo { return op.wrapperMint }
func reserveAuthorityAccount(op *operation) *runtime.AccountInfo { return op.reserveAuthority }
func reserveTokenAccountAccount(op *operation) *runtime.AccountInfo { return op.reserveTokenAccount }
func userWrapperAccount(op *operation) *runtime.AccountInfo { return op.userWrapper }
func userUnderlyingAccount(op *operation) *runtime.AccountInfo { return op.userUnderlying }
func tokenProgramAccount(op *operation) *runtime.AccountInfo { return op.tokenProgram }
func token2022ProgramAccount(op *operation) *runtime.AccountInfo { return op.token2022Program }
func systemProgramAccount(op *operation) *runtime.AccountInfo { return op.systemProgram }
func associatedProgramAccount(op *operation) *runtime.AccountInfo { return op.associatedProgram }
func rentAccount(op *operation) *runtime.AccountInfo { return op.rent }

// Expected keys used by checks.

func wrapperMintAddress(op *operation) ed25519.PublicKey { return op.vault.WrapperMint }
func reserveAuthorityAddress(op *operation) ed25519.PublicKey { return op.vault.ReserveAuthority }
func reserveTokenAccountAddress(op *operation) ed25519.PublicKey { return op.vault.ReserveTokenAccount }
func underlyingMintAddress(op *operation) ed25519.PublicKey { return op.vault.UnderlyingMint }
func authorityAddress(op *operation) ed25519.PublicKey { return op.authority.Key }

// Parsed state destinations used by checks.

func underlyingState(op *operation) *mintState { return &op.underlyingState }
func wrapperState(op *operation) *mintState { return &op.wrapperState }
func reserveState(op *operation) *accountState { return &op.reserveState }
func userWrapperState(op *operation) *accountState { return &op.userWrapperState }
func userUnderlyingState(op *operation) *accountState { return &op.userUnderlyingState }

// reloadReserve re-reads the reserve token account after a sub-call changed
// it.
func (op *operation) reloadReserve() error {
	return op.reserveState.Unmarshal(op.reserveTokenAccount.Data)
}

type mintState = token2022.MintWithExtensions

type accountState = token2022.AccountWithExtensions
