package processor

import (
	"bytes"
	"crypto/ed25519"

	"github.com/code-payments/token-wrapper/pkg/solana"
	"github.com/code-payments/token-wrapper/pkg/solana/runtime"
	"github.com/code-payments/token-wrapper/pkg/solana/token"
	"github.com/code-payments/token-wrapper/pkg/solana/tokenwrapper"
)

// check is a single account validation. Checks run in order before any
// sub-call, and the first failure aborts the instruction.
type check interface {
	apply(op *operation) error
}

type accountRole func(op *operation) *runtime.AccountInfo

type expectedKey func(op *operation) ed25519.PublicKey

func run(op *operation, checks ...check) error {
	for _, c := range checks {
		if err := c.apply(op); err != nil {
			return err
		}
	}
	return nil
}

type signer struct {
	account accountRole
}

func (c signer) apply(op *operation) error {
	if !c.account(op).IsSigner {
		return runtime.ErrMissingRequiredSignature
	}
	return nil
}

// derivedAddress compares the account key to the program address it must
// have.
type derivedAddress struct {
	account accountRole
	derive  expectedKey
	code    solana.CustomError
}

func (c derivedAddress) apply(op *operation) error {
	if !bytes.Equal(c.account(op).Key, c.derive(op)) {
		return c.code
	}
	return nil
}

// ownedBy requires the owning program of a derived account to match its
// lifecycle stage.
type ownedBy struct {
	account accountRole
	program ed25519.PublicKey
	code    solana.CustomError
}

func (c ownedBy) apply(op *operation) error {
	if !c.account(op).IsOwnedBy(c.program) {
		return c.code
	}
	return nil
}

// lifecycle treats any account holding lamports as initialized.
type lifecycle struct {
	account     accountRole
	initialized bool
}

func (c lifecycle) apply(op *operation) error {
	initialized := c.account(op).Lamports > 0
	switch {
	case c.initialized && !initialized:
		return tokenwrapper.ErrorExpectedInitializedAccount
	case !c.initialized && initialized:
		return tokenwrapper.ErrorUnexpectedInitializedAccount
	}
	return nil
}

type programKey struct {
	account accountRole
	key     ed25519.PublicKey
	code    solana.CustomError
}

func (c programKey) apply(op *operation) error {
	if !bytes.Equal(c.account(op).Key, c.key) {
		return c.code
	}
	return nil
}

// validMint parses an initialized mint of program into the operation.
// SPL Token mints cannot carry extensions.
type validMint struct {
	account accountRole
	program ed25519.PublicKey
	into    func(op *operation) *mintState
}

func (c validMint) apply(op *operation) error {
	info := c.account(op)
	if !info.IsOwnedBy(c.program) {
		return tokenwrapper.ErrorInvalidTokenMint
	}
	if bytes.Equal(c.program, tokenwrapper.SPL_TOKEN_PROGRAM_ID) && len(info.Data) != token.MintSize {
		return tokenwrapper.ErrorInvalidTokenMint
	}

	mint := c.into(op)
	if err := mint.Unmarshal(info.Data); err != nil || !mint.Base.IsInitialized {
		return tokenwrapper.ErrorInvalidTokenMint
	}
	return nil
}

// validTokenAccount parses an initialized token account of program into the
// operation and checks its owner and mint fields.
type validTokenAccount struct {
	account   accountRole
	program   ed25519.PublicKey
	owner     expectedKey
	mint      expectedKey
	ownerCode solana.CustomError
	into      func(op *operation) *accountState
}

func (c validTokenAccount) apply(op *operation) error {
	info := c.account(op)
	if !info.IsOwnedBy(c.program) {
		return tokenwrapper.ErrorInvalidTokenAccount
	}
	if bytes.Equal(c.program, tokenwrapper.SPL_TOKEN_PROGRAM_ID) && len(info.Data) != token.AccountSize {
		return tokenwrapper.ErrorInvalidTokenAccount
	}

	account := c.into(op)
	if err := account.Unmarshal(info.Data); err != nil || !account.Base.IsInitialized() {
		return tokenwrapper.ErrorInvalidTokenAccount
	}
	if !bytes.Equal(account.Base.Owner, c.owner(op)) {
		return c.ownerCode
	}
	if !bytes.Equal(account.Base.Mint, c.mint(op)) {
		return tokenwrapper.ErrorInvalidTokenAccount
	}
	return nil
}

// wrapperAuthorities requires both wrapper mint authorities to be the reserve
// authority, and the decimals to follow the underlying mint. Both mints must
// already be parsed.
type wrapperAuthorities struct{}

func (wrapperAuthorities) apply(op *operation) error {
	wrapper := &op.wrapperState.Base
	if !bytes.Equal(wrapper.MintAuthority, op.vault.ReserveAuthority) {
		return tokenwrapper.ErrorUnexpectedMintAuthority
	}
	if !bytes.Equal(wrapper.FreezeAuthority, op.vault.ReserveAuthority) {
		return tokenwrapper.ErrorUnexpectedFreezeAuthority
	}
	if wrapper.Decimals != op.underlyingState.Base.Decimals {
		return tokenwrapper.ErrorInvalidTokenMint
	}
	return nil
}

// The shared checks of DepositAndMint and WithdrawAndBurn that run before any
// sub-call.
func vaultChecks(extra ...check) []check {
	checks := []check{
		signer{authorityAccount},

		derivedAddress{wrapperMintAccount, wrapperMintAddress, tokenwrapper.ErrorUnexpectedWrapperMint},
		derivedAddress{reserveAuthorityAccount, reserveAuthorityAddress, tokenwrapper.ErrorUnexpectedReserveAuthority},
		derivedAddress{reserveTokenAccountAccount, reserveTokenAccountAddress, tokenwrapper.ErrorUnexpectedReserveTokenAccount},

		lifecycle{wrapperMintAccount, true},
		lifecycle{reserveTokenAccountAccount, true},

		ownedBy{wrapperMintAccount, tokenwrapper.SPL_TOKEN_PROGRAM_ID, tokenwrapper.ErrorUnexpectedWrapperMint},
		ownedBy{reserveTokenAccountAccount, tokenwrapper.SPL_TOKEN_2022_PROGRAM_ID, tokenwrapper.ErrorUnexpectedReserveTokenAccount},

		programKey{tokenProgramAccount, tokenwrapper.SPL_TOKEN_PROGRAM_ID, tokenwrapper.ErrorUnexpectedTokenProgram},
		programKey{token2022ProgramAccount, tokenwrapper.SPL_TOKEN_2022_PROGRAM_ID, tokenwrapper.ErrorUnexpectedToken2022Program},
		programKey{systemProgramAccount, tokenwrapper.SYSTEM_PROGRAM_ID, tokenwrapper.ErrorUnexpectedSystemProgram},
		programKey{rentAccount, tokenwrapper.SYSVAR_RENT_PUBKEY, tokenwrapper.ErrorUnexpectedRent},
	}
	checks = append(checks, extra...)
	return append(checks,
		validMint{underlyingMintAccount, tokenwrapper.SPL_TOKEN_2022_PROGRAM_ID, underlyingState},
		validMint{wrapperMintAccount, tokenwrapper.SPL_TOKEN_PROGRAM_ID, wrapperState},
		wrapperAuthorities{},
	)
}

// The checks of the user and reserve token accounts. For DepositAndMint they
// run after the user's wrapper account is created.
func tokenAccountChecks() []check {
	return []check{
		validTokenAccount{
			userUnderlyingAccount,
			tokenwrapper.SPL_TOKEN_2022_PROGRAM_ID,
			authorityAddress,
			underlyingMintAddress,
			tokenwrapper.ErrorUnexpectedUserTokenAccountOwner,
			userUnderlyingState,
		},
		validTokenAccount{
			userWrapperAccount,
			tokenwrapper.SPL_TOKEN_PROGRAM_ID,
			authorityAddress,
			wrapperMintAddress,
			tokenwrapper.ErrorUnexpectedUserTokenAccountOwner,
			userWrapperState,
		},
		validTokenAccount{
			reserveTokenAccountAccount,
			tokenwrapper.SPL_TOKEN_2022_PROGRAM_ID,
			reserveAuthorityAddress,
			underlyingMintAddress,
			tokenwrapper.ErrorUnexpectedReserveTokenAccountOwner,
			reserveState,
		},
	}
}
