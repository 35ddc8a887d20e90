package tokenwrapper

import (
	"crypto/ed25519"

	"github.com/code-payments/token-wrapper/pkg/solana"
)

var (
	wrapperMintPrefix         = []byte("wrapper")
	reserveAuthorityPrefix    = []byte("reserve_authority")
	reserveTokenAccountPrefix = []byte("reserve_authority_token_account")
)

type GetWrapperMintAddressArgs struct {
	UnderlyingMint ed25519.PublicKey

	// Program defaults to PROGRAM_ID.
	Program ed25519.PublicKey
}

func GetWrapperMintAddress(args *GetWrapperMintAddressArgs) (ed25519.PublicKey, uint8, error) {
	return solana.FindProgramAddressAndBump(
		programOrDefault(args.Program),
		wrapperMintPrefix,
		args.UnderlyingMint,
	)
}

type GetReserveAuthorityAddressArgs struct {
	UnderlyingMint ed25519.PublicKey
	Program        ed25519.PublicKey
}

func GetReserveAuthorityAddress(args *GetReserveAuthorityAddressArgs) (ed25519.PublicKey, uint8, error) {
	return solana.FindProgramAddressAndBump(
		programOrDefault(args.Program),
		reserveAuthorityPrefix,
		args.UnderlyingMint,
	)
}

type GetReserveTokenAccountAddressArgs struct {
	UnderlyingMint   ed25519.PublicKey
	ReserveAuthority ed25519.PublicKey
	Program          ed25519.PublicKey
}

func GetReserveTokenAccountAddress(args *GetReserveTokenAccountAddressArgs) (ed25519.PublicKey, uint8, error) {
	return solana.FindProgramAddressAndBump(
		programOrDefault(args.Program),
		reserveTokenAccountPrefix,
		args.UnderlyingMint,
		args.ReserveAuthority,
	)
}

type GetUserWrapperTokenAccountAddressArgs struct {
	Owner       ed25519.PublicKey
	WrapperMint ed25519.PublicKey
}

// GetUserWrapperTokenAccountAddress returns the associated SPL Token account
// of the owner for the wrapper mint. It is the account DepositAndMint creates
// when the user has none.
func GetUserWrapperTokenAccountAddress(args *GetUserWrapperTokenAccountAddressArgs) (ed25519.PublicKey, uint8, error) {
	return solana.FindProgramAddressAndBump(
		SPL_ASSOCIATED_TOKEN_ACCOUNT_PROGRAM_ID,
		args.Owner,
		SPL_TOKEN_PROGRAM_ID,
		args.WrapperMint,
	)
}

// VaultAddresses are the program addresses of the vault for an underlying
// mint.
type VaultAddresses struct {
	UnderlyingMint ed25519.PublicKey

	WrapperMint     ed25519.PublicKey
	WrapperMintBump uint8

	ReserveAuthority     ed25519.PublicKey
	ReserveAuthorityBump uint8

	ReserveTokenAccount     ed25519.PublicKey
	ReserveTokenAccountBump uint8
}

// GetVaultAddresses derives every vault address for underlyingMint. A nil
// program defaults to PROGRAM_ID.
func GetVaultAddresses(underlyingMint, program ed25519.PublicKey) (*VaultAddresses, error) {
	var err error
	addresses := &VaultAddresses{
		UnderlyingMint: underlyingMint,
	}

	addresses.WrapperMint, addresses.WrapperMintBump, err = GetWrapperMintAddress(&GetWrapperMintAddressArgs{
		UnderlyingMint: underlyingMint,
		Program:        program,
	})
	if err != nil {
		return nil, err
	}

	addresses.ReserveAuthority, addresses.ReserveAuthorityBump, err = GetReserveAuthorityAddress(&GetReserveAuthorityAddressArgs{
		UnderlyingMint: underlyingMint,
		Program:        program,
	})
	if err != nil {
		return nil, err
	}

	addresses.ReserveTokenAccount, addresses.ReserveTokenAccountBump, err = GetReserveTokenAccountAddress(&GetReserveTokenAccountAddressArgs{
		UnderlyingMint:   underlyingMint,
		ReserveAuthority: addresses.ReserveAuthority,
		Program:          program,
	})
	if err != nil {
		return nil, err
	}

	return addresses, nil
}

// WrapperMintSeeds signs for the wrapper mint.
func (a *VaultAddresses) WrapperMintSeeds() [][]byte {
	return [][]byte{wrapperMintPrefix, a.UnderlyingMint, {a.WrapperMintBump}}
}

// ReserveAuthoritySeeds signs for the reserve authority.
func (a *VaultAddresses) ReserveAuthoritySeeds() [][]byte {
	return [][]byte{reserveAuthorityPrefix, a.UnderlyingMint, {a.ReserveAuthorityBump}}
}

// ReserveTokenAccountSeeds signs for the reserve token account.
func (a *VaultAddresses) ReserveTokenAccountSeeds() [][]byte {
	return [][]byte{reserveTokenAccountPrefix, a.UnderlyingMint, a.ReserveAuthority, {a.ReserveTokenAccountBump}}
}

func programOrDefault(program ed25519.PublicKey) ed25519.PublicKey {
	if len(program) == 0 {
		return PROGRAM_ID
	}
	return program
}
