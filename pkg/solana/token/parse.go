package token

import (
	"bytes"
	"crypto/ed25519"

	"github.com/pkg/errors"

	"github.com/code-payments/token-wrapper/pkg/solana"
)

var (
	// ErrInvalidTokenAccount indicates that an account exists at the given
	// address, but it is either not initialized, or not configured correctly.
	ErrInvalidTokenAccount = errors.New("invalid token account")
	// ErrInvalidMint indicates that an account exists at the given address,
	// but it is not an initialized mint of the expected program.
	ErrInvalidMint = errors.New("invalid mint")
)

// ParseMint decodes a mint owned by program. Token-2022 extension data past
// the base layout is ignored.
func ParseMint(info solana.AccountInfo, program ed25519.PublicKey) (*Mint, error) {
	if !bytes.Equal(info.Owner, program) {
		return nil, ErrInvalidMint
	}

	var mint Mint
	if len(info.Data) < MintSize || !mint.Unmarshal(info.Data[:MintSize]) || !mint.IsInitialized {
		return nil, ErrInvalidMint
	}

	return &mint, nil
}

// ParseAccount decodes a token account of mint owned by program.
//
// If the account is not initialized, or belongs to a different
// mint, then ErrInvalidTokenAccount is returned.
func ParseAccount(info solana.AccountInfo, mint, program ed25519.PublicKey) (*Account, error) {
	if !bytes.Equal(info.Owner, program) {
		return nil, ErrInvalidTokenAccount
	}

	var account Account
	if len(info.Data) < AccountSize || !account.Unmarshal(info.Data[:AccountSize]) || !account.IsInitialized() {
		return nil, ErrInvalidTokenAccount
	}

	if !bytes.Equal(mint, account.Mint) {
		return nil, ErrInvalidTokenAccount
	}

	return &account, nil
}
