package tokenwrapper

import (
	"crypto/ed25519"
	"testing"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/token-wrapper/pkg/solana"
)

func TestProgramAddresses(t *testing.T) {
	assert.Len(t, PROGRAM_ID, ed25519.PublicKeySize)
	assert.Equal(t, "22WrapbNKwPSy3HcGQTTJpgv43tszbZdTEfBEWmGYX2V", solanago.PublicKeyFromBytes(PROGRAM_ID).String())
	assert.Equal(t, solanago.TokenProgramID.Bytes(), []byte(SPL_TOKEN_PROGRAM_ID))
	assert.Equal(t, solanago.MustPublicKeyFromBase58("TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb").Bytes(), []byte(SPL_TOKEN_2022_PROGRAM_ID))
	assert.Equal(t, solanago.SPLAssociatedTokenAccountProgramID.Bytes(), []byte(SPL_ASSOCIATED_TOKEN_ACCOUNT_PROGRAM_ID))
	assert.Equal(t, solanago.SystemProgramID.Bytes(), []byte(SYSTEM_PROGRAM_ID))
	assert.Equal(t, solanago.SysVarRentPubkey.Bytes(), []byte(SYSVAR_RENT_PUBKEY))
}

func TestGetVaultAddresses_CrossImpl(t *testing.T) {
	program := solanago.PublicKeyFromBytes(PROGRAM_ID)

	for i := 0; i < 25; i++ {
		mint := generateKey(t)

		vault, err := GetVaultAddresses(mint, nil)
		require.NoError(t, err)
		assert.EqualValues(t, mint, vault.UnderlyingMint)

		wrapper, wrapperBump, err := solanago.FindProgramAddress([][]byte{[]byte("wrapper"), mint}, program)
		require.NoError(t, err)
		assert.EqualValues(t, wrapper.Bytes(), vault.WrapperMint)
		assert.Equal(t, wrapperBump, vault.WrapperMintBump)

		authority, authorityBump, err := solanago.FindProgramAddress([][]byte{[]byte("reserve_authority"), mint}, program)
		require.NoError(t, err)
		assert.EqualValues(t, authority.Bytes(), vault.ReserveAuthority)
		assert.Equal(t, authorityBump, vault.ReserveAuthorityBump)

		reserve, reserveBump, err := solanago.FindProgramAddress(
			[][]byte{[]byte("reserve_authority_token_account"), mint, authority.Bytes()},
			program,
		)
		require.NoError(t, err)
		assert.EqualValues(t, reserve.Bytes(), vault.ReserveTokenAccount)
		assert.Equal(t, reserveBump, vault.ReserveTokenAccountBump)

		owner := generateKey(t)
		ata, _, err := GetUserWrapperTokenAccountAddress(&GetUserWrapperTokenAccountAddressArgs{
			Owner:       owner,
			WrapperMint: vault.WrapperMint,
		})
		require.NoError(t, err)

		expected, _, err := solanago.FindAssociatedTokenAddress(solanago.PublicKeyFromBytes(owner), wrapper)
		require.NoError(t, err)
		assert.EqualValues(t, expected.Bytes(), ata)
	}
}

func TestGetVaultAddresses_Seeds(t *testing.T) {
	vault, err := GetVaultAddresses(generateKey(t), nil)
	require.NoError(t, err)

	for _, tc := range []struct {
		seeds    [][]byte
		expected ed25519.PublicKey
	}{
		{vault.WrapperMintSeeds(), vault.WrapperMint},
		{vault.ReserveAuthoritySeeds(), vault.ReserveAuthority},
		{vault.ReserveTokenAccountSeeds(), vault.ReserveTokenAccount},
	} {
		address, err := solana.CreateProgramAddress(PROGRAM_ID, tc.seeds...)
		require.NoError(t, err)
		assert.EqualValues(t, tc.expected, address)
	}
}

func TestGetVaultAddresses_ProgramOverride(t *testing.T) {
	mint := generateKey(t)
	other := generateKey(t)

	defaultVault, err := GetVaultAddresses(mint, nil)
	require.NoError(t, err)
	explicitVault, err := GetVaultAddresses(mint, PROGRAM_ID)
	require.NoError(t, err)
	otherVault, err := GetVaultAddresses(mint, other)
	require.NoError(t, err)

	assert.Equal(t, defaultVault, explicitVault)
	assert.NotEqual(t, defaultVault.WrapperMint, otherVault.WrapperMint)
	assert.NotEqual(t, defaultVault.ReserveAuthority, otherVault.ReserveAuthority)
	assert.NotEqual(t, defaultVault.ReserveTokenAccount, otherVault.ReserveTokenAccount)

	// Derivations are a function of the underlying mint only.
	anotherVault, err := GetVaultAddresses(generateKey(t), nil)
	require.NoError(t, err)
	assert.NotEqual(t, defaultVault.WrapperMint, anotherVault.WrapperMint)
}

func generateKey(t *testing.T) ed25519.PublicKey {
	pub, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	return pub
}
