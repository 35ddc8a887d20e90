package processor

import (
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/token-wrapper/pkg/solana"
	"github.com/code-payments/token-wrapper/pkg/solana/runtime"
	"github.com/code-payments/token-wrapper/pkg/solana/runtime/memory"
	"github.com/code-payments/token-wrapper/pkg/solana/system"
	"github.com/code-payments/token-wrapper/pkg/solana/token"
	"github.com/code-payments/token-wrapper/pkg/solana/token2022"
	"github.com/code-payments/token-wrapper/pkg/solana/tokenwrapper"
)

const walletLamports = 10_000_000_000

// testEnv is a ledger with the wrapper program deployed.
type testEnv struct {
	t    *testing.T
	bank *memory.Bank
}

// testVault is a Token-2022 mint and the vault derived for it.
type testVault struct {
	env *testEnv

	mint          ed25519.PublicKey
	mintAuthority ed25519.PrivateKey
	decimals      uint8

	addresses *tokenwrapper.VaultAddresses
}

func newTestEnv(t *testing.T) *testEnv {
	bank := memory.NewBank()
	bank.RegisterProgram(tokenwrapper.PROGRAM_ID, New())

	return &testEnv{
		t:    t,
		bank: bank,
	}
}

func (e *testEnv) newWallet() ed25519.PrivateKey {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(e.t, err)

	e.bank.Airdrop(pub, walletLamports)
	return priv
}

// submit signs the instructions with every signer, the first of which pays
// the fee. Each call uses a fresh blockhash so identical instructions can be
// resubmitted.
func (e *testEnv) submit(signers []ed25519.PrivateKey, ixs ...solana.Instruction) error {
	txn := solana.NewTransaction(public(signers[0]), ixs...)
	txn.SetBlockhash(e.bank.NewBlockhash())
	require.NoError(e.t, txn.Sign(signers...))

	_, err := e.bank.SubmitTransaction(txn, solana.CommitmentFinalized)
	return err
}

func (e *testEnv) mustSubmit(signers []ed25519.PrivateKey, ixs ...solana.Instruction) {
	require.NoError(e.t, e.submit(signers, ixs...))
}

// newMint creates a Token-2022 mint, optionally with a transfer fee. The
// authority is both mint and freeze authority.
func (e *testEnv) newMint(decimals uint8, fee *token2022.TransferFee) *testVault {
	authority := e.newWallet()
	mintPub, mintKey, err := ed25519.GenerateKey(nil)
	require.NoError(e.t, err)

	size := token.MintSize
	if fee != nil {
		size, err = token2022.CalculateMintLen(token2022.ExtensionTypeTransferFeeConfig)
		require.NoError(e.t, err)
	}

	ixs := []solana.Instruction{
		system.CreateAccount(
			public(authority),
			mintPub,
			token2022.ProgramKey,
			e.bank.Rent().MinimumBalance(uint64(size)),
			uint64(size),
		),
	}
	if fee != nil {
		ixs = append(ixs, token2022.InitializeTransferFeeConfig(mintPub, public(authority), public(authority), fee.BasisPoints, fee.MaximumFee))
	}
	ixs = append(ixs, token2022.Instructions.InitializeMint2(mintPub, public(authority), public(authority), decimals))

	e.mustSubmit([]ed25519.PrivateKey{authority, mintKey}, ixs...)

	addresses, err := tokenwrapper.GetVaultAddresses(mintPub, nil)
	require.NoError(e.t, err)

	return &testVault{
		env:           e,
		mint:          mintPub,
		mintAuthority: authority,
		decimals:      decimals,
		addresses:     addresses,
	}
}

func (v *testVault) initialize(payer ed25519.PrivateKey) error {
	return v.env.submit([]ed25519.PrivateKey{payer}, v.initializeInstruction(public(payer)))
}

func (v *testVault) initializeInstruction(payer ed25519.PublicKey) solana.Instruction {
	return tokenwrapper.NewInitializeInstruction(
		&tokenwrapper.InitializeInstructionAccounts{
			Payer:               payer,
			UnderlyingMint:      v.mint,
			WrapperMint:         v.addresses.WrapperMint,
			ReserveAuthority:    v.addresses.ReserveAuthority,
			ReserveTokenAccount: v.addresses.ReserveTokenAccount,
		},
		&tokenwrapper.InitializeInstructionArgs{},
	)
}

// newHolder creates a wallet with an underlying token account holding amount.
func (v *testVault) newHolder(amount uint64) ed25519.PrivateKey {
	wallet := v.env.newWallet()

	create, account, err := token.CreateAssociatedTokenAccountForProgram(public(wallet), public(wallet), v.mint, token2022.ProgramKey)
	require.NoError(v.env.t, err)
	v.env.mustSubmit([]ed25519.PrivateKey{wallet}, create)

	if amount > 0 {
		v.env.mustSubmit(
			[]ed25519.PrivateKey{v.mintAuthority},
			token2022.Instructions.MintToChecked(v.mint, account, public(v.mintAuthority), amount, v.decimals),
		)
	}
	return wallet
}

func (v *testVault) underlyingAccount(wallet ed25519.PublicKey) ed25519.PublicKey {
	account, err := token.GetAssociatedAccountForProgram(wallet, v.mint, token2022.ProgramKey)
	require.NoError(v.env.t, err)
	return account
}

func (v *testVault) wrapperAccount(wallet ed25519.PublicKey) ed25519.PublicKey {
	account, _, err := tokenwrapper.GetUserWrapperTokenAccountAddress(&tokenwrapper.GetUserWrapperTokenAccountAddressArgs{
		Owner:       wallet,
		WrapperMint: v.addresses.WrapperMint,
	})
	require.NoError(v.env.t, err)
	return account
}

func (v *testVault) depositAccounts(user ed25519.PublicKey) *tokenwrapper.DepositAndMintInstructionAccounts {
	return &tokenwrapper.DepositAndMintInstructionAccounts{
		User:                       user,
		ReserveAuthority:           v.addresses.ReserveAuthority,
		UnderlyingMint:             v.mint,
		WrapperMint:                v.addresses.WrapperMint,
		UserWrapperTokenAccount:    v.wrapperAccount(user),
		UserUnderlyingTokenAccount: v.underlyingAccount(user),
		ReserveTokenAccount:        v.addresses.ReserveTokenAccount,
	}
}

func (v *testVault) withdrawAccounts(user ed25519.PublicKey) *tokenwrapper.WithdrawAndBurnInstructionAccounts {
	return &tokenwrapper.WithdrawAndBurnInstructionAccounts{
		User:                       user,
		ReserveAuthority:           v.addresses.ReserveAuthority,
		UnderlyingMint:             v.mint,
		WrapperMint:                v.addresses.WrapperMint,
		UserWrapperTokenAccount:    v.wrapperAccount(user),
		UserUnderlyingTokenAccount: v.underlyingAccount(user),
		ReserveTokenAccount:        v.addresses.ReserveTokenAccount,
	}
}

func (v *testVault) deposit(user ed25519.PrivateKey, amount uint64, useMax bool) error {
	return v.env.submit(
		[]ed25519.PrivateKey{user},
		tokenwrapper.NewDepositAndMintInstruction(
			v.depositAccounts(public(user)),
			&tokenwrapper.DepositAndMintInstructionArgs{Amount: amount, UseMax: useMax},
		),
	)
}

func (v *testVault) withdraw(user ed25519.PrivateKey, amount uint64, useMax bool) error {
	return v.env.submit(
		[]ed25519.PrivateKey{user},
		tokenwrapper.NewWithdrawAndBurnInstruction(
			v.withdrawAccounts(public(user)),
			&tokenwrapper.WithdrawAndBurnInstructionArgs{Amount: amount, UseMax: useMax},
		),
	)
}

// tokenAccount returns the parsed token account at address, or nil if none
// exists.
func (v *testVault) tokenAccount(address ed25519.PublicKey) *token2022.AccountWithExtensions {
	account, ok := v.env.bank.GetAccount(address)
	if !ok {
		return nil
	}

	var state token2022.AccountWithExtensions
	require.NoError(v.env.t, state.Unmarshal(account.Data))
	return &state
}

func (v *testVault) balance(address ed25519.PublicKey) uint64 {
	if account := v.tokenAccount(address); account != nil {
		return account.Base.Amount
	}
	return 0
}

func (v *testVault) underlyingBalance(wallet ed25519.PrivateKey) uint64 {
	return v.balance(v.underlyingAccount(public(wallet)))
}

func (v *testVault) wrapperBalance(wallet ed25519.PrivateKey) uint64 {
	return v.balance(v.wrapperAccount(public(wallet)))
}

func (v *testVault) reserveBalance() uint64 {
	return v.balance(v.addresses.ReserveTokenAccount)
}

func (v *testVault) wrapperMint() *token.Mint {
	account, ok := v.env.bank.GetAccount(v.addresses.WrapperMint)
	require.True(v.env.t, ok)

	var mint token.Mint
	require.True(v.env.t, mint.Unmarshal(account.Data))
	return &mint
}

func (v *testVault) requireCollateralized() {
	assert.Equal(v.env.t, v.wrapperMint().Supply, v.reserveBalance())
}

// state captures the vault's accounts along with those of the provided
// wallets, excluding the wallets' own lamports which pay fees.
func (v *testVault) state(wallets ...ed25519.PrivateKey) map[string]*runtime.Account {
	keys := []ed25519.PublicKey{
		v.mint,
		v.addresses.WrapperMint,
		v.addresses.ReserveAuthority,
		v.addresses.ReserveTokenAccount,
	}
	for _, wallet := range wallets {
		keys = append(keys, v.underlyingAccount(public(wallet)), v.wrapperAccount(public(wallet)))
	}

	state := make(map[string]*runtime.Account)
	for _, key := range keys {
		account, _ := v.env.bank.GetAccount(key)
		state[string(key)] = account
	}
	return state
}

func requireCode(t *testing.T, err error, code solana.CustomError) {
	require.Error(t, err)

	txErr, ok := err.(*solana.TransactionError)
	require.True(t, ok, "unexpected error type: %v", err)
	require.NotNil(t, txErr.InstructionError(), txErr.Error())

	actual := txErr.InstructionError().CustomError()
	require.NotNil(t, actual, txErr.Error())
	assert.Equal(t, code, *actual, "expected %s, got %x", tokenwrapper.ErrorName(code), int(*actual))
}

func requireInstructionError(t *testing.T, err error, key solana.InstructionErrorKey) {
	require.Error(t, err)
	assert.True(t, runtime.Is(err, key), "expected %s, got %v", key, err)
}

func public(key ed25519.PrivateKey) ed25519.PublicKey {
	return key.Public().(ed25519.PublicKey)
}
