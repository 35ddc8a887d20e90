package processor

import (
	"crypto/ed25519"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/token-wrapper/pkg/solana"
	"github.com/code-payments/token-wrapper/pkg/solana/system"
	"github.com/code-payments/token-wrapper/pkg/solana/token"
	"github.com/code-payments/token-wrapper/pkg/solana/token2022"
	"github.com/code-payments/token-wrapper/pkg/solana/tokenwrapper"
	"github.com/code-payments/token-wrapper/pkg/testutil"
)

func TestScenario_DepositAndWithdraw(t *testing.T) {
	env := newTestEnv(t)
	vault := env.newMint(9, nil)
	user := vault.newHolder(10_000)

	require.NoError(t, vault.initialize(env.newWallet()))

	require.NoError(t, vault.deposit(user, 5_000, false))
	assert.EqualValues(t, 5_000, vault.underlyingBalance(user))
	assert.EqualValues(t, 5_000, vault.wrapperBalance(user))
	assert.EqualValues(t, 5_000, vault.reserveBalance())
	vault.requireCollateralized()

	require.NoError(t, vault.withdraw(user, 5_000, false))
	assert.EqualValues(t, 10_000, vault.underlyingBalance(user))
	assert.EqualValues(t, 0, vault.wrapperBalance(user))
	assert.EqualValues(t, 0, vault.reserveBalance())
	vault.requireCollateralized()
}

func TestInitialize(t *testing.T) {
	for _, tc := range []struct {
		name         string
		fee          *token2022.TransferFee
		reserveSize  int
		feeExtension bool
	}{
		{"no extensions", nil, 170, false},
		{"transfer fee", &token2022.TransferFee{BasisPoints: 100, MaximumFee: 1_000}, 182, true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t)
			vault := env.newMint(6, tc.fee)
			require.NoError(t, vault.initialize(env.newWallet()))

			wrapper, ok := env.bank.GetAccount(vault.addresses.WrapperMint)
			require.True(t, ok)
			assert.EqualValues(t, token.ProgramKey, wrapper.Owner)
			assert.Len(t, wrapper.Data, token.MintSize)
			assert.True(t, env.bank.Rent().IsExempt(wrapper.Lamports, token.MintSize))

			mint := vault.wrapperMint()
			assert.True(t, mint.IsInitialized)
			assert.EqualValues(t, 6, mint.Decimals)
			assert.EqualValues(t, 0, mint.Supply)
			assert.EqualValues(t, vault.addresses.ReserveAuthority, mint.MintAuthority)
			assert.EqualValues(t, vault.addresses.ReserveAuthority, mint.FreezeAuthority)

			reserve, ok := env.bank.GetAccount(vault.addresses.ReserveTokenAccount)
			require.True(t, ok)
			assert.EqualValues(t, token2022.ProgramKey, reserve.Owner)
			assert.Len(t, reserve.Data, tc.reserveSize)

			state := vault.tokenAccount(vault.addresses.ReserveTokenAccount)
			assert.True(t, state.Base.IsInitialized())
			assert.EqualValues(t, vault.addresses.ReserveAuthority, state.Base.Owner)
			assert.EqualValues(t, vault.mint, state.Base.Mint)
			assert.True(t, state.HasImmutableOwner())
			assert.Equal(t, tc.feeExtension, state.Extensions.Has(token2022.ExtensionTypeTransferFeeAmount))

			// The reserve authority is never funded.
			_, ok = env.bank.GetAccount(vault.addresses.ReserveAuthority)
			assert.False(t, ok)
		})
	}
}

func TestInitialize_Twice(t *testing.T) {
	env := newTestEnv(t)
	vault := env.newMint(9, nil)

	require.NoError(t, vault.initialize(env.newWallet()))
	before := vault.state()

	err := vault.initialize(env.newWallet())
	requireCode(t, err, tokenwrapper.ErrorUnexpectedInitializedAccount)
	assert.Equal(t, tokenwrapper.ErrorKindLifecycleViolation, tokenwrapper.KindOf(err))

	assert.Equal(t, before, vault.state())
}

func TestInitialize_InvalidAccounts(t *testing.T) {
	env := newTestEnv(t)
	vault := env.newMint(9, nil)
	other := env.newMint(9, nil)
	payer := env.newWallet()

	for _, tc := range []struct {
		name   string
		modify func(ix *solana.Instruction)
		code   solana.CustomError
	}{
		{"wrapper mint", func(ix *solana.Instruction) { ix.Accounts[2].PublicKey = other.addresses.WrapperMint }, tokenwrapper.ErrorUnexpectedWrapperMint},
		{"reserve authority", func(ix *solana.Instruction) { ix.Accounts[3].PublicKey = other.addresses.ReserveAuthority }, tokenwrapper.ErrorUnexpectedReserveAuthority},
		{"reserve account", func(ix *solana.Instruction) { ix.Accounts[4].PublicKey = other.addresses.ReserveTokenAccount }, tokenwrapper.ErrorUnexpectedReserveTokenAccount},
		{"token program", func(ix *solana.Instruction) { ix.Accounts[5].PublicKey = testutil.GenerateSolanaPublicKey(t) }, tokenwrapper.ErrorUnexpectedTokenProgram},
		{"token-2022 program", func(ix *solana.Instruction) { ix.Accounts[6].PublicKey = token.ProgramKey }, tokenwrapper.ErrorUnexpectedToken2022Program},
		{"system program", func(ix *solana.Instruction) { ix.Accounts[7].PublicKey = testutil.GenerateSolanaPublicKey(t) }, tokenwrapper.ErrorUnexpectedSystemProgram},
		{"rent", func(ix *solana.Instruction) { ix.Accounts[8].PublicKey = testutil.GenerateSolanaPublicKey(t) }, tokenwrapper.ErrorUnexpectedRent},
	} {
		t.Run(tc.name, func(t *testing.T) {
			ix := vault.initializeInstruction(public(payer))
			tc.modify(&ix)

			err := env.submit([]ed25519.PrivateKey{payer}, ix)
			requireCode(t, err, tc.code)
			assert.Equal(t, tokenwrapper.ErrorKindAddressMismatch, tokenwrapper.KindOf(err))
		})
	}

	_, ok := env.bank.GetAccount(vault.addresses.WrapperMint)
	assert.False(t, ok)
	require.NoError(t, vault.initialize(payer))
}

func TestInitialize_UnderlyingNotToken2022(t *testing.T) {
	env := newTestEnv(t)
	payer := env.newWallet()

	mintPub, mintKey, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	env.mustSubmit(
		[]ed25519.PrivateKey{payer, mintKey},
		system.CreateAccount(public(payer), mintPub, token.ProgramKey, env.bank.Rent().MinimumBalance(token.MintSize), token.MintSize),
		token.Instructions.InitializeMint2(mintPub, public(payer), nil, 9),
	)

	addresses, err := tokenwrapper.GetVaultAddresses(mintPub, nil)
	require.NoError(t, err)
	vault := &testVault{env: env, mint: mintPub, addresses: addresses}

	err = vault.initialize(payer)
	requireCode(t, err, tokenwrapper.ErrorInvalidTokenMint)
	assert.Equal(t, tokenwrapper.ErrorKindOwnershipMismatch, tokenwrapper.KindOf(err))
}

func TestRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	vault := env.newMint(2, nil)
	user := vault.newHolder(1_000_000)
	require.NoError(t, vault.initialize(env.newWallet()))

	for _, amount := range []uint64{1, 999, 500_000, 1_000_000} {
		require.NoError(t, vault.deposit(user, amount, false))
		assert.Equal(t, amount, vault.wrapperBalance(user))
		vault.requireCollateralized()

		require.NoError(t, vault.withdraw(user, amount, false))
		assert.EqualValues(t, 1_000_000, vault.underlyingBalance(user))
		assert.EqualValues(t, 0, vault.wrapperBalance(user))
		vault.requireCollateralized()
	}
}

func TestCollateralizationInvariant(t *testing.T) {
	env := newTestEnv(t)
	vault := env.newMint(9, &token2022.TransferFee{BasisPoints: 37, MaximumFee: 250})
	require.NoError(t, vault.initialize(env.newWallet()))

	users := make([]ed25519.PrivateKey, 4)
	for i := range users {
		users[i] = vault.newHolder(1_000_000)
	}

	var committed int
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 60; i++ {
		user := users[r.Intn(len(users))]

		// Some of these overdraw or withdraw before depositing, and fail.
		var err error
		if r.Intn(2) == 0 {
			err = vault.deposit(user, uint64(r.Intn(200_000)), false)
		} else {
			err = vault.withdraw(user, uint64(r.Intn(200_000)), false)
		}
		if err == nil {
			committed++
		}

		vault.requireCollateralized()
	}
	assert.NotZero(t, committed)
}

func TestDeposit_TransferFee(t *testing.T) {
	for _, tc := range []struct {
		name     string
		fee      token2022.TransferFee
		amount   uint64
		expected uint64
	}{
		{"proportional", token2022.TransferFee{BasisPoints: 150, MaximumFee: 1_000_000}, 10_000, 9_850},
		{"floored", token2022.TransferFee{BasisPoints: 150, MaximumFee: 1_000_000}, 99, 98},
		{"capped", token2022.TransferFee{BasisPoints: 500, MaximumFee: 10}, 10_000, 9_990},
		{"zero bps", token2022.TransferFee{BasisPoints: 0, MaximumFee: 10}, 10_000, 10_000},
	} {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t)
			vault := env.newMint(9, &tc.fee)
			user := vault.newHolder(tc.amount)
			require.NoError(t, vault.initialize(env.newWallet()))

			require.NoError(t, vault.deposit(user, tc.amount, false))
			assert.EqualValues(t, 0, vault.underlyingBalance(user))
			assert.Equal(t, tc.expected, vault.wrapperBalance(user))
			assert.Equal(t, tc.expected, vault.reserveBalance())
			vault.requireCollateralized()

			withheld, err := vault.tokenAccount(vault.addresses.ReserveTokenAccount).TransferFeeAmount()
			require.NoError(t, err)
			assert.Equal(t, tc.amount-tc.expected, withheld.WithheldAmount)
		})
	}
}

func TestWithdraw_TransferFee(t *testing.T) {
	env := newTestEnv(t)
	vault := env.newMint(9, &token2022.TransferFee{BasisPoints: 100, MaximumFee: 1_000_000})
	user := vault.newHolder(10_000)
	require.NoError(t, vault.initialize(env.newWallet()))

	require.NoError(t, vault.deposit(user, 10_000, false))
	assert.EqualValues(t, 9_900, vault.wrapperBalance(user))

	// The fee on the way out is withheld at the user's account.
	require.NoError(t, vault.withdraw(user, 9_900, false))
	assert.EqualValues(t, 0, vault.wrapperBalance(user))
	assert.EqualValues(t, 0, vault.reserveBalance())
	assert.EqualValues(t, 9_801, vault.underlyingBalance(user))
	vault.requireCollateralized()
}

func TestUseMax(t *testing.T) {
	env := newTestEnv(t)
	vault := env.newMint(9, nil)
	user := vault.newHolder(7_777)
	require.NoError(t, vault.initialize(env.newWallet()))

	require.NoError(t, vault.deposit(user, 1, true))
	assert.EqualValues(t, 0, vault.underlyingBalance(user))
	assert.EqualValues(t, 7_777, vault.wrapperBalance(user))

	require.NoError(t, vault.withdraw(user, 0, true))
	assert.EqualValues(t, 7_777, vault.underlyingBalance(user))
	assert.EqualValues(t, 0, vault.wrapperBalance(user))
	vault.requireCollateralized()
}

func TestDeposit_ZeroAmount(t *testing.T) {
	env := newTestEnv(t)
	vault := env.newMint(9, nil)
	user := vault.newHolder(100)
	require.NoError(t, vault.initialize(env.newWallet()))

	require.Nil(t, vault.tokenAccount(vault.wrapperAccount(public(user))))
	require.NoError(t, vault.deposit(user, 0, false))

	wrapperAccount := vault.tokenAccount(vault.wrapperAccount(public(user)))
	require.NotNil(t, wrapperAccount)
	assert.EqualValues(t, public(user), wrapperAccount.Base.Owner)
	assert.EqualValues(t, vault.addresses.WrapperMint, wrapperAccount.Base.Mint)
	assert.EqualValues(t, 0, wrapperAccount.Base.Amount)

	assert.EqualValues(t, 100, vault.underlyingBalance(user))
	assert.EqualValues(t, 0, vault.reserveBalance())
	vault.requireCollateralized()
}

func TestDeposit_ExistingWrapperAccount(t *testing.T) {
	env := newTestEnv(t)
	vault := env.newMint(9, nil)
	user := vault.newHolder(100)
	require.NoError(t, vault.initialize(env.newWallet()))

	require.NoError(t, vault.deposit(user, 40, false))
	require.NoError(t, vault.deposit(user, 60, false))
	assert.EqualValues(t, 100, vault.wrapperBalance(user))
	vault.requireCollateralized()
}

func TestOwnershipRejection(t *testing.T) {
	env := newTestEnv(t)
	vault := env.newMint(9, nil)
	require.NoError(t, vault.initialize(env.newWallet()))

	alice := vault.newHolder(1_000)
	bob := vault.newHolder(1_000)
	require.NoError(t, vault.deposit(bob, 500, false))
	require.NoError(t, vault.deposit(alice, 0, false))

	before := vault.state(alice, bob)

	// Alice spends Bob's underlying tokens.
	accounts := vault.depositAccounts(public(alice))
	accounts.UserUnderlyingTokenAccount = vault.underlyingAccount(public(bob))
	err := env.submit(
		[]ed25519.PrivateKey{alice},
		tokenwrapper.NewDepositAndMintInstruction(accounts, &tokenwrapper.DepositAndMintInstructionArgs{Amount: 100}),
	)
	requireCode(t, err, tokenwrapper.ErrorUnexpectedUserTokenAccountOwner)
	assert.Equal(t, tokenwrapper.ErrorKindOwnershipMismatch, tokenwrapper.KindOf(err))

	// Alice burns Bob's wrapper tokens.
	withdrawAccounts := vault.withdrawAccounts(public(alice))
	withdrawAccounts.UserWrapperTokenAccount = vault.wrapperAccount(public(bob))
	err = env.submit(
		[]ed25519.PrivateKey{alice},
		tokenwrapper.NewWithdrawAndBurnInstruction(withdrawAccounts, &tokenwrapper.WithdrawAndBurnInstructionArgs{Amount: 100}),
	)
	requireCode(t, err, tokenwrapper.ErrorUnexpectedUserTokenAccountOwner)
	assert.Equal(t, tokenwrapper.ErrorKindOwnershipMismatch, tokenwrapper.KindOf(err))

	// Withdrawals can only pay out to the signer's account.
	withdrawAccounts = vault.withdrawAccounts(public(alice))
	withdrawAccounts.UserUnderlyingTokenAccount = vault.underlyingAccount(public(bob))
	err = env.submit(
		[]ed25519.PrivateKey{alice},
		tokenwrapper.NewWithdrawAndBurnInstruction(withdrawAccounts, &tokenwrapper.WithdrawAndBurnInstructionArgs{Amount: 0}),
	)
	requireCode(t, err, tokenwrapper.ErrorUnexpectedUserTokenAccountOwner)

	assert.Equal(t, before, vault.state(alice, bob))
}

func TestCrossVaultRejection(t *testing.T) {
	env := newTestEnv(t)
	vault := env.newMint(9, nil)
	other := env.newMint(9, nil)
	require.NoError(t, vault.initialize(env.newWallet()))
	require.NoError(t, other.initialize(env.newWallet()))

	user := vault.newHolder(1_000)
	before := vault.state(user)

	for _, tc := range []struct {
		name   string
		modify func(accounts *tokenwrapper.DepositAndMintInstructionAccounts)
		code   solana.CustomError
	}{
		{
			"wrapper and reserve",
			func(accounts *tokenwrapper.DepositAndMintInstructionAccounts) {
				accounts.WrapperMint = other.addresses.WrapperMint
				accounts.ReserveTokenAccount = other.addresses.ReserveTokenAccount
				accounts.UserWrapperTokenAccount = other.wrapperAccount(accounts.User)
			},
			tokenwrapper.ErrorUnexpectedWrapperMint,
		},
		{
			"reserve authority",
			func(accounts *tokenwrapper.DepositAndMintInstructionAccounts) {
				accounts.ReserveAuthority = other.addresses.ReserveAuthority
			},
			tokenwrapper.ErrorUnexpectedReserveAuthority,
		},
		{
			"reserve account",
			func(accounts *tokenwrapper.DepositAndMintInstructionAccounts) {
				accounts.ReserveTokenAccount = other.addresses.ReserveTokenAccount
			},
			tokenwrapper.ErrorUnexpectedReserveTokenAccount,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			accounts := vault.depositAccounts(public(user))
			tc.modify(accounts)

			err := env.submit(
				[]ed25519.PrivateKey{user},
				tokenwrapper.NewDepositAndMintInstruction(accounts, &tokenwrapper.DepositAndMintInstructionArgs{Amount: 100}),
			)
			requireCode(t, err, tc.code)
			assert.Equal(t, tokenwrapper.ErrorKindAddressMismatch, tokenwrapper.KindOf(err))
		})
	}

	assert.Equal(t, before, vault.state(user))
}

func TestMissingSignature(t *testing.T) {
	env := newTestEnv(t)
	vault := env.newMint(9, nil)
	require.NoError(t, vault.initialize(env.newWallet()))

	user := vault.newHolder(1_000)
	require.NoError(t, vault.deposit(user, 500, false))
	attacker := env.newWallet()
	before := vault.state(user)

	deposit := tokenwrapper.NewDepositAndMintInstruction(vault.depositAccounts(public(user)), &tokenwrapper.DepositAndMintInstructionArgs{Amount: 100})
	deposit.Accounts[0].IsSigner = false
	withdraw := tokenwrapper.NewWithdrawAndBurnInstruction(vault.withdrawAccounts(public(user)), &tokenwrapper.WithdrawAndBurnInstructionArgs{Amount: 100})
	withdraw.Accounts[0].IsSigner = false

	for _, ix := range []solana.Instruction{deposit, withdraw} {
		err := env.submit([]ed25519.PrivateKey{attacker}, ix)
		requireInstructionError(t, err, solana.InstructionErrorMissingRequiredSignature)
		assert.Equal(t, tokenwrapper.ErrorKindAuthorityMissing, tokenwrapper.KindOf(err))
	}

	assert.Equal(t, before, vault.state(user))
}

func TestInvalidInstruction(t *testing.T) {
	env := newTestEnv(t)
	vault := env.newMint(9, nil)
	user := vault.newHolder(1_000)
	require.NoError(t, vault.initialize(env.newWallet()))

	deposit := tokenwrapper.NewDepositAndMintInstruction(vault.depositAccounts(public(user)), &tokenwrapper.DepositAndMintInstructionArgs{Amount: 100})

	truncated := deposit
	truncated.Data = deposit.Data[:5]
	err := env.submit([]ed25519.PrivateKey{user}, truncated)
	requireInstructionError(t, err, solana.InstructionErrorInvalidInstructionData)

	badTag := deposit
	badTag.Data = append([]byte{7}, deposit.Data[1:]...)
	err = env.submit([]ed25519.PrivateKey{user}, badTag)
	requireInstructionError(t, err, solana.InstructionErrorInvalidInstructionData)

	short := deposit
	short.Accounts = deposit.Accounts[:11]
	err = env.submit([]ed25519.PrivateKey{user}, short)
	requireInstructionError(t, err, solana.InstructionErrorNotEnoughAccountKeys)

	// The use-max flag is optional.
	noFlag := deposit
	noFlag.Data = deposit.Data[:9]
	require.NoError(t, env.submit([]ed25519.PrivateKey{user}, noFlag))
	assert.EqualValues(t, 100, vault.wrapperBalance(user))
}

func TestUpstreamFailure(t *testing.T) {
	env := newTestEnv(t)
	vault := env.newMint(9, nil)
	user := vault.newHolder(1_000)
	require.NoError(t, vault.initialize(env.newWallet()))
	require.NoError(t, vault.deposit(user, 400, false))

	before := vault.state(user)

	err := vault.deposit(user, 601, false)
	requireCode(t, err, token.ErrorInsufficientFunds)
	assert.Equal(t, tokenwrapper.ErrorKindUpstream, tokenwrapper.KindOf(err))

	err = vault.withdraw(user, 401, false)
	requireCode(t, err, token.ErrorInsufficientFunds)
	assert.Equal(t, tokenwrapper.ErrorKindUpstream, tokenwrapper.KindOf(err))

	assert.Equal(t, before, vault.state(user))

	env.mustSubmit(
		[]ed25519.PrivateKey{vault.mintAuthority},
		token2022.Instructions.FreezeAccount(vault.underlyingAccount(public(user)), vault.mint, public(vault.mintAuthority)),
	)
	before = vault.state(user)

	err = vault.deposit(user, 100, false)
	requireCode(t, err, token.ErrorAccountFrozen)
	assert.Equal(t, tokenwrapper.ErrorKindUpstream, tokenwrapper.KindOf(err))

	err = vault.withdraw(user, 100, false)
	requireCode(t, err, token.ErrorAccountFrozen)

	assert.Equal(t, before, vault.state(user))
	vault.requireCollateralized()
}

func TestWithdraw_UncreatedWrapperAccount(t *testing.T) {
	env := newTestEnv(t)
	vault := env.newMint(9, nil)
	user := vault.newHolder(1_000)
	require.NoError(t, vault.initialize(env.newWallet()))

	err := vault.withdraw(user, 0, true)
	requireCode(t, err, tokenwrapper.ErrorExpectedInitializedAccount)
	assert.Equal(t, tokenwrapper.ErrorKindLifecycleViolation, tokenwrapper.KindOf(err))
}

func TestDeposit_UninitializedVault(t *testing.T) {
	env := newTestEnv(t)
	vault := env.newMint(9, nil)
	user := vault.newHolder(1_000)

	err := vault.deposit(user, 100, false)
	requireCode(t, err, tokenwrapper.ErrorExpectedInitializedAccount)
	assert.EqualValues(t, 1_000, vault.underlyingBalance(user))
}

func TestDeposit_WrongProgramIDs(t *testing.T) {
	env := newTestEnv(t)
	vault := env.newMint(9, nil)
	user := vault.newHolder(1_000)
	require.NoError(t, vault.initialize(env.newWallet()))

	for _, tc := range []struct {
		index int
		key   ed25519.PublicKey
		code  solana.CustomError
	}{
		{7, token2022.ProgramKey, tokenwrapper.ErrorUnexpectedTokenProgram},
		{8, token.ProgramKey, tokenwrapper.ErrorUnexpectedToken2022Program},
		{9, testutil.GenerateSolanaPublicKey(t), tokenwrapper.ErrorUnexpectedSystemProgram},
		{10, testutil.GenerateSolanaPublicKey(t), tokenwrapper.ErrorUnexpectedAssociatedTokenProgram},
		{11, testutil.GenerateSolanaPublicKey(t), tokenwrapper.ErrorUnexpectedRent},
	} {
		ix := tokenwrapper.NewDepositAndMintInstruction(vault.depositAccounts(public(user)), &tokenwrapper.DepositAndMintInstructionArgs{Amount: 1})
		ix.Accounts[tc.index].PublicKey = tc.key

		err := env.submit([]ed25519.PrivateKey{user}, ix)
		requireCode(t, err, tc.code)
	}

	assert.EqualValues(t, 1_000, vault.underlyingBalance(user))
}

func TestProcessor_AlternateProgramID(t *testing.T) {
	env := newTestEnv(t)
	programID := testutil.GenerateSolanaPublicKey(t)
	env.bank.RegisterProgram(programID, New())

	vault := env.newMint(9, nil)
	addresses, err := tokenwrapper.GetVaultAddresses(vault.mint, programID)
	require.NoError(t, err)

	// Addresses derived from the default program id are rejected.
	payer := env.newWallet()
	ix := vault.initializeInstruction(public(payer))
	ix.Program = programID
	requireCode(t, env.submit([]ed25519.PrivateKey{payer}, ix), tokenwrapper.ErrorUnexpectedWrapperMint)

	ix.Accounts[2].PublicKey = addresses.WrapperMint
	ix.Accounts[3].PublicKey = addresses.ReserveAuthority
	ix.Accounts[4].PublicKey = addresses.ReserveTokenAccount
	require.NoError(t, env.submit([]ed25519.PrivateKey{payer}, ix))

	mint, ok := env.bank.GetAccount(addresses.WrapperMint)
	require.True(t, ok)
	assert.EqualValues(t, token.ProgramKey, mint.Owner)
}

