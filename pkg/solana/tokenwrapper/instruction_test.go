package tokenwrapper

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitializeInstruction(t *testing.T) {
	accounts := &InitializeInstructionAccounts{
		Payer:               generateKey(t),
		UnderlyingMint:      generateKey(t),
		WrapperMint:         generateKey(t),
		ReserveAuthority:    generateKey(t),
		ReserveTokenAccount: generateKey(t),
	}
	ix := NewInitializeInstruction(accounts, &InitializeInstructionArgs{})

	assert.EqualValues(t, PROGRAM_ID, ix.Program)
	assert.Equal(t, []byte{0}, ix.Data)
	require.Len(t, ix.Accounts, 9)

	assert.EqualValues(t, accounts.Payer, ix.Accounts[0].PublicKey)
	assert.True(t, ix.Accounts[0].IsSigner)
	assert.True(t, ix.Accounts[0].IsWritable)
	assert.EqualValues(t, accounts.UnderlyingMint, ix.Accounts[1].PublicKey)
	assert.False(t, ix.Accounts[1].IsWritable)
	assert.EqualValues(t, accounts.WrapperMint, ix.Accounts[2].PublicKey)
	assert.True(t, ix.Accounts[2].IsWritable)
	assert.EqualValues(t, accounts.ReserveAuthority, ix.Accounts[3].PublicKey)
	assert.EqualValues(t, accounts.ReserveTokenAccount, ix.Accounts[4].PublicKey)
	assert.True(t, ix.Accounts[4].IsWritable)
	assert.EqualValues(t, SPL_TOKEN_PROGRAM_ID, ix.Accounts[5].PublicKey)
	assert.EqualValues(t, SPL_TOKEN_2022_PROGRAM_ID, ix.Accounts[6].PublicKey)
	assert.EqualValues(t, SYSTEM_PROGRAM_ID, ix.Accounts[7].PublicKey)
	assert.EqualValues(t, SYSVAR_RENT_PUBKEY, ix.Accounts[8].PublicKey)

	for _, account := range ix.Accounts[1:] {
		assert.False(t, account.IsSigner)
	}
}

func TestDepositAndMintInstruction(t *testing.T) {
	accounts := &DepositAndMintInstructionAccounts{
		User:                       generateKey(t),
		ReserveAuthority:           generateKey(t),
		UnderlyingMint:             generateKey(t),
		WrapperMint:                generateKey(t),
		UserWrapperTokenAccount:    generateKey(t),
		UserUnderlyingTokenAccount: generateKey(t),
		ReserveTokenAccount:        generateKey(t),
	}
	ix := NewDepositAndMintInstruction(accounts, &DepositAndMintInstructionArgs{Amount: 5_000, UseMax: true})

	require.Len(t, ix.Data, 10)
	assert.EqualValues(t, InstructionTypeDepositAndMint, ix.Data[0])
	assert.EqualValues(t, 5_000, binary.LittleEndian.Uint64(ix.Data[1:]))
	assert.EqualValues(t, 1, ix.Data[9])

	expected := []struct {
		key      []byte
		writable bool
	}{
		{accounts.User, true},
		{accounts.ReserveAuthority, false},
		{accounts.UnderlyingMint, false},
		{accounts.WrapperMint, true},
		{accounts.UserWrapperTokenAccount, true},
		{accounts.UserUnderlyingTokenAccount, true},
		{accounts.ReserveTokenAccount, true},
		{SPL_TOKEN_PROGRAM_ID, false},
		{SPL_TOKEN_2022_PROGRAM_ID, false},
		{SYSTEM_PROGRAM_ID, false},
		{SPL_ASSOCIATED_TOKEN_ACCOUNT_PROGRAM_ID, false},
		{SYSVAR_RENT_PUBKEY, false},
	}
	require.Len(t, ix.Accounts, len(expected))
	for i, e := range expected {
		assert.EqualValues(t, e.key, ix.Accounts[i].PublicKey, "account %d", i)
		assert.Equal(t, e.writable, ix.Accounts[i].IsWritable, "account %d", i)
		assert.Equal(t, i == 0, ix.Accounts[i].IsSigner, "account %d", i)
	}
}

func TestWithdrawAndBurnInstruction(t *testing.T) {
	accounts := &WithdrawAndBurnInstructionAccounts{
		User:                       generateKey(t),
		ReserveAuthority:           generateKey(t),
		UnderlyingMint:             generateKey(t),
		WrapperMint:                generateKey(t),
		UserWrapperTokenAccount:    generateKey(t),
		UserUnderlyingTokenAccount: generateKey(t),
		ReserveTokenAccount:        generateKey(t),
	}
	ix := NewWithdrawAndBurnInstruction(accounts, &WithdrawAndBurnInstructionArgs{Amount: 42})

	require.Len(t, ix.Data, 10)
	assert.EqualValues(t, InstructionTypeWithdrawAndBurn, ix.Data[0])
	assert.EqualValues(t, 42, binary.LittleEndian.Uint64(ix.Data[1:]))
	assert.EqualValues(t, 0, ix.Data[9])

	require.Len(t, ix.Accounts, 11)
	assert.EqualValues(t, accounts.User, ix.Accounts[0].PublicKey)
	assert.EqualValues(t, accounts.WrapperMint, ix.Accounts[3].PublicKey)
	assert.True(t, ix.Accounts[3].IsWritable)
	assert.EqualValues(t, accounts.ReserveTokenAccount, ix.Accounts[6].PublicKey)
	assert.EqualValues(t, SYSTEM_PROGRAM_ID, ix.Accounts[9].PublicKey)
	assert.EqualValues(t, SYSVAR_RENT_PUBKEY, ix.Accounts[10].PublicKey)
}

func TestDecodeInstruction(t *testing.T) {
	amount := func(tag byte, v uint64, rest ...byte) []byte {
		b := make([]byte, 9)
		b[0] = tag
		binary.LittleEndian.PutUint64(b[1:], v)
		return append(b, rest...)
	}

	for _, tc := range []struct {
		name     string
		data     []byte
		expected *Instruction
	}{
		{"initialize", []byte{0}, &Instruction{Type: InstructionTypeInitialize}},
		{"initialize trailing", []byte{0, 1, 2}, &Instruction{Type: InstructionTypeInitialize}},
		{"deposit without flag", amount(1, 10), &Instruction{Type: InstructionTypeDepositAndMint, Amount: 10}},
		{"deposit flag unset", amount(1, 10, 0), &Instruction{Type: InstructionTypeDepositAndMint, Amount: 10}},
		{"deposit flag set", amount(1, 10, 1), &Instruction{Type: InstructionTypeDepositAndMint, Amount: 10, UseMax: true}},
		{"deposit flag non-zero", amount(1, 10, 0xff, 7), &Instruction{Type: InstructionTypeDepositAndMint, Amount: 10, UseMax: true}},
		{"withdraw", amount(2, 1<<63), &Instruction{Type: InstructionTypeWithdrawAndBurn, Amount: 1 << 63}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			actual, err := DecodeInstruction(tc.data)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, actual)
		})
	}

	for _, data := range [][]byte{
		nil,
		{3},
		{0xff, 0, 0, 0, 0, 0, 0, 0, 0},
		{1},
		{1, 0, 0, 0, 0, 0, 0, 0},
		{2, 1, 2, 3},
	} {
		_, err := DecodeInstruction(data)
		assert.Equal(t, ErrInvalidInstructionData, err, "data %v", data)
	}
}

func TestDecodeInstruction_Builders(t *testing.T) {
	deposit := NewDepositAndMintInstruction(&DepositAndMintInstructionAccounts{}, &DepositAndMintInstructionArgs{Amount: 7})
	decoded, err := DecodeInstruction(deposit.Data)
	require.NoError(t, err)
	assert.Equal(t, &Instruction{Type: InstructionTypeDepositAndMint, Amount: 7}, decoded)

	withdraw := NewWithdrawAndBurnInstruction(&WithdrawAndBurnInstructionAccounts{}, &WithdrawAndBurnInstructionArgs{UseMax: true})
	decoded, err = DecodeInstruction(withdraw.Data)
	require.NoError(t, err)
	assert.Equal(t, &Instruction{Type: InstructionTypeWithdrawAndBurn, UseMax: true}, decoded)
}
