package solana

import (
	"encoding/json"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ybbus/jsonrpc"
)

func decodeJSON(t *testing.T, s string) interface{} {
	var v interface{}
	require.NoError(t, json.Unmarshal([]byte(s), &v))
	return v
}

func TestParseTransactionError(t *testing.T) {
	e, err := ParseTransactionError(decodeJSON(t, `{"InstructionError":[2,{"Custom":6001}]}`))
	require.NoError(t, err)
	assert.Equal(t, TransactionErrorInstructionError, e.ErrorKey())
	require.NotNil(t, e.InstructionError())
	assert.Equal(t, 2, e.InstructionError().Index)
	assert.Equal(t, InstructionErrorCustom, e.InstructionError().ErrorKey())
	assert.Equal(t, CustomError(0x1771), *e.InstructionError().CustomError())

	e, err = ParseTransactionError(decodeJSON(t, `{"InstructionError":[0,"InvalidSeeds"]}`))
	require.NoError(t, err)
	assert.Equal(t, InstructionErrorInvalidSeeds, e.InstructionError().ErrorKey())
	assert.Nil(t, e.InstructionError().CustomError())

	e, err = ParseTransactionError(decodeJSON(t, `"BlockhashNotFound"`))
	require.NoError(t, err)
	assert.Equal(t, TransactionErrorBlockhashNotFound, e.ErrorKey())
	assert.Equal(t, "BlockhashNotFound", e.Error())
	assert.Nil(t, e.InstructionError())

	e, err = ParseTransactionError(decodeJSON(t, `{"InsufficientFundsForRent":{"account_index":1}}`))
	require.NoError(t, err)
	assert.EqualValues(t, "InsufficientFundsForRent", e.ErrorKey())

	e, err = ParseTransactionError(nil)
	assert.NoError(t, err)
	assert.Nil(t, e)

	_, err = ParseTransactionError(decodeJSON(t, `{"InstructionError":[0]}`))
	assert.Error(t, err)

	_, err = ParseTransactionError(decodeJSON(t, `{"a":1,"b":2}`))
	assert.Error(t, err)
}

func TestParseRPCError(t *testing.T) {
	e, err := ParseRPCError(&jsonrpc.RPCError{
		Data: map[string]interface{}{
			"err": map[string]interface{}{
				"InstructionError": []interface{}{json.Number("1"), map[string]interface{}{"Custom": json.Number("6000")}},
			},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, CustomError(0x1770), *e.InstructionError().CustomError())

	e, err = ParseRPCError(&jsonrpc.RPCError{Data: map[string]interface{}{}})
	assert.NoError(t, err)
	assert.Nil(t, e)

	_, err = ParseRPCError(&jsonrpc.RPCError{Data: "unexpected"})
	assert.Error(t, err)
}

func TestTransactionErrorJSON(t *testing.T) {
	e := NewTransactionError(TransactionErrorDuplicateSignature)
	formatted, err := e.JSONString()
	require.NoError(t, err)
	assert.Equal(t, `"DuplicateSignature"`, formatted)

	for _, tc := range []struct {
		ixErr    *InstructionError
		expected string
	}{
		{NewInstructionError(1, CustomError(0x1770)), `{"InstructionError":[1,{"Custom":6000}]}`},
		{NewInstructionError(0, errors.New(string(InstructionErrorInvalidArgument))), `{"InstructionError":[0,"InvalidArgument"]}`},
	} {
		txErr, err := TransactionErrorFromInstructionError(tc.ixErr)
		require.NoError(t, err)
		assert.Equal(t, TransactionErrorInstructionError, txErr.ErrorKey())

		formatted, err := txErr.JSONString()
		require.NoError(t, err)
		assert.Equal(t, tc.expected, formatted)

		// The generated form round trips through the parser.
		parsed, err := ParseTransactionError(decodeJSON(t, formatted))
		require.NoError(t, err)
		assert.Equal(t, txErr.raw, parsed.raw)
		assert.Equal(t, tc.ixErr.ErrorKey(), parsed.InstructionError().ErrorKey())
	}

	assert.Equal(t, `[1, {"Custom": 6000}]`, NewInstructionError(1, CustomError(0x1770)).JSONString())

	_, err = TransactionErrorFromInstructionError(nil)
	assert.Error(t, err)
}

func TestParseJSONNumber(t *testing.T) {
	for _, v := range []interface{}{"7", 7.0, json.Number("7")} {
		n, err := parseJSONNumber(v)
		require.NoError(t, err)
		assert.Equal(t, 7, n)
	}

	_, err := parseJSONNumber(true)
	assert.Error(t, err)
}
