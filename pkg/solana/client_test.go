package solana

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ybbus/jsonrpc"
)

type rpcRequest struct {
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
	ID     int               `json:"id"`
}

// rpcServer answers JSON RPC requests with handlers[method]. A handler
// returning a non-zero status fails the HTTP request instead.
type rpcServer struct {
	sync.Mutex
	handlers map[string]func(params []json.RawMessage) (result interface{}, rpcErr map[string]interface{}, status int)
	calls    map[string]int
}

func newTestClient(t *testing.T, s *rpcServer) *client {
	s.calls = make(map[string]int)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		s.Lock()
		s.calls[req.Method]++
		handler, ok := s.handlers[req.Method]
		s.Unlock()
		require.True(t, ok, req.Method)

		result, rpcErr, status := handler(req.Params)
		if status != 0 {
			w.WriteHeader(status)
			return
		}

		resp := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID}
		if rpcErr != nil {
			resp["error"] = rpcErr
		} else {
			resp["result"] = result
		}
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	t.Cleanup(server.Close)

	return newClient(jsonrpc.NewClient(server.URL), func(uint, error) bool { return true })
}

func TestClient_GetAccountInfo(t *testing.T) {
	owner := ed25519.PublicKey(make([]byte, ed25519.PublicKeySize))
	owner[0] = 7
	data := []byte{1, 2, 3}
	account, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	s := &rpcServer{handlers: map[string]func([]json.RawMessage) (interface{}, map[string]interface{}, int){
		"getAccountInfo": func(params []json.RawMessage) (interface{}, map[string]interface{}, int) {
			var address string
			require.NoError(t, json.Unmarshal(params[0], &address))
			if address != base58.Encode(account) {
				return map[string]interface{}{"value": nil}, nil, 0
			}

			var config map[string]string
			require.NoError(t, json.Unmarshal(params[1], &config))
			assert.Equal(t, "finalized", config["commitment"])
			assert.Equal(t, "base64", config["encoding"])

			return map[string]interface{}{
				"value": map[string]interface{}{
					"lamports":   1000,
					"owner":      base58.Encode(owner),
					"data":       []string{base64.StdEncoding.EncodeToString(data), "base64"},
					"executable": false,
				},
			}, nil, 0
		},
	}}
	c := newTestClient(t, s)

	info, err := c.GetAccountInfo(account, CommitmentFinalized)
	require.NoError(t, err)
	assert.Equal(t, data, info.Data)
	assert.EqualValues(t, owner, info.Owner)
	assert.EqualValues(t, 1000, info.Lamports)

	_, err = c.GetAccountInfo(owner, CommitmentFinalized)
	assert.Equal(t, ErrNoAccountInfo, err)
}

func TestClient_GetMultipleAccounts(t *testing.T) {
	owner := ed25519.PublicKey(make([]byte, ed25519.PublicKeySize))
	owner[0] = 7
	found, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	missing, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	var requested []string
	s := &rpcServer{handlers: map[string]func([]json.RawMessage) (interface{}, map[string]interface{}, int){
		"getMultipleAccounts": func(params []json.RawMessage) (interface{}, map[string]interface{}, int) {
			requested = nil
			require.NoError(t, json.Unmarshal(params[0], &requested))

			return map[string]interface{}{
				"context": map[string]interface{}{"slot": 42},
				"value": []interface{}{
					map[string]interface{}{
						"lamports":   10,
						"owner":      base58.Encode(owner),
						"data":       []string{base64.StdEncoding.EncodeToString([]byte{9}), "base64"},
						"executable": false,
					},
					nil,
				},
			}, nil, 0
		},
	}}
	c := newTestClient(t, s)

	slot, infos, err := c.GetMultipleAccounts([]ed25519.PublicKey{found, missing}, CommitmentFinalized)
	require.NoError(t, err)
	assert.Equal(t, []string{base58.Encode(found), base58.Encode(missing)}, requested)
	assert.EqualValues(t, 42, slot)
	require.Len(t, infos, 2)
	require.NotNil(t, infos[0])
	assert.Equal(t, []byte{9}, infos[0].Data)
	assert.EqualValues(t, owner, infos[0].Owner)
	assert.EqualValues(t, 10, infos[0].Lamports)
	assert.Nil(t, infos[1])

	// The node answering with a different number of accounts
	_, _, err = c.GetMultipleAccounts([]ed25519.PublicKey{found}, CommitmentFinalized)
	assert.Error(t, err)

	_, _, err = c.GetMultipleAccounts(make([]ed25519.PublicKey, maxMultipleAccounts+1), CommitmentFinalized)
	assert.Error(t, err)
	assert.Equal(t, 2, s.calls["getMultipleAccounts"])
}

func TestClient_RetriesRateLimits(t *testing.T) {
	var attempts int
	s := &rpcServer{handlers: map[string]func([]json.RawMessage) (interface{}, map[string]interface{}, int){
		"getSlot": func([]json.RawMessage) (interface{}, map[string]interface{}, int) {
			attempts++
			if attempts < 3 {
				return nil, nil, http.StatusTooManyRequests
			}
			return 1234, nil, 0
		},
		"getBalance": func([]json.RawMessage) (interface{}, map[string]interface{}, int) {
			return nil, nil, http.StatusTooManyRequests
		},
	}}
	c := newTestClient(t, s)

	slot, err := c.GetSlot(CommitmentFinalized)
	require.NoError(t, err)
	assert.EqualValues(t, 1234, slot)
	assert.Equal(t, 3, s.calls["getSlot"])

	_, err = c.GetBalance(make([]byte, ed25519.PublicKeySize))
	assert.Error(t, err)
	assert.Equal(t, 3, s.calls["getBalance"])
}

func TestClient_GetBalance(t *testing.T) {
	s := &rpcServer{handlers: map[string]func([]json.RawMessage) (interface{}, map[string]interface{}, int){
		"getBalance": func(params []json.RawMessage) (interface{}, map[string]interface{}, int) {
			var address string
			require.NoError(t, json.Unmarshal(params[0], &address))
			if address == base58.Encode(make([]byte, ed25519.PublicKeySize)) {
				return nil, map[string]interface{}{"code": invalidParamCode, "message": "invalid param"}, 0
			}
			return map[string]interface{}{"context": map[string]int{"slot": 1}, "value": 5000}, nil, 0
		},
	}}
	c := newTestClient(t, s)

	account, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	balance, err := c.GetBalance(account)
	require.NoError(t, err)
	assert.EqualValues(t, 5000, balance)

	_, err = c.GetBalance(make([]byte, ed25519.PublicKeySize))
	assert.Equal(t, ErrNoBalance, err)
}

func TestClient_GetLatestBlockhash_Cached(t *testing.T) {
	var expected Blockhash
	expected[0] = 9

	s := &rpcServer{handlers: map[string]func([]json.RawMessage) (interface{}, map[string]interface{}, int){
		"getLatestBlockhash": func([]json.RawMessage) (interface{}, map[string]interface{}, int) {
			return map[string]interface{}{
				"value": map[string]interface{}{"blockhash": base58.Encode(expected[:])},
			}, nil, 0
		},
	}}
	c := newTestClient(t, s)

	for i := 0; i < 3; i++ {
		hash, err := c.GetLatestBlockhash()
		require.NoError(t, err)
		assert.Equal(t, expected, hash)
	}
	assert.Equal(t, 1, s.calls["getLatestBlockhash"])
}

func TestClient_SubmitTransaction_Rejected(t *testing.T) {
	s := &rpcServer{handlers: map[string]func([]json.RawMessage) (interface{}, map[string]interface{}, int){
		"sendTransaction": func([]json.RawMessage) (interface{}, map[string]interface{}, int) {
			return nil, map[string]interface{}{
				"code":    -32002,
				"message": "Transaction simulation failed",
				"data": map[string]interface{}{
					"err": map[string]interface{}{
						"InstructionError": []interface{}{0, map[string]interface{}{"Custom": 6000}},
					},
				},
			}, 0
		},
	}}
	c := newTestClient(t, s)

	payer, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	program, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	txn := NewTransaction(payer, NewInstruction(program, nil))

	_, err = c.SubmitTransaction(txn, CommitmentConfirmed)
	txErr, ok := err.(*TransactionError)
	require.True(t, ok, "%v", err)
	require.NotNil(t, txErr.InstructionError())
	assert.Equal(t, 0, txErr.InstructionError().Index)
	require.NotNil(t, txErr.InstructionError().CustomError())
	assert.EqualValues(t, 6000, *txErr.InstructionError().CustomError())
}
