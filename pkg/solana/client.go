package solana

import (
	"crypto/ed25519"
	"encoding/base64"
	"sync"
	"time"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/ybbus/jsonrpc"

	"github.com/code-payments/token-wrapper/pkg/retry"
	"github.com/code-payments/token-wrapper/pkg/retry/backoff"
)

const (
	// Reference: https://github.com/solana-labs/solana/blob/71e9958e061493d7545bd28d4ac7a85aaed6ffbb/client/src/rpc_custom_error.rs#L11
	rpcNodeUnhealthyCode = -32005

	invalidParamCode = -32602

	blockhashCacheTTL = 2 * time.Second

	// Upper bound the RPC node accepts for getMultipleAccounts
	maxMultipleAccounts = 100
)

type Commitment struct {
	Commitment string `json:"commitment"`
}

var (
	CommitmentProcessed = Commitment{Commitment: "processed"}
	CommitmentConfirmed = Commitment{Commitment: "confirmed"}
	CommitmentFinalized = Commitment{Commitment: "finalized"}
)

var (
	ErrNoAccountInfo = errors.New("no account info")
	ErrNoBalance     = errors.New("no balance")
)

// AccountInfo is the ledger level state of an account.
type AccountInfo struct {
	Data       []byte
	Owner      ed25519.PublicKey
	Lamports   uint64
	Executable bool
}

// Client is the subset of the Solana JSON RPC API used to audit and operate
// vaults. memory.Bank implements it for tests.
//
// Reference: https://docs.solana.com/apps/jsonrpc-api
type Client interface {
	GetAccountInfo(ed25519.PublicKey, Commitment) (AccountInfo, error)
	GetMultipleAccounts([]ed25519.PublicKey, Commitment) (uint64, []*AccountInfo, error)
	GetBalance(ed25519.PublicKey) (uint64, error)
	GetMinimumBalanceForRentExemption(size uint64) (lamports uint64, err error)
	GetLatestBlockhash() (Blockhash, error)
	GetSlot(Commitment) (uint64, error)
	SubmitTransaction(Transaction, Commitment) (Signature, error)
}

var (
	errRateLimited  = errors.New("rate limited")
	errServiceError = errors.New("service error")
)

type client struct {
	log     *logrus.Entry
	rpc     jsonrpc.RPCClient
	retrier retry.Retrier

	blockMu       sync.Mutex
	blockhash     Blockhash
	blockhashTime time.Time
}

// New returns a client for the RPC node at endpoint. Rate limited and
// unhealthy node responses are retried with backoff.
func New(endpoint string) Client {
	return newClient(jsonrpc.NewClient(endpoint), retry.BackoffWithJitter(backoff.BinaryExponential(time.Second), 10*time.Second, 0.1))
}

func newClient(rpc jsonrpc.RPCClient, backoffStrategy retry.Strategy) *client {
	return &client{
		log: logrus.StandardLogger().WithField("type", "solana/client"),
		rpc: rpc,
		retrier: retry.NewRetrier(
			retry.RetriableErrors(errRateLimited, errServiceError),
			retry.Limit(3),
			backoffStrategy,
		),
	}
}

func (c *client) call(out interface{}, method string, params ...interface{}) error {
	_, err := c.retrier.Retry(func() error {
		err := c.rpc.CallFor(out, method, params...)
		if err == nil {
			return nil
		}
		return c.classifyError(method, err)
	})
	return err
}

func (c *client) classifyError(method string, err error) error {
	rpcErr, ok := err.(*jsonrpc.RPCError)
	if !ok {
		httpErr, ok := err.(*jsonrpc.HTTPError)
		if ok && httpErr.Code == 429 {
			c.log.WithField("method", method).Warn("rate limited")
			return errRateLimited
		}
		if ok && httpErr.Code >= 500 {
			return errServiceError
		}
		return err
	}

	switch {
	case rpcErr.Code == 429:
		c.log.WithField("method", method).Warn("rate limited")
		return errRateLimited
	case rpcErr.Code >= 500, rpcErr.Code == rpcNodeUnhealthyCode:
		return errServiceError
	default:
		return err
	}
}

func (c *client) GetMinimumBalanceForRentExemption(dataSize uint64) (lamports uint64, err error) {
	if err := c.call(&lamports, "getMinimumBalanceForRentExemption", dataSize); err != nil {
		return 0, errors.Wrap(err, "getMinimumBalanceForRentExemption() failed to send request")
	}
	return lamports, nil
}

func (c *client) GetSlot(commitment Commitment) (slot uint64, err error) {
	// The commitment has to be wrapped in an []interface{}, otherwise the RPC
	// node rejects the request.
	if err := c.call(&slot, "getSlot", []interface{}{commitment}); err != nil {
		return 0, errors.Wrap(err, "getSlot() failed to send request")
	}
	return slot, nil
}

// GetLatestBlockhash returns a blockhash no older than blockhashCacheTTL.
func (c *client) GetLatestBlockhash() (Blockhash, error) {
	c.blockMu.Lock()
	defer c.blockMu.Unlock()

	if time.Since(c.blockhashTime) < blockhashCacheTTL {
		return c.blockhash, nil
	}

	var resp struct {
		Value struct {
			Blockhash string `json:"blockhash"`
		} `json:"value"`
	}
	if err := c.call(&resp, "getLatestBlockhash"); err != nil {
		return Blockhash{}, errors.Wrap(err, "getLatestBlockhash() failed to send request")
	}

	decoded, err := base58.Decode(resp.Value.Blockhash)
	if err != nil || len(decoded) != len(Blockhash{}) {
		return Blockhash{}, errors.New("invalid blockhash in response")
	}

	copy(c.blockhash[:], decoded)
	c.blockhashTime = time.Now()
	return c.blockhash, nil
}

func (c *client) GetBalance(account ed25519.PublicKey) (uint64, error) {
	var resp struct {
		Value *uint64 `json:"value"`
	}
	if err := c.call(&resp, "getBalance", base58.Encode(account), CommitmentProcessed); err != nil {
		if rpcErr, ok := err.(*jsonrpc.RPCError); ok && rpcErr.Code == invalidParamCode {
			return 0, ErrNoBalance
		}
		return 0, errors.Wrap(err, "getBalance() failed to send request")
	}

	if resp.Value == nil {
		return 0, errors.New("invalid value in response")
	}
	return *resp.Value, nil
}

// SubmitTransaction sends the transaction without preflight. A rejected
// transaction is returned as a *TransactionError.
func (c *client) SubmitTransaction(txn Transaction, commitment Commitment) (Signature, error) {
	var sig Signature
	if len(txn.Signatures) > 0 {
		sig = txn.Signatures[0]
	}

	config := struct {
		SkipPreflight       bool   `json:"skipPreflight"`
		PreflightCommitment string `json:"preflightCommitment"`
		Encoding            string `json:"encoding"`
	}{
		SkipPreflight:       true,
		PreflightCommitment: commitment.Commitment,
		Encoding:            "base64",
	}

	var ignored string
	err := c.call(&ignored, "sendTransaction", base64.StdEncoding.EncodeToString(txn.Marshal()), config)
	if err == nil {
		return sig, nil
	}

	rpcErr, ok := err.(*jsonrpc.RPCError)
	if !ok {
		return sig, errors.Wrap(err, "sendTransaction() failed to send request")
	}

	txErr, parseErr := ParseRPCError(rpcErr)
	if parseErr != nil || txErr == nil {
		return sig, err
	}

	c.log.WithFields(logrus.Fields{
		"method":    "SubmitTransaction",
		"signature": base58.Encode(sig[:]),
	}).WithError(txErr).Debug("transaction rejected")

	return sig, txErr
}

func (c *client) GetAccountInfo(account ed25519.PublicKey, commitment Commitment) (AccountInfo, error) {
	var resp struct {
		Value *rpcAccount `json:"value"`
	}

	if err := c.call(&resp, "getAccountInfo", base58.Encode(account), newAccountConfig(commitment)); err != nil {
		return AccountInfo{}, errors.Wrap(err, "getAccountInfo() failed to send request")
	}

	if resp.Value == nil {
		return AccountInfo{}, ErrNoAccountInfo
	}
	return resp.Value.toAccountInfo()
}

// GetMultipleAccounts reads accounts as of one slot, which is returned with
// them. Accounts that don't exist are nil.
func (c *client) GetMultipleAccounts(accounts []ed25519.PublicKey, commitment Commitment) (uint64, []*AccountInfo, error) {
	if len(accounts) > maxMultipleAccounts {
		return 0, nil, errors.Errorf("at most %d accounts can be read at once", maxMultipleAccounts)
	}

	addresses := make([]string, len(accounts))
	for i, account := range accounts {
		addresses[i] = base58.Encode(account)
	}

	var resp struct {
		Context struct {
			Slot uint64 `json:"slot"`
		} `json:"context"`
		Value []*rpcAccount `json:"value"`
	}

	if err := c.call(&resp, "getMultipleAccounts", addresses, newAccountConfig(commitment)); err != nil {
		return 0, nil, errors.Wrap(err, "getMultipleAccounts() failed to send request")
	}

	if len(resp.Value) != len(accounts) {
		return 0, nil, errors.Errorf("expected %d accounts, got %d", len(accounts), len(resp.Value))
	}

	infos := make([]*AccountInfo, len(accounts))
	for i, value := range resp.Value {
		if value == nil {
			continue
		}

		info, err := value.toAccountInfo()
		if err != nil {
			return 0, nil, errors.Wrapf(err, "invalid account %s", addresses[i])
		}
		infos[i] = &info
	}

	return resp.Context.Slot, infos, nil
}

type accountConfig struct {
	Commitment string `json:"commitment"`
	Encoding   string `json:"encoding"`
}

func newAccountConfig(commitment Commitment) accountConfig {
	return accountConfig{
		Commitment: commitment.Commitment,
		Encoding:   "base64",
	}
}

// rpcAccount is an account as returned with base64 encoding.
type rpcAccount struct {
	Lamports   uint64   `json:"lamports"`
	Owner      string   `json:"owner"`
	Data       []string `json:"data"`
	Executable bool     `json:"executable"`
}

func (a *rpcAccount) toAccountInfo() (info AccountInfo, err error) {
	if info.Owner, err = base58.Decode(a.Owner); err != nil {
		return info, errors.Wrap(err, "invalid base58 encoded owner")
	}

	if len(a.Data) == 0 {
		return info, errors.New("missing account data in response")
	}
	if info.Data, err = base64.StdEncoding.DecodeString(a.Data[0]); err != nil {
		return info, errors.Wrap(err, "invalid base64 encoded data")
	}

	info.Lamports = a.Lamports
	info.Executable = a.Executable
	return info, nil
}
