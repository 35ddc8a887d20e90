// Package memory provides an in-memory ledger that executes transactions
// against registered programs.
package memory

import (
	"crypto/ed25519"
	"crypto/rand"
	"sync"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/token-wrapper/pkg/solana"
	"github.com/code-payments/token-wrapper/pkg/solana/runtime"
	"github.com/code-payments/token-wrapper/pkg/solana/runtime/builtin"
	"github.com/code-payments/token-wrapper/pkg/solana/system"
	"github.com/code-payments/token-wrapper/pkg/solana/token"
	"github.com/code-payments/token-wrapper/pkg/solana/token2022"
	xsync "github.com/code-payments/token-wrapper/pkg/sync"
)

const (
	DefaultLamportsPerSignature = 5000

	maxRecentBlockhashes = 150
	lockStripes          = 64
)

// NativeLoader owns every builtin program account.
var NativeLoader ed25519.PublicKey

func init() {
	var err error
	NativeLoader, err = base58.Decode("NativeLoader1111111111111111111111111111111")
	if err != nil {
		panic(err)
	}
}

var _ solana.Client = (*Bank)(nil)

// Bank is an in-memory ledger. Transactions touching disjoint accounts run
// concurrently; transactions sharing a writable account are serialized.
type Bank struct {
	log *logrus.Entry

	rent                 system.Rent
	lamportsPerSignature uint64

	locks *xsync.StripedLock

	storeMu  sync.RWMutex
	accounts map[string]*runtime.Account
	programs map[string]runtime.Program

	stateMu     sync.Mutex
	slot        uint64
	epoch       uint64
	latest      solana.Blockhash
	blockhashes []solana.Blockhash
	signatures  map[solana.Signature]struct{}
}

type Option func(*Bank)

func WithRent(rent system.Rent) Option {
	return func(b *Bank) {
		b.rent = rent
	}
}

func WithLamportsPerSignature(lamports uint64) Option {
	return func(b *Bank) {
		b.lamportsPerSignature = lamports
	}
}

// NewBank returns a Bank hosting the system, token, token-2022 and associated
// token account programs.
func NewBank(opts ...Option) *Bank {
	b := &Bank{
		log:                  logrus.StandardLogger().WithField("type", "solana/runtime/memory"),
		rent:                 system.DefaultRent,
		lamportsPerSignature: DefaultLamportsPerSignature,
		locks:                xsync.NewStripedLock(lockStripes),
		accounts:             make(map[string]*runtime.Account),
		programs:             make(map[string]runtime.Program),
		signatures:           make(map[solana.Signature]struct{}),
	}

	for _, o := range opts {
		o(b)
	}

	b.RegisterProgram(system.ProgramKey[:], builtin.NewSystemProgram())
	b.RegisterProgram(token.ProgramKey, builtin.NewTokenProgram())
	b.RegisterProgram(token2022.ProgramKey, builtin.NewToken2022Program())
	b.RegisterProgram(token.AssociatedTokenAccountProgramKey, builtin.NewAssociatedTokenAccountProgram())

	b.SetAccount(system.RentSysVar, &runtime.Account{
		Lamports: 1,
		Data:     b.rent.Marshal(),
		Owner:    system.SysvarOwner,
	})

	b.NewBlockhash()

	return b
}

// RegisterProgram deploys program at id.
func (b *Bank) RegisterProgram(id ed25519.PublicKey, program runtime.Program) {
	b.storeMu.Lock()
	defer b.storeMu.Unlock()

	b.programs[string(id)] = program
	b.accounts[string(id)] = &runtime.Account{
		Lamports:   1,
		Owner:      NativeLoader,
		Executable: true,
	}
}

// SetAccount overwrites the state at address. A zero lamport account is
// removed.
func (b *Bank) SetAccount(address ed25519.PublicKey, account *runtime.Account) {
	unlock := b.locks.LockAll([][]byte{address}, nil)
	defer unlock()

	b.storeMu.Lock()
	defer b.storeMu.Unlock()

	if account == nil || account.Lamports == 0 {
		delete(b.accounts, string(address))
		return
	}
	b.accounts[string(address)] = account.Clone()
}

// GetAccount returns a copy of the state at address.
func (b *Bank) GetAccount(address ed25519.PublicKey) (*runtime.Account, bool) {
	b.storeMu.RLock()
	defer b.storeMu.RUnlock()

	account, ok := b.accounts[string(address)]
	if !ok {
		return nil, false
	}
	return account.Clone(), true
}

// Airdrop credits lamports to address, creating it as a system account if
// needed.
func (b *Bank) Airdrop(address ed25519.PublicKey, lamports uint64) {
	unlock := b.locks.LockAll([][]byte{address}, nil)
	defer unlock()

	b.storeMu.Lock()
	defer b.storeMu.Unlock()

	account, ok := b.accounts[string(address)]
	if !ok {
		account = &runtime.Account{}
		b.accounts[string(address)] = account
	}
	account.Lamports += lamports
}

func (b *Bank) SetEpoch(epoch uint64) {
	b.stateMu.Lock()
	defer b.stateMu.Unlock()

	b.epoch = epoch
}

func (b *Bank) Epoch() uint64 {
	b.stateMu.Lock()
	defer b.stateMu.Unlock()

	return b.epoch
}

func (b *Bank) Rent() system.Rent {
	return b.rent
}

// NewBlockhash rotates the latest blockhash. Only the most recent
// maxRecentBlockhashes remain valid.
func (b *Bank) NewBlockhash() solana.Blockhash {
	var hash solana.Blockhash
	if _, err := rand.Read(hash[:]); err != nil {
		panic(err)
	}

	b.stateMu.Lock()
	defer b.stateMu.Unlock()

	b.latest = hash
	b.blockhashes = append(b.blockhashes, hash)
	if len(b.blockhashes) > maxRecentBlockhashes {
		b.blockhashes = b.blockhashes[len(b.blockhashes)-maxRecentBlockhashes:]
	}
	return hash
}

// GetAccountInfo implements solana.Client.GetAccountInfo. The commitment is
// ignored; committed state is final.
func (b *Bank) GetAccountInfo(address ed25519.PublicKey, _ solana.Commitment) (solana.AccountInfo, error) {
	account, ok := b.GetAccount(address)
	if !ok {
		return solana.AccountInfo{}, solana.ErrNoAccountInfo
	}
	return account.Info(), nil
}

// GetMultipleAccounts implements solana.Client.GetMultipleAccounts. The
// accounts and the slot are read from one committed state.
func (b *Bank) GetMultipleAccounts(addresses []ed25519.PublicKey, _ solana.Commitment) (uint64, []*solana.AccountInfo, error) {
	b.storeMu.RLock()
	defer b.storeMu.RUnlock()

	infos := make([]*solana.AccountInfo, len(addresses))
	for i, address := range addresses {
		if account, ok := b.accounts[string(address)]; ok {
			info := account.Info()
			infos[i] = &info
		}
	}

	b.stateMu.Lock()
	slot := b.slot
	b.stateMu.Unlock()

	return slot, infos, nil
}

// GetBalance implements solana.Client.GetBalance.
func (b *Bank) GetBalance(address ed25519.PublicKey) (uint64, error) {
	account, ok := b.GetAccount(address)
	if !ok {
		return 0, solana.ErrNoBalance
	}
	return account.Lamports, nil
}

// GetSlot implements solana.Client.GetSlot.
func (b *Bank) GetSlot(_ solana.Commitment) (uint64, error) {
	b.stateMu.Lock()
	defer b.stateMu.Unlock()

	return b.slot, nil
}

// GetLatestBlockhash implements solana.Client.GetLatestBlockhash.
func (b *Bank) GetLatestBlockhash() (solana.Blockhash, error) {
	b.stateMu.Lock()
	defer b.stateMu.Unlock()

	return b.latest, nil
}

// GetMinimumBalanceForRentExemption implements
// solana.Client.GetMinimumBalanceForRentExemption.
func (b *Bank) GetMinimumBalanceForRentExemption(size uint64) (uint64, error) {
	return b.rent.MinimumBalance(size), nil
}

// SubmitTransaction executes txn and commits its effects if every
// instruction succeeds. Failures are returned as a *solana.TransactionError.
func (b *Bank) SubmitTransaction(txn solana.Transaction, _ solana.Commitment) (solana.Signature, error) {
	var sig solana.Signature
	if len(txn.Signatures) > 0 {
		sig = txn.Signatures[0]
	}

	log := b.log.WithFields(logrus.Fields{
		"method":    "SubmitTransaction",
		"signature": base58.Encode(sig[:]),
	})

	if err := b.sanitize(txn); err != nil {
		return sig, err
	}
	if err := txn.VerifySignatures(); err != nil {
		log.WithError(err).Debug("signature verification failed")
		return sig, solana.NewTransactionError(solana.TransactionErrorSignatureFailure)
	}
	if err := b.reserveSignature(txn); err != nil {
		return sig, err
	}

	writable, readonly := lockKeys(txn.Message)
	unlock := b.locks.LockAll(writable, readonly)
	defer unlock()

	if err := b.chargeFee(txn); err != nil {
		b.releaseSignature(sig)
		return sig, err
	}

	working, err := b.load(txn.Message)
	if err != nil {
		return sig, err
	}

	e := &executor{
		bank:     b,
		accounts: working,
		epoch:    b.Epoch(),
		log:      log,
	}
	for i := range txn.Message.Instructions {
		if err := e.processTopLevel(txn.Message, i); err != nil {
			normalized := runtime.Normalize(err)
			log.WithError(normalized).WithField("instruction", i).Debug("transaction failed")

			txErr, parseErr := solana.TransactionErrorFromInstructionError(solana.NewInstructionError(i, normalized))
			if parseErr != nil {
				return sig, errors.Wrap(parseErr, "failed to build transaction error")
			}
			return sig, txErr
		}
	}

	b.commit(txn.Message, working)
	log.Debug("transaction committed")

	return sig, nil
}

func (b *Bank) sanitize(txn solana.Transaction) error {
	m := txn.Message
	if len(txn.Signatures) == 0 || len(m.Accounts) == 0 {
		return solana.NewTransactionError(solana.TransactionErrorSanitizeFailure)
	}
	if int(m.Header.NumSignatures) != len(txn.Signatures) || int(m.Header.NumSignatures) > len(m.Accounts) {
		return solana.NewTransactionError(solana.TransactionErrorSanitizeFailure)
	}
	if m.Header.NumReadonlySigned >= m.Header.NumSignatures {
		// The fee payer can't be readonly.
		return solana.NewTransactionError(solana.TransactionErrorSanitizeFailure)
	}

	for _, ix := range m.Instructions {
		if int(ix.ProgramIndex) >= len(m.Accounts) || ix.ProgramIndex == 0 {
			return solana.NewTransactionError(solana.TransactionErrorSanitizeFailure)
		}
		for _, index := range ix.Accounts {
			if int(index) >= len(m.Accounts) {
				return solana.NewTransactionError(solana.TransactionErrorSanitizeFailure)
			}
		}
	}

	seen := make(map[string]struct{}, len(m.Accounts))
	for _, key := range m.Accounts {
		if _, ok := seen[string(key)]; ok {
			return solana.NewTransactionError(solana.TransactionErrorAccountLoadedTwice)
		}
		seen[string(key)] = struct{}{}
	}

	return nil
}

func (b *Bank) reserveSignature(txn solana.Transaction) error {
	b.stateMu.Lock()
	defer b.stateMu.Unlock()

	var found bool
	for _, hash := range b.blockhashes {
		if hash == txn.Message.RecentBlockhash {
			found = true
			break
		}
	}
	if !found {
		return solana.NewTransactionError(solana.TransactionErrorBlockhashNotFound)
	}

	sig := txn.Signatures[0]
	if _, ok := b.signatures[sig]; ok {
		return solana.NewTransactionError(solana.TransactionErrorDuplicateSignature)
	}
	b.signatures[sig] = struct{}{}

	return nil
}

func (b *Bank) releaseSignature(sig solana.Signature) {
	b.stateMu.Lock()
	defer b.stateMu.Unlock()

	delete(b.signatures, sig)
}

func (b *Bank) chargeFee(txn solana.Transaction) error {
	fee := b.lamportsPerSignature * uint64(len(txn.Signatures))

	b.storeMu.Lock()
	defer b.storeMu.Unlock()

	payer, ok := b.accounts[string(txn.Message.FeePayer())]
	if !ok {
		return solana.NewTransactionError(solana.TransactionErrorAccountNotFound)
	}
	if payer.Lamports < fee {
		return solana.NewTransactionError(solana.TransactionErrorInsufficientFundsForFee)
	}

	payer.Lamports -= fee
	if payer.Lamports == 0 {
		delete(b.accounts, string(txn.Message.FeePayer()))
	}
	return nil
}

// load copies every account the message references into a working set.
// Accounts that don't exist are represented as empty system accounts.
func (b *Bank) load(m solana.Message) (map[string]*runtime.Account, error) {
	b.storeMu.RLock()
	defer b.storeMu.RUnlock()

	working := make(map[string]*runtime.Account, len(m.Accounts))
	for _, key := range m.Accounts {
		if account, ok := b.accounts[string(key)]; ok {
			working[string(key)] = account.Clone()
		} else {
			working[string(key)] = &runtime.Account{}
		}
	}

	for _, ix := range m.Instructions {
		if _, ok := b.programs[string(m.Accounts[ix.ProgramIndex])]; !ok {
			return nil, solana.NewTransactionError(solana.TransactionErrorProgramAccountNotFound)
		}
	}

	return working, nil
}

func (b *Bank) commit(m solana.Message, working map[string]*runtime.Account) {
	b.storeMu.Lock()
	for i, key := range m.Accounts {
		if !m.IsWritable(i) {
			continue
		}

		account := working[string(key)]
		if account.Lamports == 0 {
			delete(b.accounts, string(key))
		} else {
			b.accounts[string(key)] = account
		}
	}

	// Bumped under storeMu so readers never pair a slot with another state
	b.stateMu.Lock()
	b.slot++
	b.stateMu.Unlock()

	b.storeMu.Unlock()
}

func (b *Bank) program(id ed25519.PublicKey) (runtime.Program, bool) {
	b.storeMu.RLock()
	defer b.storeMu.RUnlock()

	program, ok := b.programs[string(id)]
	return program, ok
}

func lockKeys(m solana.Message) (writable, readonly [][]byte) {
	for i, key := range m.Accounts {
		if m.IsWritable(i) {
			writable = append(writable, key)
		} else {
			readonly = append(readonly, key)
		}
	}
	return writable, readonly
}
