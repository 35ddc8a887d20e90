package token2022

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/code-payments/token-wrapper/pkg/solana/token"
)

// AccountType disambiguates mints from accounts once extensions are present.
type AccountType byte

const (
	AccountTypeUninitialized AccountType = iota
	AccountTypeMint
	AccountTypeAccount
)

// ExtensionType is the TLV type tag of an extension.
//
// Reference: https://github.com/solana-labs/solana-program-library/blob/token-2022-v1.0.0/token/program-2022/src/extension/mod.rs#L571
type ExtensionType uint16

const (
	ExtensionTypeUninitialized ExtensionType = iota
	ExtensionTypeTransferFeeConfig
	ExtensionTypeTransferFeeAmount
	ExtensionTypeMintCloseAuthority
	ExtensionTypeConfidentialTransferMint
	ExtensionTypeConfidentialTransferAccount
	ExtensionTypeDefaultAccountState
	ExtensionTypeImmutableOwner
	ExtensionTypeMemoTransfer
	ExtensionTypeNonTransferable
	ExtensionTypeInterestBearingConfig
	ExtensionTypeCpiGuard
	ExtensionTypePermanentDelegate
	ExtensionTypeNonTransferableAccount
	ExtensionTypeTransferHook
	ExtensionTypeTransferHookAccount
)

const (
	// BaseAccountSize is the offset of the account type byte. Mints are padded
	// up to it so that the two layouts can't be confused.
	BaseAccountSize = token.AccountSize

	accountTypeSize = 1
	tlvHeaderSize   = 2 + 2

	// multisigSize collides with a valid extended account length, which is
	// bumped by the size of an extension type to stay distinguishable.
	multisigSize = 355
)

var (
	ErrInvalidAccountData    = errors.New("invalid token-2022 account data")
	ErrInvalidMintData       = errors.New("invalid token-2022 mint data")
	ErrUnsupportedExtension  = errors.New("unsupported extension type")
	ErrExtensionNotFound     = errors.New("extension not found")
	ErrInsufficientSpace     = errors.New("insufficient space for extensions")
	ErrAccountTypeMismatch   = errors.New("unexpected account type")
)

// extensionSizes lists the fixed value sizes of the extensions that can be
// sized up front. Confidential transfer extensions are not supported.
var extensionSizes = map[ExtensionType]int{
	ExtensionTypeTransferFeeConfig:      TransferFeeConfigSize,
	ExtensionTypeTransferFeeAmount:      TransferFeeAmountSize,
	ExtensionTypeMintCloseAuthority:     32,
	ExtensionTypeDefaultAccountState:    1,
	ExtensionTypeImmutableOwner:         0,
	ExtensionTypeMemoTransfer:           1,
	ExtensionTypeNonTransferable:        0,
	ExtensionTypeInterestBearingConfig:  52,
	ExtensionTypeCpiGuard:               1,
	ExtensionTypePermanentDelegate:      32,
	ExtensionTypeNonTransferableAccount: 0,
	ExtensionTypeTransferHook:           64,
	ExtensionTypeTransferHookAccount:    1,
}

// Size returns the length of the extension value.
func (t ExtensionType) Size() (int, error) {
	size, ok := extensionSizes[t]
	if !ok {
		return 0, ErrUnsupportedExtension
	}
	return size, nil
}

// RequiredAccountExtensions returns the extensions every account of a mint
// carrying t must be initialized with.
func (t ExtensionType) RequiredAccountExtensions() []ExtensionType {
	switch t {
	case ExtensionTypeTransferFeeConfig:
		return []ExtensionType{ExtensionTypeTransferFeeAmount}
	case ExtensionTypeNonTransferable:
		return []ExtensionType{ExtensionTypeNonTransferableAccount, ExtensionTypeImmutableOwner}
	case ExtensionTypeTransferHook:
		return []ExtensionType{ExtensionTypeTransferHookAccount}
	default:
		return nil
	}
}

// Extension is a single TLV entry.
type Extension struct {
	Type  ExtensionType
	Value []byte
}

// Extensions is an ordered TLV list.
type Extensions []Extension

func (e Extensions) Types() []ExtensionType {
	types := make([]ExtensionType, len(e))
	for i, ext := range e {
		types[i] = ext.Type
	}
	return types
}

func (e Extensions) Get(t ExtensionType) ([]byte, bool) {
	for _, ext := range e {
		if ext.Type == t {
			return ext.Value, true
		}
	}
	return nil, false
}

func (e Extensions) Has(t ExtensionType) bool {
	_, ok := e.Get(t)
	return ok
}

// Set replaces the value of t, or appends it if it is not present.
func (e *Extensions) Set(t ExtensionType, value []byte) {
	for i, ext := range *e {
		if ext.Type == t {
			(*e)[i].Value = value
			return
		}
	}
	*e = append(*e, Extension{Type: t, Value: value})
}

func (e Extensions) size() int {
	var size int
	for _, ext := range e {
		size += tlvHeaderSize + len(ext.Value)
	}
	return size
}

func (e Extensions) marshalInto(dst []byte) {
	var offset int
	for _, ext := range e {
		binary.LittleEndian.PutUint16(dst[offset:], uint16(ext.Type))
		binary.LittleEndian.PutUint16(dst[offset+2:], uint16(len(ext.Value)))
		copy(dst[offset+tlvHeaderSize:], ext.Value)
		offset += tlvHeaderSize + len(ext.Value)
	}
}

// unmarshalExtensions reads TLV entries until the data runs out or an
// uninitialized header is found.
func unmarshalExtensions(b []byte) (Extensions, error) {
	var extensions Extensions
	for len(b) >= tlvHeaderSize {
		t := ExtensionType(binary.LittleEndian.Uint16(b))
		if t == ExtensionTypeUninitialized {
			break
		}

		length := int(binary.LittleEndian.Uint16(b[2:]))
		if len(b) < tlvHeaderSize+length {
			return nil, ErrInvalidAccountData
		}
		if extensions.Has(t) {
			return nil, ErrInvalidAccountData
		}

		value := make([]byte, length)
		copy(value, b[tlvHeaderSize:])
		extensions = append(extensions, Extension{Type: t, Value: value})

		b = b[tlvHeaderSize+length:]
	}
	return extensions, nil
}

// MintWithExtensions is a Token-2022 mint. Data that is exactly
// token.MintSize long has no extensions.
type MintWithExtensions struct {
	Base        token.Mint
	AccountType AccountType
	Extensions  Extensions
}

func (m *MintWithExtensions) Unmarshal(b []byte) error {
	if len(b) == token.MintSize {
		if !m.Base.Unmarshal(b) {
			return ErrInvalidMintData
		}
		m.AccountType = AccountTypeUninitialized
		m.Extensions = nil
		return nil
	}

	if len(b) <= BaseAccountSize {
		return ErrInvalidMintData
	}
	for _, v := range b[token.MintSize:BaseAccountSize] {
		if v != 0 {
			return ErrInvalidMintData
		}
	}

	accountType := AccountType(b[BaseAccountSize])
	if accountType != AccountTypeMint && accountType != AccountTypeUninitialized {
		return ErrAccountTypeMismatch
	}

	extensions, err := unmarshalExtensions(b[BaseAccountSize+accountTypeSize:])
	if err != nil {
		return ErrInvalidMintData
	}

	if !m.Base.Unmarshal(b[:token.MintSize]) {
		return ErrInvalidMintData
	}
	m.AccountType = accountType
	m.Extensions = extensions
	return nil
}

// Marshal encodes the mint at its minimum length.
func (m *MintWithExtensions) Marshal() []byte {
	if len(m.Extensions) == 0 && m.AccountType == AccountTypeUninitialized {
		return m.Base.Marshal()
	}

	b := make([]byte, extendedLen(m.Extensions.size()))
	_ = m.MarshalInto(b)
	return b
}

// MarshalInto encodes the mint into an existing account buffer. Unused
// trailing space is zeroed.
func (m *MintWithExtensions) MarshalInto(dst []byte) error {
	if len(dst) == token.MintSize {
		if len(m.Extensions) > 0 {
			return ErrInsufficientSpace
		}
		copy(dst, m.Base.Marshal())
		return nil
	}

	if len(dst) < BaseAccountSize+accountTypeSize+m.Extensions.size() {
		return ErrInsufficientSpace
	}

	for i := range dst {
		dst[i] = 0
	}
	copy(dst, m.Base.Marshal())
	dst[BaseAccountSize] = byte(m.AccountType)
	m.Extensions.marshalInto(dst[BaseAccountSize+accountTypeSize:])
	return nil
}

// TransferFeeConfig returns ErrExtensionNotFound when the mint carries no fee.
func (m *MintWithExtensions) TransferFeeConfig() (*TransferFeeConfig, error) {
	value, ok := m.Extensions.Get(ExtensionTypeTransferFeeConfig)
	if !ok {
		return nil, ErrExtensionNotFound
	}

	var config TransferFeeConfig
	if err := config.Unmarshal(value); err != nil {
		return nil, err
	}
	return &config, nil
}

func (m *MintWithExtensions) SetTransferFeeConfig(config *TransferFeeConfig) {
	m.Extensions.Set(ExtensionTypeTransferFeeConfig, config.Marshal())
}

// AccountWithExtensions is a Token-2022 token account.
type AccountWithExtensions struct {
	Base        token.Account
	AccountType AccountType
	Extensions  Extensions
}

func (a *AccountWithExtensions) Unmarshal(b []byte) error {
	if len(b) < BaseAccountSize {
		return ErrInvalidAccountData
	}

	var accountType AccountType
	var extensions Extensions
	if len(b) > BaseAccountSize {
		accountType = AccountType(b[BaseAccountSize])
		if accountType != AccountTypeAccount && accountType != AccountTypeUninitialized {
			return ErrAccountTypeMismatch
		}

		var err error
		extensions, err = unmarshalExtensions(b[BaseAccountSize+accountTypeSize:])
		if err != nil {
			return err
		}
	}

	if !a.Base.Unmarshal(b[:BaseAccountSize]) {
		return ErrInvalidAccountData
	}
	a.AccountType = accountType
	a.Extensions = extensions
	return nil
}

func (a *AccountWithExtensions) Marshal() []byte {
	if len(a.Extensions) == 0 && a.AccountType == AccountTypeUninitialized {
		return a.Base.Marshal()
	}

	b := make([]byte, extendedLen(a.Extensions.size()))
	_ = a.MarshalInto(b)
	return b
}

func (a *AccountWithExtensions) MarshalInto(dst []byte) error {
	if len(dst) == BaseAccountSize {
		if len(a.Extensions) > 0 {
			return ErrInsufficientSpace
		}
		copy(dst, a.Base.Marshal())
		return nil
	}

	if len(dst) < BaseAccountSize+accountTypeSize+a.Extensions.size() {
		return ErrInsufficientSpace
	}

	for i := range dst {
		dst[i] = 0
	}
	copy(dst, a.Base.Marshal())
	dst[BaseAccountSize] = byte(a.AccountType)
	a.Extensions.marshalInto(dst[BaseAccountSize+accountTypeSize:])
	return nil
}

func (a *AccountWithExtensions) HasImmutableOwner() bool {
	return a.Extensions.Has(ExtensionTypeImmutableOwner)
}

// TransferFeeAmount returns ErrExtensionNotFound when the account doesn't
// track withheld fees.
func (a *AccountWithExtensions) TransferFeeAmount() (*TransferFeeAmount, error) {
	value, ok := a.Extensions.Get(ExtensionTypeTransferFeeAmount)
	if !ok {
		return nil, ErrExtensionNotFound
	}

	var amount TransferFeeAmount
	if err := amount.Unmarshal(value); err != nil {
		return nil, err
	}
	return &amount, nil
}

func (a *AccountWithExtensions) SetTransferFeeAmount(amount *TransferFeeAmount) {
	a.Extensions.Set(ExtensionTypeTransferFeeAmount, amount.Marshal())
}

// GetAccountLen returns the size of a token account for mintData that carries
// the provided extensions in addition to the ones the mint requires.
//
// Reference: https://github.com/solana-labs/solana-program-library/blob/associated-token-account-v2.3.0/associated-token-account/program/src/tools/account.rs#L84
func GetAccountLen(mintData []byte, extensions ...ExtensionType) (int, error) {
	var mint MintWithExtensions
	if err := mint.Unmarshal(mintData); err != nil {
		return 0, err
	}

	var required []ExtensionType
	for _, t := range mint.Extensions.Types() {
		required = appendUnique(required, t.RequiredAccountExtensions()...)
	}
	required = appendUnique(required, extensions...)

	return CalculateAccountLen(required...)
}

// CalculateAccountLen returns the size of an account holding exactly the
// provided extensions.
//
// Reference: https://github.com/solana-labs/solana-program-library/blob/token-2022-v1.0.0/token/program-2022/src/extension/mod.rs#L780
func CalculateAccountLen(extensions ...ExtensionType) (int, error) {
	if len(extensions) == 0 {
		return BaseAccountSize, nil
	}
	return calculateExtendedLen(extensions)
}

// CalculateMintLen returns the size of a mint holding exactly the provided
// extensions.
func CalculateMintLen(extensions ...ExtensionType) (int, error) {
	if len(extensions) == 0 {
		return token.MintSize, nil
	}
	return calculateExtendedLen(extensions)
}

func calculateExtendedLen(extensions []ExtensionType) (int, error) {
	var size int
	for _, t := range appendUnique(nil, extensions...) {
		valueSize, err := t.Size()
		if err != nil {
			return 0, err
		}
		size += tlvHeaderSize + valueSize
	}
	return extendedLen(size), nil
}

func extendedLen(extensionsSize int) int {
	total := BaseAccountSize + accountTypeSize + extensionsSize
	if total == multisigSize {
		total += 2
	}
	return total
}

func appendUnique(dst []ExtensionType, types ...ExtensionType) []ExtensionType {
	for _, t := range types {
		var found bool
		for _, existing := range dst {
			if existing == t {
				found = true
				break
			}
		}
		if !found {
			dst = append(dst, t)
		}
	}
	return dst
}
