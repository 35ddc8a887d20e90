package builtin

import (
	"bytes"
	"crypto/ed25519"

	"github.com/code-payments/token-wrapper/pkg/solana/runtime"
	"github.com/code-payments/token-wrapper/pkg/solana/system"
	"github.com/code-payments/token-wrapper/pkg/solana/token"
	"github.com/code-payments/token-wrapper/pkg/solana/token2022"
)

// Token implements the base token instruction set for one token program.
// With extensions enabled it lays out state the way Token-2022 does and
// supports the transfer fee and immutable owner extensions.
type Token struct {
	program    ed25519.PublicKey
	extensions bool
}

// NewTokenProgram returns the SPL Token program.
func NewTokenProgram() runtime.Program {
	return &Token{program: token.ProgramKey}
}

// NewToken2022Program returns the Token-2022 program.
func NewToken2022Program() runtime.Program {
	return &Token{program: token2022.ProgramKey, extensions: true}
}

func (p *Token) ProcessInstruction(ctx runtime.InvokeContext, accounts []*runtime.AccountInfo, data []byte) error {
	ix, err := token.DecodeInstruction(data)
	if err != nil {
		return token.ErrorInvalidInstruction
	}

	log := ctx.Log().WithField("command", ix.Command)

	switch ix.Command {
	case token.CommandInitializeMint:
		err = p.initializeMint(ctx, accounts, ix, true)
	case token.CommandInitializeMint2:
		err = p.initializeMint(ctx, accounts, ix, false)
	case token.CommandInitializeAccount:
		if len(accounts) < 4 {
			return runtime.ErrNotEnoughAccountKeys
		}
		if !bytes.Equal(accounts[3].Key, system.RentSysVar) {
			return runtime.ErrInvalidArgument
		}
		err = p.initializeAccount(ctx, accounts, accounts[2].Key)
	case token.CommandInitializeAccount3:
		err = p.initializeAccount(ctx, accounts, ix.Owner)
	case token.CommandInitializeImmutableOwner:
		err = p.initializeImmutableOwner(accounts)
	case token.CommandTransfer:
		err = p.transfer(ctx, accounts, ix, false)
	case token.CommandTransferChecked:
		err = p.transfer(ctx, accounts, ix, true)
	case token.CommandMintTo:
		err = p.mintTo(accounts, ix, false)
	case token.CommandMintToChecked:
		err = p.mintTo(accounts, ix, true)
	case token.CommandBurn:
		err = p.burn(accounts, ix, false)
	case token.CommandBurnChecked:
		err = p.burn(accounts, ix, true)
	case token.CommandFreezeAccount:
		err = p.setFrozen(accounts, true)
	case token.CommandThawAccount:
		err = p.setFrozen(accounts, false)
	case token2022.CommandTransferFeeExtension:
		err = p.transferFeeExtension(ctx, accounts, ix.Payload)
	default:
		return token.ErrorInvalidInstruction
	}

	if err != nil {
		log.WithError(err).Debug("token instruction failed")
	}
	return err
}

func (p *Token) initializeMint(ctx runtime.InvokeContext, accounts []*runtime.AccountInfo, ix *token.DecodedInstruction, withRent bool) error {
	if len(accounts) < 1 || (withRent && len(accounts) < 2) {
		return runtime.ErrNotEnoughAccountKeys
	}
	if withRent && !bytes.Equal(accounts[1].Key, system.RentSysVar) {
		return runtime.ErrInvalidArgument
	}

	info := accounts[0]
	mint, err := p.loadMint(info)
	if err != nil {
		return err
	}
	if mint.Base.IsInitialized {
		return token.ErrorAlreadyInUse
	}
	if !ctx.Rent().IsExempt(info.Lamports, uint64(len(info.Data))) {
		return token.ErrorNotRentExempt
	}

	mint.Base = token.Mint{
		MintAuthority:   ix.MintAuthority,
		Decimals:        ix.Decimals,
		IsInitialized:   true,
		FreezeAuthority: ix.FreezeAuthority,
	}
	if len(info.Data) > token.MintSize {
		mint.AccountType = token2022.AccountTypeMint
	}

	return p.storeMint(info, mint)
}

func (p *Token) initializeAccount(ctx runtime.InvokeContext, accounts []*runtime.AccountInfo, owner ed25519.PublicKey) error {
	if len(accounts) < 2 {
		return runtime.ErrNotEnoughAccountKeys
	}
	info, mintInfo := accounts[0], accounts[1]

	account, err := p.loadAccount(info)
	if err != nil {
		return err
	}
	if account.Base.IsInitialized() {
		return token.ErrorAlreadyInUse
	}
	if !ctx.Rent().IsExempt(info.Lamports, uint64(len(info.Data))) {
		return token.ErrorNotRentExempt
	}

	mint, err := p.loadInitializedMint(mintInfo)
	if err != nil {
		return err
	}

	for _, t := range mint.Extensions.Types() {
		for _, required := range t.RequiredAccountExtensions() {
			if account.Extensions.Has(required) {
				continue
			}
			size, err := required.Size()
			if err != nil {
				return runtime.ErrInvalidAccountData
			}
			account.Extensions.Set(required, make([]byte, size))
		}
	}

	account.Base = token.Account{
		Mint:  cloneKey(mintInfo.Key),
		Owner: cloneKey(owner),
		State: token.AccountStateInitialized,
	}
	if len(info.Data) > token.AccountSize {
		account.AccountType = token2022.AccountTypeAccount
	}

	return p.storeAccount(info, account)
}

func (p *Token) initializeImmutableOwner(accounts []*runtime.AccountInfo) error {
	if !p.extensions {
		return token.ErrorInvalidInstruction
	}
	if len(accounts) < 1 {
		return runtime.ErrNotEnoughAccountKeys
	}
	info := accounts[0]

	account, err := p.loadAccount(info)
	if err != nil {
		return err
	}
	if account.Base.IsInitialized() {
		return token.ErrorAlreadyInUse
	}

	account.Extensions.Set(token2022.ExtensionTypeImmutableOwner, nil)
	return p.storeAccount(info, account)
}

func (p *Token) transfer(ctx runtime.InvokeContext, accounts []*runtime.AccountInfo, ix *token.DecodedInstruction, checked bool) error {
	var sourceInfo, mintInfo, destInfo, authorityInfo *runtime.AccountInfo
	if checked {
		if len(accounts) < 4 {
			return runtime.ErrNotEnoughAccountKeys
		}
		sourceInfo, mintInfo, destInfo, authorityInfo = accounts[0], accounts[1], accounts[2], accounts[3]
	} else {
		if len(accounts) < 3 {
			return runtime.ErrNotEnoughAccountKeys
		}
		sourceInfo, destInfo, authorityInfo = accounts[0], accounts[1], accounts[2]
	}

	source, err := p.loadInitializedAccount(sourceInfo)
	if err != nil {
		return err
	}
	dest, err := p.loadInitializedAccount(destInfo)
	if err != nil {
		return err
	}

	if source.Base.IsFrozen() || dest.Base.IsFrozen() {
		return token.ErrorAccountFrozen
	}
	if source.Base.Amount < ix.Amount {
		return token.ErrorInsufficientFunds
	}
	if !bytes.Equal(source.Base.Mint, dest.Base.Mint) {
		return token.ErrorMintMismatch
	}

	var fee uint64
	if checked {
		if !bytes.Equal(mintInfo.Key, source.Base.Mint) {
			return token.ErrorMintMismatch
		}

		mint, err := p.loadInitializedMint(mintInfo)
		if err != nil {
			return err
		}
		if mint.Base.Decimals != ix.Decimals {
			return token.ErrorMintDecimalsMismatch
		}

		config, err := mint.TransferFeeConfig()
		switch err {
		case nil:
			fee = config.Fee(ctx.Epoch(), ix.Amount)
		case token2022.ErrExtensionNotFound:
		default:
			return runtime.ErrInvalidAccountData
		}
	} else if source.Extensions.Has(token2022.ExtensionTypeTransferFeeAmount) {
		return token2022.ErrorMintRequiredForTransfer
	}

	if err := validateOwner(source.Base.Owner, authorityInfo); err != nil {
		return err
	}

	// A self transfer only runs the checks.
	if bytes.Equal(sourceInfo.Key, destInfo.Key) {
		return nil
	}

	credited := ix.Amount - fee
	if dest.Base.Amount+credited < dest.Base.Amount {
		return token.ErrorOverflow
	}

	source.Base.Amount -= ix.Amount
	dest.Base.Amount += credited

	if fee > 0 {
		withheld, err := dest.TransferFeeAmount()
		if err != nil {
			return runtime.ErrInvalidAccountData
		}
		withheld.WithheldAmount += fee
		dest.SetTransferFeeAmount(withheld)
	}

	if err := p.storeAccount(sourceInfo, source); err != nil {
		return err
	}
	return p.storeAccount(destInfo, dest)
}

func (p *Token) mintTo(accounts []*runtime.AccountInfo, ix *token.DecodedInstruction, checked bool) error {
	if len(accounts) < 3 {
		return runtime.ErrNotEnoughAccountKeys
	}
	mintInfo, destInfo, authorityInfo := accounts[0], accounts[1], accounts[2]

	dest, err := p.loadInitializedAccount(destInfo)
	if err != nil {
		return err
	}
	if dest.Base.IsFrozen() {
		return token.ErrorAccountFrozen
	}
	if !bytes.Equal(dest.Base.Mint, mintInfo.Key) {
		return token.ErrorMintMismatch
	}

	mint, err := p.loadInitializedMint(mintInfo)
	if err != nil {
		return err
	}
	if checked && mint.Base.Decimals != ix.Decimals {
		return token.ErrorMintDecimalsMismatch
	}
	if len(mint.Base.MintAuthority) == 0 {
		return token.ErrorFixedSupply
	}
	if err := validateOwner(mint.Base.MintAuthority, authorityInfo); err != nil {
		return err
	}

	if mint.Base.Supply+ix.Amount < mint.Base.Supply {
		return token.ErrorOverflow
	}

	mint.Base.Supply += ix.Amount
	dest.Base.Amount += ix.Amount

	if err := p.storeAccount(destInfo, dest); err != nil {
		return err
	}
	return p.storeMint(mintInfo, mint)
}

func (p *Token) burn(accounts []*runtime.AccountInfo, ix *token.DecodedInstruction, checked bool) error {
	if len(accounts) < 3 {
		return runtime.ErrNotEnoughAccountKeys
	}
	sourceInfo, mintInfo, authorityInfo := accounts[0], accounts[1], accounts[2]

	source, err := p.loadInitializedAccount(sourceInfo)
	if err != nil {
		return err
	}
	if source.Base.IsFrozen() {
		return token.ErrorAccountFrozen
	}
	if !bytes.Equal(source.Base.Mint, mintInfo.Key) {
		return token.ErrorMintMismatch
	}

	mint, err := p.loadInitializedMint(mintInfo)
	if err != nil {
		return err
	}
	if checked && mint.Base.Decimals != ix.Decimals {
		return token.ErrorMintDecimalsMismatch
	}
	if err := validateOwner(source.Base.Owner, authorityInfo); err != nil {
		return err
	}
	if source.Base.Amount < ix.Amount {
		return token.ErrorInsufficientFunds
	}

	source.Base.Amount -= ix.Amount
	mint.Base.Supply -= ix.Amount

	if err := p.storeAccount(sourceInfo, source); err != nil {
		return err
	}
	return p.storeMint(mintInfo, mint)
}

func (p *Token) setFrozen(accounts []*runtime.AccountInfo, frozen bool) error {
	if len(accounts) < 3 {
		return runtime.ErrNotEnoughAccountKeys
	}
	accountInfo, mintInfo, authorityInfo := accounts[0], accounts[1], accounts[2]

	account, err := p.loadInitializedAccount(accountInfo)
	if err != nil {
		return err
	}
	if account.Base.IsFrozen() == frozen {
		return token.ErrorInvalidState
	}
	if !bytes.Equal(account.Base.Mint, mintInfo.Key) {
		return token.ErrorMintMismatch
	}

	mint, err := p.loadInitializedMint(mintInfo)
	if err != nil {
		return err
	}
	if len(mint.Base.FreezeAuthority) == 0 {
		return token.ErrorMintCannotFreeze
	}
	if err := validateOwner(mint.Base.FreezeAuthority, authorityInfo); err != nil {
		return err
	}

	if frozen {
		account.Base.State = token.AccountStateFrozen
	} else {
		account.Base.State = token.AccountStateInitialized
	}
	return p.storeAccount(accountInfo, account)
}

func (p *Token) transferFeeExtension(ctx runtime.InvokeContext, accounts []*runtime.AccountInfo, payload []byte) error {
	if !p.extensions {
		return token.ErrorInvalidInstruction
	}

	_, args, err := token2022.DecodeTransferFeeInstruction(payload)
	if err != nil {
		return token.ErrorInvalidInstruction
	}
	if len(accounts) < 1 {
		return runtime.ErrNotEnoughAccountKeys
	}
	info := accounts[0]

	mint, err := p.loadMint(info)
	if err != nil {
		return err
	}
	if mint.Base.IsInitialized {
		return token.ErrorAlreadyInUse
	}
	if mint.Extensions.Has(token2022.ExtensionTypeTransferFeeConfig) {
		return token2022.ErrorExtensionAlreadyInitialized
	}
	if args.BasisPoints > token2022.MaxFeeBasisPoints {
		return token2022.ErrorTransferFeeExceedsMaximum
	}

	fee := token2022.TransferFee{
		Epoch:       ctx.Epoch(),
		MaximumFee:  args.MaximumFee,
		BasisPoints: args.BasisPoints,
	}
	mint.SetTransferFeeConfig(&token2022.TransferFeeConfig{
		ConfigAuthority:           args.ConfigAuthority,
		WithdrawWithheldAuthority: args.WithdrawAuthority,
		OlderTransferFee:          fee,
		NewerTransferFee:          fee,
	})

	return p.storeMint(info, mint)
}

func (p *Token) checkOwner(info *runtime.AccountInfo) error {
	if !info.IsOwnedBy(p.program) {
		return runtime.ErrIncorrectProgramID
	}
	return nil
}

// loadMint parses mint state, which may be uninitialized.
func (p *Token) loadMint(info *runtime.AccountInfo) (*token2022.MintWithExtensions, error) {
	if err := p.checkOwner(info); err != nil {
		return nil, err
	}
	if !p.extensions && len(info.Data) != token.MintSize {
		return nil, runtime.ErrInvalidAccountData
	}

	var mint token2022.MintWithExtensions
	if err := mint.Unmarshal(info.Data); err != nil {
		return nil, runtime.ErrInvalidAccountData
	}
	return &mint, nil
}

func (p *Token) loadInitializedMint(info *runtime.AccountInfo) (*token2022.MintWithExtensions, error) {
	if err := p.checkOwner(info); err != nil {
		return nil, err
	}

	mint, err := p.loadMint(info)
	if err != nil {
		return nil, token.ErrorInvalidMint
	}
	if !mint.Base.IsInitialized {
		return nil, token.ErrorInvalidMint
	}
	return mint, nil
}

func (p *Token) storeMint(info *runtime.AccountInfo, mint *token2022.MintWithExtensions) error {
	if err := mint.MarshalInto(info.Data); err != nil {
		return runtime.ErrInvalidAccountData
	}
	return nil
}

// loadAccount parses token account state, which may be uninitialized.
func (p *Token) loadAccount(info *runtime.AccountInfo) (*token2022.AccountWithExtensions, error) {
	if err := p.checkOwner(info); err != nil {
		return nil, err
	}
	if !p.extensions && len(info.Data) != token.AccountSize {
		return nil, runtime.ErrInvalidAccountData
	}

	var account token2022.AccountWithExtensions
	if err := account.Unmarshal(info.Data); err != nil {
		return nil, runtime.ErrInvalidAccountData
	}
	return &account, nil
}

func (p *Token) loadInitializedAccount(info *runtime.AccountInfo) (*token2022.AccountWithExtensions, error) {
	account, err := p.loadAccount(info)
	if err != nil {
		return nil, err
	}
	if !account.Base.IsInitialized() {
		return nil, runtime.ErrUninitializedAccount
	}
	return account, nil
}

func (p *Token) storeAccount(info *runtime.AccountInfo, account *token2022.AccountWithExtensions) error {
	if err := account.MarshalInto(info.Data); err != nil {
		return runtime.ErrInvalidAccountData
	}
	return nil
}

func validateOwner(expected ed25519.PublicKey, authority *runtime.AccountInfo) error {
	if !bytes.Equal(expected, authority.Key) {
		return token.ErrorOwnerMismatch
	}
	if !authority.IsSigner {
		return runtime.ErrMissingRequiredSignature
	}
	return nil
}
