// Package processor executes token wrapper instructions on a ledger runtime.
package processor

import (
	"github.com/sirupsen/logrus"

	"github.com/code-payments/token-wrapper/pkg/solana"
	"github.com/code-payments/token-wrapper/pkg/solana/runtime"
	"github.com/code-payments/token-wrapper/pkg/solana/tokenwrapper"
)

// Processor is the token wrapper program.
type Processor struct{}

// New returns the token wrapper program. It can be registered under
// tokenwrapper.PROGRAM_ID or any other id, since every address it checks is
// derived from the id it runs as.
func New() *Processor {
	return &Processor{}
}

// ProcessInstruction implements runtime.Program.
func (p *Processor) ProcessInstruction(ctx runtime.InvokeContext, accounts []*runtime.AccountInfo, data []byte) error {
	ix, err := tokenwrapper.DecodeInstruction(data)
	if err != nil {
		return runtime.ErrInvalidInstructionData
	}

	log := ctx.Log().WithField("instruction", ix.Type.String())

	switch ix.Type {
	case tokenwrapper.InstructionTypeInitialize:
		err = p.initialize(ctx, accounts)
	case tokenwrapper.InstructionTypeDepositAndMint:
		log = log.WithFields(logrus.Fields{"amount": ix.Amount, "use_max": ix.UseMax})
		err = p.depositAndMint(ctx, accounts, ix.Amount, ix.UseMax)
	case tokenwrapper.InstructionTypeWithdrawAndBurn:
		log = log.WithFields(logrus.Fields{"amount": ix.Amount, "use_max": ix.UseMax})
		err = p.withdrawAndBurn(ctx, accounts, ix.Amount, ix.UseMax)
	}

	if err != nil {
		if code, ok := err.(solana.CustomError); ok && tokenwrapper.ErrorName(code) != "" {
			log = log.WithField("code", tokenwrapper.ErrorName(code))
		}
		log.WithError(err).Debug("instruction failed")
		return err
	}

	log.Debug("instruction succeeded")
	return nil
}
