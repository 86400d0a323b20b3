package amm

import (
	"context"
	"crypto/ed25519"
	"time"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/amm-program/pkg/metrics"
	"github.com/code-payments/amm-program/pkg/solana/runtime"
)

const (
	metricsStructName = "amm.Program"

	instructionCountMetricName    = "AmmInstruction"
	instructionDurationMetricName = "AmmInstructionDuration"
	instructionEventName          = "AmmInstructionProcessed"
)

// Program is the AMM program. It implements runtime.Program.
type Program struct {
	log       *logrus.Entry
	programID ed25519.PublicKey
}

// NewProgram returns a Program deployed at the configured address. The
// address is resolved once, at construction.
func NewProgram(configProvider ConfigProvider) (*Program, error) {
	conf := configProvider()

	programID, err := conf.programID.GetSafe(context.Background())
	if err != nil {
		return nil, errors.Wrap(err, "error loading program id")
	}

	return &Program{
		log: logrus.StandardLogger().WithFields(logrus.Fields{
			"type":    "solana/amm",
			"program": base58.Encode(programID),
		}),
		programID: programID,
	}, nil
}

// ID returns the address the program is deployed at
func (p *Program) ID() ed25519.PublicKey {
	return p.programID
}

// Process implements runtime.Program.Process. The leading byte of data
// selects the instruction, the remainder is its payload.
func (p *Program) Process(ctx context.Context, env runtime.Environment, accounts []runtime.AccountInfo, data []byte) error {
	if len(data) == 0 {
		return errors.Wrap(ErrMalformedInput, "missing instruction type")
	}

	instructionType := InstructionType(data[0])
	payload := data[1:]

	tracer := metrics.TraceMethodCall(ctx, metricsStructName, instructionType.String())
	defer tracer.End()

	tracer.AddAttributes(map[string]interface{}{
		"accounts":     len(accounts),
		"payload_size": len(payload),
	})

	log := p.log.WithFields(logrus.Fields{
		"method":      "Process",
		"instruction": instructionType.String(),
	})

	start := time.Now()

	var err error
	switch instructionType {
	case InstructionTypeInitialize:
		err = p.initialize(ctx, env, accounts, payload)
	case InstructionTypeDeposit:
		err = p.deposit(ctx, env, accounts, payload)
	case InstructionTypeWithdraw:
		err = p.withdraw(ctx, env, accounts, payload)
	case InstructionTypeSwap:
		err = p.swap(ctx, env, accounts, payload)
	default:
		err = errors.Wrapf(ErrMalformedInput, "unknown instruction type %d", data[0])
	}

	if err != nil {
		tracer.OnError(err)
		log.WithError(err).WithField("error_key", ErrorKey(err)).Debug("instruction failed")
		return err
	}

	elapsed := time.Since(start)
	metrics.RecordCount(ctx, instructionCountMetricName, 1)
	metrics.RecordDuration(ctx, instructionDurationMetricName, elapsed)
	metrics.RecordEvent(ctx, instructionEventName, map[string]interface{}{
		"instruction": instructionType.String(),
		"program":     base58.Encode(p.programID),
		"duration_ms": elapsed.Milliseconds(),
	})
	return nil
}

func (p *Program) initialize(ctx context.Context, env runtime.Environment, accounts []runtime.AccountInfo, data []byte) error {
	ix, err := p.newInitializeInstruction(accounts, data)
	if err != nil {
		return err
	}
	return p.processInitialize(ctx, env, ix)
}

func (p *Program) deposit(ctx context.Context, env runtime.Environment, accounts []runtime.AccountInfo, data []byte) error {
	ix, err := p.newDepositInstruction(ctx, env, accounts, data)
	if err != nil {
		return err
	}
	return p.processDeposit(ctx, env, ix)
}

func (p *Program) withdraw(ctx context.Context, env runtime.Environment, accounts []runtime.AccountInfo, data []byte) error {
	ix, err := p.newWithdrawInstruction(ctx, env, accounts, data)
	if err != nil {
		return err
	}
	return p.processWithdraw(ctx, env, ix)
}

func (p *Program) swap(ctx context.Context, env runtime.Environment, accounts []runtime.AccountInfo, data []byte) error {
	ix, err := p.newSwapInstruction(ctx, env, accounts, data)
	if err != nil {
		return err
	}
	return p.processSwap(ctx, env, ix)
}
