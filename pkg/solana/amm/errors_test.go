package amm

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/amm-program/pkg/solana"
	"github.com/code-payments/amm-program/pkg/solana/token"
)

func TestErrorKey(t *testing.T) {
	for _, tc := range []struct {
		err      error
		expected solana.InstructionErrorKey
	}{
		{ErrMalformedInput, solana.InstructionErrorInvalidInstructionData},
		{ErrNotEnoughAccountKeys, solana.InstructionErrorNotEnoughAccountKeys},
		{ErrMissingRequiredSignature, solana.InstructionErrorMissingRequiredSignature},
		{ErrAccountShapeViolation, solana.InstructionErrorInvalidAccountOwner},
		{ErrAddressMismatch, solana.InstructionErrorInvalidAccountData},
		{ErrStateViolation, solana.InstructionErrorInvalidAccountData},
		{ErrArithmeticFailure, solana.InstructionErrorArithmeticOverflow},
		{ErrSlippageViolation, solana.InstructionErrorInvalidArgument},
		{ErrExpired, solana.InstructionErrorCustom},
		{ErrInvalidArgument, solana.InstructionErrorInvalidArgument},
		{errors.Wrap(errors.Wrap(ErrSlippageViolation, "inner"), "outer"), solana.InstructionErrorInvalidArgument},
		{errors.Wrap(token.ErrorInsufficientFunds, "error depositing x"), solana.InstructionErrorCustom},
		{errors.New("unexpected"), solana.InstructionErrorGenericError},
		{nil, ""},
	} {
		assert.Equal(t, tc.expected, ErrorKey(tc.err), "%v", tc.err)
	}
}

func TestInstructionErrorFor(t *testing.T) {
	expired := InstructionErrorFor(0, errors.Wrap(ErrExpired, "expired at 1, now 2"))
	assert.Equal(t, 0, expired.Index)
	assert.Equal(t, solana.InstructionErrorCustom, expired.ErrorKey())
	require.NotNil(t, expired.CustomError())
	assert.Equal(t, ExpiredErrorCode, *expired.CustomError())

	invoked := InstructionErrorFor(2, errors.Wrap(token.ErrorOwnerMismatch, "error withdrawing y"))
	assert.Equal(t, 2, invoked.Index)
	require.NotNil(t, invoked.CustomError())
	assert.Equal(t, token.ErrorOwnerMismatch, *invoked.CustomError())

	slippage := InstructionErrorFor(1, ErrSlippageViolation)
	assert.Equal(t, 1, slippage.Index)
	assert.Nil(t, slippage.CustomError())
	assert.Equal(t, solana.InstructionErrorInvalidArgument, slippage.ErrorKey())
}
