package amm

import (
	"github.com/pkg/errors"

	"github.com/code-payments/amm-program/pkg/solana"
)

var (
	ErrMalformedInput           = errors.New("malformed instruction input")
	ErrNotEnoughAccountKeys     = errors.New("not enough account keys")
	ErrMissingRequiredSignature = errors.New("missing required signature")
	ErrAccountShapeViolation    = errors.New("account has an unexpected size or owner")
	ErrAddressMismatch          = errors.New("account does not match its derived address")
	ErrStateViolation           = errors.New("pool is not in the required state")
	ErrArithmeticFailure        = errors.New("arithmetic failure")
	ErrSlippageViolation        = errors.New("slippage tolerance exceeded")
	ErrExpired                  = errors.New("instruction expired")
	ErrInvalidArgument          = errors.New("invalid argument")
)

// ExpiredErrorCode is the custom program error reported for an instruction
// executed after its expiration.
const ExpiredErrorCode = solana.CustomError(0)

var errorKeys = []struct {
	err error
	key solana.InstructionErrorKey
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
}

// ErrorKey returns the ledger error key reported for err. Custom errors raised
// by invoked programs are reported as such; anything else is a generic error.
func ErrorKey(err error) solana.InstructionErrorKey {
	if err == nil {
		return ""
	}

	for _, mapping := range errorKeys {
		if errors.Is(err, mapping.err) {
			return mapping.key
		}
	}

	var custom solana.CustomError
	if errors.As(err, &custom) {
		return solana.InstructionErrorCustom
	}

	return solana.InstructionErrorGenericError
}

// InstructionErrorFor converts err into the InstructionError reported for the
// instruction at index.
func InstructionErrorFor(index int, err error) solana.InstructionError {
	if errors.Is(err, ErrExpired) {
		return solana.InstructionError{Index: index, Err: ExpiredErrorCode}
	}

	var custom solana.CustomError
	if errors.As(err, &custom) {
		return solana.InstructionError{Index: index, Err: custom}
	}

	return solana.NewInstructionError(index, ErrorKey(err))
}
