package amm

import (
	"github.com/pkg/errors"
	"lukechampine.com/uint128"
)

// SwapQuote is the outcome of trading against a constant-product curve
type SwapQuote struct {
	// Deposit is the amount the trader pays into the input vault. The fee
	// stays in the pool, so this is the full input amount.
	Deposit uint64
	// DepositAfterFee is the portion of the deposit that moves the curve
	DepositAfterFee uint64
	// Withdraw is the amount the trader receives from the output vault
	Withdraw uint64
}

// QuoteSwap prices amountIn of the input asset against the pool's reserves,
// preserving reserveIn * reserveOut after the fee is deducted from the input.
func QuoteSwap(reserveIn, reserveOut, amountIn uint64, feeBps uint16, minOut uint64) (*SwapQuote, error) {
	if reserveIn == 0 || reserveOut == 0 {
		return nil, errors.Wrap(ErrArithmeticFailure, "pool has an empty reserve")
	}
	if feeBps >= MaxFeeBps {
		return nil, errors.Wrapf(ErrInvalidArgument, "fee of %d bps exceeds maximum", feeBps)
	}

	afterFee := uint128.From64(amountIn).Mul64(uint64(MaxFeeBps - feeBps)).Div64(MaxFeeBps)
	if afterFee.IsZero() {
		return nil, errors.Wrap(ErrInvalidArgument, "input amount is consumed by the fee")
	}

	numerator := uint128.From64(reserveOut).Mul(afterFee)
	denominator := uint128.From64(reserveIn).Add(afterFee)
	out := numerator.Div(denominator)
	if out.IsZero() {
		return nil, errors.Wrap(ErrInvalidArgument, "output amount rounds to zero")
	}

	quote := &SwapQuote{
		Deposit:         amountIn,
		DepositAfterFee: afterFee.Lo,
		Withdraw:        out.Lo,
	}

	if quote.Withdraw < minOut {
		return nil, errors.Wrapf(ErrSlippageViolation, "output of %d is below minimum of %d", quote.Withdraw, minOut)
	}
	return quote, nil
}

// WithdrawQuote is the share of each reserve paid out for burned LP tokens
type WithdrawQuote struct {
	X uint64
	Y uint64
}

// QuoteWithdraw computes the reserves returned for burning amount LP tokens
// out of supply. Burning the entire supply drains both reserves exactly.
// Partial withdrawals are priced from the share of liquidity that remains,
// at a precision of six decimals, so rounding favours the withdrawer by at
// most one millionth of each reserve.
func QuoteWithdraw(reserveX, reserveY, supply, amount, minX, minY uint64) (*WithdrawQuote, error) {
	if supply == 0 || amount > supply {
		return nil, errors.Wrapf(ErrArithmeticFailure, "cannot burn %d of %d LP tokens", amount, supply)
	}

	var quote WithdrawQuote
	if amount == supply {
		quote = WithdrawQuote{X: reserveX, Y: reserveY}
	} else {
		remaining := uint128.From64(supply - amount).Mul64(withdrawPrecision).Div64(supply)
		quote = WithdrawQuote{
			X: reserveX - retained(reserveX, remaining),
			Y: reserveY - retained(reserveY, remaining),
		}
	}

	if quote.X < minX || quote.Y < minY {
		return nil, errors.Wrapf(ErrSlippageViolation, "withdrawal of (%d, %d) is below minimum of (%d, %d)", quote.X, quote.Y, minX, minY)
	}
	return &quote, nil
}

// retained is the part of reserve kept by the pool when a share of
// remaining/withdrawPrecision of the liquidity stays behind
func retained(reserve uint64, remaining uint128.Uint128) uint64 {
	return uint128.From64(reserve).Mul(remaining).Div64(withdrawPrecision).Lo
}
