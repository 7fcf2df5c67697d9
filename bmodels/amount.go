package bmodels

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// AmountDecimals is the number of decimal digits in one coin.
const AmountDecimals = 9

const amountScale = 1_000_000_000

// Amount is a quantity of coins in fixed-point representation,
// counted in units of 10^-9 coins.
type Amount uint64

var (
	ErrAmountOverflow  = errors.New("amount overflow")
	ErrAmountUnderflow = errors.New("amount underflow")
)

// AmountFromRaw builds an Amount directly from 10^-9 coin units.
func AmountFromRaw(raw uint64) Amount {
	return Amount(raw)
}

// AmountFromString parses a decimal coin amount such as "123.456",
// with at most nine fractional digits.
func AmountFromString(s string) (Amount, error) {
	intPart, fracPart, _ := strings.Cut(s, ".")

	if intPart == "" {
		return 0, fmt.Errorf("invalid amount %q: missing integer part", s)
	}

	whole, err := strconv.ParseUint(intPart, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}

	var frac uint64
	if fracPart != "" {
		if len(fracPart) > AmountDecimals {
			return 0, fmt.Errorf("invalid amount %q: more than %d fractional digits", s, AmountDecimals)
		}
		frac, err = strconv.ParseUint(fracPart, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid amount %q: %w", s, err)
		}
		for i := len(fracPart); i < AmountDecimals; i++ {
			frac *= 10
		}
	}

	if whole > (^uint64(0)-frac)/amountScale {
		return 0, fmt.Errorf("invalid amount %q: %w", s, ErrAmountOverflow)
	}

	return Amount(whole*amountScale + frac), nil
}

// Raw returns the amount in 10^-9 coin units.
func (a Amount) Raw() uint64 {
	return uint64(a)
}

// CheckedAdd returns a+o, or an error on overflow.
func (a Amount) CheckedAdd(o Amount) (Amount, error) {
	sum := a + o
	if sum < a {
		return 0, ErrAmountOverflow
	}
	return sum, nil
}

// CheckedSub returns a-o, or an error if o exceeds a.
func (a Amount) CheckedSub(o Amount) (Amount, error) {
	if o > a {
		return 0, ErrAmountUnderflow
	}
	return a - o, nil
}

func (a Amount) String() string {
	whole := uint64(a) / amountScale
	frac := uint64(a) % amountScale
	if frac == 0 {
		return strconv.FormatUint(whole, 10)
	}

	fracStr := fmt.Sprintf("%09d", frac)
	fracStr = strings.TrimRight(fracStr, "0")
	return fmt.Sprintf("%d.%s", whole, fracStr)
}
