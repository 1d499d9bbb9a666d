// Package money converts the human-facing decimal strings configuration
// files carry ("order_size: \"100.0\"") into the engine's internal
// fixed-point i64 scale, per SPEC_FULL §6. shopspring/decimal is the
// boundary parser — it appears in the pack (web3guy0-polybot's
// types/Position, Fill) wherever human-entered or API-reported prices
// cross into Go — but nothing past config load ever holds a
// decimal.Decimal: conversion happens once, here, and the rest of the
// engine stays on plain int64/uint64 fixed-point.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/bogengine/mm-core/pkg/fixedpoint"
)

// Scale matches fixedpoint's 1e9 fixed-point scale (spec §4.1).
const Scale = fixedpoint.Scale

// ParseFixed parses a decimal string (e.g. "100.0", "0.0001") into a
// signed fixed-point i64, rejecting values outside the representable
// range the same way fixedpoint.FromF64Checked does.
func ParseFixed(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("money: parse %q: %w", s, err)
	}
	return toFixed(d)
}

// ParseUnsignedFixed parses a non-negative decimal string into a u64
// fixed-point value (order sizes, liquidity floors).
func ParseUnsignedFixed(s string) (uint64, error) {
	v, err := ParseFixed(s)
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, fmt.Errorf("money: %q must not be negative", s)
	}
	return uint64(v), nil
}

func toFixed(d decimal.Decimal) (int64, error) {
	scaled := d.Mul(decimal.New(1, 9))
	if !scaled.IsInteger() {
		scaled = scaled.Truncate(0)
	}
	if !scaled.BigInt().IsInt64() {
		return 0, fmt.Errorf("money: %s out of fixed-point range", d.String())
	}
	return scaled.BigInt().Int64(), nil
}
