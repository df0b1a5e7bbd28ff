// Copyright (c) 2024 Neomantra Corp
//
// V3 price encodings: tick is log_1.0001(price) truncated to integer,
// sqrtPriceX96 is sqrt(price) * 2^96. Squaring sqrtPriceX96 needs the
// full integer width (the product is up to 320 bits), so it goes through
// big.Int; the tick exponential fits comfortably in float64.

package uniswapv3

import (
	"fmt"
	"math"
	"math/big"
)

// Tick bounds from the V3 core contracts; a tick outside them cannot
// have come from a real pool.
const (
	MinTick = -887272
	MaxTick = 887272
)

// priceAgreementTolerance bounds the relative disagreement between the
// two price derivations before it is worth logging: the tick is a
// truncated log so the two encodings legitimately differ a little.
const priceAgreementTolerance = 0.01

var q192 = new(big.Float).SetInt(new(big.Int).Lsh(big.NewInt(1), 192))

// TickToPrice converts a tick to the raw token1/token0 price via
// 1.0001^tick = exp(ln(1.0001) * tick).
func TickToPrice(tick int32) (float64, error) {
	if tick < MinTick || tick > MaxTick {
		return 0, fmt.Errorf("tick %d outside [%d, %d]", tick, MinTick, MaxTick)
	}
	return math.Exp(math.Log(1.0001) * float64(tick)), nil
}

// SqrtPriceX96ToPrice converts the X96 square-root encoding to the raw
// token1/token0 price: (sqrtPriceX96)^2 / 2^192. A zero sqrtPriceX96 is
// rejected; it means an uninitialized pool.
func SqrtPriceX96ToPrice(sqrtPriceX96 *big.Int) (float64, error) {
	if sqrtPriceX96 == nil || sqrtPriceX96.Sign() == 0 {
		return 0, fmt.Errorf("sqrtPriceX96 is zero")
	}
	squared := new(big.Int).Mul(sqrtPriceX96, sqrtPriceX96)
	out, _ := new(big.Float).Quo(new(big.Float).SetInt(squared), q192).Float64()
	return out, nil
}

// PricesAgree reports whether the two derivations of the same pool price
// are within the documented 1% tolerance of each other.
func PricesAgree(a, b float64) bool {
	if a == 0 || b == 0 {
		return false
	}
	diff := math.Abs(a-b) / math.Max(a, b)
	return diff <= priceAgreementTolerance
}
