// internal/math/bigmath.go
package math

import (
	"math/big"
	"sync"
)

// Precision is the fixed-point scale shared by token amounts, prices and
// reward-per-share accumulators (18 decimals).
const PrecisionDecimals = 18

// BpsDenominator converts basis-point parameters (LTV, thresholds, fees).
const BpsDenominator = 10_000

// SecondsPerYear is the accrual period base for per-annum interest rates.
const SecondsPerYear = 31_536_000

var (
	// Precision = 10^18
	Precision = new(big.Int).Exp(big.NewInt(10), big.NewInt(PrecisionDecimals), nil)

	// InterestIndexScale normalizes elapsed-seconds * rate-bps products:
	// bps denominator * seconds per year.
	InterestIndexScale = big.NewInt(BpsDenominator * SecondsPerYear)

	bpsDenom = big.NewInt(BpsDenominator)
)

// Scratch big.Ints for intermediate products that never escape.
var scratchPool = &sync.Pool{
	New: func() interface{} {
		return new(big.Int)
	},
}

func getScratch() *big.Int {
	return scratchPool.Get().(*big.Int)
}

func putScratch(v *big.Int) {
	v.SetInt64(0)
	scratchPool.Put(v)
}

// MulDiv computes a * b / denom with truncation toward zero.
// Truncation keeps valuations conservative: borrowable amounts and seized
// collateral round against the caller. Panics on zero denom.
func MulDiv(a, b, denom *big.Int) *big.Int {
	if denom.Sign() == 0 {
		panic("math: division by zero")
	}
	product := getScratch()
	product.Mul(a, b)
	result := new(big.Int).Quo(product, denom)
	putScratch(product)
	return result
}

// WadMul computes a * b / 1e18.
func WadMul(a, b *big.Int) *big.Int {
	return MulDiv(a, b, Precision)
}

// WadDiv computes a * 1e18 / b.
func WadDiv(a, b *big.Int) *big.Int {
	return MulDiv(a, Precision, b)
}

// BpsMul computes amount * bps / 10000.
func BpsMul(amount *big.Int, bps int64) *big.Int {
	return MulDiv(amount, big.NewInt(bps), bpsDenom)
}

// ScaleDecimals rescales amount from one decimal precision to another.
func ScaleDecimals(amount *big.Int, fromDecimals, toDecimals uint8) *big.Int {
	if fromDecimals == toDecimals {
		return new(big.Int).Set(amount)
	}
	if toDecimals > fromDecimals {
		factor := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(toDecimals-fromDecimals)), nil)
		return new(big.Int).Mul(amount, factor)
	}
	factor := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(fromDecimals-toDecimals)), nil)
	return new(big.Int).Quo(amount, factor)
}

// Min returns the smaller of a and b as a fresh value.
func Min(a, b *big.Int) *big.Int {
	if a.Cmp(b) <= 0 {
		return new(big.Int).Set(a)
	}
	return new(big.Int).Set(b)
}

// IsZero reports whether v is nil or zero.
func IsZero(v *big.Int) bool {
	return v == nil || v.Sign() == 0
}
