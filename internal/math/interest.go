// internal/math/interest.go
package math

import "math/big"

// The global debt index accumulates rate-bps-seconds: every accrual adds
// elapsedSeconds * rateBps. Interest owed on a principal is the index delta
// since the borrower's snapshot, normalized by InterestIndexScale so that a
// rate of rateBps behaves as a simple per-annum rate.

// AdvanceInterestIndex returns index + elapsedSeconds * rateBps.
func AdvanceInterestIndex(index *big.Int, rateBps, elapsedSeconds int64) *big.Int {
	if elapsedSeconds <= 0 || rateBps <= 0 {
		return new(big.Int).Set(index)
	}
	delta := new(big.Int).Mul(big.NewInt(elapsedSeconds), big.NewInt(rateBps))
	return delta.Add(delta, index)
}

// InterestOwed computes principal * (currentIndex - snapshotIndex) / scale.
// Truncates toward zero, so dust interest below one base unit is forgiven.
func InterestOwed(principal, currentIndex, snapshotIndex *big.Int) *big.Int {
	if principal.Sign() == 0 {
		return new(big.Int)
	}
	delta := new(big.Int).Sub(currentIndex, snapshotIndex)
	if delta.Sign() <= 0 {
		return new(big.Int)
	}
	return MulDiv(principal, delta, InterestIndexScale)
}
