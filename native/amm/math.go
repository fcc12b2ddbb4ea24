package amm

import "math/big"

var (
	basisPoints = big.NewInt(10_000)

	// minLiquidityShares is the share floor permanently locked on the first
	// deposit so no one can mint a near-zero share position and capture the
	// pool through a donation.
	minLiquidityShares = big.NewInt(1_000)

	// lockAddress receives the permanently locked minimum-liquidity shares.
	lockAddress = [20]byte{}
)

func sqrtBig(v *big.Int) *big.Int {
	if v == nil || v.Sign() <= 0 {
		return big.NewInt(0)
	}
	return new(big.Int).Sqrt(v)
}

func minBig(a, b *big.Int) *big.Int {
	if a.Cmp(b) <= 0 {
		return a
	}
	return b
}

// mulDiv computes a*b/c with full intermediate precision.
func mulDiv(a, b, c *big.Int) *big.Int {
	if c == nil || c.Sign() == 0 {
		return big.NewInt(0)
	}
	product := new(big.Int).Mul(a, b)
	return product.Quo(product, c)
}

// amountOut prices a swap against the fee-adjusted constant-product formula:
// out = in*(10000-fee)*reserveOut / (reserveIn*10000 + in*(10000-fee)).
func amountOut(amountIn, reserveIn, reserveOut *big.Int, feeBps uint64) *big.Int {
	if amountIn == nil || amountIn.Sign() <= 0 {
		return big.NewInt(0)
	}
	if reserveIn == nil || reserveIn.Sign() <= 0 || reserveOut == nil || reserveOut.Sign() <= 0 {
		return big.NewInt(0)
	}
	feeFactor := new(big.Int).Sub(basisPoints, new(big.Int).SetUint64(feeBps))
	amountInWithFee := new(big.Int).Mul(amountIn, feeFactor)
	numerator := new(big.Int).Mul(amountInWithFee, reserveOut)
	denominator := new(big.Int).Mul(reserveIn, basisPoints)
	denominator.Add(denominator, amountInWithFee)
	return numerator.Quo(numerator, denominator)
}
