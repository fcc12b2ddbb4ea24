package amm

import (
	"math/big"
	"strings"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// Pool holds the reserves and share supply of one constant-product pair. The
// token symbols are stored in canonical order (Token0 < Token1) so the pool
// identifier is direction-agnostic.
type Pool struct {
	ID       [32]byte
	Token0   string
	Token1   string
	Reserve0 *big.Int
	Reserve1 *big.Int
	LPSupply *big.Int
}

// Clone returns a deep copy of the pool record.
func (p *Pool) Clone() *Pool {
	if p == nil {
		return nil
	}
	clone := *p
	clone.Reserve0 = cloneBigInt(p.Reserve0)
	clone.Reserve1 = cloneBigInt(p.Reserve1)
	clone.LPSupply = cloneBigInt(p.LPSupply)
	return &clone
}

// SortTokens returns the pair in canonical order and whether the input order
// was already canonical.
func SortTokens(tokenA, tokenB string) (string, string, bool) {
	if tokenA < tokenB {
		return tokenA, tokenB, true
	}
	return tokenB, tokenA, false
}

// PoolID derives the deterministic pool identifier for an unordered token
// pair. Symbols are canonicalised to uppercase before sorting so (A,B) and
// (B,A) in any casing resolve to the same identifier.
func PoolID(tokenA, tokenB string) [32]byte {
	token0, token1, _ := SortTokens(
		strings.ToUpper(strings.TrimSpace(tokenA)),
		strings.ToUpper(strings.TrimSpace(tokenB)),
	)
	return ethcrypto.Keccak256Hash([]byte(token0), []byte("/"), []byte(token1))
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
