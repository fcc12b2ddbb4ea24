package stake

import "math/big"

// Position tracks a single staker's balance and the timestamp of its last
// reward settlement. Zero-amount positions persist after a full unstake so
// the settlement clock never regresses.
type Position struct {
	Amount         *big.Int
	LastUpdateTime uint64
}

// Clone returns a deep copy of the position.
func (p *Position) Clone() *Position {
	if p == nil {
		return nil
	}
	clone := *p
	if p.Amount != nil {
		clone.Amount = new(big.Int).Set(p.Amount)
	} else {
		clone.Amount = big.NewInt(0)
	}
	return &clone
}
