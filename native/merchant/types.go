package merchant

// Record captures a registered merchant and its flat cashback rate.
type Record struct {
	Address      [20]byte
	CashbackBps  uint64
	RegisteredAt uint64
}

// Clone returns a copy of the record.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	clone := *r
	return &clone
}
