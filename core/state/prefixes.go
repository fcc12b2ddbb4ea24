package state

import (
	"encoding/binary"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

var (
	accountPrefix   = []byte("account:")
	tokenPrefix     = []byte("token:")
	tokenListKey    = ethcrypto.Keccak256([]byte("token-list"))
	rolePrefix      = []byte("role:")
	allowancePrefix = []byte("allowance:")

	poolPrefix      = []byte("amm/pool:")
	poolListKey     = ethcrypto.Keccak256([]byte("amm/pool-list"))
	lpBalancePrefix = []byte("amm/lp:")

	stakePrefix   = []byte("stake/account:")
	stakeIndexKey = ethcrypto.Keccak256([]byte("stake/index"))

	farmPoolPrefix  = []byte("farm/pool:")
	farmPoolLenKey  = ethcrypto.Keccak256([]byte("farm/pool-count"))
	farmUserPrefix  = []byte("farm/user:")

	loanPrefix      = []byte("loan/record:")
	loanNextIDKey   = ethcrypto.Keccak256([]byte("loan/next-id"))
	loanIndexPrefix = []byte("loan/index:")

	aliasPrefix     = []byte("identity/alias:")
	aliasAddrPrefix = []byte("identity/addr:")
	merchantPrefix  = []byte("merchant:")
	billTypePrefix  = []byte("bills/type:")
	billListKey     = ethcrypto.Keccak256([]byte("bills/type-list"))
)

func prefixedKey(prefix []byte, parts ...[]byte) []byte {
	size := len(prefix)
	for _, part := range parts {
		size += len(part) + 1
	}
	buf := make([]byte, 0, size)
	buf = append(buf, prefix...)
	for i, part := range parts {
		if i > 0 {
			buf = append(buf, ':')
		}
		buf = append(buf, part...)
	}
	return ethcrypto.Keccak256(buf)
}

func uint64Bytes(v uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, v)
	return buf
}
