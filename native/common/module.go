package common

import ethcrypto "github.com/ethereum/go-ethereum/crypto"

// ModuleAddress derives the deterministic holding address for a native module
// vault. Module vaults have no key material; funds held there can only move
// through the owning engine's operations.
func ModuleAddress(name string) [20]byte {
	hash := ethcrypto.Keccak256([]byte("module/"), []byte(name))
	var addr [20]byte
	copy(addr[:], hash[12:])
	return addr
}
