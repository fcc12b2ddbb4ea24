package events

import (
	"encoding/hex"
	"math/big"
	"strconv"
	"strings"
)

func formatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func intToString(v int64) string {
	return strconv.FormatInt(v, 10)
}

func uintToString(v uint64) string {
	return strconv.FormatUint(v, 10)
}

func hexAddr(addr [20]byte) string {
	return hex.EncodeToString(addr[:])
}

func zeroAddress(addr [20]byte) bool {
	return addr == ([20]byte{})
}

func normalizeAsset(asset string) string {
	trimmed := strings.TrimSpace(asset)
	if trimmed == "" {
		return ""
	}
	return strings.ToUpper(trimmed)
}
