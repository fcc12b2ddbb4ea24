package logging

import (
	"log/slog"
	"strings"
)

// RedactedValue is the canonical placeholder used for sensitive fields in logs.
const RedactedValue = "[REDACTED]"

var redactionAllowlist = map[string]struct{}{
	"service":   {},
	"network":   {},
	"message":   {},
	"severity":  {},
	"timestamp": {},
	"error":     {},
	"method":    {},
	"module":    {},
	"token":     {},
	"poolId":    {},
	"loanId":    {},
	"billType":  {},
}

// IsAllowlisted reports whether the provided key is exempt from automatic
// redaction.
func IsAllowlisted(key string) bool {
	_, ok := redactionAllowlist[strings.TrimSpace(key)]
	return ok
}

// MaskField returns a slog.Attr that redacts the supplied value unless the
// key is explicitly allowlisted. Account addresses and free-form request
// parameters are masked; routing metadata passes through.
func MaskField(key, value string) slog.Attr {
	if strings.TrimSpace(value) == "" || IsAllowlisted(key) {
		return slog.String(key, value)
	}
	return slog.String(key, RedactedValue)
}
