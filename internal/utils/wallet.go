package utils

import "strings"

// NormalizeWallet lower-cases a wallet address so the same address never
// produces duplicate user rows under different casings. Applied once, at the
// HTTP boundary; chain calls re-checksum addresses themselves.
func NormalizeWallet(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

// IsWalletAddress reports whether s looks like a 0x-prefixed 20-byte hex
// address. Validation only; checksum casing is not enforced here.
func IsWalletAddress(s string) bool {
	s = strings.TrimSpace(s)
	if len(s) != 42 || !strings.HasPrefix(s, "0x") {
		return false
	}
	for _, c := range s[2:] {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

// TruncateWallet returns the first n hex chars of a wallet address without
// the 0x prefix, used for deterministic certificate file names.
func TruncateWallet(addr string, n int) string {
	s := strings.TrimPrefix(NormalizeWallet(addr), "0x")
	if len(s) > n {
		s = s[:n]
	}
	return s
}
