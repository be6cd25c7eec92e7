package chain

import (
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/sha3"
)

// IsValidAddress reports whether addr is a well-formed 20-byte hex address.
// Mixed-case addresses must additionally carry a valid EIP-55 checksum;
// all-lower or all-upper addresses are accepted without one.
func IsValidAddress(addr string) bool {
	if len(addr) != 42 || !strings.HasPrefix(addr, "0x") {
		return false
	}
	hexPart := addr[2:]
	if _, err := hex.DecodeString(hexPart); err != nil {
		return false
	}

	lower := strings.ToLower(hexPart)
	upper := strings.ToUpper(hexPart)
	if hexPart == lower || hexPart == upper {
		return true
	}

	return ChecksumAddress(addr) == addr
}

// ChecksumAddress returns the EIP-55 checksummed form of addr.
// The input may be any case; the "0x" prefix is required.
func ChecksumAddress(addr string) string {
	lower := strings.ToLower(strings.TrimPrefix(addr, "0x"))

	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(lower))
	hash := hex.EncodeToString(h.Sum(nil))

	out := make([]byte, len(lower))
	for i := 0; i < len(lower); i++ {
		c := lower[i]
		if c >= 'a' && c <= 'f' && hash[i] >= '8' {
			c = c - 'a' + 'A'
		}
		out[i] = c
	}
	return "0x" + string(out)
}
