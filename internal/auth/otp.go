package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"io"
	"math/big"
	"strconv"
	"strings"
)

// maxCodeLength keeps 10^length inside int64.
const maxCodeLength = 18

// SecureCodeGenerator draws numeric codes from crypto/rand.
type SecureCodeGenerator struct {
	reader io.Reader
}

// NewSecureCodeGenerator creates a generator backed by crypto/rand.Reader
func NewSecureCodeGenerator() *SecureCodeGenerator {
	return &SecureCodeGenerator{reader: rand.Reader}
}

// Generate returns a decimal code uniformly distributed over [10^(length-1), 10^length-1],
// so it always has exactly length digits. A failing entropy source is returned as an error.
func (g *SecureCodeGenerator) Generate(length int) (string, error) {
	if length < 1 || length > maxCodeLength {
		return "", fmt.Errorf("invalid otp length %d", length)
	}

	lower := pow10(length - 1)
	upper := pow10(length) - 1

	n, err := rand.Int(g.reader, big.NewInt(upper-lower+1))
	if err != nil {
		return "", fmt.Errorf("failed to generate otp: %w", err)
	}
	return strconv.FormatInt(n.Int64()+lower, 10), nil
}

func pow10(exp int) int64 {
	result := int64(1)
	for i := 0; i < exp; i++ {
		result *= 10
	}
	return result
}

// SHA256Hasher hashes codes as uppercase hex SHA-256.
type SHA256Hasher struct{}

// Hash returns the uppercase hex SHA-256 digest of code.
func (SHA256Hasher) Hash(code string) string {
	sum := sha256.Sum256([]byte(code))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

// Verify compares the digest of code with hexHash in constant time.
// A hexHash that does not decode is a mismatch.
func (SHA256Hasher) Verify(code, hexHash string) bool {
	expected, err := hex.DecodeString(hexHash)
	if err != nil {
		return false
	}
	actual := sha256.Sum256([]byte(code))
	return subtle.ConstantTimeCompare(actual[:], expected) == 1
}
