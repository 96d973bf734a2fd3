package otp

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"strings"
)

var ten = big.NewInt(10)

// generateCode returns n decimal digits drawn uniformly from r, which must be
// a cryptographically secure source in production.
func generateCode(r io.Reader, n int) (string, error) {
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		d, err := rand.Int(r, ten)
		if err != nil {
			return "", fmt.Errorf("read random digit: %w", err)
		}
		b.WriteByte(byte('0' + d.Int64()))
	}
	return b.String(), nil
}
