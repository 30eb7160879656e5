// Package token generates the opaque identifiers embedded in shareable
// secret links.
package token

import (
	"crypto/rand"
	"fmt"
)

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// DefaultLength gives roughly 190 bits of entropy over the 62-symbol
// alphabet, far beyond what the rate limiter's window can brute-force.
const DefaultLength = 32

// New returns a URL-safe random token of n characters. The source is
// crypto/rand; byte values outside the largest multiple of len(alphabet)
// are discarded to keep the distribution uniform.
func New(n int) (string, error) {
	if n <= 0 {
		n = DefaultLength
	}
	// 248 = 62 * 4; accept bytes below it, retry the rest.
	const limit = byte(248)
	out := make([]byte, 0, n)
	buf := make([]byte, n)
	for len(out) < n {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("token: read random: %w", err)
		}
		for _, b := range buf {
			if b >= limit {
				continue
			}
			out = append(out, alphabet[int(b)%len(alphabet)])
			if len(out) == n {
				break
			}
		}
	}
	return string(out), nil
}
