package service

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
)

const (
	keyAlphabet     = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	keyGroups       = 4
	keyGroupLength  = 5
	keyGenerateTry  = 16
	keyRejectAbove  = 256 - 256%len(keyAlphabet)
	keyGroupDivider = '-'
)

// keyGenerator produces random license keys of the form
// XXXXX-XXXXX-XXXXX-XXXXX over [A-Z0-9].
type keyGenerator struct {
	random io.Reader
}

func newKeyGenerator() *keyGenerator {
	return &keyGenerator{random: rand.Reader}
}

// Generate returns a fresh key for which taken reports false. It gives up
// after keyGenerateTry collisions.
func (g *keyGenerator) Generate(taken func(key string) bool) (string, error) {
	for range keyGenerateTry {
		key, err := g.next()
		if err != nil {
			return "", err
		}
		if !taken(key) {
			return key, nil
		}
	}
	return "", fmt.Errorf("%w: could not generate a unique license key", ErrDuplicateLicenseKey)
}

func (g *keyGenerator) next() (string, error) {
	const n = keyGroups * keyGroupLength

	chars := make([]byte, 0, n)
	buf := make([]byte, n)
	for len(chars) < n {
		if _, err := io.ReadFull(g.random, buf); err != nil {
			return "", fmt.Errorf("read random bytes: %w", err)
		}
		for _, b := range buf {
			// rejection sampling keeps every character equally likely
			if int(b) >= keyRejectAbove {
				continue
			}
			chars = append(chars, keyAlphabet[int(b)%len(keyAlphabet)])
			if len(chars) == n {
				break
			}
		}
	}

	var sb strings.Builder
	sb.Grow(n + keyGroups - 1)
	for i := range keyGroups {
		if i > 0 {
			sb.WriteByte(keyGroupDivider)
		}
		sb.Write(chars[i*keyGroupLength : (i+1)*keyGroupLength])
	}
	return sb.String(), nil
}
