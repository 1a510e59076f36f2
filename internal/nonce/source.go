// Package nonce generates the random values the flow depends on: CSRF
// nonces and session ids.
package nonce

import (
	"crypto/rand"
	"encoding/hex"
	"math/big"
)

type Source struct{}

func (s Source) randBytes(n int) []byte {
	b := make([]byte, n)
	_, _ = rand.Read(b)

	return b
}

func (s Source) randString(n int) string {
	const letters = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz-"

	ret := make([]byte, n)
	for i := range n {
		num, _ := rand.Int(rand.Reader, big.NewInt(int64(len(letters))))
		ret[i] = letters[num.Int64()]
	}

	return string(ret)
}

// Nonce returns a 32-byte random value, hex encoded, bound to one
// authorization request via the state parameter.
func (s Source) Nonce() string {
	return hex.EncodeToString(s.randBytes(32))
}

func (s Source) SessionID() string {
	return s.randString(32) // Entropy E = L * log2(63) = 32 * log2(63) = 191.3 bits
}
