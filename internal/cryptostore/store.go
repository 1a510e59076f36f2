// Package cryptostore encrypts session payloads with a split-key scheme:
// the ciphertext lives in the server-side session container while the key
// travels in an httpOnly cookie on the client. Neither half alone suffices
// to recover a payload, so a breached session backend or a stolen cookie is
// individually useless. Losing either half makes the entry unrecoverable,
// which degrades to the normal "no session" state.
package cryptostore

import (
	"bytes"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	slogctx "github.com/veqryn/slog-context"

	"github.com/certhub/session-gateway/internal/config"
	"github.com/certhub/session-gateway/internal/sessionstore"
)

const (
	keySize = 32
	ivSize  = aes.BlockSize
)

const keyCookieSuffix = ".key"

type Store struct {
	keyCookie config.CookieTemplate
}

func New(keyCookie config.CookieTemplate) *Store {
	return &Store{keyCookie: keyCookie}
}

// Put serializes value, encrypts it under a fresh random key and IV, stores
// IV||ciphertext in the session container under id, and hands the key to
// the client in the companion cookie.
func (s *Store) Put(_ context.Context, w http.ResponseWriter, sess *sessionstore.Container, id string, value any) error {
	plaintext, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshaling payload: %w", err)
	}

	key := randBytes(keySize)
	iv := randBytes(ivSize)

	encrypted, err := encrypt(key, iv, plaintext)
	if err != nil {
		return fmt.Errorf("encrypting payload: %w", err)
	}

	sess.Set(id, hex.EncodeToString(encrypted))

	cookie := s.keyCookie.ToCookie(hex.EncodeToString(key))
	cookie.Name = KeyCookieName(id)
	http.SetCookie(w, cookie)

	return nil
}

// Get loads and decrypts the entry stored under id. A missing half, a
// corrupt ciphertext, or a wrong key all report absent rather than an
// error: an unreadable entry is equivalent to no entry.
func (s *Store) Get(ctx context.Context, r *http.Request, sess *sessionstore.Container, id string, into any) bool {
	encryptedHex, ok := sess.Get(id)
	if !ok {
		return false
	}

	keyCookie, err := r.Cookie(KeyCookieName(id))
	if err != nil || keyCookie.Value == "" {
		return false
	}

	key, err := hex.DecodeString(keyCookie.Value)
	if err != nil {
		slogctx.Warn(ctx, "Undecodable entry key cookie", "entry", id, "error", err)
		return false
	}

	encrypted, err := hex.DecodeString(encryptedHex)
	if err != nil {
		slogctx.Warn(ctx, "Undecodable session ciphertext", "entry", id, "error", err)
		return false
	}

	plaintext, err := decrypt(key, encrypted)
	if err != nil {
		slogctx.Warn(ctx, "Failed to decrypt session entry", "entry", id, "error", err)
		return false
	}

	if err := json.Unmarshal(plaintext, into); err != nil {
		slogctx.Warn(ctx, "Failed to unmarshal session entry", "entry", id, "error", err)
		return false
	}

	return true
}

// Remove deletes both halves of the entry.
func (s *Store) Remove(w http.ResponseWriter, sess *sessionstore.Container, id string) {
	sess.Delete(id)

	cookie := s.keyCookie.ToExpiredCookie()
	cookie.Name = KeyCookieName(id)
	http.SetCookie(w, cookie)
}

// Keys enumerates the container-side entry ids.
func (s *Store) Keys(sess *sessionstore.Container) []string {
	return sess.Keys()
}

// KeyCookieName derives the companion cookie name for an entry id. Entry
// ids contain colons and slashes, which RFC 6265 forbids in cookie names,
// so every byte outside [A-Za-z0-9._] is escaped as '-' plus two hex
// digits. The escape byte itself is escaped too, keeping the mapping
// injective: distinct entry ids never share a cookie.
func KeyCookieName(id string) string {
	var name strings.Builder
	for i := 0; i < len(id); i++ {
		b := id[i]
		switch {
		case b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z', b >= '0' && b <= '9', b == '.', b == '_':
			name.WriteByte(b)
		default:
			fmt.Fprintf(&name, "-%02x", b)
		}
	}

	return name.String() + keyCookieSuffix
}

func randBytes(n int) []byte {
	b := make([]byte, n)
	_, _ = rand.Read(b)

	return b
}

func encrypt(key, iv, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}

	padded := pad(plaintext)
	encrypted := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(encrypted, padded)

	return append(append([]byte{}, iv...), encrypted...), nil
}

func decrypt(key, data []byte) ([]byte, error) {
	if len(key) != keySize {
		return nil, errors.New("key is not 32 bytes")
	}

	if len(data) < ivSize+aes.BlockSize || len(data[ivSize:])%aes.BlockSize != 0 {
		return nil, errors.New("ciphertext is not a whole number of blocks")
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}

	iv, encrypted := data[:ivSize], data[ivSize:]
	plaintext := make([]byte, len(encrypted))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, encrypted)

	return unpad(plaintext)
}

func pad(data []byte) []byte {
	n := aes.BlockSize - len(data)%aes.BlockSize
	return append(data, bytes.Repeat([]byte{byte(n)}, n)...)
}

func unpad(data []byte) ([]byte, error) {
	n := int(data[len(data)-1])
	if n == 0 || n > aes.BlockSize || n > len(data) {
		return nil, errors.New("invalid padding")
	}

	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, errors.New("invalid padding")
		}
	}

	return data[:len(data)-n], nil
}
