package credential

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
)

// DefaultSaltLength is the salt size in bytes before hex encoding.
const DefaultSaltLength = 56

// Pair is a stored credential: the hex HMAC-SHA256 of the plaintext keyed
// by Salt. Verification recomputes the hash; nothing is ever decrypted.
type Pair struct {
	Hash string
	Salt string
}

// Engine generates and verifies credential pairs.
type Engine struct {
	saltLength int
}

// NewEngine creates an Engine. A non-positive saltLength falls back to
// DefaultSaltLength.
func NewEngine(saltLength int) *Engine {
	if saltLength <= 0 {
		saltLength = DefaultSaltLength
	}
	return &Engine{saltLength: saltLength}
}

// GenerateTrackingID returns a globally unique opaque identifier.
func (e *Engine) GenerateTrackingID() string {
	return uuid.NewString()
}

// GenerateSalt returns length cryptographically random bytes, hex-encoded.
func (e *Engine) GenerateSalt(length int) (string, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random salt: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// HashCredential generates a fresh salt and returns the keyed hash of the
// plaintext. Two calls with the same plaintext produce different pairs.
func (e *Engine) HashCredential(plaintext string) (Pair, error) {
	salt, err := e.GenerateSalt(e.saltLength)
	if err != nil {
		return Pair{}, err
	}
	return Pair{Hash: e.VerifyCredential(salt, plaintext), Salt: salt}, nil
}

// VerifyCredential recomputes the keyed hash for an existing salt. Callers
// compare the result against the stored hash.
func (e *Engine) VerifyCredential(salt, plaintext string) string {
	mac := hmac.New(sha256.New, []byte(salt))
	mac.Write([]byte(plaintext))
	return hex.EncodeToString(mac.Sum(nil))
}

// Matches reports whether plaintext verifies against a stored pair using a
// constant-time comparison.
func (e *Engine) Matches(p Pair, plaintext string) bool {
	computed := e.VerifyCredential(p.Salt, plaintext)
	return hmac.Equal([]byte(computed), []byte(p.Hash))
}
