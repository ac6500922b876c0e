package accounts

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/2beens/partnerdesk/pkg"

	"golang.org/x/crypto/pbkdf2"
)

const (
	DefaultIterations = 200_000
	MaxIterations     = 10_000_000

	pbkdf2Tag  = "pbkdf2"
	saltLength = 16
	keyLength  = 32
)

// Hasher produces and checks password hashes of the form
//
//	pbkdf2$<iterations>$<salt_hex>$<digest_hex>
//
// using PBKDF2-HMAC-SHA256. Bare SHA-256 hex digests and bcrypt strings
// still verify, and are reported as needing a rehash.
type Hasher struct {
	iterations int

	dummyOnce sync.Once
	dummy     string
}

func NewHasher(iterations int) *Hasher {
	if iterations <= 0 {
		iterations = DefaultIterations
	}
	return &Hasher{iterations: iterations}
}

func (h *Hasher) Iterations() int {
	return h.iterations
}

func (h *Hasher) Hash(password string) (string, error) {
	salt, err := pkg.GenerateRandomBytes(saltLength)
	if err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	return encodePBKDF2(password, salt, h.iterations), nil
}

func encodePBKDF2(password string, salt []byte, iterations int) string {
	dk := pbkdf2.Key([]byte(password), salt, iterations, keyLength, sha256.New)
	return fmt.Sprintf("%s$%d$%s$%s", pbkdf2Tag, iterations, hex.EncodeToString(salt), hex.EncodeToString(dk))
}

// Verify checks password against encoded. needsRehash is only ever true
// when ok is: the stored value is legacy or uses fewer iterations than h.
func (h *Hasher) Verify(password, encoded string) (ok bool, needsRehash bool) {
	switch {
	case encoded == "":
		return false, false
	case strings.HasPrefix(encoded, pbkdf2Tag+"$"):
		iterations, ok := verifyPBKDF2(password, encoded)
		return ok, ok && iterations < h.iterations
	case pkg.IsBcryptHash(encoded):
		ok := pkg.CheckPasswordHash(password, encoded)
		return ok, ok
	default:
		ok := verifyLegacySHA256(password, encoded)
		return ok, ok
	}
}

// Burn spends one full derivation on a throwaway hash, so that a lookup of
// an unknown username costs the same as a wrong password.
func (h *Hasher) Burn(password string) {
	h.dummyOnce.Do(func() {
		salt := make([]byte, saltLength)
		h.dummy = encodePBKDF2("partnerdesk-dummy", salt, h.iterations)
	})
	_, _ = verifyPBKDF2(password, h.dummy)
}

// IsCurrentFormat reports whether encoded is a well-formed pbkdf2 hash.
func IsCurrentFormat(encoded string) bool {
	_, _, _, err := parsePBKDF2(encoded)
	return err == nil
}

func parsePBKDF2(encoded string) (iterations int, salt, digest []byte, err error) {
	parts := strings.SplitN(encoded, "$", 4)
	if len(parts) != 4 || parts[0] != pbkdf2Tag {
		return 0, nil, nil, fmt.Errorf("not a pbkdf2 hash")
	}

	iterations, err = strconv.Atoi(parts[1])
	if err != nil || iterations <= 0 || iterations > MaxIterations {
		return 0, nil, nil, fmt.Errorf("invalid iteration count: %q", parts[1])
	}
	salt, err = hex.DecodeString(parts[2])
	if err != nil {
		return 0, nil, nil, fmt.Errorf("invalid salt: %w", err)
	}
	digest, err = hex.DecodeString(parts[3])
	if err != nil {
		return 0, nil, nil, fmt.Errorf("invalid digest: %w", err)
	}
	if len(digest) == 0 {
		return 0, nil, nil, fmt.Errorf("empty digest")
	}

	return iterations, salt, digest, nil
}

func verifyPBKDF2(password, encoded string) (int, bool) {
	iterations, salt, expected, err := parsePBKDF2(encoded)
	if err != nil {
		return 0, false
	}
	dk := pbkdf2.Key([]byte(password), salt, iterations, len(expected), sha256.New)
	return iterations, subtle.ConstantTimeCompare(dk, expected) == 1
}

func verifyLegacySHA256(password, encoded string) bool {
	sum := sha256.Sum256([]byte(password))
	legacy := hex.EncodeToString(sum[:])
	stored := strings.ToLower(strings.TrimSpace(encoded))
	return subtle.ConstantTimeCompare([]byte(legacy), []byte(stored)) == 1
}
