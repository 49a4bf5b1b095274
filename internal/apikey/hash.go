package apikey

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"

	"github.com/loglens/loglens/internal/config"
)

// Digest encoding follows the PHC string format:
// $argon2id$v=19$m=65536,t=3,p=2$<salt-b64>$<hash-b64>

// HashKey derives an argon2id digest for the plaintext key with a fresh salt.
func HashKey(plaintext []byte, params config.KDF) (string, error) {
	salt := make([]byte, params.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}

	sum := argon2.IDKey(plaintext, salt, params.Time, params.MemoryKiB, params.Threads, params.KeyLen)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, params.MemoryKiB, params.Time, params.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(sum),
	), nil
}

// VerifyKey re-derives the digest for the presented key using the parameters
// and salt embedded in the stored digest, and compares in constant time.
func VerifyKey(presented []byte, stored string) (bool, error) {
	var (
		version    int
		mem, t     uint32
		threads    uint8
		saltB64    string
		hashB64    string
	)

	parts := strings.Split(stored, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false, fmt.Errorf("unsupported digest format")
	}

	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return false, fmt.Errorf("parsing digest version: %w", err)
	}
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &mem, &t, &threads); err != nil {
		return false, fmt.Errorf("parsing digest parameters: %w", err)
	}
	saltB64, hashB64 = parts[4], parts[5]

	salt, err := base64.RawStdEncoding.DecodeString(saltB64)
	if err != nil {
		return false, fmt.Errorf("decoding salt: %w", err)
	}

	want, err := base64.RawStdEncoding.DecodeString(hashB64)
	if err != nil {
		return false, fmt.Errorf("decoding hash: %w", err)
	}

	got := argon2.IDKey(presented, salt, t, mem, threads, uint32(len(want)))

	return subtle.ConstantTimeCompare(got, want) == 1, nil
}

// Wipe zeroes a byte slice holding secret material.
func Wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
