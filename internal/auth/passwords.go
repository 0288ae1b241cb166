package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/crypto/argon2"
)

var ErrMalformedHash = errors.New("malformed password hash")

// phc is a decoded "$argon2id$v=19$m=..,t=..,p=..$salt$key" string.
type phc struct {
	memory  uint32
	time    uint32
	threads uint8
	salt    []byte
	key     []byte
}

var hashCost = phc{memory: 64 * 1024, time: 3, threads: 2}

const (
	saltBytes = 16
	keyBytes  = 32
	// Stored parameters above these are refused rather than run.
	maxMemoryKiB = 1 << 20
	maxTime      = 16
)

var b64 = base64.RawStdEncoding

func (h phc) derive(plaintext string) []byte {
	return argon2.IDKey([]byte(plaintext), h.salt, h.time, h.memory, h.threads, uint32(len(h.key)))
}

func (h phc) String() string {
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, h.memory, h.time, h.threads, b64.EncodeToString(h.salt), b64.EncodeToString(h.key))
}

func HashPassword(plaintext string) (string, error) {
	h := hashCost
	h.salt = make([]byte, saltBytes)
	if _, err := rand.Read(h.salt); err != nil {
		return "", fmt.Errorf("read salt: %w", err)
	}
	h.key = argon2.IDKey([]byte(plaintext), h.salt, h.time, h.memory, h.threads, keyBytes)
	return h.String(), nil
}

// VerifyPassword re-derives with the parameters stored in hash. An empty or
// foreign hash is ErrMalformedHash, never a match.
func VerifyPassword(hash, plaintext string) (bool, error) {
	h, err := decodePHC(hash)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare(h.key, h.derive(plaintext)) == 1, nil
}

var dummyHash = sync.OnceValue(func() string {
	h, err := HashPassword("career-pointer-dummy-password")
	if err != nil {
		return ""
	}
	return h
})

// BurnPasswordCheck performs one verification against a fixed hash so a
// lookup miss costs the same as a wrong password.
func BurnPasswordCheck(plaintext string) {
	if h := dummyHash(); h != "" {
		_, _ = VerifyPassword(h, plaintext)
	}
}

func decodePHC(s string) (phc, error) {
	fields := strings.Split(s, "$")
	if len(fields) != 6 || fields[0] != "" || fields[1] != "argon2id" {
		return phc{}, ErrMalformedHash
	}

	var version int
	if _, err := fmt.Sscanf(fields[2], "v=%d", &version); err != nil || version != argon2.Version {
		return phc{}, fmt.Errorf("%w: unsupported version %q", ErrMalformedHash, fields[2])
	}

	var h phc
	if _, err := fmt.Sscanf(fields[3], "m=%d,t=%d,p=%d", &h.memory, &h.time, &h.threads); err != nil {
		return phc{}, fmt.Errorf("%w: params %q", ErrMalformedHash, fields[3])
	}
	if h.memory == 0 || h.memory > maxMemoryKiB || h.time == 0 || h.time > maxTime || h.threads == 0 {
		return phc{}, fmt.Errorf("%w: params out of range", ErrMalformedHash)
	}

	var err error
	if h.salt, err = b64.DecodeString(fields[4]); err != nil || len(h.salt) == 0 {
		return phc{}, fmt.Errorf("%w: salt", ErrMalformedHash)
	}
	if h.key, err = b64.DecodeString(fields[5]); err != nil || len(h.key) == 0 {
		return phc{}, fmt.Errorf("%w: key", ErrMalformedHash)
	}
	return h, nil
}
