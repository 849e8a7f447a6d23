package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"

	"github.com/redmonkez12/users-api/internal/config"
)

const (
	HashArgon2id = "argon2id"
	HashBcrypt   = "bcrypt"

	saltLen       = 16
	argon2Time    = 3
	argon2Memory  = 64 * 1024 // 64 MB
	argon2Threads = 4
	argon2KeyLen  = 32

	maxArgon2Time     = 64
	maxArgon2MemoryKB = 4 * 1024 * 1024 // 4 GB
)

var (
	ErrHashing       = errors.New("failed to hash password")
	ErrMalformedHash = errors.New("malformed password hash")
)

// Hasher hashes passwords with argon2id or bcrypt and verifies hashes of
// either kind.
type Hasher struct {
	algorithm     string
	bcryptCost    int
	argon2Time    uint32
	argon2Memory  uint32
	argon2Threads uint8
}

func NewHasher(cfg config.AuthConfig) (*Hasher, error) {
	h := &Hasher{
		algorithm:     cfg.PasswordHashAlgorithm,
		bcryptCost:    cfg.BcryptCost,
		argon2Time:    cfg.Argon2Time,
		argon2Memory:  cfg.Argon2MemoryKB,
		argon2Threads: cfg.Argon2Threads,
	}

	if h.algorithm == "" {
		h.algorithm = HashArgon2id
	}
	if h.argon2Time == 0 {
		h.argon2Time = argon2Time
	}
	if h.argon2Memory == 0 {
		h.argon2Memory = argon2Memory
	}
	if h.argon2Threads == 0 {
		h.argon2Threads = argon2Threads
	}
	if h.bcryptCost == 0 {
		h.bcryptCost = bcrypt.DefaultCost
	}

	switch h.algorithm {
	case HashArgon2id:
		if h.argon2Time > maxArgon2Time {
			return nil, fmt.Errorf("argon2 time must be between 1 and %d, got %d", maxArgon2Time, h.argon2Time)
		}
		// argon2 needs at least 8 KB per lane
		if h.argon2Memory < 8*uint32(h.argon2Threads) || h.argon2Memory > maxArgon2MemoryKB {
			return nil, fmt.Errorf("argon2 memory must be between %d and %d KB, got %d", 8*uint32(h.argon2Threads), maxArgon2MemoryKB, h.argon2Memory)
		}
	case HashBcrypt:
		if h.bcryptCost < bcrypt.MinCost || h.bcryptCost > bcrypt.MaxCost {
			return nil, fmt.Errorf("bcrypt cost must be between %d and %d, got %d", bcrypt.MinCost, bcrypt.MaxCost, h.bcryptCost)
		}
	default:
		return nil, fmt.Errorf("unsupported password hash algorithm %q", h.algorithm)
	}

	return h, nil
}

// Hash returns a salted hash of password in the configured format.
func (h *Hasher) Hash(password string) (string, error) {
	if h.algorithm == HashBcrypt {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), h.bcryptCost)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrHashing, err)
		}
		return string(hash), nil
	}

	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("%w: %v", ErrHashing, err)
	}

	hash := argon2.IDKey([]byte(password), salt, h.argon2Time, h.argon2Memory, h.argon2Threads, argon2KeyLen)

	// Encode as: $argon2id$v=19$m=65536,t=3,p=4$salt$hash
	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.argon2Memory,
		h.argon2Time,
		h.argon2Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

// Verify reports whether password matches storedHash. A mismatch is
// (false, nil); an unreadable hash is ErrMalformedHash.
func (h *Hasher) Verify(password, storedHash string) (bool, error) {
	switch {
	case strings.HasPrefix(storedHash, "$argon2id$"):
		return verifyArgon2id(password, storedHash)
	case strings.HasPrefix(storedHash, "$2a$"),
		strings.HasPrefix(storedHash, "$2b$"),
		strings.HasPrefix(storedHash, "$2y$"):
		return verifyBcrypt(password, storedHash)
	default:
		return false, ErrMalformedHash
	}
}

func verifyBcrypt(password, storedHash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(password))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, fmt.Errorf("%w: %v", ErrMalformedHash, err)
}

func verifyArgon2id(password, storedHash string) (bool, error) {
	parts := strings.Split(storedHash, "$")
	if len(parts) != 6 {
		return false, ErrMalformedHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return false, ErrMalformedHash
	}

	var memory, time uint32
	var threads uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &threads); err != nil {
		return false, ErrMalformedHash
	}
	if memory == 0 || time == 0 || threads == 0 {
		return false, ErrMalformedHash
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, ErrMalformedHash
	}
	decodedHash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(decodedHash) == 0 {
		return false, ErrMalformedHash
	}

	inputHash := argon2.IDKey([]byte(password), salt, time, memory, threads, uint32(len(decodedHash)))

	return subtle.ConstantTimeCompare(decodedHash, inputHash) == 1, nil
}
