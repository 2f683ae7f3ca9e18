package auth

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Supported password hashing algorithms.
const (
	AlgorithmBcrypt   = "bcrypt"
	AlgorithmArgon2id = "argon2id"
)

var (
	// ErrInvalidHash indicates the stored digest format is invalid.
	ErrInvalidHash = errors.New("invalid hash format")
	// ErrIncompatibleVersion indicates the hash version is not supported.
	ErrIncompatibleVersion = errors.New("incompatible argon2 version")
	// ErrUnknownAlgorithm indicates an unsupported hashing algorithm.
	ErrUnknownAlgorithm = errors.New("unknown password hashing algorithm")
	// ErrPasswordTooLong indicates the password exceeds the algorithm's input limit.
	ErrPasswordTooLong = errors.New("password too long")
)

// PasswordHasher produces and verifies one-way credential digests.
// New digests use the configured algorithm. Verification accepts any
// supported format, so the algorithm can change without invalidating
// existing accounts.
type PasswordHasher struct {
	algorithm  string
	bcryptCost int
	argon2     Argon2Params
}

// NewPasswordHasher creates a PasswordHasher.
// bcryptCost is the bcrypt work factor and is only checked when bcrypt is selected.
func NewPasswordHasher(algorithm string, bcryptCost int, argon Argon2Params) (*PasswordHasher, error) {
	switch algorithm {
	case AlgorithmBcrypt:
		if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
			return nil, fmt.Errorf("bcrypt cost %d out of range [%d,%d]", bcryptCost, bcrypt.MinCost, bcrypt.MaxCost)
		}
	case AlgorithmArgon2id:
		if argon.Time == 0 || argon.MemoryKB == 0 || argon.Threads == 0 || argon.KeyLen == 0 || argon.SaltLen == 0 {
			return nil, fmt.Errorf("argon2id parameters must be positive: %+v", argon)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, algorithm)
	}

	return &PasswordHasher{
		algorithm:  algorithm,
		bcryptCost: bcryptCost,
		argon2:     argon,
	}, nil
}

// Algorithm returns the algorithm used for new digests.
func (h *PasswordHasher) Algorithm() string {
	return h.algorithm
}

// Hash returns a salted digest of password.
func (h *PasswordHasher) Hash(password string) (string, error) {
	if h.algorithm == AlgorithmArgon2id {
		return hashArgon2(password, h.argon2)
	}
	return hashBcrypt(password, h.bcryptCost)
}

// Verify checks password against a digest produced by Hash.
// It never returns true on mismatch; a malformed digest is an error.
func (h *PasswordHasher) Verify(password, encodedHash string) (bool, error) {
	switch {
	case strings.HasPrefix(encodedHash, argon2Prefix):
		return verifyArgon2(password, encodedHash)
	case isBcryptHash(encodedHash):
		return verifyBcrypt(password, encodedHash)
	default:
		return false, ErrInvalidHash
	}
}
