package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// defaultCost is the bcrypt work factor for production hashing (~250ms per
// hash on current hardware).
const defaultCost = 12

// bcrypt only looks at the first 72 bytes of its input.
const maxPasswordBytes = 72

var (
	// ErrPasswordMismatch is returned by Verify when the password is wrong.
	ErrPasswordMismatch = errors.New("auth: invalid password")
	// ErrPasswordTooLong is returned by Hash for inputs bcrypt would truncate.
	ErrPasswordTooLong = fmt.Errorf("auth: password must be %d bytes or fewer", maxPasswordBytes)
)

// PasswordService hashes and verifies account passwords with bcrypt.
//
// The cost is a field so tests in other packages can hash at the minimum
// cost instead of paying for cost 12 on every registration.
type PasswordService struct {
	cost int
}

// NewPasswordService returns a PasswordService using the production cost.
func NewPasswordService() *PasswordService {
	return &PasswordService{cost: defaultCost}
}

// NewPasswordServiceForTest returns a PasswordService with the given cost,
// normally bcrypt.MinCost. Never use it outside tests.
func NewPasswordServiceForTest(cost int) *PasswordService {
	return &PasswordService{cost: cost}
}

// Hash returns the bcrypt hash of plaintext, salt and cost included:
//
//	$2a$12$<22-char salt><31-char hash>
func (p *PasswordService) Hash(plaintext string) (string, error) {
	if len(plaintext) > maxPasswordBytes {
		return "", ErrPasswordTooLong
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), p.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing password: %w", err)
	}
	return string(hashed), nil
}

// Verify returns nil when plaintext matches hash and ErrPasswordMismatch when
// it does not. Any other error means the stored hash is unusable, which is
// the case for accounts created through GitHub sign-in (empty hash).
func (p *PasswordService) Verify(hash, plaintext string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrPasswordMismatch
		}
		return fmt.Errorf("auth: comparing password hash: %w", err)
	}
	return nil
}
