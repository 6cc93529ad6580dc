package security

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

func HashPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// CheckPassword compares a stored bcrypt hash with a candidate password.
func CheckPassword(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

// PasswordVerifier checks login attempts. An unknown user still costs one
// bcrypt comparison, against a placeholder hash built up front.
type PasswordVerifier struct {
	placeholder []byte
}

func NewPasswordVerifier() (*PasswordVerifier, error) {
	h, err := bcrypt.GenerateFromPassword([]byte("unused-login-placeholder"), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("build placeholder hash: %w", err)
	}
	return &PasswordVerifier{placeholder: h}, nil
}

func (v *PasswordVerifier) Check(hash, password string) error {
	return CheckPassword(hash, password)
}

// CheckUnknown spends a comparison for a user that does not exist and always
// reports a mismatch.
func (v *PasswordVerifier) CheckUnknown(password string) error {
	_ = bcrypt.CompareHashAndPassword(v.placeholder, []byte(password))
	return bcrypt.ErrMismatchedHashAndPassword
}
