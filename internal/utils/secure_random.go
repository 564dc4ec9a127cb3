package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// DefaultAccountNumberLength is the number of digits the ATM hands out.
const DefaultAccountNumberLength = 10

// GenerateAccountNumber returns a string of length cryptographically random decimal digits.
// Uniqueness is not guaranteed; the store rejects collisions with apperrors.ErrDuplicate.
func GenerateAccountNumber(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("length must be positive")
	}
	ten := big.NewInt(10)
	b := make([]byte, length)
	for i := range b {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", fmt.Errorf("failed to read random digit: %w", err)
		}
		b[i] = byte('0' + n.Int64())
	}
	return string(b), nil
}
