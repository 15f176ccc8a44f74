package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

// GenerateAccountNumber generates an 8-digit account number starting with 01.
// Used when a create request does not supply its own number.
func GenerateAccountNumber() string {
	num, _ := rand.Int(rand.Reader, big.NewInt(1000000))
	return fmt.Sprintf("01%06d", num.Int64())
}

// ValidateAccountNumber validates the account number format.
func ValidateAccountNumber(accountNumber string) bool {
	return len(accountNumber) == 8 && strings.HasPrefix(accountNumber, "01")
}
