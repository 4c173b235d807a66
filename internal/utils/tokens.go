package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/taskflowhq/taskflow-api/internal/constants"
)

const tempPasswordCharset = "abcdefghijklmnopqrstuvwxyz0123456789"

// GenerateOTP returns a random numeric one-time code.
func GenerateOTP() (string, error) {
	max := big.NewInt(1)
	for i := 0; i < constants.OTPLength; i++ {
		max.Mul(max, big.NewInt(10))
	}

	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("failed to generate OTP: %w", err)
	}

	return fmt.Sprintf("%0*d", constants.OTPLength, n), nil
}

// GenerateTempPassword returns a random throwaway password for freshly
// invited accounts. The suffix keeps it valid under common complexity rules.
func GenerateTempPassword() (string, error) {
	chars := make([]byte, 8)
	for i := range chars {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(tempPasswordCharset))))
		if err != nil {
			return "", fmt.Errorf("failed to generate temp password: %w", err)
		}
		chars[i] = tempPasswordCharset[n.Int64()]
	}

	return string(chars) + "A1!", nil
}
