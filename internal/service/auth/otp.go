package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/splax/accounts/internal/domain"
)

var otpFloor = pow10(domain.OTPLength - 1)

// generateOTP returns a code in [10^(n-1), 10^n) so it never has a leading zero.
func generateOTP() (string, error) {
	span := new(big.Int).Sub(pow10(domain.OTPLength), otpFloor)
	n, err := rand.Int(rand.Reader, span)
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return n.Add(n, otpFloor).String(), nil
}

func pow10(exp int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(exp)), nil)
}
