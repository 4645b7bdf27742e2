package helpers

import (
	"crypto/rand"
	"math/big"
)

// CodeLength is the number of decimal digits in a verification code.
const CodeLength = 6

// CodeGenerator produces verification codes.
type CodeGenerator interface {
	Generate() (string, error)
}

// DigitCodeGenerator draws CodeLength independent uniform digits from crypto/rand.
type DigitCodeGenerator struct{}

var ten = big.NewInt(10)

func (DigitCodeGenerator) Generate() (string, error) {
	return GenOTPCode()
}

// GenOTPCode generates a 6-digit zero-padded code, each digit uniform over 0-9.
func GenOTPCode() (string, error) {
	b := make([]byte, CodeLength)
	for i := range b {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", err
		}
		b[i] = byte('0' + n.Int64())
	}
	return string(b), nil
}
