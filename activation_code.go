package auth

import (
	"crypto/rand"
	"math/big"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// activation codes are numeric so they survive voice and copy-paste delivery
const activationCodeAlphabet = "0123456789"

// GenerateActivationCode returns a code of length digits drawn uniformly
// from 0-9 using the platform CSPRNG. rand.Int avoids modulo bias.
func GenerateActivationCode(length int) (string, error) {
	if length <= 0 {
		return "", goerrors.New("activation code length must be positive", goerrors.CategoryValidation).
			WithMetadata(map[string]any{"length": length})
	}

	max := big.NewInt(int64(len(activationCodeAlphabet)))

	var code strings.Builder
	code.Grow(length)
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to read from secure random source")
		}
		code.WriteByte(activationCodeAlphabet[n.Int64()])
	}

	return code.String(), nil
}
