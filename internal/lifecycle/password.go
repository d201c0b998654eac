package lifecycle

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
)

// DefaultPasswordCharset is the printable set room passwords are drawn from.
const DefaultPasswordCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789!@#$%&*-=+?"

// ErrInvalidPasswordPolicy is returned for an empty charset or a non-positive length.
var ErrInvalidPasswordPolicy = errors.New("lifecycle: invalid password policy")

// PasswordGenerator draws room passwords uniformly from a charset.
type PasswordGenerator struct {
	charset []rune
	length  int
	random  io.Reader
}

// NewPasswordGenerator validates the policy and returns a generator backed by
// crypto/rand.
func NewPasswordGenerator(charset string, length int) (*PasswordGenerator, error) {
	runes := []rune(charset)
	if len(runes) == 0 || length <= 0 {
		return nil, fmt.Errorf("%w: charset of %d characters, length %d", ErrInvalidPasswordPolicy, len(runes), length)
	}
	return &PasswordGenerator{charset: runes, length: length, random: rand.Reader}, nil
}

// Generate returns a new password.
func (g *PasswordGenerator) Generate() (string, error) {
	max := big.NewInt(int64(len(g.charset)))
	out := make([]rune, g.length)
	for i := range out {
		n, err := rand.Int(g.random, max)
		if err != nil {
			return "", fmt.Errorf("generate password: %w", err)
		}
		out[i] = g.charset[n.Int64()]
	}
	return string(out), nil
}
