package verification

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"math/big"
	"strings"
)

const verificationTokenBytes = 32

var ten = big.NewInt(10)

// generateCode draws each digit uniformly from r.
func generateCode(r io.Reader, length int) (string, error) {
	var b strings.Builder
	b.Grow(length)
	for i := 0; i < length; i++ {
		n, err := rand.Int(r, ten)
		if err != nil {
			return "", fmt.Errorf("generateCode: %w", err)
		}
		b.WriteByte(byte('0' + n.Int64()))
	}
	return b.String(), nil
}

func generateToken(r io.Reader) (string, error) {
	buf := make([]byte, verificationTokenBytes)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", fmt.Errorf("generateToken: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
