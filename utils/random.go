package utils

import (
	"crypto/rand"
	"encoding/hex"
)

// GenerateCode returns a hex string built from n random bytes. Used for
// queue entry ids when the backing store does not assign them itself.
func GenerateCode(n int) (string, error) {
	byt := make([]byte, n)

	if _, err := rand.Read(byt); err != nil {
		return "", err
	}

	return hex.EncodeToString(byt), nil
}
