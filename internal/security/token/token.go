package token

import (
	"crypto/rand"
	"encoding/base64"
)

// GenerateOpaque genera un token opaco aleatorio (base64url sin padding).
// nBytes es la cantidad de bytes de entropía, no la longitud del string.
func GenerateOpaque(nBytes int) (string, error) {
	if nBytes < 32 {
		nBytes = 32
	}
	b := make([]byte, nBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
