package utils

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
)

// GenerateToken returns n random bytes hex encoded.
func GenerateToken(n int) (string, error) {
	byt := make([]byte, n)
	if _, err := rand.Read(byt); err != nil {
		return "", err
	}
	return hex.EncodeToString(byt), nil
}

// Hmac256 signs body with key and returns the hex digest.
func Hmac256(body, key []byte) string {
	hash := hmac.New(sha256.New, key)
	hash.Write(body)
	return hex.EncodeToString(hash.Sum(nil))
}

// VerifyHmac256 reports whether signature is the HMAC of body under key.
func VerifyHmac256(body, key []byte, signature string) bool {
	return hmac.Equal([]byte(signature), []byte(Hmac256(body, key)))
}
