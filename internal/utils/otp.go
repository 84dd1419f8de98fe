package utils

import "crypto/rand"

// GenerateOTP returns a numeric one-time code of the given length
// for password resets.
func GenerateOTP(length int) (string, error) {
	const charset = "0123456789"
	code := make([]byte, length)
	if _, err := rand.Read(code); err != nil {
		return "", err
	}
	for i := 0; i < length; i++ {
		code[i] = charset[int(code[i])%len(charset)]
	}
	return string(code), nil
}
