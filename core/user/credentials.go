package user

import (
	"crypto/rand"
	"math/big"
	"strings"

	"github.com/pkg/errors"
)

const (
	usernameBaseLen   = 8
	usernameSuffixLen = 4
	passwordLen       = 10

	digits        = "0123456789"
	passwordChars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

func randomString(chars string, n int) (string, error) {
	var b strings.Builder
	max := big.NewInt(int64(len(chars)))
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", errors.Wrap(err, "reading random bytes")
		}
		b.WriteByte(chars[idx.Int64()])
	}
	return b.String(), nil
}

// GenerateCredentials derives a login from the student's name: up to 8
// lowercased characters of the squashed full name plus a 4-digit random
// suffix, and a 10-character random alphanumeric password.
func GenerateCredentials(fullName string) (username, password string, err error) {
	base := strings.ToLower(strings.Join(strings.Fields(fullName), ""))
	// truncate runes, not bytes: names are not always ASCII
	if runes := []rune(base); len(runes) > usernameBaseLen {
		base = string(runes[:usernameBaseLen])
	}

	suffix, err := randomString(digits, usernameSuffixLen)
	if err != nil {
		return "", "", err
	}
	password, err = randomString(passwordChars, passwordLen)
	if err != nil {
		return "", "", err
	}
	return base + suffix, password, nil
}
