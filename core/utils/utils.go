package utils

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"regexp"
	"time"
)

func NowUTC() time.Time {
	return time.Now().UTC()
}

func RandString(n int) (string, error) {
	if n <= 0 {
		return "", errors.New("length must be positive")
	}
	buf := make([]byte, (n+1)/2)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf)[:n], nil
}

var usernameRe = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]{2,63}$`)

func ValidateUsername(username string) error {
	if !usernameRe.MatchString(username) {
		return errors.New("username must be 3-64 chars: lowercase letters, digits, '.', '_', '-'")
	}
	return nil
}
