package util

import (
	"golang.org/x/crypto/bcrypt"
)

// PasswordCost is the bcrypt cost used for new hashes. Tests lower it.
var PasswordCost = bcrypt.DefaultCost

// HashPassword turns a plaintext password into a bcrypt hash.
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), PasswordCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// CheckPassword verifies a plaintext password against a bcrypt hash.
func CheckPassword(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
