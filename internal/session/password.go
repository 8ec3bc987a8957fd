package session

import (
	"strings"
	"unicode"
)

// MinPasswordLength is the shortest password the backend accepts.
const MinPasswordLength = 12

const specialCharacters = `!@#$%^&*()_+-=[]{};':"\|,.<>/?`

// PasswordProblems lists the rules password breaks, empty if none.
func PasswordProblems(password string) []string {
	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(specialCharacters, r):
			special = true
		}
	}

	var problems []string
	if len([]rune(password)) < MinPasswordLength {
		problems = append(problems, "Password must be at least 12 characters long")
	}
	if !upper {
		problems = append(problems, "Password must contain at least one uppercase letter")
	}
	if !lower {
		problems = append(problems, "Password must contain at least one lowercase letter")
	}
	if !digit {
		problems = append(problems, "Password must contain at least one number")
	}
	if !special {
		problems = append(problems, "Password must contain at least one special character")
	}
	return problems
}

// ValidatePassword checks the password rules and that confirm matches.
func ValidatePassword(password, confirm string) []string {
	problems := PasswordProblems(password)
	if password != confirm {
		problems = append(problems, "Passwords do not match")
	}
	return problems
}
