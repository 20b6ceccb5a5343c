package utils

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	PasswordMinLength = 8
	PasswordMaxLength = 128
	NameMaxLength     = 100
)

var (
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	phoneRegex = regexp.MustCompile(`^\+[1-9]\d{1,14}$`)
)

// FieldErrors collects validation messages per request field
type FieldErrors map[string][]string

// Add appends a message for field
func (f FieldErrors) Add(field, message string) {
	f[field] = append(f[field], message)
}

// Empty reports whether no messages were collected
func (f FieldErrors) Empty() bool {
	return len(f) == 0
}

// ValidateEmail validates an email address
func ValidateEmail(email string) bool {
	return emailRegex.MatchString(email)
}

// ValidatePhone validates an E.164 phone number
func ValidatePhone(phone string) bool {
	return phoneRegex.MatchString(phone)
}

// PasswordProblems returns every rule the password breaks.
// 8 to 128 characters, at least one uppercase letter, one lowercase letter and one digit.
func PasswordProblems(password string) []string {
	var problems []string

	if n := utf8.RuneCountInString(password); n < PasswordMinLength || n > PasswordMaxLength {
		problems = append(problems, "Length must be between 8 and 128.")
	}

	hasUpper := false
	hasLower := false
	hasNumber := false

	for _, char := range password {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsDigit(char):
			hasNumber = true
		}
	}

	if !hasUpper {
		problems = append(problems, "Password must contain at least one uppercase letter")
	}
	if !hasLower {
		problems = append(problems, "Password must contain at least one lowercase letter")
	}
	if !hasNumber {
		problems = append(problems, "Password must contain at least one number")
	}

	return problems
}

// ValidatePassword reports whether the password satisfies every rule
func ValidatePassword(password string) bool {
	return len(PasswordProblems(password)) == 0
}

// ValidateName checks an optional name field
func ValidateName(fields FieldErrors, field string, value *string) {
	if value != nil && utf8.RuneCountInString(*value) > NameMaxLength {
		fields.Add(field, "Longer than maximum length 100.")
	}
}

// ValidateRegistration validates all registration fields and returns the collected problems
func ValidateRegistration(email, password string, firstName, lastName *string) FieldErrors {
	fields := FieldErrors{}

	if !ValidateEmail(email) {
		fields.Add("email", "Not a valid email address.")
	}

	for _, problem := range PasswordProblems(password) {
		fields.Add("password", problem)
	}

	ValidateName(fields, "first_name", firstName)
	ValidateName(fields, "last_name", lastName)

	return fields
}

// SanitizeEmail trims surrounding whitespace. Case is preserved.
func SanitizeEmail(email string) string {
	return strings.TrimSpace(email)
}
