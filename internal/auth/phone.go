package auth

import "strings"

const (
	minPhoneDigits = 10
	maxPhoneDigits = 15
)

// NormalizePhone drops every character that is not an ASCII digit, keeping digit order.
// "+7 (999) 123-45-67" becomes "79991234567".
func NormalizePhone(raw string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, raw)
}

// IsPhoneValid reports whether a normalized phone has between 10 and 15 digits.
func IsPhoneValid(normalized string) bool {
	n := len(normalized)
	return n >= minPhoneDigits && n <= maxPhoneDigits
}

func isCodeFormatValid(code string, length int) bool {
	if len(code) != length {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}
