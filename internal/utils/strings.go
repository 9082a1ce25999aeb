package utils

import (
	"strings"
	"unicode"
)

// NormalizeString trims whitespace and normalizes string input
func NormalizeString(s string) string {
	return strings.TrimSpace(s)
}

// DigitsOnly strips everything but ASCII and Unicode decimal digits, mapped to ASCII.
// Persian and Arabic-Indic digits typed on mobile keyboards become 0-9.
func DigitsOnly(s string) string {
	var result strings.Builder
	for _, r := range s {
		if !unicode.IsDigit(r) {
			continue
		}
		if r >= '0' && r <= '9' {
			result.WriteRune(r)
			continue
		}
		if d := digitValue(r); d >= 0 {
			result.WriteByte(byte('0' + d))
		}
	}
	return result.String()
}

func digitValue(r rune) int {
	switch {
	case r >= '۰' && r <= '۹': // extended Arabic-Indic (Persian)
		return int(r - '۰')
	case r >= '٠' && r <= '٩': // Arabic-Indic
		return int(r - '٠')
	}
	return -1
}

// SanitizeUsername applies strict login rules: ASCII letters, digits, space, and _ . @ -
// Whitespace runs collapse and the result is trimmed.
func SanitizeUsername(s string) string {
	var result strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			result.WriteRune(r)
		case r == ' ' || r == '_' || r == '.' || r == '@' || r == '-':
			result.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(result.String()), " ")
}

// IsValidPhone reports whether the input carries at least one digit.
func IsValidPhone(phone string) bool {
	return DigitsOnly(phone) != ""
}
