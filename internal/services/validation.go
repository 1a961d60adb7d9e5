package services

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Minimum lengths, in characters after trimming
const (
	MinNameLength        = 2
	MinCompanyLength     = 2
	MinPhoneLength       = 8
	MinDescriptionLength = 10
)

// One or more non-space non-@ characters, "@", the same, a dot, the same.
// The class also excludes \v, Unicode space separators and BOM so that
// addresses containing them are rejected like ASCII whitespace.
var emailPattern = regexp.MustCompile(`(?i)^[^\s\v\pZ\x{FEFF}@]+@[^\s\v\pZ\x{FEFF}@]+\.[^\s\v\pZ\x{FEFF}@]+$`)

// IsValidEmail checks the trimmed address against the email pattern
func IsValidEmail(email string) bool {
	return emailPattern.MatchString(strings.TrimSpace(email))
}

// NormalizeEmail trims and lower-cases an address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// hasMinLength counts runes of the trimmed value. Characters outside the
// BMP, such as emoji, count once here where a UTF-16 length counts them twice.
func hasMinLength(value string, min int) bool {
	return utf8.RuneCountInString(strings.TrimSpace(value)) >= min
}

// normalizeCommand lower-cases and trims a message for command matching
func normalizeCommand(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// parseLeadingInt reads an optional sign and the digits that open text,
// ignoring leading whitespace and anything after the digits, so "2 por favor"
// and "3." both parse. Text without leading digits is rejected.
func parseLeadingInt(text string) (int, bool) {
	s := strings.TrimLeftFunc(text, unicode.IsSpace)

	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, false
	}

	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}
