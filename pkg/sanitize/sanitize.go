package sanitize

import (
	"html"
	"regexp"
	"strings"
)

var newlinePattern = regexp.MustCompile(`\r\n|[\r\n]`)

func String(s string) string {
	return html.EscapeString(strings.TrimSpace(s))
}

func LogString(s string) string {
	return newlinePattern.ReplaceAllString(s, " ")
}

func Email(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func AlphaNumeric(s string) string {
	var result strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' || r == '-' {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// MaskIBAN keeps the first 4 and last 4 characters and replaces the rest
// with asterisks, for use in debug-level logging where a full IBAN must
// never appear. IBANs shorter than 8 characters are masked entirely.
func MaskIBAN(iban string) string {
	if len(iban) < 8 {
		return "****"
	}
	return iban[:4] + "****" + iban[len(iban)-4:]
}
