package sanitize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString_EscapesHTMLAndTrims(t *testing.T) {
	assert.Equal(t, "&lt;script&gt;", String("  <script>  "))
}

func TestLogString_StripsNewlines(t *testing.T) {
	assert.Equal(t, "line one line two", LogString("line one\nline two"))
	assert.Equal(t, "a b", LogString("a\r\nb"))
}

func TestEmail_LowercasesAndTrims(t *testing.T) {
	assert.Equal(t, "user@example.com", Email("  USER@Example.COM  "))
}

func TestAlphaNumeric_DropsDisallowedCharacters(t *testing.T) {
	assert.Equal(t, "abc_123-XYZ", AlphaNumeric("abc_123-XYZ!@#"))
}

func TestAlphaNumeric_EmptyInputYieldsEmptyOutput(t *testing.T) {
	assert.Equal(t, "", AlphaNumeric("!@#$%"))
}
