package fraud

import (
	"context"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/finwatch/fraud-platform/internal/kv"
	"github.com/finwatch/fraud-platform/pkg/sanitize"
)

const ibanCacheTTL = time.Hour

// ibanChecksumChunk is the digit-string chunk size used by the piece-wise
// MOD 97-10 reduction; keeping it at 7 digits means the largest intermediate
// value (remainder*10^7 + chunk) never exceeds int64 range.
const ibanChecksumChunk = 7

// ValidateIBAN runs the Bulgarian IBAN syntactic checks and the ISO 7064
// MOD 97-10 checksum, consulting and populating the `iban:valid:<n>` cache.
// Cache reads/writes are best-effort: any KV error never changes the
// returned result.
func ValidateIBAN(ctx context.Context, kvClient kv.Client, logger *zap.Logger, iban string) (bool, string) {
	normalized := normalizeIBAN(iban)
	cacheKey := "iban:valid:" + normalized

	if kvClient != nil {
		if cached, found, err := kvClient.Get(ctx, cacheKey); err == nil && found {
			valid := cached == "true"
			logIBANValidation(logger, normalized, valid, "")
			return valid, ""
		}
	}

	valid, reason := validateSyntaxAndChecksum(normalized)
	logIBANValidation(logger, normalized, valid, reason)

	if kvClient != nil {
		val := "false"
		if valid {
			val = "true"
		}
		_ = kvClient.Set(ctx, cacheKey, val, ibanCacheTTL)
	}

	return valid, reason
}

// logIBANValidation emits a debug-level record of the validation outcome
// with the IBAN masked — the full number never reaches the log stream.
func logIBANValidation(logger *zap.Logger, iban string, valid bool, reason string) {
	if logger == nil {
		return
	}
	logger.Debug("iban validation",
		zap.String("iban", sanitize.MaskIBAN(iban)),
		zap.Bool("valid", valid),
		zap.String("reason", reason))
}

// normalizeIBAN trims, uppercases, and strips all whitespace.
func normalizeIBAN(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ToUpper(s)
	s = strings.Join(strings.Fields(s), "")
	return s
}

func validateSyntaxAndChecksum(iban string) (bool, string) {
	if iban == "" {
		return false, "null or empty"
	}
	if !strings.HasPrefix(iban, "BG") {
		return false, "must start with BG"
	}
	if len(iban) != 22 {
		return false, "must be exactly 22 characters"
	}
	checkDigits := iban[2:4]
	for _, c := range checkDigits {
		if c < '0' || c > '9' {
			return false, "check digits must be numeric"
		}
	}
	rest := iban[4:]
	for _, c := range rest {
		if !((c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')) {
			return false, "invalid characters"
		}
	}

	if !mod97Checksum(iban) {
		return false, "Invalid IBAN checksum"
	}
	return true, ""
}

// mod97Checksum implements ISO 7064 MOD 97-10: rearrange (move the first
// four characters to the end), substitute letters with ordinal+9, then
// reduce the resulting digit string mod 97 in fixed-size chunks.
func mod97Checksum(iban string) bool {
	rearranged := iban[4:] + iban[:4]

	var digits strings.Builder
	for _, c := range rearranged {
		switch {
		case c >= '0' && c <= '9':
			digits.WriteRune(c)
		case c >= 'A' && c <= 'Z':
			digits.WriteString(strconv.Itoa(int(c-'A') + 10))
		}
	}

	digitStr := digits.String()
	var remainder int64

	for i := 0; i < len(digitStr); i += ibanChecksumChunk {
		end := i + ibanChecksumChunk
		if end > len(digitStr) {
			end = len(digitStr)
		}
		chunk := digitStr[i:end]
		chunkVal, err := strconv.ParseInt(chunk, 10, 64)
		if err != nil {
			return false
		}
		shift := int64(1)
		for j := 0; j < len(chunk); j++ {
			shift *= 10
		}
		remainder = (remainder*shift + chunkVal) % 97
	}

	return remainder == 1
}
