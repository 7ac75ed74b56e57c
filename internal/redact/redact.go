// Package redact scrubs PII and secrets from values before they are persisted to the
// audit trail. All functions are pure and safe for concurrent use.
package redact

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"
)

// Sentinels substituted for redacted content.
const (
	Sentinel        = "[REDACTED]"
	SentinelCard    = "[REDACTED_CARD]"
	SentinelCVV     = "[REDACTED_CVV]"
	SentinelSSN     = "[REDACTED_SSN]"
	SentinelAddress = "[REDACTED_ADDRESS]"
	SentinelToken   = "[REDACTED_TOKEN]"
	SentinelOTP     = "[REDACTED_OTP]"
)

// DefaultPreviewLength is the number of runes kept in a free-text preview.
const DefaultPreviewLength = 24

// Options tunes a redaction pass.
type Options struct {
	// AuthContext enables OTP-shaped digit run redaction.
	AuthContext bool
	// PreviewLength overrides DefaultPreviewLength for free-text previews.
	PreviewLength int
}

func (o Options) previewLength() int {
	if o.PreviewLength > 0 {
		return o.PreviewLength
	}
	return DefaultPreviewLength
}

// Preview is the compacted form of a long free-text field.
type Preview struct {
	Preview string `json:"preview"`
	Length  int    `json:"length"`
	BLAKE3  string `json:"blake3"`
}

var (
	cardPattern       = regexp.MustCompile(`\+?\b(?:\d[ -]?){12,18}\d\b`)
	maskedCardPattern = regexp.MustCompile(`(?:\b\d{4}[ -]?)?(?:[*xX•]{4}[ -]?){2,3}\d{4}\b|[*xX•]{8,15}\d{4}\b`)
	cvvPattern        = regexp.MustCompile(`(?i)\b(cvv2?|cvc2?|csc|security code)(\s*[:#=]?\s*)\d{3,4}\b`)
	ssnPattern        = regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)
	nationalIDPattern = regexp.MustCompile(`(?i)\b(ssn|social security(?: number)?|national id|nin|tax id)(\s*[:#=]?\s*)[A-Z0-9][A-Z0-9-]{4,14}[A-Z0-9]\b`)
	emailPattern      = regexp.MustCompile(`[A-Za-z0-9._%+-]+@([A-Za-z0-9-]+(?:\.[A-Za-z0-9-]+)*\.[A-Za-z]{2,})`)
	intlPhonePattern  = regexp.MustCompile(`\+\d[\d ().-]{6,18}\d`)
	nanpPhonePattern  = regexp.MustCompile(`\(?\b\d{3}\)?[ .-]\d{3}[ .-]\d{4}\b`)
	addressPattern    = regexp.MustCompile(`(?i)\b\d{1,6}\s+(?:[a-z0-9.'-]+\s+){1,4}(?:street|st|avenue|ave|road|rd|boulevard|blvd|lane|ln|drive|dr|court|ct|way|place|pl|terrace|ter|circle|cir|highway|hwy|parkway|pkwy)\b\.?`)
	bearerPattern     = regexp.MustCompile(`(?i)\b(bearer)\s+[A-Za-z0-9._~+/-]{16,}=*`)
	apiKeyPattern     = regexp.MustCompile(`\b(?:sk|pk|rk)_(?:live|test)_[A-Za-z0-9]{8,}\b|\bAKIA[0-9A-Z]{16}\b|\bxox[abpr]-[A-Za-z0-9-]{10,}\b`)
	opaquePattern     = regexp.MustCompile(`\b[A-Za-z0-9_-]{32,}\b`)
	otpPattern        = regexp.MustCompile(`\b\d{4,8}\b`)
)

// allowedIdentifiers are provider resource ids kept verbatim for audit correlation.
var allowedIdentifiers = []*regexp.Regexp{
	regexp.MustCompile(`^(?:SM|MM|CA|AC|PN|RE|MG)[0-9a-f]{32}$`),
	regexp.MustCompile(`^wamid\.[A-Za-z0-9+/=_-]+$`),
	regexp.MustCompile(`^mock-[a-z]+-[0-9a-f]{16}$`),
}

// embeddedIDPattern finds identifier candidates inside free text. Matches are
// confirmed with IsAllowedIdentifier before they are shielded from the passes.
var embeddedIDPattern = regexp.MustCompile(`\b[0-9A-Fa-f]{8}-[0-9A-Fa-f]{4}-[0-9A-Fa-f]{4}-[0-9A-Fa-f]{4}-[0-9A-Fa-f]{12}\b` +
	`|\b(?:SM|MM|CA|AC|PN|RE|MG)[0-9a-f]{32}\b|\bwamid\.[A-Za-z0-9+/=_-]+|\bmock-[a-z]+-[0-9a-f]{16}\b`)

// IsAllowedIdentifier reports whether s is a known non-secret identifier.
func IsAllowedIdentifier(s string) bool {
	if _, err := uuid.Parse(s); err == nil && len(s) == 36 {
		return true
	}
	for _, re := range allowedIdentifiers {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

// String redacts sensitive patterns inside s.
func String(s string, opts Options) string {
	if s == "" || IsAllowedIdentifier(strings.TrimSpace(s)) {
		return s
	}

	s, restore := shieldIdentifiers(s)

	out := bearerPattern.ReplaceAllString(s, "${1} "+SentinelToken)
	out = apiKeyPattern.ReplaceAllString(out, SentinelToken)
	out = cvvPattern.ReplaceAllString(out, "${1}${2}"+SentinelCVV)
	out = nationalIDPattern.ReplaceAllString(out, "${1}${2}"+SentinelSSN)
	out = ssnPattern.ReplaceAllString(out, SentinelSSN)
	out = maskedCardPattern.ReplaceAllString(out, SentinelCard)
	out = cardPattern.ReplaceAllStringFunc(out, func(m string) string {
		if strings.HasPrefix(m, "+") {
			return m
		}
		return SentinelCard
	})
	out = emailPattern.ReplaceAllString(out, Sentinel+"@$1")
	out = intlPhonePattern.ReplaceAllStringFunc(out, maskPhone)
	out = nanpPhonePattern.ReplaceAllStringFunc(out, maskPhone)
	out = addressPattern.ReplaceAllString(out, SentinelAddress)
	out = opaquePattern.ReplaceAllStringFunc(out, func(m string) string {
		if IsAllowedIdentifier(m) || !looksOpaque(m) {
			return m
		}
		return SentinelToken
	})
	if opts.AuthContext {
		out = otpPattern.ReplaceAllString(out, SentinelOTP)
	}
	if restore != nil {
		out = restore.Replace(out)
	}
	return out
}

// shieldIdentifiers swaps allow-listed identifiers for digit-free placeholders so the
// numeric passes cannot split them, and returns the replacer that puts them back.
func shieldIdentifiers(s string) (string, *strings.Replacer) {
	var pairs []string
	out := embeddedIDPattern.ReplaceAllStringFunc(s, func(m string) string {
		if !IsAllowedIdentifier(m) {
			return m
		}
		ph := placeholder(len(pairs) / 2)
		pairs = append(pairs, ph, m)
		return ph
	})
	if len(pairs) == 0 {
		return s, nil
	}
	return out, strings.NewReplacer(pairs...)
}

// placeholder spells n with letters between private-use runes.
func placeholder(n int) string {
	var b strings.Builder
	b.WriteRune('\uE000')
	for _, d := range strconv.Itoa(n) {
		b.WriteRune('a' + (d - '0'))
	}
	b.WriteRune('\uE001')
	return b.String()
}

// maskPhone keeps the country code and the last two digits of a phone number.
func maskPhone(m string) string {
	digits := make([]byte, 0, len(m))
	for i := 0; i < len(m); i++ {
		if m[i] >= '0' && m[i] <= '9' {
			digits = append(digits, m[i])
		}
	}
	if len(digits) < 7 {
		return m
	}

	var b strings.Builder
	keepHead := 0
	if strings.HasPrefix(m, "+") {
		b.WriteByte('+')
		keepHead = countryCodeLength(digits)
	}
	const keepTail = 2
	for i, d := range digits {
		if i < keepHead || i >= len(digits)-keepTail {
			b.WriteByte(d)
			continue
		}
		b.WriteByte('*')
	}
	return b.String()
}

// countryCodeLength approximates E.164 country code length: NANP (1) and Russia/
// Kazakhstan (7) use one digit, everything else is treated as two.
func countryCodeLength(digits []byte) int {
	if len(digits) == 0 {
		return 0
	}
	if digits[0] == '1' || digits[0] == '7' {
		return 1
	}
	return 2
}

// looksOpaque requires a mix of letters and digits so long words and pure numbers
// are not mistaken for credentials.
func looksOpaque(s string) bool {
	var letters, digits bool
	for _, r := range s {
		switch {
		case unicode.IsDigit(r):
			digits = true
		case unicode.IsLetter(r):
			letters = true
		}
	}
	return letters && digits
}

var secretKeys = []string{
	"password", "passwd", "passphrase", "secret", "token", "apikey", "key", "authorization",
	"auth", "credential", "credentials", "cookie", "session", "otp", "pin", "cvv", "cvc", "ssn",
	"privatekey", "signature",
}

var freeTextKeys = map[string]struct{}{
	"body": {}, "text": {}, "content": {}, "message": {}, "finaltext": {}, "html": {},
	"transcript": {}, "prompt": {}, "messagebody": {},
}

func normalizeKey(k string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(k) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// IsSecretKey reports whether a map key names a credential-like field.
func IsSecretKey(k string) bool {
	n := normalizeKey(k)
	if n == "" {
		return false
	}
	for _, s := range secretKeys {
		if n == s || strings.HasSuffix(n, s) {
			return true
		}
	}
	return false
}

func isFreeTextKey(k string) bool {
	_, ok := freeTextKeys[normalizeKey(k)]
	return ok
}

// Compact reduces free text to a redacted preview, its length and a content hash.
func Compact(s string, opts Options) Preview {
	sum := blake3.Sum256([]byte(s))
	// Redact before truncating so a cut never exposes part of a pattern.
	preview := String(s, opts)
	if n := opts.previewLength(); utf8.RuneCountInString(preview) > n {
		preview = string([]rune(preview)[:n])
	}
	return Preview{
		Preview: preview,
		Length:  utf8.RuneCountInString(s),
		BLAKE3:  hex.EncodeToString(sum[:]),
	}
}

// Value recursively redacts a decoded JSON-like value.
func Value(v any, opts Options) any {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		return String(t, opts)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = redactField(k, val, opts)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = Value(val, opts)
		}
		return out
	case []string:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = String(val, opts)
		}
		return out
	case map[string]string:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = redactField(k, val, opts)
		}
		return out
	default:
		return v
	}
}

func redactField(key string, val any, opts Options) any {
	if val == nil {
		return nil
	}
	if IsSecretKey(key) {
		return Sentinel
	}
	if s, ok := val.(string); ok && isFreeTextKey(key) {
		return Compact(s, opts)
	}
	return Value(val, opts)
}

// JSON redacts an encoded JSON document. Invalid JSON is treated as a string.
func JSON(raw json.RawMessage, opts Options) json.RawMessage {
	if len(raw) == 0 {
		return raw
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		out, _ := json.Marshal(String(string(raw), opts))
		return out
	}
	out, err := json.Marshal(Value(decoded, opts))
	if err != nil {
		return json.RawMessage(`"` + Sentinel + `"`)
	}
	return out
}

// Marshal encodes v as JSON and redacts the result. A nil v encodes to nil.
func Marshal(v any, opts Options) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	if raw, ok := v.(json.RawMessage); ok {
		return JSON(raw, opts), nil
	}
	encoded, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("redact: encode value: %w", err)
	}
	return JSON(encoded, opts), nil
}
