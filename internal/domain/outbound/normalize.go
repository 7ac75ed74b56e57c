package outbound

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"golang.org/x/net/publicsuffix"

	"github.com/target/mmk-outbound/internal/domain/model"
)

// ErrInvalidDestination wraps every normalization failure.
var ErrInvalidDestination = errors.New("invalid destination")

const (
	minE164Digits = 8
	maxE164Digits = 15
)

// Normalizer canonicalizes channel destinations.
type Normalizer struct {
	// DefaultCountryCode is prepended to national numbers that carry no country
	// code, e.g. "1" for NANP. Empty disables the rewrite.
	DefaultCountryCode string
	// NationalNumberLength is the digit count of a national number for the default
	// country (10 for NANP).
	NationalNumberLength int
}

// NewNormalizer returns a Normalizer for the given default country code.
func NewNormalizer(defaultCountryCode string) *Normalizer {
	cc := strings.TrimPrefix(strings.TrimSpace(defaultCountryCode), "+")
	return &Normalizer{DefaultCountryCode: cc, NationalNumberLength: 10}
}

// Normalize returns the canonical form of raw for ch.
func (n *Normalizer) Normalize(ch model.Channel, raw string) (string, error) {
	switch ch {
	case model.ChannelEmail:
		return normalizeEmail(raw)
	case model.ChannelChat:
		s := strings.TrimSpace(raw)
		lower := strings.ToLower(s)
		for _, prefix := range []string{"whatsapp:", "wa:"} {
			if strings.HasPrefix(lower, prefix) {
				s = s[len(prefix):]
				break
			}
		}
		return n.normalizePhone(s)
	case model.ChannelSMS, model.ChannelVoice:
		s := strings.TrimSpace(raw)
		if strings.HasPrefix(strings.ToLower(s), "tel:") {
			s = s[len("tel:"):]
		}
		return n.normalizePhone(s)
	}
	return "", fmt.Errorf("%w: unsupported channel %q", ErrInvalidDestination, ch)
}

func (n *Normalizer) normalizePhone(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", fmt.Errorf("%w: empty phone number", ErrInvalidDestination)
	}

	international := false
	switch {
	case strings.HasPrefix(s, "+"):
		international = true
		s = s[1:]
	case strings.HasPrefix(s, "00"):
		international = true
		s = s[2:]
	}

	var digits strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits.WriteRune(r)
		case r == ' ' || r == '-' || r == '.' || r == '(' || r == ')':
			continue
		default:
			return "", fmt.Errorf("%w: unexpected character %q in phone number", ErrInvalidDestination, r)
		}
	}
	d := digits.String()

	if !international && n != nil && n.DefaultCountryCode != "" && len(d) == n.NationalNumberLength {
		d = n.DefaultCountryCode + d
	}
	if len(d) < minE164Digits || len(d) > maxE164Digits {
		return "", fmt.Errorf("%w: phone number must have %d-%d digits", ErrInvalidDestination, minE164Digits, maxE164Digits)
	}
	if d[0] == '0' {
		return "", fmt.Errorf("%w: country code cannot start with 0", ErrInvalidDestination)
	}
	return "+" + d, nil
}

func normalizeEmail(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(strings.ToLower(s), "mailto:") {
		s = s[len("mailto:"):]
	}
	addr, err := mail.ParseAddress(s)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidDestination, err)
	}
	local, domain, ok := strings.Cut(addr.Address, "@")
	if !ok || local == "" || domain == "" {
		return "", fmt.Errorf("%w: malformed email address", ErrInvalidDestination)
	}
	domain = strings.TrimSuffix(strings.ToLower(domain), ".")
	if _, err := publicsuffix.EffectiveTLDPlusOne(domain); err != nil {
		return "", fmt.Errorf("%w: email domain %q: %v", ErrInvalidDestination, domain, err)
	}
	if suffix, icann := publicsuffix.PublicSuffix(domain); !icann && !strings.Contains(suffix, ".") {
		return "", fmt.Errorf("%w: email domain %q has no registered suffix", ErrInvalidDestination, domain)
	}
	return strings.ToLower(local) + "@" + domain, nil
}
