package normalizers

import (
	"regexp"
	"strings"
)

// minPhoneDigits is the shortest digit run treated as a phone number
const minPhoneDigits = 7

// PhoneRules describes the national numbering scheme phones are normalized into
type PhoneRules struct {
	CountryCode    string   // Without "+", e.g. "57"
	NationalLength int      // Digits after the country code
	MobilePrefixes []string // Leading digits of domestic mobile numbers
	// LossyFallback keeps the last NationalLength digits of anything that fits no rule.
	// It can produce a wrong number for malformed input; there is no checksum to catch it.
	LossyFallback bool
}

// DefaultPhoneRules returns the Colombian mobile scheme (+57 3XX XXX XXXX)
func DefaultPhoneRules() PhoneRules {
	return PhoneRules{
		CountryCode:    "57",
		NationalLength: 10,
		MobilePrefixes: []string{"3"},
		LossyFallback:  true,
	}
}

var defaultPhoneRules = DefaultPhoneRules()

// NormalizePhone normalizes a phone number with the default rules
func NormalizePhone(s string) string {
	return defaultPhoneRules.Normalize(s)
}

// Normalize turns a raw phone string into an E.164-like "+<cc><number>" string.
// It returns "" when the input is too short to be meaningful or cannot be salvaged.
func (r PhoneRules) Normalize(raw string) string {
	cleaned := cleanPhone(raw)
	digits := strings.TrimPrefix(cleaned, "+")
	if len(digits) < minPhoneDigits {
		return ""
	}

	plusCC := "+" + r.CountryCode
	internationalLen := len(r.CountryCode) + r.NationalLength

	switch {
	case strings.HasPrefix(cleaned, plusCC) && len(cleaned) == internationalLen+1:
		return cleaned
	case !strings.HasPrefix(cleaned, "+") && strings.HasPrefix(cleaned, r.CountryCode) && len(cleaned) == internationalLen:
		return "+" + cleaned
	case len(cleaned) == r.NationalLength && r.hasMobilePrefix(cleaned):
		return plusCC + cleaned
	case strings.HasPrefix(cleaned, "+"):
		return cleaned
	case strings.HasPrefix(cleaned, r.CountryCode) && len(cleaned) >= internationalLen-1 && len(cleaned) <= internationalLen+1:
		// Off-by-one digit counts are common in the source data; keep them rather than guess
		return "+" + cleaned
	case len(cleaned) == r.NationalLength:
		return plusCC + cleaned
	}

	if !r.LossyFallback || len(digits) < r.NationalLength {
		return ""
	}
	return plusCC + digits[len(digits)-r.NationalLength:]
}

func (r PhoneRules) hasMobilePrefix(number string) bool {
	for _, prefix := range r.MobilePrefixes {
		if strings.HasPrefix(number, prefix) {
			return true
		}
	}
	return false
}

// cleanPhone keeps digits and a single leading "+"
func cleanPhone(raw string) string {
	raw = strings.TrimSpace(raw)
	var b strings.Builder
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && b.Len() == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// PhoneTail returns the last n digits of a phone, or "" when it has fewer digits
func PhoneTail(phone string, n int) string {
	digits := DigitsOnly(phone)
	if n <= 0 || len(digits) < n {
		return ""
	}
	return digits[len(digits)-n:]
}

// DefaultSecondaryIDPattern matches the numeric id in messaging deep links
// such as https://chat.example.com/contacts/123456
const DefaultSecondaryIDPattern = `/(?:chats?|contacts?|conversations?)/(\d+)`

// SecondaryIDExtractor pulls the numeric chat id out of a deep link
type SecondaryIDExtractor struct {
	pattern *regexp.Regexp
}

// NewSecondaryIDExtractor compiles a pattern whose first capture group is the id
func NewSecondaryIDExtractor(pattern string) (*SecondaryIDExtractor, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	return &SecondaryIDExtractor{pattern: re}, nil
}

// Extract returns the id, or "" if the link does not match
func (e *SecondaryIDExtractor) Extract(link string) string {
	link = strings.TrimSpace(link)
	if link == "" {
		return ""
	}
	m := e.pattern.FindStringSubmatch(link)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}

var defaultSecondaryIDs = &SecondaryIDExtractor{pattern: regexp.MustCompile(DefaultSecondaryIDPattern)}

// ExtractSecondaryID extracts the chat id with the default pattern
func ExtractSecondaryID(link string) string {
	return defaultSecondaryIDs.Extract(link)
}
