package portal

import "strings"

// NormalizeMAC renders a free-form device identifier as six colon separated
// uppercase hex pairs ("00:1A:79:12:34:56"). Separators of any kind are
// ignored. Input that does not contain exactly twelve hex digits once the
// separators are gone is returned unchanged.
func NormalizeMAC(s string) string {
	var hex strings.Builder
	hex.Grow(12)
	for _, r := range strings.TrimSpace(s) {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
			hex.WriteRune(r)
		case r == ':' || r == '-' || r == '.' || r == ' ' || r == '_':
		default:
			return s
		}
	}
	digits := strings.ToUpper(hex.String())
	if len(digits) != 12 {
		return s
	}
	var b strings.Builder
	b.Grow(17)
	for i := 0; i < 12; i += 2 {
		if i > 0 {
			b.WriteByte(':')
		}
		b.WriteString(digits[i : i+2])
	}
	return b.String()
}
