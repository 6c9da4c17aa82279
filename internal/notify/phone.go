package notify

import "strings"

// NormalizeNumber strips everything but digits from a raw destination and
// prepends the country prefix to bare regional numbers (10 or 11 digits
// without the prefix). Gateway JIDs like "5511999998888@s.whatsapp.net"
// reduce to their digits.
func NormalizeNumber(raw, countryPrefix string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if countryPrefix == "" {
		return digits
	}
	if (len(digits) == 10 || len(digits) == 11) && !strings.HasPrefix(digits, countryPrefix) {
		return countryPrefix + digits
	}
	return digits
}
