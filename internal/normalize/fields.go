package normalize

import (
	"regexp"
	"strings"
	"time"
)

var postalCodePattern = regexp.MustCompile(`\d{5}-\d{3}`)

// FormatPostalCode strips every non-digit from raw and formats the remaining
// eight digits as DDDDD-DDD. Any other digit count yields false.
func FormatPostalCode(raw string) (string, bool) {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) != 8 {
		return "", false
	}
	return digits[:5] + "-" + digits[5:], true
}

// ExtractPostalCode returns the first DDDDD-DDD token found in a free-text
// address.
func ExtractPostalCode(address string) (string, bool) {
	m := postalCodePattern.FindString(address)
	return m, m != ""
}

// Age returns the whole years between birth and today. A year is subtracted
// when today's (month, day) falls before the birthday.
func Age(birth, today time.Time) int {
	age := today.Year() - birth.Year()
	if today.Month() < birth.Month() || (today.Month() == birth.Month() && today.Day() < birth.Day()) {
		age--
	}
	return age
}

// YearMonth formats t as a YYYY-MM period.
func YearMonth(t time.Time) string {
	return t.Format("2006-01")
}
