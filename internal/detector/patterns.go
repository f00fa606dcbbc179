package detector

import (
	"github.com/dlclark/regexp2/v2"
)

// Patterns are compiled once at package init. regexp2 is used for the
// boundary lookarounds std regexp cannot express.
var (
	emailPattern = regexp2.MustCompile(
		`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`, regexp2.None)

	phonePattern = regexp2.MustCompile(
		`(?<![\d\-])\+?\d{1,3}[\s\-]?\(?\d{1,4}\)?([\s\-]?\d{2,4}){2,3}(?![\d\-])`, regexp2.None)

	ibanPattern = regexp2.MustCompile(
		`(?<![A-Z0-9])[A-Z]{2}\d{2}(?:\s?[A-Z0-9]{4}){3,7}(?![A-Z0-9])`, regexp2.None)

	cardPattern = regexp2.MustCompile(
		`(?<!\d)(?:\d[\s\-]?){13,19}(?!\d)`, regexp2.None)

	// National identity numbers in the formats the engine recognises
	// (xx.xx.xx-xxx.xx, xxxxxx-xxxx and 9-digit blocks with a letter suffix).
	nationalIDPattern = regexp2.MustCompile(
		`(?<![\w.\-])(\d{2}\.\d{2}\.\d{2}-\d{3}\.\d{2}|\d{6}-\d{4}|\d{8}[A-Z])(?![\w.\-])`, regexp2.None)
)

// matchAll returns every distinct match of the pattern, in first-seen order.
func matchAll(pattern *regexp2.Regexp, text string) []string {
	var matches []string

	seen := make(map[string]bool)

	m, err := pattern.FindStringMatch(text)
	for err == nil && m != nil {
		value := m.String()
		if !seen[value] {
			seen[value] = true

			matches = append(matches, value)
		}

		m, err = pattern.FindNextMatch(m)
	}

	return matches
}

// luhnValid checks a candidate payment card number, ignoring separators.
func luhnValid(candidate string) bool {
	var digits []int

	for _, r := range candidate {
		if r >= '0' && r <= '9' {
			digits = append(digits, int(r-'0'))
		}
	}

	if len(digits) < 13 || len(digits) > 19 {
		return false
	}

	sum := 0
	double := false

	for i := len(digits) - 1; i >= 0; i-- {
		d := digits[i]
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}

		sum += d
		double = !double
	}

	return sum%10 == 0
}
