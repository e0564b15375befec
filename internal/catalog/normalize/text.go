// Package normalize holds the pure field normalizers. None of them return
// errors: malformed input degrades to a documented default.
package normalize

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// CleanText applies NFKC, drops control characters (including the marker
// sentinel), trims every line and collapses runs of spaces. Newlines survive.
func CleanText(s string) string {
	if s == "" {
		return ""
	}
	s = norm.NFKC.String(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\n':
			b.WriteRune(r)
		case r == '\t' || r == '\r' || r == ' ':
			b.WriteRune(' ')
		case unicode.IsControl(r) || r == '\uFEFF':
		default:
			b.WriteRune(r)
		}
	}
	lines := strings.Split(b.String(), "\n")
	out := lines[:0]
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

var trademarkStripper = strings.NewReplacer("™", "", "®", "", "©", "")

// NormalizeStrainKey is the lookup key for lineage overrides.
func NormalizeStrainKey(strain string) string {
	s := CleanText(trademarkStripper.Replace(strain))
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

var vendorLicensePrefix = regexp.MustCompile(`^\d+\s*-\s*`)

// CleanVendor strips a leading license number ("12345 - Acme" -> "Acme").
func CleanVendor(v string) string {
	v = CleanText(v)
	if stripped := vendorLicensePrefix.ReplaceAllString(v, ""); stripped != "" {
		return stripped
	}
	return v
}

var nameWeightSuffix = regexp.MustCompile(`(?i)\s+-\s+\d+(?:\.\d+)?\s*(?:g|mg|oz|ml)\s*$`)

// Description prefers the description column and otherwise derives it from
// the product name minus a trailing " - <weight>" suffix.
func Description(description, productName string) string {
	if d := CleanText(description); d != "" {
		return d
	}
	name := CleanText(productName)
	return strings.TrimSpace(nameWeightSuffix.ReplaceAllString(name, ""))
}

// MatchText is the text the cannabinoid and ratio rules scan: the
// description plus the product name when the name adds anything.
func MatchText(description, productName string) string {
	name := CleanText(productName)
	if name == "" || strings.EqualFold(name, description) {
		return description
	}
	if description == "" {
		return name
	}
	return description + "\n" + name
}

// ParseBool reads yes/no style cells; anything unrecognised is false.
func ParseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "y", "true", "t", "1", "x":
		return true
	}
	return false
}
