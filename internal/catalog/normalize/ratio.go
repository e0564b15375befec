package normalize

import (
	"regexp"
	"strconv"
	"strings"

	"labelforge/internal/catalog/models"
)

// DefaultRatio is the two-line potency template printed when no usable
// ratio exists.
const DefaultRatio = "THC:\nCBD:"

var (
	cannabinoidPattern = regexp.MustCompile(`(?i)\b(?:THC|CBD|CBG|CBN|CBC)`)
	ratioPattern       = regexp.MustCompile(`\d+(?:\.\d+)?\s*:\s*\d+(?:\.\d+)?(?:\s*:\s*\d+(?:\.\d+)?)?`)
	jointRatioPattern  = regexp.MustCompile(`(?i)^\d+(?:\.\d+)?\s*(?:g|mg|oz)(?:\s*x\s*\d+(?:\s*pack)?)?$`)
	percentPattern     = regexp.MustCompile(`^\s*(\d*\.?\d+)\s*%?\s*$`)
)

var ratioPlaceholders = map[string]struct{}{
	"": {}, "n/a": {}, "na": {}, "none": {}, "-": {}, "--": {}, "null": {},
}

// HasCannabinoid reports a THC/CBD/CBG/CBN/CBC keyword.
func HasCannabinoid(s string) bool { return cannabinoidPattern.MatchString(s) }

// HasRatio reports a number:number[:number] pattern.
func HasRatio(s string) bool { return ratioPattern.MatchString(s) }

// IsJointRatio reports the "<n><unit>[ x <count>[ Pack]]" shape.
func IsJointRatio(s string) bool { return jointRatioPattern.MatchString(strings.TrimSpace(s)) }

// RatioInput gathers the columns ratio selection reads.
type RatioInput struct {
	Type       models.ProductType
	Explicit   string
	JointRatio string
	THC        string
	CBD        string
	Weight     Weight
}

// FormatRatio picks the potency text for a label.
func FormatRatio(in RatioInput) string {
	explicit := CleanText(in.Explicit)

	if in.Type.PreRoll() {
		if joint := CleanText(in.JointRatio); IsJointRatio(joint) {
			return joint
		}
		if IsJointRatio(explicit) {
			return explicit
		}
		if in.Weight.OK && in.Weight.Unit == "g" && in.Weight.Value > 0 {
			if in.Weight.Value == 1 {
				return "1g x 1"
			}
			return FormatNumber(in.Weight.Value) + "g"
		}
	}

	if in.Type.Classic() {
		if usableRatio(explicit) {
			return explicit
		}
		if p := potencyText(in.THC, in.CBD); p != "" {
			return p
		}
		return DefaultRatio
	}

	if HasCannabinoid(explicit) || HasRatio(explicit) {
		return explicit
	}
	return DefaultRatio
}

// usableRatio accepts explicit potency text that names a cannabinoid or
// carries a number; placeholders and free text like "strong" are not.
func usableRatio(s string) bool {
	if _, placeholder := ratioPlaceholders[strings.ToLower(s)]; placeholder {
		return false
	}
	return HasCannabinoid(s) || strings.ContainsAny(s, "0123456789")
}

// potencyText builds "THC: 23.5%\nCBD: 0.1%" from test-result columns.
func potencyText(thc, cbd string) string {
	t, tok := percent(thc)
	c, cok := percent(cbd)
	if !tok && !cok {
		return ""
	}
	line := func(label, v string, ok bool) string {
		if !ok {
			return label + ":"
		}
		return label + ": " + v + "%"
	}
	return line("THC", t, tok) + "\n" + line("CBD", c, cok)
}

func percent(s string) (string, bool) {
	m := percentPattern.FindStringSubmatch(CleanText(s))
	if m == nil {
		return "", false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return "", false
	}
	return FormatNumber(v), true
}
