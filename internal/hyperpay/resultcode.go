package hyperpay

import "regexp"

// Classification is the verdict for a gateway result code.
type Classification int

const (
	NotSuccess Classification = iota
	Success
)

// codeRule is one entry of the result-code whitelist. Patterns are anchored
// at the start of the code and matched case-sensitively.
type codeRule struct {
	name    string
	pattern *regexp.Regexp
}

// successRules is the fixed whitelist of result-code families treated as
// approved or review-pending for this integration. Any code outside these
// families is a decline.
//
// The 000.400.0[^3] entry excludes codes whose third fraction digit is 3
// (e.g. 000.400.031) while accepting their siblings. The exclusion is a
// business rule inherited from the integration and is pinned by tests.
var successRules = []codeRule{
	{"transaction-succeeded", regexp.MustCompile(`^000\.000\.`)},
	{"success-needs-review", regexp.MustCompile(`^000\.100\.1`)},
	{"pending-300", regexp.MustCompile(`^000\.3`)},
	{"pending-600", regexp.MustCompile(`^000\.6`)},
	{"async-success-except-3", regexp.MustCompile(`^000\.400\.0[^3]`)},
	{"manual-review", regexp.MustCompile(`^000\.400\.100`)},
	{"registered", regexp.MustCompile(`^000\.200`)},
	{"acquirer-pending", regexp.MustCompile(`^800\.400\.5`)},
	{"scheduled", regexp.MustCompile(`^100\.400\.500`)},
}

// Classify decides whether a gateway result code represents success. It is
// pure and total: every string, including the empty string, maps to exactly
// one verdict.
func Classify(code string) Classification {
	if code == "" {
		return NotSuccess
	}
	for _, rule := range successRules {
		if rule.pattern.MatchString(code) {
			return Success
		}
	}
	return NotSuccess
}

// IsSuccessCode reports whether Classify considers the code a success.
func IsSuccessCode(code string) bool {
	return Classify(code) == Success
}
