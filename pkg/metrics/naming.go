package metrics

import (
	"regexp"
	"strings"
)

// Naming convention buckets.
const (
	SnakeCase     = "snake_case"
	CamelCase     = "camelCase"
	PascalCase    = "PascalCase"
	UpperCase     = "UPPER_CASE"
	MixedCase     = "mixed"
	NonConforming = "non_conforming"
)

const (
	snakeWeight  = 0.7
	pascalWeight = 0.3
)

var (
	upperPattern  = regexp.MustCompile(`^_*[A-Z][A-Z0-9_]*$`)
	pascalPattern = regexp.MustCompile(`^_*[A-Z][a-zA-Z0-9]*$`)
	snakePattern  = regexp.MustCompile(`^_*[a-z][a-z0-9_]*$`)
	camelPattern  = regexp.MustCompile(`^_*[a-z][a-zA-Z0-9]*$`)
	mixedPattern  = regexp.MustCompile(`^_*[A-Za-z][A-Za-z0-9_]*$`)
)

// ClassifyName places an identifier into exactly one convention bucket.
// Patterns are tried from most to least specific; single-letter capitals
// are PascalCase rather than UPPER_CASE.
func ClassifyName(name string) string {
	core := strings.TrimLeft(name, "_")
	switch {
	case len(core) > 1 && upperPattern.MatchString(name):
		return UpperCase
	case pascalPattern.MatchString(name):
		return PascalCase
	case snakePattern.MatchString(name):
		return SnakeCase
	case camelPattern.MatchString(name):
		return CamelCase
	case mixedPattern.MatchString(name):
		return MixedCase
	default:
		return NonConforming
	}
}

// NamingReport holds per-bucket counts and the weighted compliance score.
type NamingReport struct {
	Counts map[string]int
	Score  float64
}

// Naming scores identifiers against PEP 8: functions and variables are
// expected in snake_case (constants may be UPPER_CASE), classes in
// PascalCase. Group scores are weighted 0.7 and 0.3 and the weights are
// renormalised over the groups that have members. With no identifiers the
// score is 1.
func Naming(functions, classes, variables []string) NamingReport {
	r := NamingReport{Counts: map[string]int{
		SnakeCase: 0, CamelCase: 0, PascalCase: 0,
		UpperCase: 0, MixedCase: 0, NonConforming: 0,
	}}

	snakeTotal, snakeOK := 0, 0
	tally := func(names []string, constantsAllowed bool) {
		for _, name := range names {
			if name == "_" {
				continue
			}
			bucket := ClassifyName(name)
			r.Counts[bucket]++
			snakeTotal++
			if bucket == SnakeCase || (constantsAllowed && bucket == UpperCase) {
				snakeOK++
			}
		}
	}
	tally(functions, false)
	tally(variables, true)

	pascalTotal, pascalOK := 0, 0
	for _, name := range classes {
		bucket := ClassifyName(name)
		r.Counts[bucket]++
		pascalTotal++
		if bucket == PascalCase {
			pascalOK++
		}
	}

	var weighted, weights float64
	if snakeTotal > 0 {
		weighted += snakeWeight * ratio(snakeOK, snakeTotal)
		weights += snakeWeight
	}
	if pascalTotal > 0 {
		weighted += pascalWeight * ratio(pascalOK, pascalTotal)
		weights += pascalWeight
	}
	if weights == 0 {
		r.Score = 1
		return r
	}
	r.Score = round(weighted/weights, 4)
	return r
}
