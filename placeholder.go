package typegrid

import (
	"regexp"
	"slices"
	"sort"
	"strings"

	"github.com/agext/levenshtein"
)

// placeholderPattern marks a description whose text is supplied at the
// reference site: "PD:xxx:" + digits + letters + "$".
var placeholderPattern = regexp.MustCompile(`^PD:xxx:\d+[a-zA-Z]+\$$`)

const (
	subProcessToken = "xxx"
	rowValueToken   = "yy"
)

// IsPlaceholder reports whether a description is a parametric placeholder.
func IsPlaceholder(description string) bool {
	return placeholderPattern.MatchString(description)
}

// SubstitutePlaceholders replaces "xxx" with the sub-process identifier and
// then "yy" with the row value. An empty value collapses its token to "".
func SubstitutePlaceholders(pattern, subProcess, rowValue string) string {
	out := strings.ReplaceAll(pattern, subProcessToken, subProcess)
	return strings.ReplaceAll(out, rowValueToken, rowValue)
}

// IsBasicType reports whether name is one of the recognized basic types.
// The comparison is exact.
func IsBasicType(name string, basicTypes []string) bool {
	return slices.Contains(basicTypes, name)
}

// suggestPrefixLen is how many leading characters a sheet name must share
// with the requested name to be suggested.
const suggestPrefixLen = 3

// SuggestSheets returns every sheet sharing the first min(3, len(name))
// characters with name, case-insensitively, closest edit distance first.
func SuggestSheets(name string, sheets []string) []string {
	prefix := []rune(name)
	if len(prefix) > suggestPrefixLen {
		prefix = prefix[:suggestPrefixLen]
	}
	p := string(prefix)

	var out []string
	for _, s := range sheets {
		r := []rune(s)
		if len(r) < len(prefix) {
			continue
		}
		if strings.EqualFold(string(r[:len(prefix)]), p) {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return levenshtein.Distance(name, out[i], nil) < levenshtein.Distance(name, out[j], nil)
	})
	return out
}
