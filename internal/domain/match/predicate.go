package match

// Predicate tests a string value and returns true if it matches.
type Predicate func(string) bool

// Always returns a predicate that always matches.
func Always() Predicate {
	return func(string) bool { return true }
}

// Glob returns a predicate for a sampling-rule wildcard pattern: '*' matches
// any run of characters, '?' matches exactly one. Comparison is case-sensitive.
func Glob(pattern string) Predicate {
	if pattern == "" || pattern == "*" {
		return Always()
	}
	return func(s string) bool {
		return globMatch(pattern, s)
	}
}

// globMatch is the iterative star-backtracking matcher.
func globMatch(pattern, s string) bool {
	p, i := 0, 0
	star, mark := -1, 0
	for i < len(s) {
		switch {
		case p < len(pattern) && (pattern[p] == '?' || pattern[p] == s[i]):
			p++
			i++
		case p < len(pattern) && pattern[p] == '*':
			star = p
			mark = i
			p++
		case star >= 0:
			p = star + 1
			mark++
			i = mark
		default:
			return false
		}
	}
	for p < len(pattern) && pattern[p] == '*' {
		p++
	}
	return p == len(pattern)
}

// FieldPredicate binds a named field to its compiled predicate.
type FieldPredicate struct {
	Field     string
	Predicate Predicate
}

// CandidateResult records the evaluation result for a single candidate rule.
type CandidateResult struct {
	RuleName     string `json:"rule_name"`
	Matched      bool   `json:"matched"`
	FailedField  string `json:"failed_field,omitempty"`
	FailedReason string `json:"failed_reason,omitempty"`
}
