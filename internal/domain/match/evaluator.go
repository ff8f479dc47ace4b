package match

import "strings"

// Field names used by compiled rule predicates.
const (
	FieldServiceName = "service_name"
	FieldMethod      = "http.method"
	FieldPath        = "http.target"
	attrPrefix       = "attr:"
)

// AttributeField returns the predicate field name for a span attribute.
func AttributeField(key string) string {
	return attrPrefix + key
}

// CompiledRule is a backend rule ready for sampling decisions.
type CompiledRule struct {
	Name       string
	Priority   int
	Rate       float64
	Reservoir  int
	Predicates []FieldPredicate
}

// SpanRequest is a span about to be started, in domain terms.
type SpanRequest struct {
	ServiceName string
	Method      string
	Path        string
	Attributes  map[string]string
}

// EvalResult holds the outcome of evaluating candidates against a span.
type EvalResult struct {
	Matched    *CompiledRule
	Candidates []CandidateResult
}

// Evaluator picks the first applicable rule among candidates.
type Evaluator struct{}

// NewEvaluator creates a new Evaluator.
func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

// Evaluate runs all candidates against the span and returns the first match.
// Candidates are assumed to be pre-sorted by priority ascending, then name
// (as RuleIndex.Build does).
func (e *Evaluator) Evaluate(req *SpanRequest, candidates []*CompiledRule) EvalResult {
	result := EvalResult{
		Candidates: make([]CandidateResult, 0, len(candidates)),
	}

	fieldValues := buildFieldValues(req)

	for _, cr := range candidates {
		res := CandidateResult{RuleName: cr.Name, Matched: true}

		for _, fp := range cr.Predicates {
			val, present := fieldValues[fp.Field]
			if !present && strings.HasPrefix(fp.Field, attrPrefix) {
				res.Matched = false
				res.FailedField = fp.Field
				res.FailedReason = "attribute not present"
				break
			}
			if !fp.Predicate(val) {
				res.Matched = false
				res.FailedField = fp.Field
				res.FailedReason = "value did not match: " + val
				break
			}
		}

		result.Candidates = append(result.Candidates, res)

		if res.Matched && result.Matched == nil {
			result.Matched = cr
		}
	}

	return result
}

func buildFieldValues(req *SpanRequest) map[string]string {
	values := map[string]string{
		FieldServiceName: req.ServiceName,
		FieldMethod:      req.Method,
		FieldPath:        req.Path,
	}
	for k, v := range req.Attributes {
		values[attrPrefix+k] = v
	}
	return values
}
