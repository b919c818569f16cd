package engine

import (
	"strconv"
	"strings"

	"github.com/turnstilehq/turnstile/pkg/api"
)

// FieldMatcher is the default routing-rule evaluator. Comparisons are
// case-insensitive for equality and substring operators; the ordering
// operators compare numerically when both sides parse as numbers and fall
// back to lexicographic comparison otherwise
type FieldMatcher struct{}

func NewFieldMatcher() *FieldMatcher {
	return &FieldMatcher{}
}

func (*FieldMatcher) IsMatch(
	actual string, rule *api.RoutingRule, field *api.Field,
) bool {
	target := rule.Value
	if field != nil && field.Type == api.FieldCheckbox {
		return matchMulti(actual, rule.Operator, target)
	}

	switch rule.Operator {
	case api.OpIs:
		return strings.EqualFold(actual, target)
	case api.OpIsNot:
		return !strings.EqualFold(actual, target)
	case api.OpGreaterThan:
		return compareValues(actual, target) > 0
	case api.OpLessThan:
		return compareValues(actual, target) < 0
	case api.OpContains:
		return strings.Contains(
			strings.ToLower(actual), strings.ToLower(target))
	case api.OpStartsWith:
		return strings.HasPrefix(
			strings.ToLower(actual), strings.ToLower(target))
	case api.OpEndsWith:
		return strings.HasSuffix(
			strings.ToLower(actual), strings.ToLower(target))
	default:
		return false
	}
}

// matchMulti evaluates a rule against a multi-select value, where the actual
// value is a comma-separated list of choices. "is" matches when any choice
// matches; "isnot" matches when no choice does
func matchMulti(actual string, op api.Operator, target string) bool {
	choices := strings.Split(actual, ",")
	switch op {
	case api.OpIs:
		for _, c := range choices {
			if strings.EqualFold(strings.TrimSpace(c), target) {
				return true
			}
		}
		return false
	case api.OpIsNot:
		for _, c := range choices {
			if strings.EqualFold(strings.TrimSpace(c), target) {
				return false
			}
		}
		return true
	case api.OpContains:
		return strings.Contains(
			strings.ToLower(actual), strings.ToLower(target))
	default:
		return false
	}
}

func compareValues(left, right string) int {
	ln, lerr := strconv.ParseFloat(strings.TrimSpace(left), 64)
	rn, rerr := strconv.ParseFloat(strings.TrimSpace(right), 64)
	if lerr == nil && rerr == nil {
		switch {
		case ln < rn:
			return -1
		case ln > rn:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(left, right)
}
