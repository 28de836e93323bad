// Package assert implements the declarative assertion engine shared by
// the infrastructure-test plugin and the HTTP status beacon. An
// expectation is either a literal boolean or a match value paired with
// a comparison kind; evaluation compares it against an observed value
// probed from an external system.
package assert

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	driftkiterrors "github.com/driftkit/driftkit/pkg/errors"
)

// Comparison identifies one member of the fixed comparison vocabulary.
// Dispatch is a closed switch so that a new kind cannot be added
// without handling it in Evaluate.
//
// Operand order is fixed for every kind: the observed value is the
// left operand and the match value is the right operand, so
// ComparisonLt passes when observed < match.
type Comparison int

const (
	ComparisonEq Comparison = iota
	ComparisonNe
	ComparisonLt
	ComparisonLe
	ComparisonGt
	ComparisonGe
	// ComparisonSearch treats the match value as a regular expression
	// and passes when it matches anywhere in the observed string.
	ComparisonSearch
)

var comparisonNames = map[Comparison]string{
	ComparisonEq:     "eq",
	ComparisonNe:     "ne",
	ComparisonLt:     "lt",
	ComparisonLe:     "le",
	ComparisonGt:     "gt",
	ComparisonGe:     "ge",
	ComparisonSearch: "search",
}

// ParseComparison resolves a wire-format comparison name. Both the
// mnemonic names ("eq", "le") and the symbolic forms used by beacon
// configs ("=", "<=") are accepted.
func ParseComparison(s string) (Comparison, error) {
	switch strings.TrimSpace(s) {
	case "eq", "=", "==":
		return ComparisonEq, nil
	case "ne", "!=":
		return ComparisonNe, nil
	case "lt", "<":
		return ComparisonLt, nil
	case "le", "<=":
		return ComparisonLe, nil
	case "gt", ">":
		return ComparisonGt, nil
	case "ge", ">=":
		return ComparisonGe, nil
	case "search":
		return ComparisonSearch, nil
	}
	return 0, driftkiterrors.NewUnknownComparisonError(s)
}

func (c Comparison) String() string {
	if name, ok := comparisonNames[c]; ok {
		return name
	}
	return fmt.Sprintf("comparison(%d)", int(c))
}

// UnmarshalYAML decodes a comparison from its wire name.
func (c *Comparison) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := ParseComparison(raw)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Expectation declares what an observed value must look like. Exactly
// one of the two forms is populated: a literal boolean, or a match
// value with a comparison kind. A literal boolean is equivalent to
// {Match: <bool>, Comparison: eq}.
type Expectation struct {
	Literal    *bool
	Match      any
	Comparison Comparison
}

// Bool builds a literal boolean expectation.
func Bool(v bool) Expectation {
	return Expectation{Literal: &v}
}

// Match builds a structured expectation.
func Match(v any, c Comparison) Expectation {
	return Expectation{Match: v, Comparison: c}
}

// UnmarshalYAML decodes either form:
//
//	running: true
//	mode: {match: 0644, comparison: eq}
func (e *Expectation) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		var b bool
		if err := value.Decode(&b); err == nil {
			*e = Bool(b)
			return nil
		}
		return driftkiterrors.NewExpectationTypeError(
			"expected a boolean or a match/comparison mapping, got scalar %q", value.Value)
	}

	var raw struct {
		Match      any        `yaml:"match"`
		Comparison Comparison `yaml:"comparison"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	if raw.Match == nil {
		return driftkiterrors.NewExpectationTypeError("match value is required")
	}
	*e = Match(raw.Match, raw.Comparison)
	return nil
}

// Result is the outcome of evaluating one expectation. Description is
// rendered on success as well as failure so callers can audit-log
// both.
type Result struct {
	Passed      bool
	Description string
}

// Evaluate compares an observed value against an expectation.
//
// A type mismatch between the observed value and the match value is an
// error, not a failed assertion: a probe that returns the wrong kind
// of value indicates misconfiguration, and folding it into `false`
// would hide that from the caller.
func Evaluate(exp Expectation, observed any) (Result, error) {
	if exp.Literal != nil {
		got, ok := observed.(bool)
		if !ok {
			return Result{}, driftkiterrors.NewExpectationTypeError(
				"literal boolean expectation requires a boolean observed value, got %T", observed)
		}
		return Result{
			Passed:      got == *exp.Literal,
			Description: fmt.Sprintf("observed %v, expected %v", got, *exp.Literal),
		}, nil
	}

	if exp.Match == nil {
		return Result{}, driftkiterrors.NewExpectationTypeError(
			"expectation has neither a literal boolean nor a match value")
	}

	// A boolean match value short-circuits to equality regardless of
	// the declared kind; ordering booleans is meaningless.
	if want, ok := exp.Match.(bool); ok {
		got, ok := observed.(bool)
		if !ok {
			return Result{}, driftkiterrors.NewExpectationTypeError(
				"boolean match value requires a boolean observed value, got %T", observed)
		}
		return Result{
			Passed:      got == want,
			Description: fmt.Sprintf("observed %v, expected %v", got, want),
		}, nil
	}

	passed, err := compare(observed, exp.Match, exp.Comparison)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Passed:      passed,
		Description: fmt.Sprintf("observed %v %s %v", observed, exp.Comparison, exp.Match),
	}, nil
}

// compare applies one comparison kind with observed on the left.
func compare(observed, match any, kind Comparison) (bool, error) {
	switch kind {
	case ComparisonEq, ComparisonNe:
		eq, err := valuesEqual(observed, match)
		if err != nil {
			return false, err
		}
		if kind == ComparisonNe {
			return !eq, nil
		}
		return eq, nil
	case ComparisonLt, ComparisonLe, ComparisonGt, ComparisonGe:
		cmp, err := order(observed, match)
		if err != nil {
			return false, err
		}
		switch kind {
		case ComparisonLt:
			return cmp < 0, nil
		case ComparisonLe:
			return cmp <= 0, nil
		case ComparisonGt:
			return cmp > 0, nil
		default:
			return cmp >= 0, nil
		}
	case ComparisonSearch:
		pattern, ok := match.(string)
		if !ok {
			return false, driftkiterrors.NewExpectationTypeError(
				"search comparison requires a string pattern, got %T", match)
		}
		text, ok := observed.(string)
		if !ok {
			return false, driftkiterrors.NewExpectationTypeError(
				"search comparison requires a string observed value, got %T", observed)
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return false, driftkiterrors.NewExpectationTypeError(
				"search pattern %q does not compile: %v", pattern, err)
		}
		return re.MatchString(text), nil
	default:
		return false, driftkiterrors.NewUnknownComparisonError(kind.String())
	}
}

func valuesEqual(observed, match any) (bool, error) {
	if of, mf, ok := bothNumeric(observed, match); ok {
		return of == mf, nil
	}
	if reflect.TypeOf(observed) != reflect.TypeOf(match) {
		return false, driftkiterrors.NewExpectationTypeError(
			"cannot compare observed %T with match %T", observed, match)
	}
	return reflect.DeepEqual(observed, match), nil
}

// order returns -1, 0 or 1 for observed relative to match. Numbers are
// compared numerically across integer and float representations;
// strings lexicographically.
func order(observed, match any) (int, error) {
	if of, mf, ok := bothNumeric(observed, match); ok {
		switch {
		case of < mf:
			return -1, nil
		case of > mf:
			return 1, nil
		default:
			return 0, nil
		}
	}

	os, oOK := observed.(string)
	ms, mOK := match.(string)
	if oOK && mOK {
		return strings.Compare(os, ms), nil
	}

	return 0, driftkiterrors.NewExpectationTypeError(
		"ordered comparison requires two numbers or two strings, got %T and %T", observed, match)
}

func bothNumeric(a, b any) (float64, float64, bool) {
	af, aOK := toFloat(a)
	bf, bOK := toFloat(b)
	return af, bf, aOK && bOK
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
