package assert

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	driftkiterrors "github.com/driftkit/driftkit/pkg/errors"
)

func TestEvaluateLiteralBool(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		expected bool
		observed bool
		passed   bool
	}{
		{"true matches true", true, true, true},
		{"false matches false", false, false, true},
		{"true against false", true, false, false},
		{"false against true", false, true, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			res, err := Evaluate(Bool(tc.expected), tc.observed)
			require.NoError(t, err)
			require.Equal(t, tc.passed, res.Passed)
			require.NotEmpty(t, res.Description)
		})
	}
}

func TestEvaluateLiteralBoolTypeMismatch(t *testing.T) {
	t.Parallel()

	_, err := Evaluate(Bool(true), "true")

	var typeErr *driftkiterrors.ExpectationTypeError
	require.ErrorAs(t, err, &typeErr)
}

func TestEvaluateComparisons(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		match    any
		kind     Comparison
		observed any
		passed   bool
	}{
		{"eq equal numbers", 1, ComparisonEq, 1, true},
		{"eq unequal numbers", 1, ComparisonEq, 2, false},
		{"eq int against float", 1, ComparisonEq, 1.0, true},
		{"ne unequal numbers", 1, ComparisonNe, 2, true},
		{"ne equal numbers", 1, ComparisonNe, 1, false},
		{"gt observed greater", 1, ComparisonGt, 2, true},
		{"gt observed equal", 1, ComparisonGt, 1, false},
		{"lt observed smaller", 2, ComparisonLt, 1, true},
		{"lt observed greater", 1, ComparisonLt, 2, false},
		{"le observed equal", 2, ComparisonLe, 2, true},
		{"ge observed smaller", 2, ComparisonGe, 1, false},
		{"eq strings", "up", ComparisonEq, "up", true},
		{"eq strings mismatch", "up", ComparisonEq, "down", false},
		{"lt strings lexicographic", "b", ComparisonLt, "a", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			res, err := Evaluate(Match(tc.match, tc.kind), tc.observed)
			require.NoError(t, err)
			require.Equal(t, tc.passed, res.Passed)
			require.NotEmpty(t, res.Description)
		})
	}
}

func TestEvaluateBooleanMatchShortCircuitsToEquality(t *testing.T) {
	t.Parallel()

	// A boolean match value compares by equality regardless of the
	// declared comparison kind.
	res, err := Evaluate(Match(true, ComparisonGe), true)
	require.NoError(t, err)
	require.True(t, res.Passed)

	res, err = Evaluate(Match(true, ComparisonGe), false)
	require.NoError(t, err)
	require.False(t, res.Passed)
}

func TestEvaluateSearch(t *testing.T) {
	t.Parallel()

	res, err := Evaluate(Match("foo.*bar", ComparisonSearch), "some foo and bar text")
	require.NoError(t, err)
	require.True(t, res.Passed)

	res, err = Evaluate(Match("foo.*bar", ComparisonSearch), "no match here")
	require.NoError(t, err)
	require.False(t, res.Passed)
}

func TestEvaluateSearchRejectsBadPattern(t *testing.T) {
	t.Parallel()

	_, err := Evaluate(Match("(unclosed", ComparisonSearch), "text")

	var typeErr *driftkiterrors.ExpectationTypeError
	require.ErrorAs(t, err, &typeErr)
}

func TestEvaluateTypeMismatchIsError(t *testing.T) {
	t.Parallel()

	_, err := Evaluate(Match(50, ComparisonLe), "fifty")

	var typeErr *driftkiterrors.ExpectationTypeError
	require.ErrorAs(t, err, &typeErr)
}

func TestEvaluateEmptyExpectation(t *testing.T) {
	t.Parallel()

	_, err := Evaluate(Expectation{}, 1)

	var typeErr *driftkiterrors.ExpectationTypeError
	require.ErrorAs(t, err, &typeErr)
}

func TestParseComparison(t *testing.T) {
	t.Parallel()

	cases := map[string]Comparison{
		"eq":     ComparisonEq,
		"=":      ComparisonEq,
		"==":     ComparisonEq,
		"ne":     ComparisonNe,
		"!=":     ComparisonNe,
		"lt":     ComparisonLt,
		"<":      ComparisonLt,
		"le":     ComparisonLe,
		"<=":     ComparisonLe,
		"gt":     ComparisonGt,
		">":      ComparisonGt,
		"ge":     ComparisonGe,
		">=":     ComparisonGe,
		"search": ComparisonSearch,
	}

	for raw, want := range cases {
		got, err := ParseComparison(raw)
		require.NoError(t, err, raw)
		require.Equal(t, want, got, raw)
	}
}

func TestParseComparisonUnknownKind(t *testing.T) {
	t.Parallel()

	// An unknown kind surfaces as an error, never as a silent false.
	_, err := ParseComparison("between")

	var unknownErr *driftkiterrors.UnknownComparisonError
	require.ErrorAs(t, err, &unknownErr)
	require.Equal(t, "between", unknownErr.Kind)
}

func TestExpectationUnmarshalYAML(t *testing.T) {
	t.Parallel()

	var exp Expectation
	require.NoError(t, yaml.Unmarshal([]byte("true"), &exp))
	require.NotNil(t, exp.Literal)
	require.True(t, *exp.Literal)

	var structured Expectation
	doc := "match: 50\ncomparison: '<='\n"
	require.NoError(t, yaml.Unmarshal([]byte(doc), &structured))
	require.Nil(t, structured.Literal)
	require.Equal(t, 50, structured.Match)
	require.Equal(t, ComparisonLe, structured.Comparison)
}

func TestExpectationUnmarshalYAMLRejectsBadShapes(t *testing.T) {
	t.Parallel()

	var exp Expectation
	err := yaml.Unmarshal([]byte("'not a bool'"), &exp)
	require.Error(t, err)

	var missing Expectation
	err = yaml.Unmarshal([]byte("comparison: eq"), &missing)
	require.Error(t, err)
}
