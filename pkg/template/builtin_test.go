package template

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestYesNoCanonicalizeAndAggregate(t *testing.T) {
	tpl := YesNo{}
	require.NoError(t, tpl.ValidateBallot(true, nil))
	require.NoError(t, tpl.ValidateBallot(false, nil))
	assert.Error(t, tpl.ValidateBallot("yes", nil))

	yesBytes, err := tpl.Canonicalize(true, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte("yes"), yesBytes)

	noBytes, err := tpl.Canonicalize(false, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte("no"), noBytes)

	// scenario S1 tally: two yes ballots and one no
	agg, err := tpl.Aggregate([]any{true, true, false}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, agg["yes"])
	assert.Equal(t, 1, agg["no"])
	assert.Equal(t, 3, agg["total"])
}

func TestMultipleChoiceValidatesAgainstChoiceList(t *testing.T) {
	tpl := MultipleChoice{}
	params := map[string]any{"choices": []any{"red", "green", "blue"}}

	require.NoError(t, tpl.ValidateParams(params))
	require.NoError(t, tpl.ValidateBallot("green", params))
	assert.Error(t, tpl.ValidateBallot("purple", params))

	b, err := tpl.Canonicalize("green", params)
	require.NoError(t, err)
	assert.Equal(t, []byte("green"), b)

	agg, err := tpl.Aggregate([]any{"red", "green", "green"}, params)
	require.NoError(t, err)
	results := agg["results"].(map[string]any)
	assert.Equal(t, 1, results["red"])
	assert.Equal(t, 2, results["green"])
	assert.Equal(t, 0, results["blue"])
	assert.Equal(t, 3, agg["total"])
}

func TestMultipleChoiceRejectsOutOfBoundsChoiceCount(t *testing.T) {
	tpl := MultipleChoice{}
	assert.Error(t, tpl.ValidateParams(map[string]any{"choices": []any{}}))
	assert.Error(t, tpl.ValidateParams(map[string]any{}))
}

// scenario S4: numeric_range canonicalization of 3.14 and 1.0.
func TestNumericRangeCanonicalizationGoldenVectors(t *testing.T) {
	tpl := NumericRange{}

	b, err := tpl.Canonicalize(3.14, nil)
	require.NoError(t, err)
	assert.Equal(t, "3.14", string(b))

	b, err = tpl.Canonicalize(1.0, nil)
	require.NoError(t, err)
	assert.Equal(t, "1", string(b))
}

func TestNumericRangeValidatesBounds(t *testing.T) {
	tpl := NumericRange{}
	params := map[string]any{"min": 0.0, "max": 10.0}

	require.NoError(t, tpl.ValidateBallot(5.0, params))
	assert.Error(t, tpl.ValidateBallot(-1.0, params))
	assert.Error(t, tpl.ValidateBallot(10.5, params))
	assert.Error(t, tpl.ValidateBallot(nil, params))
}

func TestNumericRangeRejectsNonFiniteValues(t *testing.T) {
	tpl := NumericRange{}
	assert.Error(t, tpl.ValidateBallot(math.NaN(), nil))
	assert.Error(t, tpl.ValidateBallot(math.Inf(1), nil))
}

func TestNumericRangeAggregate(t *testing.T) {
	tpl := NumericRange{}
	agg, err := tpl.Aggregate([]any{1.0, 2.0, 3.0}, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, agg["count"])
	assert.Equal(t, 6.0, agg["sum"])
	assert.Equal(t, 2.0, agg["average"])
	assert.Equal(t, 1.0, agg["min"])
	assert.Equal(t, 3.0, agg["max"])
}

// scenario S5: ranking ballots producing A=8, B=6, C=4 Borda scores.
func TestRankingBordaCountGoldenVector(t *testing.T) {
	tpl := Ranking{}
	params := map[string]any{"options": []any{"A", "B", "C"}}

	ballots := []any{
		[]any{"A", "B", "C"},
		[]any{"B", "A", "C"},
		[]any{"A", "C", "B"},
	}
	agg, err := tpl.Aggregate(ballots, params)
	require.NoError(t, err)

	ranking := agg["ranking"].([]map[string]any)
	require.Len(t, ranking, 3)
	assert.Equal(t, "A", ranking[0]["option"])
	assert.Equal(t, 8, ranking[0]["score"])
	assert.Equal(t, "B", ranking[1]["option"])
	assert.Equal(t, 6, ranking[1]["score"])
	assert.Equal(t, "C", ranking[2]["option"])
	assert.Equal(t, 4, ranking[2]["score"])
}

func TestRankingTiesBreakByFirstAppearance(t *testing.T) {
	tpl := Ranking{}
	params := map[string]any{"options": []any{"X", "Y"}}

	// Both ballots are symmetric, so X and Y tie at score 3 apiece. Y
	// appears first (ballot 1 ranks it first), so it must win the tie.
	ballots := []any{
		[]any{"Y", "X"},
		[]any{"X", "Y"},
	}
	agg, err := tpl.Aggregate(ballots, params)
	require.NoError(t, err)
	ranking := agg["ranking"].([]map[string]any)
	assert.Equal(t, "Y", ranking[0]["option"])
	assert.Equal(t, "X", ranking[1]["option"])
}

func TestRankingValidatesPermutation(t *testing.T) {
	tpl := Ranking{}
	params := map[string]any{"options": []any{"A", "B", "C"}}

	require.NoError(t, tpl.ValidateBallot([]any{"A", "B", "C"}, params))
	assert.Error(t, tpl.ValidateBallot([]any{"A", "B"}, params))
	assert.Error(t, tpl.ValidateBallot([]any{"A", "B", "D"}, params))
	assert.Error(t, tpl.ValidateBallot([]any{"A", "A", "C"}, params))
}

func TestRegistryHasAllFourBuiltins(t *testing.T) {
	ids := IDs()
	assert.Equal(t, []string{"multiple_choice", "numeric_range", "ranking", "yes_no"}, ids)
}
