package template

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/luckeedao/votecore/pkg/verr"
)

// ---- yes_no -----------------------------------------------------------

// YesNo is a binary yes/no ballot with no params.
type YesNo struct{}

func (YesNo) ID() string { return "yes_no" }

func (YesNo) ValidateParams(_ map[string]any) error { return nil }

func (YesNo) ValidateBallot(value any, _ map[string]any) error {
	if _, ok := value.(bool); !ok {
		return verr.New(verr.BallotInvalid, "value must be a boolean (true/false)")
	}
	return nil
}

func (YesNo) Canonicalize(value any, _ map[string]any) ([]byte, error) {
	b, ok := value.(bool)
	if !ok {
		return nil, verr.New(verr.BallotInvalid, "value must be a boolean")
	}
	if b {
		return []byte("yes"), nil
	}
	return []byte("no"), nil
}

func (YesNo) Aggregate(values []any, _ map[string]any) (map[string]any, error) {
	var yes, no int
	for _, v := range values {
		b, ok := v.(bool)
		if !ok {
			continue
		}
		if b {
			yes++
		} else {
			no++
		}
	}
	return map[string]any{
		"yes":   yes,
		"no":    no,
		"total": yes + no,
	}, nil
}

func (YesNo) Schema() map[string]any {
	return map[string]any{"type": "boolean", "description": "true for yes, false for no"}
}

// ---- multiple_choice ----------------------------------------------------

// MultipleChoice picks one string out of an ordered, bounded choice list.
type MultipleChoice struct{}

func (MultipleChoice) ID() string { return "multiple_choice" }

func (MultipleChoice) ValidateParams(params map[string]any) error {
	_, err := choicesOf(params)
	return err
}

func (MultipleChoice) ValidateBallot(value any, params map[string]any) error {
	choices, err := choicesOf(params)
	if err != nil {
		return err
	}
	s, ok := value.(string)
	if !ok {
		return verr.New(verr.BallotInvalid, "value must be a string")
	}
	for _, c := range choices {
		if c == s {
			return nil
		}
	}
	return verr.New(verr.BallotInvalid, "invalid choice %q", s)
}

func (MultipleChoice) Canonicalize(value any, _ map[string]any) ([]byte, error) {
	s, ok := value.(string)
	if !ok {
		return nil, verr.New(verr.BallotInvalid, "value must be a string")
	}
	return []byte(s), nil
}

func (MultipleChoice) Aggregate(values []any, params map[string]any) (map[string]any, error) {
	choices, err := choicesOf(params)
	if err != nil {
		return nil, verr.Wrap(verr.StorageError, err, "aggregate multiple_choice")
	}
	counts := make(map[string]any, len(choices))
	for _, c := range choices {
		counts[c] = 0
	}
	total := 0
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		if cur, ok := counts[s].(int); ok {
			counts[s] = cur + 1
			total++
		}
	}
	return map[string]any{
		"total":   total,
		"results": counts,
	}, nil
}

func (MultipleChoice) Schema() map[string]any {
	return map[string]any{"type": "string", "description": "one of the available choices"}
}

func choicesOf(params map[string]any) ([]string, error) {
	raw, ok := params["choices"]
	if !ok {
		return nil, verr.New(verr.InvalidConfig, "template params must contain 'choices'")
	}
	list, ok := asSlice(raw)
	if !ok || len(list) < 1 || len(list) > 20 {
		return nil, verr.New(verr.InvalidConfig, "'choices' must be an array of 1 to 20 strings")
	}
	choices := make([]string, 0, len(list))
	seen := make(map[string]bool, len(list))
	for _, item := range list {
		s, ok := item.(string)
		if !ok || s == "" {
			return nil, verr.New(verr.InvalidConfig, "'choices' entries must be non-empty strings")
		}
		if seen[s] {
			return nil, verr.New(verr.InvalidConfig, "duplicate choice %q", s)
		}
		seen[s] = true
		choices = append(choices, s)
	}
	return choices, nil
}

// ---- numeric_range ------------------------------------------------------

// NumericRange accepts a finite number, optionally bounded by min/max.
type NumericRange struct{}

func (NumericRange) ID() string { return "numeric_range" }

func (NumericRange) ValidateParams(params map[string]any) error {
	_, _, err := rangeOf(params)
	return err
}

func (NumericRange) ValidateBallot(value any, params map[string]any) error {
	n, ok := asFloat(value)
	if !ok {
		return verr.New(verr.BallotInvalid, "value must be a finite number")
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return verr.New(verr.BallotInvalid, "value must be finite")
	}
	min, max, err := rangeOf(params)
	if err != nil {
		return err
	}
	if n < min || n > max {
		return verr.New(verr.BallotInvalid, "value %v outside range [%v, %v]", n, min, max)
	}
	return nil
}

func (NumericRange) Canonicalize(value any, _ map[string]any) ([]byte, error) {
	n, ok := asFloat(value)
	if !ok {
		return nil, verr.New(verr.BallotInvalid, "value must be a number")
	}
	return []byte(formatShortest(n)), nil
}

// formatShortest renders n the way spec.md §4.2 requires: the shortest
// decimal representation that round-trips back to n, fixed-point (no
// exponent), matching the scenario 4 golden vectors ("3.14", "1").
func formatShortest(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}

func (NumericRange) Aggregate(values []any, _ map[string]any) (map[string]any, error) {
	var sum float64
	count := 0
	min := math.Inf(1)
	max := math.Inf(-1)
	for _, v := range values {
		n, ok := asFloat(v)
		if !ok {
			continue
		}
		sum += n
		count++
		if n < min {
			min = n
		}
		if n > max {
			max = n
		}
	}
	avg := 0.0
	if count > 0 {
		avg = sum / float64(count)
	} else {
		min, max = 0, 0
	}
	return map[string]any{
		"count":   count,
		"sum":     sum,
		"average": avg,
		"min":     min,
		"max":     max,
	}, nil
}

func (NumericRange) Schema() map[string]any {
	return map[string]any{"type": "number", "description": "a numeric value within the specified range"}
}

func rangeOf(params map[string]any) (min, max float64, err error) {
	min, max = math.Inf(-1), math.Inf(1)
	if v, ok := params["min"]; ok {
		f, ok := asFloat(v)
		if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, 0, verr.New(verr.InvalidConfig, "'min' must be a finite number")
		}
		min = f
	}
	if v, ok := params["max"]; ok {
		f, ok := asFloat(v)
		if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, 0, verr.New(verr.InvalidConfig, "'max' must be a finite number")
		}
		max = f
	}
	if min > max {
		return 0, 0, verr.New(verr.InvalidConfig, "'min' must not exceed 'max'")
	}
	return min, max, nil
}

// ---- ranking ------------------------------------------------------------

// Ranking is a full permutation of a bounded option set, aggregated by
// Borda count.
type Ranking struct{}

func (Ranking) ID() string { return "ranking" }

func (Ranking) ValidateParams(params map[string]any) error {
	_, err := optionsOf(params)
	return err
}

func (Ranking) ValidateBallot(value any, params map[string]any) error {
	options, err := optionsOf(params)
	if err != nil {
		return err
	}
	ranked, ok := asStringSlice(value)
	if !ok {
		return verr.New(verr.BallotInvalid, "value must be an array of strings")
	}
	if len(ranked) != len(options) {
		return verr.New(verr.BallotInvalid, "ranking must include all options exactly once")
	}
	optionSet := make(map[string]bool, len(options))
	for _, o := range options {
		optionSet[o] = true
	}
	seen := make(map[string]bool, len(ranked))
	for _, item := range ranked {
		if !optionSet[item] {
			return verr.New(verr.BallotInvalid, "invalid option %q in ranking", item)
		}
		if seen[item] {
			return verr.New(verr.BallotInvalid, "option %q ranked more than once", item)
		}
		seen[item] = true
	}
	return nil
}

func (Ranking) Canonicalize(value any, _ map[string]any) ([]byte, error) {
	ranked, ok := asStringSlice(value)
	if !ok {
		return nil, verr.New(verr.BallotInvalid, "value must be an array of strings")
	}
	return []byte(strings.Join(ranked, ",")), nil
}

func (Ranking) Aggregate(values []any, params map[string]any) (map[string]any, error) {
	options, err := optionsOf(params)
	if err != nil {
		return nil, verr.Wrap(verr.StorageError, err, "aggregate ranking")
	}

	scores := make(map[string]int, len(options))
	firstSeen := make(map[string]int, len(options))
	for _, o := range options {
		scores[o] = 0
		firstSeen[o] = -1
	}

	appearance := 0
	for _, v := range values {
		ranked, ok := asStringSlice(v)
		if !ok {
			continue
		}
		k := len(ranked)
		for i, option := range ranked {
			scores[option] += k - i
			if firstSeen[option] == -1 {
				firstSeen[option] = appearance
				appearance++
			}
		}
	}
	// options never mentioned in any ballot still need a deterministic
	// first-appearance slot, ordered after every mentioned option.
	for _, o := range options {
		if firstSeen[o] == -1 {
			firstSeen[o] = appearance
			appearance++
		}
	}

	sorted := make([]string, len(options))
	copy(sorted, options)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if scores[a] != scores[b] {
			return scores[a] > scores[b]
		}
		return firstSeen[a] < firstSeen[b]
	})

	ranking := make([]map[string]any, 0, len(sorted))
	for _, option := range sorted {
		ranking = append(ranking, map[string]any{
			"option": option,
			"score":  scores[option],
		})
	}
	return map[string]any{"ranking": ranking}, nil
}

func (Ranking) Schema() map[string]any {
	return map[string]any{"type": "array", "description": "array of options in order of preference"}
}

func optionsOf(params map[string]any) ([]string, error) {
	raw, ok := params["options"]
	if !ok {
		return nil, verr.New(verr.InvalidConfig, "template params must contain 'options'")
	}
	list, ok := asSlice(raw)
	if !ok || len(list) < 1 || len(list) > 10 {
		return nil, verr.New(verr.InvalidConfig, "'options' must be an array of 1 to 10 strings")
	}
	options := make([]string, 0, len(list))
	seen := make(map[string]bool, len(list))
	for _, item := range list {
		s, ok := item.(string)
		if !ok || s == "" {
			return nil, verr.New(verr.InvalidConfig, "'options' entries must be non-empty strings")
		}
		if seen[s] {
			return nil, verr.New(verr.InvalidConfig, "duplicate option %q", s)
		}
		seen[s] = true
		options = append(options, s)
	}
	return options, nil
}

// ---- dynamic-value helpers ------------------------------------------

// asFloat accepts both float64 (the json.Unmarshal default for numbers)
// and the concrete numeric Go types a programmatic caller (tests, the CLI)
// might pass directly.
func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func asSlice(v any) ([]any, bool) {
	switch s := v.(type) {
	case []any:
		return s, true
	case []string:
		out := make([]any, len(s))
		for i, x := range s {
			out[i] = x
		}
		return out, true
	}
	return nil, false
}

func asStringSlice(v any) ([]string, bool) {
	list, ok := asSlice(v)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		s, ok := item.(string)
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}
