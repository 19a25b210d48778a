package llm

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/mkraev/rubriceval/internal/model"
)

// ExtractJSON pulls a JSON object out of a free-form model reply. It takes
// the substring from the first '{' to the last '}' and unmarshals it as a
// whole; there is no balanced-brace matching and no partial recovery.
// Returns nil and a descriptive error when no such span exists or the span
// is not valid JSON.
func ExtractJSON(raw string) (map[string]any, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end == -1 || end <= start {
		return nil, fmt.Errorf("no JSON object found in model reply: %q", raw)
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(raw[start:end+1]), &obj); err != nil {
		return nil, fmt.Errorf("decode JSON from model reply %q: %w", raw, err)
	}
	return obj, nil
}

// scoresFromObject converts a parsed reply object into rubric scores,
// rejecting non-numeric and non-integral category values rather than
// altering them.
func scoresFromObject(obj map[string]any) (model.RubricScores, error) {
	scores := make(model.RubricScores, len(obj))
	for k, v := range obj {
		n, ok := v.(float64)
		if !ok {
			return nil, fmt.Errorf("score for category %q is not a number (%T)", k, v)
		}
		if n != math.Trunc(n) {
			return nil, fmt.Errorf("score for category %q is not an integer (%v)", k, n)
		}
		scores[k] = int(n)
	}
	return scores, nil
}
