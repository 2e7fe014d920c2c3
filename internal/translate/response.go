package translate

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mgpai22/cuetrack/internal/llmjson"
)

var errNoTranslation = errors.New("no valid translation JSON found in response")

// keys models commonly wrap the result array in, checked first
var resultKeys = []string{"results", "translations", "data", "items"}

// parseReply turns a raw model reply into translated items
func parseReply(provider, reply string) ([]Item, error) {
	if reply == "" {
		return nil, fmt.Errorf("no text in %s response", provider)
	}

	cleaned := llmjson.Clean(reply)
	results, err := extractTranslationResults(cleaned)
	if err != nil {
		return nil, fmt.Errorf("failed to parse JSON response: %w (response: %s)", err, llmjson.Truncate(cleaned, 200))
	}
	return results, nil
}

func extractTranslationResults(text string) ([]Item, error) {
	var results []Item
	accept := func(raw json.RawMessage) bool {
		var candidate []Item
		if err := json.Unmarshal(raw, &candidate); err != nil || !validateResults(candidate) {
			return false
		}
		results = candidate
		return true
	}

	found := llmjson.Find(llmjson.FixInvalidEscapes(text), func(raw json.RawMessage) bool {
		return llmjson.Unwrap(raw, resultKeys, accept)
	})
	if !found {
		return nil, errNoTranslation
	}
	return results, nil
}

// at least one item carries text
func validateResults(results []Item) bool {
	for _, r := range results {
		if r.Text != "" {
			return true
		}
	}
	return false
}
