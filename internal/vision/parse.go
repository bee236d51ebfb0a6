package vision

import (
	"canvas-e2e/internal/entity"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

const reasonUnparseable = "unparseable"

// ExtractJSONObject returns the first top-level brace-balanced substring of
// text that is valid JSON. Braces inside string literals are ignored, so
// surrounding prose and code fences are tolerated.
func ExtractJSONObject(text string) (string, bool) {
	candidates := jsonObjects(text)
	if len(candidates) == 0 {
		return "", false
	}

	return candidates[0], true
}

// jsonObjects returns every top-level brace-balanced valid JSON substring of
// text in order.
func jsonObjects(text string) []string {
	var out []string

	for _, candidate := range balancedObjects(text) {
		if json.Valid([]byte(candidate)) {
			out = append(out, candidate)
		}
	}

	return out
}

// repairedObjects returns the brace-balanced substrings of text that are not
// valid JSON but can be repaired, such as unquoted keys or trailing commas.
func repairedObjects(text string) []string {
	var out []string

	for _, candidate := range balancedObjects(text) {
		if json.Valid([]byte(candidate)) {
			continue
		}

		repaired, err := jsonrepair.JSONRepair(candidate)
		if err != nil || !json.Valid([]byte(repaired)) {
			continue
		}

		out = append(out, repaired)
	}

	return out
}

// balancedObjects returns the top-level brace-balanced substrings of text.
// Objects nested inside an earlier balanced span are part of that span and
// never candidates of their own.
func balancedObjects(text string) []string {
	var out []string

	for start := strings.IndexByte(text, '{'); start >= 0; {
		resume := start + 1

		if end, ok := matchBrace(text, start); ok {
			out = append(out, text[start:end+1])
			resume = end + 1
		}

		next := strings.IndexByte(text[resume:], '{')
		if next < 0 {
			break
		}

		start = resume + next
	}

	return out
}

// matchBrace returns the index of the brace closing the one at start.
func matchBrace(text string, start int) (int, bool) {
	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(text); i++ {
		c := text[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}

			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}

	return 0, false
}

// ParseAction decodes the first JSON object in text that carries an action
// type. Malformed objects are repaired only when no well-formed one carries
// an action. It reports false when there is none.
func ParseAction(text string) (entity.Action, bool) {
	if action, ok := firstAction(jsonObjects(text)); ok {
		return action, true
	}

	return firstAction(repairedObjects(text))
}

func firstAction(candidates []string) (entity.Action, bool) {
	for _, raw := range candidates {
		var action entity.Action
		if err := json.Unmarshal([]byte(raw), &action); err != nil {
			continue
		}

		if action.Type != "" {
			return action, true
		}
	}

	return entity.Action{}, false
}

// decodeAction is ParseAction with the loop's fallback applied.
func decodeAction(text string) entity.Action {
	action, ok := ParseAction(text)
	if !ok {
		return entity.Action{Type: entity.ActionTypeFailed, Reason: reasonUnparseable}
	}

	return action
}

func parseVerification(text string) (*entity.Verification, error) {
	raw, ok := ExtractJSONObject(text)
	if !ok {
		return nil, errors.New("no JSON object in verification reply")
	}

	var verification entity.Verification
	if err := json.Unmarshal([]byte(raw), &verification); err != nil {
		return nil, fmt.Errorf("decode verification: %w", err)
	}

	return &verification, nil
}

// historyLine renders an action for the execution history.
func historyLine(action entity.Action) string {
	return fmt.Sprintf("%s: %s %s (%s)", action.Type, action.Target, action.Value, action.Reason)
}
