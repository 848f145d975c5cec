package god

import (
	"encoding/json"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// ActionsMarker separates prose from the machine-readable action list in a
// god response.
const ActionsMarker = "===ACTIONS==="

// Action is one requested intervention.
type Action struct {
	Type   string         `json:"type"`
	Params map[string]any `json:"params"`
}

// ParseActions extracts the action list trailing the marker. Parsing is
// lenient: strict JSON first, then repair, then balanced-bracket recovery,
// finally an empty list. It never fails.
func ParseActions(text string) []Action {
	idx := strings.Index(text, ActionsMarker)
	if idx < 0 {
		return nil
	}
	raw := strings.TrimSpace(text[idx+len(ActionsMarker):])
	if raw == "" {
		return nil
	}

	if actions, ok := decodeActions(raw); ok {
		return actions
	}
	if repaired, err := jsonrepair.JSONRepair(raw); err == nil {
		if actions, ok := decodeActions(repaired); ok {
			return actions
		}
	}
	if recovered := balancedArray(raw); recovered != "" {
		if actions, ok := decodeActions(recovered); ok {
			return actions
		}
		if repaired, err := jsonrepair.JSONRepair(recovered); err == nil {
			if actions, ok := decodeActions(repaired); ok {
				return actions
			}
		}
	}
	return nil
}

func decodeActions(raw string) ([]Action, bool) {
	var actions []Action
	if err := json.Unmarshal([]byte(raw), &actions); err != nil {
		return nil, false
	}
	return actions, true
}

// balancedArray returns the first balanced [...] span, ignoring brackets
// inside string literals.
func balancedArray(raw string) string {
	start := strings.IndexByte(raw, '[')
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(raw); i++ {
		c := raw[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '[':
			depth++
		case c == ']':
			depth--
			if depth == 0 {
				return raw[start : i+1]
			}
		}
	}
	return ""
}
