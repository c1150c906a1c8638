package providers

import (
	"encoding/json"
	"fmt"

	"graph-context/src/internal/types"
)

// rawLocation covers both result shapes a location provider may return: a
// plain Location and a LocationLink. Links are normalized by discarding the
// origin range and keeping only the target URI and target range.
type rawLocation struct {
	URI   string       `json:"uri"`
	Range *types.Range `json:"range"`

	TargetURI            string       `json:"targetUri"`
	TargetRange          *types.Range `json:"targetRange"`
	TargetSelectionRange *types.Range `json:"targetSelectionRange"`
}

func (r rawLocation) normalize() (types.Location, bool) {
	if r.TargetURI != "" {
		rng := r.TargetRange
		if rng == nil {
			rng = r.TargetSelectionRange
		}
		if rng == nil {
			return types.Location{}, false
		}
		return types.Location{URI: r.TargetURI, Range: *rng}, true
	}
	if r.URI == "" || r.Range == nil {
		return types.Location{}, false
	}
	return types.Location{URI: r.URI, Range: *r.Range}, true
}

// parseLocations converts a raw provider response into normalized locations.
// Accepts null, a single location object, an array of locations or an array
// of location links; anything else yields nil.
func parseLocations(raw json.RawMessage) ([]types.Location, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var many []rawLocation
	if err := json.Unmarshal(raw, &many); err == nil {
		out := make([]types.Location, 0, len(many))
		for _, r := range many {
			if loc, ok := r.normalize(); ok {
				out = append(out, loc)
			}
		}
		return out, nil
	}

	var one rawLocation
	if err := json.Unmarshal(raw, &one); err != nil {
		return nil, fmt.Errorf("unrecognized location shape: %w", err)
	}
	if loc, ok := one.normalize(); ok {
		return []types.Location{loc}, nil
	}
	return nil, nil
}

// markedString covers the deprecated MarkedString union: a bare string or a
// language-tagged code block.
type markedString struct {
	Language string `json:"language"`
	Value    string `json:"value"`
	plain    string
}

func (m *markedString) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &m.plain)
	}
	type alias struct {
		Language string `json:"language"`
		Value    string `json:"value"`
	}
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	m.Language = a.Language
	m.Value = a.Value
	return nil
}

func (m markedString) block() string {
	if m.plain != "" {
		return m.plain
	}
	if m.Value == "" {
		return ""
	}
	// Language-tagged blocks are code by definition; restore the fences so
	// downstream code detection works uniformly.
	lang := m.Language
	return "```" + lang + "\n" + m.Value + "\n```"
}

type rawHover struct {
	Contents json.RawMessage `json:"contents"`
}

// parseHover converts a raw hover response into content blocks. Handles
// MarkupContent, a single MarkedString and MarkedString arrays.
func parseHover(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var hover rawHover
	if err := json.Unmarshal(raw, &hover); err != nil {
		return nil, fmt.Errorf("unrecognized hover shape: %w", err)
	}
	if len(hover.Contents) == 0 || string(hover.Contents) == "null" {
		return nil, nil
	}

	// MarkupContent: {kind, value}. The value keeps whatever fences the
	// server produced.
	var markup struct {
		Kind  string `json:"kind"`
		Value string `json:"value"`
	}
	if err := json.Unmarshal(hover.Contents, &markup); err == nil && markup.Kind != "" {
		if markup.Value == "" {
			return nil, nil
		}
		return []string{markup.Value}, nil
	}

	var list []markedString
	if err := json.Unmarshal(hover.Contents, &list); err == nil {
		out := make([]string, 0, len(list))
		for _, m := range list {
			if b := m.block(); b != "" {
				out = append(out, b)
			}
		}
		return out, nil
	}

	var single markedString
	if err := json.Unmarshal(hover.Contents, &single); err != nil {
		return nil, fmt.Errorf("unrecognized hover contents: %w", err)
	}
	if b := single.block(); b != "" {
		return []string{b}, nil
	}
	return nil, nil
}
