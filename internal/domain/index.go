package domain

import (
	"encoding/json"
	"strings"
)

// IndexTemplate is a stored index template as accepted by the backend.
type IndexTemplate struct {
	Body     json.RawMessage
	Name     string
	Patterns []string
	Aliases  []string
}

// StoredDocument is an indexed document held by the backend.
type StoredDocument struct {
	Source json.RawMessage `json:"_source"`
	Index  string          `json:"_index"`
	Type   string          `json:"_type"`
	Seq    int64           `json:"_seq_no"`
}

// SearchQuery selects stored documents. Patterns are index names where a
// trailing '*' matches any suffix; an empty Type matches every type.
type SearchQuery struct {
	Type     string
	Patterns []string
	Limit    int
}

// MatchIndex reports whether name is selected by pattern.
func MatchIndex(pattern, name string) bool {
	if prefix, ok := strings.CutSuffix(pattern, "*"); ok {
		return strings.HasPrefix(name, prefix)
	}
	return pattern == name
}

// Match reports whether d is selected by q, ignoring Limit.
func (q SearchQuery) Match(d StoredDocument) bool {
	if q.Type != "" && q.Type != d.Type {
		return false
	}
	if len(q.Patterns) == 0 {
		return true
	}
	for _, p := range q.Patterns {
		if MatchIndex(p, d.Index) {
			return true
		}
	}
	return false
}
