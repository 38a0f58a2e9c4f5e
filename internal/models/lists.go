package models

import (
	"bytes"
	"encoding/json"
	"slices"
	"strings"
)

// StringList is a list field the platform may store either as a JSON array
// or as a string holding a JSON-encoded array. Null, empty and malformed
// values decode to an empty list.
type StringList []string

func (l *StringList) UnmarshalJSON(data []byte) error {
	*l = decodeList[string](data)
	return nil
}

func (l StringList) MarshalJSON() ([]byte, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(l))
}

func (l StringList) Contains(v string) bool {
	return slices.Contains(l, v)
}

// SectionList decodes matchedSections with the same leniency as StringList.
type SectionList []MatchedSection

func (l *SectionList) UnmarshalJSON(data []byte) error {
	*l = decodeList[MatchedSection](data)
	return nil
}

func (l SectionList) MarshalJSON() ([]byte, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]MatchedSection(l))
}

func decodeList[T any](data []byte) []T {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return []T{}
	}
	if data[0] == '"' {
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return []T{}
		}
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return []T{}
		}
		data = []byte(raw)
	}
	var out []T
	if err := json.Unmarshal(data, &out); err != nil || out == nil {
		return []T{}
	}
	return out
}

// ParseStringList decodes a raw stored value, e.g. a form field.
func ParseStringList(raw string) StringList {
	return decodeList[string]([]byte(raw))
}
