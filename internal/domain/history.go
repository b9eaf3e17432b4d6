package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// HistoryEntry is one past transcription shown in the history list.
type HistoryEntry struct {
	Title string `json:"title"`
	Path  string `json:"path"`
	Date  string `json:"date"`

	// Extra holds fields written by other tools so a rewrite keeps them.
	Extra map[string]json.RawMessage `json:"-"`
}

var historyFields = []string{"title", "path", "date"}

// UnmarshalJSON decodes the known fields and retains the rest in Extra.
func (e *HistoryEntry) UnmarshalJSON(data []byte) error {
	if string(bytes.TrimSpace(data)) == "null" {
		return nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	known := []*string{&e.Title, &e.Path, &e.Date}
	for i, name := range historyFields {
		raw, ok := fields[name]
		delete(fields, name)
		if !ok || string(raw) == "null" {
			*known[i] = ""
			continue
		}
		if err := json.Unmarshal(raw, known[i]); err != nil {
			return fmt.Errorf("history entry %s: %w", name, err)
		}
	}

	e.Extra = nil
	if len(fields) > 0 {
		e.Extra = fields
	}
	return nil
}

// MarshalJSON writes title, path and date first, then Extra sorted by key.
func (e HistoryEntry) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	values := []string{e.Title, e.Path, e.Date}
	for i, name := range historyFields {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeField(&buf, name, values[i]); err != nil {
			return nil, err
		}
	}

	keys := make([]string, 0, len(e.Extra))
	for key := range e.Extra {
		if key == "title" || key == "path" || key == "date" {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		buf.WriteByte(',')
		if err := writeField(&buf, key, e.Extra[key]); err != nil {
			return nil, err
		}
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeField(buf *bytes.Buffer, key string, value interface{}) error {
	k, err := json.Marshal(key)
	if err != nil {
		return err
	}
	v, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("history entry %s: %w", key, err)
	}
	buf.Write(k)
	buf.WriteByte(':')
	buf.Write(v)
	return nil
}
