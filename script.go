package scriptstore

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Key layout in the store.
const (
	ScriptKeyPrefix = "script:"
	NameKeyPrefix   = "name:"
	AllScriptsKey   = "scripts:all"
)

// Script is a named block of text persisted under script:{id}.
type Script struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	OriginalName string    `json:"originalName"`
	Content      string    `json:"content"`
	Created      time.Time `json:"created"`
	Updated      time.Time `json:"updated"`
}

// CreateInput carries the fields accepted when creating a script.
type CreateInput struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// UpdateInput carries the fields accepted when updating a script.
type UpdateInput struct {
	ID      string `json:"id"`
	Content string `json:"content"`
}

func scriptKey(id string) string { return ScriptKeyPrefix + id }

func nameKey(slug string) string { return NameKeyPrefix + slug }

func encodeScript(s Script) ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode script %s: %w", s.ID, err)
	}
	return data, nil
}

var errEmptyRecord = errors.New("empty record")

// decodeScript is the only place stored bytes become a Script. Records are
// JSON objects; older writers stored the object as a JSON string, which is
// unwrapped once.
func decodeScript(data []byte) (Script, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return Script{}, errEmptyRecord
	}
	if data[0] == '"' {
		var inner string
		if err := json.Unmarshal(data, &inner); err != nil {
			return Script{}, fmt.Errorf("decode script: %w", err)
		}
		data = bytes.TrimSpace([]byte(inner))
	}
	if len(data) == 0 || data[0] != '{' {
		return Script{}, fmt.Errorf("decode script: not a json object")
	}
	var s Script
	if err := json.Unmarshal(data, &s); err != nil {
		return Script{}, fmt.Errorf("decode script: %w", err)
	}
	return s, nil
}
