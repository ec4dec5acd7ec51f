package concept

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

const indent = "    "

// ParseError is returned by Load and LoadRaw when a concepts file exists
// but cannot be decoded.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse concepts file %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// Marshal renders concepts in the format Save would use for path. Values
// must be valid UTF-8, anything else would not survive a round trip.
func Marshal(concepts []Concept, path string) ([]byte, error) {
	for i, c := range concepts {
		fields := c.Fields()
		for _, field := range RequiredFields {
			if !utf8.ValidString(fields[field]) {
				return nil, fmt.Errorf("concept %d: %s is not valid UTF-8", i, field)
			}
		}
	}
	return encode(concepts, path)
}

func encode(v interface{}, path string) ([]byte, error) {
	if isYAML(path) {
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(len(indent))
		if err := enc.Encode(v); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", indent)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decode(data []byte, path string, v interface{}) error {
	if isYAML(path) {
		return yaml.Unmarshal(data, v)
	}
	return json.Unmarshal(data, v)
}

// Save writes the concepts list to path, replacing any previous content.
// Files ending in .yaml or .yml are written as YAML, everything else as JSON.
// The parent directory must already exist. JSON output keeps &, < and >
// unescaped, and a value that is not valid UTF-8 fails before anything is
// written.
func Save(concepts []Concept, path string) error {
	data, err := Marshal(concepts, path)
	if err != nil {
		return fmt.Errorf("failed to encode concepts: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write concepts file: %w", err)
	}

	if DebugLog != nil {
		DebugLog("saved %d concept(s) to %s", len(concepts), path)
	}

	return nil
}

func Load(path string) ([]Concept, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read concepts file: %w", err)
	}

	var concepts []Concept
	if err := decode(data, path, &concepts); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}

	return concepts, nil
}

// LoadRaw decodes the concepts file into plain mappings so that records
// with missing keys can be told apart from records with empty values.
func LoadRaw(path string) ([]map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read concepts file: %w", err)
	}

	var records []map[string]string
	if err := decode(data, path, &records); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}

	return records, nil
}

// ProvisionDirectories creates the instance data directory of every concept,
// parents included. Class data directories are left to the training script.
func ProvisionDirectories(concepts []Concept) error {
	for _, c := range concepts {
		if err := os.MkdirAll(c.InstanceDataDir, 0755); err != nil {
			return fmt.Errorf("failed to create instance directory %s: %w", c.InstanceDataDir, err)
		}

		if DebugLog != nil {
			DebugLog("instance directory ready: %s", c.InstanceDataDir)
		}
	}

	return nil
}
