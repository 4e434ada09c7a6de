package map2rec

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/tidwall/gjson"
)

// LoadJSON returns the object at path (gjson syntax) in a JSON document. An
// empty path selects the whole document.
func LoadJSON(data []byte, path string) (map[string]any, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("invalid json document")
	}
	result := gjson.ParseBytes(data)
	if path = strings.TrimSpace(path); path != "" {
		result = result.Get(path)
	}
	if !result.Exists() {
		return nil, fmt.Errorf("json section not found: %s", path)
	}
	if !result.IsObject() {
		return nil, fmt.Errorf("json section %q is not an object", path)
	}
	fields, ok := result.Value().(map[string]any)
	if !ok {
		return nil, fmt.Errorf("json section %q is not an object", path)
	}
	return fields, nil
}

// LoadTOML returns the table at the dotted path in a TOML document. An empty
// path selects the whole document.
func LoadTOML(data []byte, path string) (map[string]any, error) {
	var doc map[string]any
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode toml: %w", err)
	}
	current := doc
	if path = strings.TrimSpace(path); path != "" {
		for _, part := range strings.Split(path, ".") {
			next, ok := current[part].(map[string]any)
			if !ok {
				return nil, fmt.Errorf("toml table not found: %s", path)
			}
			current = next
		}
	}
	return current, nil
}

// LoadFile reads a JSON or TOML configuration file, chosen by extension, and
// returns the fields at section.
func LoadFile(path, section string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return LoadTOML(data, section)
	default:
		return LoadJSON(data, section)
	}
}
