package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format identifies the encoding of a configuration document.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatForPath picks the document format from a file extension.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// LoadFile reads and decodes the configuration document at path.
func LoadFile(path string) (*Raw, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return Parse(data, FormatForPath(path))
}

// Parse decodes a configuration document. Decoding failures are reported as
// invalid option errors so callers can treat them like any other ConfigError.
func Parse(data []byte, format Format) (*Raw, error) {
	var raw Raw
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, &ConfigError{Section: "document", Message: err.Error(), Err: ErrInvalidOption}
		}
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		if err := dec.Decode(&raw); err != nil {
			return nil, &ConfigError{Section: "document", Message: err.Error(), Err: ErrInvalidOption}
		}
	default:
		return nil, &ConfigError{Section: "document", Message: fmt.Sprintf("unsupported format %q", format), Err: ErrInvalidOption}
	}
	return &raw, nil
}

// LoadAndValidate reads, decodes and validates the document at path.
func LoadAndValidate(path, defaultLogLevel string) (*PipelineConfig, error) {
	raw, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	return Validate(raw, defaultLogLevel)
}
