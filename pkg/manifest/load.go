package manifest

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/mwolters/polymark/pkg/errors"
)

// Load reads, decodes, defaults, scales, and validates a manifest file.
// The format is dispatched on the file extension (.json or .toml).
func Load(path string) (*Manifest, error) {
	if err := errors.ValidateManifestPath(path); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "manifest %s does not exist", path)
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "cannot read manifest %s", path)
	}

	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	return Parse(data, format)
}

// Parse decodes a manifest document in the given format ("json" or
// "toml") and runs the defaulting, scaling, and validation passes.
func Parse(data []byte, format string) (*Manifest, error) {
	var m Manifest
	switch format {
	case "json":
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidManifest, err, "invalid JSON manifest")
		}
	case "toml":
		if err := toml.Unmarshal(data, &m); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidManifest, err, "invalid TOML manifest")
		}
	default:
		return nil, errors.New(errors.ErrCodeInvalidFormat, "unsupported manifest format %q", format)
	}

	m.ApplyDefaults()
	m.ApplyGlobalScale()
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}
