package settings

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// readOverride decodes an optional override file into out. Stock firmware
// ships JSON; hand-written overrides may be YAML. A missing file is not an
// error and is not logged. Anything else is logged and reported as not found
// so the caller keeps its defaults.
func (s *Settings) readOverride(path string, out interface{}) bool {
	if path == "" {
		return false
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Error().Err(err).Str("path", path).Msg("Failed to read override file")
		}
		return false
	}

	if err := decodeOverride(data, out); err != nil {
		s.logger.Error().Err(err).Str("path", path).Msg("Failed to parse override file")
		return false
	}

	s.logger.Debug().Str("path", path).Msg("Loaded override file")
	return true
}

func decodeOverride(data []byte, out interface{}) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return fmt.Errorf("empty document")
	}
	if trimmed[0] == '{' || trimmed[0] == '[' {
		return json.Unmarshal(trimmed, out)
	}
	return yaml.Unmarshal(trimmed, out)
}
