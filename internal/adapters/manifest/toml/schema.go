package toml

import "fmt"

const currentSchemaVersion = 1

type manifestSchema struct {
	Version   int          `toml:"version"`
	Cycle     string       `toml:"cycle"`
	Start     string       `toml:"start"`
	End       string       `toml:"end"`
	WrittenAt string       `toml:"written_at"`
	Items     int          `toml:"items"`
	Counts    countsSchema `toml:"counts"`
	Tasks     []taskSchema `toml:"tasks"`
}

func (s *manifestSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentSchemaVersion
	}
}

func (s manifestSchema) validateVersion() error {
	if s.Version > currentSchemaVersion {
		return fmt.Errorf("unsupported manifest schema version %d (current %d)", s.Version, currentSchemaVersion)
	}

	return nil
}

type countsSchema struct {
	Completed int `toml:"completed"`
	Skipped   int `toml:"skipped_existing"`
	Failed    int `toml:"failed"`
}

type taskSchema struct {
	ItemID string `toml:"item_id"`
	Band   string `toml:"band"`
	State  string `toml:"state"`
	Path   string `toml:"path,omitempty"`
	Bytes  int64  `toml:"bytes,omitempty"`
	Kind   string `toml:"kind,omitempty"`
	Error  string `toml:"error,omitempty"`
}
