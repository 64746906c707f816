package beam

import (
	"fmt"
	"os"
	"path/filepath"

	json "github.com/KevinWang15/go-json5"
)

// Wildcard matches every antenna name in a table entry.
const Wildcard = "*"

// TableEntry assigns a registered voltage-pattern image to a set of antennas.
type TableEntry struct {
	Antennas []string `json:"antennas"`
	Image    string   `json:"image"`
}

// Table is an explicit antenna-to-beam assignment supplied by the user.
type Table struct {
	Entries []TableEntry `json:"entries"`
}

// Match returns the index of the entry that applies to antennaName. When
// several entries match, the last one wins.
func (t *Table) Match(antennaName string) (int, bool) {
	idx := -1
	for i, e := range t.Entries {
		for _, a := range e.Antennas {
			if a == Wildcard || a == antennaName {
				idx = i
				break
			}
		}
	}
	return idx, idx >= 0
}

// LoadTable reads a beam table from a JSON5 file, which allows comments and
// trailing commas.
func LoadTable(path string) (*Table, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read beam table: %w", err)
	}
	var t Table
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse beam table %s: %w", path, err)
	}
	for i, e := range t.Entries {
		if e.Image == "" {
			return nil, fmt.Errorf("beam table %s: entry %d has no image", path, i)
		}
		if len(e.Antennas) == 0 {
			return nil, fmt.Errorf("beam table %s: entry %d lists no antennas", path, i)
		}
	}
	return &t, nil
}
