package routing

import (
	"encoding/json"
	"fmt"
	"os"
)

// Directory maps a service category to its ordered failover backends.
// The primary backend shares the category's name and is implicit; it is never
// listed in the directory and is always tried first. A Directory is immutable
// after load; reloading means constructing a new Router.
type Directory map[string][]string

// LoadDirectory reads the failover directory from a JSON file of the form
// {"category": ["backend1", "backend2"]}. A missing file is ErrConfigMissing.
func LoadDirectory(path string) (Directory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigMissing, path)
		}
		return nil, fmt.Errorf("read failover directory: %w", err)
	}

	var d Directory
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parse failover directory %s: %w", path, err)
	}
	return d, nil
}

// Candidates returns the ordered backend list for a category: the implicit
// primary first, then the configured failovers. Unknown categories yield just
// the primary.
func (d Directory) Candidates(category string) []string {
	out := make([]string, 0, 1+len(d[category]))
	out = append(out, category)
	out = append(out, d[category]...)
	return out
}
