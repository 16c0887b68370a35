// Package status renders an operator table of API keys and quota state.
package status

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/rcallahan/dispatch-relay-service/internal/quota"
)

// Render builds a table of every configured service with its API key and the
// quota metadata the recorder has captured. Missing quota fields show "n/a".
func Render(apiKeysPath string, doc quota.Document) (string, error) {
	keys, err := loadAPIKeys(apiKeysPath)
	if err != nil {
		return "", err
	}

	services := make([]string, 0, len(keys))
	for svc := range keys {
		services = append(services, svc)
	}
	sort.Strings(services)

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Service", "API Key", "Used", "Limit", "Reset"})

	for _, svc := range services {
		meta := doc[svc]
		t.AppendRow(table.Row{
			svc,
			keys[svc],
			field(meta, "used"),
			field(meta, "limit"),
			field(meta, "reset"),
		})
	}

	return t.Render(), nil
}

func loadAPIKeys(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read api keys file: %w", err)
	}
	var keys map[string]string
	if err := json.Unmarshal(data, &keys); err != nil {
		return nil, fmt.Errorf("parse api keys file %s: %w", path, err)
	}
	return keys, nil
}

func field(meta map[string]any, name string) string {
	if meta == nil {
		return "n/a"
	}
	v, ok := meta[name]
	if !ok || v == nil {
		return "n/a"
	}
	// JSON numbers decode as float64; render whole values without exponent.
	if f, ok := v.(float64); ok && f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%v", v)
}
