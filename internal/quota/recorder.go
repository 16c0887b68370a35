// Package quota records remote-reported rate-limit state for operator
// visibility. It is deliberately decoupled from the throttle gate: the gate
// enforces the locally configured quota, while this package only persists
// what upstream servers report about themselves.
package quota

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rcallahan/dispatch-relay-service/internal/observability"
)

// ResetHeader is the response header carrying the Unix timestamp at which
// the remote rate-limit window restarts.
const ResetHeader = "X-RateLimit-Reset"

// Document is the persisted per-service quota state. Fields other than
// "reset" (for example "used" and "limit" maintained by operators) are
// preserved across writes.
type Document map[string]map[string]any

// LoadDocument reads the quota state file. A missing file is an empty
// document, not an error; an unreadable or malformed file starts fresh,
// since the document is best-effort operator state.
func LoadDocument(path string) Document {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}
	}
	if doc == nil {
		doc = Document{}
	}
	return doc
}

// Recorder merges reset timestamps into the quota state file.
type Recorder struct {
	path string
}

// NewRecorder returns a Recorder writing to the given path.
func NewRecorder(path string) *Recorder {
	return &Recorder{path: path}
}

// RecordReset reads the X-RateLimit-Reset header and, when present and
// parseable, merges the reset instant into the service's entry and rewrites
// the document. Returns the parsed UTC instant and true on a valid header;
// a missing or unparseable header is a silent skip: (zero, false, nil) with
// no file write.
func (r *Recorder) RecordReset(headers http.Header, service string) (time.Time, bool, error) {
	raw := headers.Get(ResetHeader)
	if raw == "" {
		return time.Time{}, false, nil
	}
	secs, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, false, nil
	}
	reset := time.Unix(secs, 0).UTC()

	doc := LoadDocument(r.path)
	entry := doc[service]
	if entry == nil {
		entry = map[string]any{}
	}
	entry["reset"] = reset.Format(time.RFC3339)
	doc[service] = entry

	if err := writeDocument(r.path, doc); err != nil {
		return time.Time{}, false, err
	}
	observability.QuotaResetsRecordedTotal.WithLabelValues(service).Inc()
	return reset, true, nil
}

// writeDocument writes the document pretty-printed with sorted keys,
// creating parent directories as needed. Concurrent writers on one file are
// last-writer-wins; the recorder is not designed for them.
func writeDocument(path string, doc Document) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create quota state dir: %w", err)
		}
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode quota state: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write quota state: %w", err)
	}
	return nil
}
