// Package hazmat looks up hazardous material details by UN/NA number from
// the PHMSA hazardous materials table.
package hazmat

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rcallahan/dispatch-relay-service/internal/cache"
	"github.com/rcallahan/dispatch-relay-service/internal/models"
	"github.com/rcallahan/dispatch-relay-service/internal/observability"
)

// ErrNotFound is returned when a UN/NA number has no entry in the table.
var ErrNotFound = errors.New("un/na number not found")

// keyColumn is the CSV column holding the UN/NA number.
const keyColumn = "un_na"

// Source resolves a dataset name to a local file path (dataset.Store).
type Source interface {
	Path(ctx context.Context, name string) (string, error)
}

// Service answers UN/NA lookups, loading the table once and serving repeat
// queries through the cache.
type Service struct {
	source Source
	cache  cache.Cache
	ttl    time.Duration

	mu     sync.Mutex
	table  map[string]models.HazmatRecord
	loaded bool
}

// NewService returns a Service over the dataset source. c may be nil to
// disable per-record caching.
func NewService(source Source, c cache.Cache, ttl time.Duration) *Service {
	return &Service{
		source: source,
		cache:  c,
		ttl:    ttl,
	}
}

// Lookup returns the record for a UN/NA number. The number is normalized to
// a 4-digit zero-padded string, so "806", "0806" and " 806 " all match the
// same row. Returns ErrNotFound for unknown numbers.
func (s *Service) Lookup(ctx context.Context, unna string) (models.HazmatRecord, error) {
	key := NormalizeUNNA(unna)
	if key == "" {
		return nil, fmt.Errorf("%w: empty un/na number", ErrNotFound)
	}

	if s.cache != nil {
		if rec, ok, err := s.cache.Get(ctx, key); err == nil && ok {
			observability.CacheHitsTotal.WithLabelValues("hazmat").Inc()
			return rec, nil
		}
	}

	table, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	rec, ok := table[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	if s.cache != nil {
		_ = s.cache.Set(ctx, key, rec, s.ttl)
	}
	return rec, nil
}

// NormalizeUNNA trims the input and zero-pads it to four characters, the
// format the PHMSA table uses for its identification numbers.
func NormalizeUNNA(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	for len(s) < 4 {
		s = "0" + s
	}
	return s
}

// load parses the dataset CSV into memory once. The table is immutable after
// the first successful load; a failed load is retried on the next call.
func (s *Service) load(ctx context.Context) (map[string]models.HazmatRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loaded {
		return s.table, nil
	}

	path, err := s.source.Path(ctx, "hazmat")
	if err != nil {
		return nil, fmt.Errorf("locate hazmat dataset: %w", err)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open hazmat dataset: %w", err)
	}
	defer f.Close()

	table, err := parseTable(f)
	if err != nil {
		return nil, fmt.Errorf("parse hazmat dataset: %w", err)
	}

	s.table = table
	s.loaded = true
	return s.table, nil
}

// parseTable reads the CSV keyed by the un_na column. Rows without a key are
// skipped; later duplicates win, matching the published table's ordering.
func parseTable(r io.Reader) (map[string]models.HazmatRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	table := make(map[string]models.HazmatRecord)
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		rec := make(models.HazmatRecord, len(header))
		for i, col := range header {
			if i < len(row) {
				rec[col] = row[i]
			}
		}

		key := NormalizeUNNA(rec[keyColumn])
		if key == "" {
			continue
		}
		table[key] = rec
	}
	return table, nil
}
