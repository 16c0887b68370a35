// Package dataset downloads reference datasets and serves them from the
// local filesystem. In offline mode the store refuses network access and
// relies solely on cached copies.
package dataset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// ErrUnknownDataset is returned for names without a registered definition.
var ErrUnknownDataset = errors.New("unknown dataset")

// ErrOffline is returned when a dataset is missing locally and the store is
// operating in offline mode.
var ErrOffline = errors.New("dataset not cached and store is offline")

// Dataset is the metadata required to download and cache one dataset.
type Dataset struct {
	Name     string
	URL      string
	Filename string
}

// Builtins returns the default dataset definitions. The PHMSA URL changes
// between published revisions; deployments can override it via Register.
func Builtins() map[string]Dataset {
	return map[string]Dataset{
		"hazmat": {
			Name:     "hazmat",
			URL:      "https://www.phmsa.dot.gov/sites/phmsa.dot.gov/files/2024-05/Hazmat%20Table%20-%2005.10.2024.csv",
			Filename: "phmsa_hazmat.csv",
		},
		"dot": {
			Name:     "dot",
			URL:      "https://raw.githubusercontent.com/mwaskom/seaborn-data/master/flights.csv",
			Filename: "dot_sample.csv",
		},
	}
}

// Store caches datasets under a local directory, downloading them on first
// use unless offline.
type Store struct {
	dir      string
	offline  bool
	client   *http.Client
	datasets map[string]Dataset
	logger   *zap.Logger
}

// NewStore returns a Store over dir with the builtin dataset definitions.
// client is used for downloads; pass a throttled client so dataset fetches
// count against the outbound quota.
func NewStore(dir string, offline bool, client *http.Client, logger *zap.Logger) *Store {
	if client == nil {
		client = &http.Client{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		dir:      dir,
		offline:  offline,
		client:   client,
		datasets: Builtins(),
		logger:   logger,
	}
}

// Register adds or overrides a dataset definition.
func (s *Store) Register(ds Dataset) {
	s.datasets[ds.Name] = ds
}

// Names returns the registered dataset names.
func (s *Store) Names() []string {
	out := make([]string, 0, len(s.datasets))
	for name := range s.datasets {
		out = append(out, name)
	}
	return out
}

// Path returns a local file path for the named dataset, downloading it first
// when not cached. In offline mode a missing dataset is an error and no
// network access is attempted.
func (s *Store) Path(ctx context.Context, name string) (string, error) {
	ds, ok := s.datasets[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownDataset, name)
	}

	path := filepath.Join(s.dir, ds.Filename)
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	if s.offline {
		return "", fmt.Errorf("%w: %s (run once without offline mode to download it)", ErrOffline, name)
	}

	if err := s.download(ctx, ds, path); err != nil {
		return "", err
	}
	return path, nil
}

func (s *Store) download(ctx context.Context, ds Dataset, path string) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create dataset dir: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ds.URL, nil)
	if err != nil {
		return fmt.Errorf("build dataset request: %w", err)
	}

	s.logger.Info("downloading dataset", zap.String("dataset", ds.Name), zap.String("url", ds.URL))
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("download dataset %s: %w", ds.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download dataset %s: HTTP %d", ds.Name, resp.StatusCode)
	}

	// Write to a temp file first so a failed download never leaves a
	// truncated dataset behind.
	tmp, err := os.CreateTemp(s.dir, ds.Filename+".tmp*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return fmt.Errorf("write dataset %s: %w", ds.Name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close dataset %s: %w", ds.Name, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("finalize dataset %s: %w", ds.Name, err)
	}
	return nil
}
