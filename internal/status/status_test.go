package status

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rcallahan/dispatch-relay-service/internal/quota"
)

func writeKeys(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "api_keys.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// TestRender_FullRow verifies a service with complete quota metadata.
func TestRender_FullRow(t *testing.T) {
	path := writeKeys(t, `{"fda": "key-123"}`)
	doc := quota.Document{
		"fda": {"used": float64(17), "limit": float64(100), "reset": "2023-11-14T22:13:20Z"},
	}

	out, err := Render(path, doc)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	for _, want := range []string{"fda", "key-123", "17", "100", "2023-11-14T22:13:20Z"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
}

// TestRender_MissingQuota verifies that services without recorded quota
// state render n/a cells.
func TestRender_MissingQuota(t *testing.T) {
	path := writeKeys(t, `{"cad": "key-456"}`)

	out, err := Render(path, quota.Document{})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if !strings.Contains(out, "cad") || !strings.Contains(out, "n/a") {
		t.Errorf("table missing cad row with n/a cells:\n%s", out)
	}
}

// TestRender_SortedServices verifies deterministic row ordering.
func TestRender_SortedServices(t *testing.T) {
	path := writeKeys(t, `{"zeta": "k1", "alpha": "k2"}`)

	out, err := Render(path, quota.Document{})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if strings.Index(out, "alpha") > strings.Index(out, "zeta") {
		t.Errorf("rows not sorted by service:\n%s", out)
	}
}

// TestRender_MissingKeysFile verifies the error for an absent api keys file.
func TestRender_MissingKeysFile(t *testing.T) {
	_, err := Render(filepath.Join(t.TempDir(), "none.json"), quota.Document{})
	if err == nil {
		t.Fatal("Render() error = nil, want read error")
	}
}
