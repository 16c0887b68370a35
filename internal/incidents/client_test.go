package incidents

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

// TestFetch_WrappedShape verifies parsing of {"incidents": [...]}.
func TestFetch_WrappedShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"incidents": [{"id": "a1", "type": "fire"}, {"id": "b2"}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.Client(), nil)
	list, err := c.Fetch(context.Background(), "downtown")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("len = %d, want 2", len(list))
	}
	if list[0]["type"] != "fire" {
		t.Errorf("first incident type = %v, want fire", list[0]["type"])
	}
}

// TestFetch_ArrayShape verifies parsing of a bare JSON array feed.
func TestFetch_ArrayShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id": "a1"}]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.Client(), nil)
	list, err := c.Fetch(context.Background(), "downtown")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(list) != 1 {
		t.Errorf("len = %d, want 1", len(list))
	}
}

// TestFetch_LocationQuery verifies the feed is queried with the location.
func TestFetch_LocationQuery(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query().Get("location")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.Client(), nil)
	if _, err := c.Fetch(context.Background(), "oak ridge"); err != nil {
		t.Fatal(err)
	}
	if got != "oak ridge" {
		t.Errorf("location query = %q, want oak ridge", got)
	}
}

// TestFetch_UnreachableFeed verifies that a dead feed degrades to an empty
// list without error.
func TestFetch_UnreachableFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // feed is down

	c := NewClient(srv.URL, nil, nil)
	list, err := c.Fetch(context.Background(), "downtown")
	if err != nil {
		t.Fatalf("Fetch() error = %v, want nil", err)
	}
	if len(list) != 0 {
		t.Errorf("len = %d, want 0", len(list))
	}
	if list == nil {
		t.Error("Fetch() = nil, want empty slice")
	}
}

// TestFetch_BadJSON verifies that a malformed payload degrades to an empty list.
func TestFetch_BadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>not json</html>"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.Client(), nil)
	list, err := c.Fetch(context.Background(), "downtown")
	if err != nil {
		t.Fatalf("Fetch() error = %v, want nil", err)
	}
	if len(list) != 0 {
		t.Errorf("len = %d, want 0", len(list))
	}
}

// TestFetch_ErrorStatus verifies that a 5xx feed response degrades to an
// empty list.
func TestFetch_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, srv.Client(), nil)
	list, err := c.Fetch(context.Background(), "downtown")
	if err != nil {
		t.Fatalf("Fetch() error = %v, want nil", err)
	}
	if len(list) != 0 {
		t.Errorf("len = %d, want 0", len(list))
	}
}
