package interactions

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewClient(srv.URL, srv.Client(), 2, time.Millisecond, 10*time.Millisecond, nil)
	return c, srv
}

// TestCheck_InteractionWithDetails verifies the happy path: result entry
// with drug_interactions text.
func TestCheck_InteractionWithDetails(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results": [{"drug_interactions": ["Increased bleeding risk."]}]}`))
	})

	result, err := c.Check(context.Background(), "ibuprofen", "warfarin")
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if !result.Interaction {
		t.Error("Interaction = false, want true")
	}
	if result.Details != "Increased bleeding risk." {
		t.Errorf("Details = %q, want first interaction entry", result.Details)
	}
}

// TestCheck_InteractionWithoutDetails verifies a result entry whose
// drug_interactions list is empty.
func TestCheck_InteractionWithoutDetails(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results": [{"drug_interactions": []}]}`))
	})

	result, err := c.Check(context.Background(), "a", "b")
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if !result.Interaction {
		t.Error("Interaction = false, want true")
	}
	if !strings.Contains(result.Details, "no details") {
		t.Errorf("Details = %q, want no-details message", result.Details)
	}
}

// TestCheck_NoResults verifies the empty-results mapping.
func TestCheck_NoResults(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results": []}`))
	})

	result, err := c.Check(context.Background(), "a", "b")
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if result.Interaction {
		t.Error("Interaction = true, want false")
	}
	if result.Details != "No interaction data found." {
		t.Errorf("Details = %q, want no-data message", result.Details)
	}
}

// TestCheck_UpstreamFailureFoldedIntoResult verifies that a persistent 5xx
// is reported inside the result, not as a call error.
func TestCheck_UpstreamFailureFoldedIntoResult(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	result, err := c.Check(context.Background(), "a", "b")
	if err != nil {
		t.Fatalf("Check() error = %v, want nil (failure folded into result)", err)
	}
	if result.Interaction {
		t.Error("Interaction = true, want false on upstream failure")
	}
	if !strings.Contains(result.Details, "API request failed") {
		t.Errorf("Details = %q, want failure reason", result.Details)
	}
}

// TestCheck_RetriesOn5xx verifies that a transient 5xx is retried and the
// second attempt's result wins.
func TestCheck_RetriesOn5xx(t *testing.T) {
	var calls int
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"results": [{"drug_interactions": ["x"]}]}`))
	})

	result, err := c.Check(context.Background(), "a", "b")
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if calls != 2 {
		t.Errorf("upstream calls = %d, want 2", calls)
	}
	if !result.Interaction {
		t.Error("Interaction = false, want true after retry")
	}
}

// TestCheck_SearchQuery verifies the FDA search expression shape.
func TestCheck_SearchQuery(t *testing.T) {
	var gotSearch, gotLimit string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotSearch = r.URL.Query().Get("search")
		gotLimit = r.URL.Query().Get("limit")
		_, _ = w.Write([]byte(`{"results": []}`))
	})

	if _, err := c.Check(context.Background(), "ibuprofen", "warfarin"); err != nil {
		t.Fatal(err)
	}
	want := `openfda.generic_name:"ibuprofen"+AND+drug_interactions:"warfarin"`
	if gotSearch != want {
		t.Errorf("search = %q, want %q", gotSearch, want)
	}
	if gotLimit != "1" {
		t.Errorf("limit = %q, want 1", gotLimit)
	}
}

// recorderSpy captures RecordReset invocations.
type recorderSpy struct {
	mu       sync.Mutex
	services []string
	headers  []http.Header
}

func (s *recorderSpy) RecordReset(h http.Header, service string) (time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.services = append(s.services, service)
	s.headers = append(s.headers, h)
	return time.Time{}, false, nil
}

// TestCheck_FeedsResetRecorder verifies that response headers are handed to
// the reset recorder under the fda service name.
func TestCheck_FeedsResetRecorder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-RateLimit-Reset", "1700000000")
		_, _ = w.Write([]byte(`{"results": []}`))
	}))
	defer srv.Close()

	spy := &recorderSpy{}
	c := NewClient(srv.URL, srv.Client(), 1, time.Millisecond, time.Millisecond, spy)

	if _, err := c.Check(context.Background(), "a", "b"); err != nil {
		t.Fatal(err)
	}

	if len(spy.services) != 1 || spy.services[0] != "fda" {
		t.Fatalf("recorded services = %v, want [fda]", spy.services)
	}
	if spy.headers[0].Get("X-RateLimit-Reset") != "1700000000" {
		t.Error("reset header not passed through to recorder")
	}
}
