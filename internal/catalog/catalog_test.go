package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

// TestHTTPSourceSearch verifies the request shape and response decoding
// against a stub catalog service.
func TestHTTPSourceSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/exercises" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if q := r.URL.Query().Get("q"); q != "bench press" {
			t.Errorf("query = %q", q)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id":"e1","name":"Bench Press","imageUrl":"http://img/bp","muscles":["chest","triceps"]}]`))
	}))
	defer srv.Close()

	src := NewHTTPSource(srv.URL + "/")
	items, err := src.Search(context.Background(), "bench press")
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 {
		t.Fatalf("items = %d, want 1", len(items))
	}
	if items[0].ID != "e1" || items[0].Name != "Bench Press" || len(items[0].Muscles) != 2 {
		t.Errorf("item = %+v", items[0])
	}
}

// TestHTTPSourceErrorStatus verifies non-200 responses surface the
// status and body excerpt.
func TestHTTPSourceErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "catalog offline", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	src := NewHTTPSource(srv.URL)
	if _, err := src.Search(context.Background(), "squat"); err == nil {
		t.Fatal("expected error for 503 response")
	}
}

// TestStaticSourceFilter verifies the case-insensitive name filter.
func TestStaticSourceFilter(t *testing.T) {
	src := &StaticSource{Items: []Item{
		{ID: "e1", Name: "Bench Press"},
		{ID: "e2", Name: "Incline Bench Press"},
		{ID: "e3", Name: "Squat"},
	}}

	items, err := src.Search(context.Background(), "bench")
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 2 {
		t.Errorf("matches = %d, want 2", len(items))
	}

	all, _ := src.Search(context.Background(), "")
	if len(all) != 3 {
		t.Errorf("empty query matches = %d, want all 3", len(all))
	}

	none, _ := src.Search(context.Background(), "deadlift")
	if len(none) != 0 {
		t.Errorf("no-match query = %d items", len(none))
	}
}
