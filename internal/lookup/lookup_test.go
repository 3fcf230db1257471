package lookup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

const vehiclePage = `<html><body>
<h1>Vehicle</h1>
<dl class="vehicle">
  <dt>Plate</dt><dd>ab12cd</dd>
  <dt>Make</dt><dd> Ford </dd>
  <dt>Model</dt><dd>Fiesta</dd>
  <dt>Year</dt><dd>2015</dd>
</dl>
</body></html>`

func newTestLookup(t *testing.T, h http.HandlerFunc) *HTTPLookup {
	t.Helper()
	server := httptest.NewServer(h)
	t.Cleanup(server.Close)
	l, err := NewHTTPLookup(server.URL+"/vehicle/", time.Hour, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("NewHTTPLookup: %v", err)
	}
	return l
}

func TestLookupParsesAndCaches(t *testing.T) {
	var hits atomic.Int32
	l := newTestLookup(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Path != "/vehicle/AB12CD" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		fmt.Fprint(w, vehiclePage)
	})

	for i := 0; i < 2; i++ {
		rec, err := l.Lookup(context.Background(), "AB12CD")
		if err != nil {
			t.Fatalf("Lookup: %v", err)
		}
		want := VehicleRecord{Plate: "AB12CD", Make: "Ford", Model: "Fiesta", Year: 2015}
		if rec != want {
			t.Errorf("Lookup = %+v, want %+v", rec, want)
		}
	}
	if hits.Load() != 1 {
		t.Errorf("server hit %d times, want 1 (cached)", hits.Load())
	}
}

func TestLookupNotFound(t *testing.T) {
	var hits atomic.Int32
	l := newTestLookup(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.NotFound(w, r)
	})

	_, err := l.Lookup(context.Background(), "ZZ99ZZ")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if hits.Load() != 1 {
		t.Errorf("not-found should not be retried, got %d hits", hits.Load())
	}
}

func TestLookupBlankPageNotCached(t *testing.T) {
	var hits atomic.Int32
	l := newTestLookup(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, `<html><body><p>No data</p></body></html>`)
	})

	for i := 0; i < 2; i++ {
		rec, err := l.Lookup(context.Background(), "AB12CD")
		if err != nil {
			t.Fatalf("Lookup: %v", err)
		}
		if rec.Plate != "" {
			t.Errorf("Plate = %q, want blank", rec.Plate)
		}
	}
	if hits.Load() != 2 {
		t.Errorf("blank results should not be cached, got %d hits", hits.Load())
	}
}

func TestLookupRetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	l := newTestLookup(t, func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, vehiclePage)
	})

	rec, err := l.Lookup(context.Background(), "AB12CD")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if rec.Make != "Ford" || hits.Load() != 2 {
		t.Errorf("rec = %+v after %d hits", rec, hits.Load())
	}
}
