package imagefetch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/docverity/docverity/internal/core/domain"
)

func TestFetchReturnsImageBytes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("PNGDATA"))
	}))
	defer srv.Close()

	f := New(Options{})
	got, err := f.Fetch(context.Background(), srv.URL+"/card.png")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got) != "PNGDATA" {
		t.Fatalf("expected image bytes, got %q", got)
	}
}

func TestFetchUnwrapsHTMLPageOnce(t *testing.T) {
	var srvURL string
	mux := http.NewServeMux()
	mux.HandleFunc("/page", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprintf(w, `<html><body><img src=%q></body></html>`, srvURL+"/card.jpg")
	})
	mux.HandleFunc("/card.jpg", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write([]byte("JPEGDATA"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	srvURL = srv.URL

	f := New(Options{})
	got, err := f.Fetch(context.Background(), srv.URL+"/page")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got) != "JPEGDATA" {
		t.Fatalf("expected unwrapped image bytes, got %q", got)
	}
}

func TestFetchResolvesRelativeImageURL(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/page", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body><img src="/images/card.jpg"></body></html>`))
	})
	mux.HandleFunc("/images/card.jpg", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write([]byte("RELATIVE"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	f := New(Options{})
	got, err := f.Fetch(context.Background(), srv.URL+"/page")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got) != "RELATIVE" {
		t.Fatalf("expected relative image bytes, got %q", got)
	}
}

func TestFetchFailsWhenHTMLHasNoImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body><p>no images here</p></body></html>`))
	}))
	defer srv.Close()

	f := New(Options{})
	_, err := f.Fetch(context.Background(), srv.URL)
	if !domain.IsKind(err, domain.ErrHTMLUnwrap) {
		t.Fatalf("expected ErrHTMLUnwrap, got %v", err)
	}
}

func TestFetchDoesNotUnwrapNestedHTML(t *testing.T) {
	var srvURL string
	mux := http.NewServeMux()
	page := func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprintf(w, `<html><body><img src=%q></body></html>`, srvURL+"/page2")
	}
	mux.HandleFunc("/page1", page)
	mux.HandleFunc("/page2", page)
	srv := httptest.NewServer(mux)
	defer srv.Close()
	srvURL = srv.URL

	f := New(Options{})
	_, err := f.Fetch(context.Background(), srv.URL+"/page1")
	if !domain.IsKind(err, domain.ErrHTMLUnwrap) {
		t.Fatalf("expected single-hop unwrap to fail, got %v", err)
	}
}

func TestFetchMapsHTTPFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	f := New(Options{})
	_, err := f.Fetch(context.Background(), srv.URL)
	if !domain.IsKind(err, domain.ErrImageFetch) {
		t.Fatalf("expected ErrImageFetch, got %v", err)
	}
}

func TestFetchAppendsAccessTokenForFormsHost(t *testing.T) {
	var gotQuery url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("PNG"))
	}))
	defer srv.Close()

	host := strings.TrimPrefix(srv.URL, "http://")
	hostname := host
	if i := strings.Index(host, ":"); i >= 0 {
		hostname = host[:i]
	}

	f := New(Options{AccessToken: "secret", FormsHosts: []string{hostname}})
	if _, err := f.Fetch(context.Background(), srv.URL+"/upload?x=1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotQuery.Get("apiKey") != "secret" {
		t.Fatalf("expected apiKey query parameter, got %v", gotQuery)
	}
	if gotQuery.Get("x") != "1" {
		t.Fatal("expected original query parameters preserved")
	}
}

func TestFetchSkipsAccessTokenForOtherHosts(t *testing.T) {
	var gotQuery url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("PNG"))
	}))
	defer srv.Close()

	f := New(Options{AccessToken: "secret", FormsHosts: []string{"jotform.com"}})
	if _, err := f.Fetch(context.Background(), srv.URL); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotQuery.Get("apiKey") != "" {
		t.Fatal("token must not leak to unknown hosts")
	}
}
