package mesh

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func exampleBytes(t *testing.T) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", "example.txt"))
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestFetchCorpus_Success(t *testing.T) {
	body := exampleBytes(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Accept"), "text/plain") {
			t.Errorf("unexpected Accept header %q", r.Header.Get("Accept"))
		}
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	corpus, err := FetchCorpus(context.Background(), srv.URL, WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("FetchCorpus() error: %v", err)
	}
	if len(corpus) != 9 {
		t.Errorf("len(corpus) = %d, want 9", len(corpus))
	}
}

func TestFetchCorpus_EmptyURL(t *testing.T) {
	_, err := FetchCorpus(context.Background(), "")
	if err == nil || !strings.Contains(err.Error(), "URL is empty") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestFetchCorpus_ParseErrorNotRetried(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts.Add(1)
		_, _ = w.Write([]byte("Tile 1:\n.x.\n"))
	}))
	defer srv.Close()

	_, err := FetchCorpus(context.Background(), srv.URL,
		WithHTTPClient(srv.Client()),
		WithBaseBackoff(time.Millisecond))
	if err == nil || !strings.Contains(err.Error(), "unexpected symbol") {
		t.Fatalf("expected parse error, got: %v", err)
	}
	if got := attempts.Load(); got != 1 {
		t.Errorf("attempts = %d, want 1", got)
	}
}

func TestFetchCorpus_ServerError_Retries(t *testing.T) {
	body := exampleBytes(t)
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	corpus, err := FetchCorpus(context.Background(), srv.URL,
		WithHTTPClient(srv.Client()),
		WithMaxRetries(3),
		WithBaseBackoff(time.Millisecond),
	)
	if err != nil {
		t.Fatalf("FetchCorpus() error: %v", err)
	}
	if len(corpus) != 9 {
		t.Errorf("len(corpus) = %d, want 9", len(corpus))
	}
	if got := attempts.Load(); got != 3 {
		t.Errorf("expected 3 attempts, got %d", got)
	}
}

func TestFetchCorpus_AllRetriesFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := FetchCorpus(context.Background(), srv.URL,
		WithHTTPClient(srv.Client()),
		WithMaxRetries(2),
		WithBaseBackoff(time.Millisecond),
	)
	if err == nil || !strings.Contains(err.Error(), "all 2 attempts failed") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestFetchCorpus_ContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := FetchCorpus(ctx, srv.URL,
		WithHTTPClient(srv.Client()),
		WithMaxRetries(3),
		WithBaseBackoff(time.Second),
	)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got: %v", err)
	}
}

func TestFetchCorpus_CustomGlyphs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"source":"remote","corpus":"Tile 3:\nX--\n---\n--X\n"}`))
	}))
	defer srv.Close()

	corpus, err := FetchCorpus(context.Background(), srv.URL,
		WithHTTPClient(srv.Client()),
		WithFetchGlyphs(Glyphs{Filled: 'X', Empty: '-'}))
	if err != nil {
		t.Fatalf("FetchCorpus() error: %v", err)
	}
	if got := corpus[0].Grid.CountFilled(); got != 2 {
		t.Errorf("filled = %d, want 2", got)
	}
}

func TestIsRemoteSource(t *testing.T) {
	for in, want := range map[string]bool{
		"http://host/corpus.txt":  true,
		"https://host/corpus.txt": true,
		"corpus.txt":              false,
		"/tmp/http.txt":           false,
	} {
		if got := IsRemoteSource(in); got != want {
			t.Errorf("IsRemoteSource(%q) = %v, want %v", in, got, want)
		}
	}
}
