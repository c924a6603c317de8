package fetch_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"testing/fstest"

	"github.com/bellows-audio/bellows/fetch"
)

func TestHTTPFetchResolvesAgainstBase(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/drums/kick.mp3" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("kick"))
	}))
	defer srv.Close()
	f, err := fetch.NewHTTP(srv.URL + "/audio")
	if err != nil {
		t.Fatalf("NewHTTP failed: %v", err)
	}
	for _, loc := range []string{"drums/kick.mp3", "/drums/kick.mp3"} {
		data, err := f.Fetch(context.Background(), loc)
		if err != nil {
			t.Fatalf("Fetch(%q) failed: %v", loc, err)
		}
		if string(data) != "kick" {
			t.Errorf("Fetch(%q) = %q, want %q", loc, data, "kick")
		}
	}
}

func TestHTTPFetchStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer srv.Close()
	f, err := fetch.NewHTTP(srv.URL)
	if err != nil {
		t.Fatalf("NewHTTP failed: %v", err)
	}
	_, err = f.Fetch(context.Background(), "snare.wav")
	var statusErr *fetch.StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected a StatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusGone {
		t.Errorf("StatusCode = %d, want %d", statusErr.StatusCode, http.StatusGone)
	}
}

func TestHTTPFetchCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("late"))
	}))
	defer srv.Close()
	f, _ := fetch.NewHTTP(srv.URL)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := f.Fetch(ctx, "x.wav"); err == nil {
		t.Fatal("expected an error for a cancelled context")
	}
}

func TestDirFetch(t *testing.T) {
	d := &fetch.Dir{FS: fstest.MapFS{
		"treble/c4.wav": &fstest.MapFile{Data: []byte("c4")},
	}}
	tests := []struct {
		location string
		want     string
		status   int
	}{
		{"treble/c4.wav", "c4", 0},
		{"/treble/c4.wav", "c4", 0},
		{"treble/d4.wav", "", http.StatusNotFound},
		{"../secret", "", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.location, func(t *testing.T) {
			data, err := d.Fetch(context.Background(), tt.location)
			if tt.status != 0 {
				var statusErr *fetch.StatusError
				if !errors.As(err, &statusErr) || statusErr.StatusCode != tt.status {
					t.Fatalf("expected status %d, got %v", tt.status, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Fetch failed: %v", err)
			}
			if string(data) != tt.want {
				t.Errorf("got %q, want %q", data, tt.want)
			}
		})
	}
}

func TestNewPicksFetcher(t *testing.T) {
	f, err := fetch.New("https://example.com/audio")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, ok := f.(*fetch.HTTP); !ok {
		t.Errorf("expected *fetch.HTTP for an https root, got %T", f)
	}
	f, err = fetch.New(t.TempDir())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, ok := f.(*fetch.Dir); !ok {
		t.Errorf("expected *fetch.Dir for a directory root, got %T", f)
	}
	if _, err := fetch.New("/definitely/not/here"); err == nil {
		t.Error("expected an error for a missing directory")
	}
}
