package githost

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/brightlane/siteforge/internal/site"
)

// fakeHost records every request against a minimal GitHub-shaped API.
type fakeHost struct {
	mu       sync.Mutex
	requests []string
	uploads  map[string]string
	blobs    int

	createRepoStatus int
}

func newFakeHost() *fakeHost {
	return &fakeHost{uploads: make(map[string]string), createRepoStatus: http.StatusCreated}
}

func (f *fakeHost) record(r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, r.Method+" "+r.URL.Path)
}

func (f *fakeHost) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /user", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		json.NewEncoder(w).Encode(map[string]any{"login": "acme-bot", "id": 7})
	})

	mux.HandleFunc("POST /user/repos", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		if f.createRepoStatus != http.StatusCreated {
			w.WriteHeader(f.createRepoStatus)
			json.NewEncoder(w).Encode(map[string]string{"message": "name already exists on this account"})
			return
		}
		var body struct {
			Name string `json:"name"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{
			"id":             42,
			"name":           body.Name,
			"full_name":      "acme-bot/" + body.Name,
			"html_url":       "https://github.example/acme-bot/" + body.Name,
			"default_branch": "main",
			"owner":          map[string]any{"login": "acme-bot", "id": 7},
		})
	})

	mux.HandleFunc("PUT /repos/acme-bot/{repo}/contents/{path...}", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		var body struct {
			Message string `json:"message"`
			Content string `json:"content"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		decoded, _ := base64.StdEncoding.DecodeString(body.Content)
		f.mu.Lock()
		f.uploads[r.PathValue("path")] = string(decoded)
		f.mu.Unlock()
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte("{}"))
	})

	mux.HandleFunc("GET /repos/acme-bot/{repo}/branches/main", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		json.NewEncoder(w).Encode(map[string]any{
			"name": "main",
			"commit": map[string]any{
				"sha": "headsha111",
				"commit": map[string]any{
					"tree": map[string]any{"sha": "treesha111"},
				},
			},
		})
	})

	mux.HandleFunc("POST /repos/acme-bot/{repo}/git/blobs", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		f.mu.Lock()
		f.blobs++
		n := f.blobs
		f.mu.Unlock()
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]string{"sha": "blob" + string(rune('0'+n))})
	})

	mux.HandleFunc("POST /repos/acme-bot/{repo}/git/trees", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		var body struct {
			BaseTree string      `json:"base_tree"`
			Tree     []TreeEntry `json:"tree"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		if body.BaseTree != "treesha111" {
			w.WriteHeader(http.StatusUnprocessableEntity)
			return
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]string{"sha": "newtree222"})
	})

	mux.HandleFunc("POST /repos/acme-bot/{repo}/git/commits", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		var body struct {
			Parents []string `json:"parents"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		if len(body.Parents) != 1 || body.Parents[0] != "headsha111" {
			w.WriteHeader(http.StatusUnprocessableEntity)
			return
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]string{"sha": "newcommit333"})
	})

	mux.HandleFunc("PATCH /repos/acme-bot/{repo}/git/refs/heads/main", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		var body struct {
			SHA string `json:"sha"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		if body.SHA != "newcommit333" {
			w.WriteHeader(http.StatusUnprocessableEntity)
			return
		}
		w.Write([]byte("{}"))
	})

	return mux
}

func (f *fakeHost) uploadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.uploads)
}

func testPublisher(t *testing.T, fake *fakeHost) *Publisher {
	t.Helper()
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)
	return NewPublisher(NewClient("test-token", srv.URL), 2, nil)
}

func TestPublishInitial(t *testing.T) {
	fake := newFakeHost()
	p := testPublisher(t, fake)

	files := []site.GeneratedFile{
		{Name: "index.html", Content: "<html>home</html>"},
		{Name: "services/index.html", Content: "<html>services</html>"},
		{Name: "styles.css", Content: "body{}"},
	}

	identity, err := p.PublishInitial(context.Background(), "acme-corp-1700000000", "Acme site", false, files)
	if err != nil {
		t.Fatalf("PublishInitial() error = %v", err)
	}

	if identity.RepoFullName != "acme-bot/acme-corp-1700000000" {
		t.Errorf("RepoFullName = %q", identity.RepoFullName)
	}
	if identity.RepoOwner != "acme-bot" {
		t.Errorf("RepoOwner = %q", identity.RepoOwner)
	}
	if identity.LatestCommitSHA != "headsha111" {
		t.Errorf("LatestCommitSHA = %q", identity.LatestCommitSHA)
	}
	if !identity.SHAKnown() {
		t.Error("SHAKnown() = false after successful head resolution")
	}

	if got := fake.uploadCount(); got != 3 {
		t.Fatalf("uploaded %d files, want 3", got)
	}
	if fake.uploads["services/index.html"] != "<html>services</html>" {
		t.Errorf("nested path upload corrupted: %q", fake.uploads["services/index.html"])
	}
}

// A name conflict must surface before any file upload is attempted.
func TestPublishInitialNameConflict(t *testing.T) {
	fake := newFakeHost()
	fake.createRepoStatus = http.StatusUnprocessableEntity
	p := testPublisher(t, fake)

	_, err := p.PublishInitial(context.Background(), "taken-name", "", false,
		[]site.GeneratedFile{{Name: "index.html", Content: "x"}})

	var conflict *site.NameConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("error = %v, want *site.NameConflictError", err)
	}
	if conflict.Name != "taken-name" {
		t.Errorf("conflict.Name = %q, want the attempted repo name", conflict.Name)
	}
	if got := fake.uploadCount(); got != 0 {
		t.Errorf("%d uploads attempted despite conflict", got)
	}
}

func TestPublishInitialUnconfigured(t *testing.T) {
	p := NewPublisher(NewClient("", "http://unused.invalid"), 2, nil)

	_, err := p.PublishInitial(context.Background(), "n", "", false, nil)
	var configErr *site.ConfigurationError
	if !errors.As(err, &configErr) {
		t.Fatalf("error = %v, want *site.ConfigurationError", err)
	}
	if configErr.Credential != "GITHUB_TOKEN" {
		t.Errorf("Credential = %q", configErr.Credential)
	}
}

func TestPublishAtomic(t *testing.T) {
	fake := newFakeHost()
	p := testPublisher(t, fake)

	changes := []ChangedFile{
		{Path: "index.html", Content: "<html>v2</html>"},
		{Path: "styles.css", Content: "body{color:red}"},
	}

	sha, err := p.PublishAtomic(context.Background(), "acme-bot", "acme-corp-1700000000", "main", "Update hero colors", changes)
	if err != nil {
		t.Fatalf("PublishAtomic() error = %v", err)
	}
	if sha != "newcommit333" {
		t.Errorf("commit SHA = %q", sha)
	}
	if fake.blobs != 2 {
		t.Errorf("created %d blobs, want 2", fake.blobs)
	}

	// The ref only moves after the commit exists; the fake enforces the
	// tree/commit/ref chaining by rejecting out-of-order SHAs, so reaching
	// here means the sequence held.
	last := fake.requests[len(fake.requests)-1]
	if last != "PATCH /repos/acme-bot/acme-corp-1700000000/git/refs/heads/main" {
		t.Errorf("last call = %q, want the ref update", last)
	}
}

func TestPublishAtomicNoChanges(t *testing.T) {
	p := testPublisher(t, newFakeHost())

	_, err := p.PublishAtomic(context.Background(), "acme-bot", "repo", "main", "msg", nil)
	var pubErr *site.PublishError
	if !errors.As(err, &pubErr) {
		t.Fatalf("error = %v, want *site.PublishError", err)
	}
}

func TestClientErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		check  func(t *testing.T, err error)
	}{
		{"unauthorized", http.StatusUnauthorized, func(t *testing.T, err error) {
			var authErr *site.AuthenticationError
			if !errors.As(err, &authErr) {
				t.Fatalf("error = %v, want *site.AuthenticationError", err)
			}
		}},
		{"forbidden", http.StatusForbidden, func(t *testing.T, err error) {
			var authErr *site.AuthenticationError
			if !errors.As(err, &authErr) {
				t.Fatalf("error = %v, want *site.AuthenticationError", err)
			}
		}},
		{"not found", http.StatusNotFound, func(t *testing.T, err error) {
			if !errors.Is(err, ErrNotFound) {
				t.Fatalf("error = %v, want ErrNotFound in chain", err)
			}
		}},
		{"server error", http.StatusInternalServerError, func(t *testing.T, err error) {
			var pubErr *site.PublishError
			if !errors.As(err, &pubErr) {
				t.Fatalf("error = %v, want *site.PublishError", err)
			}
			if pubErr.StatusCode != http.StatusInternalServerError {
				t.Errorf("StatusCode = %d", pubErr.StatusCode)
			}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(`{"message":"nope"}`))
			}))
			defer srv.Close()

			_, err := NewClient("tok", srv.URL).GetAuthenticatedUser(context.Background())
			tt.check(t, err)
		})
	}
}
