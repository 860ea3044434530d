package pipeline

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/brightlane/siteforge/internal/agent"
	"github.com/brightlane/siteforge/internal/githost"
	"github.com/brightlane/siteforge/internal/hosting"
	"github.com/brightlane/siteforge/internal/site"
)

// fakeSourceHost accepts repo creation and per-file uploads.
type fakeSourceHost struct {
	mu       sync.Mutex
	repoName string
	uploads  map[string]string
}

func newFakeSourceHost() *fakeSourceHost {
	return &fakeSourceHost{uploads: make(map[string]string)}
}

func (f *fakeSourceHost) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /user", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"login": "acme-bot", "id": 7})
	})

	mux.HandleFunc("POST /user/repos", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Name    string `json:"name"`
			Private bool   `json:"private"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		if body.Private {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		f.repoName = body.Name
		f.mu.Unlock()
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{
			"id":             42,
			"name":           body.Name,
			"full_name":      "acme-bot/" + body.Name,
			"html_url":       "https://github.example/acme-bot/" + body.Name,
			"default_branch": "main",
		})
	})

	mux.HandleFunc("PUT /repos/acme-bot/{repo}/contents/{path...}", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
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
		json.NewEncoder(w).Encode(map[string]any{
			"name":   "main",
			"commit": map[string]any{"sha": "headsha111"},
		})
	})

	return mux
}

func fullMock() *agent.MockClient {
	return agent.NewMockClient().
		Respond(`the "Home" page`, "<html>home</html>").
		Respond(`the "Services" page`, "<html>services</html>").
		Respond("shared stylesheet", "body{}").
		Respond("shared script", "console.log('x')").
		RespondDefault(`{"designApproach":"clean"}`)
}

func testPipeline(t *testing.T, hostingHandler http.Handler) (*Pipeline, *fakeSourceHost) {
	t.Helper()

	fake := newFakeSourceHost()
	ghSrv := httptest.NewServer(fake.handler())
	t.Cleanup(ghSrv.Close)
	publisher := githost.NewPublisher(githost.NewClient("tok", ghSrv.URL), 2, nil)

	var deployer *hosting.Deployer
	if hostingHandler != nil {
		hostSrv := httptest.NewServer(hostingHandler)
		t.Cleanup(hostSrv.Close)
		deployer = hosting.NewDeployer(hosting.NewClient("tok", hostSrv.URL), 1, time.Millisecond, nil)
	} else {
		deployer = hosting.NewDeployer(hosting.NewClient("", "http://unused.invalid"), 1, time.Millisecond, nil)
	}

	mock := fullMock()
	return New(NewPlanner(mock, nil), NewMaterializer(mock, nil), publisher, deployer, nil), fake
}

func workingPlatform() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v2/teams", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"teams": []map[string]string{{"id": "team_1"}}})
	})
	mux.HandleFunc("POST /v10/projects", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Name string `json:"name"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		json.NewEncoder(w).Encode(map[string]string{"id": "prj_1", "name": body.Name})
	})
	mux.HandleFunc("GET /v9/projects/{name}", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"id": "prj_1", "name": r.PathValue("name")})
	})
	mux.HandleFunc("POST /v9/projects/{id}/link", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("{}"))
	})
	mux.HandleFunc("POST /v13/deployments", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"id": "dpl_1", "url": "acme.vercel.app"})
	})
	return mux
}

func TestGenerateFreeformEndToEnd(t *testing.T) {
	p, fake := testPipeline(t, workingPlatform())

	result, err := p.Generate(context.Background(), testIntake(), StrategyFreeform)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if !result.AutoDeployed {
		t.Errorf("AutoDeployed = false: %s", result.Message)
	}
	if result.NeedsManualImport {
		t.Error("NeedsManualImport = true on full success")
	}
	if result.VercelURL != "https://acme.vercel.app" {
		t.Errorf("VercelURL = %q", result.VercelURL)
	}

	for _, name := range []string{"index.html", "services/index.html", "styles.css", "script.js", "README.md", "metadata.json"} {
		if _, ok := fake.uploads[name]; !ok {
			t.Errorf("file %q never uploaded", name)
		}
	}

	var manifest struct {
		FormData struct {
			CompanyName string `json:"companyName"`
		} `json:"formData"`
	}
	if err := json.Unmarshal([]byte(fake.uploads["metadata.json"]), &manifest); err != nil {
		t.Fatalf("uploaded metadata.json invalid: %v", err)
	}
	if manifest.FormData.CompanyName != "Acme Corp" {
		t.Errorf("manifest companyName = %q", manifest.FormData.CompanyName)
	}
}

// The repository must survive a hosting outage: Generate returns a partial
// success, never an error.
func TestGeneratePartialSuccessOnHostingOutage(t *testing.T) {
	broken := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":{"code":"internal_error","message":"down"}}`))
	})
	p, fake := testPipeline(t, broken)

	result, err := p.Generate(context.Background(), testIntake(), StrategyFreeform)
	if err != nil {
		t.Fatalf("Generate() error = %v, want partial success", err)
	}

	if result.AutoDeployed {
		t.Error("AutoDeployed = true despite hosting outage")
	}
	if !result.NeedsManualImport {
		t.Error("NeedsManualImport = false on partial success")
	}
	if result.RepoURL == "" {
		t.Error("RepoURL lost on partial success")
	}
	if len(fake.uploads) == 0 {
		t.Error("no files were published")
	}
}

func TestGenerateRepoNameShape(t *testing.T) {
	p, fake := testPipeline(t, nil)

	intake := testIntake()
	intake.CompanyName = "Müller & Söhne GmbH!"
	if _, err := p.Generate(context.Background(), intake, StrategyTemplated); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if !regexp.MustCompile(`^[a-z0-9-]+-\d+$`).MatchString(fake.repoName) {
		t.Errorf("repo name %q is not slug-timestamp shaped", fake.repoName)
	}
}

func TestGenerateInvalidIntake(t *testing.T) {
	p, fake := testPipeline(t, nil)

	intake := testIntake()
	intake.Email = "not-an-email"
	_, err := p.Generate(context.Background(), intake, StrategyFreeform)

	var ve *site.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("error = %v, want *site.ValidationError", err)
	}
	if fake.repoName != "" {
		t.Error("repository created for invalid intake")
	}
}
