package testhelpers

import (
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/google/go-github/v62/github"
)

// Operation names recorded in MockGitHubServerConfig.Calls and keyed in Failures
const (
	OpCreateRepo   = "create-repo"
	OpGetUser      = "get-user"
	OpCreateBlob   = "create-blob"
	OpGetRef       = "get-ref"
	OpGetCommit    = "get-commit"
	OpCreateTree   = "create-tree"
	OpCreateCommit = "create-commit"
	OpUpdateRef    = "update-ref"
	OpCreateRef    = "create-ref"
	OpEnablePages  = "enable-pages"
	OpGetPages     = "get-pages"
	OpUpdatePages  = "update-pages"
)

// MockFailure is a canned error response for one operation
type MockFailure struct {
	Status  int
	Message string
	Errors  []github.Error
}

// MockCommit is a commit stored by the mock server
type MockCommit struct {
	SHA     string
	Tree    string
	Parents []string
	Message string
}

// MockGitHubServerConfig configures and records the state of a mock GitHub server.
// Repository keys are "owner/name".
type MockGitHubServerConfig struct {
	// Login is the authenticated user
	Login string
	// Repos holds repositories that exist
	Repos map[string]bool
	// Blobs maps blob sha to content
	Blobs map[string][]byte
	// Trees maps tree sha to path -> blob sha
	Trees map[string]map[string]string
	// Commits maps commit sha to commit
	Commits map[string]*MockCommit
	// Refs maps repository to "refs/heads/x" -> commit sha
	Refs map[string]map[string]string
	// Pages maps repository to the branch Pages serves
	Pages map[string]string
	// PagesBaseURL replaces https://<owner>.github.io in Pages html_url, as on GitHub Enterprise
	PagesBaseURL string
	// Failures maps an operation to the error it should return
	Failures map[string]MockFailure
	// Calls lists operations in the order they were received
	Calls []string

	mu      sync.Mutex
	counter int
}

// NewMockGitHubServerConfig creates a new mock server config with defaults
func NewMockGitHubServerConfig() *MockGitHubServerConfig {
	return &MockGitHubServerConfig{
		Login:    "test-user",
		Repos:    make(map[string]bool),
		Blobs:    make(map[string][]byte),
		Trees:    make(map[string]map[string]string),
		Commits:  make(map[string]*MockCommit),
		Refs:     make(map[string]map[string]string),
		Pages:    make(map[string]string),
		Failures: make(map[string]MockFailure),
	}
}

// AddRepo registers an existing repository owned by owner with an initial commit on main
func (c *MockGitHubServerConfig) AddRepo(owner, name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.addRepoLocked(owner + "/" + name)
}

// SetBranch points refs/heads/branch of owner/name at a new commit containing files
func (c *MockGitHubServerConfig) SetBranch(owner, name, branch string, files map[string]string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	full := owner + "/" + name
	if !c.Repos[full] {
		c.addRepoLocked(full)
	}
	entries := make(map[string]string, len(files))
	for path, content := range files {
		sha := plumbing.ComputeHash(plumbing.BlobObject, []byte(content)).String()
		c.Blobs[sha] = []byte(content)
		entries[path] = sha
	}
	tree := c.storeTreeLocked(entries)
	commit := c.storeCommitLocked(tree, nil, "seed "+branch)
	c.Refs[full]["refs/heads/"+branch] = commit
	return commit
}

// Fail makes op respond with status and message
func (c *MockGitHubServerConfig) Fail(op string, status int, message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Failures[op] = MockFailure{Status: status, Message: message}
}

// CallCount returns how many times op was received
func (c *MockGitHubServerConfig) CallCount(op string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, call := range c.Calls {
		if call == op {
			n++
		}
	}
	return n
}

// Ref returns the commit sha refs/heads/branch points at, or ""
func (c *MockGitHubServerConfig) Ref(owner, name, branch string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Refs[owner+"/"+name]["refs/heads/"+branch]
}

// Commit returns a stored commit
func (c *MockGitHubServerConfig) Commit(sha string) *MockCommit {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Commits[sha]
}

// TreeFiles returns path -> content for a stored tree
func (c *MockGitHubServerConfig) TreeFiles(treeSHA string) map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	files := make(map[string]string)
	for path, sha := range c.Trees[treeSHA] {
		files[path] = string(c.Blobs[sha])
	}
	return files
}

func (c *MockGitHubServerConfig) addRepoLocked(full string) {
	c.Repos[full] = true
	if c.Refs[full] == nil {
		c.Refs[full] = make(map[string]string)
	}
	readme := "# " + full + "\n"
	sha := plumbing.ComputeHash(plumbing.BlobObject, []byte(readme)).String()
	c.Blobs[sha] = []byte(readme)
	tree := c.storeTreeLocked(map[string]string{"README.md": sha})
	c.Refs[full]["refs/heads/main"] = c.storeCommitLocked(tree, nil, "Initial commit")
}

func (c *MockGitHubServerConfig) nextSHA(parts ...string) string {
	c.counter++
	h := sha1.New()
	fmt.Fprintf(h, "%d", c.counter)
	for _, p := range parts {
		h.Write([]byte{0})
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (c *MockGitHubServerConfig) storeTreeLocked(entries map[string]string) string {
	paths := make([]string, 0, len(entries))
	for p := range entries {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	parts := make([]string, 0, len(paths))
	for _, p := range paths {
		parts = append(parts, p+"="+entries[p])
	}
	sha := c.nextSHA(parts...)
	c.Trees[sha] = entries
	return sha
}

func (c *MockGitHubServerConfig) storeCommitLocked(tree string, parents []string, message string) string {
	sha := c.nextSHA(append([]string{tree, message}, parents...)...)
	c.Commits[sha] = &MockCommit{SHA: sha, Tree: tree, Parents: parents, Message: message}
	return sha
}

// record notes the call and returns the configured failure for op, if any
func (c *MockGitHubServerConfig) record(op string) (MockFailure, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Calls = append(c.Calls, op)
	f, ok := c.Failures[op]
	return f, ok
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string, errs ...github.Error) {
	body := map[string]interface{}{"message": message}
	if len(errs) > 0 {
		body["errors"] = errs
	}
	writeJSON(w, status, body)
}

// NewMockGitHubServer creates an httptest server that mocks the GitHub endpoints pubsite uses
func NewMockGitHubServer(t *testing.T, config *MockGitHubServerConfig) *httptest.Server {
	if config == nil {
		config = NewMockGitHubServerConfig()
	}

	mux := http.NewServeMux()

	// handle wraps an endpoint with call recording and failure injection
	handle := func(pattern, op string, fn func(w http.ResponseWriter, r *http.Request, full string)) {
		mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
			if f, ok := config.record(op); ok {
				writeError(w, f.Status, f.Message, f.Errors...)
				return
			}
			full := r.PathValue("owner") + "/" + r.PathValue("repo")
			config.mu.Lock()
			defer config.mu.Unlock()
			if r.PathValue("repo") != "" && !config.Repos[full] {
				writeError(w, http.StatusNotFound, "Not Found")
				return
			}
			fn(w, r, full)
		})
	}

	handle("GET /user", OpGetUser, func(w http.ResponseWriter, _ *http.Request, _ string) {
		writeJSON(w, http.StatusOK, &github.User{Login: github.String(config.Login)})
	})

	handle("POST /user/repos", OpCreateRepo, func(w http.ResponseWriter, r *http.Request, _ string) {
		var req github.Repository
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		full := config.Login + "/" + req.GetName()
		if config.Repos[full] {
			writeError(w, http.StatusUnprocessableEntity, "Repository creation failed.", github.Error{
				Resource: "Repository",
				Field:    "name",
				Code:     "already_exists",
				Message:  "name already exists on this account",
			})
			return
		}
		config.addRepoLocked(full)
		writeJSON(w, http.StatusCreated, &github.Repository{
			Name:     req.Name,
			FullName: github.String(full),
			Owner:    &github.User{Login: github.String(config.Login)},
		})
	})

	handle("POST /repos/{owner}/{repo}/git/blobs", OpCreateBlob, func(w http.ResponseWriter, r *http.Request, _ string) {
		var req github.Blob
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		content := []byte(req.GetContent())
		if req.GetEncoding() == "base64" {
			decoded, err := base64.StdEncoding.DecodeString(req.GetContent())
			if err != nil {
				writeError(w, http.StatusUnprocessableEntity, "invalid base64 content")
				return
			}
			content = decoded
		}
		sha := plumbing.ComputeHash(plumbing.BlobObject, content).String()
		config.Blobs[sha] = content
		writeJSON(w, http.StatusCreated, &github.Blob{SHA: github.String(sha)})
	})

	handle("GET /repos/{owner}/{repo}/git/ref/{ref...}", OpGetRef, func(w http.ResponseWriter, r *http.Request, full string) {
		ref := "refs/" + r.PathValue("ref")
		sha, ok := config.Refs[full][ref]
		if !ok {
			writeError(w, http.StatusNotFound, "Not Found")
			return
		}
		writeJSON(w, http.StatusOK, &github.Reference{
			Ref:    github.String(ref),
			Object: &github.GitObject{SHA: github.String(sha), Type: github.String("commit")},
		})
	})

	handle("GET /repos/{owner}/{repo}/git/commits/{sha}", OpGetCommit, func(w http.ResponseWriter, r *http.Request, _ string) {
		commit, ok := config.Commits[r.PathValue("sha")]
		if !ok {
			writeError(w, http.StatusNotFound, "Not Found")
			return
		}
		writeJSON(w, http.StatusOK, toGitHubCommit(commit))
	})

	handle("POST /repos/{owner}/{repo}/git/trees", OpCreateTree, func(w http.ResponseWriter, r *http.Request, _ string) {
		var req struct {
			BaseTree string `json:"base_tree"`
			Tree     []struct {
				Path string `json:"path"`
				Mode string `json:"mode"`
				Type string `json:"type"`
				SHA  string `json:"sha"`
			} `json:"tree"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		entries := make(map[string]string)
		if req.BaseTree != "" {
			base, ok := config.Trees[req.BaseTree]
			if !ok {
				writeError(w, http.StatusUnprocessableEntity, "base_tree is not a valid tree")
				return
			}
			for p, s := range base {
				entries[p] = s
			}
		}
		for _, e := range req.Tree {
			if _, ok := config.Blobs[e.SHA]; !ok {
				writeError(w, http.StatusUnprocessableEntity, "tree.sha "+e.SHA+" is not a valid blob")
				return
			}
			entries[e.Path] = e.SHA
		}
		sha := config.storeTreeLocked(entries)
		writeJSON(w, http.StatusCreated, &github.Tree{SHA: github.String(sha)})
	})

	handle("POST /repos/{owner}/{repo}/git/commits", OpCreateCommit, func(w http.ResponseWriter, r *http.Request, _ string) {
		var req struct {
			Message string   `json:"message"`
			Tree    string   `json:"tree"`
			Parents []string `json:"parents"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if _, ok := config.Trees[req.Tree]; !ok {
			writeError(w, http.StatusUnprocessableEntity, "Tree SHA does not exist")
			return
		}
		sha := config.storeCommitLocked(req.Tree, req.Parents, req.Message)
		writeJSON(w, http.StatusCreated, toGitHubCommit(config.Commits[sha]))
	})

	handle("PATCH /repos/{owner}/{repo}/git/refs/{ref...}", OpUpdateRef, func(w http.ResponseWriter, r *http.Request, full string) {
		var req struct {
			SHA   string `json:"sha"`
			Force bool   `json:"force"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		ref := "refs/" + r.PathValue("ref")
		current, ok := config.Refs[full][ref]
		if !ok {
			writeError(w, http.StatusUnprocessableEntity, "Reference does not exist")
			return
		}
		if !req.Force && !config.isAncestorLocked(current, req.SHA) {
			writeError(w, http.StatusUnprocessableEntity, "Update is not a fast forward")
			return
		}
		config.Refs[full][ref] = req.SHA
		writeJSON(w, http.StatusOK, &github.Reference{
			Ref:    github.String(ref),
			Object: &github.GitObject{SHA: github.String(req.SHA)},
		})
	})

	handle("POST /repos/{owner}/{repo}/git/refs", OpCreateRef, func(w http.ResponseWriter, r *http.Request, full string) {
		var req struct {
			Ref string `json:"ref"`
			SHA string `json:"sha"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if _, exists := config.Refs[full][req.Ref]; exists {
			writeError(w, http.StatusUnprocessableEntity, "Reference already exists")
			return
		}
		config.Refs[full][req.Ref] = req.SHA
		writeJSON(w, http.StatusCreated, &github.Reference{
			Ref:    github.String(req.Ref),
			Object: &github.GitObject{SHA: github.String(req.SHA)},
		})
	})

	handle("POST /repos/{owner}/{repo}/pages", OpEnablePages, func(w http.ResponseWriter, r *http.Request, full string) {
		var req struct {
			Source *github.PagesSource `json:"source"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if _, enabled := config.Pages[full]; enabled {
			writeError(w, http.StatusConflict, "GitHub Pages is already enabled.")
			return
		}
		config.Pages[full] = req.Source.GetBranch()
		writeJSON(w, http.StatusCreated, config.pagesFor(full, req.Source.GetBranch()))
	})

	handle("GET /repos/{owner}/{repo}/pages", OpGetPages, func(w http.ResponseWriter, _ *http.Request, full string) {
		branch, enabled := config.Pages[full]
		if !enabled {
			writeError(w, http.StatusNotFound, "Not Found")
			return
		}
		writeJSON(w, http.StatusOK, config.pagesFor(full, branch))
	})

	handle("PUT /repos/{owner}/{repo}/pages", OpUpdatePages, func(w http.ResponseWriter, r *http.Request, full string) {
		var req struct {
			Source *github.PagesSource `json:"source"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		config.Pages[full] = req.Source.GetBranch()
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, fmt.Sprintf("Unhandled path: %s (method: %s)", r.URL.Path, r.Method), http.StatusNotFound)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(func() { server.Close() })
	return server
}

func (c *MockGitHubServerConfig) isAncestorLocked(ancestor, sha string) bool {
	seen := map[string]bool{}
	queue := []string{sha}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur == ancestor {
			return true
		}
		if seen[cur] {
			continue
		}
		seen[cur] = true
		if commit, ok := c.Commits[cur]; ok {
			queue = append(queue, commit.Parents...)
		}
	}
	return false
}

func toGitHubCommit(c *MockCommit) *github.Commit {
	commit := &github.Commit{
		SHA:     github.String(c.SHA),
		Message: github.String(c.Message),
		Tree:    &github.Tree{SHA: github.String(c.Tree)},
	}
	for _, p := range c.Parents {
		commit.Parents = append(commit.Parents, &github.Commit{SHA: github.String(p)})
	}
	return commit
}

func (c *MockGitHubServerConfig) pagesFor(full, branch string) *github.Pages {
	owner, name, _ := strings.Cut(full, "/")
	htmlURL := "https://" + strings.ToLower(owner) + ".github.io/" + name + "/"
	if c.PagesBaseURL != "" {
		htmlURL = c.PagesBaseURL + "/pages/" + full + "/"
	}
	return &github.Pages{
		HTMLURL: github.String(htmlURL),
		Source: &github.PagesSource{
			Branch: github.String(branch),
			Path:   github.String("/"),
		},
	}
}

// NewMockGitHubClient creates a GitHub client configured to use a mock server
func NewMockGitHubClient(t *testing.T, config *MockGitHubServerConfig) *github.Client {
	server := NewMockGitHubServer(t, config)
	client := github.NewClient(nil)
	baseURL, _ := url.Parse(server.URL + "/")
	client.BaseURL = baseURL
	client.UploadURL = baseURL
	return client
}
