package git

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"mercator-hq/arbiter/pkg/config"
	"mercator-hq/arbiter/pkg/policy"
	"mercator-hq/arbiter/pkg/policy/bundle"
	"mercator-hq/arbiter/pkg/store/memory"
	"mercator-hq/arbiter/pkg/telemetry/logging"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

const acmeV1 = `tenant_id: acme
version: v1
policies:
  - name: deny-pii
    priority: 10
    match:
      data_sensitivity: pii
    decision:
      effect: deny
`

const acmeV2 = `tenant_id: acme
version: v2
policies:
  - name: deny-pii
    priority: 10
    match:
      data_sensitivity: pii
    decision:
      effect: deny
  - name: approve-prod
    priority: 5
    match:
      environment: prd
    decision:
      effect: require_approval
`

// remote is a non-bare repository used as the clone source. go-git init
// creates "master".
type remote struct {
	t    *testing.T
	dir  string
	repo *gogit.Repository
}

func newRemote(t *testing.T) *remote {
	t.Helper()
	dir := t.TempDir()
	repo, err := gogit.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("failed to init repo: %v", err)
	}
	return &remote{t: t, dir: dir, repo: repo}
}

func (r *remote) commit(files map[string]string, msg string) {
	r.t.Helper()
	wt, err := r.repo.Worktree()
	if err != nil {
		r.t.Fatalf("failed to get worktree: %v", err)
	}
	for name, content := range files {
		full := filepath.Join(r.dir, name)
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			r.t.Fatal(err)
		}
		if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
			r.t.Fatal(err)
		}
		if _, err := wt.Add(name); err != nil {
			r.t.Fatalf("failed to add %s: %v", name, err)
		}
	}
	_, err = wt.Commit(msg, &gogit.CommitOptions{
		Author: &object.Signature{Name: "Test User", Email: "test@example.com", When: time.Now()},
	})
	if err != nil {
		r.t.Fatalf("failed to commit: %v", err)
	}
}

func testConfig(t *testing.T, remoteDir string) config.GitPolicyConfig {
	return config.GitPolicyConfig{
		Enabled:    true,
		Repository: remoteDir,
		Branch:     "master",
		Path:       "policies",
		LocalPath:  filepath.Join(t.TempDir(), "clone"),
		Auth:       config.GitAuthConfig{Type: AuthNone},
	}
}

func TestNewRepository_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.GitPolicyConfig
	}{
		{"empty repository", config.GitPolicyConfig{Branch: "main", LocalPath: "/tmp/x"}},
		{"empty branch", config.GitPolicyConfig{Repository: "https://example.com/p.git", LocalPath: "/tmp/x"}},
		{"empty local path", config.GitPolicyConfig{Repository: "https://example.com/p.git", Branch: "main"}},
		{"token without token", config.GitPolicyConfig{
			Repository: "https://example.com/p.git", Branch: "main", LocalPath: "/tmp/x",
			Auth: config.GitAuthConfig{Type: AuthToken},
		}},
		{"unknown auth", config.GitPolicyConfig{
			Repository: "https://example.com/p.git", Branch: "main", LocalPath: "/tmp/x",
			Auth: config.GitAuthConfig{Type: "kerberos"},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewRepository(tt.cfg); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestAuthMethod(t *testing.T) {
	if m, err := authMethod(config.GitAuthConfig{}); err != nil || m != nil {
		t.Errorf("none: method = %v, err = %v", m, err)
	}
	m, err := authMethod(config.GitAuthConfig{Type: AuthToken, Token: "ghp_x"})
	if err != nil || m == nil {
		t.Fatalf("token: method = %v, err = %v", m, err)
	}

	key := filepath.Join(t.TempDir(), "id_ed25519")
	if err := os.WriteFile(key, []byte("not a key"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := authMethod(config.GitAuthConfig{Type: AuthSSH, SSHKeyPath: key}); err == nil {
		t.Error("expected error for world-readable key")
	}
	if _, err := authMethod(config.GitAuthConfig{Type: AuthSSH}); err == nil {
		t.Error("expected error for missing key path")
	}
}

func TestRepository_CloneAndPull(t *testing.T) {
	rem := newRemote(t)
	rem.commit(map[string]string{"policies/acme.yaml": acmeV1}, "initial")

	repo, err := NewRepository(testConfig(t, rem.dir))
	if err != nil {
		t.Fatalf("NewRepository() error = %v", err)
	}
	ctx := context.Background()

	head, err := repo.Clone(ctx)
	if err != nil {
		t.Fatalf("Clone() error = %v", err)
	}
	if head.Message != "initial" || len(head.Short()) != 8 {
		t.Errorf("head = %+v", head)
	}
	if _, err := os.Stat(filepath.Join(repo.BundleDir(), "acme.yaml")); err != nil {
		t.Errorf("bundle not checked out: %v", err)
	}

	res, err := repo.Pull(ctx)
	if err != nil {
		t.Fatalf("Pull() error = %v", err)
	}
	if res.HadChanges() {
		t.Errorf("unexpected changes on up-to-date pull: %+v", res)
	}

	rem.commit(map[string]string{"policies/acme.yaml": acmeV2, "README.md": "docs"}, "add approval rule")
	res, err = repo.Pull(ctx)
	if err != nil {
		t.Fatalf("Pull() error = %v", err)
	}
	if !res.HadChanges() || len(res.ChangedFiles) != 2 {
		t.Errorf("pull result = %+v, want two changed files", res)
	}
}

func TestRepository_PullBeforeClone(t *testing.T) {
	repo, err := NewRepository(testConfig(t, "/nonexistent"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := repo.Pull(context.Background()); err == nil {
		t.Error("expected error before Clone")
	}
	if _, err := repo.Clone(context.Background()); err == nil {
		t.Error("expected clone of a missing repository to fail")
	}
}

func TestTouchesBundles(t *testing.T) {
	tests := []struct {
		files []string
		dir   string
		want  bool
	}{
		{[]string{"policies/acme.yaml"}, "policies", true},
		{[]string{"policies/nested/a.yml"}, "policies", true},
		{[]string{"README.md", "policies/notes.txt"}, "policies", false},
		{[]string{"other/acme.yaml"}, "policies", false},
		{[]string{"policies-old/acme.yaml"}, "policies", false},
		{[]string{"acme.yaml"}, ".", true},
	}
	for _, tt := range tests {
		if got := touchesBundles(tt.files, tt.dir); got != tt.want {
			t.Errorf("touchesBundles(%v, %q) = %v, want %v", tt.files, tt.dir, got, tt.want)
		}
	}
}

func TestSource_SyncAndPoll(t *testing.T) {
	rem := newRemote(t)
	rem.commit(map[string]string{"policies/acme.yaml": acmeV1}, "initial")

	repo, err := NewRepository(testConfig(t, rem.dir))
	if err != nil {
		t.Fatal(err)
	}
	importer := policy.NewImporter(memory.New(), logging.Discard())
	src := NewSource(repo, bundle.NewSyncer(importer, nil, logging.Discard()), time.Minute, logging.Discard())
	ctx := context.Background()

	res, err := src.Sync(ctx)
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if res.Tenants != 1 || res.Rules != 1 {
		t.Errorf("sync result = %+v", res)
	}
	first := src.LastSHA()

	// A commit outside the bundle path does not re-import.
	rem.commit(map[string]string{"README.md": "docs"}, "docs only")
	if err := src.Poll(ctx); err != nil {
		t.Fatalf("Poll() error = %v", err)
	}
	if src.LastSHA() == first {
		t.Error("LastSHA not advanced past docs-only commit")
	}

	rem.commit(map[string]string{"policies/acme.yaml": acmeV2}, "add approval rule")
	if err := src.Poll(ctx); err != nil {
		t.Fatalf("Poll() error = %v", err)
	}
	got, err := importer.List(ctx, "acme")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Version != "v2" {
		t.Errorf("acme policies after poll = %+v", got)
	}

	// An invalid bundle is rejected and the v2 set stays active.
	rem.commit(map[string]string{"policies/acme.yaml": "tenant_id: acme\npolicies:\n  - name: x\n    decision:\n      effect: maybe\n"}, "break it")
	if err := src.Poll(ctx); err == nil {
		t.Error("expected sync error for invalid bundle")
	}
	got, _ = importer.List(ctx, "acme")
	if len(got) != 2 {
		t.Errorf("acme policies after invalid commit = %d, want 2", len(got))
	}
}
