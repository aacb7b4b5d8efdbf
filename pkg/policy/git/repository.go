package git

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"mercator-hq/arbiter/pkg/config"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
)

// DefaultOperationTimeout bounds a clone or pull.
const DefaultOperationTimeout = 2 * time.Minute

// CommitInfo describes a commit.
type CommitInfo struct {
	SHA       string    `json:"sha"`
	Author    string    `json:"author"`
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
}

// Short returns the abbreviated SHA used in logs.
func (c CommitInfo) Short() string {
	if len(c.SHA) > 8 {
		return c.SHA[:8]
	}
	return c.SHA
}

// PullResult describes the outcome of a pull.
type PullResult struct {
	FromSHA      string
	ToSHA        string
	ChangedFiles []string
}

// HadChanges reports whether HEAD moved.
func (p PullResult) HadChanges() bool {
	return p.FromSHA != p.ToSHA
}

// Repository is a local clone tracking one branch.
type Repository struct {
	cfg     config.GitPolicyConfig
	auth    transport.AuthMethod
	timeout time.Duration

	mu   sync.Mutex
	repo *gogit.Repository
}

// NewRepository validates cfg and resolves credentials. It does not touch
// the network; call Clone.
func NewRepository(cfg config.GitPolicyConfig) (*Repository, error) {
	if cfg.Repository == "" {
		return nil, fmt.Errorf("repository URL cannot be empty")
	}
	if cfg.Branch == "" {
		return nil, fmt.Errorf("branch cannot be empty")
	}
	if cfg.LocalPath == "" {
		return nil, fmt.Errorf("local path cannot be empty")
	}

	auth, err := authMethod(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to create auth: %w", err)
	}

	return &Repository{cfg: cfg, auth: auth, timeout: DefaultOperationTimeout}, nil
}

// Clone opens an existing clone at the local path or clones the remote
// into it, and returns the HEAD commit.
func (r *Repository) Clone(ctx context.Context) (CommitInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.repo == nil {
		repo, err := r.openOrClone(ctx)
		if err != nil {
			return CommitInfo{}, err
		}
		r.repo = repo
	}
	return r.head()
}

func (r *Repository) openOrClone(ctx context.Context) (*gogit.Repository, error) {
	if _, err := os.Stat(filepath.Join(r.cfg.LocalPath, ".git")); err == nil {
		repo, err := gogit.PlainOpen(r.cfg.LocalPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open existing repo: %w", err)
		}
		return repo, nil
	}

	if err := os.MkdirAll(r.cfg.LocalPath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create repository directory: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	repo, err := gogit.PlainCloneContext(ctx, r.cfg.LocalPath, false, &gogit.CloneOptions{
		URL:           r.cfg.Repository,
		Auth:          r.auth,
		ReferenceName: plumbing.NewBranchReferenceName(r.cfg.Branch),
		SingleBranch:  true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to clone repository: %w", err)
	}
	return repo, nil
}

// Pull fast-forwards the tracked branch and lists the files that changed.
func (r *Repository) Pull(ctx context.Context) (PullResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.repo == nil {
		return PullResult{}, fmt.Errorf("repository not initialized, call Clone() first")
	}

	from, err := r.repo.Head()
	if err != nil {
		return PullResult{}, fmt.Errorf("failed to get HEAD: %w", err)
	}
	worktree, err := r.repo.Worktree()
	if err != nil {
		return PullResult{}, fmt.Errorf("failed to get worktree: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	err = worktree.PullContext(ctx, &gogit.PullOptions{
		RemoteName:    "origin",
		ReferenceName: plumbing.NewBranchReferenceName(r.cfg.Branch),
		SingleBranch:  true,
		Auth:          r.auth,
	})
	if err != nil && !errors.Is(err, gogit.NoErrAlreadyUpToDate) {
		return PullResult{}, fmt.Errorf("failed to pull: %w", err)
	}

	to, err := r.repo.Head()
	if err != nil {
		return PullResult{}, fmt.Errorf("failed to get new HEAD: %w", err)
	}

	res := PullResult{FromSHA: from.Hash().String(), ToSHA: to.Hash().String()}
	if res.HadChanges() {
		if res.ChangedFiles, err = r.changedFiles(from.Hash(), to.Hash()); err != nil {
			return PullResult{}, err
		}
	}
	return res, nil
}

// Head returns the current HEAD commit.
func (r *Repository) Head() (CommitInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.repo == nil {
		return CommitInfo{}, fmt.Errorf("repository not initialized, call Clone() first")
	}
	return r.head()
}

func (r *Repository) head() (CommitInfo, error) {
	ref, err := r.repo.Head()
	if err != nil {
		return CommitInfo{}, fmt.Errorf("failed to get HEAD: %w", err)
	}
	commit, err := r.repo.CommitObject(ref.Hash())
	if err != nil {
		return CommitInfo{}, fmt.Errorf("failed to get commit: %w", err)
	}
	return CommitInfo{
		SHA:       commit.Hash.String(),
		Author:    commit.Author.Name,
		Timestamp: commit.Author.When,
		Message:   commit.Message,
	}, nil
}

// changedFiles diffs the trees of two commits. Deleted files are reported
// by their old name.
func (r *Repository) changedFiles(from, to plumbing.Hash) ([]string, error) {
	fromCommit, err := r.repo.CommitObject(from)
	if err != nil {
		return nil, fmt.Errorf("failed to get from commit: %w", err)
	}
	toCommit, err := r.repo.CommitObject(to)
	if err != nil {
		return nil, fmt.Errorf("failed to get to commit: %w", err)
	}
	fromTree, err := fromCommit.Tree()
	if err != nil {
		return nil, fmt.Errorf("failed to get from tree: %w", err)
	}
	toTree, err := toCommit.Tree()
	if err != nil {
		return nil, fmt.Errorf("failed to get to tree: %w", err)
	}
	changes, err := fromTree.Diff(toTree)
	if err != nil {
		return nil, fmt.Errorf("failed to diff trees: %w", err)
	}

	files := make([]string, 0, len(changes))
	for _, c := range changes {
		if c.To.Name != "" {
			files = append(files, c.To.Name)
		} else {
			files = append(files, c.From.Name)
		}
	}
	return files, nil
}

// BundleDir is the bundle directory inside the clone.
func (r *Repository) BundleDir() string {
	return filepath.Join(r.cfg.LocalPath, r.cfg.Path)
}

// BundlePath is the bundle directory relative to the repository root, as
// it appears in changed file names.
func (r *Repository) BundlePath() string {
	return filepath.ToSlash(filepath.Clean(r.cfg.Path))
}
