package bundle

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"mercator-hq/arbiter/pkg/policy"

	"gopkg.in/yaml.v3"
)

// DefaultMaxFileSize bounds a single bundle file.
const DefaultMaxFileSize = 1 << 20

// Bundle is one tenant's policy set as read from a file.
type Bundle struct {
	TenantID string        `yaml:"tenant_id"`
	Version  string        `yaml:"version"`
	Policies []policy.Rule `yaml:"policies"`

	// Path is the file the bundle was read from.
	Path string `yaml:"-"`
}

// LoadError reports a bundle file that could not be loaded.
type LoadError struct {
	Path    string
	Message string
	Cause   error
}

func (e *LoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("bundle %s: %s: %v", e.Path, e.Message, e.Cause)
	}
	return fmt.Sprintf("bundle %s: %s", e.Path, e.Message)
}

func (e *LoadError) Unwrap() error {
	return e.Cause
}

// Loader reads and validates bundle files.
type Loader struct {
	MaxFileSize int64
}

// NewLoader creates a loader with the default file size limit.
func NewLoader() *Loader {
	return &Loader{MaxFileSize: DefaultMaxFileSize}
}

// LoadFile reads a single bundle and validates its rules.
func (l *Loader) LoadFile(path string) (*Bundle, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &LoadError{Path: path, Message: "failed to access file", Cause: err}
	}
	if !info.Mode().IsRegular() {
		return nil, &LoadError{Path: path, Message: "not a regular file"}
	}
	if l.MaxFileSize > 0 && info.Size() > l.MaxFileSize {
		return nil, &LoadError{
			Path:    path,
			Message: fmt.Sprintf("file size %d bytes exceeds maximum %d bytes", info.Size(), l.MaxFileSize),
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Message: "failed to read file", Cause: err}
	}
	b, err := Parse(data)
	if err != nil {
		return nil, &LoadError{Path: path, Message: "invalid bundle", Cause: err}
	}
	b.Path = path
	return b, nil
}

// Parse decodes and validates bundle YAML. Unknown keys are rejected so
// that a misspelled criterion does not silently become a wildcard.
func Parse(data []byte) (*Bundle, error) {
	if !utf8.Valid(data) {
		return nil, errors.New("file contains invalid UTF-8 encoding")
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var b Bundle
	if err := dec.Decode(&b); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty bundle")
		}
		return nil, fmt.Errorf("yaml: %w", err)
	}
	if err := policy.ValidateRules(b.TenantID, b.Policies); err != nil {
		return nil, err
	}
	return &b, nil
}

// LoadDir loads every *.yaml and *.yml file under dir, skipping hidden
// files and directories. Each tenant may appear in only one file. Bundles
// are returned sorted by tenant.
func (l *Loader) LoadDir(dir string) ([]*Bundle, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, &LoadError{Path: dir, Message: "directory not found", Cause: err}
	}
	if !info.IsDir() {
		return nil, &LoadError{Path: dir, Message: "not a directory"}
	}

	var (
		bundles []*Bundle
		errs    []error
		seen    = make(map[string]string)
	)
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !IsBundleFile(path) {
			return nil
		}

		b, err := l.LoadFile(path)
		if err != nil {
			errs = append(errs, err)
			return nil
		}
		if prev, ok := seen[b.TenantID]; ok {
			errs = append(errs, &LoadError{
				Path:    path,
				Message: fmt.Sprintf("tenant %q already defined in %s", b.TenantID, prev),
			})
			return nil
		}
		seen[b.TenantID] = path
		bundles = append(bundles, b)
		return nil
	})
	if err != nil {
		return nil, &LoadError{Path: dir, Message: "failed to walk directory", Cause: err}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	sort.Slice(bundles, func(i, j int) bool { return bundles[i].TenantID < bundles[j].TenantID })
	return bundles, nil
}

// IsBundleFile reports whether path has a bundle extension.
func IsBundleFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
