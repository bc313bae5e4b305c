// Package filesystem provides the on-disk markdown vault adapter.
package filesystem

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/custodia-labs/relink-cli/internal/core/domain"
	"github.com/custodia-labs/relink-cli/internal/core/ports/driven"
)

// Vault reads and writes markdown notes under a root directory. All
// paths exposed through the port are vault-relative with forward
// slashes, so cache contents stay portable across machines.
type Vault struct {
	root             string
	excludedFolders  []string
	excludedPatterns []string
}

var _ driven.Vault = (*Vault)(nil)

// New creates a vault adapter for the given settings.
func New(settings domain.VaultSettings) (*Vault, error) {
	if settings.Root == "" {
		return nil, fmt.Errorf("vault: root directory is required")
	}

	root, err := filepath.Abs(settings.Root)
	if err != nil {
		return nil, fmt.Errorf("vault: resolving root: %w", err)
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("vault: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("vault: %s is not a directory", root)
	}

	return &Vault{
		root:             root,
		excludedFolders:  settings.ExcludedFolders,
		excludedPatterns: settings.ExcludedPatterns,
	}, nil
}

// Root returns the absolute vault root.
func (v *Vault) Root() string {
	return v.root
}

// Scan enumerates markdown files under the root, skipping excluded
// folders, excluded name patterns and hidden directories. Results are
// sorted by path for deterministic runs.
func (v *Vault) Scan(ctx context.Context) ([]domain.VaultFile, error) {
	var files []domain.VaultFile

	err := filepath.WalkDir(v.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		rel, err := filepath.Rel(v.root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if rel == "." {
				return nil
			}
			if strings.HasPrefix(d.Name(), ".") || v.folderExcluded(rel) {
				return filepath.SkipDir
			}
			return nil
		}

		if !strings.EqualFold(filepath.Ext(d.Name()), ".md") {
			return nil
		}
		if v.nameExcluded(d.Name()) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		files = append(files, domain.VaultFile{
			Path:       rel,
			Title:      strings.TrimSuffix(d.Name(), filepath.Ext(d.Name())),
			ModifiedAt: info.ModTime().UTC(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning vault: %w", err)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

// Read returns a note's full text by vault-relative path.
func (v *Vault) Read(ctx context.Context, path string) (string, error) {
	abs, err := v.resolve(path)
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", domain.ErrNotFound, path)
		}
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return string(data), nil
}

// Write replaces a note's full text. The write goes through a
// temporary file and rename so readers never observe a half-written
// note.
func (v *Vault) Write(ctx context.Context, path string, content string) error {
	abs, err := v.resolve(path)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(abs), ".relink-*")
	if err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("writing %s: %w", path, err)
	}

	if err := os.Rename(tmpName, abs); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// resolve maps a vault-relative path to an absolute one, rejecting
// escapes from the root.
func (v *Vault) resolve(path string) (string, error) {
	abs := filepath.Join(v.root, filepath.FromSlash(path))
	if !strings.HasPrefix(abs, v.root+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: path %q escapes vault root", domain.ErrInvalidInput, path)
	}
	return abs, nil
}

func (v *Vault) folderExcluded(rel string) bool {
	for _, folder := range v.excludedFolders {
		folder = strings.Trim(filepath.ToSlash(folder), "/")
		if folder == "" {
			continue
		}
		if rel == folder || strings.HasPrefix(rel, folder+"/") {
			return true
		}
	}
	return false
}

func (v *Vault) nameExcluded(name string) bool {
	for _, pattern := range v.excludedPatterns {
		if ok, err := filepath.Match(pattern, name); err == nil && ok {
			return true
		}
	}
	return false
}
