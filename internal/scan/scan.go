// Package scan walks local directories for files to send to the provider.
package scan

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	gitignore "github.com/sabhiram/go-gitignore"

	"github.com/kalambet/gemsearch/internal/remote"
)

// DependencyDir is the package-manager cache directory skipped at every depth.
const DependencyDir = "node_modules"

// Options tune a scan.
type Options struct {
	// IgnoreFile is a gitignore-syntax file looked up in the scan root.
	IgnoreFile string

	// Include, when non-empty, keeps only files whose slash-separated path
	// relative to the root matches one of these doublestar patterns.
	Include []string
}

// Scan returns the absolute paths of candidate files under root in lexical
// walk order. Hidden entries (leading ".") and node_modules directories are
// skipped. Any filesystem error aborts the scan with a *remote.ScanError.
func Scan(root string, opts Options) ([]string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, &remote.ScanError{Path: root, Err: err}
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, &remote.ScanError{Path: abs, Err: err}
	}
	if !info.IsDir() {
		return nil, &remote.ScanError{Path: abs, Err: errors.New("not a directory")}
	}

	for _, p := range opts.Include {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid include pattern %q", p)
		}
	}

	ignore, err := loadIgnore(abs, opts.IgnoreFile)
	if err != nil {
		return nil, &remote.ScanError{Path: filepath.Join(abs, opts.IgnoreFile), Err: err}
	}

	var files []string
	err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return &remote.ScanError{Path: path, Err: walkErr}
		}
		if path == abs {
			return nil
		}

		name := d.Name()
		rel, err := filepath.Rel(abs, path)
		if err != nil {
			return &remote.ScanError{Path: path, Err: err}
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if strings.HasPrefix(name, ".") || name == DependencyDir {
				return filepath.SkipDir
			}
			if ignore != nil && (ignore.MatchesPath(rel) || ignore.MatchesPath(rel+"/")) {
				return filepath.SkipDir
			}
			return nil
		}

		if strings.HasPrefix(name, ".") {
			return nil
		}
		if ignore != nil && ignore.MatchesPath(rel) {
			return nil
		}
		if !included(rel, opts.Include) {
			return nil
		}

		regular, err := isRegularFile(path, d)
		if err != nil {
			return &remote.ScanError{Path: path, Err: err}
		}
		if regular {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		var scanErr *remote.ScanError
		if errors.As(err, &scanErr) {
			return nil, scanErr
		}
		return nil, &remote.ScanError{Path: abs, Err: err}
	}
	return files, nil
}

func loadIgnore(root, name string) (*gitignore.GitIgnore, error) {
	if name == "" {
		return nil, nil
	}
	path := filepath.Join(root, name)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return gitignore.CompileIgnoreFile(path)
}

func included(rel string, patterns []string) bool {
	if len(patterns) == 0 {
		return true
	}
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

// isRegularFile follows symlinks so linked documents are picked up like
// ordinary ones.
func isRegularFile(path string, d fs.DirEntry) (bool, error) {
	if d.Type().IsRegular() {
		return true, nil
	}
	if d.Type()&fs.ModeSymlink == 0 {
		return false, nil
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.Mode().IsRegular(), nil
}
