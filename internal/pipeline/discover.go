package pipeline

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/backmassage/mediaopt/internal/naming"
)

// Source image extensions (lowercase, with leading dot).
var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// DiscoverOptions controls which directories the walk enters.
type DiscoverOptions struct {
	// ExcludeDirs lists directory names (exact match) that are pruned.
	ExcludeDirs []string

	// OnError is told about entries that could not be read. The walk skips
	// them and continues; an unreadable root still fails Discover.
	OnError func(path string, err error)
}

// Discover walks root, collects JPEG and PNG files, and returns the paths
// sorted lexicographically for deterministic processing order. Directories
// whose name starts with "." or appears in opts.ExcludeDirs are pruned, and
// files named like a derivative ("-optimized", "-<n>w") are skipped so a
// second run never re-optimizes its own output.
func Discover(root string, opts DiscoverOptions) ([]string, error) {
	excluded := make(map[string]bool, len(opts.ExcludeDirs))
	for _, name := range opts.ExcludeDirs {
		excluded[name] = true
	}

	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			if opts.OnError != nil {
				opts.OnError(path, err)
			}
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if path == root {
				return nil
			}
			name := d.Name()
			if strings.HasPrefix(name, ".") || excluded[name] {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if !imageExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		if naming.IsDerived(d.Name()) {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}
