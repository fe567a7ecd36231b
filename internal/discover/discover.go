// Package discover finds the source files a scan will process. The
// returned file list is deterministic: lexicographically sorted by
// normalized relative path, so the same tree always scans in the same
// order on every platform.
package discover

import (
	"bufio"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/AperturePlus/synapse/internal/lang"
)

// ignoreFileName holds per-project ignore patterns, one doublestar
// glob per line.
const ignoreFileName = ".synapseignore"

// Directories never descended into.
var ignoredDirs = map[string]struct{}{
	".git":         {},
	".hg":          {},
	".svn":         {},
	".idea":        {},
	".vscode":      {},
	"node_modules": {},
	"vendor":       {},
	"dist":         {},
	"build":        {},
	"target":       {},
	"__pycache__":  {},
}

// FileInfo is one discovered source file.
type FileInfo struct {
	Path     string
	RelPath  string
	Language lang.Language
}

// Options narrows discovery.
type Options struct {
	// Languages restricts discovery to the given set; empty means all
	// supported languages.
	Languages []lang.Language
	// ExtraIgnores are doublestar patterns applied on top of the
	// project's ignore file.
	ExtraIgnores []string
}

// Files walks root and returns the supported source files in sorted
// order. Hidden and dependency directories are skipped, as is anything
// matching the project's ignore file.
func Files(root string, opts Options) ([]FileInfo, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}

	patterns, err := loadIgnoreFile(filepath.Join(root, ignoreFileName))
	if err != nil {
		return nil, err
	}
	patterns = append(patterns, opts.ExtraIgnores...)

	wanted := make(map[lang.Language]struct{})
	for _, l := range opts.Languages {
		wanted[l] = struct{}{}
	}

	var files []FileInfo
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if rel == "." {
				return nil
			}
			if _, skip := ignoredDirs[d.Name()]; skip {
				return filepath.SkipDir
			}
			if matchesAny(patterns, rel) {
				return filepath.SkipDir
			}
			return nil
		}

		l, ok := lang.ForExtension(filepath.Ext(path))
		if !ok {
			return nil
		}
		if len(wanted) > 0 {
			if _, ok := wanted[l]; !ok {
				return nil
			}
		}
		if matchesAny(patterns, rel) {
			return nil
		}
		files = append(files, FileInfo{Path: path, RelPath: rel, Language: l})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].RelPath < files[j].RelPath })
	return files, nil
}

func loadIgnoreFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open ignore file: %w", err)
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read ignore file: %w", err)
	}
	return patterns, nil
}

func matchesAny(patterns []string, rel string) bool {
	for _, p := range patterns {
		if ok, err := doublestar.Match(p, rel); err == nil && ok {
			return true
		}
	}
	return false
}
