package harness

import (
	"io/fs"
	"path/filepath"
	"strings"
)

// ExpandScripts flattens a plan's script list into individual test
// files: directory entries are replaced by the .py files beneath them
// (lexical order), plain paths pass through unchanged, and excluded
// paths are removed. Used by the per-script strategies, which never
// batch.
func ExpandScripts(tc Toolchain, scripts, excludes []string) ([]string, error) {
	var out []string
	for _, script := range scripts {
		if !isDir(tc, script) {
			out = append(out, script)
			continue
		}

		root := script
		if !filepath.IsAbs(root) {
			root = filepath.Join(tc.TestDir, script)
		}
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !strings.HasSuffix(d.Name(), ".py") {
				return nil
			}
			if !filepath.IsAbs(script) {
				if rel, relErr := filepath.Rel(tc.TestDir, path); relErr == nil {
					path = rel
				}
			}
			out = append(out, path)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	if len(excludes) == 0 {
		return out, nil
	}

	excluded := make(map[string]bool, len(excludes))
	for _, e := range excludes {
		excluded[filepath.Clean(e)] = true
	}
	var kept []string
	for _, s := range out {
		if !excluded[filepath.Clean(s)] {
			kept = append(kept, s)
		}
	}
	return kept, nil
}
