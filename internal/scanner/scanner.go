// scanner is used to find and read the documents to proofread.
package scanner

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"mozuku/internal/extract"

	"github.com/tliron/commonlog"
	"golang.org/x/sync/errgroup"
)

var log = commonlog.GetLogger("mozuku.scanner")

// ignoredDirs are never descended into, in addition to hidden directories.
var ignoredDirs = map[string]bool{
	"node_modules": true,
	"vendor":       true,
	"target":       true,
}

// Files expands roots into the supported documents below them, sorted.
// A root naming a file is kept even if its extension is unknown.
func Files(roots []string) ([]string, error) {
	var out []string
	for _, root := range roots {
		info, err := os.Stat(root)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			out = append(out, root)
			continue
		}
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				log.Warningf("walk error: %v", err)
				return nil
			}
			if d.IsDir() {
				if path != root && ignoreDir(d.Name()) {
					log.Debugf("skipping %q", path)
					return fs.SkipDir
				}
				return nil
			}
			if extract.Supported(path) {
				out = append(out, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	sort.Strings(out)
	return out, nil
}

func ignoreDir(name string) bool {
	return strings.HasPrefix(name, ".") || ignoredDirs[name]
}

// Scan reads every file with at most workers concurrent callbacks. The
// first callback error cancels the remaining reads and is returned. Scan
// only returns once all callbacks have completed.
func Scan(
	ctx context.Context,
	files []string,
	workers int,
	callback func(path string, document []byte) error,
) error {
	if workers < 1 {
		workers = 1
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, path := range files {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			return callback(path, data)
		})
	}
	return g.Wait()
}
