package fingerprint

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/spf13/afero"
	"golang.org/x/text/unicode/norm"
)

// fileUnit is one file scheduled for hashing.
type fileUnit struct {
	root string
	rel  string // slash-separated, relative to root
	path string // path opened on the filesystem
	key  string // NFC form of rel, used for ordering
}

// plan resolves every root and returns the files to hash in canonical
// order. It runs to completion before any file content is read, so a
// missing root never leaves a partially fed hash behind.
func (e *engine) plan(ctx context.Context) ([]fileUnit, error) {
	var units []fileUnit
	for _, root := range e.roots {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if pattern, ok := e.exclude.match(root, filepath.ToSlash(root), filepath.Base(root)); ok {
			e.logger.Debug("root excluded", "root", root, "pattern", pattern)
			continue
		}

		info, err := e.fs.Stat(root)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("%w: %s", ErrRootNotFound, root)
			}
			if uerr := e.unreadable(root, err); uerr != nil {
				return nil, uerr
			}
			continue
		}

		switch {
		case info.Mode().IsRegular():
			units = append(units, fileUnit{root: root, rel: filepath.Base(root), path: root})
		case info.IsDir():
			files, err := e.collect(ctx, root)
			if err != nil {
				return nil, err
			}
			units = append(units, files...)
		default:
			e.logger.Debug("root is not a regular file or directory; ignored", "root", root, "mode", info.Mode().String())
		}
	}
	return units, nil
}

// collect gathers every file below root and sorts the set once by relative
// path, so the order never depends on directory traversal order.
func (e *engine) collect(ctx context.Context, root string) ([]fileUnit, error) {
	var files []fileUnit
	if err := e.walkDir(ctx, root, root, "", &files); err != nil {
		return nil, err
	}
	sort.SliceStable(files, func(i, j int) bool {
		if files[i].key != files[j].key {
			return files[i].key < files[j].key
		}
		return files[i].rel < files[j].rel
	})
	return files, nil
}

func (e *engine) walkDir(ctx context.Context, root, dir, rel string, out *[]fileUnit) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	entries, err := afero.ReadDir(e.fs, dir)
	if err != nil {
		return e.unreadable(dir, err)
	}

	for _, entry := range entries {
		name := entry.Name()
		full := filepath.Join(dir, name)
		childRel := path.Join(rel, name)
		if pattern, ok := e.exclude.match(full, childRel, name); ok {
			e.logger.Debug("path excluded", "path", full, "pattern", pattern)
			continue
		}

		mode := entry.Mode()
		if mode&os.ModeSymlink != 0 {
			target, err := e.fs.Stat(full)
			if err != nil {
				if uerr := e.unreadable(full, err); uerr != nil {
					return uerr
				}
				continue
			}
			if target.IsDir() {
				e.logger.Debug("symlinked directory not followed", "path", full)
				continue
			}
			mode = target.Mode()
		}

		switch {
		case mode.IsDir():
			if err := e.walkDir(ctx, root, full, childRel, out); err != nil {
				return err
			}
		case mode.IsRegular():
			*out = append(*out, fileUnit{
				root: root,
				rel:  childRel,
				path: full,
				key:  norm.NFC.String(childRel),
			})
		default:
			e.logger.Debug("special file ignored", "path", full, "mode", mode.String())
		}
	}
	return nil
}
