package preflight

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
// A missing directory passes when its parent is writable, since it is created on demand.
func CheckDirectoryAccess(name, path string) Result {
	if path == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return checkCreatable(name, path)
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

func checkCreatable(name, path string) Result {
	parent := filepath.Clean(path)
	for {
		next := filepath.Dir(parent)
		if next == parent {
			break
		}
		parent = next
		if _, err := os.Stat(parent); err == nil {
			break
		}
	}
	if err := unix.Access(parent, unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist and %s is not writable)", path, parent)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (will be created)", path)}
}

// CheckRootsReadable verifies that every root exists and can be read. A
// directory root must also be searchable. One Result is returned per root.
func CheckRootsReadable(name string, roots []string) []Result {
	if len(roots) == 0 {
		return []Result{{Name: name, Detail: "no roots configured"}}
	}
	results := make([]Result, 0, len(roots))
	for _, root := range roots {
		results = append(results, checkRoot(name, root))
	}
	return results
}

func checkRoot(name, root string) Result {
	info, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", root)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", root, err)}
	}
	mode := uint32(unix.R_OK)
	kind := "file"
	if info.IsDir() {
		mode |= unix.X_OK
		kind = "directory"
	}
	if err := unix.Access(root, mode); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %s not readable: %v)", root, kind, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%s readable)", root, kind)}
}
