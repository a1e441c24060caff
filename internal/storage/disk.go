package storage

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// PathUsage is the on-disk footprint of a file or directory tree.
type PathUsage struct {
	Files int   `json:"files"`
	Bytes int64 `json:"bytes"`
}

// DiskUsage sums regular files under each path. A path may be a file or a directory.
// Missing paths contribute nothing.
func DiskUsage(paths ...string) (PathUsage, error) {
	var u PathUsage
	for _, p := range paths {
		if p == "" {
			continue
		}
		err := filepath.WalkDir(p, func(_ string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.Type().IsRegular() {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return err
			}
			u.Files++
			u.Bytes += info.Size()
			return nil
		})
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return PathUsage{}, err
		}
	}
	return u, nil
}
