package storage

import (
	"io/fs"
	"os"
	"path/filepath"
)

// Usage is the on-disk footprint of each store, in bytes.
type Usage struct {
	Documents  int64 `json:"documents_bytes"`
	Indices    int64 `json:"indices_bytes"`
	PointStore int64 `json:"point_store_bytes"`
}

// Total returns the sum of all parts.
func (u Usage) Total() int64 {
	return u.Documents + u.Indices + u.PointStore
}

// DiskUsage measures the document database (including its WAL files), the index
// directory and the local point store file. Missing paths count as zero.
func DiskUsage(dbPath, indexDir, pointStorePath string) (Usage, error) {
	var u Usage
	var err error
	if u.Documents, err = DiskUsageBytes(dbPath, dbPath+"-wal", dbPath+"-shm"); err != nil {
		return u, err
	}
	if u.Indices, err = DiskUsageBytes(indexDir); err != nil {
		return u, err
	}
	if u.PointStore, err = DiskUsageBytes(pointStorePath); err != nil {
		return u, err
	}
	return u, nil
}

// DiskUsageBytes returns the total size in bytes of the given paths.
// Each path may be a file or a directory (recursively summed).
// Missing or empty paths contribute 0.
func DiskUsageBytes(paths ...string) (int64, error) {
	var total int64
	for _, p := range paths {
		if p == "" {
			continue
		}
		info, err := os.Stat(p)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return 0, err
		}
		if !info.IsDir() {
			total += info.Size()
			continue
		}
		err = filepath.WalkDir(p, func(_ string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return err
			}
			fi, err := d.Info()
			if err != nil {
				return err
			}
			total += fi.Size()
			return nil
		})
		if err != nil {
			return 0, err
		}
	}
	return total, nil
}
