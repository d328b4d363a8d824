package knowledge

import (
	"io/fs"
	"os"
	"path/filepath"
)

// diskUsageBytes sums the on-disk size of the database file (including WAL
// sidecars) and the index directory. Missing paths count as zero.
func diskUsageBytes(dbPath, indexDir string) (int64, error) {
	var total int64
	for _, p := range []string{dbPath, dbPath + "-wal", dbPath + "-shm"} {
		if info, err := os.Stat(p); err == nil {
			total += info.Size()
		}
	}
	if indexDir == "" {
		return total, nil
	}
	size, err := dirSize(indexDir)
	if err != nil {
		return total, err
	}
	return total + size, nil
}

func dirSize(dir string) (int64, error) {
	var total int64
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		total += info.Size()
		return nil
	})
	if os.IsNotExist(err) {
		return 0, nil
	}
	return total, err
}
