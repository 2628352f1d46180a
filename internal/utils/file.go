package utils

import (
	"os"
	"path/filepath"
	"slices"
)

// AtomicWriteFile replaces path with data so that readers see either the old
// or the new content, never a partial write. The data is flushed to disk
// before the rename.
func AtomicWriteFile(path string, data []byte, perm os.FileMode) error {
	return AtomicWriteFiles(map[string][]byte{path: data}, perm)
}

// AtomicWriteFiles stages every file as a flushed temporary file next to its
// target and renames them into place only after all of them were written.
// A failure while staging leaves every target untouched. Each rename is
// atomic on its own but the set is not: when a later rename fails, targets
// renamed before it already hold the new content. Callers that need the set
// to be consistent must detect mixed files when reading them back.
func AtomicWriteFiles(files map[string][]byte, perm os.FileMode) error {
	paths := make([]string, 0, len(files))
	for path := range files {
		paths = append(paths, path)
	}
	slices.Sort(paths)

	staged := make(map[string]string, len(files))
	cleanup := func() {
		for _, tmp := range staged {
			os.Remove(tmp)
		}
	}

	for _, path := range paths {
		tmp, err := writeTemp(path, files[path], perm)
		if err != nil {
			cleanup()
			return err
		}
		staged[path] = tmp
	}

	dirs := make(map[string]struct{})
	for _, path := range paths {
		if err := os.Rename(staged[path], path); err != nil {
			cleanup()
			return err
		}
		delete(staged, path)
		dirs[filepath.Dir(path)] = struct{}{}
	}

	for dir := range dirs {
		syncDir(dir)
	}
	return nil
}

func writeTemp(path string, data []byte, perm os.FileMode) (string, error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return "", err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", err
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", err
	}

	return tmpName, nil
}

// syncDir makes renames durable. Platforms that cannot fsync a directory
// are ignored.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	defer d.Close()
	_ = d.Sync()
}
