// Package fsutil holds the file primitives shared by the chunk store and the
// vector index: per-path locking and whole-file atomic replacement.
package fsutil

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
)

var pathLocks sync.Map // cleaned absolute path -> *sync.Mutex

// LockPath serializes callers on the same file across goroutines and across
// processes sharing the data dir. The in-process mutex is taken first, then
// an advisory lock on the sidecar <path>.lock. The returned func releases
// both.
func LockPath(path string) (func(), error) {
	key := canonical(path)
	v, _ := pathLocks.LoadOrStore(key, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()

	if err := os.MkdirAll(filepath.Dir(key), 0o755); err != nil {
		mu.Unlock()
		return nil, fmt.Errorf("mkdir %s: %w", filepath.Dir(key), err)
	}
	fl := flock.New(key + ".lock")
	if err := fl.Lock(); err != nil {
		mu.Unlock()
		return nil, fmt.Errorf("lock %s: %w", key, err)
	}
	return func() {
		_ = fl.Unlock()
		mu.Unlock()
	}, nil
}

func canonical(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return filepath.Clean(abs)
	}
	return filepath.Clean(path)
}

// WriteFileAtomic writes data to a temp file next to path, syncs it and
// renames it over path. Readers see either the old or the new content.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("sync temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		cleanup()
		return fmt.Errorf("chmod temp: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("rename temp: %w", err)
	}
	return nil
}
