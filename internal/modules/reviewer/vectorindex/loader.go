package vectorindex

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/yungbote/reviewer-backend/internal/platform/apierr"
)

// Loader caches decoded index files keyed by path, reloading when the file's
// modification time or size changes. Concurrent loads of one path share a
// single read. Writers replace files by rename, so reads take no lock.
type Loader struct {
	mu      sync.Mutex
	entries map[string]loaderEntry
	group   singleflight.Group
}

type loaderEntry struct {
	modTime time.Time
	size    int64
	index   *Index
}

func NewLoader() *Loader {
	return &Loader{entries: map[string]loaderEntry{}}
}

// Get returns the index at path, or (nil, nil) when no index file exists.
func (l *Loader) Get(path string) (*Index, error) {
	st, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		l.Invalidate(path)
		return nil, nil
	}
	if err != nil {
		return nil, apierr.Wrap(apierr.CodeIndexCorrupt, fmt.Errorf("stat index: %w", err))
	}

	l.mu.Lock()
	e, ok := l.entries[path]
	l.mu.Unlock()
	if ok && e.modTime.Equal(st.ModTime()) && e.size == st.Size() {
		return e.index, nil
	}

	v, err, _ := l.group.Do(path, func() (any, error) {
		st, err := os.Stat(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return (*Index)(nil), nil
			}
			return nil, apierr.Wrap(apierr.CodeIndexCorrupt, fmt.Errorf("stat index: %w", err))
		}
		ix, err := Load(path)
		if err != nil {
			return nil, err
		}
		l.mu.Lock()
		l.entries[path] = loaderEntry{modTime: st.ModTime(), size: st.Size(), index: ix}
		l.mu.Unlock()
		return ix, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Index), nil
}

// Invalidate drops the cached entry for path.
func (l *Loader) Invalidate(path string) {
	l.mu.Lock()
	delete(l.entries, path)
	l.mu.Unlock()
}
