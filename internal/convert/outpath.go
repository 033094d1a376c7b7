package convert

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ErrNamingExhausted is returned when no collision-free output name can be
// found within the attempt bound. Treated as a job-level failure.
var ErrNamingExhausted = errors.New("no free output file name available")

// maxNamingAttempts bounds the "base (n).ext" counter search.
const maxNamingAttempts = 10000

// PathResolver computes unique output paths. A name is taken when it exists
// on disk or has been handed out for another job in the same run, so two
// concurrently prepared jobs can never resolve to the same file. Resolution
// is a single critical section.
type PathResolver struct {
	mu       sync.Mutex
	reserved map[string]struct{}
	stat     func(string) (os.FileInfo, error)
}

// NewPathResolver creates a resolver backed by the real filesystem.
func NewPathResolver() *PathResolver {
	return &PathResolver{
		reserved: make(map[string]struct{}),
		stat:     os.Stat,
	}
}

// Resolve returns "dir/base.ext", or "dir/base (n).ext" for the first free
// n starting at 1, and reserves the returned path for this run.
func (r *PathResolver) Resolve(dir, base, ext string) (string, error) {
	base = strings.TrimSpace(base)
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	candidate := filepath.Join(dir, base+ext)
	if r.free(candidate) {
		r.reserved[candidate] = struct{}{}
		return candidate, nil
	}

	for n := 1; n <= maxNamingAttempts; n++ {
		candidate = filepath.Join(dir, fmt.Sprintf("%s (%d)%s", base, n, ext))
		if r.free(candidate) {
			r.reserved[candidate] = struct{}{}
			return candidate, nil
		}
	}

	return "", ErrNamingExhausted
}

// Release frees a reserved name after the job that held it was cancelled or
// failed and its partial output was removed.
func (r *PathResolver) Release(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.reserved, path)
}

// free reports whether the candidate is neither reserved nor on disk.
func (r *PathResolver) free(candidate string) bool {
	if _, taken := r.reserved[candidate]; taken {
		return false
	}
	_, err := r.stat(candidate)
	return errors.Is(err, os.ErrNotExist)
}

// NewPathResolverForTests creates a resolver with an injectable stat.
func NewPathResolverForTests(stat func(string) (os.FileInfo, error)) *PathResolver {
	return &PathResolver{
		reserved: make(map[string]struct{}),
		stat:     stat,
	}
}
