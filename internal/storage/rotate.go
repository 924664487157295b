package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"
)

// RotatingFile is an append-only file that rolls over by size. When a write
// would push the file past its limit, path becomes path.1, path.1 becomes
// path.2 and so on, and at most keep backups survive. A write is never split
// across files.
//
// It is safe for concurrent use.
type RotatingFile struct {
	mu    sync.Mutex
	path  string
	limit int64
	keep  int
	size  int64
	file  *os.File
}

var _ io.WriteCloser = (*RotatingFile)(nil)

// OpenRotating opens path for appending, creating it and its parent
// directory as needed. limit is in bytes, and a limit of zero or less never
// rolls over. keep is the number of backups to retain; zero truncates on
// rollover.
func OpenRotating(path string, limit int64, keep int) (*RotatingFile, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory %s: %w", dir, err)
		}
	}
	f, info, err := openAppend(path)
	if err != nil {
		return nil, err
	}
	return &RotatingFile{
		path:  path,
		limit: limit,
		keep:  max(keep, 0),
		size:  info.Size(),
		file:  f,
	}, nil
}

func openAppend(path string) (*os.File, os.FileInfo, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, nil, fmt.Errorf("failed to stat log file %s: %w", path, err)
	}
	return f, info, nil
}

func (r *RotatingFile) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return 0, os.ErrClosed
	}
	if r.limit > 0 && r.size > 0 && r.size+int64(len(p)) > r.limit {
		if err := r.roll(); err != nil {
			return 0, fmt.Errorf("failed to rotate %s: %w", r.path, err)
		}
	}
	n, err := r.file.Write(p)
	r.size += int64(n)
	return n, err
}

// Close closes the current file. Further writes fail with os.ErrClosed.
func (r *RotatingFile) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

// roll shifts backups up by one, newest first, and reopens path empty.
// Callers hold mu.
func (r *RotatingFile) roll() error {
	if err := r.file.Close(); err != nil {
		return err
	}
	r.file = nil

	backups := r.backups()
	slices.Reverse(backups)
	for _, n := range backups {
		if n >= r.keep {
			_ = os.Remove(r.backup(n))
		} else {
			_ = os.Rename(r.backup(n), r.backup(n+1))
		}
	}
	if r.keep > 0 {
		_ = os.Rename(r.path, r.backup(1))
	} else {
		_ = os.Remove(r.path)
	}

	f, info, err := openAppend(r.path)
	if err != nil {
		return err
	}
	r.file = f
	r.size = info.Size()
	return nil
}

func (r *RotatingFile) backup(n int) string {
	return r.path + "." + strconv.Itoa(n)
}

// backups lists the numbered backups on disk in ascending order.
func (r *RotatingFile) backups() []int {
	entries, err := os.ReadDir(filepath.Dir(r.path))
	if err != nil {
		return nil
	}
	prefix := filepath.Base(r.path) + "."
	var nums []int
	for _, e := range entries {
		suffix, ok := strings.CutPrefix(e.Name(), prefix)
		if !ok {
			continue
		}
		if n, err := strconv.Atoi(suffix); err == nil && n > 0 {
			nums = append(nums, n)
		}
	}
	slices.Sort(nums)
	return nums
}
