package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"

	"github.com/dailypost/backend/internal/feed"
)

// ErrDuplicatePost is returned when appending a post whose ID is already stored
var ErrDuplicatePost = errors.New("post already in feed")

// FeedStorage defines the interface for reading and extending the feed
type FeedStorage interface {
	Load() (feed.Posts, error)
	Recent(n int) (feed.Posts, error)
	Append(post *feed.Post) error
	Close() error
}

// FileStorage keeps the feed as a JSON array on the local file system,
// oldest post first. Appends hold an OS-level lock so a scheduled generator
// and a manual run cannot interleave.
type FileStorage struct {
	path string
	lock *flock.Flock
	mu   sync.RWMutex
}

// NewFileStorage creates a new file-based feed storage
func NewFileStorage(path string) (*FileStorage, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &FileStorage{
		path: path,
		lock: flock.New(path + ".lock"),
	}, nil
}

// Path returns the feed file location
func (fs *FileStorage) Path() string {
	return fs.path
}

// Load reads every post. A missing or empty file is an empty feed.
func (fs *FileStorage) Load() (feed.Posts, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return fs.read()
}

// Recent returns up to n newest posts, newest first
func (fs *FileStorage) Recent(n int) (feed.Posts, error) {
	posts, err := fs.Load()
	if err != nil {
		return nil, err
	}
	return posts.Recent(n), nil
}

// Append adds post to the end of the feed
func (fs *FileStorage) Append(post *feed.Post) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if err := fs.lock.Lock(); err != nil {
		return fmt.Errorf("failed to acquire lock on %s: %w", fs.path, err)
	}
	defer fs.lock.Unlock()

	posts, err := fs.read()
	if err != nil {
		return err
	}
	if _, exists := posts.Find(post.ID); exists {
		return fmt.Errorf("%w: %s", ErrDuplicatePost, post.ID)
	}
	posts = append(posts, post)

	data, err := json.MarshalIndent(posts, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal feed: %w", err)
	}

	return WriteAtomic(fs.path, data)
}

// Close is a no-op for file storage
func (fs *FileStorage) Close() error {
	return nil
}

func (fs *FileStorage) read() (feed.Posts, error) {
	data, err := os.ReadFile(fs.path)
	if errors.Is(err, os.ErrNotExist) {
		return feed.Posts{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read feed: %w", err)
	}
	if len(data) == 0 {
		return feed.Posts{}, nil
	}

	var posts feed.Posts
	if err := json.Unmarshal(data, &posts); err != nil {
		return nil, fmt.Errorf("failed to unmarshal feed %s: %w", fs.path, err)
	}
	return posts, nil
}

// ensureExists writes an empty feed when none exists yet
func (fs *FileStorage) ensureExists() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if _, err := os.Stat(fs.path); errors.Is(err, os.ErrNotExist) {
		return WriteAtomic(fs.path, []byte("[]\n"))
	}
	return nil
}

// WriteAtomic writes data to a temp file in the target directory and renames
// it over path, so readers never observe a partial feed.
func WriteAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}
