package index

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/sanae-abe/cldev/internal/record"
)

// WatchOp classifies what the watcher did in response to a filesystem event.
type WatchOp string

const (
	WatchIndexed WatchOp = "indexed"
	WatchRemoved WatchOp = "removed"
	WatchSkipped WatchOp = "skipped"
)

// WatchEvent reports one synchronization action taken by Watch.
type WatchEvent struct {
	Op   WatchOp
	Path string
	Err  error
}

// Editors write files in bursts (write, chmod, rename-over). A short settle
// delay lets the burst finish before the file is parsed.
const watchSettleDelay = 200 * time.Millisecond

// Watch mirrors filesystem changes in the records directory into the index
// until ctx is cancelled. Created or modified markdown files are re-parsed
// and upserted; removed or renamed-away files have their rows deleted. Every
// action is reported through notify, including parse failures, which skip
// the file rather than stop the watch. notify may be nil.
func (s *Store) Watch(ctx context.Context, notify func(WatchEvent)) error {
	if notify == nil {
		notify = func(WatchEvent) {}
	}

	if err := os.MkdirAll(s.recordsDir, 0o755); err != nil {
		return fmt.Errorf("create records directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(s.recordsDir); err != nil {
		return fmt.Errorf("watch %s: %w", s.recordsDir, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Ext(event.Name) != ".md" {
				continue
			}

			switch {
			case event.Op.Has(fsnotify.Create) || event.Op.Has(fsnotify.Write):
				time.Sleep(watchSettleDelay)
				notify(s.indexFile(event.Name))

			case event.Op.Has(fsnotify.Remove) || event.Op.Has(fsnotify.Rename):
				notify(s.unindexFile(event.Name))
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			notify(WatchEvent{Op: WatchSkipped, Err: fmt.Errorf("watcher: %w", err)})
		}
	}
}

// indexFile parses one markdown file and upserts it.
func (s *Store) indexFile(path string) WatchEvent {
	content, err := os.ReadFile(path)
	if err != nil {
		return WatchEvent{Op: WatchSkipped, Path: path, Err: fmt.Errorf("read %s: %w", path, err)}
	}

	rec, err := record.ParseAny(content)
	if err != nil {
		return WatchEvent{Op: WatchSkipped, Path: path, Err: fmt.Errorf("parse %s: %w", path, err)}
	}

	if _, err := s.UpsertSession(rec, path); err != nil {
		return WatchEvent{Op: WatchSkipped, Path: path, Err: err}
	}
	return WatchEvent{Op: WatchIndexed, Path: path}
}

// unindexFile deletes the rows of whichever session was indexed from path.
// A path the index never saw is not an error.
func (s *Store) unindexFile(path string) WatchEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	var sessionID string
	err := s.db.QueryRow("SELECT id FROM sessions WHERE markdown_path = ?", path).Scan(&sessionID)
	if err != nil {
		return WatchEvent{Op: WatchSkipped, Path: path}
	}

	if err := s.deleteSessionLocked(sessionID); err != nil {
		return WatchEvent{Op: WatchSkipped, Path: path, Err: err}
	}
	return WatchEvent{Op: WatchRemoved, Path: path}
}
