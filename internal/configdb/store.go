package configdb

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// Source supplies the current configuration snapshot on demand plus a
// feed of change notifications carrying the identifier of the changed
// record. The reconciliation engine depends only on this interface, so a
// remote configuration service can be substituted for the directory
// store.
type Source interface {
	Snapshot(ctx context.Context) (Snapshot, error)
	Watch(ctx context.Context) (<-chan string, error)
}

// DirStore is a Source backed by a directory of JSON record files. Each
// file holds one Record; the record identifier is the file path without
// its extension, so notification identifiers suffix-match sensor names
// the same way remote object paths do.
type DirStore struct {
	dir    string
	logger *logrus.Logger
}

// NewDirStore returns a store reading records from dir.
func NewDirStore(dir string, logger *logrus.Logger) *DirStore {
	return &DirStore{dir: dir, logger: logger}
}

// identifier maps a record file path to its stable identifier.
func identifier(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path))
}

// Snapshot reads every record file in the directory. Unreadable or
// malformed files are logged and skipped so one bad record cannot hide
// the rest of the configuration.
func (s *DirStore) Snapshot(ctx context.Context) (Snapshot, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("reading record directory %s: %w", s.dir, err)
	}

	snapshot := make(Snapshot, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(s.dir, entry.Name())

		data, err := os.ReadFile(path)
		if err != nil {
			s.logger.WithError(err).WithField("record", path).Warn("skipping unreadable record file")
			continue
		}
		var rec Record
		if err := json.Unmarshal(data, &rec); err != nil {
			s.logger.WithError(err).WithField("record", path).Warn("skipping malformed record file")
			continue
		}
		snapshot[identifier(path)] = rec
	}
	return snapshot, nil
}

// Watch emits the identifier of every record file that is created,
// rewritten, renamed or removed, until ctx is done. The channel is closed
// on shutdown.
func (s *DirStore) Watch(ctx context.Context) (<-chan string, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}
	if err := watcher.Add(s.dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watching record directory %s: %w", s.dir, err)
	}

	out := make(chan string)
	go func() {
		defer close(out)
		defer watcher.Close()

		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
					continue
				}
				if !strings.HasSuffix(event.Name, ".json") {
					continue
				}
				select {
				case out <- identifier(event.Name):
				case <-ctx.Done():
					return
				}

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				// Keep watching; a transient watch error must not kill
				// the change feed.
				s.logger.WithError(err).Warn("record directory watch error")
			}
		}
	}()
	return out, nil
}
