// internal/monitor/file_tracker.go

package monitor

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// ErrNotFound is returned when a path is not tracked by the registry.
var ErrNotFound = errors.New("file not found")

// FileRecord describes one tracked file.
type FileRecord struct {
	Path         string    `json:"path"`
	Kind         Kind      `json:"kind"`
	LastModified time.Time `json:"last_modified"`
	SnapshotTime time.Time `json:"snapshot_time"`

	absPath string
}

// newFileRecord classifies rel and reads its current modification time.
func newFileRecord(root, rel string) (*FileRecord, error) {
	abs := filepath.Join(root, filepath.FromSlash(rel))
	info, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}

	return &FileRecord{
		Path:         rel,
		Kind:         Classify(rel),
		LastModified: info.ModTime(),
		absPath:      abs,
	}, nil
}

// AbsPath returns the location of the file on disk.
func (r *FileRecord) AbsPath() string {
	return r.absPath
}

// HasChanged re-reads the modification time and reports any difference from
// the stored one. Going backwards in time counts as a change too.
func (r *FileRecord) HasChanged() (bool, error) {
	info, err := os.Stat(r.absPath)
	if err != nil {
		return false, err
	}
	return !info.ModTime().Equal(r.LastModified), nil
}

// commit establishes a new baseline for drift detection.
func (r *FileRecord) commit(now time.Time) error {
	info, err := os.Stat(r.absPath)
	if err != nil {
		return err
	}
	r.SnapshotTime = now
	r.LastModified = info.ModTime()
	return nil
}

// Registry is the authoritative set of tracked files under one root.
type Registry struct {
	mu       sync.RWMutex
	root     string
	records  map[string]*FileRecord
	previous pathSet
	ignore   pathSet
	now      func() time.Time
	walk     func(root string, fn fs.WalkDirFunc) error

	// baseline is the path set the last status report was taken against.
	baseline pathSet
}

// NewRegistry creates an empty registry for root. Call Scan to populate it.
func NewRegistry(root string) *Registry {
	return &Registry{
		root:     root,
		records:  make(map[string]*FileRecord),
		previous: newPathSet(),
		ignore:   newPathSet(),
		now:      time.Now,
		walk:     filepath.WalkDir,
		baseline: newPathSet(),
	}
}

// Root returns the watched directory.
func (r *Registry) Root() string {
	return r.root
}

// Ignore excludes paths, relative to the root, from every listing.
func (r *Registry) Ignore(paths ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range paths {
		r.ignore[filepath.ToSlash(p)] = struct{}{}
		delete(r.records, filepath.ToSlash(p))
		delete(r.previous, filepath.ToSlash(p))
		delete(r.baseline, filepath.ToSlash(p))
	}
}

// Scan replaces the registry contents with a full recursive walk of the root.
func (r *Registry) Scan() error {
	l, err := r.listFiles()
	if err != nil {
		return err
	}
	current := l.files

	records := make(map[string]*FileRecord, len(current))
	for p := range current {
		rec, err := newFileRecord(r.root, p)
		if err != nil {
			log.Printf("Skipping %s during scan: %v", p, err)
			delete(current, p)
			continue
		}
		records[p] = rec
	}

	r.mu.Lock()
	r.records = records
	r.previous = current
	r.baseline = current.clone()
	r.mu.Unlock()

	return nil
}

// Reconcile compares the live directory tree with the previous pass and
// returns the differences: additions first, then deletions, then files whose
// modification time drifted from their baseline. Modified files keep being
// reported on every pass until they are committed. Tracked files under an
// entry the walk could not read are carried over untouched for this pass.
func (r *Registry) Reconcile() ([]ChangeEvent, error) {
	l, err := r.listFiles()
	if err != nil {
		return nil, err
	}
	current := l.files

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	held := newPathSet()
	if len(l.unreadable) > 0 {
		for p := range r.previous {
			if !current.has(p) && l.covers(p) {
				current[p] = struct{}{}
				held[p] = struct{}{}
			}
		}
	}
	diff := diffPaths(r.previous, current)

	events := make([]ChangeEvent, 0, len(diff.added)+len(diff.removed))
	for _, p := range diff.added {
		rec, err := newFileRecord(r.root, p)
		if err != nil {
			// Gone or unreadable between listing and stat; retried next pass.
			log.Printf("Skipping new file %s: %v", p, err)
			delete(current, p)
			continue
		}
		r.records[p] = rec
		events = append(events, ChangeEvent{Type: EventAdded, Path: p, Timestamp: now})
	}

	for _, p := range diff.removed {
		delete(r.records, p)
		events = append(events, ChangeEvent{Type: EventDeleted, Path: p, Timestamp: now})
	}

	for _, p := range r.sortedPathsLocked() {
		if !r.previous.has(p) || !current.has(p) || held.has(p) {
			continue
		}
		rec := r.records[p]
		changed, err := rec.HasChanged()
		if err != nil {
			log.Printf("Failed to check %s for changes: %v", p, err)
			continue
		}
		if changed {
			events = append(events, ChangeEvent{
				Type:         EventModified,
				Path:         p,
				Timestamp:    now,
				SnapshotTime: rec.SnapshotTime,
			})
		}
	}

	r.previous = current
	return events, nil
}

// Commit snapshots every record. Files that cannot be read are skipped and
// keep their old baseline; the number of committed records is returned.
func (r *Registry) Commit() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	committed := 0
	for p, rec := range r.records {
		if err := rec.commit(now); err != nil {
			log.Printf("Failed to commit %s: %v", p, err)
			continue
		}
		committed++
	}
	return committed
}

// CommitFile snapshots a single record.
func (r *Registry) CommitFile(path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[filepath.ToSlash(path)]
	if !ok {
		return fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	if err := rec.commit(r.now()); err != nil {
		return fmt.Errorf("commit %s: %w", path, err)
	}
	return nil
}

// Lookup returns a copy of the record for path.
func (r *Registry) Lookup(path string) (FileRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[filepath.ToSlash(path)]
	if !ok {
		return FileRecord{}, false
	}
	return *rec, true
}

// Records returns copies of all records sorted by path.
func (r *Registry) Records() []FileRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]FileRecord, 0, len(r.records))
	for _, p := range r.sortedPathsLocked() {
		out = append(out, *r.records[p])
	}
	return out
}

// Len returns the number of tracked files.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

// rebaseline returns the paths added and removed since the previous call, or
// since Scan, and makes the tracked set the new baseline.
func (r *Registry) rebaseline() pathDiff {
	r.mu.Lock()
	defer r.mu.Unlock()

	current := make(pathSet, len(r.records))
	for p := range r.records {
		current[p] = struct{}{}
	}
	diff := diffPaths(r.baseline, current)
	r.baseline = current
	return diff
}

func (r *Registry) sortedPathsLocked() []string {
	paths := make([]string, 0, len(r.records))
	for p := range r.records {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// listing is one walk of the root. unreadable holds the relative paths of
// entries the walk could not read, directories included.
type listing struct {
	files      pathSet
	unreadable []string
}

// covers reports whether p is, or lies under, an entry that failed to read.
func (l listing) covers(p string) bool {
	for _, u := range l.unreadable {
		if p == u || strings.HasPrefix(p, u+"/") {
			return true
		}
	}
	return false
}

// listFiles walks the root and returns every non-directory entry. Entries that
// fail mid-walk are skipped and reported in unreadable; only a failure on the
// root itself is an error.
func (r *Registry) listFiles() (listing, error) {
	r.mu.RLock()
	ignore := r.ignore.clone()
	r.mu.RUnlock()

	l := listing{files: newPathSet()}
	err := r.walk(r.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == r.root {
				return err
			}
			log.Printf("Skipping %s: %v", path, err)
			if rel, relErr := filepath.Rel(r.root, path); relErr == nil {
				l.unreadable = append(l.unreadable, filepath.ToSlash(rel))
			}
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(r.root, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if ignore.has(rel) {
			return nil
		}
		l.files[rel] = struct{}{}
		return nil
	})
	if err != nil {
		return listing{}, fmt.Errorf("failed to walk %s: %w", r.root, err)
	}

	return l, nil
}
