// internal/monitor/notify.go

package monitor

import (
	"context"
	"io/fs"
	"log"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// notifier turns filesystem notifications into early reconciliation passes.
// It never touches the registry; the reconcile loop stays the only writer.
type notifier struct {
	watcher *fsnotify.Watcher
	nudge   chan<- struct{}
	ignore  string
}

func newNotifier(root string, ignore string, nudge chan<- struct{}) (*notifier, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	n := &notifier{watcher: w, nudge: nudge, ignore: ignore}
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		if d.IsDir() {
			if err := w.Add(path); err != nil {
				log.Printf("Warning: cannot watch dir %s: %v", path, err)
			}
		}
		return nil
	})
	if err != nil {
		w.Close()
		return nil, err
	}

	return n, nil
}

// run forwards events until ctx is cancelled, then closes the watcher.
func (n *notifier) run(ctx context.Context) {
	defer n.watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-n.watcher.Events:
			if !ok {
				return
			}
			if n.ignore != "" && filepath.Clean(event.Name) == n.ignore {
				continue
			}
			if event.Op&fsnotify.Create == fsnotify.Create {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := n.watcher.Add(event.Name); err != nil {
						log.Printf("Warning: cannot watch dir %s: %v", event.Name, err)
					}
				}
			}
			if event.Op == fsnotify.Chmod {
				continue
			}
			select {
			case n.nudge <- struct{}{}:
			default:
			}
		case err, ok := <-n.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("Watcher error: %v", err)
		}
	}
}
