// Package watcher triggers conversion runs when new .eml files land in the
// inbox, with a periodic rescan as a safety net for missed events.
package watcher

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounceDelay batches the burst of events a mail client produces while
// writing a single file.
const debounceDelay = 2 * time.Second

// Watcher watches an inbox directory and invokes trigger on changes.
type Watcher struct {
	inboxDir string
	interval time.Duration
	trigger  func()
}

// New creates a watcher over inboxDir. rescanInterval of zero disables the
// periodic rescan.
func New(inboxDir string, rescanInterval time.Duration, trigger func()) *Watcher {
	return &Watcher{
		inboxDir: inboxDir,
		interval: rescanInterval,
		trigger:  trigger,
	}
}

// Run blocks until ctx is cancelled, firing the trigger after debounced
// filesystem events and on every rescan tick.
func (w *Watcher) Run(ctx context.Context) error {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create filesystem watcher: %w", err)
	}
	defer fsWatcher.Close()

	if err := fsWatcher.Add(w.inboxDir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.inboxDir, err)
	}
	log.Printf("Watching %s for new .eml files", w.inboxDir)

	var rescan <-chan time.Time
	if w.interval > 0 {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		rescan = ticker.C
	}

	// The timer is created stopped; each relevant event resets it, so the
	// trigger fires once per burst.
	debounce := time.NewTimer(debounceDelay)
	if !debounce.Stop() {
		<-debounce.C
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-fsWatcher.Events:
			if !ok {
				return nil
			}
			if !relevant(event) {
				continue
			}
			debounce.Reset(debounceDelay)
		case err, ok := <-fsWatcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("Watcher error: %v", err)
		case <-debounce.C:
			w.trigger()
		case <-rescan:
			w.trigger()
		}
	}
}

// relevant reports whether an event indicates a new or moved-in .eml file.
func relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) && !event.Has(fsnotify.Write) {
		return false
	}
	return strings.ToLower(filepath.Ext(event.Name)) == ".eml"
}
