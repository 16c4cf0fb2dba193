// Package daemon provides the watch daemon that revalidates planning
// artifacts as they change on disk.
//
// The daemon:
// 1. Watches the artifacts directory for *.json changes
// 2. Debounces rapid saves so editors writing in bursts validate once
// 3. Validates each changed file against its configured schema
// 4. Records results in the history store and notifies a Handler
package daemon

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"slicer/internal/artifact"
	"slicer/internal/config"
	"slicer/internal/schema"
	"slicer/internal/store"
)

// Event is one validation outcome delivered to the Handler.
type Event struct {
	// Path is the artifact file that changed.
	Path string
	// SchemaName is the schema the file was validated against.
	SchemaName string
	// Result is the validation outcome. Nil when the file could not be
	// read or parsed, or when Removed is set.
	Result *schema.Result
	// Run is the persisted history entry. Nil when no store is attached
	// or the file could not be validated.
	Run *store.Run
	// Err carries read and parse failures.
	Err error
	// Removed reports that the file was deleted.
	Removed bool
}

// Handler receives validation events. Implementations must not block for
// long; the daemon calls them inline from its processing loop.
type Handler interface {
	HandleValidation(ev Event)
}

// Config holds tuning knobs for the daemon.
type Config struct {
	// DebounceInterval is how long to wait before validating a changed
	// file. Rapid successive writes reset the wait.
	DebounceInterval time.Duration

	// Logger for daemon activity.
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		DebounceInterval: 100 * time.Millisecond,
		Logger:           log.New(os.Stderr, "[watch] ", log.LstdFlags),
	}
}

// Daemon watches an artifacts directory and revalidates changed files.
type Daemon struct {
	dir     string
	project *config.Config
	history *store.Store
	handler Handler
	config  *Config

	watcher       *fsnotify.Watcher
	changeQueue   map[string]time.Time // filepath -> queued at
	changeQueueMu sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a daemon watching dir.
//
// project selects the schema per file. history may be nil to skip
// persistence; handler may be nil to skip notifications.
func New(dir string, project *config.Config, history *store.Store, handler Handler) (*Daemon, error) {
	return NewWithConfig(dir, project, history, handler, DefaultConfig())
}

// NewWithConfig creates a daemon with custom configuration.
func NewWithConfig(dir string, project *config.Config, history *store.Store, handler Handler, cfg *Config) (*Daemon, error) {
	if dir == "" {
		return nil, fmt.Errorf("dir cannot be empty")
	}
	if project == nil {
		return nil, fmt.Errorf("project config cannot be nil")
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Daemon{
		dir:         dir,
		project:     project,
		history:     history,
		handler:     handler,
		config:      cfg,
		watcher:     watcher,
		changeQueue: make(map[string]time.Time),
		ctx:         ctx,
		cancel:      cancel,
	}, nil
}

// Start begins watching.
//
// The daemon first validates every artifact already in the directory, then
// processes file events until ctx is cancelled.
func (d *Daemon) Start(ctx context.Context) error {
	d.config.Logger.Println("Starting watch daemon")

	if err := d.ValidateAll(); err != nil {
		return fmt.Errorf("initial validation pass failed: %w", err)
	}

	if err := d.watcher.Add(d.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", d.dir, err)
	}
	d.config.Logger.Printf("Watching: %s", d.dir)

	d.wg.Add(2)
	go d.watchFileEvents()
	go d.processChangeQueue()

	select {
	case <-ctx.Done():
		d.config.Logger.Println("Shutdown signal received")
		return d.Stop()
	case <-d.ctx.Done():
		return nil
	}
}

// Stop gracefully shuts down the daemon.
func (d *Daemon) Stop() error {
	d.config.Logger.Println("Stopping watch daemon")

	d.cancel()
	if err := d.watcher.Close(); err != nil {
		d.config.Logger.Printf("Error closing watcher: %v", err)
	}
	d.wg.Wait()

	d.config.Logger.Println("Watch daemon stopped")
	return nil
}

// ValidateAll validates every *.json file currently in the directory, in
// name order.
func (d *Daemon) ValidateAll() error {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", d.dir, err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	d.config.Logger.Printf("Validating %d artifacts", len(names))
	for _, name := range names {
		d.validateFile(filepath.Join(d.dir, name))
	}
	return nil
}

// watchFileEvents monitors filesystem events and queues changes.
func (d *Daemon) watchFileEvents() {
	defer d.wg.Done()

	for {
		select {
		case <-d.ctx.Done():
			return

		case event, ok := <-d.watcher.Events:
			if !ok {
				return
			}

			// Only care about Create, Write, Remove, Rename.
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if filepath.Ext(event.Name) != ".json" {
				continue
			}

			d.config.Logger.Printf("File event: %s %s", event.Op, event.Name)
			d.queueChange(event.Name)

		case err, ok := <-d.watcher.Errors:
			if !ok {
				return
			}
			d.config.Logger.Printf("Watcher error: %v", err)
		}
	}
}

// queueChange adds a file to the change queue with debouncing.
func (d *Daemon) queueChange(path string) {
	d.changeQueueMu.Lock()
	defer d.changeQueueMu.Unlock()

	d.changeQueue[path] = time.Now()
}

// processChangeQueue drains queued changes once they have been quiet for
// the debounce interval.
func (d *Daemon) processChangeQueue() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.config.DebounceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return

		case <-ticker.C:
			d.processPendingChanges()
		}
	}
}

func (d *Daemon) processPendingChanges() {
	d.changeQueueMu.Lock()
	var ready []string
	now := time.Now()
	for path, queuedAt := range d.changeQueue {
		if now.Sub(queuedAt) < d.config.DebounceInterval {
			continue
		}
		ready = append(ready, path)
		delete(d.changeQueue, path)
	}
	d.changeQueueMu.Unlock()

	sort.Strings(ready)
	for _, path := range ready {
		d.config.Logger.Printf("Processing change: %s", path)
		d.validateFile(path)
	}
}

// validateFile validates a single artifact and dispatches the outcome.
func (d *Daemon) validateFile(path string) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		d.config.Logger.Printf("Artifact removed: %s", path)
		d.notify(Event{Path: path, Removed: true})
		return
	}

	schemaName := d.project.SchemaFor(path)
	ev := Event{Path: path, SchemaName: schemaName}

	doc, err := artifact.ReadDocumentFile(path)
	if err != nil {
		d.config.Logger.Printf("Error reading %s: %v", path, err)
		ev.Err = err
		d.notify(ev)
		return
	}

	res, err := schema.Validate(doc, schemaName)
	if err != nil {
		d.config.Logger.Printf("Error validating %s: %v", path, err)
		ev.Err = err
		d.notify(ev)
		return
	}
	ev.Result = res

	if d.history != nil {
		run, err := d.history.RecordRunContext(d.ctx, path, schemaName, res)
		if err != nil {
			d.config.Logger.Printf("Error recording run for %s: %v", path, err)
		} else {
			ev.Run = run
		}
	}

	if res.Valid {
		d.config.Logger.Printf("PASS %s (%d warnings)", path, len(res.Warnings))
	} else {
		d.config.Logger.Printf("FAIL %s (%d violations)", path, len(res.Violations))
	}
	d.notify(ev)
}

func (d *Daemon) notify(ev Event) {
	if d.handler != nil {
		d.handler.HandleValidation(ev)
	}
}
