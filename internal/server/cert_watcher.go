package server

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"resumatch/internal/errors"

	"github.com/fsnotify/fsnotify"
)

// CertWatcher watches certificate files for changes and triggers reloads
type CertWatcher struct {
	mu sync.Mutex

	files       []string
	lastModTime map[string]time.Time

	fsWatcher     *fsnotify.Watcher
	debounceDelay time.Duration
	debounceTimer *time.Timer

	stopChan   chan struct{}
	reloadChan chan struct{}

	reloadCallback func()
	logger         *errors.Logger

	running bool
}

// NewCertWatcher creates a watcher for files. Empty names are ignored.
func NewCertWatcher(files []string, debounceDelay time.Duration, reloadCallback func(), logger *errors.Logger) (*CertWatcher, error) {
	if debounceDelay == 0 {
		debounceDelay = time.Second
	}
	if logger == nil {
		logger = errors.Discard()
	}
	watched := slices.DeleteFunc(slices.Clone(files), func(f string) bool { return f == "" })
	if len(watched) == 0 {
		return nil, fmt.Errorf("no certificate files to watch")
	}

	return &CertWatcher{
		files:          watched,
		lastModTime:    make(map[string]time.Time),
		debounceDelay:  debounceDelay,
		stopChan:       make(chan struct{}),
		reloadChan:     make(chan struct{}, 1), // Buffered to prevent blocking
		reloadCallback: reloadCallback,
		logger:         logger,
	}, nil
}

// Start begins watching certificate files for changes
func (cw *CertWatcher) Start() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	if cw.running {
		return fmt.Errorf("certificate watcher is already running")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	cw.fsWatcher = watcher
	cw.updateModTimes()

	// Watch directories so atomic replacements (rename over) are seen.
	dirs := make(map[string]bool)
	for _, file := range cw.files {
		dir := filepath.Dir(file)
		if dirs[dir] {
			continue
		}
		dirs[dir] = true
		if err := watcher.Add(dir); err != nil {
			_ = watcher.Close()
			return fmt.Errorf("failed to watch directory %s: %w", dir, err)
		}
	}

	cw.running = true
	go cw.watchLoop(watcher)

	cw.logger.Info("Certificate file watcher started",
		"files", cw.files,
		"debounce_delay", cw.debounceDelay)
	return nil
}

// Stop stops the certificate file watcher
func (cw *CertWatcher) Stop() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	if !cw.running {
		return nil
	}

	close(cw.stopChan)
	if cw.debounceTimer != nil {
		cw.debounceTimer.Stop()
	}
	cw.running = false

	if err := cw.fsWatcher.Close(); err != nil {
		cw.logger.LogError(err, "Failed to close file system watcher")
		return err
	}
	cw.logger.Info("Certificate file watcher stopped")
	return nil
}

// IsRunning returns whether the watcher is currently running
func (cw *CertWatcher) IsRunning() bool {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	return cw.running
}

// updateModTimes records the modification time of every watched file.
// Callers hold cw.mu.
func (cw *CertWatcher) updateModTimes() {
	for _, file := range cw.files {
		if stat, err := os.Stat(file); err == nil {
			cw.lastModTime[file] = stat.ModTime()
		}
	}
}

// changedFiles returns the files whose modification time moved since the
// last check and records the new times.
func (cw *CertWatcher) changedFiles() []string {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	var changed []string
	for _, file := range cw.files {
		stat, err := os.Stat(file)
		if err != nil {
			continue
		}
		if last, ok := cw.lastModTime[file]; !ok || !stat.ModTime().Equal(last) {
			cw.lastModTime[file] = stat.ModTime()
			changed = append(changed, file)
		}
	}
	return changed
}

func (cw *CertWatcher) watchLoop(watcher *fsnotify.Watcher) {
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if cw.isRelevant(event) {
				cw.scheduleReload()
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			cw.logger.LogError(err, "File watcher error")

		case <-cw.reloadChan:
			if changed := cw.changedFiles(); len(changed) > 0 {
				cw.logger.Info("Certificate files changed, triggering reload", "files", changed)
				cw.reloadCallback()
			}

		case <-cw.stopChan:
			return
		}
	}
}

// isRelevant reports whether event touches a watched file in a way that can
// change its contents.
func (cw *CertWatcher) isRelevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return false
	}
	name := filepath.Clean(event.Name)
	return slices.ContainsFunc(cw.files, func(file string) bool {
		return filepath.Clean(file) == name
	})
}

// scheduleReload schedules a debounced reload
func (cw *CertWatcher) scheduleReload() {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	if cw.debounceTimer != nil {
		cw.debounceTimer.Stop()
	}
	cw.debounceTimer = time.AfterFunc(cw.debounceDelay, func() {
		select {
		case cw.reloadChan <- struct{}{}:
		default:
			// A reload is already pending.
		}
	})
}
