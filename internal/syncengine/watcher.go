package syncengine

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ignoredNames is the constant ignore set every watcher filters by. A
// watcher can add extra names; the repo's own ignore file is not read.
var ignoredNames = map[string]bool{
	".vcs":         true,
	".git":         true,
	"node_modules": true,
	".DS_Store":    true,
	"focus.json":   true,
}

func ignored(path string, extra map[string]bool) bool {
	base := filepath.Base(path)
	if ignoredNames[base] || (extra != nil && extra[base]) {
		return true
	}
	for dir := filepath.Dir(path); dir != "." && dir != string(filepath.Separator); dir = filepath.Dir(dir) {
		if ignoredNames[filepath.Base(dir)] {
			return true
		}
	}
	return false
}

// debouncedWatcher wraps one fsnotify.Watcher with a single-timer
// coalescing rule: a fresh event resets a timer of length delay; when it fires,
// fire is invoked exactly once. The event payload itself is discarded;
// the engine always re-derives state from disk and the VCS rather than
// trusting what fsnotify reported.
type debouncedWatcher struct {
	fsw    *fsnotify.Watcher
	ignore map[string]bool
	delay  time.Duration
	fire   func()

	mu      sync.Mutex
	timer   *time.Timer
	closeCh chan struct{}
	wg      sync.WaitGroup
}

func newDebouncedWatcher(delay time.Duration, ignore map[string]bool, fire func()) (*debouncedWatcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &debouncedWatcher{
		fsw:     fsw,
		ignore:  ignore,
		delay:   delay,
		fire:    fire,
		closeCh: make(chan struct{}),
	}, nil
}

// addRecursive watches root and every non-ignored subdirectory beneath it.
func (d *debouncedWatcher) addRecursive(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() {
			return nil
		}
		if path != root && ignored(path, d.ignore) {
			return filepath.SkipDir
		}
		return d.fsw.Add(path)
	})
}

func (d *debouncedWatcher) start() {
	d.wg.Add(1)
	go d.loop()
}

func (d *debouncedWatcher) loop() {
	defer d.wg.Done()
	for {
		select {
		case <-d.closeCh:
			return
		case event, ok := <-d.fsw.Events:
			if !ok {
				return
			}
			if ignored(event.Name, d.ignore) {
				continue
			}
			d.reset()
		case _, ok := <-d.fsw.Errors:
			if !ok {
				return
			}
		}
	}
}

func (d *debouncedWatcher) reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, d.fire)
}

func (d *debouncedWatcher) stop() {
	close(d.closeCh)
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.mu.Unlock()
	_ = d.fsw.Close()
	d.wg.Wait()
}
