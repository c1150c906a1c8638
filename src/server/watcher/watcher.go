package watcher

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"graph-context/src/internal/common"
	"graph-context/src/internal/constants"
	"graph-context/src/internal/registry"
	"graph-context/src/utils"
)

// ChangeEvent is the host-side change notification shape: which document
// changed and whether its content changed (renames and chmods do not count).
type ChangeEvent struct {
	URI               string
	HasContentChanges bool
}

// FileWatcher watches workspace paths for changes to supported source files
// and delivers debounced ChangeEvents. The retriever wires the callback to
// cache invalidation.
type FileWatcher struct {
	watcher       *fsnotify.Watcher
	onChange      func([]ChangeEvent)
	debounceDelay time.Duration

	eventMutex    sync.Mutex
	pendingEvents map[string]ChangeEvent
	debounceTimer *time.Timer

	stopOnce sync.Once
	done     chan struct{}
}

// NewFileWatcher creates a watcher delivering events to onChange.
func NewFileWatcher(onChange func([]ChangeEvent)) (*FileWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	fw := &FileWatcher{
		watcher:       w,
		onChange:      onChange,
		debounceDelay: constants.FileWatchDebounceDelay,
		pendingEvents: make(map[string]ChangeEvent),
		done:          make(chan struct{}),
	}
	go fw.run()
	return fw, nil
}

// AddPath adds a file or directory (recursively) to the watch set.
func (fw *FileWatcher) AddPath(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := fw.watcher.Add(absPath); err != nil {
		return err
	}
	common.GraphLogger.Debug("watcher: added %s", absPath)

	info, err := os.Stat(absPath)
	if err != nil || !info.IsDir() {
		return nil
	}
	return filepath.Walk(absPath, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() {
			return nil
		}
		base := filepath.Base(p)
		if p != absPath && (strings.HasPrefix(base, ".") || base == "node_modules" || base == "vendor") {
			return filepath.SkipDir
		}
		if p != absPath {
			if err := fw.watcher.Add(p); err != nil {
				common.GraphLogger.Warn("watcher: failed to add %s: %v", p, err)
			}
		}
		return nil
	})
}

// Stop shuts the watcher down and flushes nothing: pending events are
// dropped.
func (fw *FileWatcher) Stop() {
	fw.stopOnce.Do(func() {
		close(fw.done)
		_ = fw.watcher.Close()

		fw.eventMutex.Lock()
		if fw.debounceTimer != nil {
			fw.debounceTimer.Stop()
		}
		fw.eventMutex.Unlock()
	})
}

func (fw *FileWatcher) run() {
	for {
		select {
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			fw.handleEvent(event)
		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			common.GraphLogger.Warn("watcher error: %v", err)
		case <-fw.done:
			return
		}
	}
}

func (fw *FileWatcher) handleEvent(event fsnotify.Event) {
	if !registry.IsSupportedFile(event.Name) {
		return
	}

	hasContent := event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove) != 0
	ev := ChangeEvent{
		URI:               utils.FilePathToURI(event.Name),
		HasContentChanges: hasContent,
	}

	fw.eventMutex.Lock()
	defer fw.eventMutex.Unlock()

	// Content changes must not be downgraded by a trailing rename event for
	// the same path inside one debounce window.
	if prev, ok := fw.pendingEvents[ev.URI]; ok && prev.HasContentChanges {
		ev.HasContentChanges = true
	}
	fw.pendingEvents[ev.URI] = ev

	if fw.debounceTimer != nil {
		fw.debounceTimer.Stop()
	}
	fw.debounceTimer = time.AfterFunc(fw.debounceDelay, fw.flush)
}

func (fw *FileWatcher) flush() {
	fw.eventMutex.Lock()
	if len(fw.pendingEvents) == 0 {
		fw.eventMutex.Unlock()
		return
	}
	events := make([]ChangeEvent, 0, len(fw.pendingEvents))
	for _, ev := range fw.pendingEvents {
		events = append(events, ev)
	}
	fw.pendingEvents = make(map[string]ChangeEvent)
	fw.eventMutex.Unlock()

	select {
	case <-fw.done:
		return
	default:
	}
	fw.onChange(events)
}
