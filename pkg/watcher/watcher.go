// Package watcher reports changes to a data source file so the slicer can
// reload its table. It uses fsnotify on local filesystems and falls back to
// stat polling on network mounts or when polling is forced.
//
// A SQLite source is watched together with its -wal and -journal files:
// a commit lands there before the database file itself changes.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultPollInterval is the stat interval in polling mode.
const DefaultPollInterval = 2 * time.Second

// ForcePollEnv forces polling mode when set to a true value.
const ForcePollEnv = "SLICER_FORCE_POLL"

var (
	ErrFileRemoved    = errors.New("watched file was removed")
	ErrPermission     = errors.New("permission denied")
	ErrAlreadyStarted = errors.New("watcher already started")
)

// EventKind says what happened to the watched source.
type EventKind int

const (
	// Changed means the source or one of its sidecars was written.
	Changed EventKind = iota + 1
	// Removed means the source file is gone. It is reported once, until
	// the file reappears.
	Removed
	// Failed carries a watch error; watching continues.
	Failed
)

func (k EventKind) String() string {
	switch k {
	case Changed:
		return "changed"
	case Removed:
		return "removed"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

// Event is one notification about the watched source.
type Event struct {
	Kind EventKind
	Path string
	Err  error
}

// Mode is how changes are detected.
type Mode int

const (
	ModeNotify Mode = iota
	ModePoll
)

func (m Mode) String() string {
	if m == ModePoll {
		return "poll"
	}
	return "notify"
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets how long writes must settle before Changed is sent.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// WithPollInterval sets the stat interval in polling mode.
func WithPollInterval(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.pollInterval = d
		}
	}
}

// WithForcePoll uses polling even where fsnotify works.
func WithForcePoll(force bool) Option {
	return func(w *Watcher) { w.forcePoll = force }
}

// Watcher watches one data source file. Events are delivered on Events;
// bursts of writes are coalesced into one Changed event.
type Watcher struct {
	path         string
	names        map[string]bool // base names of the source and its sidecars
	debounce     time.Duration
	pollInterval time.Duration
	forcePoll    bool

	events    chan Event
	debouncer *Debouncer

	mu      sync.Mutex
	started bool
	closed  bool
	mode    Mode
	fsType  FilesystemType
	cancel  context.CancelFunc
	done    chan struct{}
	fsw     *fsnotify.Watcher
	stamp   stamp
	removed bool
}

// New creates a watcher for the source at path. It does nothing until
// Start.
func New(path string, opts ...Option) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	base := filepath.Base(abs)
	w := &Watcher{
		path:         abs,
		names:        map[string]bool{base: true},
		debounce:     DefaultDebounceDuration,
		pollInterval: DefaultPollInterval,
		events:       make(chan Event, 4),
	}
	for _, s := range sidecars(abs) {
		w.names[filepath.Base(s)] = true
	}
	for _, opt := range opts {
		opt(w)
	}
	w.debouncer = NewDebouncer(w.debounce)
	return w, nil
}

func sidecars(path string) []string {
	return []string{path + "-wal", path + "-journal"}
}

// Start begins watching until ctx ends or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.started || w.closed {
		return ErrAlreadyStarted
	}
	if _, err := os.Stat(w.path); os.IsPermission(err) {
		return ErrPermission
	}

	w.stamp = takeStamp(w.path)
	w.removed = false
	w.fsType = detectFilesystemTypeFunc(w.path)
	w.mode = ModeNotify
	if w.forcePoll || envBool(ForcePollEnv) || isRemoteFilesystem(w.fsType) {
		w.mode = ModePoll
	}

	if w.mode == ModeNotify {
		fsw, err := fsnotify.NewWatcher()
		if err == nil {
			// The directory, not the file: editors and exports replace files
			// by rename.
			if err = fsw.Add(filepath.Dir(w.path)); err != nil {
				fsw.Close()
			}
		}
		if err != nil {
			w.mode = ModePoll
		} else {
			w.fsw = fsw
		}
	}

	ctx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan struct{})
	w.started = true

	if w.mode == ModeNotify {
		go w.runNotify(ctx, w.fsw)
	} else {
		go w.runPoll(ctx)
	}
	return nil
}

// Stop ends watching and closes the Events channel. A stopped watcher
// cannot be restarted.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	cancel, done := w.cancel, w.done
	w.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	w.debouncer.Cancel()

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fsw != nil {
		w.fsw.Close()
		w.fsw = nil
	}
	w.started = false
	w.closed = true
	close(w.events)
}

// Events delivers notifications until Stop.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Path returns the absolute path of the watched source.
func (w *Watcher) Path() string {
	return w.path
}

// Mode reports how changes are detected. It is only meaningful after Start.
func (w *Watcher) Mode() Mode {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.mode
}

// FilesystemType returns the classification made by Start.
func (w *Watcher) FilesystemType() FilesystemType {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.fsType
}

// PollInterval returns the stat interval used in polling mode.
func (w *Watcher) PollInterval() time.Duration {
	return w.pollInterval
}

// emit delivers ev unless the watcher is closed. A full channel drops the
// event: a pending Changed already covers it.
func (w *Watcher) emit(ev Event) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	select {
	case w.events <- ev:
	default:
	}
}

func (w *Watcher) changed() {
	w.debouncer.Trigger(func() {
		w.emit(Event{Kind: Changed, Path: w.path})
	})
}

func (w *Watcher) fileRemoved() {
	w.mu.Lock()
	already := w.removed
	w.removed = true
	w.mu.Unlock()
	if !already {
		w.debouncer.Cancel()
		w.emit(Event{Kind: Removed, Path: w.path, Err: ErrFileRemoved})
	}
}

func (w *Watcher) fileBack() {
	w.mu.Lock()
	w.removed = false
	w.mu.Unlock()
}

func (w *Watcher) failed(err error) {
	w.emit(Event{Kind: Failed, Path: w.path, Err: err})
}

func (w *Watcher) runNotify(ctx context.Context, fsw *fsnotify.Watcher) {
	defer close(w.done)
	main := filepath.Base(w.path)

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			name := filepath.Base(ev.Name)
			if !w.names[name] {
				continue
			}
			switch {
			case name == main && ev.Has(fsnotify.Remove):
				w.fileRemoved()
			case ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename):
				if name == main && ev.Has(fsnotify.Create) {
					w.fileBack()
				}
				w.changed()
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.failed(err)
		}
	}
}

func (w *Watcher) runPoll(ctx context.Context) {
	defer close(w.done)
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		_, err := os.Stat(w.path)
		switch {
		case os.IsNotExist(err):
			w.mu.Lock()
			had := w.stamp.exists()
			w.stamp = stamp{}
			w.mu.Unlock()
			if had {
				w.fileRemoved()
			}
			continue
		case os.IsPermission(err):
			w.failed(ErrPermission)
			continue
		case err != nil:
			w.failed(err)
			continue
		}

		next := takeStamp(w.path)
		w.mu.Lock()
		diff := next != w.stamp
		w.stamp = next
		w.mu.Unlock()
		if diff {
			w.fileBack()
			w.changed()
		}
	}
}

// fileStamp identifies one version of a file.
type fileStamp struct {
	mtime time.Time
	size  int64
}

// stamp covers the source and its sidecars, in the order of sidecars.
type stamp struct {
	main fileStamp
	wal  fileStamp
	jrnl fileStamp
}

func (s stamp) exists() bool {
	return !s.main.mtime.IsZero()
}

func statStamp(path string) fileStamp {
	info, err := os.Stat(path)
	if err != nil {
		return fileStamp{}
	}
	return fileStamp{mtime: info.ModTime(), size: info.Size()}
}

func takeStamp(path string) stamp {
	sc := sidecars(path)
	return stamp{main: statStamp(path), wal: statStamp(sc[0]), jrnl: statStamp(sc[1])}
}

func envBool(name string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(name))) {
	case "1", "true", "yes", "y", "on":
		return true
	}
	return false
}
