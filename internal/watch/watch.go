// Package watch signals when a script file changes on disk so the host
// can reload it into a fresh VM state.
package watch

import (
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// debounce collapses editor write bursts into a single reload signal.
const debounce = 200 * time.Millisecond

// Watcher observes a single file and emits on its channel when the file
// is written or replaced.
type Watcher struct {
	fsw  *fsnotify.Watcher
	path string
	log  zerolog.Logger
	out  chan<- struct{}
	done chan struct{}
}

// New starts watching path and sends change signals to out. The parent
// directory is watched rather than the file itself, so atomic
// rename-over-save (the common editor pattern) is still observed.
func New(path string, out chan<- struct{}, log zerolog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		fsw.Close()
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &Watcher{
		fsw:  fsw,
		path: abs,
		log:  log,
		out:  out,
		done: make(chan struct{}),
	}
	go w.run()
	return w, nil
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fsw.Close()
}

func (w *Watcher) run() {
	var pending *time.Timer
	fire := make(chan struct{}, 1)

	for {
		select {
		case <-w.done:
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if pending != nil {
				pending.Stop()
			}
			pending = time.AfterFunc(debounce, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})

		case <-fire:
			w.log.Debug().Str("path", w.path).Msg("script changed")
			select {
			case w.out <- struct{}{}:
			case <-w.done:
				return
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn().Err(err).Msg("watch error")
		}
	}
}
