package config

import (
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Watcher watches a config file for changes and re-parses it on write
// events, invoking a callback with the newly loaded configuration.
type Watcher struct {
	path    string
	watcher *fsnotify.Watcher
	logger  zerolog.Logger
	onLoad  func(*Config)
}

// NewWatcher creates a Watcher for path. onLoad is invoked with every
// successfully parsed and validated reload; a malformed file is logged and
// ignored, leaving the previous configuration in effect.
func NewWatcher(path string, logger zerolog.Logger, onLoad func(*Config)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(path); err != nil {
		fw.Close()
		return nil, err
	}
	return &Watcher{
		path:    path,
		watcher: fw,
		logger:  logger.With().Str("component", "config_watcher").Logger(),
		onLoad:  onLoad,
	}, nil
}

// Run processes file events until the watcher is closed. It is meant to be
// run in its own goroutine.
func (w *Watcher) Run() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.reload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error().Err(err).Msg("config watcher error")
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		w.logger.Error().Err(err).Str("path", w.path).Msg("config reload failed, keeping previous configuration")
		return
	}
	w.logger.Info().Str("path", w.path).Msg("config reloaded")
	w.onLoad(cfg)
}

// Close stops the underlying filesystem watch.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
