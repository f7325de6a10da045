// Package dbalcfg loads connection parameters from YAML and, optionally,
// watches the file for edits so a long-running process can pick up rotated
// credentials without restarting.
package dbalcfg

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/syssam/dbal/driver"
)

// Config is one named connection's dialect and parameters, as read from YAML.
type Config struct {
	Dialect string                 `yaml:"dialect"`
	Host    string                 `yaml:"host"`
	Port    int                    `yaml:"port"`
	User    string                 `yaml:"user"`
	Password string                `yaml:"password"`
	Database string                `yaml:"database"`
	Path    string                 `yaml:"path"`
	Options map[string]string      `yaml:"options"`
}

// Params converts Config into the driver connection parameters Open expects.
func (c Config) Params() driver.ConnectionParams {
	return driver.ConnectionParams{
		Host: c.Host, Port: c.Port, User: c.User, Password: c.Password,
		Database: c.Database, Path: c.Path, Options: c.Options,
	}
}

// File is a named set of Configs loaded from one YAML document, e.g.:
//
//	primary:
//	  dialect: mysql
//	  host: 127.0.0.1
//	  database: app
type File map[string]Config

// Load reads and parses a YAML config file.
func Load(path string) (File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("dbalcfg: read %s: %w", path, err)
	}
	var f File
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("dbalcfg: parse %s: %w", path, err)
	}
	return f, nil
}

// Watcher holds the live, hot-reloadable contents of a config file.
type Watcher struct {
	path string
	mu   sync.RWMutex
	file File

	fsw *fsnotify.Watcher
}

// Watch loads path and starts watching it for writes, calling onChange
// (if non-nil) after each successful reload. The returned Watcher must be
// closed to stop watching.
func Watch(ctx context.Context, path string, onChange func(File)) (*Watcher, error) {
	f, err := Load(path)
	if err != nil {
		return nil, err
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("dbalcfg: watch %s: %w", path, err)
	}
	if err := fsw.Add(path); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("dbalcfg: watch %s: %w", path, err)
	}

	w := &Watcher{path: path, file: f, fsw: fsw}
	go w.loop(ctx, onChange)
	return w, nil
}

func (w *Watcher) loop(ctx context.Context, onChange func(File)) {
	for {
		select {
		case <-ctx.Done():
			w.fsw.Close()
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			f, err := Load(w.path)
			if err != nil {
				continue
			}
			w.mu.Lock()
			w.file = f
			w.mu.Unlock()
			if onChange != nil {
				onChange(f)
			}
		case _, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
		}
	}
}

// Get returns the current, possibly hot-reloaded Config for name.
func (w *Watcher) Get(name string) (Config, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	c, ok := w.file[name]
	return c, ok
}

// Close stops the underlying filesystem watch.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}
