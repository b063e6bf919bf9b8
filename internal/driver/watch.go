// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package driver

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce batches bursts of editor write events before a
// document is reprocessed.
const DefaultDebounce = 250 * time.Millisecond

// Watch does an initial full Run, then keeps reprocessing documents as
// they change under the input tree until ctx is cancelled. Failures of
// individual documents are logged and do not stop the watch; only setup
// failures are fatal.
func Watch(ctx context.Context, cfg Config, debounce time.Duration) error {
	if err := Run(ctx, cfg); err != nil {
		return err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	in, err := os.Stat(cfg.Input)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInputMissing, cfg.Input)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if in.IsDir() {
		err = filepath.WalkDir(cfg.Input, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return w.Add(path)
			}
			return nil
		})
	} else {
		err = w.Add(filepath.Dir(cfg.Input))
	}
	if err != nil {
		return err
	}

	pending := make(map[string]struct{})
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
				// New subdirectory in the tree: start watching it too.
				if in.IsDir() {
					w.Add(ev.Name)
				}
				continue
			}
			if !cfg.wants(in.IsDir(), ev.Name) {
				continue
			}
			pending[ev.Name] = struct{}{}
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			for path := range pending {
				delete(pending, path)
				if err := reprocess(cfg, in.IsDir(), path); err != nil {
					log.Printf("starhdl: %v", err)
				}
			}

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Printf("starhdl: watch: %v", err)
		}
	}
}

// wants reports whether a changed path should trigger a reprocess: the
// watched file itself in single-file mode, matching extensions in tree
// mode.
func (c *Config) wants(inputIsDir bool, path string) bool {
	if !inputIsDir {
		return filepath.Clean(path) == filepath.Clean(c.Input)
	}
	return c.matches(path)
}

// reprocess reruns the pass for one changed document.
func reprocess(cfg Config, inputIsDir bool, path string) error {
	importPaths, err := cfg.importPaths(inputIsDir)
	if err != nil {
		return err
	}
	dst := filepath.Join(cfg.OutputDir, filepath.Base(path))
	if inputIsDir {
		rel, err := filepath.Rel(cfg.Input, path)
		if err != nil {
			return err
		}
		dst = filepath.Join(cfg.OutputDir, rel)
		if err := ensureDir(filepath.Dir(dst)); err != nil {
			return err
		}
	}
	return process(cfg, path, dst, importPaths)
}
