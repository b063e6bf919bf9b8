// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package driver discovers input documents and runs one preprocessor
// pass per document, mirroring the input tree under the output
// directory.
package driver

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"nickandperla.net/starhdl/pkg/starhdl"
)

// Resolution errors reported before any document is processed.
var (
	ErrInputMissing = errors.New("input path does not exist")
	ErrOutputNotDir = errors.New("output path exists and is not a directory")
	ErrNotRecursive = errors.New("input is a directory; enable recursive mode")
	ErrBadImportDir = errors.New("import directory missing or not a directory")
)

// Config describes one driver run.
type Config struct {
	Input      string
	OutputDir  string
	Recursive  bool
	ImportDirs []string
	Extensions []string
	Jobs       int
	Verbose    bool
}

func (c *Config) extensions() []string {
	if len(c.Extensions) == 0 {
		return []string{".v"}
	}
	return c.Extensions
}

func (c *Config) jobs() int {
	if c.Jobs <= 0 {
		return runtime.NumCPU()
	}
	return c.Jobs
}

func (c *Config) matches(name string) bool {
	ext := filepath.Ext(name)
	for _, want := range c.extensions() {
		if !strings.HasPrefix(want, ".") {
			want = "." + want
		}
		if ext == want {
			return true
		}
	}
	return false
}

// importPaths builds the load() search order: the input directory
// itself when processing a tree, then the configured import
// directories. Every configured directory must exist.
func (c *Config) importPaths(inputIsDir bool) ([]string, error) {
	var paths []string
	if inputIsDir {
		paths = append(paths, c.Input)
	}
	for _, dir := range c.ImportDirs {
		fi, err := os.Stat(dir)
		if err != nil || !fi.IsDir() {
			return nil, fmt.Errorf("%w: %s", ErrBadImportDir, dir)
		}
		paths = append(paths, dir)
	}
	return paths, nil
}

// Run processes the configured input into the output directory. Each
// document gets its own Runtime, and so its own snippet context;
// documents are independent and run in parallel up to the job limit.
// The first failing document cancels the rest.
func Run(ctx context.Context, cfg Config) error {
	in, err := os.Stat(cfg.Input)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInputMissing, cfg.Input)
	}
	if err := ensureDir(cfg.OutputDir); err != nil {
		return err
	}
	importPaths, err := cfg.importPaths(in.IsDir())
	if err != nil {
		return err
	}

	if !in.IsDir() {
		dst := filepath.Join(cfg.OutputDir, filepath.Base(cfg.Input))
		return process(cfg, cfg.Input, dst, importPaths)
	}
	if !cfg.Recursive {
		return fmt.Errorf("%w: %s", ErrNotRecursive, cfg.Input)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.jobs())
	walkErr := filepath.WalkDir(cfg.Input, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !cfg.matches(path) {
			return nil
		}
		rel, err := filepath.Rel(cfg.Input, path)
		if err != nil {
			return err
		}
		dst := filepath.Join(cfg.OutputDir, rel)
		if err := ensureDir(filepath.Dir(dst)); err != nil {
			return err
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return process(cfg, path, dst, importPaths)
		})
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}
	return walkErr
}

// process runs exactly one document pass with a fresh Runtime.
func process(cfg Config, src, dst string, importPaths []string) error {
	if cfg.Verbose {
		log.Printf("starhdl: %s -> %s", src, dst)
	}
	rt := starhdl.New(
		starhdl.WithImportPaths(importPaths...),
		starhdl.WithSourceName(src),
	)
	if err := rt.ProcessFile(src, dst); err != nil {
		return fmt.Errorf("%s: %w", src, err)
	}
	return nil
}

// ensureDir creates path as a directory, reporting a collision with an
// existing non-directory as ErrOutputNotDir.
func ensureDir(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		if fi, serr := os.Stat(path); serr == nil && !fi.IsDir() {
			return fmt.Errorf("%w: %s", ErrOutputNotDir, path)
		}
		return err
	}
	return nil
}
