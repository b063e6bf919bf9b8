// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Package eval owns the shared Starlark namespace that all snippets in
// one document pass execute against.
package eval

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	starlarkjson "go.starlark.net/lib/json"
	starlarkmath "go.starlark.net/lib/math"
	starlarktime "go.starlark.net/lib/time"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// ErrNoContext is returned when evaluation is attempted before Init or
// after Teardown.
var ErrNoContext = errors.New("no live snippet context")

// fileOpts mirrors what a Starlark REPL permits: snippets are chunks of
// an evolving session, not hermetic modules, so top-level control flow
// and reassignment must work.
var fileOpts = &syntax.FileOptions{
	Set:               true,
	While:             true,
	TopLevelControl:   true,
	GlobalReassign:    true,
	LoadBindsGlobally: true,
	Recursion:         true,
}

// Context is the execution namespace for one document pass. Every
// snippet in the pass mutates the same globals, so definitions made by
// an earlier snippet are visible to every later one. A Context is not
// safe for concurrent use; a pass is strictly sequential.
type Context struct {
	name        string
	searchPaths []string

	globals  starlark.StringDict
	thread   *starlark.Thread
	modules  map[string]*moduleEntry
	captures []*strings.Builder
}

// moduleEntry caches one load() result for the life of the pass. A nil
// entry marks a load still in progress, i.e. a cycle.
type moduleEntry struct {
	globals starlark.StringDict
	err     error
}

// NewContext creates a context for the named document. Snippet load()
// calls resolve against searchPaths in order, highest priority first.
// The context is unusable until Init.
func NewContext(name string, searchPaths []string) *Context {
	if name == "" {
		name = "<snippet>"
	}
	return &Context{name: name, searchPaths: searchPaths}
}

// facilities returns the predeclared runtime modules every snippet (and
// every loaded module) can reference without importing anything.
func facilities() starlark.StringDict {
	return starlark.StringDict{
		"math": starlarkmath.Module,
		"time": starlarktime.Module,
		"json": starlarkjson.Module,
	}
}

// Init creates a fresh empty namespace seeded with the facility modules.
func (c *Context) Init() {
	c.globals = facilities()
	c.modules = make(map[string]*moduleEntry)
	c.thread = &starlark.Thread{
		Name:  c.name,
		Print: c.print,
		Load:  c.load,
	}
}

// Teardown discards the namespace and module cache. Nothing defined
// during the pass survives; the context cannot evaluate again until a
// new Init.
func (c *Context) Teardown() {
	c.globals = nil
	c.modules = nil
	c.thread = nil
	c.captures = nil
}

// EvalInline evaluates one inline fragment. A fragment that parses as a
// single expression substitutes the value's print form. Anything else
// is executed as a statement chunk and substitutes what it prints; the
// parse failure is the selector, never an error.
func (c *Context) EvalInline(src string) (string, error) {
	if c.globals == nil {
		return "", ErrNoContext
	}
	if expr, err := fileOpts.ParseExpr(c.name, src, 0); err == nil {
		v, err := starlark.EvalExprOptions(fileOpts, c.thread, expr, c.globals)
		if err != nil {
			return "", err
		}
		return render(v), nil
	}
	return c.execCaptured(src)
}

// EvalBlock executes a block body. Blocks are always statement chunks;
// the substitution is whatever they print.
func (c *Context) EvalBlock(body string) (string, error) {
	if c.globals == nil {
		return "", ErrNoContext
	}
	return c.execCaptured(body)
}

// execCaptured runs src as statements against the shared globals with
// print output redirected into a fresh capture buffer. The buffer is
// released on every path, so a failing snippet cannot corrupt an outer
// capture still in progress.
func (c *Context) execCaptured(src string) (string, error) {
	f, err := fileOpts.Parse(c.name, src, 0)
	if err != nil {
		return "", err
	}
	buf := &strings.Builder{}
	c.captures = append(c.captures, buf)
	defer func() { c.captures = c.captures[:len(c.captures)-1] }()
	if err := starlark.ExecREPLChunk(f, c.thread, c.globals); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// print is the Thread.Print hook. Output lands in the innermost active
// capture; with no capture in scope it degrades to stderr so expression
// snippets that print never pollute the document.
func (c *Context) print(_ *starlark.Thread, msg string) {
	if n := len(c.captures); n > 0 {
		buf := c.captures[n-1]
		buf.WriteString(msg)
		buf.WriteByte('\n')
		return
	}
	fmt.Fprintln(os.Stderr, msg)
}

// render converts an expression value to the text spliced into the
// document. Strings substitute bare; every other value uses its display
// form, so composite results carry their bracket and quote syntax
// verbatim and None renders as "None".
func render(v starlark.Value) string {
	if s, ok := starlark.AsString(v); ok {
		return s
	}
	return v.String()
}

// load resolves a module name for snippet load() calls. Loaded modules
// run once per pass against the facility universe and are cached; they
// do not see document globals.
func (c *Context) load(thread *starlark.Thread, module string) (starlark.StringDict, error) {
	if e, ok := c.modules[module]; ok {
		if e == nil {
			return nil, fmt.Errorf("cycle in load of %q", module)
		}
		return e.globals, e.err
	}
	c.modules[module] = nil

	var globals starlark.StringDict
	path, err := c.resolve(module)
	if err == nil {
		globals, err = starlark.ExecFileOptions(fileOpts, thread, path, nil, facilities())
	}
	c.modules[module] = &moduleEntry{globals: globals, err: err}
	return globals, err
}

// resolve maps a module name to a file path using the search paths.
func (c *Context) resolve(module string) (string, error) {
	if filepath.IsAbs(module) {
		if fi, err := os.Stat(module); err == nil && !fi.IsDir() {
			return module, nil
		}
		return "", fmt.Errorf("load: no module at %q", module)
	}
	for _, dir := range c.searchPaths {
		path := filepath.Join(dir, module)
		if fi, err := os.Stat(path); err == nil && !fi.IsDir() {
			return path, nil
		}
	}
	return "", fmt.Errorf("load: module %q not found in any import directory", module)
}
