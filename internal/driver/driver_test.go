// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

package driver

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return string(data)
}

func TestRunSingleFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "top.v")
	out := filepath.Join(dir, "out")
	writeFile(t, src, "`1+1`\n")

	if err := Run(context.Background(), Config{Input: src, OutputDir: out}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := readFile(t, filepath.Join(out, "top.v")); got != "2\n" {
		t.Errorf("expected '2\\n', got '%s'", got)
	}
}

func TestRunRecursiveMirrorsTree(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in")
	out := filepath.Join(dir, "out")
	writeFile(t, filepath.Join(in, "a.v"), "`10+1`\n")
	writeFile(t, filepath.Join(in, "sub", "b.v"), "`20+2`\n")
	writeFile(t, filepath.Join(in, "notes.txt"), "`ignored`\n")

	cfg := Config{Input: in, OutputDir: out, Recursive: true}
	if err := Run(context.Background(), cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := readFile(t, filepath.Join(out, "a.v")); got != "11\n" {
		t.Errorf("expected '11\\n', got '%s'", got)
	}
	if got := readFile(t, filepath.Join(out, "sub", "b.v")); got != "22\n" {
		t.Errorf("expected '22\\n', got '%s'", got)
	}
	if _, err := os.Stat(filepath.Join(out, "notes.txt")); !os.IsNotExist(err) {
		t.Errorf("expected non-matching file to be skipped")
	}
}

func TestRunCustomExtensions(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in")
	out := filepath.Join(dir, "out")
	writeFile(t, filepath.Join(in, "a.sv"), "`3*3`\n")
	writeFile(t, filepath.Join(in, "b.v"), "`1+1`\n")

	cfg := Config{Input: in, OutputDir: out, Recursive: true, Extensions: []string{"sv"}}
	if err := Run(context.Background(), cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := readFile(t, filepath.Join(out, "a.sv")); got != "9\n" {
		t.Errorf("expected '9\\n', got '%s'", got)
	}
	if _, err := os.Stat(filepath.Join(out, "b.v")); !os.IsNotExist(err) {
		t.Errorf("expected .v to be skipped when only sv is configured")
	}
}

func TestRunMissingInput(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{Input: filepath.Join(dir, "absent.v"), OutputDir: filepath.Join(dir, "out")}
	if err := Run(context.Background(), cfg); !errors.Is(err, ErrInputMissing) {
		t.Errorf("expected ErrInputMissing, got %v", err)
	}
}

func TestRunDirectoryNeedsRecursive(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in")
	writeFile(t, filepath.Join(in, "a.v"), "x\n")

	cfg := Config{Input: in, OutputDir: filepath.Join(dir, "out")}
	if err := Run(context.Background(), cfg); !errors.Is(err, ErrNotRecursive) {
		t.Errorf("expected ErrNotRecursive, got %v", err)
	}
}

func TestRunOutputCollision(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "top.v")
	out := filepath.Join(dir, "out")
	writeFile(t, src, "x\n")
	writeFile(t, out, "a file in the way\n")

	cfg := Config{Input: src, OutputDir: out}
	if err := Run(context.Background(), cfg); !errors.Is(err, ErrOutputNotDir) {
		t.Errorf("expected ErrOutputNotDir, got %v", err)
	}
}

func TestRunBadImportDir(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "top.v")
	writeFile(t, src, "x\n")

	cfg := Config{
		Input:      src,
		OutputDir:  filepath.Join(dir, "out"),
		ImportDirs: []string{filepath.Join(dir, "absent")},
	}
	if err := Run(context.Background(), cfg); !errors.Is(err, ErrBadImportDir) {
		t.Errorf("expected ErrBadImportDir, got %v", err)
	}
}

func TestRunInputDirOnLoadPath(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in")
	out := filepath.Join(dir, "out")
	writeFile(t, filepath.Join(in, "bits.star"), "def mask(n):\n    return (1 << n) - 1\n")
	writeFile(t, filepath.Join(in, "a.v"),
		"```\nload(\"bits.star\", \"mask\")\n```\n"+
			"localparam M = `mask(3)`;\n")

	cfg := Config{Input: in, OutputDir: out, Recursive: true}
	if err := Run(context.Background(), cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := readFile(t, filepath.Join(out, "a.v")); got != "localparam M = 7;\n" {
		t.Errorf("expected 'localparam M = 7;\\n', got '%s'", got)
	}
}

func TestRunSnippetErrorIsFatalForDocument(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "bad.v")
	writeFile(t, src, "```\nx = 1\n")

	cfg := Config{Input: src, OutputDir: filepath.Join(dir, "out")}
	err := Run(context.Background(), cfg)
	if err == nil {
		t.Fatalf("expected error for unclosed block")
	}
}

func TestConfigMatches(t *testing.T) {
	cases := []struct {
		exts []string
		name string
		want bool
	}{
		{nil, "a.v", true},
		{nil, "a.sv", false},
		{[]string{".sv", "vh"}, "a.sv", true},
		{[]string{".sv", "vh"}, "a.vh", true},
		{[]string{".sv"}, "a.v", false},
	}
	for _, tc := range cases {
		cfg := Config{Extensions: tc.exts}
		if got := cfg.matches(tc.name); got != tc.want {
			t.Errorf("matches(%q) with %v: expected %v, got %v", tc.name, tc.exts, tc.want, got)
		}
	}
}

func TestFileConfigApply(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "starhdl.yaml")
	writeFile(t, path, "import_dirs:\n  - lib\nextensions:\n  - .sv\njobs: 2\n")

	fc, err := LoadFileConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg := Config{}
	fc.Apply(&cfg)
	if len(cfg.ImportDirs) != 1 || cfg.ImportDirs[0] != "lib" {
		t.Errorf("expected import dirs from file, got %v", cfg.ImportDirs)
	}
	if cfg.Jobs != 2 {
		t.Errorf("expected jobs 2, got %d", cfg.Jobs)
	}

	// Flags win over the file.
	cfg = Config{Jobs: 8, Extensions: []string{".v"}}
	fc.Apply(&cfg)
	if cfg.Jobs != 8 || cfg.Extensions[0] != ".v" {
		t.Errorf("expected explicit settings preserved, got %+v", cfg)
	}
}

func TestLoadFileConfigBadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	writeFile(t, path, "jobs: [oops\n")

	if _, err := LoadFileConfig(path); err == nil {
		t.Errorf("expected parse error")
	}
}
