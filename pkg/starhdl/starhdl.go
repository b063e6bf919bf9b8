// Package starhdl runs embedded Starlark snippets found in HDL source
// text and splices their output into the document in place.
//
// Inline fragments sit between single backtick markers on one line.
// Blocks sit between lines whose stripped content begins with three
// backticks. All snippets in one document share a single evolving
// namespace, so state defined by an earlier snippet is visible to every
// later one within the same pass.
package starhdl

import (
	"io"
	"os"

	"nickandperla.net/starhdl/internal/eval"
	"nickandperla.net/starhdl/internal/scan"
)

// Runtime processes documents. Each Process call runs one document pass
// with its own fresh snippet context; nothing carries over between
// passes, so a Runtime may be reused across documents.
type Runtime struct {
	importPaths []string
	name        string
}

// New creates a new Runtime with the given options.
func New(opts ...Option) *Runtime {
	r := &Runtime{}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Process runs one document pass from in to out. The snippet context is
// created before the first line is read and torn down when the pass
// finishes, whether or not it succeeded.
func (r *Runtime) Process(in io.Reader, out io.Writer) error {
	ctx := eval.NewContext(r.name, r.importPaths)
	ctx.Init()
	defer ctx.Teardown()
	return scan.New(ctx).Run(in, out)
}

// ProcessFile runs one document pass from the input path to the output
// path, creating or truncating the output file.
func (r *Runtime) ProcessFile(inPath, outPath string) error {
	in, err := os.Open(inPath)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(outPath)
	if err != nil {
		return err
	}
	err = r.Process(in, out)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	return err
}
