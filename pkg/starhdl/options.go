package starhdl

// Option configures a Runtime.
type Option func(*Runtime)

// WithImportPaths appends directories searched by snippet load() calls,
// highest priority first.
func WithImportPaths(paths ...string) Option {
	return func(r *Runtime) {
		r.importPaths = append(r.importPaths, paths...)
	}
}

// WithSourceName sets the document name used in snippet diagnostics.
func WithSourceName(name string) Option {
	return func(r *Runtime) {
		r.name = name
	}
}
