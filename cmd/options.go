package cmd

// Options holds the shared command-line options for the fosspulse CLI.
type Options struct {
	Format    string
	Since     string
	DataDir   string
	Workers   int
	Fresh     bool // Discard the saved cursor and crawl from scratch
	Verbosity int
	TUI       *bool // nil = auto-detect, true = force TUI, false = disable TUI

	// Role report options
	Role      string // Only show users attributed this role
	MinEvents int    // Only show users with at least this many evidence events
	Export    string // Also write the JSON report to this file
	Summary   bool   // Print aggregate counts instead of per-user profiles

	// Profiling options
	CPUProfile string // Write CPU profile to file
	MemProfile string // Write memory profile to file
	Trace      string // Write execution trace to file
}

// Option is a functional option for configuring Options.
type Option func(*Options)

// NewOptions creates a new Options with defaults and applies any provided options.
func NewOptions(opts ...Option) *Options {
	o := &Options{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithFormat sets the output format (table, json, markdown).
func WithFormat(format string) Option {
	return func(o *Options) {
		o.Format = format
	}
}

// WithSince restricts the crawl to subjects updated since (e.g., "1w", "30d", "6mo").
func WithSince(since string) Option {
	return func(o *Options) {
		o.Since = since
	}
}

// WithDataDir sets the root directory for harvested repositories.
func WithDataDir(dir string) Option {
	return func(o *Options) {
		o.DataDir = dir
	}
}

// WithWorkers sets the number of concurrent subject workers.
func WithWorkers(workers int) Option {
	return func(o *Options) {
		o.Workers = workers
	}
}

// WithFresh discards the saved cursor before crawling.
func WithFresh(fresh bool) Option {
	return func(o *Options) {
		o.Fresh = fresh
	}
}

// WithVerbosity sets the verbosity level.
func WithVerbosity(v int) Option {
	return func(o *Options) {
		o.Verbosity = v
	}
}

// WithTUI controls TUI mode (nil = auto-detect, true = force, false = disable).
func WithTUI(tui *bool) Option {
	return func(o *Options) {
		o.TUI = tui
	}
}

// WithRole filters the report to users attributed the given role.
func WithRole(role string) Option {
	return func(o *Options) {
		o.Role = role
	}
}

// WithMinEvents filters the report to users with at least min evidence events.
func WithMinEvents(min int) Option {
	return func(o *Options) {
		o.MinEvents = min
	}
}

// WithExport also writes the JSON report to the given file.
func WithExport(path string) Option {
	return func(o *Options) {
		o.Export = path
	}
}

// WithSummary prints aggregate counts instead of per-user profiles.
func WithSummary(summary bool) Option {
	return func(o *Options) {
		o.Summary = summary
	}
}
