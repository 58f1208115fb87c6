package cmd

import (
	"testing"
)

func TestNew(t *testing.T) {
	cmd := New()
	if cmd == nil {
		t.Fatal("New() returned nil")
	}
	if cmd.Use != "fosspulse" {
		t.Errorf("expected Use to be 'fosspulse', got %q", cmd.Use)
	}
}

func TestNewCmdCrawl(t *testing.T) {
	opts := &Options{}
	cmd := NewCmdCrawl(opts)
	if cmd == nil {
		t.Fatal("NewCmdCrawl() returned nil")
	}
	if cmd.Use != "crawl <owner>/<repo>" {
		t.Errorf("expected Use to be 'crawl <owner>/<repo>', got %q", cmd.Use)
	}
}

func TestNewCmdRoles(t *testing.T) {
	opts := &Options{}
	cmd := NewCmdRoles(opts)
	if cmd == nil {
		t.Fatal("NewCmdRoles() returned nil")
	}
	if cmd.Use != "roles <owner>/<repo>" {
		t.Errorf("expected Use to be 'roles <owner>/<repo>', got %q", cmd.Use)
	}
}

func TestNewCmdStore(t *testing.T) {
	opts := &Options{}
	cmd := NewCmdStore(opts)
	if cmd == nil {
		t.Fatal("NewCmdStore() returned nil")
	}
	if cmd.Use != "store" {
		t.Errorf("expected Use to be 'store', got %q", cmd.Use)
	}
	if len(cmd.Commands()) != 3 {
		t.Errorf("expected 3 store subcommands, got %d", len(cmd.Commands()))
	}
}

func TestNewCmdConfig(t *testing.T) {
	cmd := NewCmdConfig()
	if cmd == nil {
		t.Fatal("NewCmdConfig() returned nil")
	}
	if cmd.Use != "config" {
		t.Errorf("expected Use to be 'config', got %q", cmd.Use)
	}
}

func TestNewCmdVersion(t *testing.T) {
	cmd := NewCmdVersion()
	if cmd == nil {
		t.Fatal("NewCmdVersion() returned nil")
	}
	if cmd.Use != "version" {
		t.Errorf("expected Use to be 'version', got %q", cmd.Use)
	}
}

func TestSetVersionInfo(t *testing.T) {
	SetVersionInfo("1.0.0", "abc123", "2024-01-01")
	// Just verify it doesn't panic - version info is in package vars
}

func TestOptions(t *testing.T) {
	opts := NewOptions(
		WithFormat("json"),
		WithSince("1w"),
		WithRole("maintainer"),
		WithWorkers(10),
		WithVerbosity(1),
	)
	if opts.Format != "json" {
		t.Errorf("expected Format to be 'json', got %q", opts.Format)
	}
	if opts.Role != "maintainer" {
		t.Errorf("expected Role to be 'maintainer', got %q", opts.Role)
	}
	if opts.Workers != 10 {
		t.Errorf("expected Workers to be 10, got %d", opts.Workers)
	}
}

func TestTUIFlag(t *testing.T) {
	opts := &Options{}
	flag := newTUIFlag(opts)

	if flag.String() != "auto" {
		t.Errorf("expected default 'auto', got %q", flag.String())
	}
	if flag.Type() != "bool" {
		t.Errorf("expected type 'bool', got %q", flag.Type())
	}
	if !flag.IsBoolFlag() {
		t.Error("expected IsBoolFlag() to be true")
	}

	if err := flag.Set("true"); err != nil {
		t.Fatalf("Set(true) failed: %v", err)
	}
	if opts.TUI == nil || !*opts.TUI {
		t.Error("Set(true) did not force TUI on")
	}

	if err := flag.Set("false"); err != nil {
		t.Fatalf("Set(false) failed: %v", err)
	}
	if opts.TUI == nil || *opts.TUI {
		t.Error("Set(false) did not force TUI off")
	}

	if err := flag.Set("auto"); err != nil {
		t.Fatalf("Set(auto) failed: %v", err)
	}
	if opts.TUI != nil {
		t.Error("Set(auto) did not reset to auto-detect")
	}

	if err := flag.Set("bogus"); err == nil {
		t.Error("expected error for invalid value")
	}
}

func TestShouldUseTUI(t *testing.T) {
	forceOn, forceOff := true, false

	// Verbosity always wins so logs stay visible
	if shouldUseTUI(&Options{Verbosity: 1, TUI: &forceOn}) {
		t.Error("expected verbose mode to disable TUI")
	}
	if !shouldUseTUI(&Options{TUI: &forceOn}) {
		t.Error("expected forced TUI to be on")
	}
	if shouldUseTUI(&Options{TUI: &forceOff}) {
		t.Error("expected forced TUI to be off")
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		input int64
		want  string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{1048576, "1.0 MB"},
	}

	for _, tt := range tests {
		if got := formatBytes(tt.input); got != tt.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
