package main

import (
	"errors"
	"testing"

	flag "github.com/spf13/pflag"
)

// ---------------------------------------------------------------------------
// TestParseExportFlags - Flag parsing
// ---------------------------------------------------------------------------

func TestParseExportFlags(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		args  []string
		check func(t *testing.T, f *exportFlags, pos []string)
	}{
		{
			name: "defaults",
			args: []string{"brief.txt"},
			check: func(t *testing.T, f *exportFlags, pos []string) {
				if len(pos) != 1 || pos[0] != "brief.txt" {
					t.Errorf("positional = %v", pos)
				}
				if f.page.margin != marginUnset {
					t.Errorf("margin = %v, want unset", f.page.margin)
				}
				if f.workers != 0 || f.output != "" || f.outputMode.html || f.outputMode.htmlOnly {
					t.Errorf("unexpected non-default flags: %+v", f)
				}
			},
		},
		{
			name: "short flags",
			args: []string{"-o", "out", "-w", "3", "-t", "1m", "-p", "legal", "-q", "-c", "team"},
			check: func(t *testing.T, f *exportFlags, _ []string) {
				if f.output != "out" || f.workers != 3 || f.timeout != "1m" || f.page.size != "legal" {
					t.Errorf("flags = %+v", f)
				}
				if !f.common.quiet || f.common.config != "team" {
					t.Errorf("common = %+v", f.common)
				}
			},
		},
		{
			name: "zero margin is explicit",
			args: []string{"--margin", "0"},
			check: func(t *testing.T, f *exportFlags, _ []string) {
				if f.page.margin != 0 {
					t.Errorf("margin = %v, want 0", f.page.margin)
				}
			},
		},
		{
			name: "doc ids",
			args: []string{"--doc-ids", "a,b", "--doc-ids", "c", "--api-url", "http://api"},
			check: func(t *testing.T, f *exportFlags, _ []string) {
				if len(f.source.docIDs) != 3 || f.source.docIDs[2] != "c" {
					t.Errorf("docIDs = %v", f.source.docIDs)
				}
				if f.source.apiURL != "http://api" {
					t.Errorf("apiURL = %q", f.source.apiURL)
				}
			},
		},
		{
			name: "flags after positional",
			args: []string{"dir", "--html", "--style", "compact"},
			check: func(t *testing.T, f *exportFlags, pos []string) {
				if len(pos) != 1 || pos[0] != "dir" {
					t.Errorf("positional = %v", pos)
				}
				if !f.outputMode.html || f.style != "compact" {
					t.Errorf("flags = %+v", f)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f, pos, err := parseExportFlags(tt.args)
			if err != nil {
				t.Fatalf("parseExportFlags() error = %v", err)
			}
			tt.check(t, f, pos)
		})
	}
}

func TestParseExportFlags_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args []string
	}{
		{"unknown flag", []string{"--bogus"}},
		{"bad int", []string{"-w", "many"}},
		{"bad float", []string{"--margin", "wide"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, _, err := parseExportFlags(tt.args)
			if !errors.Is(err, ErrUsage) {
				t.Errorf("error = %v, want ErrUsage", err)
			}
		})
	}
}

func TestParseExportFlags_Help(t *testing.T) {
	t.Parallel()

	_, _, err := parseExportFlags([]string{"--help"})
	if !errors.Is(err, flag.ErrHelp) {
		t.Errorf("error = %v, want ErrHelp", err)
	}
}

// ---------------------------------------------------------------------------
// TestParseServeFlags
// ---------------------------------------------------------------------------

func TestParseServeFlags(t *testing.T) {
	t.Parallel()

	f, err := parseServeFlags([]string{"--addr", "127.0.0.1:9000", "-w", "2", "-v"})
	if err != nil {
		t.Fatalf("parseServeFlags() error = %v", err)
	}
	if f.addr != "127.0.0.1:9000" || f.workers != 2 || !f.common.verbose {
		t.Errorf("flags = %+v", f)
	}

	if _, err := parseServeFlags([]string{"extra"}); !errors.Is(err, ErrUsage) {
		t.Errorf("positional arg error = %v, want ErrUsage", err)
	}
}
