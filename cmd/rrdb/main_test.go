package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/xtxerr/rrdb/internal/errors"
	"github.com/xtxerr/rrdb/internal/shell"
)

func TestBuildRequest(t *testing.T) {
	tests := []struct {
		name    string
		opts    options
		check   func(*shell.Request) bool
		wantErr error
	}{
		{
			name:  "create",
			opts:  options{command: "create", filename: "a.rrdb", setCount: 2, sampleCount: 10, xform: "RRDBSUM:ONEDAY:1"},
			check: func(r *shell.Request) bool { return r.Transforms == "RRDBSUM:ONEDAY:1" && r.DatasetCount == 2 },
		},
		{
			name:  "fetch index",
			opts:  options{command: "fetch", filename: "a.rrdb", xform: "2"},
			check: func(r *shell.Request) bool { return r.HasIndex && r.Index == 2 },
		},
		{
			name:  "fetch raw",
			opts:  options{command: "fetch", filename: "a.rrdb"},
			check: func(r *shell.Request) bool { return !r.HasIndex },
		},
		{name: "fetch bad index", opts: options{command: "fetch", xform: "RRDBCOUNT"}, wantErr: errors.ErrInvalidValue},
		{name: "update without values", opts: options{command: "update"}, wantErr: errors.ErrInvalidValue},
		{name: "unknown command", opts: options{command: "drop"}, wantErr: errors.ErrUnknownCommand},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := buildRequest(&tt.opts)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tt.check(req) {
				t.Errorf("unexpected request %+v", req)
			}
		})
	}
}

func TestRunExitCodes(t *testing.T) {
	dir := t.TempDir()
	base := []string{"--dir=" + dir, "--filename=t.rrdb", "--config=" + writeConfig(t, dir)}

	tests := []struct {
		name string
		args []string
		want int
	}{
		{"create", []string{"--command=create", "--setcount=2", "--samplecount=10", "--xform=RRDBCOUNT:FIVEMINUTE"}, errors.CodeOK},
		{"update", []string{"--command=update", "--values=1:2"}, errors.CodeOK},
		{"arity", []string{"--command=update", "--values=1"}, errors.CodeArityMismatch},
		{"unknown transform", []string{"--command=fetch", "--xform=5"}, errors.CodeUnknownXform},
		{"bad create", []string{"--command=create", "--setcount=0", "--samplecount=10"}, errors.CodeInvalidConfig},
		{"bad flag", []string{"--nope"}, errors.CodeInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := run(append(append([]string{}, base...), tt.args...)); got != tt.want {
				t.Errorf("exit code %d (%s), want %d", got, errors.CodeName(got), tt.want)
			}
		})
	}

	missing := []string{"--dir=" + dir, "--filename=missing.rrdb", "--command=info"}
	if got := run(missing); got != errors.CodeNotFound {
		t.Errorf("missing file: exit code %d, want %d", got, errors.CodeNotFound)
	}

	noDir := []string{"--dir=" + filepath.Join(dir, "nope"), "--filename=t.rrdb", "--command=fetch"}
	if got := run(noDir); got != errors.CodeNotFound {
		t.Errorf("missing dir: exit code %d, want %d", got, errors.CodeNotFound)
	}
	if _, err := os.Stat(filepath.Join(dir, "missing.rrdb.lock")); !os.IsNotExist(err) {
		t.Errorf("lock file left behind, stat: %v", err)
	}
}

func TestRunBadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("percentile:\n  accuracy: 5\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := run([]string{"--config=" + path, "--command=info"}); got != errors.CodeInvalidConfig {
		t.Errorf("exit code %d, want %d", got, errors.CodeInvalidConfig)
	}
}

func writeConfig(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "rrdb.yaml")
	data := []byte("persistence:\n  fsync: false\nlock:\n  timeout: 0s\nlogging:\n  level: error\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}
