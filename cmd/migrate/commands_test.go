package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func TestRootCommands(t *testing.T) {
	root := newRootCmd()

	want := []string{"up", "down", "steps", "version", "force"}
	for _, name := range want {
		cmd, _, err := root.Find([]string{name})
		if err != nil {
			t.Fatalf("find %s: %v", name, err)
		}
		if cmd.Name() != name {
			t.Errorf("find %s: got %s", name, cmd.Name())
		}
	}
}

func TestResolveDSN(t *testing.T) {
	t.Run("flag wins", func(t *testing.T) {
		t.Setenv(envDSN, "postgres://env")
		if got := resolveDSN("postgres://flag"); got != "postgres://flag" {
			t.Errorf("got %s, want postgres://flag", got)
		}
	})

	t.Run("env fallback", func(t *testing.T) {
		t.Setenv(envDSN, "postgres://env")
		if got := resolveDSN(""); got != "postgres://env" {
			t.Errorf("got %s, want postgres://env", got)
		}
	})

	t.Run("default", func(t *testing.T) {
		t.Setenv(envDSN, "")
		if got := resolveDSN(""); got != defaultDSN {
			t.Errorf("got %s, want %s", got, defaultDSN)
		}
	})
}

func TestArgValidation(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"steps without count", []string{"steps"}, "accepts 1 arg"},
		{"steps non-numeric", []string{"steps", "abc"}, "invalid step count"},
		{"steps zero", []string{"steps", "0"}, "invalid step count"},
		{"force non-numeric", []string{"force", "x"}, "invalid version"},
		{"up with args", []string{"up", "extra"}, "unknown command"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := newRootCmd()
			root.SetArgs(tt.args)
			root.SetOut(&bytes.Buffer{})
			root.SetErr(&bytes.Buffer{})

			err := root.Execute()
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestReport(t *testing.T) {
	color.NoColor = true

	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)

	report(cmd, "applied %d migration steps", 2)
	if got := out.String(); got != "✓ applied 2 migration steps\n" {
		t.Errorf("report output = %q", got)
	}
}
