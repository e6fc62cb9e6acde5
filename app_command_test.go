package main

import (
	"bytes"
	"io"
	"strings"
	"testing"
)

func TestCommandHelpListsFlags(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cmd, err := NewApp().Command()
	if err != nil {
		t.Fatalf("Command: %v", err)
	}
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"--help"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("--help: %v", err)
	}
	for _, want := range []string{"--dir", "--slots", "--usage-cmd", "--follow", "--save"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("help missing %s:\n%s", want, out.String())
		}
	}
}

func TestCommandRejectsBadInput(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"zero slots", []string{"--claude-home", t.TempDir(), "--dir", t.TempDir(), "--slots", "0"}, "slots must be at least 1"},
		{"unknown flag", []string{"--no-such-flag"}, "unknown flag"},
		{"positional", []string{"extra"}, "unknown command"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := NewApp().Command()
			if err != nil {
				t.Fatal(err)
			}
			cmd.SetOut(io.Discard)
			cmd.SetErr(io.Discard)
			cmd.SetArgs(tt.args)
			err = cmd.Execute()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want %q", err, tt.want)
			}
		})
	}
}
