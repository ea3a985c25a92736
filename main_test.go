package main

import (
	"testing"

	"github.com/tecywiz121/libkdbx/cmd"
)

// TestExecute_Help verifies that the root command runs without panicking when
// --help is requested.  This is a smoke test for the cobra wiring in main().
func TestExecute_Help(t *testing.T) {
	// Run with --help; cobra always exits 0 for help so the error is nil.
	err := cmd.ExecuteWithArgs([]string{"--help"})
	if err != nil {
		t.Errorf("ExecuteWithArgs(--help) returned error: %v", err)
	}
}

// TestOpenCmd_FlagNames verifies that the open sub-command exposes the
// --password and --keyfile flags the CLI documents.
func TestOpenCmd_FlagNames(t *testing.T) {
	for _, flag := range []string{"password", "keyfile"} {
		if f := cmd.LookupFlag("open", flag); f == nil {
			t.Errorf("open --%s is not registered", flag)
		}
	}
}

// TestOpenCmd_RequiresArgument verifies that "open" with no path argument is
// a usage error rather than a panic.
func TestOpenCmd_RequiresArgument(t *testing.T) {
	if err := cmd.ExecuteWithArgs([]string{"open"}); err == nil {
		t.Error("ExecuteWithArgs([open]) with no path argument returned nil error, want usage error")
	}
}

// TestInspectCmd_RequiresArgument verifies that "inspect" with no path
// argument is a usage error rather than a panic.
func TestInspectCmd_RequiresArgument(t *testing.T) {
	if err := cmd.ExecuteWithArgs([]string{"inspect"}); err == nil {
		t.Error("ExecuteWithArgs([inspect]) with no path argument returned nil error, want usage error")
	}
}
