// Package ttyguard stops terminal capability queries in non-interactive
// runs. Import it for its side effect before anything that pulls in
// lipgloss or bubbletea.
//
// Lipgloss asks the terminal for its background color, and the reply
// sequences end up in stdout. The JSON printed by the --robot-* flags must
// stay clean, so those runs set CI=1, which disables the query.
package ttyguard

import (
	"os"
	"strings"
)

// quietFlags are the slicer flags that print to stdout and exit without
// starting the TUI.
var quietFlags = map[string]bool{
	"robot-nodes":   true,
	"robot-filter":  true,
	"robot-sources": true,
	"robot-metrics": true,
	"version":       true,
	"help":          true,
	"h":             true,
}

func init() {
	if os.Getenv("CI") != "" {
		return
	}
	if nonInteractive(os.Args[1:], os.Getenv("SLICER_ROBOT") == "1" || os.Getenv("SLICER_TEST_MODE") != "") {
		_ = os.Setenv("CI", "1")
	}
}

// nonInteractive reports whether args name a quiet flag, in any form the
// flag package accepts: -name, --name or --name=value. Parsing stops at "--".
func nonInteractive(args []string, env bool) bool {
	if env {
		return true
	}
	for _, arg := range args {
		if arg == "--" {
			break
		}
		name, ok := flagName(arg)
		if ok && quietFlags[name] {
			return true
		}
	}
	return false
}

func flagName(arg string) (string, bool) {
	if len(arg) < 2 || arg[0] != '-' {
		return "", false
	}
	name := strings.TrimPrefix(arg[1:], "-")
	name, _, _ = strings.Cut(name, "=")
	return name, name != ""
}
