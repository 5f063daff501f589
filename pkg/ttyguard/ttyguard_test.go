package ttyguard

import "testing"

func TestNonInteractive(t *testing.T) {
	tests := []struct {
		name string
		args []string
		env  bool
		want bool
	}{
		{"tui", []string{"--data", "x.csv"}, false, false},
		{"robot nodes", []string{"--robot-nodes"}, false, true},
		{"single dash", []string{"-robot-filter"}, false, true},
		{"with value", []string{"--robot-metrics=true"}, false, true},
		{"sources", []string{"--config", "c.yaml", "--robot-sources"}, false, true},
		{"env", nil, true, true},
		{"version", []string{"--version"}, false, true},
		{"short help", []string{"-h"}, false, true},
		{"value is not a flag", []string{"--search", "robot-nodes"}, false, false},
		{"unknown robot flag", []string{"--robot-graph"}, false, false},
		{"after terminator", []string{"--", "--robot-nodes"}, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := nonInteractive(tt.args, tt.env); got != tt.want {
				t.Errorf("nonInteractive(%q) = %v, want %v", tt.args, got, tt.want)
			}
		})
	}
}

func TestFlagName(t *testing.T) {
	tests := map[string]string{
		"--robot-nodes":   "robot-nodes",
		"-version":        "version",
		"--select=East@0": "select",
		"-":               "",
		"--":              "",
		"value":           "",
		"--=x":            "",
	}
	for arg, want := range tests {
		got, ok := flagName(arg)
		if got != want || ok != (want != "") {
			t.Errorf("flagName(%q) = %q, %v; want %q", arg, got, ok, want)
		}
	}
}
