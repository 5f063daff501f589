package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime/pprof"
	"strconv"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/vanderheijden86/hierslicer/internal/datasource"
	"github.com/vanderheijden86/hierslicer/pkg/config"
	"github.com/vanderheijden86/hierslicer/pkg/debug"
	"github.com/vanderheijden86/hierslicer/pkg/slicer"
	_ "github.com/vanderheijden86/hierslicer/pkg/ttyguard"
	"github.com/vanderheijden86/hierslicer/pkg/ui"
	"github.com/vanderheijden86/hierslicer/pkg/version"
)

func main() {
	cpuProfile := flag.String("cpu-profile", "", "Write CPU profile to file")
	help := flag.Bool("help", false, "Show help")
	versionFlag := flag.Bool("version", false, "Show version")
	configFlag := flag.String("config", "", "Config file (default: XDG config dir)")
	dataFlag := flag.String("data", "", "Data file: .csv, .tsv, .jsonl, .ndjson, .db, .sqlite")
	queryFlag := flag.String("query", "", "SQL query for SQLite sources (default: the first table)")
	sourceFlag := flag.String("source", "", "Named source from the config file")
	stateFlag := flag.String("state", "", "State file (default: per source in the XDG state dir; \"none\" keeps it in memory)")
	noWatch := flag.Bool("no-watch", false, "Do not reload when the data file changes")
	searchFlag := flag.String("search", "", "Search text (robot mode)")
	selectFlag := flag.String("select", "", "ownIds to toggle, separated by '|' (robot mode)")
	expandAll := flag.Bool("expand-all", false, "Expand every node before reporting (robot mode)")
	robotNodes := flag.Bool("robot-nodes", false, "Print the rendered nodes as JSON")
	robotFilter := flag.Bool("robot-filter", false, "Print the selection filter as JSON")
	robotSources := flag.Bool("robot-sources", false, "Load every configured source and print a summary as JSON")
	robotMetrics := flag.Bool("robot-metrics", false, "Print pipeline timings as JSON after the other robot output")
	debugFlag := flag.Bool("debug", false, "Write debug logs to stderr (same as SLICER_DEBUG=1)")
	flag.Parse()

	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Could not create CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "Could not start CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer pprof.StopCPUProfile()
	}

	if *help {
		fmt.Println("Usage: slicer [options] [data-file]")
		fmt.Println("\nA hierarchy slicer for tabular data: every column becomes one tree level,")
		fmt.Println("and checked branches become a filter expression.")
		flag.PrintDefaults()
		os.Exit(0)
	}

	if *versionFlag {
		fmt.Printf("slicer %s\n", version.Version)
		os.Exit(0)
	}

	if *debugFlag {
		debug.SetEnabled(true)
	}

	var (
		cfg    config.Config
		cfgErr error
	)
	if *configFlag != "" {
		cfg, cfgErr = config.LoadFrom(*configFlag)
	} else {
		cfg, cfgErr = config.Load()
	}
	if cfgErr != nil {
		// Non-fatal: continue without config
		fmt.Fprintf(os.Stderr, "Warning: %v\n", cfgErr)
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: config: %v\n", strings.ReplaceAll(err.Error(), "\n", "; "))
	}

	if *robotSources {
		results, err := datasource.LoadAll(context.Background(), requestsFromConfig(cfg))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading sources: %v\n", err)
			os.Exit(1)
		}
		if err := writeRobotJSON(os.Stdout, sourcesOutput(results)); err != nil {
			fmt.Fprintf(os.Stderr, "Error encoding sources: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	data := *dataFlag
	if data == "" && flag.NArg() > 0 {
		data = flag.Arg(0)
	}
	src, err := resolveSource(cfg, data, *sourceFlag, *queryFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	table, ds, err := datasource.Load(ctx, src.Path, src.Query, src.Columns)
	cancel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading %s: %v\n", src.Path, err)
		os.Exit(1)
	}

	st, err := openStore(*stateFlag, config.StateDir(), ds.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening state: %v\n", err)
		os.Exit(1)
	}
	if cfg.Slicer.HideEmptyLeaves {
		st.Default(slicer.ObjectOptions, slicer.PropHideEmptyLeaves, true)
	}

	if *robotNodes || *robotFilter || *robotMetrics {
		run := robotRun{
			Table:     table,
			Source:    ds,
			Store:     st,
			Options:   cfg.Slicer.Options(),
			Select:    parseSelectFlag(*selectFlag),
			Search:    *searchFlag,
			ExpandAll: *expandAll,
		}
		v, _ := run.execute()

		var outs []any
		if *robotNodes {
			outs = append(outs, nodesOutput(run, v))
		}
		if *robotFilter {
			outs = append(outs, filterOutput(run, v))
		}
		if *robotMetrics {
			outs = append(outs, metricsOutput())
		}
		for _, out := range outs {
			if err := writeRobotJSON(os.Stdout, out); err != nil {
				fmt.Fprintf(os.Stderr, "Error encoding output: %v\n", err)
				os.Exit(1)
			}
		}
		os.Exit(0)
	}

	if !term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Fprintln(os.Stderr, "Error: stdout is not a terminal; use --robot-nodes or --robot-filter for scripted use")
		os.Exit(2)
	}

	m := ui.NewModel(ui.Options{
		Config:   cfg,
		Source:   ds,
		Table:    table,
		Store:    st,
		Watch:    cfg.UI.LiveReload && !*noWatch,
		StateDir: config.StateDir(),
	})

	if err := runTUIProgram(m); err != nil {
		fmt.Printf("Error running slicer: %v\n", err)
		os.Exit(1)
	}
}

func runTUIProgram(m ui.Model) error {
	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithoutSignalHandler(),
	)

	runDone := make(chan struct{})
	defer close(runDone)

	// Graceful shutdown on SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-runDone:
			return
		case <-sigCh:
		}

		p.Quit()

		select {
		case <-runDone:
			return
		case <-sigCh:
		case <-time.After(5 * time.Second):
		}

		p.Kill()
	}()

	// Optional auto-quit for automated tests: set SLICER_TUI_AUTOCLOSE_MS.
	if v := os.Getenv("SLICER_TUI_AUTOCLOSE_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			go func() {
				timer := time.NewTimer(time.Duration(ms) * time.Millisecond)
				defer timer.Stop()

				select {
				case <-runDone:
					return
				case <-timer.C:
				}

				p.Quit()

				select {
				case <-runDone:
					return
				case <-time.After(2 * time.Second):
				}

				p.Kill()
			}()
		}
	}

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) || errors.Is(err, tea.ErrInterrupted) {
		return nil
	}
	return err
}
