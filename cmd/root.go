package cmd

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ftahirops/airtop/config"
	"github.com/ftahirops/airtop/engine"
	"github.com/ftahirops/airtop/model"
	"github.com/ftahirops/airtop/source"
	"github.com/ftahirops/airtop/ui"
)

// Version is set at build time via ldflags.
var Version = "0.1.0"

// Options holds CLI configuration.
type Options struct {
	Scale       string
	Source      string
	RefreshSec  int
	JSONMode    bool
	WatchMode   bool
	WatchCount  int
	RecordPath  string
	ReplayPath  string
	MetricsAddr string
	DebugPath   string
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `airtop v%s — Air quality history console

Usage:
  airtop [OPTIONS] [SCALE]

Modes:
  (default)         Interactive TUI (bubbletea, fullscreen)
  -watch            CLI output mode — prints the strip on every batch
  -json             Single JSON snapshot (banner + update) to stdout, then exit
  -version          Print version and exit

Options:
  -scale NAME       Time scale: hours, days, months (default: from config, days)
  -source NAME      Reading source: demo, influx, sqlite, postgres (default: from config, demo)
  -refresh N        Seconds between subscription batches (default: 60)
  -count N          Number of batches for -watch mode (0 = infinite, default: 0)
  -record FILE      Run while recording batches to FILE
  -replay FILE      Replay a recorded file instead of reading a source
  -metrics ADDR     Serve /metrics, /health and /api/* on ADDR (e.g. 127.0.0.1:9101)
  -debug FILE       Write debug log to FILE (also AIRTOP_DEBUG)

Positional:
  SCALE             First positional arg sets scale: airtop hours = airtop -scale hours

Environment:
  AIRTOP_SOURCE, AIRTOP_SCALE, AIRTOP_REFRESH_SEC, AIRTOP_TIMEZONE, AIRTOP_SQLITE_PATH
  INFLUXDB_URL, INFLUXDB_TOKEN, INFLUXDB_ORG, INFLUXDB_BUCKET
  INFLUXDB_MEASUREMENT, INFLUXDB_FIELD, INFLUXDB_DEVICE_ID
  AIRTOP_POSTGRES_DSN (or DATABASE_URL), AIRTOP_POSTGRES_TABLE
  A .env file in the working directory is loaded first.

Examples:
  airtop                              Interactive TUI, days of this month
  airtop hours                        Hours of today
  airtop -watch -scale months         CLI mode, months of this year
  airtop -watch -count 3 -refresh 5   CLI mode, 3 batches 5s apart
  airtop -json | jq '.banner'
  airtop -source sqlite -json
  DATABASE_URL=postgres://localhost/air airtop -source postgres
  airtop -record /tmp/air.jsonl
  airtop -replay /tmp/air.jsonl -watch
  airtop -metrics 127.0.0.1:9101 -watch
  airtop -version
`, Version)
}

// Run parses flags and starts the application.
func Run() error {
	var opts Options
	var showVersion bool

	flag.StringVar(&opts.Scale, "scale", "", "Time scale (hours, days, months)")
	flag.StringVar(&opts.Source, "source", "", "Reading source (demo, influx, sqlite, postgres)")
	flag.IntVar(&opts.RefreshSec, "refresh", 0, "Seconds between subscription batches")
	flag.BoolVar(&opts.JSONMode, "json", false, "Output a single JSON snapshot and exit")
	flag.BoolVar(&opts.WatchMode, "watch", false, "CLI output mode (no TUI, prints to terminal)")
	flag.IntVar(&opts.WatchCount, "count", 0, "Number of batches for -watch (0=infinite)")
	flag.StringVar(&opts.RecordPath, "record", "", "Record batches to file for later replay")
	flag.StringVar(&opts.ReplayPath, "replay", "", "Replay batches from a recorded file")
	flag.StringVar(&opts.MetricsAddr, "metrics", "", "Serve metrics and the JSON API on this address")
	flag.StringVar(&opts.DebugPath, "debug", os.Getenv("AIRTOP_DEBUG"), "Write debug log to file")
	flag.BoolVar(&showVersion, "version", false, "Print version and exit")

	flag.Usage = printUsage
	flag.Parse()

	if showVersion {
		fmt.Printf("airtop v%s\n", Version)
		return nil
	}

	// Support positional arg for scale: `airtop hours` = `airtop -scale hours`
	if args := flag.Args(); len(args) > 0 && opts.Scale == "" {
		opts.Scale = args[0]
	}

	cfg, err := resolveConfig(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
		printUsage()
		os.Exit(1)
	}

	tui := !opts.JSONMode && !opts.WatchMode
	stopLog, err := setupLogging(opts.DebugPath, tui)
	if err != nil {
		return err
	}
	defer stopLog()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	open, closeSource, err := openFactory(cfg, opts)
	if err != nil {
		return err
	}
	defer closeSource()

	pipe := engine.NewPipeline(cfg.DefaultScale, loc)
	if opts.MetricsAddr == "" && cfg.Prometheus.Enabled {
		opts.MetricsAddr = cfg.Prometheus.Addr
	}
	if opts.MetricsAddr != "" {
		pipe.Metrics = engine.NewMetricsStore()
		serveHTTP(opts.MetricsAddr, pipe, cfg.Prometheus.CORSOrigins)
	}

	if opts.RecordPath != "" {
		f, err := os.Create(opts.RecordPath)
		if err != nil {
			return fmt.Errorf("cannot create record file: %w", err)
		}
		defer f.Close()
		open = engine.NewRecorder(open, f).Open
	}

	switch {
	case opts.JSONMode:
		return runJSON(os.Stdout, pipe, open)
	case opts.WatchMode:
		return runWatch(pipe, open, cfg, opts)
	}

	m := ui.NewModel(open, pipe, cfg.MaxValue)
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err = p.Run()
	return err
}

// resolveConfig layers config file, environment and flags.
func resolveConfig(opts Options) (config.Config, error) {
	cfg := config.Load()
	if opts.Scale != "" {
		s, err := model.ParseTimeScale(opts.Scale)
		if err != nil {
			return cfg, err
		}
		cfg.DefaultScale = s
	}
	if opts.Source != "" {
		cfg.Source = opts.Source
	}
	if opts.RefreshSec > 0 {
		cfg.RefreshSec = opts.RefreshSec
	}
	if opts.ReplayPath != "" {
		// Replay needs no live source settings.
		return cfg, nil
	}
	return cfg, cfg.Validate()
}

// setupLogging routes the standard logger to path. Without a path the TUI
// discards logs since it owns the terminal; other modes keep stderr.
func setupLogging(path string, tui bool) (func(), error) {
	if path == "" {
		if tui {
			log.SetOutput(io.Discard)
		}
		return func() {}, nil
	}
	f, err := tea.LogToFile(path, "airtop")
	if err != nil {
		return nil, fmt.Errorf("cannot open debug log: %w", err)
	}
	return func() { f.Close() }, nil
}

// openFactory returns the source factory for the run: a player for -replay,
// otherwise the configured live source.
func openFactory(cfg config.Config, opts Options) (engine.SourceFactory, func(), error) {
	if opts.ReplayPath == "" {
		open, closer, err := source.Open(cfg)
		if err != nil {
			return nil, nil, err
		}
		return open, func() {
			if err := closer(); err != nil {
				log.Printf("airtop: close source: %v", err)
			}
		}, nil
	}

	f, err := os.Open(opts.ReplayPath)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot open replay file: %w", err)
	}
	defer f.Close()

	player, err := engine.NewPlayer(f)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot parse replay file: %w", err)
	}
	if opts.RefreshSec > 0 {
		player.Interval = time.Duration(opts.RefreshSec) * time.Second
	}
	log.Printf("airtop: replaying %d frames from %s", player.Len(), opts.ReplayPath)
	return player.Open, func() {}, nil
}

// runJSON outputs the banner and the first applied update as JSON and exits.
func runJSON(w io.Writer, pipe *engine.Pipeline, open engine.SourceFactory) error {
	scale, gen := pipe.Current()
	src, err := open(scale)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var (
		upd    *model.Update
		banner *model.Banner
	)
	avg, err := src.ReadAverage(ctx, time.Now())
	if err != nil {
		log.Printf("airtop: read average (%s): %v", scale, err)
	} else if b, err := pipe.ApplyAverage(gen, avg); err == nil {
		banner = &b
	}

	batch, ok := <-src.Subscribe(ctx)
	cancel()
	if !ok {
		if ctx.Err() != nil {
			return fmt.Errorf("no batch for %s: %w", scale, ctx.Err())
		}
		return fmt.Errorf("no batch for %s", scale)
	}
	upd, err = pipe.Apply(gen, batch, nil)
	if err != nil {
		return err
	}

	data := map[string]interface{}{
		"timestamp": time.Now().Format(time.RFC3339),
		"session":   pipe.Session(),
		"banner":    banner,
		"update":    upd,
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// itoa is strconv.Itoa for optional counts.
func itoa(n int) string {
	if n <= 0 {
		return "∞"
	}
	return strconv.Itoa(n)
}
