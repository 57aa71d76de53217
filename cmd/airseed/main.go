// airseed fills a SQLite reading store with synthetic readings so the sqlite
// source has something to show.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/ftahirops/airtop/config"
	"github.com/ftahirops/airtop/source"
)

func main() {
	cfg := config.Load()
	path := flag.String("db", cfg.SQLite.Path, "SQLite database file")
	days := flag.Int("days", 400, "How many days of history to generate")
	every := flag.Duration("every", 15*time.Minute, "Time between readings")
	seed := flag.Int64("seed", 1, "Random seed")
	flag.Parse()

	if *path == "" {
		fmt.Fprintln(os.Stderr, "Error: -db is required (or set AIRTOP_SQLITE_PATH)")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := source.OpenDB(*path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	to := time.Now().Truncate(*every)
	from := to.AddDate(0, 0, -*days)
	readings := source.Synthesize(from, to, *every, cfg.MaxValue, *seed)

	fmt.Printf("airseed — %s readings from %s to %s\n",
		humanize.Comma(int64(len(readings))), from.Format("2006-01-02"), to.Format("2006-01-02 15:04"))

	if err := source.Insert(ctx, db, readings); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if st, err := os.Stat(*path); err == nil {
		fmt.Printf("Wrote %s (%s)\n", *path, humanize.Bytes(uint64(st.Size())))
	}
}
