package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/daylog/daylog/internal/config"
	"github.com/daylog/daylog/internal/db"
	"github.com/daylog/daylog/internal/export"
	"github.com/daylog/daylog/internal/timeutil"
)

// runExport writes logged hours as CSV to stdout or -o file,
// optionally restricted to a [--from, --to) date range.
func runExport(args []string) {
	fs := flag.NewFlagSet("daylog export", flag.ExitOnError)
	out := fs.String("o", "", "Output file (default stdout)")
	from := fs.String("from", "", "Start date, inclusive (YYYY-MM-DD)")
	to := fs.String("to", "", "End date, exclusive (YYYY-MM-DD)")
	if err := fs.Parse(args); err != nil {
		os.Exit(2)
	}
	for _, d := range []string{*from, *to} {
		if d == "" {
			continue
		}
		if _, err := timeutil.ParseDate(d); err != nil {
			log.Fatalf("Bad date %q: want YYYY-MM-DD", d)
		}
	}

	_, database := openForCommand()
	defer database.Close()
	ctx := context.Background()

	cat, err := database.GetCatalog(ctx)
	if err != nil {
		log.Fatalf("Loading catalog: %v", err)
	}
	logs, err := database.AllLogs(ctx)
	if err != nil {
		log.Fatalf("Loading logs: %v", err)
	}
	if *from != "" || *to != "" {
		kept := logs[:0]
		for _, l := range logs {
			if *from != "" && l.Day < *from {
				continue
			}
			if *to != "" && l.Day >= *to {
				continue
			}
			kept = append(kept, l)
		}
		logs = kept
	}

	w := os.Stdout
	if *out != "" {
		f, err := os.Create(expandPath(*out))
		if err != nil {
			log.Fatalf("Creating %s: %v", *out, err)
		}
		defer f.Close()
		w = f
	}
	if err := export.Write(w, logs, cat); err != nil {
		log.Fatalf("Writing CSV: %v", err)
	}
	if *out != "" {
		fmt.Fprintf(os.Stderr, "Wrote %d row(s) to %s\n", len(logs), *out)
	}
}

// runImport loads one or more CSV files into the journal.
func runImport(args []string) {
	fs := flag.NewFlagSet("daylog import", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		os.Exit(2)
	}
	files := fs.Args()
	if len(files) == 0 {
		log.Fatalf("Usage: daylog import <file.csv>...")
	}

	_, database := openForCommand()
	defer database.Close()
	ctx := context.Background()

	cat, err := database.GetCatalog(ctx)
	if err != nil {
		log.Fatalf("Loading catalog: %v", err)
	}
	total := 0
	for _, path := range files {
		path = expandPath(path)
		f, err := os.Open(path)
		if err != nil {
			log.Fatalf("Opening %s: %v", path, err)
		}
		logs, err := export.Read(f, cat)
		f.Close()
		if err != nil {
			log.Fatalf("Parsing %s: %v", path, err)
		}
		for _, l := range logs {
			if _, err := database.SaveLog(ctx, l); err != nil {
				log.Fatalf("Saving %s %d:00 from %s: %v",
					l.Day, l.Hour, path, err)
			}
		}
		total += len(logs)
		fmt.Printf("Imported %d row(s) from %s\n", len(logs), path)
	}
	if len(files) > 1 {
		fmt.Printf("Done: %d row(s) from %d file(s)\n", total, len(files))
	}
}

// runSeed creates the starter catalog if the database is empty.
func runSeed(args []string) {
	fs := flag.NewFlagSet("daylog seed", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		os.Exit(2)
	}

	_, database := openForCommand()
	defer database.Close()

	seeded, err := database.Seed(context.Background())
	if err != nil {
		log.Fatalf("Seeding: %v", err)
	}
	if seeded {
		fmt.Println("Created starter groups and categories")
	} else {
		fmt.Println("Catalog already populated, nothing to do")
	}
}

// runReset deletes all data and restores the starter catalog.
// Requires --yes, or an interactive confirmation.
func runReset(args []string) {
	fs := flag.NewFlagSet("daylog reset", flag.ExitOnError)
	yes := fs.Bool("yes", false, "Skip the confirmation prompt")
	if err := fs.Parse(args); err != nil {
		os.Exit(2)
	}
	if !*yes && !confirm("Delete ALL logged hours and categories? [y/N] ") {
		fmt.Println("Aborted")
		return
	}

	_, database := openForCommand()
	defer database.Close()

	if err := database.Reset(context.Background()); err != nil {
		log.Fatalf("Resetting: %v", err)
	}
	fmt.Println("Journal reset to the starter catalog")
}

func openForCommand() (config.Config, *db.DB) {
	cfg, err := config.LoadMinimal()
	if err != nil {
		log.Fatalf("Loading config: %v", err)
	}
	return cfg, mustOpenDB(cfg)
}
