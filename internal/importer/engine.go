// Package importer loads hour-log CSV files from a drop
// directory into the store. A watcher (see watcher.go) can
// trigger imports automatically when files land.
package importer

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	gosync "sync"
	"time"

	"github.com/daylog/daylog/internal/db"
	"github.com/daylog/daylog/internal/export"
)

// Phase describes the current import phase.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseImporting Phase = "importing"
	PhaseDone      Phase = "done"
)

// Progress reports import progress to listeners.
type Progress struct {
	Phase       Phase  `json:"phase"`
	CurrentFile string `json:"current_file,omitempty"`
	FilesTotal  int    `json:"files_total"`
	FilesDone   int    `json:"files_done"`
	Rows        int    `json:"rows"`
}

// ProgressFunc is called with progress updates during an import.
type ProgressFunc func(Progress)

// Result describes the outcome of importing one file.
type Result struct {
	File string `json:"file"`
	Rows int    `json:"rows"`
	Err  string `json:"err,omitempty"`
}

// Stats summarizes a full import run.
type Stats struct {
	Files    int      `json:"files"`
	Rows     int      `json:"rows"`
	Failed   int      `json:"failed"`
	Warnings []string `json:"warnings,omitempty"`
}

// Engine imports CSV files into the store. Runs are serialized:
// the watcher and API endpoint share one engine.
type Engine struct {
	db  *db.DB
	dir string

	importMu  gosync.Mutex
	mu        gosync.RWMutex
	lastRun   time.Time
	lastStats Stats
}

// NewEngine creates an import engine over the given drop
// directory. The directory may not exist yet.
func NewEngine(database *db.DB, dir string) *Engine {
	return &Engine{db: database, dir: dir}
}

// Dir returns the drop directory path.
func (e *Engine) Dir() string { return e.dir }

// LastRun returns the time of the last completed import run.
func (e *Engine) LastRun() time.Time {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastRun
}

// LastStats returns statistics from the last import run.
func (e *Engine) LastStats() Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastStats
}

// ImportFile imports one CSV file, upserting each row by its
// (day, hour) slot. The whole file is parsed before any row is
// written, so a malformed file changes nothing.
func (e *Engine) ImportFile(ctx context.Context, path string) (Result, error) {
	res := Result{File: filepath.Base(path)}

	f, err := os.Open(path)
	if err != nil {
		return res, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	cat, err := e.db.GetCatalog(ctx)
	if err != nil {
		return res, fmt.Errorf("loading catalog: %w", err)
	}
	logs, err := export.Read(f, cat)
	if err != nil {
		return res, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}

	for _, l := range logs {
		if _, err := e.db.SaveLog(ctx, l); err != nil {
			return res, fmt.Errorf("saving %s hour %d: %w", l.Day, l.Hour, err)
		}
		res.Rows++
	}
	return res, nil
}

// ImportDir imports every CSV file in the drop directory. A
// missing directory is an empty run, not an error. fn may be nil.
func (e *Engine) ImportDir(ctx context.Context, fn ProgressFunc) (Stats, error) {
	entries, err := os.ReadDir(e.dir)
	if os.IsNotExist(err) {
		return Stats{}, nil
	}
	if err != nil {
		return Stats{}, fmt.Errorf("reading import dir: %w", err)
	}

	var paths []string
	for _, ent := range entries {
		if ent.IsDir() || !isCSV(ent.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(e.dir, ent.Name()))
	}
	sort.Strings(paths)
	return e.importPaths(ctx, paths, fn), nil
}

// ImportPaths imports the given files, ignoring any that are not
// CSV. Used as the watcher callback.
func (e *Engine) ImportPaths(paths []string) {
	var csvs []string
	for _, p := range paths {
		if isCSV(p) {
			csvs = append(csvs, p)
		}
	}
	if len(csvs) == 0 {
		return
	}
	sort.Strings(csvs)
	stats := e.importPaths(context.Background(), csvs, nil)
	if stats.Rows > 0 {
		log.Printf("import: %d row(s) from %d file(s)", stats.Rows, stats.Files)
	}
}

func (e *Engine) importPaths(
	ctx context.Context, paths []string, fn ProgressFunc,
) Stats {
	e.importMu.Lock()
	defer e.importMu.Unlock()

	report := func(p Progress) {
		if fn != nil {
			fn(p)
		}
	}
	report(Progress{Phase: PhaseImporting, FilesTotal: len(paths)})

	var stats Stats
	for i, path := range paths {
		report(Progress{
			Phase:       PhaseImporting,
			CurrentFile: filepath.Base(path),
			FilesTotal:  len(paths),
			FilesDone:   i,
			Rows:        stats.Rows,
		})

		res, err := e.ImportFile(ctx, path)
		if err != nil {
			stats.Failed++
			stats.Warnings = append(stats.Warnings, err.Error())
			log.Printf("import: %v", err)
			continue
		}
		stats.Files++
		stats.Rows += res.Rows
	}
	report(Progress{
		Phase:      PhaseDone,
		FilesTotal: len(paths),
		FilesDone:  len(paths),
		Rows:       stats.Rows,
	})

	e.mu.Lock()
	e.lastRun = time.Now()
	e.lastStats = stats
	e.mu.Unlock()
	return stats
}

func isCSV(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".csv")
}
