// Command daylog runs the hour-journal web application.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"
	_ "time/tzdata"

	"github.com/google/shlex"

	"github.com/daylog/daylog/internal/config"
	"github.com/daylog/daylog/internal/db"
	"github.com/daylog/daylog/internal/importer"
	"github.com/daylog/daylog/internal/server"
)

// Set via -ldflags at release time.
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = ""
)

const (
	watcherDebounce = 500 * time.Millisecond

	browserPollInterval = 100 * time.Millisecond
	browserPollAttempts = 60
)

func main() {
	log.SetFlags(log.LstdFlags)

	args := os.Args[1:]
	if len(args) > 0 {
		switch args[0] {
		case "serve":
			runServe(args[1:])
			return
		case "export":
			runExport(args[1:])
			return
		case "import":
			runImport(args[1:])
			return
		case "seed":
			runSeed(args[1:])
			return
		case "reset":
			runReset(args[1:])
			return
		case "update":
			runUpdate(args[1:])
			return
		case "version", "--version", "-v":
			printVersion()
			return
		case "help", "--help", "-h":
			printUsage()
			return
		}
	}
	runServe(args)
}

func printVersion() {
	fmt.Printf("daylog %s", version)
	if commit != "unknown" && commit != "" {
		fmt.Printf(" (%s)", commit)
	}
	if buildDate != "" {
		fmt.Printf(" built %s", buildDate)
	}
	fmt.Println()
}

func printUsage() {
	fmt.Print(`daylog - hour-by-hour journal with weekly and monthly reports

Usage:
  daylog [serve] [flags]    Start the web app (default command)
  daylog export [flags]     Write logged hours as CSV to stdout or a file
  daylog import <file>...   Import CSV files into the journal
  daylog seed               Create the starter groups and categories
  daylog reset              Delete all logged hours and restore the starter catalog
  daylog update [flags]     Check for and install a newer release
  daylog version            Print version information
  daylog help               Show this help

Serve flags:
  --host string        Bind address (default 127.0.0.1)
  --port int           Port to listen on (default 8089)
  --no-browser         Do not open the browser on startup
  --import-dir string  Directory watched for CSV drops

Run "daylog <command> --help" for command-specific flags.
`)
}

func runServe(args []string) {
	cfg := mustLoadConfig(args)
	database := mustOpenDB(cfg)
	defer database.Close()

	ctx := context.Background()
	seeded, err := database.Seed(ctx)
	if err != nil {
		log.Fatalf("Seeding catalog: %v", err)
	}
	if seeded {
		log.Printf("Created starter groups and categories")
	}

	engine := importer.NewEngine(database, cfg.ImportDir)
	if stats, err := engine.ImportDir(ctx, nil); err != nil {
		log.Printf("Initial import failed: %v", err)
	} else if stats.Rows > 0 {
		log.Printf("Imported %d row(s) from %d file(s) in %s",
			stats.Rows, stats.Files, cfg.ImportDir)
	}

	stopWatcher := startFileWatcher(engine, cfg.ImportDir)
	defer stopWatcher()

	port := server.FindAvailablePort(cfg.Host, cfg.Port)
	if port != cfg.Port {
		log.Printf("Port %d in use, using %d", cfg.Port, port)
		cfg.Port = port
	}

	srv := server.New(cfg, database, engine, server.WithVersion(
		server.VersionInfo{
			Version:   version,
			Commit:    commit,
			BuildDate: buildDate,
		},
	))

	url := fmt.Sprintf("http://%s:%d", cfg.Host, cfg.Port)
	log.Printf("daylog %s listening on %s", version, url)
	if !cfg.NoBrowser {
		go openBrowser(url, cfg.BrowserCmd)
	}

	if err := srv.ListenAndServe(); err != nil &&
		err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
}

func mustLoadConfig(args []string) config.Config {
	fs := flag.NewFlagSet("daylog", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprint(fs.Output(), "Usage: daylog [serve] [flags]\n\n")
		fs.PrintDefaults()
	}
	config.RegisterServeFlags(fs)
	if err := fs.Parse(args); err != nil {
		os.Exit(2)
	}
	cfg, err := config.Load(fs)
	if err != nil {
		log.Fatalf("Loading config: %v", err)
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		log.Fatalf("Creating data directory: %v", err)
	}
	return cfg
}

func mustOpenDB(cfg config.Config) *db.DB {
	database, err := db.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("Opening database %s: %v", cfg.DBPath, err)
	}
	return database
}

// startFileWatcher watches the import directory for dropped CSV files
// and imports them after a short settle period. Returns a stop func.
func startFileWatcher(engine *importer.Engine, dir string) func() {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Printf("Creating import directory: %v", err)
		return func() {}
	}
	w, err := importer.NewWatcher(watcherDebounce, engine.ImportPaths)
	if err != nil {
		log.Printf("File watcher unavailable: %v", err)
		return func() {}
	}
	if _, err := w.Watch(dir); err != nil {
		log.Printf("Watching %s: %v", dir, err)
		w.Stop()
		return func() {}
	}
	w.Start()
	log.Printf("Watching %s for CSV files", dir)
	return w.Stop
}

// openBrowser waits for the server to come up, then opens the UI.
// A configured browser command takes precedence over the OS default.
func openBrowser(url, browserCmd string) {
	ready := false
	for i := 0; i < browserPollAttempts; i++ {
		resp, err := http.Get(url + "/api/v1/stats")
		if err == nil {
			resp.Body.Close()
			ready = true
			break
		}
		time.Sleep(browserPollInterval)
	}
	if !ready {
		return
	}

	var cmd *exec.Cmd
	if browserCmd != "" {
		parts, err := shlex.Split(browserCmd)
		if err != nil || len(parts) == 0 {
			log.Printf("Bad browser command %q: %v", browserCmd, err)
			return
		}
		cmd = exec.Command(parts[0], append(parts[1:], url)...)
	} else {
		switch runtime.GOOS {
		case "darwin":
			cmd = exec.Command("open", url)
		case "windows":
			cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
		default:
			cmd = exec.Command("xdg-open", url)
		}
	}
	if err := cmd.Start(); err != nil {
		log.Printf("Opening browser: %v", err)
	}
}

func expandPath(p string) string {
	if p == "" {
		return p
	}
	if p == "~" || len(p) > 1 && p[:2] == "~/" {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, p[1:])
		}
	}
	return p
}
