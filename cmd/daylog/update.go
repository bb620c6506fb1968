package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/daylog/daylog/internal/config"
	"github.com/daylog/daylog/internal/update"
)

// runUpdate checks GitHub for a newer release and optionally installs it.
func runUpdate(args []string) {
	fs := flag.NewFlagSet("daylog update", flag.ExitOnError)
	checkOnly := fs.Bool("check", false, "Only check, do not install")
	yes := fs.Bool("yes", false, "Install without prompting")
	force := fs.Bool("force", false, "Bypass the cached check result")
	if err := fs.Parse(args); err != nil {
		os.Exit(2)
	}

	cfg, err := config.LoadMinimal()
	if err != nil {
		log.Fatalf("Loading config: %v", err)
	}

	fmt.Printf("Current version: %s\n", version)
	info, err := update.Check(version, *force, cfg.DataDir)
	if err != nil {
		log.Fatalf("Checking for updates: %v", err)
	}
	if info == nil {
		fmt.Println("Already up to date")
		return
	}

	fmt.Printf("New version available: %s (%s, %s)\n",
		info.LatestVersion, info.AssetName, update.FormatSize(info.Size))
	if *checkOnly {
		fmt.Println("Run \"daylog update\" to install")
		return
	}
	if !*yes && !confirm("Install update? [y/N] ") {
		fmt.Println("Aborted")
		return
	}

	err = update.Apply(info, func(downloaded, total int64) {
		pct := 0.0
		if total > 0 {
			pct = float64(downloaded) / float64(total) * 100
		}
		fmt.Printf("\r  %s / %s (%.0f%%)",
			update.FormatSize(downloaded), update.FormatSize(total), pct)
	})
	fmt.Println()
	if err != nil {
		log.Fatalf("Installing update: %v", err)
	}
	fmt.Printf("Updated to %s. Restart daylog to use the new version.\n",
		info.LatestVersion)
}

func confirm(prompt string) bool {
	fmt.Print(prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	line = strings.ToLower(strings.TrimSpace(line))
	return line == "y" || line == "yes"
}
