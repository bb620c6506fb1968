package importer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/daylog/daylog/internal/db"
)

func openTestDB(t *testing.T) *db.DB {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}

func seedCategory(t *testing.T, database *db.DB, group, category string) {
	t.Helper()
	ctx := context.Background()
	gid, err := database.InsertGroup(ctx, db.Group{Name: group})
	if err != nil {
		t.Fatalf("InsertGroup: %v", err)
	}
	_, err = database.InsertCategory(ctx, db.Category{
		Name: category, GroupID: &gid,
	})
	if err != nil {
		t.Fatalf("InsertCategory: %v", err)
	}
}

func writeCSV(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

const sampleCSV = "date,hour,group,category,rating,notes\n" +
	"2024-06-10,9,Work,Deep Work,8,focus\n" +
	"2024-06-10,10,Work,Deep Work,,\n"

func TestImportFile(t *testing.T) {
	database := openTestDB(t)
	seedCategory(t, database, "Work", "Deep Work")
	dir := t.TempDir()
	path := writeCSV(t, dir, "logs.csv", sampleCSV)

	res, err := NewEngine(database, dir).ImportFile(context.Background(), path)
	if err != nil {
		t.Fatalf("ImportFile: %v", err)
	}
	if res.Rows != 2 {
		t.Errorf("Rows = %d, want 2", res.Rows)
	}

	l, err := database.GetLog(context.Background(), "2024-06-10", 9)
	if err != nil {
		t.Fatalf("GetLog: %v", err)
	}
	if l.CategoryID == nil {
		t.Error("imported log has no category")
	}
	if l.Rating == nil || *l.Rating != 8 {
		t.Errorf("Rating = %v, want 8", l.Rating)
	}
	if l.Notes != "focus" {
		t.Errorf("Notes = %q", l.Notes)
	}
}

func TestImportFileUpserts(t *testing.T) {
	database := openTestDB(t)
	seedCategory(t, database, "Work", "Deep Work")
	dir := t.TempDir()
	e := NewEngine(database, dir)
	ctx := context.Background()

	path := writeCSV(t, dir, "logs.csv", sampleCSV)
	if _, err := e.ImportFile(ctx, path); err != nil {
		t.Fatalf("first import: %v", err)
	}

	updated := "date,hour,group,category,rating,notes\n" +
		"2024-06-10,9,Work,Deep Work,5,revised\n"
	path = writeCSV(t, dir, "logs2.csv", updated)
	if _, err := e.ImportFile(ctx, path); err != nil {
		t.Fatalf("second import: %v", err)
	}

	logs, err := database.AllLogs(ctx)
	if err != nil {
		t.Fatalf("AllLogs: %v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("got %d logs, want 2", len(logs))
	}
	l, err := database.GetLog(ctx, "2024-06-10", 9)
	if err != nil {
		t.Fatalf("GetLog: %v", err)
	}
	if l.Notes != "revised" || l.Rating == nil || *l.Rating != 5 {
		t.Errorf("slot not upserted: %+v", l)
	}
}

func TestImportFileRejectsMalformed(t *testing.T) {
	database := openTestDB(t)
	dir := t.TempDir()
	bad := "date,hour,category\n2024-06-10,9,Misc\nnot a date,9,Misc\n"
	path := writeCSV(t, dir, "bad.csv", bad)

	_, err := NewEngine(database, dir).ImportFile(context.Background(), path)
	if err == nil {
		t.Fatal("malformed file imported")
	}

	// Parse failure happens before any write.
	logs, err := database.AllLogs(context.Background())
	if err != nil {
		t.Fatalf("AllLogs: %v", err)
	}
	if len(logs) != 0 {
		t.Errorf("partial import left %d rows", len(logs))
	}
}

func TestImportDir(t *testing.T) {
	database := openTestDB(t)
	seedCategory(t, database, "Work", "Deep Work")
	dir := t.TempDir()
	writeCSV(t, dir, "a.csv", sampleCSV)
	writeCSV(t, dir, "b.csv",
		"date,hour,group,category,rating,notes\n2024-06-11,9,Work,Deep Work,,\n")
	writeCSV(t, dir, "notes.txt", "not a csv")
	writeCSV(t, dir, "broken.csv", "date,hour,category\nnope,1,x\n")

	var phases []Phase
	e := NewEngine(database, dir)
	stats, err := e.ImportDir(context.Background(), func(p Progress) {
		phases = append(phases, p.Phase)
	})
	if err != nil {
		t.Fatalf("ImportDir: %v", err)
	}

	if stats.Files != 2 || stats.Rows != 3 || stats.Failed != 1 {
		t.Errorf("stats = %+v, want 2 files / 3 rows / 1 failed", stats)
	}
	if len(stats.Warnings) != 1 {
		t.Errorf("warnings = %v", stats.Warnings)
	}
	if phases[0] != PhaseImporting || phases[len(phases)-1] != PhaseDone {
		t.Errorf("phases = %v", phases)
	}
	if e.LastRun().IsZero() {
		t.Error("LastRun not recorded")
	}
	if e.LastStats().Rows != 3 {
		t.Errorf("LastStats = %+v", e.LastStats())
	}
}

func TestImportDirMissing(t *testing.T) {
	database := openTestDB(t)
	e := NewEngine(database, filepath.Join(t.TempDir(), "nope"))
	stats, err := e.ImportDir(context.Background(), nil)
	if err != nil {
		t.Fatalf("ImportDir: %v", err)
	}
	if stats.Files != 0 {
		t.Errorf("stats = %+v, want empty", stats)
	}
}

func TestImportPathsFiltersCSV(t *testing.T) {
	database := openTestDB(t)
	seedCategory(t, database, "Work", "Deep Work")
	dir := t.TempDir()
	csv := writeCSV(t, dir, "a.csv", sampleCSV)
	txt := writeCSV(t, dir, "a.txt", "junk")

	e := NewEngine(database, dir)
	e.ImportPaths([]string{csv, txt})

	logs, err := database.AllLogs(context.Background())
	if err != nil {
		t.Fatalf("AllLogs: %v", err)
	}
	if len(logs) != 2 {
		t.Errorf("got %d logs, want 2", len(logs))
	}
	if e.LastStats().Files != 1 {
		t.Errorf("LastStats = %+v", e.LastStats())
	}
}
