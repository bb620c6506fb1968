package db

import (
	"context"
	"testing"
)

func TestSeedIsIdempotent(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()

	seeded, err := d.Seed(ctx)
	if err != nil {
		t.Fatalf("Seed: %v", err)
	}
	if !seeded {
		t.Fatal("first Seed did nothing")
	}

	cat, err := d.GetCatalog(ctx)
	if err != nil {
		t.Fatalf("GetCatalog: %v", err)
	}
	groups := len(cat.Groups)
	categories := len(cat.Categories)
	if groups == 0 || categories == 0 {
		t.Fatalf("seed produced %d groups, %d categories", groups, categories)
	}

	seeded, err = d.Seed(ctx)
	if err != nil {
		t.Fatalf("second Seed: %v", err)
	}
	if seeded {
		t.Error("second Seed reported work on a non-empty catalog")
	}
	cat2, err := d.GetCatalog(ctx)
	if err != nil {
		t.Fatalf("GetCatalog: %v", err)
	}
	if len(cat2.Groups) != groups || len(cat2.Categories) != categories {
		t.Errorf("second Seed changed catalog: %d/%d -> %d/%d",
			groups, categories, len(cat2.Groups), len(cat2.Categories))
	}
}

func TestSeedSkipsUserCatalog(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()

	insertGroup(t, d, "Mine")
	seeded, err := d.Seed(ctx)
	if err != nil {
		t.Fatalf("Seed: %v", err)
	}
	if seeded {
		t.Error("Seed overwrote a user catalog")
	}
}

func TestResetWipesAndReseeds(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()

	gid := insertGroup(t, d, "Mine")
	cid := insertCategory(t, d, "Stuff", gid)
	saveLog(t, d, "2024-06-01", 9, cid)

	if err := d.Reset(ctx); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	stats, err := d.GetStats(ctx)
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if stats.LogCount != 0 {
		t.Errorf("LogCount = %d, want 0", stats.LogCount)
	}
	cat, err := d.GetCatalog(ctx)
	if err != nil {
		t.Fatalf("GetCatalog: %v", err)
	}
	if cat.GroupByID(gid) != nil {
		t.Error("user group survived reset")
	}
	if cat.CategoryByName("Deep Work") == nil {
		t.Error("default catalog missing after reset")
	}
}

func TestGetStats(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()

	gid := insertGroup(t, d, "Work")
	cid := insertCategory(t, d, "Deep Work", gid)
	saveLog(t, d, "2024-06-01", 9, cid)
	saveLog(t, d, "2024-06-01", 10, cid)
	saveLog(t, d, "2024-06-03", 9, 0)

	s, err := d.GetStats(ctx)
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if s.GroupCount != 1 || s.CategoryCount != 1 {
		t.Errorf("catalog counts = %d/%d, want 1/1", s.GroupCount, s.CategoryCount)
	}
	if s.LogCount != 3 || s.DaysLogged != 2 {
		t.Errorf("log counts = %d/%d, want 3/2", s.LogCount, s.DaysLogged)
	}
	if s.FirstDay != "2024-06-01" || s.LastDay != "2024-06-03" {
		t.Errorf("day span = %s..%s", s.FirstDay, s.LastDay)
	}
}

func TestGetStatsEmpty(t *testing.T) {
	d := openTestDB(t)
	s, err := d.GetStats(context.Background())
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if s != (Stats{}) {
		t.Errorf("empty stats = %+v, want zero value", s)
	}
}
