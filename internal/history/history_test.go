package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/Faultbox/surface-atlas/internal/trace"
)

func openTemp(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "runs", "history.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRecordAndRecent(t *testing.T) {
	db := openTemp(t)
	ctx := context.Background()

	want := Run{
		RecordedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Resolution: 2048,
		Distance:   20000,
		Objects:    300,
		Seed:       1<<63 + 5,
		Elapsed:    1500 * time.Millisecond,
		Summary: trace.Summary{
			Frames:        600,
			Defragments:   2,
			MeanOccupancy: 0.4,
			PeakCapacity:  4096,
		},
	}
	id, err := db.Record(ctx, want)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if id != 1 {
		t.Errorf("expected id 1, got %d", id)
	}

	runs, err := db.Recent(ctx, 0, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	got := runs[0]
	want.ID = id
	if got != want {
		t.Errorf("expected %+v, got %+v", want, got)
	}
}

func TestRecentFiltersAndOrders(t *testing.T) {
	db := openTemp(t)
	ctx := context.Background()

	for _, res := range []int{1024, 2048, 1024, 1024} {
		if _, err := db.Record(ctx, Run{Resolution: res}); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	runs, err := db.Recent(ctx, 1024, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].ID != 4 || runs[1].ID != 3 {
		t.Errorf("expected ids 4 and 3, got %d and %d", runs[0].ID, runs[1].ID)
	}
	for _, r := range runs {
		if r.RecordedAt.IsZero() {
			t.Errorf("run %d: expected recorded time to be set", r.ID)
		}
	}
}

func TestBaseline(t *testing.T) {
	db := openTemp(t)
	ctx := context.Background()

	first, _ := db.Record(ctx, Run{Resolution: 1024, Objects: 10})
	db.Record(ctx, Run{Resolution: 2048})
	latest, _ := db.Record(ctx, Run{Resolution: 1024, Objects: 20})

	base, ok, err := db.Baseline(ctx, 1024, latest)
	if err != nil {
		t.Fatalf("Baseline: %v", err)
	}
	if !ok || base.ID != first || base.Objects != 10 {
		t.Errorf("expected baseline %d, got %+v (found %v)", first, base, ok)
	}

	if _, ok, err := db.Baseline(ctx, 1024, first); err != nil || ok {
		t.Errorf("expected no baseline before the first run, got %v, %v", ok, err)
	}
}

func TestOpenReusesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := db.Record(context.Background(), Run{Resolution: 512}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	db.Close()

	db, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer db.Close()
	runs, err := db.Recent(context.Background(), 0, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(runs) != 1 || runs[0].Resolution != 512 {
		t.Errorf("expected the stored run after reopening, got %+v", runs)
	}
}

func TestOpenEmptyPath(t *testing.T) {
	if _, err := Open(""); err == nil {
		t.Error("expected error for empty path")
	}
}
