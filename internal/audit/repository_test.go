package audit

import (
	"context"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-hassdriver/internal/infrastructure/database"
	_ "github.com/nerrad567/gray-logic-hassdriver/migrations"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	db, err := database.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory() error = %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // test cleanup
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return NewSQLiteRepository(db.DB)
}

func TestRecordAndList(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	entries := []*Entry{
		{CommandID: "c1", Device: "home/hass", Point: "kitchen_light", Action: "set", Value: 1.0, Source: "mqtt", Status: StatusSuccess, CreatedAt: base},
		{CommandID: "c2", Device: "home/hass", Point: "outside_temp", Action: "set", Value: 3.0, Source: "api:ops", Status: StatusFailed, ErrorCode: "READ_ONLY", Error: "read only", CreatedAt: base.Add(time.Minute)},
		{Device: "home/hass", Point: "_all", Action: "revert", Status: StatusSuccess, CreatedAt: base.Add(2 * time.Minute)},
	}
	for _, e := range entries {
		if err := repo.Record(ctx, e); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
		if e.ID == "" {
			t.Error("Record() should assign an ID")
		}
	}

	all, err := repo.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if all.Total != 3 || len(all.Entries) != 3 || all.Limit != defaultLimit {
		t.Fatalf("List() = %+v", all)
	}
	if all.Entries[0].Point != "_all" {
		t.Errorf("newest entry = %s, want _all", all.Entries[0].Point)
	}
	if all.Entries[0].Value != nil {
		t.Errorf("revert value = %v, want nil", all.Entries[0].Value)
	}

	failed, err := repo.List(ctx, Filter{Status: StatusFailed})
	if err != nil {
		t.Fatal(err)
	}
	if failed.Total != 1 {
		t.Fatalf("failed total = %d", failed.Total)
	}
	got := failed.Entries[0]
	if got.CommandID != "c2" || got.ErrorCode != "READ_ONLY" || got.Source != "api:ops" || got.Value != 3.0 {
		t.Errorf("failed entry = %+v", got)
	}
	if !got.CreatedAt.Equal(base.Add(time.Minute)) {
		t.Errorf("CreatedAt = %v", got.CreatedAt)
	}

	page, err := repo.List(ctx, Filter{Device: "home/hass", Limit: 1, Offset: 1})
	if err != nil {
		t.Fatal(err)
	}
	if page.Total != 3 || len(page.Entries) != 1 || page.Entries[0].CommandID != "c2" {
		t.Errorf("page = %+v", page)
	}
}

func TestList_ClampsLimit(t *testing.T) {
	repo := newTestRepo(t)
	res, err := repo.List(context.Background(), Filter{Limit: 1000, Offset: -5})
	if err != nil {
		t.Fatal(err)
	}
	if res.Limit != maxLimit || res.Offset != 0 || res.Entries == nil {
		t.Errorf("List() = %+v", res)
	}
}
