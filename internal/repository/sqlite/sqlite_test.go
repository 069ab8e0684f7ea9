package sqlite

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"kidneystone/internal/model"
)

// ========================================
// Database Integration Tests
// ========================================

func newTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func seedAnalysis(t *testing.T, repo *AnalysisRepository, id, patient, quality string, count int, ts time.Time) {
	t.Helper()

	a := &model.Analysis{
		ID:           id,
		PatientName:  patient,
		PatientInfo:  `{"name":"` + patient + `"}`,
		ImageDigest:  "sha256:" + id,
		ImageQuality: quality,
		TotalCount:   count,
		Confidence:   80,
		ModelUsed:    "YOLOv8 (Deep Learning)",
		Filename:     id + ".jpg",
		FilePath:     "/scans/" + id + ".jpg",
		FileSize:     1024,
		Timestamp:    ts,
	}
	if err := repo.Insert(a); err != nil {
		t.Fatalf("Failed to insert analysis %s: %v", id, err)
	}
}

func TestDatabase_Connection(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "test.db")
	db, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file should exist")
	}
}

func TestAnalysisRepository_InsertAndGet(t *testing.T) {
	db := newTestDB(t)
	repo := NewAnalysisRepository(db)

	ts := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)
	seedAnalysis(t, repo, "a1", "Jane Doe", "good", 2, ts)

	got, err := repo.GetByID("a1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got == nil {
		t.Fatal("Expected analysis, got nil")
	}
	if got.PatientName != "Jane Doe" || got.TotalCount != 2 || got.ImageQuality != "good" {
		t.Errorf("Unexpected analysis: %+v", got)
	}
	if !got.Timestamp.Equal(ts) {
		t.Errorf("Timestamp = %v, expected %v", got.Timestamp, ts)
	}

	missing, err := repo.GetByID("missing")
	if err != nil {
		t.Fatalf("GetByID(missing) failed: %v", err)
	}
	if missing != nil {
		t.Errorf("Expected nil for missing analysis, got %+v", missing)
	}
}

func TestAnalysisRepository_Filters(t *testing.T) {
	db := newTestDB(t)
	repo := NewAnalysisRepository(db)
	stones := NewStoneRepository(db)

	day := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	seedAnalysis(t, repo, "a1", "Jane Doe", "good", 0, day)
	seedAnalysis(t, repo, "a2", "John Roe", "fair", 1, day.AddDate(0, 0, 1))
	seedAnalysis(t, repo, "a3", "Jane Smith", "good", 3, day.AddDate(0, 0, 2))

	err := stones.InsertBatch([]model.Stone{
		{AnalysisID: "a2", StoneIndex: 1, Location: "Left Kidney - Upper Pole", Confidence: 70},
		{AnalysisID: "a3", StoneIndex: 1, Location: "Right Kidney - Lower Pole", Confidence: 90},
		{AnalysisID: "a3", StoneIndex: 2, Location: "Left Kidney - Upper Pole", Confidence: 60},
	})
	if err != nil {
		t.Fatalf("InsertBatch failed: %v", err)
	}

	tests := []struct {
		name     string
		filter   *model.AnalysisFilter
		expected []string
	}{
		{"no filter", &model.AnalysisFilter{}, []string{"a3", "a2", "a1"}},
		{"nil filter", nil, []string{"a3", "a2", "a1"}},
		{"patient substring", &model.AnalysisFilter{Patient: "Jane"}, []string{"a3", "a1"}},
		{"quality", &model.AnalysisFilter{Quality: "fair"}, []string{"a2"}},
		{"location", &model.AnalysisFilter{Location: "Left Kidney - Upper Pole"}, []string{"a3", "a2"}},
		{"min stones", &model.AnalysisFilter{MinStones: 1}, []string{"a3", "a2"}},
		{"start date", &model.AnalysisFilter{StartDate: day.AddDate(0, 0, 1)}, []string{"a3", "a2"}},
		{"end date", &model.AnalysisFilter{EndDate: day}, []string{"a1"}},
		{"limit", &model.AnalysisFilter{Limit: 1}, []string{"a3"}},
		{"limit offset", &model.AnalysisFilter{Limit: 2, Offset: 1}, []string{"a2", "a1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.GetAll(tt.filter)
			if err != nil {
				t.Fatalf("GetAll failed: %v", err)
			}

			var ids []string
			for _, a := range got {
				ids = append(ids, a.ID)
			}
			if len(ids) != len(tt.expected) {
				t.Fatalf("GetAll ids = %v, expected %v", ids, tt.expected)
			}
			for i := range ids {
				if ids[i] != tt.expected[i] {
					t.Errorf("GetAll ids = %v, expected %v", ids, tt.expected)
					break
				}
			}

			if tt.filter != nil && tt.filter.Limit > 0 {
				return
			}
			count, err := repo.GetTotalCount(tt.filter)
			if err != nil {
				t.Fatalf("GetTotalCount failed: %v", err)
			}
			if count != len(tt.expected) {
				t.Errorf("GetTotalCount = %d, expected %d", count, len(tt.expected))
			}
		})
	}
}

func TestAnalysisRepository_StatsAndSize(t *testing.T) {
	db := newTestDB(t)
	repo := NewAnalysisRepository(db)
	stones := NewStoneRepository(db)

	now := time.Now().UTC()
	seedAnalysis(t, repo, "a1", "A", "good", 1, now)
	seedAnalysis(t, repo, "a2", "B", "poor", 2, now)

	if err := stones.InsertBatch([]model.Stone{
		{AnalysisID: "a1", StoneIndex: 1, Location: "Central Kidney - Mid Section"},
		{AnalysisID: "a2", StoneIndex: 1, Location: "Central Kidney - Mid Section"},
		{AnalysisID: "a2", StoneIndex: 2, Location: "Left Kidney - Lower Pole"},
	}); err != nil {
		t.Fatalf("InsertBatch failed: %v", err)
	}

	size, err := repo.GetStorageSize()
	if err != nil {
		t.Fatalf("GetStorageSize failed: %v", err)
	}
	if size != 2048 {
		t.Errorf("GetStorageSize = %d, expected 2048", size)
	}

	stats, err := repo.GetStats()
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}
	if stats.TotalAnalyses != 2 || stats.TotalStones != 3 {
		t.Errorf("Unexpected totals: %+v", stats)
	}
	if stats.AverageConfidence != 80 {
		t.Errorf("AverageConfidence = %v, expected 80", stats.AverageConfidence)
	}
	if stats.PerQuality["good"] != 1 || stats.PerQuality["poor"] != 1 {
		t.Errorf("Unexpected quality counts: %v", stats.PerQuality)
	}
	if stats.PerLocation["Central Kidney - Mid Section"] != 2 {
		t.Errorf("Unexpected location counts: %v", stats.PerLocation)
	}
}

func TestAnalysisRepository_Delete(t *testing.T) {
	db := newTestDB(t)
	repo := NewAnalysisRepository(db)
	stones := NewStoneRepository(db)

	seedAnalysis(t, repo, "a1", "A", "good", 1, time.Now().UTC())
	seedAnalysis(t, repo, "a2", "B", "good", 1, time.Now().UTC())
	if err := stones.InsertBatch([]model.Stone{
		{AnalysisID: "a1", StoneIndex: 1, Location: "Left Kidney - Upper Pole"},
		{AnalysisID: "a2", StoneIndex: 1, Location: "Right Kidney - Upper Pole"},
	}); err != nil {
		t.Fatalf("InsertBatch failed: %v", err)
	}

	if err := repo.Delete("a1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	remaining, err := stones.GetByAnalysisID("a1")
	if err != nil {
		t.Fatalf("GetByAnalysisID failed: %v", err)
	}
	if len(remaining) != 0 {
		t.Errorf("Expected stones of a1 to be deleted, got %d", len(remaining))
	}
	kept, _ := stones.GetByAnalysisID("a2")
	if len(kept) != 1 {
		t.Errorf("Expected stones of a2 to be kept, got %d", len(kept))
	}

	if err := repo.DeleteAll(); err != nil {
		t.Fatalf("DeleteAll failed: %v", err)
	}
	count, _ := repo.GetTotalCount(nil)
	if count != 0 {
		t.Errorf("Expected empty history, got %d", count)
	}
	locations, _ := stones.GetLocations()
	if len(locations) != 0 {
		t.Errorf("Expected no locations, got %v", locations)
	}
}

func TestStoneRepository_OrderAndLocations(t *testing.T) {
	db := newTestDB(t)
	repo := NewAnalysisRepository(db)
	stones := NewStoneRepository(db)

	seedAnalysis(t, repo, "a1", "A", "good", 3, time.Now().UTC())
	if err := stones.InsertBatch([]model.Stone{
		{AnalysisID: "a1", StoneIndex: 1, Location: "Right Kidney - Mid Section", Confidence: 40, SizeMM: 2.5},
		{AnalysisID: "a1", StoneIndex: 2, Location: "Left Kidney - Upper Pole", Confidence: 90, SizeMM: 7.1},
		{AnalysisID: "a1", StoneIndex: 3, Location: "Left Kidney - Upper Pole", Confidence: 40, SizeMM: 3.0},
	}); err != nil {
		t.Fatalf("InsertBatch failed: %v", err)
	}

	got, err := stones.GetByAnalysisID("a1")
	if err != nil {
		t.Fatalf("GetByAnalysisID failed: %v", err)
	}
	order := []int{2, 1, 3}
	for i, s := range got {
		if s.StoneIndex != order[i] {
			t.Errorf("stone %d index = %d, expected %d", i, s.StoneIndex, order[i])
		}
	}

	locations, err := stones.GetLocations()
	if err != nil {
		t.Fatalf("GetLocations failed: %v", err)
	}
	if len(locations) != 2 || locations[0] != "Left Kidney - Upper Pole" {
		t.Errorf("Unexpected locations: %v", locations)
	}
}

func TestStoneRepository_RequiresAnalysis(t *testing.T) {
	db := newTestDB(t)
	stones := NewStoneRepository(db)

	err := stones.InsertBatch([]model.Stone{{AnalysisID: "ghost", StoneIndex: 1, Location: "x"}})
	if err == nil {
		t.Error("Expected foreign key violation for unknown analysis")
	}
}
