package storage

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"onion-detect/internal/models"
)

// Integration tests are opt-in: set DATABASE_URL_TEST to a scratch Postgres
// database. Tables are truncated.
func setupTestStorage(t *testing.T) *Storage {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL_TEST")
	if dsn == "" {
		t.Skip("integration tests are disabled; set DATABASE_URL_TEST to enable")
	}
	ctx := context.Background()
	s, err := NewStorage(ctx, dsn)
	if err != nil {
		t.Fatalf("new storage: %v", err)
	}
	t.Cleanup(s.Close)
	if _, err := s.pool.Exec(ctx, `TRUNCATE detection_history, app_stats RESTART IDENTITY`); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	return s
}

func TestSaveAndListDetections(t *testing.T) {
	s := setupTestStorage(t)
	ctx := context.Background()

	before := time.Now().Add(-time.Second)
	rec := &models.HistoryRecord{
		Disease:        "Antraknosa",
		Confidence:     70.5,
		ImageHash:      "d41d8cd98f00b204e9800998ecf8427e",
		UserAgent:      "curl/8",
		IPAddress:      "127.0.0.1",
		ProcessingTime: 0.12,
	}
	if err := s.SaveDetection(ctx, rec); err != nil {
		t.Fatalf("save: %v", err)
	}
	if rec.ID == 0 {
		t.Fatalf("id not filled in")
	}
	if rec.Timestamp.Before(before) {
		t.Fatalf("default timestamp %v too old", rec.Timestamp)
	}

	list, err := s.ListDetections(ctx, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].ID != rec.ID || list[0].Disease != "Antraknosa" || list[0].ImageHash != rec.ImageHash {
		t.Fatalf("unexpected list: %+v", list)
	}
}

func TestConcurrentSaves(t *testing.T) {
	s := setupTestStorage(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.SaveDetection(ctx, &models.HistoryRecord{Disease: "Sehat", Confidence: 90, Timestamp: time.Now()}); err != nil {
				t.Errorf("save: %v", err)
			}
		}()
	}
	wg.Wait()

	sum, err := s.Summary(ctx)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if sum.TotalDetections != 20 || sum.DiseaseCounts["Sehat"] != 20 {
		t.Fatalf("unexpected summary: %+v", sum)
	}
}

func TestRefreshDailyStats(t *testing.T) {
	s := setupTestStorage(t)
	ctx := context.Background()

	day := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	for _, r := range []models.HistoryRecord{
		{Disease: "Antraknosa", Confidence: 70, IPAddress: "a", Timestamp: day},
		{Disease: "Antraknosa", Confidence: 80, IPAddress: "b", Timestamp: day.Add(time.Hour)},
		{Disease: "Sehat", Confidence: 90, IPAddress: "a", Timestamp: day.Add(2 * time.Hour)},
		{Disease: "Sehat", Confidence: 90, IPAddress: "c", Timestamp: day.Add(48 * time.Hour)},
	} {
		r := r
		if err := s.SaveDetection(ctx, &r); err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	if err := s.RefreshDailyStats(ctx, day); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	// Refreshing twice updates the same row.
	if err := s.RefreshDailyStats(ctx, day); err != nil {
		t.Fatalf("refresh again: %v", err)
	}

	stats, err := s.ListDailyStats(ctx, 30)
	if err != nil {
		t.Fatalf("list stats: %v", err)
	}
	if len(stats) != 1 {
		t.Fatalf("expected one stats row, got %+v", stats)
	}
	got := stats[0]
	if got.TotalDetections != 3 || got.UniqueUsers != 2 || got.MostCommonDisease != "Antraknosa" {
		t.Fatalf("unexpected stats: %+v", got)
	}
	if got.AvgConfidence < 79.9 || got.AvgConfidence > 80.1 {
		t.Fatalf("avg confidence %v", got.AvgConfidence)
	}
}
