package repositories

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/yanani99/reso/internal/models"
	"github.com/yanani99/reso/internal/shared"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	return db
}

func TestJobRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("save and get round trip", func(t *testing.T) {
		repo := NewJobRepository(newTestDB(t))

		clip := models.Clip{
			ID:        "clip-1",
			Title:     "Night Drive",
			Status:    models.StatusStreaming,
			ModelName: "chirp-v3-5",
			Tags:      "synthwave",
			AudioURL:  "https://cdn.example.com/clip-1.mp3",
			Duration:  "187.2",
		}
		if err := repo.SaveClips(ctx, []models.Clip{clip}); err != nil {
			t.Fatalf("SaveClips failed: %v", err)
		}

		got, err := repo.Get(ctx, "clip-1")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if got.Title != "Night Drive" || got.Status != models.StatusStreaming || got.Tags != "synthwave" {
			t.Errorf("stored clip differs: %+v", got)
		}
	})

	t.Run("saving again advances the stored state", func(t *testing.T) {
		repo := NewJobRepository(newTestDB(t))

		clip := models.Clip{ID: "clip-1", Status: models.StatusQueued}
		if err := repo.SaveClips(ctx, []models.Clip{clip}); err != nil {
			t.Fatalf("first save failed: %v", err)
		}

		clip.Status = models.StatusComplete
		clip.AudioURL = "https://cdn.example.com/clip-1.mp3"
		if err := repo.SaveClips(ctx, []models.Clip{clip}); err != nil {
			t.Fatalf("second save failed: %v", err)
		}

		got, err := repo.Get(ctx, "clip-1")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if got.Status != models.StatusComplete || got.AudioURL == "" {
			t.Errorf("state did not advance: %+v", got)
		}

		clips, err := repo.List(ctx, 0)
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(clips) != 1 {
			t.Errorf("upsert produced %d rows, want 1", len(clips))
		}
	})

	t.Run("get unknown clip", func(t *testing.T) {
		repo := NewJobRepository(newTestDB(t))

		_, err := repo.Get(ctx, "missing")
		if !errors.Is(err, shared.ErrClipNotFound) {
			t.Errorf("got %v, want ErrClipNotFound", err)
		}
	})

	t.Run("clip without an id is rejected", func(t *testing.T) {
		repo := NewJobRepository(newTestDB(t))

		err := repo.SaveClips(ctx, []models.Clip{{Status: models.StatusQueued}})
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("got %v, want ErrInvalidInput", err)
		}
	})

	t.Run("list respects the limit", func(t *testing.T) {
		repo := NewJobRepository(newTestDB(t))

		batch := []models.Clip{
			{ID: "a", Status: models.StatusComplete},
			{ID: "b", Status: models.StatusComplete},
			{ID: "c", Status: models.StatusError},
		}
		if err := repo.SaveClips(ctx, batch); err != nil {
			t.Fatalf("SaveClips failed: %v", err)
		}

		clips, err := repo.List(ctx, 2)
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(clips) != 2 {
			t.Errorf("got %d clips, want 2", len(clips))
		}
	})

	t.Run("list by status", func(t *testing.T) {
		repo := NewJobRepository(newTestDB(t))

		batch := []models.Clip{
			{ID: "a", Status: models.StatusComplete},
			{ID: "b", Status: models.StatusError},
		}
		if err := repo.SaveClips(ctx, batch); err != nil {
			t.Fatalf("SaveClips failed: %v", err)
		}

		failed, err := repo.ListByStatus(ctx, models.StatusError)
		if err != nil {
			t.Fatalf("ListByStatus failed: %v", err)
		}
		if len(failed) != 1 || failed[0].ID != "b" {
			t.Errorf("unexpected clips: %+v", failed)
		}
	})

	t.Run("soft delete hides the clip", func(t *testing.T) {
		repo := NewJobRepository(newTestDB(t))

		if err := repo.SaveClips(ctx, []models.Clip{{ID: "a", Status: models.StatusComplete}}); err != nil {
			t.Fatalf("SaveClips failed: %v", err)
		}
		if err := repo.Delete(ctx, "a"); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}

		if _, err := repo.Get(ctx, "a"); !errors.Is(err, shared.ErrClipNotFound) {
			t.Errorf("deleted clip still visible: %v", err)
		}
		if err := repo.Delete(ctx, "a"); !errors.Is(err, shared.ErrClipNotFound) {
			t.Errorf("second delete got %v, want ErrClipNotFound", err)
		}
	})

	t.Run("saving a deleted clip revives it", func(t *testing.T) {
		repo := NewJobRepository(newTestDB(t))

		if err := repo.SaveClips(ctx, []models.Clip{{ID: "a", Status: models.StatusQueued}}); err != nil {
			t.Fatalf("SaveClips failed: %v", err)
		}
		if err := repo.Delete(ctx, "a"); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if err := repo.SaveClips(ctx, []models.Clip{{ID: "a", Status: models.StatusComplete}}); err != nil {
			t.Fatalf("revive save failed: %v", err)
		}

		got, err := repo.Get(ctx, "a")
		if err != nil {
			t.Fatalf("Get after revive failed: %v", err)
		}
		if got.Status != models.StatusComplete {
			t.Errorf("revived clip status %q, want complete", got.Status)
		}
	})

	t.Run("empty batch is a no-op", func(t *testing.T) {
		repo := NewJobRepository(newTestDB(t))
		if err := repo.SaveClips(ctx, nil); err != nil {
			t.Errorf("SaveClips(nil) failed: %v", err)
		}
	})
}

func TestMigrations(t *testing.T) {
	t.Run("running twice is idempotent", func(t *testing.T) {
		db, err := shared.NewDatabase(":memory:")
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		if err := shared.RunMigrations(db); err != nil {
			t.Fatalf("first run failed: %v", err)
		}
		if err := shared.RunMigrations(db); err != nil {
			t.Fatalf("second run failed: %v", err)
		}
	})

	t.Run("rollback drops the schema", func(t *testing.T) {
		db, err := shared.NewDatabase(":memory:")
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		if err := shared.RunMigrations(db); err != nil {
			t.Fatalf("migrations failed: %v", err)
		}
		if err := shared.RollbackMigration(db); err != nil {
			t.Fatalf("rollback failed: %v", err)
		}

		var name string
		err = db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='clips'").Scan(&name)
		if err != sql.ErrNoRows {
			t.Errorf("clips table still present after rollback: %v", err)
		}
	})
}
