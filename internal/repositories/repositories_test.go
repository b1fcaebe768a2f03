package repositories

import (
	"database/sql"
	"testing"

	"github.com/desertthunder/nodeq/internal/models"
	"github.com/desertthunder/nodeq/internal/playlist"
	"github.com/desertthunder/nodeq/internal/shared"
)

var _ playlist.PreferencesStore = (*PreferencesRepository)(nil)
var _ models.Repository[*models.ResolutionRecord] = (*ResolutionRepository)(nil)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

func newRecord(workflow, id string, choice models.Choice) *models.ResolutionRecord {
	item := models.PendingItem{ID: id, Kind: models.KindFile, DisplayLabel: id + ".txt"}
	if choice == models.ChoiceRename {
		item.RenameName = id + " (1).txt"
	}
	return models.NewResolutionRecord(workflow, item, models.OperationCopy, choice, models.ScopeSingle)
}

func TestNextSequence(t *testing.T) {
	db := setupTestDB(t)

	for want := 1; want <= 3; want++ {
		got, err := NextSequence(db, "resolutions")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != want {
			t.Errorf("expected sequence %d, got %d", want, got)
		}
	}

	if _, err := NextSequence(db, "missing"); err == nil {
		t.Error("expected error for table without sequence")
	}
}

func TestResolutionRepository(t *testing.T) {
	t.Run("Create", func(t *testing.T) {
		repo := NewResolutionRepository(setupTestDB(t))
		rec := newRecord("wf-1", "h1", models.ChoiceRename)

		if err := repo.Create(rec); err != nil {
			t.Fatalf("failed to create record: %v", err)
		}
		if rec.ID() == "" || rec.Sequence() != 1 {
			t.Errorf("expected ID and sequence to be set, got %q #%d", rec.ID(), rec.Sequence())
		}
	})

	t.Run("CreateValidation", func(t *testing.T) {
		repo := NewResolutionRepository(setupTestDB(t))
		rec := newRecord("", "h1", models.ChoiceCancel)

		if err := repo.Create(rec); err == nil {
			t.Fatal("expected validation error for empty workflow")
		}
	})

	t.Run("Get", func(t *testing.T) {
		repo := NewResolutionRepository(setupTestDB(t))
		rec := newRecord("wf-1", "h1", models.ChoiceRename)
		if err := repo.Create(rec); err != nil {
			t.Fatalf("failed to create record: %v", err)
		}

		got, err := repo.Get(rec.ID())
		if err != nil {
			t.Fatalf("failed to get record: %v", err)
		}
		if got.ItemID() != "h1" || got.Name() != "h1.txt" || got.Kind() != models.KindFile {
			t.Errorf("unexpected item fields: %s %s %s", got.ItemID(), got.Name(), got.Kind())
		}
		if got.Operation() != models.OperationCopy || got.Choice() != models.ChoiceRename || got.Scope() != models.ScopeSingle {
			t.Errorf("unexpected decision fields: %s %s %s", got.Operation(), got.Choice(), got.Scope())
		}
		if got.TargetName() != "h1 (1).txt" {
			t.Errorf("expected target name to round trip, got %q", got.TargetName())
		}
		if got.Failed() {
			t.Error("expected record without error message")
		}
	})

	t.Run("GetNotFound", func(t *testing.T) {
		repo := NewResolutionRepository(setupTestDB(t))
		if _, err := repo.Get("nonexistent-id"); err == nil {
			t.Fatal("expected error when getting nonexistent record")
		}
	})

	t.Run("Update", func(t *testing.T) {
		repo := NewResolutionRepository(setupTestDB(t))
		rec := newRecord("wf-1", "h1", models.ChoiceReplaceUpdateMerge)
		if err := repo.Create(rec); err != nil {
			t.Fatalf("failed to create record: %v", err)
		}

		rec.SetErrorMessage("permission denied")
		if err := repo.Update(rec); err != nil {
			t.Fatalf("failed to update record: %v", err)
		}

		got, err := repo.Get(rec.ID())
		if err != nil {
			t.Fatalf("failed to get record: %v", err)
		}
		if !got.Failed() || got.ErrorMessage() != "permission denied" {
			t.Errorf("expected error message to be stored, got %q", got.ErrorMessage())
		}
	})

	t.Run("Delete", func(t *testing.T) {
		repo := NewResolutionRepository(setupTestDB(t))
		rec := newRecord("wf-1", "h1", models.ChoiceCancel)
		if err := repo.Create(rec); err != nil {
			t.Fatalf("failed to create record: %v", err)
		}

		if err := repo.Delete(rec.ID()); err != nil {
			t.Fatalf("failed to delete record: %v", err)
		}
		if _, err := repo.Get(rec.ID()); err == nil {
			t.Error("soft-deleted record should not be returned")
		}
		if err := repo.Delete(rec.ID()); err == nil {
			t.Error("expected error when deleting twice")
		}
	})

	t.Run("List", func(t *testing.T) {
		repo := NewResolutionRepository(setupTestDB(t))

		records := []*models.ResolutionRecord{
			newRecord("wf-1", "a", models.ChoiceRename),
			newRecord("wf-2", "b", models.ChoiceCancel),
			newRecord("wf-1", "c", models.ChoiceReplaceUpdateMerge),
		}
		records[2].SetErrorMessage("over quota")
		for _, rec := range records {
			if err := repo.Create(rec); err != nil {
				t.Fatalf("failed to create record: %v", err)
			}
		}

		tests := []struct {
			name     string
			criteria map[string]any
			want     []string
		}{
			{"All", map[string]any{}, []string{"a", "b", "c"}},
			{"Workflow", map[string]any{"workflow_id": "wf-1"}, []string{"a", "c"}},
			{"Failed", map[string]any{"failed": true}, []string{"c"}},
			{"Succeeded", map[string]any{"failed": false}, []string{"a", "b"}},
			{"Operation", map[string]any{"operation": "move"}, nil},
			{"Limit", map[string]any{"limit": 2}, []string{"a", "b"}},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				got, err := repo.List(tt.criteria)
				if err != nil {
					t.Fatalf("failed to list records: %v", err)
				}
				if len(got) != len(tt.want) {
					t.Fatalf("expected %d records, got %d", len(tt.want), len(got))
				}
				for i, rec := range got {
					if rec.ItemID() != tt.want[i] {
						t.Errorf("record %d: expected %s, got %s", i, tt.want[i], rec.ItemID())
					}
				}
			})
		}
	})

	t.Run("ListByWorkflow", func(t *testing.T) {
		repo := NewResolutionRepository(setupTestDB(t))
		for _, id := range []string{"x", "y"} {
			if err := repo.Create(newRecord("wf-9", id, models.ChoiceCancel)); err != nil {
				t.Fatalf("failed to create record: %v", err)
			}
		}

		got, err := repo.ListByWorkflow("wf-9")
		if err != nil {
			t.Fatalf("failed to list records: %v", err)
		}
		if len(got) != 2 || got[0].Sequence() >= got[1].Sequence() {
			t.Errorf("expected two records in sequence order, got %d", len(got))
		}
	})

	t.Run("Workflows", func(t *testing.T) {
		repo := NewResolutionRepository(setupTestDB(t))
		for _, wf := range []string{"wf-b", "wf-a", "wf-b"} {
			if err := repo.Create(newRecord(wf, shared.GenerateID(), models.ChoiceCancel)); err != nil {
				t.Fatalf("failed to create record: %v", err)
			}
		}

		got, err := repo.Workflows()
		if err != nil {
			t.Fatalf("failed to list workflows: %v", err)
		}
		if len(got) != 2 || got[0] != "wf-b" || got[1] != "wf-a" {
			t.Errorf("expected [wf-b wf-a], got %v", got)
		}
	})
}

func TestPreferencesRepository(t *testing.T) {
	t.Run("LoadDefaults", func(t *testing.T) {
		repo := NewPreferencesRepository(setupTestDB(t))

		prefs, err := repo.Load("default")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if prefs != models.DefaultPreferences("default") {
			t.Errorf("expected defaults, got %+v", prefs)
		}
	})

	t.Run("SaveAndLoad", func(t *testing.T) {
		repo := NewPreferencesRepository(setupTestDB(t))
		prefs := models.Preferences{
			Profile:         "car",
			ShuffleEnabled:  true,
			AudioRepeatMode: models.RepeatAll,
			VideoRepeatMode: models.RepeatOne,
		}

		if err := repo.Save(prefs); err != nil {
			t.Fatalf("failed to save preferences: %v", err)
		}

		prefs.ShuffleEnabled = false
		if err := repo.Save(prefs); err != nil {
			t.Fatalf("failed to overwrite preferences: %v", err)
		}

		got, err := repo.Load("car")
		if err != nil {
			t.Fatalf("failed to load preferences: %v", err)
		}
		if got.ShuffleEnabled || got.BackgroundPlay {
			t.Errorf("expected shuffle and background play off, got %+v", got)
		}
		if got.AudioRepeatMode != models.RepeatAll || got.VideoRepeatMode != models.RepeatOne {
			t.Errorf("unexpected repeat modes %s/%s", got.AudioRepeatMode, got.VideoRepeatMode)
		}
		if got.UpdatedAt.IsZero() {
			t.Error("expected updated_at to be set")
		}

		profiles, err := repo.Profiles()
		if err != nil || len(profiles) != 1 || profiles[0] != "car" {
			t.Errorf("expected one profile, got %v (%v)", profiles, err)
		}
	})

	t.Run("UnknownRepeatOrdinal", func(t *testing.T) {
		db := setupTestDB(t)
		if _, err := db.Exec(`INSERT INTO preferences (profile, audio_repeat_mode, updated_at) VALUES ('x', 9, CURRENT_TIMESTAMP)`); err != nil {
			t.Fatalf("failed to seed row: %v", err)
		}

		got, err := NewPreferencesRepository(db).Load("x")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.AudioRepeatMode != models.RepeatAll {
			t.Errorf("expected unknown ordinal to map to all, got %s", got.AudioRepeatMode)
		}
	})

	t.Run("SaveRequiresProfile", func(t *testing.T) {
		if err := NewPreferencesRepository(setupTestDB(t)).Save(models.Preferences{}); err == nil {
			t.Error("expected validation error")
		}
	})
}
