package main

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/nodeq/internal/models"
	"github.com/desertthunder/nodeq/internal/repositories"
	"github.com/desertthunder/nodeq/internal/services"
	"github.com/desertthunder/nodeq/internal/shared"
	tu "github.com/desertthunder/nodeq/internal/testing"
)

const copyManifest = `operation = "copy"
parent = "h-dest"
existing = ["report.pdf", "notes.txt", "photos"]

[[collision]]
name = "report.pdf"
handle = "h-report"
node = "h-src-report"
choice = "rename"

[[collision]]
name = "notes.txt"
handle = "h-notes"
node = "h-src-notes"

[[collision]]
name = "photos"
handle = "h-photos"
node = "h-src-photos"
folder = true
`

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func writeManifest(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "manifest.toml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}
	return path
}

// runApp runs args against a fresh command tree built from r.
func runApp(t *testing.T, r *Runner, args ...string) error {
	t.Helper()

	app := &cli.Command{Name: "nodeq", Commands: r.register()}
	return app.Run(context.Background(), append([]string{"nodeq"}, args...))
}

func newTestRunner(t *testing.T, gw services.Gateway) (*Runner, *bytes.Buffer, *sql.DB) {
	t.Helper()

	output := &bytes.Buffer{}
	db := setupTestDB(t)
	r := NewRunner(RunnerOpts{
		Gateway: gw,
		DB:      db,
		Logger:  shared.NopLogger(),
		Output:  output,
	})
	return r, output, db
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			gw := &tu.MockGateway{}
			api := &services.APIService{}

			runner := NewRunner(RunnerOpts{
				Config:     config,
				ConfigPath: "test.toml",
				Gateway:    gw,
				API:        api,
				Logger:     logger,
				Output:     output,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.configPath != "test.toml" {
				t.Errorf("expected configPath 'test.toml', got %q", runner.configPath)
			}
			if runner.gateway != gw {
				t.Error("expected gateway to be set")
			}
			if runner.api != api {
				t.Error("expected api to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
		})

		t.Run("with nil options uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.config == nil {
				t.Error("expected default config to be set")
			}
			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
			if runner.output != os.Stdout {
				t.Error("expected output to default to stdout")
			}
			if runner.db != nil {
				t.Error("expected database to be opened lazily")
			}
		})

		t.Run("SetLogger replaces logger", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})
			logger := shared.NopLogger()
			runner.SetLogger(logger)
			if runner.logger != logger {
				t.Error("expected logger to be replaced")
			}
		})
	})

	t.Run("database", func(t *testing.T) {
		t.Run("opens from config on first use", func(t *testing.T) {
			config := shared.DefaultConfig()
			config.Database.Path = filepath.Join(t.TempDir(), "nodeq.db")
			runner := NewRunner(RunnerOpts{Config: config, Logger: shared.NopLogger()})
			defer runner.Close()

			db, err := runner.database()
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			again, err := runner.database()
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if db != again {
				t.Error("expected the same connection on second use")
			}
			tu.AssertFileExists(t, config.Database.Path)
		})

		t.Run("Close without database", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})
			if err := runner.Close(); err != nil {
				t.Errorf("expected no error, got %v", err)
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			data := map[string]string{"key": "value"}
			if err := runner.writeJSON(data, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			expected := "{\n  \"key\": \"value\"\n}\n"
			if output.String() != expected {
				t.Errorf("expected %q, got %q", expected, output.String())
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]int{"n": 1}, false); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if output.String() != "{\"n\":1}\n" {
				t.Errorf("unexpected output %q", output.String())
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			err := runner.writeJSON(make(chan int), false)
			if err == nil || !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			limitedWriter := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &limitedWriter})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlain("Hello %s %d\n", "world", 42); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if output.String() != "Hello world 42\n" {
				t.Errorf("unexpected output %q", output.String())
			}
		})

		t.Run("writePlainln pads with newlines", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			runner.writePlainln("Next steps:")
			if output.String() != "\nNext steps:\n" {
				t.Errorf("unexpected output %q", output.String())
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writePlain("test")
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		names := map[string]bool{}
		for _, c := range commands {
			names[c.Name] = true
		}
		for _, want := range []string{"setup", "resolve", "playlist", "prefs", "api"} {
			if !names[want] {
				t.Errorf("expected command %q to be registered", want)
			}
		}
		if len(commands) != 5 {
			t.Errorf("expected 5 commands, got %d", len(commands))
		}
	})
}

func TestResolveCommands(t *testing.T) {
	t.Run("run resolves and records", func(t *testing.T) {
		gw := &tu.MockGateway{}
		runner, output, db := newTestRunner(t, gw)
		path := writeManifest(t, copyManifest)

		err := runApp(t, runner, "resolve", "run", "--choice", "replace", "--workflow", "wf-1", path)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		singles := gw.CallsTo("single")
		if len(singles) != 3 {
			t.Fatalf("expected 3 single calls, got %d", len(singles))
		}
		if singles[0].Choice != models.ChoiceRename || singles[0].Items[0].RenameName != "report (1).pdf" {
			t.Errorf("expected explicit rename to report (1).pdf, got %v %q", singles[0].Choice, singles[0].Items[0].RenameName)
		}
		if singles[1].Choice != models.ChoiceReplaceUpdateMerge {
			t.Errorf("expected default replace, got %v", singles[1].Choice)
		}

		records, err := repositories.NewResolutionRepository(db).ListByWorkflow("wf-1")
		if err != nil {
			t.Fatalf("failed to list records: %v", err)
		}
		if len(records) != 3 {
			t.Errorf("expected 3 records, got %d", len(records))
		}
		if !strings.Contains(output.String(), "Resolution Complete") {
			t.Errorf("expected summary header, got:\n%s", output.String())
		}
	})

	t.Run("run apply-all batches remaining items", func(t *testing.T) {
		manifest := strings.ReplaceAll(copyManifest, "choice = \"rename\"\n", "")
		gw := &tu.MockGateway{}
		runner, _, _ := newTestRunner(t, gw)

		err := runApp(t, runner, "resolve", "run", "--choice", "rename", "--apply-all", "--no-record", writeManifest(t, manifest))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		batches := gw.CallsTo("batch")
		if len(batches) != 2 {
			t.Fatalf("expected one batch per kind, got %d", len(batches))
		}
		if len(batches[0].Items) != 2 {
			t.Errorf("expected the file batch to hold 2 items, got %d", len(batches[0].Items))
		}
	})

	t.Run("run json output", func(t *testing.T) {
		gw := &tu.MockGateway{}
		runner, output, _ := newTestRunner(t, gw)

		err := runApp(t, runner, "resolve", "run", "--choice", "cancel", "--json", "--no-record", writeManifest(t, copyManifest))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		var out runJSON
		if err := json.Unmarshal(output.Bytes(), &out); err != nil {
			t.Fatalf("expected JSON output, got %v:\n%s", err, output.String())
		}
		if out.Files != 2 || out.Folders != 1 {
			t.Errorf("expected 2 files and 1 folder, got %d/%d", out.Files, out.Folders)
		}
		if len(out.Resolved) != 3 {
			t.Errorf("expected 3 resolved items, got %d", len(out.Resolved))
		}
		if out.Count != 1 {
			t.Errorf("expected only the rename to be dispatched, got %d", out.Count)
		}
	})

	t.Run("run hard error stops", func(t *testing.T) {
		gw := &tu.MockGateway{
			SingleFunc: func(item models.PendingItem, choice models.Choice) error {
				return shared.ErrOverQuota
			},
		}
		runner, output, _ := newTestRunner(t, gw)

		err := runApp(t, runner, "resolve", "run", "--choice", "replace", "--no-record", writeManifest(t, copyManifest))
		if !errors.Is(err, shared.ErrOverQuota) {
			t.Fatalf("expected ErrOverQuota, got %v", err)
		}
		if len(gw.CallsTo("single")) != 1 {
			t.Errorf("expected the run to stop after the first call, got %d", len(gw.CallsTo("single")))
		}
		if !strings.Contains(output.String(), "Errors:") {
			t.Errorf("expected errors section, got:\n%s", output.String())
		}
	})

	t.Run("run deferred needs no gateway", func(t *testing.T) {
		runner, _, db := newTestRunner(t, nil)

		err := runApp(t, runner, "resolve", "run", "--defer", "--choice", "replace", "--workflow", "wf-defer", writeManifest(t, copyManifest))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		records, _ := repositories.NewResolutionRepository(db).ListByWorkflow("wf-defer")
		if len(records) != 3 {
			t.Errorf("expected 3 recorded decisions, got %d", len(records))
		}
	})

	t.Run("run errors", func(t *testing.T) {
		tests := []struct {
			name    string
			gateway services.Gateway
			args    func(path string) []string
			wantErr error
		}{
			{
				name:    "missing gateway",
				args:    func(path string) []string { return []string{"--choice", "rename", path} },
				wantErr: shared.ErrServiceUnavailable,
			},
			{
				name:    "invalid choice",
				gateway: &tu.MockGateway{},
				args:    func(path string) []string { return []string{"--choice", "maybe", path} },
				wantErr: shared.ErrInvalidFlag,
			},
			{
				name:    "invalid operation",
				gateway: &tu.MockGateway{},
				args:    func(path string) []string { return []string{"--op", "delete", path} },
				wantErr: shared.ErrInvalidFlag,
			},
			{
				name:    "missing manifest",
				gateway: &tu.MockGateway{},
				args: func(path string) []string {
					return []string{filepath.Join(filepath.Dir(path), "missing.toml")}
				},
				wantErr: shared.ErrInvalidInput,
			},
			{
				name:    "missing default choice",
				gateway: &tu.MockGateway{},
				args:    func(path string) []string { return []string{"--no-record", path} },
				wantErr: shared.ErrMissingArgument,
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				runner, _, _ := newTestRunner(t, tt.gateway)
				path := writeManifest(t, copyManifest)

				err := runApp(t, runner, append([]string{"resolve", "run"}, tt.args(path)...)...)
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("expected %v, got %v", tt.wantErr, err)
				}
			})
		}
	})

	t.Run("history", func(t *testing.T) {
		gw := &tu.MockGateway{}
		runner, output, _ := newTestRunner(t, gw)
		path := writeManifest(t, copyManifest)

		for _, wf := range []string{"wf-a", "wf-b"} {
			if err := runApp(t, runner, "resolve", "run", "--choice", "replace", "--workflow", wf, path); err != nil {
				t.Fatalf("run %s failed: %v", wf, err)
			}
		}

		t.Run("markdown to stdout", func(t *testing.T) {
			output.Reset()
			if err := runApp(t, runner, "resolve", "history", "--workflow", "wf-a"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if !strings.Contains(output.String(), "report.pdf") {
				t.Errorf("expected records in output, got:\n%s", output.String())
			}
		})

		t.Run("json to stdout", func(t *testing.T) {
			output.Reset()
			if err := runApp(t, runner, "resolve", "history", "--workflow", "wf-b", "--format", "json"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			var records []map[string]any
			if err := json.Unmarshal(output.Bytes(), &records); err != nil {
				t.Fatalf("expected JSON array, got %v", err)
			}
			if len(records) != 3 {
				t.Errorf("expected 3 records, got %d", len(records))
			}
		})

		t.Run("single workflow to file", func(t *testing.T) {
			file := filepath.Join(t.TempDir(), "wf-a.csv")
			if err := runApp(t, runner, "resolve", "history", "--workflow", "wf-a", "--format", "csv", "--output", file); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if !strings.Contains(tu.MustReadFile(t, file), "report.pdf") {
				t.Error("expected csv to contain records")
			}
		})

		t.Run("all workflows to directory", func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), "history")
			if err := runApp(t, runner, "resolve", "history", "--format", "markdown", "--output", dir); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			tu.AssertFileExists(t, filepath.Join(dir, "wf-a.md"))
			tu.AssertFileExists(t, filepath.Join(dir, "wf-b.md"))
			tu.AssertFileExists(t, filepath.Join(dir, "export_manifest.json"))
		})
	})

	t.Run("history empty", func(t *testing.T) {
		runner, output, _ := newTestRunner(t, nil)
		if err := runApp(t, runner, "resolve", "history"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(output.String(), "No resolutions recorded") {
			t.Errorf("unexpected output %q", output.String())
		}
	})
}

func TestPlaylistCommands(t *testing.T) {
	media := []models.RawItem{
		{ID: "a", Name: "alpha.mp3", IsFile: true},
		{ID: "b", Name: "bravo.mp3", IsFile: true},
		{ID: "dir", Name: "covers", IsFile: false},
		{ID: "c", Name: "charlie.mp4", IsFile: true},
	}
	newGateway := func() *tu.MockGateway {
		return &tu.MockGateway{
			FetchFunc: func(c models.Criteria) ([]models.RawItem, error) { return media, nil },
		}
	}

	t.Run("show prints sections", func(t *testing.T) {
		gw := newGateway()
		runner, output, _ := newTestRunner(t, gw)

		if err := runApp(t, runner, "playlist", "show", "--parent", "h-music", "--playing", "b"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		text := output.String()
		if !strings.Contains(text, "▶ 2. bravo.mp3") {
			t.Errorf("expected bravo to be playing, got:\n%s", text)
		}
		if strings.Contains(text, "covers") {
			t.Error("expected folders to be skipped")
		}
		if calls := gw.CallsTo("fetch"); len(calls) != 1 || calls[0].Criteria.Parent != "h-music" {
			t.Errorf("expected one fetch for h-music, got %+v", calls)
		}
	})

	t.Run("show json with search", func(t *testing.T) {
		runner, output, _ := newTestRunner(t, newGateway())

		if err := runApp(t, runner, "playlist", "show", "--parent", "h-music", "--search", "CHAR", "--json"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		var out viewJSON
		if err := json.Unmarshal(output.Bytes(), &out); err != nil {
			t.Fatalf("expected JSON, got %v", err)
		}
		if !out.Filtered || len(out.Entries) != 1 || out.Entries[0].ID != "c" {
			t.Errorf("expected one filtered entry c, got %+v", out)
		}
	})

	t.Run("show shuffle saves preference", func(t *testing.T) {
		runner, output, db := newTestRunner(t, newGateway())

		if err := runApp(t, runner, "playlist", "show", "--parent", "h-music", "--shuffle", "--seed", "7", "--json"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		var out viewJSON
		if err := json.Unmarshal(output.Bytes(), &out); err != nil {
			t.Fatalf("expected JSON, got %v", err)
		}
		if !out.Shuffled || len(out.Entries) != 3 {
			t.Errorf("expected 3 shuffled entries, got %+v", out)
		}

		prefs, err := repositories.NewPreferencesRepository(db).Load(defaultProfile)
		if err != nil {
			t.Fatalf("failed to load preferences: %v", err)
		}
		if !prefs.ShuffleEnabled {
			t.Error("expected shuffle preference to be saved")
		}
	})

	t.Run("show empty playlist", func(t *testing.T) {
		gw := &tu.MockGateway{
			FetchFunc: func(c models.Criteria) ([]models.RawItem, error) {
				return []models.RawItem{{ID: "dir", Name: "covers"}}, nil
			},
		}
		runner, _, _ := newTestRunner(t, gw)

		err := runApp(t, runner, "playlist", "show", "--parent", "h-music")
		if !errors.Is(err, shared.ErrEmptyPlaylist) {
			t.Errorf("expected ErrEmptyPlaylist, got %v", err)
		}
	})

	t.Run("show without gateway", func(t *testing.T) {
		runner, _, _ := newTestRunner(t, nil)

		err := runApp(t, runner, "playlist", "show", "--parent", "h-music")
		if !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})
}

func TestPrefsCommands(t *testing.T) {
	t.Run("show defaults", func(t *testing.T) {
		runner, output, _ := newTestRunner(t, nil)

		if err := runApp(t, runner, "prefs", "show", "--json"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		var out prefsJSON
		if err := json.Unmarshal(output.Bytes(), &out); err != nil {
			t.Fatalf("expected JSON, got %v", err)
		}
		if out.Profile != defaultProfile || out.ShuffleEnabled || !out.BackgroundPlay || out.AudioRepeatMode != "none" {
			t.Errorf("unexpected defaults %+v", out)
		}
	})

	t.Run("set persists", func(t *testing.T) {
		runner, output, db := newTestRunner(t, nil)

		err := runApp(t, runner, "prefs", "set", "--profile", "car", "--background=false", "--video-repeat", "one")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(output.String(), "Video repeat:    one") {
			t.Errorf("unexpected output:\n%s", output.String())
		}

		prefs, err := repositories.NewPreferencesRepository(db).Load("car")
		if err != nil {
			t.Fatalf("failed to load preferences: %v", err)
		}
		if prefs.BackgroundPlay || prefs.VideoRepeatMode != models.RepeatOne || prefs.AudioRepeatMode != models.RepeatNone {
			t.Errorf("unexpected saved preferences %+v", prefs)
		}
	})

	t.Run("set errors", func(t *testing.T) {
		tests := []struct {
			name    string
			args    []string
			wantErr error
		}{
			{name: "nothing to set", args: []string{"prefs", "set"}, wantErr: shared.ErrMissingArgument},
			{name: "bad repeat mode", args: []string{"prefs", "set", "--audio-repeat", "twice"}, wantErr: shared.ErrInvalidFlag},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				runner, _, _ := newTestRunner(t, nil)
				if err := runApp(t, runner, tt.args...); !errors.Is(err, tt.wantErr) {
					t.Errorf("expected %v, got %v", tt.wantErr, err)
				}
			})
		}
	})
}

func TestAPICommands(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"status":"ok"}`))
		case "/text":
			w.Write([]byte("plain body"))
		case "/api/nodes/copy":
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"handle":"h-new"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte("not found"))
		}
	}))
	defer server.Close()

	newRunner := func() (*Runner, *bytes.Buffer) {
		output := &bytes.Buffer{}
		return NewRunner(RunnerOpts{
			API:    services.NewAPIService(server.URL, server.Client()),
			Logger: shared.NopLogger(),
			Output: output,
		}), output
	}

	t.Run("get json", func(t *testing.T) {
		runner, output := newRunner()
		if err := runApp(t, runner, "api", "get", "/health"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if output.String() != "{\"status\":\"ok\"}\n" {
			t.Errorf("unexpected output %q", output.String())
		}
	})

	t.Run("get plain body", func(t *testing.T) {
		runner, output := newRunner()
		if err := runApp(t, runner, "api", "get", "/text"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if output.String() != "plain body\n" {
			t.Errorf("unexpected output %q", output.String())
		}
	})

	t.Run("get status error", func(t *testing.T) {
		runner, _ := newRunner()
		err := runApp(t, runner, "api", "get", "/missing")
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})

	t.Run("post", func(t *testing.T) {
		runner, output := newRunner()
		err := runApp(t, runner, "api", "post", "--data", `{"node":"h1","parent":"h2"}`, "/api/nodes/copy")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(output.String(), "h-new") {
			t.Errorf("unexpected output %q", output.String())
		}
	})

	t.Run("post invalid json", func(t *testing.T) {
		runner, _ := newRunner()
		err := runApp(t, runner, "api", "post", "--data", "{nope", "/api/nodes/copy")
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("without client", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{Logger: shared.NopLogger(), Output: &bytes.Buffer{}})
		err := runApp(t, runner, "api", "get", "/health")
		if !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})
}

func TestSetupCommands(t *testing.T) {
	t.Run("config writes template", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Logger: shared.NopLogger(), Output: output})
		path := filepath.Join(t.TempDir(), "config.toml")

		if err := runApp(t, runner, "setup", "config", "--config", path); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		tu.AssertFileExists(t, path)
		if _, err := shared.LoadConfig(path); err != nil {
			t.Errorf("expected written config to load, got %v", err)
		}
	})

	t.Run("database creates file", func(t *testing.T) {
		dir := t.TempDir()
		configPath := filepath.Join(dir, "config.toml")
		dbPath := filepath.Join(dir, "nodeq.db")

		config := shared.DefaultConfig()
		config.Database.Path = dbPath
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Config: config, Logger: shared.NopLogger(), Output: output})

		if err := runApp(t, runner, "setup", "database", "--config", configPath); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		tu.AssertFileExists(t, configPath)
		tu.AssertFileExists(t, dbPath)
		if !strings.Contains(output.String(), "Database ready") {
			t.Errorf("unexpected output %q", output.String())
		}
	})
}
