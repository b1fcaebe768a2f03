package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/desertthunder/nodeq/internal/models"
	"github.com/desertthunder/nodeq/internal/shared"
)

type recordedRequest struct {
	Path string
	Body NodeRequest
}

// proxy is a fake storage API that records node requests and fails for configured node handles.
type proxy struct {
	mu       sync.Mutex
	requests []recordedRequest
	failures map[string]ErrorResponse
}

func (p *proxy) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			if r.URL.Path != "/api/nodes" {
				t.Errorf("unexpected GET %s", r.URL.Path)
			}
			if r.URL.Query().Get("parent") == "missing" {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			json.NewEncoder(w).Encode([]models.RawItem{
				{ID: "n1", Name: "one.mp3", IsFile: true, Size: 10},
				{ID: "n2", Name: "music", IsFile: false},
			})
			return
		}

		var body NodeRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("invalid request body: %v", err)
		}

		p.mu.Lock()
		p.requests = append(p.requests, recordedRequest{Path: r.URL.Path, Body: body})
		failure, fail := p.failures[body.Node]
		p.mu.Unlock()

		if fail {
			w.WriteHeader(http.StatusUnprocessableEntity)
			json.NewEncoder(w).Encode(failure)
			return
		}
		json.NewEncoder(w).Encode(NodeResponse{Handle: "new-" + body.Node})
	})
}

func (p *proxy) paths() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.requests))
	for i, r := range p.requests {
		out[i] = r.Path
	}
	return out
}

func newTestNodeService(t *testing.T, p *proxy) *NodeService {
	t.Helper()
	server := httptest.NewServer(p.handler(t))
	t.Cleanup(server.Close)
	return NewNodeService(NodeOpts{BaseURL: server.URL, Workers: 2})
}

func copyItem(node string, isFile bool, rename string) models.PendingItem {
	item := models.NewCopyCollision("existing-"+node, node+".txt", "parent", node, isFile).PendingItem()
	item.RenameName = rename
	return item
}

func TestNodeServiceResolveSingle(t *testing.T) {
	ctx := context.Background()

	t.Run("CopyRename", func(t *testing.T) {
		p := &proxy{}
		srv := newTestNodeService(t, p)

		if err := srv.ResolveSingle(ctx, copyItem("h1", true, "h1 (1).txt"), models.OperationCopy, models.ChoiceRename); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(p.requests) != 1 || p.requests[0].Path != "/api/nodes/copy" {
			t.Fatalf("unexpected requests %v", p.paths())
		}
		body := p.requests[0].Body
		if body.Node != "h1" || body.Parent != "parent" || body.NewName != "h1 (1).txt" || body.Replace {
			t.Errorf("unexpected body %+v", body)
		}
	})

	t.Run("CopyReplaceFileUsesRubbish", func(t *testing.T) {
		p := &proxy{}
		srv := newTestNodeService(t, p)

		if err := srv.ResolveSingle(ctx, copyItem("h1", true, ""), models.OperationCopy, models.ChoiceReplaceUpdateMerge); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		paths := p.paths()
		if len(paths) != 2 || paths[0] != "/api/nodes/rubbish" || paths[1] != "/api/nodes/copy" {
			t.Fatalf("expected rubbish then copy, got %v", paths)
		}
		if p.requests[0].Body.Node != "existing-h1" {
			t.Errorf("expected collision node moved to rubbish, got %s", p.requests[0].Body.Node)
		}
	})

	t.Run("CopyMergeFolder", func(t *testing.T) {
		p := &proxy{}
		srv := newTestNodeService(t, p)

		if err := srv.ResolveSingle(ctx, copyItem("d1", false, ""), models.OperationCopy, models.ChoiceReplaceUpdateMerge); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(p.requests) != 1 || !p.requests[0].Body.Merge || p.requests[0].Body.Collision != "existing-d1" {
			t.Errorf("expected a single merge request, got %+v", p.requests)
		}
	})

	t.Run("UploadReplace", func(t *testing.T) {
		p := &proxy{}
		srv := newTestNodeService(t, p)
		item := models.NewUploadCollision("existing", "song.mp3", "parent", "/tmp/song.mp3", 42).PendingItem()

		if err := srv.ResolveSingle(ctx, item, models.OperationUpload, models.ChoiceReplaceUpdateMerge); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(p.requests) != 1 || p.requests[0].Path != "/api/uploads" {
			t.Fatalf("unexpected requests %v", p.paths())
		}
		body := p.requests[0].Body
		if body.LocalPath != "/tmp/song.mp3" || body.Size != 42 || !body.Replace {
			t.Errorf("unexpected upload body %+v", body)
		}
	})

	t.Run("Import", func(t *testing.T) {
		p := &proxy{}
		srv := newTestNodeService(t, p)
		item := models.NewImportCollision("existing", "pic.jpg", "parent", "chat-1", "msg-1", "h9").PendingItem()
		item.RenameName = "pic (1).jpg"

		if err := srv.ResolveSingle(ctx, item, models.OperationCopy, models.ChoiceRename); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		body := p.requests[0].Body
		if body.ChatID != "chat-1" || body.MessageID != "msg-1" || body.Node != "h9" {
			t.Errorf("unexpected import body %+v", body)
		}
	})

	t.Run("Move", func(t *testing.T) {
		p := &proxy{}
		srv := newTestNodeService(t, p)
		item := models.NewMovementCollision("existing", "a.txt", "parent", "h2", true).PendingItem()
		item.RenameName = "a (1).txt"

		if err := srv.ResolveSingle(ctx, item, models.OperationMove, models.ChoiceRename); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if p.requests[0].Path != "/api/nodes/move" {
			t.Errorf("expected move endpoint, got %s", p.requests[0].Path)
		}
	})

	t.Run("Validation", func(t *testing.T) {
		p := &proxy{}
		srv := newTestNodeService(t, p)

		tests := []struct {
			name   string
			item   models.PendingItem
			op     models.Operation
			choice models.Choice
			want   error
		}{
			{name: "NoCollision", item: models.PendingItem{ID: "x"}, op: models.OperationCopy, choice: models.ChoiceRename, want: shared.ErrInvalidInput},
			{name: "WrongOperation", item: copyItem("h1", true, "n"), op: models.OperationMove, choice: models.ChoiceRename, want: shared.ErrInvalidInput},
			{name: "MissingName", item: copyItem("h1", true, ""), op: models.OperationCopy, choice: models.ChoiceRename, want: shared.ErrMissingRenameName},
			{name: "Cancel", item: copyItem("h1", true, ""), op: models.OperationCopy, choice: models.ChoiceCancel, want: shared.ErrInvalidDecision},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				if err := srv.ResolveSingle(ctx, tt.item, tt.op, tt.choice); !errors.Is(err, tt.want) {
					t.Errorf("expected %v, got %v", tt.want, err)
				}
			})
		}
		if len(p.requests) != 0 {
			t.Errorf("invalid items must not reach the proxy, got %v", p.paths())
		}
	})

	t.Run("ErrorCodes", func(t *testing.T) {
		tests := []struct {
			code string
			want error
		}{
			{"over_quota", shared.ErrOverQuota},
			{"pre_over_quota", shared.ErrPreOverQuota},
			{"foreign_node", shared.ErrForeignNode},
			{"not_found", shared.ErrNodeNotFound},
			{"parent_not_found", shared.ErrParentNotFound},
			{"permission_denied", shared.ErrPermissionDenied},
			{"something_else", shared.ErrAPIRequest},
		}

		for _, tt := range tests {
			t.Run(tt.code, func(t *testing.T) {
				p := &proxy{failures: map[string]ErrorResponse{"h1": {Code: tt.code, Detail: "nope"}}}
				srv := newTestNodeService(t, p)

				err := srv.ResolveSingle(ctx, copyItem("h1", true, "n"), models.OperationCopy, models.ChoiceRename)
				if !errors.Is(err, tt.want) {
					t.Errorf("expected %v, got %v", tt.want, err)
				}
			})
		}
	})
}

func TestNodeServiceResolveBatch(t *testing.T) {
	ctx := context.Background()

	t.Run("CountsSoftFailures", func(t *testing.T) {
		p := &proxy{failures: map[string]ErrorResponse{
			"h2": {Code: "permission_denied"},
			"h4": {Code: "not_found"},
		}}
		srv := newTestNodeService(t, p)

		var items []models.PendingItem
		for _, h := range []string{"h1", "h2", "h3", "h4", "h5"} {
			items = append(items, copyItem(h, false, ""))
		}

		result, err := srv.ResolveBatch(ctx, items, models.OperationCopy, models.ChoiceReplaceUpdateMerge)
		if err != nil {
			t.Fatalf("soft failures must not be returned: %v", err)
		}
		if result.Count != 5 || result.ErrorCount != 2 || result.Succeeded() != 3 {
			t.Errorf("expected 5/2, got %+v", result)
		}
	})

	t.Run("HardErrorAborts", func(t *testing.T) {
		p := &proxy{failures: map[string]ErrorResponse{"h1": {Code: "over_quota", Detail: "full"}}}
		srv := newTestNodeService(t, p)
		srv.workers = 1

		items := []models.PendingItem{copyItem("h1", false, ""), copyItem("h2", false, ""), copyItem("h3", false, "")}
		result, err := srv.ResolveBatch(ctx, items, models.OperationCopy, models.ChoiceReplaceUpdateMerge)
		if !errors.Is(err, shared.ErrOverQuota) {
			t.Fatalf("expected over quota, got %v", err)
		}
		if len(p.paths()) != 1 {
			t.Errorf("expected the batch to stop after the first request, got %v", p.paths())
		}
		if result.Count != len(items) || result.ErrorCount != len(items) {
			t.Errorf("expected unsent items counted as failed, got %+v", result)
		}
	})

	t.Run("CanceledContext", func(t *testing.T) {
		p := &proxy{}
		srv := newTestNodeService(t, p)

		canceled, cancel := context.WithCancel(ctx)
		cancel()

		items := []models.PendingItem{copyItem("h1", true, ""), copyItem("h2", true, ""), copyItem("h3", true, "")}
		result, err := srv.ResolveBatch(canceled, items, models.OperationCopy, models.ChoiceReplaceUpdateMerge)
		if !errors.Is(err, shared.ErrTimeout) || !errors.Is(err, context.Canceled) {
			t.Fatalf("expected timeout wrapping context.Canceled, got %v", err)
		}
		if shared.IsHardError(err) {
			t.Error("cancellation must not be a hard error")
		}
		if result.Count != 3 || result.ErrorCount != 3 || result.Succeeded() != 0 {
			t.Errorf("expected 3 failed items, got %+v", result)
		}
		if len(p.paths()) != 0 {
			t.Errorf("expected no requests, got %v", p.paths())
		}
	})
}

func TestNodeServiceFetchSourceItems(t *testing.T) {
	ctx := context.Background()
	srv := newTestNodeService(t, &proxy{})

	t.Run("Lists", func(t *testing.T) {
		items, err := srv.FetchSourceItems(ctx, models.Criteria{Parent: "root"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(items) != 2 || items[0].Name != "one.mp3" || !items[0].IsFile || items[1].IsFile {
			t.Errorf("unexpected items %+v", items)
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		if _, err := srv.FetchSourceItems(ctx, models.Criteria{Parent: "missing"}); !errors.Is(err, shared.ErrNodeNotFound) {
			t.Errorf("expected not found, got %v", err)
		}
	})

	t.Run("MissingParent", func(t *testing.T) {
		if _, err := srv.FetchSourceItems(ctx, models.Criteria{}); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected missing argument, got %v", err)
		}
	})
}

func TestNewHTTPClient(t *testing.T) {
	cfg := shared.DefaultConfig()

	if client := NewHTTPClient(context.Background(), cfg); client.Timeout != cfg.API.Timeout() {
		t.Errorf("expected timeout %v, got %v", cfg.API.Timeout(), client.Timeout)
	}

	t.Run("ClientCredentials", func(t *testing.T) {
		var tokenCalls int
		tokens := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenCalls++
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"access_token":"tok","token_type":"bearer","expires_in":3600}`))
		}))
		defer tokens.Close()

		api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer tok" {
				t.Errorf("expected bearer token, got %q", r.Header.Get("Authorization"))
			}
			w.Write([]byte("[]"))
		}))
		defer api.Close()

		cfg := shared.DefaultConfig()
		cfg.API.BaseURL = api.URL
		cfg.Credentials.Storage.ClientID = "id"
		cfg.Credentials.Storage.ClientSecret = "secret"
		cfg.Credentials.Storage.TokenURL = tokens.URL

		srv := NewNodeServiceFromConfig(context.Background(), cfg, nil)
		for range 2 {
			if _, err := srv.FetchSourceItems(context.Background(), models.Criteria{Parent: "root"}); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}
		if tokenCalls != 1 {
			t.Errorf("expected the token to be cached, got %d token requests", tokenCalls)
		}
	})
}
