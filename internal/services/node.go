package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/desertthunder/nodeq/internal/models"
	"github.com/desertthunder/nodeq/internal/shared"
)

const (
	defaultNodeBaseURL = "http://127.0.0.1:8080"
	defaultWorkers     = 4
	maxWorkers         = 16
)

var errorCodes = map[string]error{
	"over_quota":        shared.ErrOverQuota,
	"pre_over_quota":    shared.ErrPreOverQuota,
	"foreign_node":      shared.ErrForeignNode,
	"not_found":         shared.ErrNodeNotFound,
	"parent_not_found":  shared.ErrParentNotFound,
	"permission_denied": shared.ErrPermissionDenied,
}

// NodeOpts configures a [NodeService].
type NodeOpts struct {
	BaseURL   string
	Client    *http.Client
	RateLimit float64 // Requests per second, 0 for unlimited
	Workers   int     // Concurrent requests per batch
	Logger    *log.Logger
}

// NodeService implements [Gateway] over the storage API proxy.
type NodeService struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	workers    int
	logger     *log.Logger
}

// NewNodeService creates a node service with the given options.
func NewNodeService(opts NodeOpts) *NodeService {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultNodeBaseURL
	}
	if opts.Client == nil {
		opts.Client = http.DefaultClient
	}
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.Workers > maxWorkers {
		opts.Workers = maxWorkers
	}
	if opts.Logger == nil {
		opts.Logger = shared.NopLogger()
	}

	limit := rate.Inf
	if opts.RateLimit > 0 {
		limit = rate.Limit(opts.RateLimit)
	}

	return &NodeService{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		httpClient: opts.Client,
		limiter:    rate.NewLimiter(limit, 1),
		workers:    opts.Workers,
		logger:     shared.WithLogger(opts.Logger, "service", "nodes"),
	}
}

// NewNodeServiceFromConfig builds a node service from the [api] and [credentials.storage] sections.
//
// With a client id configured, requests carry tokens from the OAuth2 client-credentials flow.
func NewNodeServiceFromConfig(ctx context.Context, cfg *shared.Config, logger *log.Logger) *NodeService {
	return NewNodeService(NodeOpts{
		BaseURL:   cfg.API.BaseURL,
		Client:    NewHTTPClient(ctx, cfg),
		RateLimit: cfg.API.RateLimit,
		Workers:   cfg.API.BatchWorkers,
		Logger:    logger,
	})
}

// NewHTTPClient returns the HTTP client for the proxy, authenticated when credentials are set.
func NewHTTPClient(ctx context.Context, cfg *shared.Config) *http.Client {
	creds := cfg.Credentials.Storage
	if creds.ClientID == "" {
		return &http.Client{Timeout: cfg.API.Timeout()}
	}

	cc := &clientcredentials.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		TokenURL:     creds.TokenURL,
		Scopes:       creds.Scopes,
	}
	client := cc.Client(ctx)
	client.Timeout = cfg.API.Timeout()
	return client
}

// ResolveSingle performs the operation for one collision.
func (n *NodeService) ResolveSingle(ctx context.Context, item models.PendingItem, op models.Operation, choice models.Choice) error {
	if err := n.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrTimeout, err)
	}
	return n.resolve(ctx, item, op, choice)
}

// ResolveBatch resolves items concurrently. Hard errors cancel the remaining requests and are
// returned together with the counts reached so far. Items that could not be sent count as
// failed, and a cancelled ctx is returned as [shared.ErrTimeout].
func (n *NodeService) ResolveBatch(ctx context.Context, items []models.PendingItem, op models.Operation, choice models.Choice) (models.BatchResult, error) {
	var attempted, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(n.workers)

	for _, item := range items {
		g.Go(func() error {
			attempted.Add(1)
			if err := n.limiter.Wait(gctx); err != nil {
				failed.Add(1)
				n.logger.Warn("batch item not sent", "item", item.ID, "error", err)
				return nil
			}

			err := n.resolve(gctx, item, op, choice)
			if err == nil {
				return nil
			}

			failed.Add(1)
			if shared.IsHardError(err) {
				return err
			}
			n.logger.Warn("batch item failed", "item", item.ID, "error", err)
			return nil
		})
	}

	err := g.Wait()
	result := models.BatchResult{Count: int(attempted.Load()), ErrorCount: int(failed.Load())}
	if err != nil {
		return result, err
	}
	if err := ctx.Err(); err != nil {
		return result, fmt.Errorf("%w: %w", shared.ErrTimeout, err)
	}

	n.logger.Info("batch resolved", "operation", op, "count", result.Count, "errors", result.ErrorCount)
	return result, nil
}

// FetchSourceItems lists the children of c.Parent.
//
// Calls GET /api/nodes?parent={parent}&filter={filter} on the proxy.
func (n *NodeService) FetchSourceItems(ctx context.Context, c models.Criteria) ([]models.RawItem, error) {
	if c.Parent == "" {
		return nil, fmt.Errorf("%w: parent handle", shared.ErrMissingArgument)
	}
	if err := n.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrTimeout, err)
	}

	q := url.Values{}
	q.Set("parent", c.Parent)
	if c.Filter != "" {
		q.Set("filter", c.Filter)
	}

	var items []models.RawItem
	if err := n.doRequest(ctx, http.MethodGet, "/api/nodes?"+q.Encode(), nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// resolve dispatches one collision to the endpoint matching its variant.
func (n *NodeService) resolve(ctx context.Context, item models.PendingItem, op models.Operation, choice models.Choice) error {
	c, ok := item.Collision()
	if !ok {
		return fmt.Errorf("%w: item %s carries no collision", shared.ErrInvalidInput, item.ID)
	}
	if c.Operation() != op {
		return fmt.Errorf("%w: %s collision in %s workflow", shared.ErrInvalidInput, c.Variant, op)
	}

	req := NodeRequest{Parent: c.ParentHandle, Name: c.Name}
	switch choice {
	case models.ChoiceRename:
		if item.RenameName == "" {
			return fmt.Errorf("%w: %s", shared.ErrMissingRenameName, c.Name)
		}
		req.NewName = item.RenameName
	case models.ChoiceReplaceUpdateMerge:
		req.Collision = c.CollisionHandle
		req.Merge = !c.IsFile
		req.Replace = c.IsFile
	default:
		return fmt.Errorf("%w: %s cannot be dispatched", shared.ErrInvalidDecision, choice)
	}

	var endpoint string
	switch c.Variant {
	case models.VariantUpload:
		endpoint = "/api/uploads"
		req.LocalPath = c.Upload.LocalPath
		req.Size = c.Upload.Size
	case models.VariantCopy:
		endpoint = "/api/nodes/copy"
		req.Node = c.Copy.NodeHandle
	case models.VariantImport:
		endpoint = "/api/nodes/copy"
		req.Node = c.Import.NodeHandle
		req.ChatID = c.Import.ChatID
		req.MessageID = c.Import.MessageID
	case models.VariantMovement:
		endpoint = "/api/nodes/move"
		req.Node = c.Movement.NodeHandle
	default:
		return fmt.Errorf("%w: unknown collision variant", shared.ErrInvalidInput)
	}

	// Copies and moves replace a file by sending the existing one to the rubbish bin first.
	if req.Replace && c.Variant != models.VariantUpload {
		if err := n.moveToRubbish(ctx, c.CollisionHandle); err != nil {
			return err
		}
		req.Collision = ""
		req.Replace = false
	}

	var resp NodeResponse
	if err := n.doRequest(ctx, http.MethodPost, endpoint, req, &resp); err != nil {
		return err
	}

	n.logger.Debug("node resolved", "item", item.ID, "choice", choice, "handle", resp.Handle)
	return nil
}

func (n *NodeService) moveToRubbish(ctx context.Context, handle string) error {
	if handle == "" {
		return fmt.Errorf("%w: collision handle", shared.ErrMissingArgument)
	}
	return n.doRequest(ctx, http.MethodPost, "/api/nodes/rubbish", NodeRequest{Node: handle}, nil)
}

func (n *NodeService) doRequest(ctx context.Context, method, endpoint string, body, result any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, n.baseURL+endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// decodeError maps a failed response to a typed error.
func decodeError(resp *http.Response) error {
	var errResp ErrorResponse
	_ = json.NewDecoder(resp.Body).Decode(&errResp)

	detail := errResp.Detail
	if detail == "" {
		detail = http.StatusText(resp.StatusCode)
	}

	if sentinel, ok := errorCodes[errResp.Code]; ok {
		return fmt.Errorf("%w: %s", sentinel, detail)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", shared.ErrNodeNotFound, detail)
	case resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %s", shared.ErrPermissionDenied, detail)
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: status %d: %s", shared.ErrServiceUnavailable, resp.StatusCode, detail)
	default:
		return fmt.Errorf("%w: status %d: %s", shared.ErrAPIRequest, resp.StatusCode, detail)
	}
}
