// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"

	"github.com/desertthunder/nodeq/internal/models"
)

// GatewayCall records one call made to a [MockGateway].
type GatewayCall struct {
	Method    string // "single", "batch" or "fetch"
	Items     []models.PendingItem
	Operation models.Operation
	Choice    models.Choice
	Criteria  models.Criteria
}

// MockGateway is a configurable test double for services.Gateway.
//
// Nil funcs succeed: singles return nil, batches report every item as succeeded.
type MockGateway struct {
	SingleFunc func(item models.PendingItem, choice models.Choice) error
	BatchFunc  func(items []models.PendingItem, choice models.Choice) (models.BatchResult, error)
	FetchFunc  func(c models.Criteria) ([]models.RawItem, error)

	mu    sync.Mutex
	calls []GatewayCall
}

func (m *MockGateway) ResolveSingle(ctx context.Context, item models.PendingItem, op models.Operation, choice models.Choice) error {
	m.record(GatewayCall{Method: "single", Items: []models.PendingItem{item}, Operation: op, Choice: choice})
	if m.SingleFunc != nil {
		return m.SingleFunc(item, choice)
	}
	return nil
}

func (m *MockGateway) ResolveBatch(ctx context.Context, items []models.PendingItem, op models.Operation, choice models.Choice) (models.BatchResult, error) {
	m.record(GatewayCall{Method: "batch", Items: items, Operation: op, Choice: choice})
	if m.BatchFunc != nil {
		return m.BatchFunc(items, choice)
	}
	return models.BatchResult{Count: len(items)}, nil
}

func (m *MockGateway) FetchSourceItems(ctx context.Context, c models.Criteria) ([]models.RawItem, error) {
	m.record(GatewayCall{Method: "fetch", Criteria: c})
	if m.FetchFunc != nil {
		return m.FetchFunc(c)
	}
	return nil, nil
}

// Calls returns a copy of every call made so far.
func (m *MockGateway) Calls() []GatewayCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]GatewayCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallsTo returns the calls made to method.
func (m *MockGateway) CallsTo(method string) []GatewayCall {
	var out []GatewayCall
	for _, c := range m.Calls() {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

func (m *MockGateway) record(c GatewayCall) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, c)
}

// MockRecorder collects resolution records in memory.
type MockRecorder struct {
	Err error

	mu      sync.Mutex
	records []*models.ResolutionRecord
}

func (m *MockRecorder) Create(rec *models.ResolutionRecord) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return nil
}

// Records returns the collected records.
func (m *MockRecorder) Records() []*models.ResolutionRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.ResolutionRecord, len(m.records))
	copy(out, m.records)
	return out
}

// MockPreferencesStore keeps preferences in memory.
type MockPreferencesStore struct {
	Prefs   *models.Preferences
	LoadErr error
	SaveErr error
	Saves   int
}

func (m *MockPreferencesStore) Load(profile string) (models.Preferences, error) {
	if m.LoadErr != nil {
		return models.Preferences{}, m.LoadErr
	}
	if m.Prefs == nil {
		return models.DefaultPreferences(profile), nil
	}
	return *m.Prefs, nil
}

func (m *MockPreferencesStore) Save(p models.Preferences) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.Saves++
	m.Prefs = &p
	return nil
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}

func MustWriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write file %s: %v", path, err)
	}
}
